package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/marmos91/dittofm/pkg/fileserver"
)

// State is the navigation state owned by an App.
//
// SelectedItem is always an element of Items, or empty when Items is empty.
// Content is the last fetched body for SelectedItem, possibly carrying an
// unsaved edit. URL is the address of the current directory.
type State struct {
	Items        []string
	SelectedItem string
	Content      Content
	URL          string
}

func (s State) clone() State {
	s.Items = slices.Clone(s.Items)
	return s
}

// Action is a user intent consumed by the Reducer. The set of actions is
// closed: only the types in this package implement it.
type Action interface {
	ActionType() string
	isAction()
}

// SetSelectedOption selects Item and fetches its content.
type SetSelectedOption struct {
	Item string
}

// Open enters the selected directory.
type Open struct{}

// Back returns to the parent directory, reselecting the one just left.
type Back struct{}

// Save writes the current content to the selected file.
type Save struct{}

// SetContent records an unsaved edit of the selected file.
type SetContent struct {
	Text string
}

// CreateFile prompts for a name and creates a file holding the current text.
type CreateFile struct{}

// CreateDirectory prompts for a name and creates a directory.
type CreateDirectory struct{}

// Delete removes the selected entry.
type Delete struct{}

func (SetSelectedOption) ActionType() string { return "setSelectedOption" }
func (Open) ActionType() string              { return "open" }
func (Back) ActionType() string              { return "back" }
func (Save) ActionType() string              { return "save" }
func (SetContent) ActionType() string        { return "setContent" }
func (CreateFile) ActionType() string        { return "createFile" }
func (CreateDirectory) ActionType() string   { return "createDirectory" }
func (Delete) ActionType() string            { return "delete" }

func (SetSelectedOption) isAction() {}
func (Open) isAction()              {}
func (Back) isAction()              {}
func (Save) isAction()              {}
func (SetContent) isAction()        {}
func (CreateFile) isAction()        {}
func (CreateDirectory) isAction()   {}
func (Delete) isAction()            {}

// Command is a side effect produced by the Reducer and executed by the App
// after the state has been replaced. Its outcome never changes the state.
type Command struct {
	Method string
	URL    string
	Body   string
}

func (c Command) String() string {
	return c.Method + " " + c.URL
}

func putCommand(u, body string) Command {
	return Command{Method: http.MethodPut, URL: u, Body: body}
}

func mkcolCommand(u string) Command {
	return Command{Method: fileserver.MethodMkcol, URL: u}
}

func deleteCommand(u string) Command {
	return Command{Method: http.MethodDelete, URL: u}
}

// Result is the outcome of one reduction. When Changed is false State is
// the input state and must not replace it.
type Result struct {
	State    State
	Commands []Command
	Changed  bool
}

func unchanged(s State, cmds ...Command) Result {
	return Result{State: s, Commands: cmds}
}

func changed(s State, cmds ...Command) Result {
	return Result{State: s, Commands: cmds, Changed: true}
}

// Prompt messages.
const (
	PromptFileName      = "Enter file name with format [.txt, etc.]:"
	PromptDirectoryName = "Enter directory name:"
)

// Reducer maps (state, action) to the next state, fetching what the new
// state needs through a Remote.
type Reducer struct {
	remote    Remote
	prompter  Prompter
	rootDepth int
}

// NewReducer creates a Reducer. rootURL is the top directory the client may
// navigate; Back never climbs above it.
func NewReducer(remote Remote, prompter Prompter, rootURL string) *Reducer {
	if prompter == nil {
		prompter = &QueuedPrompter{}
	}
	return &Reducer{
		remote:    remote,
		prompter:  prompter,
		rootDepth: segmentCount(trimURL(rootURL)),
	}
}

// Reduce applies a to s. Errors come from fetches the new state depends on;
// s is then left as is.
func (r *Reducer) Reduce(ctx context.Context, s State, a Action) (Result, error) {
	switch a := a.(type) {
	case SetSelectedOption:
		return r.setSelectedOption(ctx, s, a.Item)
	case Open:
		if !s.Content.IsDirectory() || s.SelectedItem == "" {
			return unchanged(s), nil
		}
		return r.OpenDirectory(ctx, s, childURL(s.URL, s.SelectedItem), "")
	case Back:
		return r.back(ctx, s)
	case Save:
		if s.SelectedItem == "" {
			return unchanged(s), nil
		}
		return unchanged(s, putCommand(childURL(s.URL, s.SelectedItem), s.Content.Value)), nil
	case SetContent:
		next := s.clone()
		next.Content = Content{Type: s.Content.Type, Value: a.Text}
		return changed(next), nil
	case CreateFile:
		return r.createFile(ctx, s)
	case CreateDirectory:
		return r.createDirectory(ctx, s)
	case Delete:
		return r.delete(ctx, s)
	default:
		return unchanged(s), nil
	}
}

func (r *Reducer) setSelectedOption(ctx context.Context, s State, item string) (Result, error) {
	content, err := r.remote.Do(ctx, http.MethodGet, childURL(s.URL, item), "")
	if err != nil {
		return Result{}, err
	}

	next := s.clone()
	next.SelectedItem = item
	next.Content = content
	return changed(next), nil
}

// OpenDirectory loads the listing at dirURL and selects preselect, or the
// first item when preselect is empty or no longer listed. An empty
// directory leaves nothing selected and no content.
func (r *Reducer) OpenDirectory(ctx context.Context, s State, dirURL, preselect string) (Result, error) {
	listing, err := r.remote.Do(ctx, http.MethodGet, dirURL, "")
	if err != nil {
		return Result{}, err
	}
	if !listing.IsDirectory() {
		return Result{}, fmt.Errorf("%s is not a directory", dirURL)
	}

	var items []string
	if listing.Value != "" {
		items = strings.Split(listing.Value, "\n")
	}

	selected := preselect
	if selected == "" || !slices.Contains(items, selected) {
		selected = ""
		if len(items) > 0 {
			selected = items[0]
		}
	}

	next := State{Items: items, SelectedItem: selected, URL: dirURL}
	if selected != "" {
		next.Content, err = r.remote.Do(ctx, http.MethodGet, childURL(dirURL, selected), "")
		if err != nil {
			return Result{}, err
		}
	}
	return changed(next), nil
}

func (r *Reducer) back(ctx context.Context, s State) (Result, error) {
	if !r.CanGoBack(s) {
		return unchanged(s), nil
	}

	u := trimURL(s.URL)
	i := strings.LastIndex(u, "/")
	parent, left := u[:i], u[i+1:]
	if name, err := url.PathUnescape(left); err == nil {
		left = name
	}
	return r.OpenDirectory(ctx, s, parent, left)
}

// CanGoBack reports whether s is below the root directory.
func (r *Reducer) CanGoBack(s State) bool {
	return segmentCount(trimURL(s.URL)) > r.rootDepth
}

func (r *Reducer) createFile(ctx context.Context, s State) (Result, error) {
	name, ok := r.prompt(ctx, PromptFileName)
	if !ok || slices.Contains(s.Items, name) {
		return unchanged(s), nil
	}

	content := Content{Type: ContentFile, Value: s.Content.Value}
	next := s.clone()
	next.Items = append(next.Items, name)
	next.SelectedItem = name
	next.Content = content
	return changed(next, putCommand(childURL(s.URL, name), content.Value)), nil
}

func (r *Reducer) createDirectory(ctx context.Context, s State) (Result, error) {
	name, ok := r.prompt(ctx, PromptDirectoryName)
	if !ok || slices.Contains(s.Items, name) {
		return unchanged(s), nil
	}

	next := s.clone()
	next.Items = append(next.Items, name)
	next.SelectedItem = name
	next.Content = Content{Type: ContentDirectory}
	return changed(next, mkcolCommand(childURL(s.URL, name))), nil
}

func (r *Reducer) delete(ctx context.Context, s State) (Result, error) {
	if s.SelectedItem == "" {
		return unchanged(s), nil
	}
	cmd := deleteCommand(childURL(s.URL, s.SelectedItem))

	items := make([]string, 0, len(s.Items))
	for _, item := range s.Items {
		if item != s.SelectedItem {
			items = append(items, item)
		}
	}

	next := State{Items: items, URL: s.URL}
	if len(items) > 0 {
		content, err := r.remote.Do(ctx, http.MethodGet, childURL(s.URL, items[0]), "")
		if err != nil {
			return Result{}, err
		}
		next.SelectedItem = items[0]
		next.Content = content
	}
	return changed(next, cmd), nil
}

// prompt asks for a name; blank answers count as cancelled.
func (r *Reducer) prompt(ctx context.Context, message string) (string, bool) {
	name, ok := r.prompter.Prompt(ctx, message)
	name = strings.TrimSpace(name)
	return name, ok && name != ""
}

func childURL(dir, name string) string {
	return trimURL(dir) + "/" + url.PathEscape(name)
}

func trimURL(u string) string {
	return strings.TrimRight(u, "/")
}

func segmentCount(u string) int {
	return len(strings.Split(u, "/"))
}
