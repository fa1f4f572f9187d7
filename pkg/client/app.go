package client

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/marmos91/dittofm/internal/logger"
)

// CommandErrorFunc observes a failed command. The state is not rolled back.
type CommandErrorFunc func(cmd Command, err error)

// App owns the navigation state and the controls rendered from it.
//
// Dispatch serializes actions: each one reduces the current state, replaces
// it wholesale when a new state is produced, then runs the returned
// commands in order. Subscribers are notified after every replacement.
//
// dispatchMu is held for a whole action, network calls included. mu only
// guards the fields below it, so readers never wait on the network.
type App struct {
	dispatchMu sync.Mutex

	mu       sync.Mutex
	state    State
	started  bool
	rootURL  string
	remote   Remote
	reducer  *Reducer
	controls []Control

	subscribers    []func(State)
	onCommandError CommandErrorFunc
}

// NewApp creates an App browsing rootURL, e.g. "http://localhost:8081/content".
// A nil prompter cancels every name prompt.
func NewApp(remote Remote, prompter Prompter, rootURL string) *App {
	if remote == nil {
		panic("remote cannot be nil")
	}

	rootURL = trimURL(rootURL)
	reducer := NewReducer(remote, prompter, rootURL)
	return &App{
		rootURL:  rootURL,
		remote:   remote,
		reducer:  reducer,
		controls: NewControls(reducer.CanGoBack),
		state:    State{URL: rootURL},
	}
}

// Start loads the root directory and selects its first item.
func (a *App) Start(ctx context.Context) error {
	a.dispatchMu.Lock()
	defer a.dispatchMu.Unlock()

	res, err := a.reducer.OpenDirectory(ctx, a.State(), a.rootURL, "")
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", a.rootURL, err)
	}

	a.mu.Lock()
	a.started = true
	a.mu.Unlock()

	a.apply(ctx, res)
	return nil
}

// Dispatch applies action to the current state. On error the state is left
// untouched. Command failures are not returned; they are logged and passed
// to the OnCommandError observer.
func (a *App) Dispatch(ctx context.Context, action Action) error {
	a.dispatchMu.Lock()
	defer a.dispatchMu.Unlock()

	res, err := a.reducer.Reduce(ctx, a.State(), action)
	if err != nil {
		return fmt.Errorf("%s: %w", action.ActionType(), err)
	}
	a.apply(ctx, res)
	return nil
}

// Trigger feeds a user event to the control with the given ID. Events on
// disabled controls are ignored.
func (a *App) Trigger(ctx context.Context, id string, e Event) error {
	a.mu.Lock()
	var (
		control Control
		state   = a.state
	)
	for _, c := range a.controls {
		if c.ID() == id {
			control = c
			break
		}
	}
	a.mu.Unlock()

	if control == nil {
		return fmt.Errorf("unknown control %q", id)
	}
	if !control.Render(state).Enabled {
		logger.Debug("Ignoring event on disabled control %s", id)
		return nil
	}

	action, ok := control.Action(e)
	if !ok {
		return nil
	}
	return a.Dispatch(ctx, action)
}

// apply must be called with dispatchMu held and mu released. Subscribers
// and commands run unlocked, so they may call back into the App.
func (a *App) apply(ctx context.Context, res Result) {
	a.mu.Lock()
	if res.Changed {
		a.state = res.State.clone()
	}
	subscribers := slices.Clone(a.subscribers)
	onCommandError := a.onCommandError
	a.mu.Unlock()

	if res.Changed {
		for _, fn := range subscribers {
			fn(res.State.clone())
		}
	}

	for _, cmd := range res.Commands {
		if _, err := a.remote.Do(ctx, cmd.Method, cmd.URL, cmd.Body); err != nil {
			logger.Error("Command %s failed: %v", cmd, err)
			if onCommandError != nil {
				onCommandError(cmd, err)
			}
			continue
		}
		logger.Debug("Command %s done", cmd)
	}
}

// State returns a copy of the current state.
func (a *App) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.clone()
}

// Started reports whether the initial load succeeded.
func (a *App) Started() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.started
}

// Views renders every control, in display order.
func (a *App) Views() []View {
	a.mu.Lock()
	defer a.mu.Unlock()

	views := make([]View, 0, len(a.controls))
	for _, c := range a.controls {
		views = append(views, c.Render(a.state))
	}
	return views
}

// Editor returns the text shown in the editor.
func (a *App) Editor() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.Content.Value
}

// Breadcrumb returns the current directory relative to the root, e.g.
// "/notes/2024". The root itself is "/".
func (a *App) Breadcrumb() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	segments := strings.Split(trimURL(a.state.URL), "/")
	depth := a.reducer.rootDepth
	if len(segments) <= depth {
		return "/"
	}

	rel := segments[depth:]
	for i, s := range rel {
		if name, err := url.PathUnescape(s); err == nil {
			rel[i] = name
		}
	}
	return "/" + strings.Join(rel, "/")
}

// Subscribe registers fn to receive every new state.
func (a *App) Subscribe(fn func(State)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.subscribers = append(a.subscribers, fn)
}

// OnCommandError sets the command failure observer.
func (a *App) OnCommandError(fn CommandErrorFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onCommandError = fn
}
