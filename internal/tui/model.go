// Package tui is the terminal front end of the file manager client.
//
// The Model renders a client.App and feeds it the user's keys. Every
// action that talks to the server runs as a tea.Cmd, so the UI never blocks
// on the network; keys are ignored while an action is in flight.
package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/marmos91/dittofm/pkg/client"
)

type mode int

const (
	modeBrowse mode = iota
	modeEdit
	modePrompt
)

// resultMsg reports the end of an action started by run.
type resultMsg struct {
	status string
	err    error
}

// failureLog collects command failures reported by the App. Commands run
// inside tea.Cmd goroutines, so it is shared by pointer and locked.
type failureLog struct {
	mu       sync.Mutex
	messages []string
}

func (f *failureLog) add(cmd client.Command, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, fmt.Sprintf("%s failed: %v", cmd, err))
}

func (f *failureLog) drain() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.messages
	f.messages = nil
	return out
}

// Model is the bubbletea model of the file manager client.
type Model struct {
	ctx      context.Context
	app      *client.App
	prompter *client.QueuedPrompter
	failures *failureLog

	mode    mode
	items   []string
	cursor  int
	editor  textarea.Model
	input   textinput.Model
	pending string // control awaiting the prompt answer

	busy   bool
	status string
	err    error
}

// New creates the model. prompter must be the one app was created with:
// the model answers name prompts through it.
func New(ctx context.Context, app *client.App, prompter *client.QueuedPrompter) *Model {
	editor := textarea.New()
	editor.Placeholder = "File content"
	editor.ShowLineNumbers = false
	editor.CharLimit = 0
	editor.SetWidth(80)
	editor.SetHeight(12)

	input := textinput.New()
	input.Width = 40

	failures := &failureLog{}
	app.OnCommandError(failures.add)

	return &Model{
		ctx:      ctx,
		app:      app,
		prompter: prompter,
		failures: failures,
		editor:   editor,
		input:    input,
	}
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return m.run("", func() error {
		return m.app.Start(m.ctx)
	})
}

// run starts fn as a command and marks the model busy until it reports.
func (m *Model) run(status string, fn func() error) tea.Cmd {
	m.busy = true
	m.err = nil
	return func() tea.Msg {
		return resultMsg{status: status, err: fn()}
	}
}

func (m *Model) trigger(id, status string, e client.Event) tea.Cmd {
	return m.run(status, func() error {
		return m.app.Trigger(m.ctx, id, e)
	})
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case resultMsg:
		m.busy = false
		m.err = msg.err
		m.status = msg.status
		if failures := m.failures.drain(); len(failures) > 0 {
			m.status = strings.Join(failures, "; ")
		}
		m.sync()
		return m, nil

	case tea.WindowSizeMsg:
		if msg.Width > 4 {
			m.editor.SetWidth(msg.Width - 4)
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.busy {
			return m, nil
		}
		switch m.mode {
		case modeEdit:
			return m.handleEditKeys(msg)
		case modePrompt:
			return m.handlePromptKeys(msg)
		default:
			return m.handleBrowseKeys(msg)
		}
	}
	return m, nil
}

// sync copies the App state into the widgets.
func (m *Model) sync() {
	st := m.app.State()
	m.items = st.Items
	m.cursor = max(0, slices.Index(st.Items, st.SelectedItem))
	m.editor.SetValue(st.Content.Value)
}

func (m *Model) handleBrowseKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		return m, m.moveCursor(-1)
	case "down", "j":
		return m, m.moveCursor(1)
	case "enter", "right", "l":
		return m, m.trigger(client.ControlOpen, "", client.Event{})
	case "backspace", "left", "h":
		return m, m.trigger(client.ControlBack, "", client.Event{})
	case "s", "ctrl+s":
		return m, m.trigger(client.ControlSave, "Saved", client.Event{})
	case "d":
		return m, m.trigger(client.ControlDelete, "Deleted", client.Event{})
	case "n":
		return m, m.startPrompt(client.ControlCreateFile, client.PromptFileName)
	case "N":
		return m, m.startPrompt(client.ControlCreateDirectory, client.PromptDirectoryName)
	case "e", "tab":
		m.mode = modeEdit
		return m, m.editor.Focus()
	}
	return m, nil
}

func (m *Model) moveCursor(delta int) tea.Cmd {
	next := m.cursor + delta
	if next < 0 || next >= len(m.items) {
		return nil
	}
	m.cursor = next
	return m.trigger(client.ControlItemSelect, "", client.Event{Value: m.items[next]})
}

func (m *Model) handleEditKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m, m.leaveEditor("", false)
	case "ctrl+s":
		return m, m.leaveEditor("Saved", true)
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

// leaveEditor records the edited text in the App, then saves it when asked.
func (m *Model) leaveEditor(status string, save bool) tea.Cmd {
	m.mode = modeBrowse
	m.editor.Blur()
	text := m.editor.Value()

	return m.run(status, func() error {
		if err := m.app.Dispatch(m.ctx, client.SetContent{Text: text}); err != nil {
			return err
		}
		if !save {
			return nil
		}
		return m.app.Trigger(m.ctx, client.ControlSave, client.Event{})
	})
}

func (m *Model) startPrompt(id, message string) tea.Cmd {
	m.mode = modePrompt
	m.pending = id
	m.input.Reset()
	m.input.Placeholder = message
	return m.input.Focus()
}

func (m *Model) handlePromptKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.endPrompt()
		m.status = "Cancelled"
		return m, nil
	case "enter":
		m.prompter.Push(m.input.Value())
		id := m.pending
		m.endPrompt()
		return m, m.trigger(id, "Created", client.Event{})
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) endPrompt() {
	m.mode = modeBrowse
	m.pending = ""
	m.input.Blur()
}

// View implements tea.Model
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(theme.Title.Render("DittoFM"))
	b.WriteString(" ")
	b.WriteString(theme.Crumb.Render(m.app.Breadcrumb()))
	b.WriteString("\n\n")

	views := m.app.Views()
	selector := views[0]

	if len(selector.Options) == 0 {
		b.WriteString(theme.Unselected.Render(selector.Icon + " (empty)"))
		b.WriteString("\n")
	}
	for i, item := range selector.Options {
		if i == m.cursor {
			b.WriteString(theme.Selected.Render("> " + selector.Icon + " " + item))
		} else {
			b.WriteString(theme.Unselected.Render("  " + item))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	buttons := make([]string, 0, len(views)-1)
	for _, v := range views[1:] {
		if v.Enabled {
			buttons = append(buttons, theme.Enabled.Render(v.Label))
		} else {
			buttons = append(buttons, theme.Disabled.Render(v.Label))
		}
	}
	b.WriteString(strings.Join(buttons, " "))
	b.WriteString("\n\n")

	b.WriteString(m.editor.View())
	b.WriteString("\n")

	if m.mode == modePrompt {
		b.WriteString(theme.Prompt.Render(m.input.Placeholder))
		b.WriteString(" ")
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}

	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(theme.Help.Render(m.help()))
	return b.String()
}

func (m *Model) statusLine() string {
	size := humanize.Bytes(uint64(len(m.editor.Value())))
	switch {
	case m.busy:
		return theme.Status.Render("Working... | " + size)
	case m.err != nil:
		return theme.Error.Render("Error: " + m.err.Error())
	case m.status != "":
		return theme.Status.Render(m.status + " | " + size)
	default:
		return theme.Status.Render(size)
	}
}

func (m *Model) help() string {
	switch m.mode {
	case modeEdit:
		return "esc: done  ctrl+s: save"
	case modePrompt:
		return "enter: create  esc: cancel"
	default:
		return "↑/↓: select  enter: open  ←: back  e: edit  s: save  n: new file  N: new dir  d: delete  q: quit"
	}
}
