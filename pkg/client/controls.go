package client

// Selector icons.
const (
	EmptyIcon  = "∅"
	FolderIcon = "\U0001F4C1"
	FileIcon   = "\U0001F4C4"
)

// Control IDs, in display order.
const (
	ControlItemSelect      = "directories"
	ControlOpen            = "open"
	ControlBack            = "back"
	ControlSave            = "save"
	ControlCreateFile      = "createFile"
	ControlCreateDirectory = "createDirectory"
	ControlDelete          = "delete"
)

// View is the rendering of one control for a given state. Options, Value and
// Icon are only set for the selector.
type View struct {
	ID      string
	Label   string
	Enabled bool
	Options []string
	Value   string
	Icon    string
}

// Event is a user interaction with a control. Value carries the chosen
// option for the selector and is ignored by buttons.
type Event struct {
	Value string
}

// Control renders itself from the navigation state and turns user events
// into actions.
type Control interface {
	ID() string
	Render(s State) View
	Action(e Event) (Action, bool)
}

// NewControls returns the control set in display order: the item selector
// then the Open, Back, Save, Create File, Create Directory and Delete
// buttons. canGoBack decides whether Back is enabled.
func NewControls(canGoBack func(State) bool) []Control {
	return []Control{
		ItemSelect{},
		&button{id: ControlOpen, label: "Open", action: Open{}, enabled: func(s State) bool {
			return s.Content.IsDirectory()
		}},
		&button{id: ControlBack, label: "Back", action: Back{}, enabled: canGoBack},
		&button{id: ControlSave, label: "Save", action: Save{}, enabled: func(s State) bool {
			return len(s.Items) > 0 && s.Content.IsFile()
		}},
		&button{id: ControlCreateFile, label: "Create File", action: CreateFile{}},
		&button{id: ControlCreateDirectory, label: "Create Directory", action: CreateDirectory{}},
		&button{id: ControlDelete, label: "Delete", action: Delete{}, enabled: func(s State) bool {
			return len(s.Items) > 0
		}},
	}
}

// ItemSelect is the selector over the current directory items.
type ItemSelect struct{}

func (ItemSelect) ID() string { return ControlItemSelect }

func (ItemSelect) Render(s State) View {
	icon := EmptyIcon
	switch {
	case len(s.Items) == 0:
	case s.Content.IsDirectory():
		icon = FolderIcon
	case s.Content.IsFile():
		icon = FileIcon
	}

	return View{
		ID:      ControlItemSelect,
		Enabled: true,
		Options: append([]string(nil), s.Items...),
		Value:   s.SelectedItem,
		Icon:    icon,
	}
}

func (ItemSelect) Action(e Event) (Action, bool) {
	if e.Value == "" {
		return nil, false
	}
	return SetSelectedOption{Item: e.Value}, true
}

type button struct {
	id      string
	label   string
	action  Action
	enabled func(State) bool // nil means always enabled
}

func (b *button) ID() string { return b.id }

func (b *button) Render(s State) View {
	return View{
		ID:      b.id,
		Label:   b.label,
		Enabled: b.enabled == nil || b.enabled(s),
	}
}

func (b *button) Action(Event) (Action, bool) {
	return b.action, true
}
