package app

import "github.com/charmbracelet/bubbles/key"

// keyMap holds every binding. Which ones are live depends on the view and
// on whether an input has focus.
type keyMap struct {
	Quit    key.Binding
	Help    key.Binding
	Refresh key.Binding
	Back    key.Binding
	Up      key.Binding
	Down    key.Binding
	Open    key.Binding

	Conversations key.Binding
	Speakers      key.Binding
	Upload        key.Binding
	Vector        key.Binding
	History       key.Binding

	// Transcript
	EditSpeaker key.Binding
	EditText    key.Binding
	EditTitle   key.Binding
	Play        key.Binding
	Delete      key.Binding

	// Open edit sessions
	Submit    key.Binding
	SaveText  key.Binding
	Cancel    key.Binding
	ApplyAll  key.Binding
	Park      key.Binding
	PrevField key.Binding
	NextField key.Binding
	Left      key.Binding
	Right     key.Binding

	// Roster and index
	Add       key.Binding
	Rename    key.Binding
	AddSample key.Binding
	Confirm   key.Binding
	Deny      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Back:    key.NewBinding(key.WithKeys("esc", "backspace"), key.WithHelp("esc", "back")),
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Open:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),

		Conversations: key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "conversations")),
		Speakers:      key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "speakers")),
		Upload:        key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "upload")),
		Vector:        key.NewBinding(key.WithKeys("4"), key.WithHelp("4", "index")),
		History:       key.NewBinding(key.WithKeys("5"), key.WithHelp("5", "history")),

		EditSpeaker: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "speaker")),
		EditText:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit text")),
		EditTitle:   key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "title")),
		Play:        key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "play")),
		Delete:      key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),

		Submit:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
		SaveText:  key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		Cancel:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		ApplyAll:  key.NewBinding(key.WithKeys("ctrl+a"), key.WithHelp("ctrl+a", "apply to all")),
		Park:      key.NewBinding(key.WithKeys("ctrl+g"), key.WithHelp("ctrl+g", "leave open")),
		PrevField: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev field")),
		NextField: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		Left:      key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "less")),
		Right:     key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "more")),

		Add:       key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		Rename:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "rename")),
		AddSample: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "add sample")),
		Confirm:   key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "confirm")),
		Deny:      key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "keep")),
	}
}

// bindings adapts a list of bindings to help.KeyMap.
type bindings []key.Binding

func (b bindings) ShortHelp() []key.Binding { return b }

func (b bindings) FullHelp() [][]key.Binding {
	var rows [][]key.Binding
	for i := 0; i < len(b); i += 4 {
		rows = append(rows, b[i:min(i+4, len(b))])
	}
	return rows
}
