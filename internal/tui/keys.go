package tui

// Keybinding constants
const (
	KeySend     = "ctrl+s"
	KeyClear    = "ctrl+l"
	KeySettings = "ctrl+o"
	KeyQuit     = "esc"
	KeyCtrlC    = "ctrl+c"
	KeyPgUp     = "pgup"
	KeyPgDown   = "pgdown"
)

// HelpView returns a one-line help bar with common keybindings.
func HelpView() string {
	return StyleHelp.Render("ctrl+s: send | ctrl+l: clear | ctrl+o: settings | pgup/pgdown: scroll | esc: quit")
}
