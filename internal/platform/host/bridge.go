// Package host abstracts the Mini App host: main and back buttons, haptics, theme,
// launch init data, links and toasts. Components receive a Bridge instead of reaching
// for a global.
package host

import "context"

type MainButton struct {
	Text    string
	Visible bool
	Enabled bool
	// Loading shows a progress indicator instead of the text.
	Loading bool
}

type HapticStyle string

const (
	HapticSuccess HapticStyle = "success"
	HapticWarning HapticStyle = "warning"
	HapticError   HapticStyle = "error"
	HapticLight   HapticStyle = "light"
)

type ToastKind string

const (
	ToastInfo    ToastKind = "info"
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
)

type Theme struct {
	Dark   bool
	Accent string
}

type Bridge interface {
	ShowBackButton(onClick func())
	HideBackButton()
	SetMainButton(b MainButton, onClick func())
	Haptic(style HapticStyle)
	Theme() Theme
	// InitData returns the raw launch init data, empty outside of the host.
	InitData() string
	OpenLink(url string) error
	Toast(kind ToastKind, message string)
}

// WithBackButton shows the back button for the lifetime of a screen. Pressing it cancels
// the returned context; the returned func hides the button and must be called on exit.
func WithBackButton(ctx context.Context, b Bridge) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	b.ShowBackButton(cancel)
	return ctx, func() {
		b.HideBackButton()
		cancel()
	}
}

// MarkdownStyle picks the glamour style matching the host theme.
func MarkdownStyle(b Bridge) string {
	if b.Theme().Dark {
		return "dark"
	}
	return "light"
}
