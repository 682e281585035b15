package host

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorAccent = lipgloss.AdaptiveColor{Light: "#2481cc", Dark: "#64b5ef"}
	colorMuted  = lipgloss.AdaptiveColor{Light: "240", Dark: "245"}

	buttonStyle = lipgloss.NewStyle().
			Padding(0, 2).
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(colorAccent)
	disabledButtonStyle = buttonStyle.
				Background(colorMuted)

	toastStyles = map[ToastKind]lipgloss.Style{
		ToastInfo:    lipgloss.NewStyle().Foreground(colorAccent),
		ToastSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("#2e9e5b")).Bold(true),
		ToastError:   lipgloss.NewStyle().Foreground(lipgloss.Color("#d16d7a")).Bold(true),
	}
)

// Terminal renders the host surface as lines on a writer. Button callbacks are kept so a
// command can trigger them with PressMain and PressBack.
type Terminal struct {
	out      io.Writer
	initData string

	mu     sync.Mutex
	main   MainButton
	onMain func()
	onBack func()
}

func NewTerminal(out io.Writer, initData string) *Terminal {
	return &Terminal{out: out, initData: initData}
}

func (t *Terminal) ShowBackButton(onClick func()) {
	t.mu.Lock()
	t.onBack = onClick
	t.mu.Unlock()
}

func (t *Terminal) HideBackButton() {
	t.mu.Lock()
	t.onBack = nil
	t.mu.Unlock()
}

func (t *Terminal) SetMainButton(b MainButton, onClick func()) {
	t.mu.Lock()
	changed := b != t.main
	t.main = b
	t.onMain = onClick
	t.mu.Unlock()

	if changed && b.Visible {
		fmt.Fprintln(t.out, RenderButton(b))
	}
}

// MainButton returns the button as last set.
func (t *Terminal) MainButton() MainButton {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.main
}

// PressMain runs the main button callback when the button is visible and enabled.
func (t *Terminal) PressMain() bool {
	t.mu.Lock()
	b, fn := t.main, t.onMain
	t.mu.Unlock()
	if !b.Visible || !b.Enabled || b.Loading || fn == nil {
		return false
	}
	fn()
	return true
}

func (t *Terminal) PressBack() bool {
	t.mu.Lock()
	fn := t.onBack
	t.mu.Unlock()
	if fn == nil {
		return false
	}
	fn()
	return true
}

func (t *Terminal) Haptic(HapticStyle) {}

func (t *Terminal) Theme() Theme {
	return Theme{Dark: lipgloss.HasDarkBackground(), Accent: colorAccent.Dark}
}

func (t *Terminal) InitData() string { return t.initData }

func (t *Terminal) OpenLink(url string) error {
	_, err := fmt.Fprintln(t.out, lipgloss.NewStyle().Underline(true).Foreground(colorAccent).Render(url))
	return err
}

func (t *Terminal) Toast(kind ToastKind, message string) {
	style, ok := toastStyles[kind]
	if !ok {
		style = toastStyles[ToastInfo]
	}
	fmt.Fprintln(t.out, style.Render(message))
}

// RenderButton draws the main button as a single line.
func RenderButton(b MainButton) string {
	text := b.Text
	if b.Loading {
		text = "…"
	}
	if !b.Enabled {
		return disabledButtonStyle.Render(text)
	}
	return buttonStyle.Render(text)
}
