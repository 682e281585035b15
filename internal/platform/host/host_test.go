package host

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

var _ Bridge = (*Terminal)(nil)
var _ Bridge = (*Recorder)(nil)

func TestTerminal_MainButton(t *testing.T) {
	var out bytes.Buffer
	term := NewTerminal(&out, "query_id=1")
	assert.Equal(t, "query_id=1", term.InitData())

	pressed := 0
	term.SetMainButton(MainButton{Text: "Join Group", Visible: true, Enabled: true}, func() { pressed++ })
	assert.Contains(t, out.String(), "Join Group")

	// повторная установка того же состояния не печатается
	out.Reset()
	term.SetMainButton(MainButton{Text: "Join Group", Visible: true, Enabled: true}, func() { pressed++ })
	assert.Empty(t, out.String())

	assert.True(t, term.PressMain())
	assert.Equal(t, 1, pressed)

	term.SetMainButton(MainButton{Text: "Checking…", Visible: true, Loading: true}, func() { pressed++ })
	assert.False(t, term.PressMain())
	assert.Equal(t, 1, pressed)
}

func TestTerminal_BackButtonAndToast(t *testing.T) {
	var out bytes.Buffer
	term := NewTerminal(&out, "")

	assert.False(t, term.PressBack())
	back := false
	term.ShowBackButton(func() { back = true })
	assert.True(t, term.PressBack())
	assert.True(t, back)
	term.HideBackButton()
	assert.False(t, term.PressBack())

	term.Toast(ToastError, "Server error")
	assert.Contains(t, out.String(), "Server error")
}

func TestRecorder(t *testing.T) {
	r := NewRecorder("raw")
	_, ok := r.LastButton()
	assert.False(t, ok)

	pressed := false
	r.SetMainButton(MainButton{Text: "Check", Visible: true, Enabled: true}, func() { pressed = true })
	r.Press()
	assert.True(t, pressed)

	b, ok := r.LastButton()
	assert.True(t, ok)
	assert.Equal(t, "Check", b.Text)

	r.Haptic(HapticSuccess)
	r.Toast(ToastInfo, "hi")
	assert.NoError(t, r.OpenLink("https://t.me/club"))
	assert.Equal(t, []HapticStyle{HapticSuccess}, r.Haptics())
	assert.Equal(t, []Toast{{Kind: ToastInfo, Message: "hi"}}, r.Toasts())
	assert.Equal(t, []string{"https://t.me/club"}, r.Links())
}

func TestWithBackButton(t *testing.T) {
	r := NewRecorder("")
	ctx, done := WithBackButton(context.Background(), r)
	assert.True(t, r.BackVisible())
	assert.Equal(t, 1, r.BackShown())
	assert.NoError(t, ctx.Err())

	assert.True(t, r.PressBack())
	assert.ErrorIs(t, ctx.Err(), context.Canceled)

	done()
	assert.False(t, r.BackVisible())
	assert.False(t, r.PressBack())
}

func TestWithBackButton_TerminalPress(t *testing.T) {
	term := NewTerminal(&bytes.Buffer{}, "")
	ctx, done := WithBackButton(context.Background(), term)
	defer done()

	assert.True(t, term.PressBack())
	<-ctx.Done()
}

func TestMarkdownStyle(t *testing.T) {
	r := NewRecorder("")
	assert.Equal(t, "light", MarkdownStyle(r))
	r.SetTheme(Theme{Dark: true})
	assert.Equal(t, "dark", MarkdownStyle(r))
}
