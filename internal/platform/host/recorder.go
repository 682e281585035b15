package host

import "sync"

// Toast is one recorded toast.
type Toast struct {
	Kind    ToastKind
	Message string
}

// Recorder is a Bridge that only remembers what it was asked to do.
type Recorder struct {
	mu          sync.Mutex
	initData    string
	buttons     []MainButton
	onMain      func()
	onBack      func()
	backVisible bool
	backShown   int
	theme       Theme
	haptics     []HapticStyle
	links       []string
	toasts      []Toast
}

func NewRecorder(initData string) *Recorder {
	return &Recorder{initData: initData}
}

func (r *Recorder) ShowBackButton(onClick func()) {
	r.mu.Lock()
	r.backVisible = true
	r.backShown++
	r.onBack = onClick
	r.mu.Unlock()
}

func (r *Recorder) HideBackButton() {
	r.mu.Lock()
	r.backVisible = false
	r.onBack = nil
	r.mu.Unlock()
}

func (r *Recorder) SetMainButton(b MainButton, onClick func()) {
	r.mu.Lock()
	r.buttons = append(r.buttons, b)
	r.onMain = onClick
	r.mu.Unlock()
}

func (r *Recorder) Haptic(style HapticStyle) {
	r.mu.Lock()
	r.haptics = append(r.haptics, style)
	r.mu.Unlock()
}

func (r *Recorder) Theme() Theme {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.theme
}

// SetTheme changes what Theme reports.
func (r *Recorder) SetTheme(t Theme) {
	r.mu.Lock()
	r.theme = t
	r.mu.Unlock()
}

func (r *Recorder) InitData() string { return r.initData }

func (r *Recorder) OpenLink(url string) error {
	r.mu.Lock()
	r.links = append(r.links, url)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Toast(kind ToastKind, message string) {
	r.mu.Lock()
	r.toasts = append(r.toasts, Toast{Kind: kind, Message: message})
	r.mu.Unlock()
}

// LastButton returns the most recent main button state.
func (r *Recorder) LastButton() (MainButton, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.buttons) == 0 {
		return MainButton{}, false
	}
	return r.buttons[len(r.buttons)-1], true
}

// Press invokes the last registered main button callback.
func (r *Recorder) Press() {
	r.mu.Lock()
	fn := r.onMain
	r.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// PressBack invokes the back button callback while the button is shown.
func (r *Recorder) PressBack() bool {
	r.mu.Lock()
	fn := r.onBack
	r.mu.Unlock()
	if fn == nil {
		return false
	}
	fn()
	return true
}

func (r *Recorder) BackVisible() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backVisible
}

// BackShown counts how many times the back button was shown.
func (r *Recorder) BackShown() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backShown
}

func (r *Recorder) Haptics() []HapticStyle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]HapticStyle(nil), r.haptics...)
}

func (r *Recorder) Links() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.links...)
}

func (r *Recorder) Toasts() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Toast(nil), r.toasts...)
}
