package models

// ActionKind is the next step offered to a user on the chat page.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionCheck
	ActionJoin
	ActionChecking
	ActionConnectWallet
)

// Тексты главной кнопки
const (
	TextCheck         = "Check"
	TextJoin          = "Join Group"
	TextChecking      = "Checking…"
	TextConnectWallet = "Connect Wallet"
)

func (k ActionKind) Text() string {
	switch k {
	case ActionCheck:
		return TextCheck
	case ActionJoin:
		return TextJoin
	case ActionChecking:
		return TextChecking
	case ActionConnectWallet:
		return TextConnectWallet
	default:
		return ""
	}
}

func (k ActionKind) String() string {
	if k == ActionNone {
		return "none"
	}
	return k.Text()
}

// Action is the derived state of the primary button.
type Action struct {
	Kind ActionKind
	Text string
}

func NewAction(kind ActionKind) Action {
	return Action{Kind: kind, Text: kind.Text()}
}

// Visible is false when there is nothing for the user to do.
func (a Action) Visible() bool {
	return a.Kind != ActionNone
}

// Completions answers whether the user has self-reported a condition as done.
type Completions interface {
	Completed(conditionID int64) bool
}

// CompletionSet is an in-memory Completions.
type CompletionSet map[int64]bool

func (s CompletionSet) Completed(id int64) bool { return s[id] }
