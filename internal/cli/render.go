package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	apperrors "access-tool/internal/common/errors"
	"access-tool/internal/common/validation"
	chatmodels "access-tool/internal/features/chat/models"
	condition "access-tool/internal/features/condition/models"
	"access-tool/internal/features/condition/registry"
	"access-tool/internal/features/editor/state"
	walletmodels "access-tool/internal/features/wallet/models"
)

var (
	colorAccent  = lipgloss.AdaptiveColor{Light: "#2481cc", Dark: "#64b5ef"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "240", Dark: "245"}
	colorSuccess = lipgloss.Color("#2e9e5b")
	colorDanger  = lipgloss.Color("#d16d7a")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	successStyle = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(colorDanger).Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	groupStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1)
	badgeStyle = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("#ffffff"))

	markMet     = successStyle.Render("✓")
	markMissing = errorStyle.Render("✗")
	markOff     = mutedStyle.Render("–")
)

const markdownWidth = 80

var (
	mdMu        sync.Mutex
	mdRenderers = map[string]*glamour.TermRenderer{}
)

// renderMarkdown renders chat descriptions. Renderers are cached per style; an unknown
// style or a render failure falls back to the source text.
func renderMarkdown(md, style string) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	if style == "" {
		style = "dark"
	}

	mdMu.Lock()
	r := mdRenderers[style]
	mdMu.Unlock()

	if r == nil {
		// WithAutoStyle опрашивает терминал и может зависнуть
		rr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(markdownWidth),
		)
		if err != nil {
			return md
		}
		mdMu.Lock()
		if existing := mdRenderers[style]; existing != nil {
			r = existing
		} else {
			mdRenderers[style] = rr
			r = rr
		}
		mdMu.Unlock()
	}

	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

func badge(text string, color lipgloss.TerminalColor) string {
	return badgeStyle.Background(color).Render(text)
}

// field draws a label column padded to 16 runes; longer labels push the value right.
func field(label, value string) string {
	return labelStyle.Render(fmt.Sprintf("%-16s", label)) + " " + value
}

func userLabel(id int64, username string) string {
	if username != "" {
		return fmt.Sprintf("@%s (%d)", username, id)
	}
	return fmt.Sprintf("%d", id)
}

// renderChatList draws one line per chat: title, slug, members and condition count.
func renderChatList(items []chatmodels.ChatListItem) string {
	if len(items) == 0 {
		return mutedStyle.Render("No chats")
	}
	var b strings.Builder
	for _, item := range items {
		line := titleStyle.Render(item.Title) + " " + mutedStyle.Render(item.Slug)
		meta := []string{
			fmt.Sprintf("%d members", item.MembersCount),
			fmt.Sprintf("%d conditions", item.RulesCount),
		}
		if !item.IsEnabled {
			meta = append(meta, "disabled")
		}
		if item.InsufficientPrivileges {
			meta = append(meta, "bot is not admin")
		}
		b.WriteString(line + "\n  " + mutedStyle.Render(strings.Join(meta, " · ")) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderChatHeader draws the chat card. The description is rendered as Markdown.
func renderChatHeader(chat chatmodels.Chat, markdownStyle string) string {
	var lines []string
	title := titleStyle.Render(chat.Title)
	if chat.IsEligible {
		title += " " + badge("eligible", colorSuccess)
	}
	if chat.InsufficientPrivileges {
		title += " " + badge("bot is not admin", colorDanger)
	}
	lines = append(lines, title)

	if chat.Username != "" {
		lines = append(lines, field("Username", "@"+chat.Username))
	}
	lines = append(lines,
		field("Slug", chat.Slug),
		field("Members", fmt.Sprintf("%d", chat.MembersCount)),
		field("Enabled", yesNo(chat.IsEnabled)),
		field("Full control", yesNo(chat.IsFullControl)),
	)
	if chat.IsForum {
		lines = append(lines, field("Forum", "yes"))
	}
	if desc := renderMarkdown(chat.Description, markdownStyle); desc != "" {
		lines = append(lines, "", desc)
	}
	return strings.Join(lines, "\n")
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

// renderChecklist draws the groups of a chat. Every group is an OR-set; the user needs
// one met condition per group. Admin views show ids and disabled conditions.
func renderChecklist(reg *registry.Registry, groups []chatmodels.Group, view chatmodels.View) string {
	if len(groups) == 0 {
		return mutedStyle.Render("No conditions: everyone may join")
	}

	rendered := make([]string, 0, len(groups))
	for i, g := range groups {
		var b strings.Builder
		header := fmt.Sprintf("Group %d", i+1)
		if view == chatmodels.ViewAdmin {
			header += mutedStyle.Render(fmt.Sprintf(" #%d", g.ID))
		}
		b.WriteString(titleStyle.Render(header))
		if len(g.Items) > 1 {
			b.WriteString(mutedStyle.Render("  any of"))
		}
		if len(g.Items) == 0 {
			b.WriteString("\n" + mutedStyle.Render("empty"))
		}
		for _, c := range g.Items {
			if view == chatmodels.ViewUser && !c.IsEnabled {
				continue
			}
			b.WriteString("\n" + renderCondition(reg, c, view))
		}
		rendered = append(rendered, groupStyle.Render(b.String()))
	}
	return strings.Join(rendered, "\n")
}

func renderCondition(reg *registry.Registry, c condition.Condition, view chatmodels.View) string {
	mark := markMissing
	switch {
	case !c.IsEnabled:
		mark = markOff
	case c.IsEligible:
		mark = markMet
	}

	line := mark + " " + conditionTitle(reg, c)
	if summary := conditionSummary(reg, c); summary != "" {
		line += mutedStyle.Render(" · " + summary)
	}
	if c.Actual != nil {
		line += mutedStyle.Render(fmt.Sprintf(" · you have %g", *c.Actual))
	}
	if view == chatmodels.ViewAdmin {
		line += mutedStyle.Render(fmt.Sprintf(" #%d", c.ID))
	}
	return line
}

func conditionTitle(reg *registry.Registry, c condition.Condition) string {
	label := string(c.Type)
	if entry, ok := reg.Lookup(c.Type); ok {
		label = entry.Label
	}
	if c.Title != "" {
		return label + ": " + c.Title
	}
	return label
}

// conditionSummary lists the non-empty form values of the condition.
func conditionSummary(reg *registry.Registry, c condition.Condition) string {
	entry, ok := reg.Lookup(c.Type)
	if !ok {
		return ""
	}
	fields, err := c.Fields()
	if err != nil {
		return ""
	}
	var parts []string
	for _, f := range entry.Form {
		if f.Kind == registry.KindSecret || f.Kind == registry.KindAddress {
			continue
		}
		v, ok := fields[f.Name]
		if !ok || isEmptyValue(v) {
			continue
		}
		if f.Kind == registry.KindUserList {
			if users, ok := v.([]interface{}); ok {
				parts = append(parts, fmt.Sprintf("%d users", len(users)))
			}
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", strings.ToLower(f.Label), displayValue(f, v)))
	}
	return strings.Join(parts, " · ")
}

// displayValue formats a form value for reading: TON amounts with their unit and
// addresses in the user-friendly form.
func displayValue(f registry.FormField, v interface{}) string {
	switch f.Kind {
	case registry.KindSecret:
		return "••••••"
	case registry.KindTON:
		if amount, ok := toFloat(v); ok {
			return validation.FormatTON(amount)
		}
	case registry.KindAddress:
		if s, ok := v.(string); ok {
			return validation.FriendlyAddress(s)
		}
	}
	return fmt.Sprintf("%v", v)
}

func toFloat(v interface{}) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}

func isEmptyValue(v interface{}) bool {
	switch v := v.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []interface{}:
		return len(v) == 0
	}
	return false
}

// renderForm draws the editor form of a draft with its current values and, when the
// draft cannot be saved, the reason.
func renderForm(entry registry.Entry, draft state.Draft) string {
	lines := []string{titleStyle.Render(entry.Label)}

	fields, _ := draft.Condition.Fields()
	for _, f := range entry.Form {
		value := "—"
		if v, ok := fields[f.Name]; ok && !isEmptyValue(v) {
			value = displayValue(f, v)
		}
		label := f.Label
		if f.Required {
			label += "*"
		}
		lines = append(lines, field(label, value))
	}
	lines = append(lines, field("Enabled", yesNo(draft.Condition.IsEnabled)))

	if p := draft.Prefetched; p != nil {
		meta := p.Name
		if p.Symbol != "" {
			meta += " (" + p.Symbol + ")"
		}
		lines = append(lines, field("Resolved", meta))
		if p.Address != "" {
			lines = append(lines, field("", mutedStyle.Render(validation.FriendlyAddress(p.Address))))
		}
	}
	if len(draft.Categories) > 0 {
		lines = append(lines, field("Categories", strings.Join(condition.Values(draft.Categories), ", ")))
	}
	if err := entry.Validate(draft.Condition, draft.Categories); err != nil {
		lines = append(lines, errorStyle.Render(err.Error()))
	}
	return strings.Join(lines, "\n")
}

// renderTypes lists the condition types and their form fields.
func renderTypes(reg *registry.Registry) string {
	var b strings.Builder
	for _, e := range reg.Entries() {
		names := make([]string, 0, len(e.Form))
		for _, f := range e.Form {
			name := f.Name
			if f.Required {
				name += "*"
			}
			names = append(names, name)
		}
		sort.Strings(names)
		b.WriteString(titleStyle.Render(e.Label) + " " + mutedStyle.Render(string(e.Type)+" /"+e.Path) + "\n")
		if len(names) > 0 {
			b.WriteString("  " + strings.Join(names, ", ") + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderUser(u walletmodels.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = userLabel(u.ID, u.Username)
	}
	title := titleStyle.Render(name)
	if u.IsPremium {
		title += " " + badge("premium", colorAccent)
	}
	lines := []string{title, field("ID", fmt.Sprintf("%d", u.ID))}
	if u.Username != "" {
		lines = append(lines, field("Username", "@"+u.Username))
	}
	if len(u.Wallets) == 0 {
		lines = append(lines, field("Wallets", mutedStyle.Render("none")))
	}
	for i, w := range u.Wallets {
		label := ""
		if i == 0 {
			label = "Wallets"
		}
		lines = append(lines, field(label, validation.FriendlyAddress(w)))
	}
	return strings.Join(lines, "\n")
}

// ErrorText is the one-line error shown when a command fails.
func ErrorText(err error) string {
	msg := apperrors.UserMessage(err)
	if appErr, ok := apperrors.AsAppError(err); ok {
		if fields, ok := appErr.Details["fields"].([]string); ok && len(fields) > 0 {
			msg += mutedStyle.Render(" (" + strings.Join(fields, ", ") + ")")
		}
	}
	return errorStyle.Render("Error: ") + msg
}
