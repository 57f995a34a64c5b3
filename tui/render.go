package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/nathoo/backroom/engine/reduce"
	"github.com/nathoo/backroom/engine/state"
	"github.com/nathoo/backroom/types"
)

// resetMarkdown rebuilds the glamour renderer for the current width and
// drops cached output.
func (m *Model) resetMarkdown() {
	m.rendered = make(map[int64]string)
	width := m.width - 2
	if width < 20 {
		width = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(m.opts.MarkdownStyle),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		m.markdown = nil
		return
	}
	m.markdown = r
}

// refreshViewport re-renders the log at the current width and updates the
// viewport content.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}

	var blocks []string
	blocks = append(blocks, m.renderNotes(0)...)
	for _, msg := range m.engine.Messages {
		blocks = append(blocks, m.renderMessage(msg))
		blocks = append(blocks, m.renderNotes(msg.ID)...)
	}
	if m.rolling != nil {
		blocks = append(blocks, styleDice.Render(fmt.Sprintf("🎲 %s  %d", m.rolling.Type, m.diceFace())))
	}

	m.viewport.SetContent(strings.Join(blocks, "\n\n"))
	m.viewport.GotoBottom()
}

func (m *Model) renderNotes(after int64) []string {
	var out []string
	for _, n := range m.notes {
		if n.afterID != after {
			continue
		}
		text := wordWrap(strings.Join(n.lines, "\n"), m.wrapWidth())
		if n.isError {
			out = append(out, styleError.Render(text))
		} else {
			out = append(out, styleSystem.Render(text))
		}
	}
	return out
}

func (m *Model) wrapWidth() int {
	if m.width < 10 {
		return 10
	}
	return m.width
}

// renderMessage styles one log entry with its check and options.
func (m *Model) renderMessage(msg types.Message) string {
	var body string
	switch {
	case msg.Sender == types.SenderPlayer:
		body = stylePlayerInput.Render(wordWrap("> "+msg.Text, m.wrapWidth()))
	case msg.Sender == types.SenderInit:
		body = styleBanner.Width(m.wrapWidth()).Render(msg.Text)
	case msg.Settlement != nil:
		body = styleSettlement.Render("◆ " + state.SettlementSummary(msg.Settlement))
	case msg.Sender == types.SenderSystem:
		body = styleError.Render(wordWrap(msg.Text, m.wrapWidth()))
	case msg.ID == m.typing:
		runes := []rune(msg.Text)
		n := min(m.revealed, len(runes))
		body = styleNarration.Render(wordWrap(string(runes[:n]), m.wrapWidth()))
		// Checks and options appear once the text is out.
		return body
	default:
		body = m.renderMarkdown(msg)
	}

	parts := []string{body}
	if msg.LogicEvent != nil {
		parts = append(parts, m.renderCheck(msg))
	}
	if len(msg.Options) > 0 {
		parts = append(parts, renderOptions(msg))
	}
	return strings.Join(parts, "\n")
}

func (m *Model) renderMarkdown(msg types.Message) string {
	if out, ok := m.rendered[msg.ID]; ok {
		return out
	}
	out := styleNarration.Render(wordWrap(msg.Text, m.wrapWidth()))
	if m.markdown != nil {
		if md, err := m.markdown.Render(msg.Text); err == nil {
			out = strings.Trim(md, "\n")
		}
	}
	m.rendered[msg.ID] = out
	return out
}

func (m *Model) renderCheck(msg types.Message) string {
	ev := msg.LogicEvent
	lines := []string{styleCheckTitle.Render(fmt.Sprintf("Check: %s (%s)", ev.Name, ev.DieType))}

	var hit *types.Outcome
	if msg.LogicRollResult != nil {
		if o, ok := reduce.FindOutcome(ev, *msg.LogicRollResult); ok {
			hit = &o
		}
	}
	for _, o := range ev.Outcomes {
		line := fmt.Sprintf("%3d-%-3d %s", o.Range[0], o.Range[1], o.Content)
		if hit != nil && o.Range == hit.Range {
			line = styleOptionChosen.Render(line)
		} else if hit != nil {
			line = styleFaint.Render(line)
		}
		lines = append(lines, line)
	}

	switch {
	case msg.LogicRollResult != nil:
		lines = append(lines, styleDice.Render(fmt.Sprintf("Rolled %d", *msg.LogicRollResult)))
	case msg.LogicEventConfirmed != nil && *msg.LogicEventConfirmed:
		lines = append(lines, styleFaint.Render("Rolling..."))
	default:
		lines = append(lines, styleHint.Render("Press Enter or type 'roll' to roll."))
	}
	return styleCheck.Render(strings.Join(lines, "\n"))
}

func renderOptions(msg types.Message) string {
	lines := make([]string, len(msg.Options))
	for i, opt := range msg.Options {
		line := fmt.Sprintf("  %d. %s", i+1, opt)
		switch {
		case msg.SelectedOption == nil:
			line = styleOption.Render(line)
		case *msg.SelectedOption == opt:
			line = styleOptionChosen.Render(fmt.Sprintf("▸ %d. %s", i+1, opt))
		default:
			line = styleFaint.Render(line)
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

// renderFade replaces the log while the level changes.
func (m Model) renderFade() string {
	title := ""
	if m.fade == fadeReveal {
		title = styleBanner.Render(strings.ToUpper(m.fadeLevel))
	} else {
		title = styleFaint.Render("...")
	}
	return lipgloss.Place(m.viewport.Width, m.viewport.Height, lipgloss.Center, lipgloss.Center, title)
}

// wordWrap wraps text to fit within the given width, breaking at word
// boundaries. Existing newlines are kept.
func wordWrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	paras := strings.Split(text, "\n")
	for i, p := range paras {
		paras[i] = wrapLine(p, width)
	}
	return strings.Join(paras, "\n")
}

func wrapLine(text string, width int) string {
	if lipgloss.Width(text) <= width {
		return text
	}

	var result strings.Builder
	words := strings.Fields(text)
	lineLen := 0

	for i, word := range words {
		wLen := lipgloss.Width(word)

		if i == 0 {
			result.WriteString(word)
			lineLen = wLen
			continue
		}

		if lineLen+1+wLen > width {
			result.WriteString("\n")
			result.WriteString(word)
			lineLen = wLen
		} else {
			result.WriteString(" ")
			result.WriteString(word)
			lineLen += 1 + wLen
		}
	}

	return result.String()
}
