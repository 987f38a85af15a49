package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"gemchat/internal/highlight"
)

const sessionPaneWidth = 32

var (
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("235")).
			Background(lipgloss.Color("114")).
			Padding(0, 1)
	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")).
			Bold(true)
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240"))
	focusedPanelStyle = panelStyle.
				BorderForeground(lipgloss.Color("114"))
	setupTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("114")).
			Bold(true)
	matchStyle = lipgloss.NewStyle().
			Reverse(true).
			Bold(true)
)

func (m *Model) resize() {
	if m.width <= 0 || m.height <= 0 {
		return
	}

	// Status line, composer, notice line, help line, panel borders.
	bodyHeight := m.height - 6
	if bodyHeight < 4 {
		bodyHeight = 4
	}

	m.list.SetSize(sessionPaneWidth, bodyHeight)
	m.viewport.Width = max(m.width-sessionPaneWidth-4, 20)
	m.viewport.Height = bodyHeight
	m.composer.Width = max(m.width-6, 20)
	m.search.Width = max(m.width-6, 20)
	m.apiKey.Width = max(m.width/2, 30)
	m.help.Width = m.width
}

func (m *Model) wrapWidth() int {
	w := m.viewport.Width - 2
	if w < 20 {
		w = 20
	}
	return w
}

// transcriptMarkdown builds the current transcript and a cache key that
// changes whenever a re-render would produce different output.
func (m *Model) transcriptMarkdown() (string, string) {
	md := BuildTranscriptMarkdown(m.orch.Messages())
	key := fmt.Sprintf("%s|%d|%s|%d", m.orch.CurrentID(), m.wrapWidth(), m.theme, len(md))
	return md, key
}

// renderCurrent re-renders the transcript through glamour, serving from the
// cache when nothing changed.
func (m *Model) renderCurrent(gotoBottom bool) tea.Cmd {
	md, key := m.transcriptMarkdown()
	if cached, ok := m.rendered[key]; ok {
		m.setViewportFromRendered(key, cached, gotoBottom)
		return nil
	}

	theme, wrap := m.theme, m.wrapWidth()
	return func() tea.Msg {
		return renderMsg{cacheKey: key, rendered: renderMarkdown(md, theme, wrap)}
	}
}

// setViewportStreaming shows the raw markdown while chunks arrive. Glamour
// is too slow to run per chunk; the styled render happens once at the end.
func (m *Model) setViewportStreaming() {
	m.viewport.SetContent(BuildTranscriptMarkdown(m.orch.Messages()))
	m.viewport.GotoBottom()
}

func (m *Model) setViewportFromRendered(key, rendered string, gotoBottom bool) {
	m.renderedKey = key

	if m.searchQuery == "" {
		m.viewport.SetContent(rendered)
		m.matchLines = nil
		m.matchCount = 0
		m.matchIndex = -1
		if gotoBottom {
			m.viewport.GotoBottom()
		}
		return
	}

	res := highlight.Apply(rendered, m.searchQuery, func(s string) string { return matchStyle.Render(s) })
	m.viewport.SetContent(res.Text)
	m.matchLines = res.LineIndex
	m.matchCount = res.Count
	m.matchIndex = -1
	if len(m.matchLines) > 0 {
		m.jumpToMatch(1)
	}
}

func (m *Model) refreshViewportFromCache() {
	if rendered, ok := m.rendered[m.renderedKey]; ok {
		m.setViewportFromRendered(m.renderedKey, rendered, m.searchQuery == "")
	}
}

func (m *Model) jumpToMatch(dir int) {
	if len(m.matchLines) == 0 {
		return
	}
	m.matchIndex = (m.matchIndex + dir + len(m.matchLines)) % len(m.matchLines)
	m.viewport.SetYOffset(m.matchLines[m.matchIndex] - m.viewport.Height/2)
}

func (m Model) View() string {
	if m.width == 0 {
		return "Starting gemchat..."
	}
	if m.setupMode {
		return m.viewSetup()
	}
	return m.viewChat()
}

func (m Model) viewSetup() string {
	var b strings.Builder
	b.WriteString(setupTitleStyle.Render("Welcome to gemchat") + "\n\n")
	b.WriteString("Chat with Gemini from your terminal.\n")
	b.WriteString("Paste a Google AI Studio API key to get started; it is\n")
	b.WriteString("stored locally and never leaves this machine.\n\n")
	b.WriteString(m.apiKey.View() + "\n\n")
	if m.chatErr != nil {
		b.WriteString(errorStyle.Render(m.chatErr.Message) + "\n\n")
	}
	b.WriteString(noticeStyle.Render("data dir: "+m.cfg.DataDir) + "\n")
	b.WriteString(noticeStyle.Render("enter: connect | ctrl+c: quit"))

	card := panelStyle.Padding(1, 3).Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, card)
}

func (m Model) viewChat() string {
	left := panelStyle
	right := panelStyle
	switch m.focus {
	case focusSessions:
		left = focusedPanelStyle
	case focusTranscript:
		right = focusedPanelStyle
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		left.Render(m.list.View()),
		right.Render(m.viewport.View()),
	)

	var bottom []string
	bottom = append(bottom, m.statusLine())
	bottom = append(bottom, body)
	bottom = append(bottom, m.noticeLine())
	bottom = append(bottom, m.inputLine())
	bottom = append(bottom, m.help.View(m.keys))
	return strings.Join(bottom, "\n")
}

func (m Model) statusLine() string {
	parts := []string{
		"gemchat",
		m.orch.Model(),
		fmt.Sprintf("%d chats", len(m.orch.Sessions())),
		"theme: " + m.theme,
	}
	if m.streaming {
		parts = append(parts, m.spinner.View()+" thinking")
	}
	line := statusStyle.Render(strings.Join(parts, " | "))
	return ansi.Truncate(line, m.width, "…")
}

func (m Model) noticeLine() string {
	switch {
	case m.chatErr != nil:
		return ansi.Truncate(errorStyle.Render(m.chatErr.Type+": "+m.chatErr.Message), m.width, "…")
	case m.searchQuery != "":
		if m.matchCount == 0 {
			return noticeStyle.Render(fmt.Sprintf("no matches for %q (esc in search to clear)", m.searchQuery))
		}
		return noticeStyle.Render(fmt.Sprintf("%d matches for %q (n/N to jump)", m.matchCount, m.searchQuery))
	case len(m.attachments) > 0:
		names := make([]string, 0, len(m.attachments))
		for _, f := range m.attachments {
			names = append(names, f.Name)
		}
		return ansi.Truncate(noticeStyle.Render("staged: "+strings.Join(names, ", ")), m.width, "…")
	case m.status != "":
		return ansi.Truncate(noticeStyle.Render(m.status), m.width, "…")
	}
	return ""
}

func (m Model) inputLine() string {
	if m.searchMode {
		return m.search.View()
	}
	return m.composer.View()
}
