package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"gemchat/internal/chat"
	"gemchat/internal/clipboard"
	"gemchat/internal/config"
	"gemchat/internal/gemini"
	"gemchat/internal/store"
)

type focusArea int

const (
	focusComposer focusArea = iota
	focusSessions
	focusTranscript
)

type Model struct {
	cfg  config.AppConfig
	st   *store.Store
	orch *chat.Orchestrator

	list     list.Model
	viewport viewport.Model
	composer textinput.Model
	apiKey   textinput.Model
	search   textinput.Model
	help     help.Model
	spinner  spinner.Model
	keys     keyMap

	width  int
	height int

	setupMode   bool
	focus       focusArea
	searchMode  bool
	searchQuery string
	streaming   bool
	theme       string
	attachments []chat.ChatFile

	rendered    map[string]string
	renderedKey string
	matchLines  []int
	matchCount  int
	matchIndex  int

	status  string
	chatErr *chat.ChatError
}

type sendStartedMsg struct {
	updates <-chan chat.Update
	err     error
}
type streamUpdateMsg struct {
	update  chat.Update
	updates <-chan chat.Update
}
type streamClosedMsg struct{}
type renderMsg struct {
	cacheKey string
	rendered string
}
type copyMsg struct{ err error }

type sessionItem struct {
	s      chat.ChatSession
	active bool
}

func (i sessionItem) Title() string {
	title := i.s.Title
	if i.active {
		title = "● " + title
	}
	return title
}

func (i sessionItem) Description() string {
	return fmt.Sprintf("%s | %d msgs", i.s.UpdatedAt.Format("2006-01-02 15:04"), len(i.s.Messages))
}

func (i sessionItem) FilterValue() string {
	return strings.ToLower(i.s.Title)
}

func NewModel(cfg config.AppConfig, st *store.Store, orch *chat.Orchestrator, theme string, hasCredential bool) Model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 32, 20)
	l.Title = "Chats"
	l.SetShowFilter(false)
	l.SetFilteringEnabled(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()

	vp := viewport.New(60, 20)

	composer := textinput.New()
	composer.Placeholder = "Try something extraordinary!"
	composer.Prompt = "> "
	composer.CharLimit = 0
	composer.Focus()

	apiKey := textinput.New()
	apiKey.Placeholder = "Enter your Gemini API key"
	apiKey.Prompt = "key: "
	apiKey.EchoMode = textinput.EchoPassword
	apiKey.Focus()

	search := textinput.New()
	search.Placeholder = "Search transcript..."
	search.Prompt = "/ "
	search.CharLimit = 256

	h := help.New()
	h.ShowAll = false

	sp := spinner.New()
	sp.Spinner = spinner.Points

	m := Model{
		cfg:      cfg,
		st:       st,
		orch:     orch,
		list:     l,
		viewport: vp,
		composer: composer,
		apiKey:   apiKey,
		search:   search,
		help:     h,
		spinner:  sp,
		keys:     defaultKeys(),

		setupMode:  !hasCredential,
		theme:      theme,
		rendered:   make(map[string]string),
		matchIndex: -1,
	}
	m.applySessions()
	return m
}

func (m Model) Init() tea.Cmd {
	if m.setupMode {
		return textinput.Blink
	}
	return tea.Batch(textinput.Blink, m.renderCurrent(true))
}

func (m Model) sendCmd(content string, files []chat.ChatFile) tea.Cmd {
	return func() tea.Msg {
		updates, err := m.orch.Send(context.Background(), content, files)
		return sendStartedMsg{updates: updates, err: err}
	}
}

func waitForUpdate(updates <-chan chat.Update) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-updates
		if !ok {
			return streamClosedMsg{}
		}
		return streamUpdateMsg{update: update, updates: updates}
	}
}

func (m Model) copyCmd() tea.Cmd {
	messages := m.orch.Messages()
	var last string
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == chat.RoleAssistant && !messages[i].IsStreaming {
			last = messages[i].Content
			break
		}
	}
	if last == "" {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return copyMsg{err: clipboard.CopyText(ctx, last)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		cmds = append(cmds, m.renderCurrent(false))

	case sendStartedMsg:
		if msg.err != nil {
			m.streaming = false
			if errors.Is(msg.err, chat.ErrSendInFlight) {
				m.status = "Still streaming the previous reply"
			} else {
				var chatErr *chat.ChatError
				if errors.As(msg.err, &chatErr) {
					m.chatErr = chatErr
				} else {
					m.chatErr = chat.NewChatError(chat.ErrorAPI, msg.err.Error())
				}
			}
			break
		}
		m.attachments = nil
		m.composer.Reset()
		m.applySessions()
		if msg.updates == nil {
			// Empty send, or a first send that only had to create a session.
			cmds = append(cmds, m.renderCurrent(true))
			break
		}
		m.streaming = true
		m.chatErr = nil
		m.setViewportStreaming()
		cmds = append(cmds, m.spinner.Tick, waitForUpdate(msg.updates))

	case streamUpdateMsg:
		m.setViewportStreaming()
		if msg.update.Done {
			m.streaming = false
			m.chatErr = msg.update.Err
			m.applySessions()
			cmds = append(cmds, m.renderCurrent(true))
		}
		cmds = append(cmds, waitForUpdate(msg.updates))

	case streamClosedMsg:
		m.streaming = false

	case renderMsg:
		m.rendered[msg.cacheKey] = msg.rendered
		// A stale render (theme or width changed underneath it) is cached
		// but not shown.
		if _, key := m.transcriptMarkdown(); key == msg.cacheKey {
			m.setViewportFromRendered(msg.cacheKey, msg.rendered, true)
		}

	case copyMsg:
		if msg.err != nil {
			if errors.Is(msg.err, clipboard.ErrToolNotFound) {
				m.status = "Could not copy: clipboard tool not found"
			} else {
				m.status = "Could not copy: " + msg.err.Error()
			}
		} else {
			m.status = "Copied last reply to clipboard"
		}

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.streaming {
		var spin tea.Cmd
		m.spinner, spin = m.spinner.Update(msg)
		cmds = append(cmds, spin)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.setupMode {
		return m.handleSetupKey(msg)
	}
	if m.searchMode {
		return m.handleSearchKey(msg)
	}

	var cmds []tea.Cmd

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Tab):
		m.cycleFocus()
		return m, nil

	case key.Matches(msg, m.keys.NewChat):
		if err := m.orch.NewSession(); err != nil {
			m.status = "Could not create chat: " + err.Error()
		}
		m.chatErr = nil
		m.attachments = nil
		m.applySessions()
		return m, m.renderCurrent(true)

	case key.Matches(msg, m.keys.Theme):
		m.theme = nextTheme(m.theme)
		if err := m.st.SaveTheme(m.theme); err != nil {
			m.status = "Could not save theme: " + err.Error()
		} else {
			m.status = "Theme: " + m.theme
		}
		return m, m.renderCurrent(false)

	case key.Matches(msg, m.keys.Model):
		m.orch.SetModel(nextModel(m.orch.Model()))
		m.status = "Model: " + m.orch.Model()
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		return m, m.copyCmd()

	case key.Matches(msg, m.keys.ClearMemories):
		if err := m.orch.ClearMemories(); err != nil {
			m.status = "Could not clear memories: " + err.Error()
		} else {
			m.status = "Memories cleared"
		}
		return m, nil

	case key.Matches(msg, m.keys.Logout):
		return m.logout()

	case key.Matches(msg, m.keys.Search):
		if m.focus != focusComposer {
			m.searchMode = true
			m.search.SetValue(m.searchQuery)
			m.search.CursorEnd()
			m.search.Focus()
			return m, textinput.Blink
		}
	}

	switch m.focus {
	case focusComposer:
		if msg.Type == tea.KeyEnter {
			return m.submitComposer()
		}
		var cmd tea.Cmd
		m.composer, cmd = m.composer.Update(msg)
		cmds = append(cmds, cmd)

	case focusSessions:
		switch msg.String() {
		case "enter":
			if item, ok := m.list.SelectedItem().(sessionItem); ok {
				if m.streaming {
					m.status = "Cannot switch chats while streaming"
					break
				}
				m.orch.Switch(item.s.ID)
				m.chatErr = nil
				m.applySessions()
				cmds = append(cmds, m.renderCurrent(true))
			}
		case "x", "ctrl+x", "delete":
			if item, ok := m.list.SelectedItem().(sessionItem); ok {
				if m.streaming {
					m.status = "Cannot delete chats while streaming"
					break
				}
				if err := m.orch.Delete(item.s.ID); err != nil {
					m.status = "Could not delete chat: " + err.Error()
				}
				m.applySessions()
				cmds = append(cmds, m.renderCurrent(true))
			}
		default:
			var cmd tea.Cmd
			m.list, cmd = m.list.Update(msg)
			cmds = append(cmds, cmd)
		}

	case focusTranscript:
		switch msg.String() {
		case "up", "k":
			m.viewport.LineUp(1)
		case "down", "j":
			m.viewport.LineDown(1)
		case "pgup", "b":
			m.viewport.HalfViewUp()
		case "pgdown", "f":
			m.viewport.HalfViewDown()
		case "n":
			m.jumpToMatch(1)
		case "N", "p":
			m.jumpToMatch(-1)
		case "g":
			m.viewport.GotoTop()
		case "G":
			m.viewport.GotoBottom()
		}
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleSetupKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "enter":
		apiKey := strings.TrimSpace(m.apiKey.Value())
		if apiKey == "" {
			m.chatErr = chat.NewChatError(chat.ErrorValidation, "Please enter a valid API key")
			return m, nil
		}
		if err := m.st.SaveAPIKey(apiKey); err != nil {
			m.chatErr = chat.NewChatError(chat.ErrorAPI, err.Error())
			return m, nil
		}
		m.orch.SetGenerator(gemini.NewClient(apiKey))
		m.setupMode = false
		m.chatErr = nil
		m.apiKey.Reset()
		m.composer.Focus()
		m.status = "Connected. Ready to chat!"
		m.applySessions()
		return m, m.renderCurrent(true)
	}

	var cmd tea.Cmd
	m.apiKey, cmd = m.apiKey.Update(msg)
	return m, cmd
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.searchMode = false
		m.searchQuery = ""
		m.search.SetValue("")
		m.search.Blur()
		m.refreshViewportFromCache()
		return m, nil
	case "enter":
		m.searchMode = false
		m.search.Blur()
		m.searchQuery = strings.TrimSpace(m.search.Value())
		m.refreshViewportFromCache()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m Model) submitComposer() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.composer.Value())

	if path, ok := strings.CutPrefix(value, "/attach "); ok {
		file, err := chat.LoadAttachment(strings.TrimSpace(path))
		if err != nil {
			var chatErr *chat.ChatError
			if errors.As(err, &chatErr) {
				m.chatErr = chatErr
			} else {
				m.chatErr = chat.NewChatError(chat.ErrorFile, err.Error())
			}
			return m, nil
		}
		m.attachments = append(m.attachments, file)
		m.chatErr = nil
		m.composer.Reset()
		m.status = fmt.Sprintf("Attached %s (%s)", file.Name, formatSize(file.Size))
		return m, nil
	}

	if m.streaming {
		m.status = "Still streaming the previous reply"
		return m, nil
	}
	return m, m.sendCmd(value, m.attachments)
}

func (m Model) logout() (tea.Model, tea.Cmd) {
	if err := m.st.DeleteAPIKey(); err != nil {
		m.status = "Logout failed: " + err.Error()
		return m, nil
	}
	if err := m.orch.ClearAll(); err != nil {
		m.status = "Logout failed: " + err.Error()
		return m, nil
	}
	m.orch.SetGenerator(nil)
	m.setupMode = true
	m.chatErr = nil
	m.attachments = nil
	m.searchQuery = ""
	m.status = "Logged out. Your API key has been removed from this device."
	m.apiKey.Focus()
	m.applySessions()
	return m, textinput.Blink
}

func (m *Model) cycleFocus() {
	switch m.focus {
	case focusComposer:
		m.focus = focusSessions
		m.composer.Blur()
	case focusSessions:
		m.focus = focusTranscript
	default:
		m.focus = focusComposer
		m.composer.Focus()
	}
}

// applySessions rebuilds the sessions list and keeps the active session
// selected.
func (m *Model) applySessions() {
	sessions := m.orch.Sessions()
	currentID := m.orch.CurrentID()

	items := make([]list.Item, 0, len(sessions))
	selectIdx := 0
	for idx, s := range sessions {
		if s.ID == currentID {
			selectIdx = idx
		}
		items = append(items, sessionItem{s: s, active: s.ID == currentID})
	}
	m.list.SetItems(items)
	if len(items) > 0 {
		m.list.Select(selectIdx)
	}
}

func nextTheme(theme string) string {
	switch theme {
	case store.ThemeLight:
		return store.ThemeDark
	case store.ThemeDark:
		return store.ThemeSystem
	default:
		return store.ThemeLight
	}
}

func nextModel(current string) string {
	for i, name := range gemini.Models {
		if name == current {
			return gemini.Models[(i+1)%len(gemini.Models)]
		}
	}
	return gemini.Models[0]
}
