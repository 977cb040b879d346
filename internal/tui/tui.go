package tui

import (
	"errors"
	"fmt"
	"strings"

	"codeberg.org/docsuite/server/internal/config"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// lines taken by the header, presence bar, input box and help
const chromeHeight = 9

// creates the terminal client for one document
func NewApp(flags config.Flags) (*Model, error) {
	if flags.DocumentID == "" {
		return nil, errors.New("a document id is required (-document or DOCSUITE_DOCUMENT)")
	}

	if flags.Token == "" {
		return nil, errors.New("a token is required (-token or DOCSUITE_TOKEN)")
	}

	ws, err := NewWSClient(flags.ServerURL, flags.DocumentID, flags.Token)
	if err != nil {
		return nil, err
	}

	rest, err := NewRESTClient(flags.ServerURL, flags.Token)
	if err != nil {
		return nil, err
	}

	ti := textinput.New()
	ti.Placeholder = "chat, or /help for commands"
	ti.Focus()
	ti.CharLimit = 0
	ti.Width = 80
	ti.Prompt = "> "
	ti.PromptStyle = promptStyle
	ti.TextStyle = lipgloss.NewStyle().Foreground(colorWhite)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = infoStyle

	return &Model{
		state:      StateConnecting,
		documentID: flags.DocumentID,
		input:      ti,
		spinner:    sp,
		session:    NewSessionView(flags.DocumentID),
		ws:         ws,
		rest:       rest,
	}, nil
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.ws.ConnectCmd())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.ws.Close()
			return m, tea.Quit

		case "enter":
			cmd := m.submit(m.input.Value())
			m.input.SetValue("")
			m.refresh()

			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(10, msg.Width-8)
		m.resize()

	case spinner.TickMsg:
		if m.state != StateConnecting {
			return m, nil
		}

		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd

	case WSConnectedMsg:
		m.state = StateConnected
		m.err = nil

		return m, m.ws.WaitForEvent()

	case WSConnectErrorMsg:
		m.state = StateDisconnected
		m.err = msg.err
		m.session.Note("could not join the live session, loading the saved thread")
		m.refresh()

		return m, m.rest.CommentsCmd(m.documentID)

	case WSEventMsg:
		if err := m.session.Apply(msg.event); err != nil {
			m.session.Note("error: %v", err)
		}

		m.refresh()

		return m, m.ws.WaitForEvent()

	case WSClosedMsg:
		m.state = StateDisconnected
		m.session.Note("disconnected")
		m.refresh()

		return m, nil

	case SessionsMsg:
		m.session.Note("%d live session(s)", len(msg.sessions))

		for _, s := range msg.sessions {
			locked := ""
			if s.LockedBy != "" {
				locked = ", locked by " + s.LockedBy
			}

			m.session.Note("  %s: %d participant(s)%s", s.DocumentID, s.Participants, locked)
		}

		m.refresh()

		return m, nil

	case CommentsMsg:
		m.session.Comments = msg.comments
		m.session.Note("loaded %d comment(s) from %s", len(msg.comments), msg.source)
		m.refresh()

		return m, nil

	case ErrorMsg:
		m.session.Note("error: %v", msg.err)
		m.refresh()

		return m, nil
	}

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) View() string {
	if !m.ready {
		return "\n  starting...\n"
	}

	var b strings.Builder

	b.WriteString(m.headerView())
	b.WriteString("\n")
	b.WriteString(m.presenceView())
	b.WriteString("\n")
	b.WriteString(borderStyle.Width(max(0, m.width-2)).Render(m.viewport.View()))
	b.WriteString("\n")
	b.WriteString(borderStyle.Width(max(0, m.width-2)).Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("[Enter: send] [/help: commands] [PgUp/PgDn: scroll] [Esc/Ctrl+C: quit]"))

	return b.String()
}

// sends an input line or runs it locally
func (m *Model) submit(line string) tea.Cmd {
	cmd, err := parseInput(line)
	if err != nil {
		if !errors.Is(err, errEmptyInput) {
			m.session.Note("%v", err)
		}

		return nil
	}

	switch cmd.Local {
	case localQuit:
		m.ws.Close()
		return tea.Quit

	case localSessions:
		return m.rest.ListSessionsCmd()

	case localHelp:
		m.session.Note("%s", helpText)
		return nil
	}

	if _, err := m.ws.Send(cmd.Type, cmd.Payload); err != nil {
		m.session.Note("error: %v", err)
	}

	return nil
}

func (m *Model) resize() {
	bodyHeight := max(3, m.height-chromeHeight)

	if !m.ready {
		m.viewport = viewport.New(max(10, m.width-4), bodyHeight)
		m.ready = true
	} else {
		m.viewport.Width = max(10, m.width-4)
		m.viewport.Height = bodyHeight
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(max(20, m.width-8)),
	)
	if err == nil {
		m.glamourRenderer = renderer
	}

	m.refresh()
}

// re-renders the scrollable body, following the bottom unless the user scrolled up
func (m *Model) refresh() {
	if !m.ready {
		return
	}

	atBottom := m.viewport.AtBottom()

	m.viewport.SetContent(m.bodyView())

	if atBottom {
		m.viewport.GotoBottom()
	}
}

func (m *Model) headerView() string {
	var status string

	switch m.state {
	case StateConnecting:
		status = m.spinner.View() + infoStyle.Render(" connecting")
	case StateConnected:
		status = onlineStyle.Render("● live")
	case StateDisconnected:
		status = offlineStyle.Render("● offline")
	}

	header := titleStyle.Render("docsuite") + infoStyle.Render(" / "+m.documentID) + "  " + status

	if m.err != nil {
		header += "  " + errorStyle.Render(m.err.Error())
	}

	return header
}

func (m *Model) presenceView() string {
	participants := m.session.SortedParticipants()

	names := make([]string, 0, len(participants))
	for _, p := range participants {
		name := displayName(p)
		if p.Role != "" {
			name += infoStyle.Render(" (" + p.Role + ")")
		}

		if p.UserID == m.session.Lock.Holder {
			name = lockStyle.Render("✎ ") + name
		}

		names = append(names, name)
	}

	line := participantStyle.Render(fmt.Sprintf("%d here: ", len(participants))) + strings.Join(names, ", ")

	if m.session.Lock.Holder == "" {
		line += infoStyle.Render("  unlocked")
	}

	return line
}

func (m *Model) bodyView() string {
	var b strings.Builder

	b.WriteString(sectionStyle.Render(fmt.Sprintf("document v%d", m.session.ContentVersion)))
	b.WriteString("\n")

	if m.session.Content == "" {
		b.WriteString(infoStyle.Render("  empty"))
	} else {
		b.WriteString(m.session.Content)
	}

	b.WriteString("\n\n")

	b.WriteString(sectionStyle.Render("comments"))
	b.WriteString("\n")

	thread := threadMarkdown(m.session.Comments, m.session.nameOf)
	if m.glamourRenderer != nil {
		if rendered, err := m.glamourRenderer.Render(thread); err == nil {
			thread = rendered
		}
	}

	b.WriteString(thread)

	b.WriteString(sectionStyle.Render("chat"))
	b.WriteString("\n")

	if len(m.session.Chat) == 0 {
		b.WriteString(infoStyle.Render("  no messages yet"))
		b.WriteString("\n")
	}

	for _, msg := range m.session.Chat {
		b.WriteString("  ")
		b.WriteString(chatAuthorStyle.Render(orUserID(msg.DisplayName, msg.UserID) + ": "))
		b.WriteString(chatTextStyle.Render(msg.Content))
		b.WriteString("\n")
	}

	b.WriteString(sectionStyle.Render("activity"))
	b.WriteString("\n")

	for _, line := range m.session.Feed {
		b.WriteString(infoStyle.Render("  " + line))
		b.WriteString("\n")
	}

	return b.String()
}
