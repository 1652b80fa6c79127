package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/retailworks/shopchat/internal/config"
	chatModel "github.com/retailworks/shopchat/internal/model/chat"
	"github.com/retailworks/shopchat/internal/model/profile"
	chatService "github.com/retailworks/shopchat/internal/service/chat"
	"github.com/retailworks/shopchat/internal/service/recommend"
	"github.com/retailworks/shopchat/internal/service/session"
	"github.com/retailworks/shopchat/internal/service/stream"
	"github.com/retailworks/shopchat/internal/service/transport"
)

const productCardWidth = 30

type uiTheme struct {
	title     lipgloss.Style
	user      lipgloss.Style
	chipPick  lipgloss.Style
	assistant lipgloss.Style
	errorLine lipgloss.Style
	waiting   lipgloss.Style
	card      lipgloss.Style
	cardTitle lipgloss.Style
	order     lipgloss.Style
	chipKey   lipgloss.Style
	dim       lipgloss.Style
	inputBar  lipgloss.Style
	statusOK  lipgloss.Style
	statusWip lipgloss.Style
	statusBad lipgloss.Style
	statusBar lipgloss.Style
	overlay   lipgloss.Style
	selected  lipgloss.Style
}

func newTheme() uiTheme {
	accent := lipgloss.Color("205")
	blue := lipgloss.Color("75")
	green := lipgloss.Color("78")
	red := lipgloss.Color("203")
	yellow := lipgloss.Color("221")
	muted := lipgloss.Color("243")

	return uiTheme{
		title:     lipgloss.NewStyle().Foreground(accent).Bold(true),
		user:      lipgloss.NewStyle().Foreground(green).Bold(true),
		chipPick:  lipgloss.NewStyle().Foreground(yellow).Bold(true),
		assistant: lipgloss.NewStyle().Foreground(blue).Bold(true),
		errorLine: lipgloss.NewStyle().Foreground(red),
		waiting:   lipgloss.NewStyle().Foreground(muted).Italic(true),
		card: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1).
			Width(productCardWidth),
		cardTitle: lipgloss.NewStyle().Foreground(accent).Bold(true),
		order:     lipgloss.NewStyle().Foreground(yellow),
		chipKey:   lipgloss.NewStyle().Foreground(accent).Bold(true),
		dim:       lipgloss.NewStyle().Foreground(muted),
		inputBar: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(blue).
			Padding(0, 1),
		statusOK:  lipgloss.NewStyle().Foreground(green).Bold(true),
		statusWip: lipgloss.NewStyle().Foreground(yellow).Bold(true),
		statusBad: lipgloss.NewStyle().Foreground(red).Bold(true),
		statusBar: lipgloss.NewStyle().Foreground(muted),
		overlay: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(1, 2),
		selected: lipgloss.NewStyle().Foreground(accent).Bold(true),
	}
}

// Messages the commands feed back into Update.
type (
	transcriptMsg struct{}
	recsMsg       struct {
		items        []string
		fromFallback bool
	}
	historyMsg struct {
		sessions []chatModel.Session
	}
	sessionMsg struct {
		session chatModel.Session
		note    string
	}
	errMsg struct {
		err error
	}
	tickMsg time.Time
)

type model struct {
	ctx     context.Context
	ctrl    *chatService.Controller
	channel *transport.Channel
	profile profile.Profile
	agent   bool

	recs         []string
	recsFallback bool
	history      []chatModel.Session
	historyOpen  bool
	historyIndex int
	sess         chatModel.Session
	statusLine   string

	waitingVisible bool
	width          int
	height         int

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	theme uiTheme
}

func newModel(ctx context.Context, ctrl *chatService.Controller, channel *transport.Channel, agent bool) model {
	input := textinput.New()
	input.Prompt = "❯ "
	input.Placeholder = "Ask about products, orders, or pick a suggestion with 1-4"
	input.CharLimit = 500
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	vp := viewport.New(0, 0)
	vp.MouseWheelEnabled = true

	return model{
		ctx:        ctx,
		ctrl:       ctrl,
		channel:    channel,
		profile:    ctrl.Profile(),
		agent:      agent,
		statusLine: "connecting...",
		input:      input,
		viewport:   vp,
		spinner:    sp,
		theme:      newTheme(),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.connectCmd(), m.refreshRecsCmd(false), tickEvery())
}

func tickEvery() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// connectCmd starts the socket's reconnect loop and resolves the active
// session off the render loop; the first resolve may hit the REST API.
func (m model) connectCmd() tea.Cmd {
	ctx, ctrl, channel := m.ctx, m.ctrl, m.channel
	return func() tea.Msg {
		channel.Start(ctx)
		return sessionMsg{session: ctrl.ActiveSession(ctx), note: "ready"}
	}
}

func (m model) refreshRecsCmd(force bool) tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		items := ctrl.Recommendations(ctx, force)
		return recsMsg{items: items, fromFallback: ctrl.RecommendationsDegraded()}
	}
}

func (m model) sendCmd(text string) tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		if err := ctrl.SendText(ctx, text); err != nil {
			return errMsg{err}
		}
		return transcriptMsg{}
	}
}

func (m model) newSessionCmd() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return sessionMsg{session: ctrl.StartNewSession(ctx), note: "new session"}
	}
}

func (m model) switchCmd(id string) tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return sessionMsg{session: ctrl.SwitchSession(ctx, id), note: "switched session"}
	}
}

func (m model) removeCmd(id string) tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		ctrl.RemoveSession(ctx, id)
		return historyMsg{sessions: ctrl.History(ctx)}
	}
}

func (m model) historyCmd() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return historyMsg{sessions: ctrl.History(ctx)}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case transcriptMsg:
		m.syncTranscript()

	case recsMsg:
		m.recs = msg.items
		m.recsFallback = msg.fromFallback
		if msg.fromFallback {
			m.statusLine = "recommendations offline, showing local picks"
		} else {
			m.statusLine = "recommendations refreshed"
		}
		m.resize()

	case historyMsg:
		m.history = msg.sessions
		if m.historyIndex >= len(m.history) {
			m.historyIndex = maxInt(0, len(m.history)-1)
		}

	case sessionMsg:
		m.sess = msg.session
		m.statusLine = msg.note
		m.recs = m.ctrl.CurrentRecommendations()
		m.recsFallback = m.ctrl.RecommendationsDegraded()
		m.syncTranscript()
		m.resize()

	case errMsg:
		m.statusLine = msg.err.Error()

	case tickMsg:
		cmds = append(cmds, tickEvery())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.waitingVisible {
			m.syncTranscript()
		}
		cmds = append(cmds, cmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)

	case tea.KeyMsg:
		return m.handleKey(msg, cmds)
	}

	return m, tea.Batch(cmds...)
}

func (m model) handleKey(msg tea.KeyMsg, cmds []tea.Cmd) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return m, tea.Quit
	}

	if m.historyOpen {
		return m.handleHistoryKey(key, cmds)
	}

	switch key {
	case "esc":
		return m, tea.Quit

	case "enter":
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, tea.Batch(cmds...)
		}
		m.input.Reset()
		m.statusLine = "sending..."
		cmds = append(cmds, m.sendCmd(text))
		return m, tea.Batch(cmds...)

	case "ctrl+n":
		m.statusLine = "starting new session..."
		cmds = append(cmds, m.newSessionCmd())
		return m, tea.Batch(cmds...)

	case "ctrl+h":
		m.historyOpen = true
		m.historyIndex = 0
		cmds = append(cmds, m.historyCmd())
		return m, tea.Batch(cmds...)

	case "ctrl+r":
		m.statusLine = "refreshing recommendations..."
		cmds = append(cmds, m.refreshRecsCmd(true))
		return m, tea.Batch(cmds...)

	case "1", "2", "3", "4":
		// Digits pick a chip only while the composer is empty; mid-word
		// they type normally.
		if m.input.Value() == "" {
			idx := int(key[0] - '1')
			if idx < len(m.recs) {
				m.input.SetValue(m.recs[idx])
				m.input.CursorEnd()
				return m, tea.Batch(cmds...)
			}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m model) handleHistoryKey(key string, cmds []tea.Cmd) (tea.Model, tea.Cmd) {
	switch key {
	case "esc", "ctrl+h":
		m.historyOpen = false

	case "up", "k":
		if m.historyIndex > 0 {
			m.historyIndex--
		}

	case "down", "j":
		if m.historyIndex < len(m.history)-1 {
			m.historyIndex++
		}

	case "enter":
		if m.historyIndex < len(m.history) {
			m.historyOpen = false
			cmds = append(cmds, m.switchCmd(m.history[m.historyIndex].ID))
		}

	case "d":
		if m.historyIndex < len(m.history) {
			m.statusLine = "session removed"
			cmds = append(cmds, m.removeCmd(m.history[m.historyIndex].ID))
		}

	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		idx := int(key[0] - '1')
		if idx < len(m.history) {
			m.historyOpen = false
			cmds = append(cmds, m.switchCmd(m.history[idx].ID))
		}
	}

	return m, tea.Batch(cmds...)
}

// syncTranscript rebuilds the viewport from the controller's entries,
// keeping the view pinned to the tail unless the user scrolled away.
func (m *model) syncTranscript() {
	entries := m.ctrl.Entries()

	m.waitingVisible = false
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Kind == chatModel.KindWaiting {
			m.waitingVisible = true
		}
		lines = append(lines, m.renderEntry(e))
	}

	follow := m.viewport.AtBottom()
	m.viewport.SetContent(strings.Join(lines, "\n"))
	if follow {
		m.viewport.GotoBottom()
	}
}

func (m *model) resize() {
	if m.width == 0 || m.height == 0 {
		return
	}

	m.input.Width = maxInt(20, m.width-8)

	chrome := lipgloss.Height(m.renderHeader()) +
		lipgloss.Height(m.renderChips()) +
		lipgloss.Height(m.theme.inputBar.Render(m.input.View())) +
		lipgloss.Height(m.renderStatus())
	m.viewport.Width = m.width
	m.viewport.Height = maxInt(3, m.height-chrome)

	m.syncTranscript()
}

func (m model) View() string {
	if m.width == 0 {
		return "starting shopchat..."
	}

	body := m.viewport.View()
	if m.historyOpen {
		body = m.renderHistory()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderChips(),
		m.theme.inputBar.Render(m.input.View()),
		m.renderStatus(),
	)
}

func (m model) renderHeader() string {
	who := m.profile.Name
	if who == "" {
		who = m.profile.UserID
	}
	return m.theme.title.Render("Shopchat") + "  " +
		m.theme.dim.Render(who+" · "+string(m.profile.Persona))
}

func (m model) renderEntry(e chatModel.Entry) string {
	wrap := lipgloss.NewStyle().Width(maxInt(20, m.viewport.Width-2))

	switch e.Kind {
	case chatModel.KindWaiting:
		return m.theme.waiting.Render(m.spinner.View() + " " + e.Text)

	case chatModel.KindError:
		return wrap.Render(m.theme.errorLine.Render("! " + e.Text))

	case chatModel.KindProducts:
		cards := make([]string, 0, len(e.Products))
		for _, p := range e.Products {
			cards = append(cards, m.productCard(p))
		}
		if m.viewport.Width >= len(cards)*(productCardWidth+2) {
			return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
		}
		return lipgloss.JoinVertical(lipgloss.Left, cards...)

	case chatModel.KindOrder:
		if e.Order == nil {
			return ""
		}
		return m.theme.order.Render(
			fmt.Sprintf("Order %s · %s · %s", e.Order.OrderID, e.Order.OrderDate, e.Order.Status))

	case chatModel.KindRecommendation:
		return wrap.Render(m.theme.chipPick.Render("You (suggested)") + " " + e.Text)

	default:
		if e.Role == chatModel.RoleUser {
			return wrap.Render(m.theme.user.Render("You") + " " + e.Text)
		}
		return wrap.Render(m.theme.assistant.Render("Assistant") + " " + e.Text)
	}
}

func (m model) productCard(p chatModel.Product) string {
	body := m.theme.cardTitle.Render(p.Name) + "\n" +
		fmt.Sprintf("$%.2f · %d in stock", p.Price, p.Stock)
	return m.theme.card.Render(body)
}

func (m model) renderChips() string {
	if len(m.recs) == 0 {
		return m.theme.dim.Render("no suggestions yet · ctrl+r to fetch")
	}

	parts := make([]string, 0, len(m.recs))
	for i, chip := range m.recs {
		parts = append(parts, m.theme.chipKey.Render(fmt.Sprintf("[%d]", i+1))+" "+chip)
	}
	row := strings.Join(parts, "  ")
	if m.recsFallback {
		row += "  " + m.theme.dim.Render("(offline picks)")
	}
	return lipgloss.NewStyle().Width(maxInt(20, m.width)).Render(row)
}

func (m model) renderStatus() string {
	var state string
	switch m.channel.CurrentState() {
	case transport.StateOpen:
		state = m.theme.statusOK.Render("● connected")
	case transport.StateConnecting:
		state = m.theme.statusWip.Render("● connecting")
	default:
		state = m.theme.statusBad.Render("● offline")
	}

	parts := []string{state, "session " + shortID(m.sess.ID), m.profile.UserID}
	if m.agent {
		parts = append(parts, "agent mode")
	}
	if m.statusLine != "" {
		parts = append(parts, m.statusLine)
	}
	hints := "enter send · ctrl+n new · ctrl+h history · ctrl+r suggest · esc quit"

	return m.theme.statusBar.Render(strings.Join(parts, " · ") + "\n" + hints)
}

func (m model) renderHistory() string {
	var b strings.Builder
	b.WriteString(m.theme.title.Render("Sessions") + "\n\n")

	if len(m.history) == 0 {
		b.WriteString(m.theme.dim.Render("no sessions yet") + "\n")
	}
	for i, s := range m.history {
		title := s.Title
		if title == "" {
			title = s.ID
		}
		line := fmt.Sprintf("%d. %s · %d msgs · %s", i+1, title, s.MessageCount, s.LastUsed.Format("2006-01-02 15:04"))
		if i == m.historyIndex {
			b.WriteString(m.theme.selected.Render("> "+line) + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}

	b.WriteString("\n" + m.theme.dim.Render("up/down select · enter/digit switch · d delete · esc close"))

	panel := m.theme.overlay.Render(b.String())
	return lipgloss.Place(m.viewport.Width, m.viewport.Height, lipgloss.Center, lipgloss.Center, panel)
}

func shortID(id string) string {
	if len(id) <= 24 {
		return id
	}
	return id[:24] + "…"
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// resolveProfile starts from the seeded shopper matching the configured
// user id and lets environment overrides adjust individual fields.
func resolveProfile(cfg config.ProfileConfig) profile.Profile {
	store := profile.NewMemoryStore(profile.Seed())
	p, ok := store.FindByID(cfg.UserID)
	if !ok {
		p = profile.Profile{
			UserID:   cfg.UserID,
			Persona:  profile.PersonaGeneric,
			Discount: profile.DiscountIndifferent,
		}
	}

	if cfg.Name != "" {
		p.Name = cfg.Name
	}
	if cfg.Email != "" {
		p.Email = cfg.Email
	}
	if cfg.Age > 0 {
		p.Age = cfg.Age
	}
	if cfg.Gender != "" {
		p.Gender = cfg.Gender
	}
	if cfg.Persona != "" {
		p.Persona = profile.ParsePersonaTag(cfg.Persona)
	}
	if cfg.Discount != "" {
		p.Discount = profile.ParseDiscountTag(cfg.Discount)
	}
	return p
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// The alt screen owns the terminal; the service layers keep logging
	// through the stdlib logger, so route it to a file.
	if f, err := tea.LogToFile("shopchat.log", "shopchat"); err == nil {
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
	}

	prof := resolveProfile(cfg.Profile)

	cache, err := session.NewSQLiteCache(cfg.Cache.Path)
	if err != nil {
		log.Fatalf("failed to open session cache: %v", err)
	}
	defer cache.Close()

	channel := transport.New(transport.Config{
		URL:              cfg.Endpoints.WSURL,
		ReconnectDelay:   cfg.Transport.ReconnectDelay,
		HandshakeTimeout: cfg.Transport.HandshakeTimeout,
		ReadTimeout:      cfg.Transport.ReadTimeout,
		WriteTimeout:     cfg.Transport.WriteTimeout,
		PingInterval:     cfg.Transport.PingInterval,
	})

	resolver := session.NewResolver(session.NewRESTStore(cfg.Endpoints.APIURL, nil), cache, prof.UserID)
	prefetcher := recommend.NewPrefetcher(nil, cfg.Endpoints.APIURL+"/recommendations", prof, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var progRef atomic.Pointer[tea.Program]
	ctrl := chatService.NewController(chatService.Deps{
		Transport:  channel,
		Resolver:   resolver,
		Reducer:    stream.New(),
		Prefetcher: prefetcher,
		Profile:    prof,
		UseAgent:   cfg.Profile.UseAgent,
		OnUpdate: func() {
			if p := progRef.Load(); p != nil {
				p.Send(transcriptMsg{})
			}
		},
	})
	defer ctrl.Close()

	p := tea.NewProgram(
		newModel(ctx, ctrl, channel, cfg.Profile.UseAgent),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	progRef.Store(p)

	if _, err := p.Run(); err != nil {
		log.Fatalf("shopchat: %v", err)
	}
}
