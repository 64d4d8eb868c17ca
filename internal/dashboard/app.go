package dashboard

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abcfe/abcfe-calculator/internal/dashboard/api"
	"github.com/abcfe/abcfe-calculator/internal/dashboard/components"
	"github.com/abcfe/abcfe-calculator/internal/dashboard/styles"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const maxHistory = 8

// Config는 대시보드 설정
type Config struct {
	BaseURL    string // localnet HTTP endpoint
	Account    string // calculator account to watch, empty for ledger status only
	LogPath    string // localnet LogInfo.Path
	RefreshSec int
}

// resultChange is one observed change of the stored result
type resultChange struct {
	Slot   uint64
	Result uint32
	At     time.Time
}

type keyMap struct {
	Refresh key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Refresh, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Refresh}, {k.Help, k.Quit}}
}

func defaultKeys() keyMap {
	return keyMap{
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "새로고침")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "도움말")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "종료")),
	}
}

// Model은 Bubbletea 모델
type Model struct {
	config     Config
	client     *api.Client
	online     bool
	status     *api.LedgerStatus
	account    *api.Account
	accountErr error
	err        string
	lastUpdate time.Time
	history    []resultChange
	fetching   bool
	width      int
	height     int
	logViewer  *components.LogViewer
	spinner    spinner.Model
	help       help.Model
	keys       keyMap
	quitting   bool
}

// Run은 대시보드 실행
func Run(config Config) error {
	p := tea.NewProgram(initialModel(config), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func initialModel(config Config) Model {
	if config.RefreshSec <= 0 {
		config.RefreshSec = 1
	}

	return Model{
		config:    config,
		client:    api.NewClient(config.BaseURL),
		logViewer: components.NewLogViewer(config.LogPath, 10),
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.SelectedStyle)),
		help:      help.New(),
		keys:      defaultKeys(),
		fetching:  true,
	}
}

// tickMsg는 주기적 업데이트 메시지
type tickMsg time.Time

// ledgerUpdateMsg carries one poll of the inspection API
type ledgerUpdateMsg struct {
	status     *api.LedgerStatus
	account    *api.Account
	accountErr error
	err        error
	at         time.Time
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(m.config.RefreshSec),
		m.fetchLedger(),
		m.spinner.Tick,
	)
}

func tickCmd(seconds int) tea.Cmd {
	return tea.Tick(time.Duration(seconds)*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) fetchLedger() tea.Cmd {
	client := m.client
	address := m.config.Account

	return func() tea.Msg {
		msg := ledgerUpdateMsg{at: time.Now()}

		msg.status, msg.err = client.GetStatus()
		if msg.err != nil || address == "" {
			return msg
		}

		msg.account, msg.accountErr = client.GetAccount(address)
		return msg
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll

		case key.Matches(msg, m.keys.Refresh):
			m.fetching = true
			return m, m.fetchLedger()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tickMsg:
		m.fetching = true
		cmds = append(cmds, tickCmd(m.config.RefreshSec))
		cmds = append(cmds, m.fetchLedger())
		m.logViewer.Refresh()

	case ledgerUpdateMsg:
		m.applyUpdate(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) applyUpdate(msg ledgerUpdateMsg) {
	m.fetching = false
	m.lastUpdate = msg.at

	if msg.err != nil {
		m.online = false
		m.err = msg.err.Error()
		return
	}

	m.online = true
	m.err = ""
	m.status = msg.status
	m.account = msg.account
	m.accountErr = msg.accountErr

	if m.account == nil || m.account.Result == nil {
		return
	}
	result := *m.account.Result
	if n := len(m.history); n > 0 && m.history[n-1].Result == result {
		return
	}
	m.history = append(m.history, resultChange{Slot: m.status.Slot, Result: result, At: msg.at})
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
}

// accountState summarizes the watched account for the header
func (m Model) accountState() string {
	switch {
	case !m.online:
		return "OFFLINE"
	case m.config.Account == "":
		return "ONLINE"
	case errors.Is(m.accountErr, api.ErrNotFound):
		return "UNPROVISIONED"
	case m.account != nil && m.account.Result == nil:
		return "MALFORMED"
	default:
		return "ONLINE"
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	// 헤더
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	b.WriteString(m.renderLedger())
	b.WriteString("\n")

	if m.config.Account != "" {
		b.WriteString(m.renderAccount())
		b.WriteString("\n")
	}

	// 로그 뷰어
	b.WriteString(m.logViewer.Render(m.width))
	b.WriteString("\n")

	b.WriteString(styles.HelpBarStyle.Render(m.help.View(m.keys)))

	return b.String()
}

func (m Model) renderHeader() string {
	title := styles.TitleStyle.Render(" Calculator Localnet ")

	state := m.accountState()
	status := styles.StateStyle(state).Render(state)
	if m.fetching {
		status = m.spinner.View() + " " + status
	}
	if !m.lastUpdate.IsZero() {
		status += styles.MutedStyle.Render(" | " + m.lastUpdate.Format("15:04:05"))
	}

	// 오른쪽 정렬
	gap := m.width - lipgloss.Width(title) - lipgloss.Width(status) - 2
	if gap < 1 {
		gap = 1
	}

	return title + strings.Repeat(" ", gap) + status
}

func (m Model) renderLedger() string {
	var b strings.Builder

	b.WriteString(styles.HeaderStyle.Render(m.config.BaseURL))
	b.WriteString("\n")

	if !m.online {
		b.WriteString(styles.ErrorStyle.Render("  ✗ 오프라인"))
		if m.err != "" {
			b.WriteString("\n")
			b.WriteString(styles.MutedStyle.Render("  " + m.err))
		}
		return b.String()
	}

	s := m.status
	b.WriteString(fmt.Sprintf("  Network: %s  Slot: %d  Transactions: %d  WS clients: %d\n",
		s.NetworkID, s.Slot, s.TransactionCount, s.WSClients))
	b.WriteString(styles.MutedStyle.Render("  Blockhash: " + s.Blockhash))
	if s.Faucet != "" {
		b.WriteString("\n")
		b.WriteString(styles.MutedStyle.Render("  Faucet:    " + s.Faucet))
	}
	b.WriteString("\n")

	return b.String()
}

func (m Model) renderAccount() string {
	var b strings.Builder

	b.WriteString(styles.HeaderStyle.Render("Account " + m.config.Account))
	b.WriteString("\n")

	switch {
	case !m.online:
		b.WriteString(styles.MutedStyle.Render("  -"))
		return b.String()
	case errors.Is(m.accountErr, api.ErrNotFound):
		b.WriteString(styles.WarningStyle.Render("  not provisioned yet, run an operation first"))
		return b.String()
	case m.accountErr != nil:
		b.WriteString(styles.ErrorStyle.Render("  " + m.accountErr.Error()))
		return b.String()
	case m.account == nil:
		return b.String()
	}

	a := m.account
	if a.Result != nil {
		b.WriteString("  Result: ")
		b.WriteString(styles.SuccessStyle.Render(fmt.Sprintf("%d", *a.Result)))
	} else {
		b.WriteString(styles.WarningStyle.Render(fmt.Sprintf("  %d bytes of data do not hold a state record", a.Space)))
	}
	b.WriteString(styles.MutedStyle.Render(fmt.Sprintf("  Lamports: %d  Owner: %s", a.Lamports, a.Owner)))
	b.WriteString("\n")

	if len(m.history) > 1 {
		header := fmt.Sprintf("%-10s %-12s %-10s", "Slot", "Result", "Seen")
		b.WriteString(styles.TableHeaderStyle.Render(header))
		b.WriteString("\n")
		for i := len(m.history) - 1; i >= 0; i-- {
			h := m.history[i]
			row := fmt.Sprintf("%-10d %-12d %-10s", h.Slot, h.Result, h.At.Format("15:04:05"))
			if i == len(m.history)-1 {
				b.WriteString(styles.TableSelectedRowStyle.Render(row))
			} else {
				b.WriteString(styles.TableRowStyle.Render(row))
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}
