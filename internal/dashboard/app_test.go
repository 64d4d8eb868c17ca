package dashboard

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abcfe/abcfe-calculator/internal/dashboard/api"
	tea "github.com/charmbracelet/bubbletea"
)

func result(v uint32) *uint32 { return &v }

func update(slot uint64, account *api.Account, accountErr error) ledgerUpdateMsg {
	return ledgerUpdateMsg{
		status:     &api.LedgerStatus{Slot: slot, NetworkID: "localnet"},
		account:    account,
		accountErr: accountErr,
		at:         time.Unix(1_700_000_000+int64(slot), 0),
	}
}

func TestResultHistory(t *testing.T) {
	m := initialModel(Config{BaseURL: "http://localhost:8899", Account: "acct"})

	m.applyUpdate(update(1, &api.Account{Result: result(12)}, nil))
	m.applyUpdate(update(2, &api.Account{Result: result(12)}, nil))
	m.applyUpdate(update(3, &api.Account{Result: result(7)}, nil))

	require.Len(t, m.history, 2)
	assert.Equal(t, uint32(12), m.history[0].Result)
	assert.Equal(t, uint64(3), m.history[1].Slot)

	for i := 0; i < 2*maxHistory; i++ {
		m.applyUpdate(update(uint64(10+i), &api.Account{Result: result(uint32(i))}, nil))
	}
	assert.Len(t, m.history, maxHistory)
	assert.Equal(t, uint32(2*maxHistory-1), m.history[maxHistory-1].Result)
}

func TestAccountState(t *testing.T) {
	m := initialModel(Config{BaseURL: "http://localhost:8899", Account: "acct"})
	assert.Equal(t, "OFFLINE", m.accountState())

	m.applyUpdate(update(1, nil, fmt.Errorf("%w: acct", api.ErrNotFound)))
	assert.Equal(t, "UNPROVISIONED", m.accountState())

	m.applyUpdate(update(2, &api.Account{Space: 8}, nil))
	assert.Equal(t, "MALFORMED", m.accountState())

	m.applyUpdate(update(3, &api.Account{Space: 4, Result: result(1)}, nil))
	assert.Equal(t, "ONLINE", m.accountState())

	m.applyUpdate(ledgerUpdateMsg{err: errors.New("connection refused")})
	assert.Equal(t, "OFFLINE", m.accountState())
	assert.Contains(t, m.View(), "connection refused")
}

func TestQuitKey(t *testing.T) {
	m := initialModel(Config{BaseURL: "http://localhost:8899"})

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.True(t, next.(Model).quitting)
	assert.Empty(t, next.(Model).View())
}

func TestViewShowsResult(t *testing.T) {
	m := initialModel(Config{BaseURL: "http://localhost:8899", Account: "acct"})
	m.applyUpdate(update(5, &api.Account{Space: 4, Lamports: 918720, Result: result(42)}, nil))

	view := m.View()
	assert.True(t, strings.Contains(view, "42"))
	assert.Contains(t, view, "Slot: 5")
}
