package settlement

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rps_wallet/internal/domain"
	"rps_wallet/internal/ledger"
	"rps_wallet/internal/testutil"
)

// These run against a real MySQL or PostgreSQL server; SQLite serializes
// every transaction and never exercises the row locks.

func TestConcurrentCreateGameKeepsOneOngoing(t *testing.T) {
	gdb := testutil.OpenServerDB(t)
	house, _ := testutil.CreatePlayer(t, gdb, "system", 10000)
	player, wallet := testutil.CreatePlayer(t, gdb, "alice", 100)
	engine := NewEngine(gdb, ledger.New(gdb), house.ID)

	const callers = 8
	errs := make([]error, callers)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, errs[i] = engine.CreateGame(context.Background(), player.ID, decimal.NewFromInt(10), 3)
		}()
	}
	close(start)
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.True(t, domain.IsKind(err, domain.KindConflict), "got %v", err)
	}
	assert.Equal(t, 1, created)

	var ongoing int64
	require.NoError(t, gdb.Model(&domain.Game{}).
		Where("player_one_id = ? AND status = ?", player.ID, domain.GameOngoing).
		Count(&ongoing).Error)
	assert.EqualValues(t, 1, ongoing)

	w := testutil.ReloadWallet(t, gdb, wallet.ID)
	assert.Equal(t, "10", w.PendingTransactions.String())
	assert.Equal(t, "90", w.AvailableBalance.String())
}

func TestConcurrentGameAndWithdrawalNeverOverspend(t *testing.T) {
	gdb := testutil.OpenServerDB(t)
	house, _ := testutil.CreatePlayer(t, gdb, "system", 10000)
	player, wallet := testutil.CreatePlayer(t, gdb, "alice", 100)
	l := ledger.New(gdb)
	engine := NewEngine(gdb, l, house.ID)

	var gameErr, withdrawErr error
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		<-start
		_, gameErr = engine.CreateGame(context.Background(), player.ID, decimal.NewFromInt(60), 1)
	}()
	go func() {
		defer wg.Done()
		<-start
		_, withdrawErr = l.Create(context.Background(), ledger.Entry{
			Mode:          domain.ModeWithdrawal,
			WalletID:      wallet.ID,
			InvoiceNo:     "W-1",
			Amount:        decimal.NewFromInt(60),
			RecipientType: domain.RecipientUser,
		})
	}()
	close(start)
	wg.Wait()

	// Exactly one of them fits in the available balance.
	if gameErr == nil {
		assert.True(t, domain.IsKind(withdrawErr, domain.KindInsufficientBalance), "got %v", withdrawErr)
	} else {
		assert.NoError(t, withdrawErr)
		assert.True(t, domain.IsKind(gameErr, domain.KindInsufficientBalance), "got %v", gameErr)
	}

	w := testutil.ReloadWallet(t, gdb, wallet.ID)
	assert.Equal(t, "100", w.Balance.String())
	assert.Equal(t, "40", w.AvailableBalance.String())
	assert.Equal(t, "60", w.PendingTransactions.Add(w.PendingWithdrawal).String())
}
