package settlement

import (
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"rps_wallet/internal/domain"
	"rps_wallet/internal/game"
	"rps_wallet/internal/ledger"
)

// finalize settles g inside tx. It returns the updated wallets keyed by user.
//
// Decisive game: the winner's available balance receives both stakes and the
// winner's balance grows by the loser's stake (its own stake never left it);
// the loser's escrow and balance drop by the loser's stake. Draw: each stake
// returns from escrow to available. Money is conserved in both cases.
func (e *Engine) finalize(tx *gorm.DB, g *domain.Game, players map[uint]*domain.User) (map[uint]*domain.Wallet, error) {
	pairs := make([][2]game.Move, len(g.Log))
	for i, r := range g.Log {
		pairs[i] = [2]game.Move{game.Move(r.PlayerOneMove), game.Move(r.PlayerTwoMove)}
	}
	p1Wins, p2Wins := game.Tally(pairs)
	outcome := game.Winner(pairs)

	wallets, err := ledger.LockUserWallets(tx, g.PlayerOneID, g.PlayerTwoID)
	if err != nil {
		return nil, err
	}
	stakes, err := escrowed(tx, g, wallets)
	if err != nil {
		return nil, err
	}

	p1, p2 := players[g.PlayerOneID], players[g.PlayerTwoID]
	switch outcome {
	case game.Draw:
		for userID, w := range wallets {
			s := stakes[userID].Amount
			w.PendingTransactions = w.PendingTransactions.Sub(s)
			w.AvailableBalance = w.AvailableBalance.Add(s)
		}
		settle(stakes[p1.ID], p2.Name, "draw against")
		settle(stakes[p2.ID], p1.Name, "draw against")
		g.WinnerID, g.LoserID = nil, nil
		g.Comment = fmt.Sprintf("draw %d-%d", p1Wins, p2Wins)

	default:
		winner, loser := p1, p2
		if outcome == game.Player2 {
			winner, loser = p2, p1
		}
		ww, lw := wallets[winner.ID], wallets[loser.ID]
		ws, ls := stakes[winner.ID].Amount, stakes[loser.ID].Amount

		ww.PendingTransactions = ww.PendingTransactions.Sub(ws)
		ww.AvailableBalance = ww.AvailableBalance.Add(ws.Add(ls))
		ww.Balance = ww.Balance.Add(ls)

		lw.PendingTransactions = lw.PendingTransactions.Sub(ls)
		lw.Balance = lw.Balance.Sub(ls)

		settle(stakes[winner.ID], loser.Name, "win against")
		settle(stakes[loser.ID], winner.Name, "lost against")

		if err := tx.Model(&domain.User{}).Where("id = ?", winner.ID).
			UpdateColumn("wins", gorm.Expr("wins + ?", 1)).Error; err != nil {
			return nil, err
		}
		if err := tx.Model(&domain.User{}).Where("id = ?", loser.ID).
			UpdateColumn("losses", gorm.Expr("losses + ?", 1)).Error; err != nil {
			return nil, err
		}
		g.WinnerID, g.LoserID = &winner.ID, &loser.ID
		g.Comment = fmt.Sprintf("%s won %d-%d", winner.Name, max(p1Wins, p2Wins), min(p1Wins, p2Wins))
	}

	for _, w := range wallets {
		if err := ledger.SaveWallet(tx, w); err != nil {
			return nil, err
		}
	}
	for _, t := range stakes {
		if err := tx.Model(t).Select("status", "recipient", "comment", "updated_at").Updates(t).Error; err != nil {
			return nil, fmt.Errorf("update transaction %d: %w", t.ID, err)
		}
	}
	g.Status = domain.GameCompleted

	logrus.WithFields(logrus.Fields{
		"game_id":   g.ID,
		"outcome":   outcome.String(),
		"p1_wins":   p1Wins,
		"p2_wins":   p2Wins,
		"bet_total": g.BetAmountTotal.String(),
	}).Info("Game settled")
	return wallets, nil
}

// escrowed loads the pending transfer of each player, keyed by user ID
func escrowed(tx *gorm.DB, g *domain.Game, wallets map[uint]*domain.Wallet) (map[uint]*domain.Transaction, error) {
	out := make(map[uint]*domain.Transaction, len(wallets))
	for userID, w := range wallets {
		var t domain.Transaction
		err := tx.Where("invoice_no = ? AND wallet_id = ? AND mode = ?",
			strconv.FormatUint(uint64(g.ID), 10), w.ID, domain.ModeTransfer).
			First(&t).Error
		if err != nil {
			return nil, domain.WrapError(domain.KindConsistency, "game stake missing", err)
		}
		if t.Status != domain.StatusPending {
			return nil, domain.NewError(domain.KindConsistency, "game stake already settled")
		}
		out[userID] = &t
	}
	return out, nil
}

// settle marks a stake successful and records who it was played against
func settle(t *domain.Transaction, counterpart, note string) {
	t.Status = domain.StatusSuccess
	name := counterpart
	t.Recipient = &name
	note = note + " | " + counterpart
	if t.Comment != "" {
		t.Comment += " | " + note
	} else {
		t.Comment = note
	}
}
