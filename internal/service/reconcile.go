// Package service contains the service layer for the Insyn API
package service

import (
	"github.com/mbergqvist/insynsapi/internal/models"
)

// ReconcileResult is the net effect of reconciling one batch against the
// stored records covering the same publishing dates.
type ReconcileResult struct {
	ToAdd    []*models.InsiderTradeModel
	ToRemove []*models.InsiderTradeModel
	Added    int
	Removed  int
}

// ReconcileTrades classifies each incoming trade, in input order, as new,
// exact duplicate or revision retraction.
//
// A revision ("Reviderad" status) retracts the stored record sharing its
// natural key and is never stored itself; a revision with no match is a no-op.
// A non-revision with a match is a duplicate and is skipped. New trades join
// the working existing set so later trades in the same batch see them.
// Pure function: the caller's slices are not modified.
func ReconcileTrades(newTrades, existingTrades []*models.InsiderTradeModel) ReconcileResult {
	existing := make([]*models.InsiderTradeModel, len(existingTrades))
	copy(existing, existingTrades)

	var res ReconcileResult
	for _, trade := range newTrades {
		i := models.FindDuplicate(existing, trade)

		if trade.IsRevised() {
			if i < 0 {
				continue
			}
			match := existing[i]
			existing = append(existing[:i], existing[i+1:]...)
			if match.ID == 0 {
				// Retracts a record added earlier in this batch: cancel the
				// pending add instead of deleting a row that never existed.
				res.ToAdd = dropTrade(res.ToAdd, match)
			} else {
				res.ToRemove = append(res.ToRemove, match)
			}
			res.Removed++
			continue
		}

		if i >= 0 {
			// exact duplicate
			continue
		}

		res.ToAdd = append(res.ToAdd, trade)
		existing = append(existing, trade)
		res.Added++
	}

	return res
}

func dropTrade(trades []*models.InsiderTradeModel, target *models.InsiderTradeModel) []*models.InsiderTradeModel {
	for i, t := range trades {
		if t == target {
			return append(trades[:i], trades[i+1:]...)
		}
	}
	return trades
}
