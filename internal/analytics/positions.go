package analytics

import (
	"fmt"
	"sort"

	"valore/internal/models"
)

// ComputePositions folds a chronologically ordered transaction ledger into
// per-asset positions using the moving-average cost method. Fees and taxes
// on buys are capitalized into the average cost. Sells that exceed the held
// quantity are clamped to zero and reported as warnings, never errors.
//
// Cash movements (deposit, withdrawal, dividend, fee, interest) do not
// affect per-asset quantity and are ignored here; they matter only at the
// summary and performance level.
func ComputePositions(txns []models.Transaction) ([]Position, []Warning) {
	ordered := make([]models.Transaction, len(txns))
	copy(ordered, txns)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].TradeAt.Before(ordered[j].TradeAt)
	})

	byAsset := make(map[string]*Position)
	var warnings []Warning

	for i := range ordered {
		txn := &ordered[i]
		if !txn.Side.IsTrade() || txn.AssetID == nil {
			continue
		}
		assetID := *txn.AssetID

		pos, ok := byAsset[assetID]
		if !ok {
			pos = &Position{AssetID: assetID}
			byAsset[assetID] = pos
		}

		switch txn.Side {
		case models.SideBuy:
			applyBuy(pos, txn)
		case models.SideSell:
			if w := applySell(pos, txn); w != nil {
				warnings = append(warnings, *w)
			}
		}
	}

	positions := make([]Position, 0, len(byAsset))
	for _, pos := range byAsset {
		// Positions with no remaining quantity and no realized history
		// carry no information; closed positions stay visible.
		if pos.Quantity == 0 && pos.RealizedPL == 0 {
			continue
		}
		positions = append(positions, *pos)
	}
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].AssetID < positions[j].AssetID
	})
	return positions, warnings
}

func applyBuy(pos *Position, txn *models.Transaction) {
	cost := txn.GrossAmount() + txn.Fees + txn.Taxes
	newQty := pos.Quantity + txn.Quantity
	if newQty > 0 {
		pos.AvgCost = (pos.Quantity*pos.AvgCost + cost) / newQty
	}
	pos.Quantity = newQty
}

func applySell(pos *Position, txn *models.Transaction) *Warning {
	if pos.Quantity <= 0 {
		return &Warning{
			AssetID: pos.AssetID,
			Code:    WarnSellWithoutHold,
			Message: fmt.Sprintf("sell of %g units ignored: no open quantity", txn.Quantity),
		}
	}

	sold := txn.Quantity
	var warning *Warning
	if sold > pos.Quantity {
		warning = &Warning{
			AssetID: pos.AssetID,
			Code:    WarnOversell,
			Message: fmt.Sprintf("sell of %g units clamped to held quantity %g", sold, pos.Quantity),
		}
		sold = pos.Quantity
	}

	// Average cost is deliberately unchanged on sells so closed positions
	// keep their cost for display.
	pos.RealizedPL += sold * (txn.Price - pos.AvgCost)
	pos.Quantity -= sold
	return warning
}
