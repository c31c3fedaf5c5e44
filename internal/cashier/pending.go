package cashier

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrCellLocked is returned when a toggle targets a processed payment or an
// agreement-covered month.
var ErrCellLocked = errors.New("cashier: cell is not toggleable")

// PendingOp tags a buffered change. The old frontend encoded deletions as
// payments with amount -1; here deletion is an explicit variant and the
// sentinel never reaches storage.
type PendingOp string

const (
	OpUpsert PendingOp = "upsert"
	OpDelete PendingOp = "delete"
)

// PendingChange is one buffered, not yet persisted register edit.
type PendingChange struct {
	Op      PendingOp `json:"op"`
	Payment Payment   `json:"payment"` // delete ops only carry Payment.ID
}

// PendingChangeSet is the clerk's unsaved edit buffer. It is an explicit
// value passed into Commit, never ambient state.
type PendingChangeSet struct {
	Changes []PendingChange `json:"changes"`
}

// Deletes returns the buffered deletion ids, in order.
func (s PendingChangeSet) Deletes() []string {
	ids := make([]string, 0)
	for _, c := range s.Changes {
		if c.Op == OpDelete {
			ids = append(ids, c.Payment.ID)
		}
	}
	return ids
}

// Upserts returns the buffered payment writes, in order.
func (s PendingChangeSet) Upserts() []Payment {
	payments := make([]Payment, 0)
	for _, c := range s.Changes {
		if c.Op == OpUpsert {
			payments = append(payments, c.Payment)
		}
	}
	return payments
}

// Empty reports whether there is nothing to commit.
func (s PendingChangeSet) Empty() bool {
	return len(s.Changes) == 0
}

// Toggle produces the pending change for clicking one register cell.
// A pending cell becomes a payment priced by MonthPrice; a paid cell becomes
// a buffered deletion. Processed and agreement-covered cells refuse the
// toggle.
func Toggle(clientID string, monthlyFee float64, year, month int, method PaymentMethod, payments []Payment, agreements []Agreement, now time.Time, newID func() string) (PendingChange, error) {
	switch StateOf(clientID, month, payments, agreements) {
	case CellProcessed, CellAgreement, CellAgreementCancelled:
		return PendingChange{}, ErrCellLocked
	case CellPaidCash, CellPaidMBWay:
		for _, p := range payments {
			if p.ClientID == clientID && p.Year == year && p.Month == month {
				return PendingChange{Op: OpDelete, Payment: Payment{ID: p.ID}}, nil
			}
		}
		return PendingChange{}, ErrCellLocked
	}

	return PendingChange{
		Op: OpUpsert,
		Payment: Payment{
			ID:       newID(),
			ClientID: clientID,
			Year:     year,
			Month:    month,
			Amount:   MonthPrice(monthlyFee, month, agreements),
			Method:   method,
			PaidAt:   now,
		},
	}, nil
}

// DecodePendingAmount translates the legacy wire encoding: amount -1 marks a
// deletion. Accepted at the HTTP boundary only, for old frontend builds.
func DecodePendingAmount(p Payment) PendingChange {
	if p.Amount.Equal(decimal.NewFromInt(-1)) {
		return PendingChange{Op: OpDelete, Payment: Payment{ID: p.ID}}
	}
	return PendingChange{Op: OpUpsert, Payment: p}
}
