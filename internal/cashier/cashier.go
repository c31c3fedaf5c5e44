// Package cashier implements the monthly cash-register ledger: per-client
// payment cells, buffered pending changes, payment-plan agreements and the
// irreversible close-register snapshot.
package cashier

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is how a client settled a month.
type PaymentMethod string

const (
	MethodCash  PaymentMethod = "cash"
	MethodMBWay PaymentMethod = "mbway"
)

// VAT applied on top of the contracted monthly fee when pricing a month.
var vatFactor = decimal.NewFromFloat(1.23)

// balanceTolerance is the accepted rounding slack in the close-register
// balance equation.
var balanceTolerance = decimal.NewFromFloat(0.01)

// Payment is one settled (client, month, year) cell. A non-empty OperationID
// means the payment was locked into a closed register and is immutable.
type Payment struct {
	ID          string          `json:"id"`
	ClientID    string          `json:"client_id"`
	Year        int             `json:"year"`
	Month       int             `json:"month"` // 1..12
	Amount      decimal.Decimal `json:"amount"`
	Method      PaymentMethod   `json:"method"`
	PaidAt      time.Time       `json:"paid_at"`
	OperationID string          `json:"operation_id,omitempty"`
}

// Processed reports whether the payment is locked into a closed register.
func (p Payment) Processed() bool {
	return p.OperationID != ""
}

// AgreementStatus is the stored lifecycle of a payment plan. Completed is
// derived at read time and never stored.
type AgreementStatus string

const (
	AgreementActive    AgreementStatus = "active"
	AgreementCancelled AgreementStatus = "cancelled"
	AgreementCompleted AgreementStatus = "completed"
)

// Agreement is a debt-amortization arrangement: months 1..PaidUntilMonth of
// Year are priced at MonthlyAmount instead of the client's standard fee.
type Agreement struct {
	ID             string          `json:"id"`
	ClientID       string          `json:"client_id"`
	Year           int             `json:"year"`
	PaidUntilMonth int             `json:"paid_until_month"`
	MonthlyAmount  decimal.Decimal `json:"monthly_amount"`
	DebtAmount     decimal.Decimal `json:"debt_amount"`
	Status         AgreementStatus `json:"status"`
	Notes          string          `json:"notes,omitempty"`
	Called         bool            `json:"called"`
	LetterSent     bool            `json:"letter_sent"`
}

// Covers reports whether a month of the agreement's year falls inside the
// plan's amortization range.
func (a Agreement) Covers(month int) bool {
	return month >= 1 && month <= a.PaidUntilMonth
}

// RemainingDebt is the agreed debt net of payments recorded in the plan's
// covered months. Never negative.
func (a Agreement) RemainingDebt(payments []Payment) decimal.Decimal {
	remaining := a.DebtAmount
	for _, p := range payments {
		if p.ClientID != a.ClientID || p.Year != a.Year || !a.Covers(p.Month) {
			continue
		}
		remaining = remaining.Sub(p.Amount)
	}
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// EffectiveStatus computes the read-time status: an active plan whose debt
// reached zero reads as completed. Cancelled always wins.
func (a Agreement) EffectiveStatus(payments []Payment) AgreementStatus {
	if a.Status == AgreementCancelled {
		return AgreementCancelled
	}
	if a.RemainingDebt(payments).IsZero() {
		return AgreementCompleted
	}
	return AgreementActive
}

// Expense is a clerk-local session expense, consumed when the register closes.
type Expense struct {
	ID          string          `json:"id"`
	Clerk       string          `json:"clerk"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	CreatedAt   time.Time       `json:"created_at"`
}

// OperationDetail is one (client, method) group in a closed-register report.
type OperationDetail struct {
	ClientID   string          `json:"client_id"`
	ClientName string          `json:"client_name"`
	Method     PaymentMethod   `json:"method"`
	Total      decimal.Decimal `json:"total"`
	Months     []string        `json:"months"`
}

// Operation is the immutable snapshot created by closing the register.
type Operation struct {
	ID               string            `json:"id"`
	CreatedAt        time.Time         `json:"created_at"`
	DepositedAmount  decimal.Decimal   `json:"deposited_amount"`
	MBWayDeposited   decimal.Decimal   `json:"mbway_deposited_amount"`
	SpentAmount      decimal.Decimal   `json:"spent_amount"`
	AdjustmentAmount decimal.Decimal   `json:"adjustment_amount"`
	SpentDescription string            `json:"spent_description,omitempty"`
	Details          []OperationDetail `json:"details"`
}

// CellState is the register grid state of one (client, month, year) cell.
type CellState string

const (
	CellPending            CellState = "pending"
	CellPaidCash           CellState = "paid_cash"
	CellPaidMBWay          CellState = "paid_mbway"
	CellProcessed          CellState = "processed"
	CellAgreement          CellState = "agreement"
	CellAgreementCancelled CellState = "agreement_cancelled"
)

// monthNames indexes Portuguese month names by month number.
var monthNames = [13]string{"",
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

// MonthName returns the report label for a month, empty outside 1..12.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return monthNames[month]
}

// StateOf derives the grid state of a cell from the persisted payments and
// agreements of its year. Agreement coverage makes a cell non-toggleable even
// when unpaid; a processed payment always wins.
func StateOf(clientID string, month int, payments []Payment, agreements []Agreement) CellState {
	for _, p := range payments {
		if p.ClientID != clientID || p.Month != month {
			continue
		}
		if p.Processed() {
			return CellProcessed
		}
		if p.Method == MethodMBWay {
			return CellPaidMBWay
		}
		return CellPaidCash
	}
	for _, a := range agreements {
		if a.ClientID != clientID || !a.Covers(month) {
			continue
		}
		if a.Status == AgreementCancelled {
			return CellAgreementCancelled
		}
		return CellAgreement
	}
	return CellPending
}

// MonthPrice is the amount a toggle charges for a month: the active plan's
// installment when the month is covered, otherwise the contracted fee plus
// VAT.
func MonthPrice(monthlyFee float64, month int, agreements []Agreement) decimal.Decimal {
	for _, a := range agreements {
		if a.Status == AgreementActive && a.Covers(month) {
			return a.MonthlyAmount
		}
	}
	return decimal.NewFromFloat(monthlyFee).Mul(vatFactor).Round(2)
}

// InstallmentPayment builds the payment recording one installment against an
// agreement: it targets the first covered month without a persisted payment
// and caps the amount at the remaining debt. The second return is false when
// the plan has no open month or no outstanding debt.
func InstallmentPayment(a Agreement, payments []Payment, requested decimal.Decimal, now time.Time, newID func() string) (Payment, bool) {
	remaining := a.RemainingDebt(payments)
	if remaining.IsZero() || !requested.IsPositive() {
		return Payment{}, false
	}

	month := 0
	for m := 1; m <= a.PaidUntilMonth && m <= 12; m++ {
		if !monthPaid(a.ClientID, a.Year, m, payments) {
			month = m
			break
		}
	}
	if month == 0 {
		return Payment{}, false
	}

	amount := requested
	if amount.GreaterThan(remaining) {
		amount = remaining
	}

	return Payment{
		ID:       newID(),
		ClientID: a.ClientID,
		Year:     a.Year,
		Month:    month,
		Amount:   amount,
		Method:   MethodCash,
		PaidAt:   now,
	}, true
}

func monthPaid(clientID string, year, month int, payments []Payment) bool {
	for _, p := range payments {
		if p.ClientID == clientID && p.Year == year && p.Month == month {
			return true
		}
	}
	return false
}
