package cashier

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNothingToClose rejects closing a register with no open payments and
	// no session expenses.
	ErrNothingToClose = errors.New("cashier: nothing to close")

	// ErrUnbalanced is a confirmable warning, not a hard failure: callers may
	// retry the close with the force flag set.
	ErrUnbalanced = errors.New("cashier: cash total does not match deposit + expenses + adjustment")

	// ErrInvalidAgreement rejects payment plans with a non-positive monthly
	// amount or an empty amortization range.
	ErrInvalidAgreement = errors.New("cashier: invalid agreement")
)

// Ledger is the persistence contract of the register.
//
// CloseRegister must be all-or-nothing: either the operation row, its report
// details and every payment stamp land together, or nothing changes. The
// implementation must refuse to stamp a payment that is already processed.
type Ledger interface {
	PaymentsForYear(ctx context.Context, year int) ([]Payment, error)
	OpenPayments(ctx context.Context) ([]Payment, error)
	Commit(ctx context.Context, changes PendingChangeSet) error

	AgreementsForYear(ctx context.Context, year int) ([]Agreement, error)
	SaveAgreement(ctx context.Context, a Agreement) error

	ExpensesFor(ctx context.Context, clerk string) ([]Expense, error)
	AddExpense(ctx context.Context, e Expense) error
	RemoveExpense(ctx context.Context, id string) error

	CloseRegister(ctx context.Context, op Operation, paymentIDs []string, clerk string) (Operation, error)
	Operations(ctx context.Context) ([]Operation, error)
}

// CloseInput carries the clerk-entered figures for a register close.
type CloseInput struct {
	Clerk            string
	Deposited        decimal.Decimal
	MBWayDeposited   decimal.Decimal
	Adjustment       decimal.Decimal
	SpentDescription string
	Pending          PendingChangeSet
	Force            bool // proceed despite a balance mismatch
}

// Register is the application service over a Ledger.
type Register struct {
	ledger Ledger
	now    func() time.Time
	newID  func() string
}

// NewRegister wires a register service. now and newID default to the clock
// and uuid generation and exist as hooks for tests.
func NewRegister(ledger Ledger, now func() time.Time, newID func() string) *Register {
	return &Register{ledger: ledger, now: now, newID: newID}
}

// Commit applies a pending change set: deletions first, then upserts.
func (r *Register) Commit(ctx context.Context, changes PendingChangeSet) error {
	if changes.Empty() {
		return nil
	}
	if err := r.ledger.Commit(ctx, changes); err != nil {
		return fmt.Errorf("commit pending changes: %w", err)
	}
	return nil
}

// SaveAgreement validates and persists a payment plan. Completed is derived
// and never stored.
func (r *Register) SaveAgreement(ctx context.Context, a Agreement) error {
	if !a.MonthlyAmount.IsPositive() || a.PaidUntilMonth < 1 || a.PaidUntilMonth > 12 || a.DebtAmount.IsNegative() {
		return ErrInvalidAgreement
	}
	if a.Status == AgreementCompleted {
		a.Status = AgreementActive
	}
	if a.ID == "" {
		a.ID = r.newID()
	}
	if err := r.ledger.SaveAgreement(ctx, a); err != nil {
		return fmt.Errorf("save agreement: %w", err)
	}
	return nil
}

// RecordInstallment settles the next open month of a plan, capped at the
// remaining debt. Returns the created payment.
func (r *Register) RecordInstallment(ctx context.Context, a Agreement, requested decimal.Decimal) (Payment, error) {
	payments, err := r.ledger.PaymentsForYear(ctx, a.Year)
	if err != nil {
		return Payment{}, fmt.Errorf("load payments for installment: %w", err)
	}

	payment, ok := InstallmentPayment(a, payments, requested, r.now(), r.newID)
	if !ok {
		return Payment{}, fmt.Errorf("%w: no open month or no outstanding debt", ErrInvalidAgreement)
	}

	changes := PendingChangeSet{Changes: []PendingChange{{Op: OpUpsert, Payment: payment}}}
	if err := r.ledger.Commit(ctx, changes); err != nil {
		return Payment{}, fmt.Errorf("record installment: %w", err)
	}
	return payment, nil
}

// Close runs the close-register sequence: silently save pending edits,
// collect the open payments, check the balance equation, then snapshot
// everything through the ledger's atomic CloseRegister.
func (r *Register) Close(ctx context.Context, in CloseInput, clientNames map[string]string) (Operation, error) {
	if err := r.Commit(ctx, in.Pending); err != nil {
		return Operation{}, err
	}

	open, err := r.ledger.OpenPayments(ctx)
	if err != nil {
		return Operation{}, fmt.Errorf("load open payments: %w", err)
	}

	expenses, err := r.ledger.ExpensesFor(ctx, in.Clerk)
	if err != nil {
		return Operation{}, fmt.Errorf("load session expenses: %w", err)
	}
	spent := decimal.Zero
	for _, e := range expenses {
		spent = spent.Add(e.Amount)
	}

	if len(open) == 0 && spent.IsZero() {
		return Operation{}, ErrNothingToClose
	}

	totalCash := decimal.Zero
	for _, p := range open {
		if p.Method == MethodCash {
			totalCash = totalCash.Add(p.Amount)
		}
	}

	expected := in.Deposited.Add(spent).Add(in.Adjustment)
	if totalCash.Sub(expected).Abs().GreaterThan(balanceTolerance) && !in.Force {
		return Operation{}, fmt.Errorf("%w: cash %s, deposit %s, expenses %s, adjustment %s",
			ErrUnbalanced, totalCash, in.Deposited, spent, in.Adjustment)
	}

	ids := make([]string, len(open))
	for i, p := range open {
		ids[i] = p.ID
	}

	op := Operation{
		ID:               r.newID(),
		CreatedAt:        r.now(),
		DepositedAmount:  in.Deposited,
		MBWayDeposited:   in.MBWayDeposited,
		SpentAmount:      spent,
		AdjustmentAmount: in.Adjustment,
		SpentDescription: in.SpentDescription,
		Details:          BuildReport(open, clientNames),
	}

	created, err := r.ledger.CloseRegister(ctx, op, ids, in.Clerk)
	if err != nil {
		return Operation{}, fmt.Errorf("close register: %w", err)
	}
	return created, nil
}

// BuildReport groups payments by (client, method), summing amounts and
// listing paid month names in calendar order. Groups are sorted by client
// name then method for a stable report.
func BuildReport(payments []Payment, clientNames map[string]string) []OperationDetail {
	type key struct {
		clientID string
		method   PaymentMethod
	}
	groups := make(map[key]*OperationDetail)
	order := make([]key, 0)

	sorted := make([]Payment, len(payments))
	copy(sorted, payments)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Year != sorted[j].Year {
			return sorted[i].Year < sorted[j].Year
		}
		return sorted[i].Month < sorted[j].Month
	})

	for _, p := range sorted {
		k := key{p.ClientID, p.Method}
		detail, ok := groups[k]
		if !ok {
			detail = &OperationDetail{
				ClientID:   p.ClientID,
				ClientName: clientNames[p.ClientID],
				Method:     p.Method,
				Total:      decimal.Zero,
			}
			groups[k] = detail
			order = append(order, k)
		}
		detail.Total = detail.Total.Add(p.Amount)
		detail.Months = append(detail.Months, MonthName(p.Month))
	}

	details := make([]OperationDetail, 0, len(order))
	for _, k := range order {
		details = append(details, *groups[k])
	}
	sort.Slice(details, func(i, j int) bool {
		if details[i].ClientName != details[j].ClientName {
			return details[i].ClientName < details[j].ClientName
		}
		return details[i].Method < details[j].Method
	})
	return details
}
