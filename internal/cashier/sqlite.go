package cashier

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SQLiteLedger persists the register in sqlite. Monetary columns are stored
// as exact decimal strings; timestamps as RFC 3339 text.
type SQLiteLedger struct {
	db *sql.DB
}

// NewSQLiteLedger wraps an open database handle.
func NewSQLiteLedger(db *sql.DB) *SQLiteLedger {
	return &SQLiteLedger{db: db}
}

const paymentColumns = `id, client_id, payment_year, payment_month, amount, method, paid_at, COALESCE(cash_operation_id, '')`

func scanPayment(row interface{ Scan(...any) error }) (Payment, error) {
	var p Payment
	var paidAt string
	if err := row.Scan(&p.ID, &p.ClientID, &p.Year, &p.Month, &p.Amount, &p.Method, &paidAt, &p.OperationID); err != nil {
		return Payment{}, err
	}
	t, err := time.Parse(time.RFC3339, paidAt)
	if err != nil {
		return Payment{}, fmt.Errorf("parse paid_at %q: %w", paidAt, err)
	}
	p.PaidAt = t
	return p, nil
}

func (l *SQLiteLedger) queryPayments(ctx context.Context, query string, args ...any) ([]Payment, error) {
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	payments := make([]Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return payments, nil
}

// PaymentsForYear lists every payment of a register year.
func (l *SQLiteLedger) PaymentsForYear(ctx context.Context, year int) ([]Payment, error) {
	return l.queryPayments(ctx, `
		SELECT `+paymentColumns+`
		FROM cash_payments
		WHERE payment_year = ?
		ORDER BY client_id, payment_month
	`, year)
}

// OpenPayments lists every payment not yet locked into a closed register.
func (l *SQLiteLedger) OpenPayments(ctx context.Context) ([]Payment, error) {
	return l.queryPayments(ctx, `
		SELECT `+paymentColumns+`
		FROM cash_payments
		WHERE cash_operation_id IS NULL
		ORDER BY client_id, payment_year, payment_month
	`)
}

// Commit applies a pending change set in one transaction, deletions before
// upserts. Processed payments are never deleted or overwritten.
func (l *SQLiteLedger) Commit(ctx context.Context, changes PendingChangeSet) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commit transaction: %w", err)
	}

	for _, id := range changes.Deletes() {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM cash_payments
			WHERE id = ? AND cash_operation_id IS NULL
		`, id); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("delete payment %s: %w", id, err)
		}
	}

	for _, p := range changes.Upserts() {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cash_payments (id, client_id, payment_year, payment_month, amount, method, paid_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				amount = excluded.amount,
				method = excluded.method,
				paid_at = excluded.paid_at
			WHERE cash_operation_id IS NULL
		`, p.ID, p.ClientID, p.Year, p.Month, p.Amount.String(), p.Method, p.PaidAt.UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert payment %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit pending changes: %w", err)
	}
	return nil
}

// AgreementsForYear lists the payment plans of a register year.
func (l *SQLiteLedger) AgreementsForYear(ctx context.Context, year int) ([]Agreement, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, client_id, agreement_year, paid_until_month, monthly_amount, debt_amount, status, COALESCE(notes, ''), called, letter_sent
		FROM cash_agreements
		WHERE agreement_year = ?
		ORDER BY client_id
	`, year)
	if err != nil {
		return nil, fmt.Errorf("query agreements: %w", err)
	}
	defer rows.Close()

	agreements := make([]Agreement, 0)
	for rows.Next() {
		var a Agreement
		if err := rows.Scan(&a.ID, &a.ClientID, &a.Year, &a.PaidUntilMonth, &a.MonthlyAmount, &a.DebtAmount, &a.Status, &a.Notes, &a.Called, &a.LetterSent); err != nil {
			return nil, fmt.Errorf("scan agreement: %w", err)
		}
		agreements = append(agreements, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate agreements: %w", err)
	}
	return agreements, nil
}

// SaveAgreement upserts a payment plan by id.
func (l *SQLiteLedger) SaveAgreement(ctx context.Context, a Agreement) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO cash_agreements (id, client_id, agreement_year, paid_until_month, monthly_amount, debt_amount, status, notes, called, letter_sent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			paid_until_month = excluded.paid_until_month,
			monthly_amount = excluded.monthly_amount,
			debt_amount = excluded.debt_amount,
			status = excluded.status,
			notes = excluded.notes,
			called = excluded.called,
			letter_sent = excluded.letter_sent
	`, a.ID, a.ClientID, a.Year, a.PaidUntilMonth, a.MonthlyAmount.String(), a.DebtAmount.String(), a.Status, a.Notes, a.Called, a.LetterSent)
	if err != nil {
		return fmt.Errorf("upsert agreement %s: %w", a.ID, err)
	}
	return nil
}

// ExpensesFor lists the clerk's pending session expenses.
func (l *SQLiteLedger) ExpensesFor(ctx context.Context, clerk string) ([]Expense, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, clerk, description, amount, created_at
		FROM session_expenses
		WHERE clerk = ?
		ORDER BY created_at, id
	`, clerk)
	if err != nil {
		return nil, fmt.Errorf("query session expenses: %w", err)
	}
	defer rows.Close()

	expenses := make([]Expense, 0)
	for rows.Next() {
		var e Expense
		var createdAt string
		if err := rows.Scan(&e.ID, &e.Clerk, &e.Description, &e.Amount, &createdAt); err != nil {
			return nil, fmt.Errorf("scan session expense: %w", err)
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse expense created_at %q: %w", createdAt, err)
		}
		e.CreatedAt = t
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session expenses: %w", err)
	}
	return expenses, nil
}

// AddExpense records a clerk-local session expense.
func (l *SQLiteLedger) AddExpense(ctx context.Context, e Expense) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO session_expenses (id, clerk, description, amount, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, e.ID, e.Clerk, e.Description, e.Amount.String(), e.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert session expense: %w", err)
	}
	return nil
}

// RemoveExpense drops a session expense before the register closes.
func (l *SQLiteLedger) RemoveExpense(ctx context.Context, id string) error {
	if _, err := l.db.ExecContext(ctx, `DELETE FROM session_expenses WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session expense %s: %w", id, err)
	}
	return nil
}

// CloseRegister snapshots the open payments into an immutable operation.
// Everything runs in one transaction: the operation row, the report details,
// every payment stamp and the clerk's expense drain land together or not at
// all. A payment that is already stamped aborts the whole close.
func (l *SQLiteLedger) CloseRegister(ctx context.Context, op Operation, paymentIDs []string, clerk string) (Operation, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return Operation{}, fmt.Errorf("begin close transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO cash_operations (id, created_at, deposited_amount, mbway_deposited_amount, spent_amount, adjustment_amount, spent_description)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, op.ID, op.CreatedAt.UTC().Format(time.RFC3339), op.DepositedAmount.String(), op.MBWayDeposited.String(), op.SpentAmount.String(), op.AdjustmentAmount.String(), op.SpentDescription); err != nil {
		_ = tx.Rollback()
		return Operation{}, fmt.Errorf("insert cash operation: %w", err)
	}

	for _, d := range op.Details {
		months, err := json.Marshal(d.Months)
		if err != nil {
			_ = tx.Rollback()
			return Operation{}, fmt.Errorf("encode report months: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cash_operation_details (operation_id, client_id, client_name, method, total, months_json)
			VALUES (?, ?, ?, ?, ?, ?)
		`, op.ID, d.ClientID, d.ClientName, d.Method, d.Total.String(), string(months)); err != nil {
			_ = tx.Rollback()
			return Operation{}, fmt.Errorf("insert report detail: %w", err)
		}
	}

	for _, id := range paymentIDs {
		result, err := tx.ExecContext(ctx, `
			UPDATE cash_payments
			SET cash_operation_id = ?
			WHERE id = ? AND cash_operation_id IS NULL
		`, op.ID, id)
		if err != nil {
			_ = tx.Rollback()
			return Operation{}, fmt.Errorf("stamp payment %s: %w", id, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			_ = tx.Rollback()
			return Operation{}, fmt.Errorf("stamp payment %s: %w", id, err)
		}
		if affected != 1 {
			_ = tx.Rollback()
			return Operation{}, fmt.Errorf("payment %s is missing or already processed", id)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM session_expenses WHERE clerk = ?`, clerk); err != nil {
		_ = tx.Rollback()
		return Operation{}, fmt.Errorf("drain session expenses: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Operation{}, fmt.Errorf("commit close transaction: %w", err)
	}
	return op, nil
}

// Operations lists the closed-register audit trail, newest first.
func (l *SQLiteLedger) Operations(ctx context.Context) ([]Operation, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, created_at, deposited_amount, mbway_deposited_amount, spent_amount, adjustment_amount, COALESCE(spent_description, '')
		FROM cash_operations
		ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query cash operations: %w", err)
	}
	defer rows.Close()

	ops := make([]Operation, 0)
	for rows.Next() {
		var op Operation
		var createdAt string
		if err := rows.Scan(&op.ID, &createdAt, &op.DepositedAmount, &op.MBWayDeposited, &op.SpentAmount, &op.AdjustmentAmount, &op.SpentDescription); err != nil {
			return nil, fmt.Errorf("scan cash operation: %w", err)
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse operation created_at %q: %w", createdAt, err)
		}
		op.CreatedAt = t
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cash operations: %w", err)
	}

	for i := range ops {
		details, err := l.operationDetails(ctx, ops[i].ID)
		if err != nil {
			return nil, err
		}
		ops[i].Details = details
	}
	return ops, nil
}

func (l *SQLiteLedger) operationDetails(ctx context.Context, operationID string) ([]OperationDetail, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT client_id, client_name, method, total, months_json
		FROM cash_operation_details
		WHERE operation_id = ?
		ORDER BY client_name, method
	`, operationID)
	if err != nil {
		return nil, fmt.Errorf("query report details: %w", err)
	}
	defer rows.Close()

	details := make([]OperationDetail, 0)
	for rows.Next() {
		var d OperationDetail
		var months string
		if err := rows.Scan(&d.ClientID, &d.ClientName, &d.Method, &d.Total, &months); err != nil {
			return nil, fmt.Errorf("scan report detail: %w", err)
		}
		if err := json.Unmarshal([]byte(months), &d.Months); err != nil {
			return nil, fmt.Errorf("decode report months: %w", err)
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate report details: %w", err)
	}
	return details, nil
}
