package main

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ruimtc/gabinete/internal/advisory"
	"github.com/ruimtc/gabinete/internal/cashier"
	"github.com/ruimtc/gabinete/internal/mailer"
	"github.com/ruimtc/gabinete/internal/model"
)

// Keep in sync with the migrations under migrations/.
func newServerTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite db: %v", err)
	}

	_, err = db.Exec(`
		CREATE TABLE users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE staff (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			role TEXT,
			base_salary REAL NOT NULL DEFAULT 0,
			social_charge_percent REAL NOT NULL DEFAULT 0,
			meal_allowance REAL NOT NULL DEFAULT 0,
			other_monthly_costs REAL NOT NULL DEFAULT 0,
			capacity_hours_per_month REAL NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE clients (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			tax_id TEXT NOT NULL DEFAULT '',
			address TEXT,
			email TEXT,
			sector TEXT,
			entity_type TEXT,
			status TEXT NOT NULL DEFAULT 'active',
			monthly_fee REAL NOT NULL DEFAULT 0,
			responsible_staff TEXT NOT NULL DEFAULT '',
			employee_count REAL NOT NULL DEFAULT 0,
			document_count REAL NOT NULL DEFAULT 0,
			establishments REAL NOT NULL DEFAULT 0,
			banks REAL NOT NULL DEFAULT 0,
			turnover REAL NOT NULL DEFAULT 0,
			call_time_balance REAL NOT NULL DEFAULT 0,
			travel_count REAL NOT NULL DEFAULT 0,
			has_foreign_ops INTEGER NOT NULL DEFAULT 0,
			has_group_company INTEGER NOT NULL DEFAULT 0,
			payroll_complexes INTEGER NOT NULL DEFAULT 0,
			contract_renewal TEXT,
			advisory_json TEXT,
			advisory_generated TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE tasks (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			area TEXT NOT NULL,
			type TEXT NOT NULL,
			default_time_minutes REAL NOT NULL DEFAULT 0,
			default_frequency_per_year REAL NOT NULL DEFAULT 0,
			multiplier_logic TEXT NOT NULL DEFAULT 'manual'
		);
		CREATE TABLE client_task_overrides (
			client_id TEXT NOT NULL,
			task_id TEXT NOT NULL,
			frequency_per_year REAL NOT NULL DEFAULT 0,
			multiplier REAL NOT NULL DEFAULT 0,
			assigned_staff_id TEXT,
			PRIMARY KEY (client_id, task_id)
		);
		CREATE TABLE turnover_brackets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			position INTEGER NOT NULL,
			min_turnover REAL NOT NULL,
			max_turnover REAL NOT NULL,
			min_percent REAL NOT NULL,
			max_percent REAL NOT NULL
		);
		CREATE TABLE area_costs (
			area TEXT PRIMARY KEY,
			hourly_cost REAL NOT NULL
		);
		CREATE TABLE cash_payments (
			id TEXT PRIMARY KEY,
			client_id TEXT NOT NULL,
			payment_year INTEGER NOT NULL,
			payment_month INTEGER NOT NULL,
			amount TEXT NOT NULL,
			method TEXT NOT NULL,
			paid_at TEXT NOT NULL,
			cash_operation_id TEXT
		);
		CREATE TABLE cash_agreements (
			id TEXT PRIMARY KEY,
			client_id TEXT NOT NULL,
			agreement_year INTEGER NOT NULL,
			paid_until_month INTEGER NOT NULL,
			monthly_amount TEXT NOT NULL,
			debt_amount TEXT NOT NULL,
			status TEXT NOT NULL,
			notes TEXT,
			called INTEGER NOT NULL DEFAULT 0,
			letter_sent INTEGER NOT NULL DEFAULT 0
		);
		CREATE TABLE session_expenses (
			id TEXT PRIMARY KEY,
			clerk TEXT NOT NULL,
			description TEXT NOT NULL,
			amount TEXT NOT NULL,
			created_at TEXT NOT NULL
		);
		CREATE TABLE cash_operations (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			deposited_amount TEXT NOT NULL,
			mbway_deposited_amount TEXT NOT NULL,
			spent_amount TEXT NOT NULL,
			adjustment_amount TEXT NOT NULL,
			spent_description TEXT
		);
		CREATE TABLE cash_operation_details (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			operation_id TEXT NOT NULL,
			client_id TEXT NOT NULL,
			client_name TEXT NOT NULL,
			method TEXT NOT NULL,
			total TEXT NOT NULL,
			months_json TEXT NOT NULL
		);
		CREATE TABLE email_campaigns (
			id TEXT PRIMARY KEY,
			topic TEXT NOT NULL,
			tone TEXT NOT NULL,
			subject TEXT NOT NULL DEFAULT '',
			body TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'draft',
			recipient_count INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			sent_at TEXT
		);
	`)
	if err != nil {
		t.Fatalf("failed creating schema: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

func newTestServer(t *testing.T) *server {
	t.Helper()

	db := newServerTestDB(t)
	ledger := cashier.NewSQLiteLedger(db)
	return &server{
		db:       db,
		auth:     newAuthService(db, "test-secret"),
		ledger:   ledger,
		register: cashier.NewRegister(ledger, func() time.Time { return time.Now().UTC() }, model.NewID),
		advisory: advisory.New("", ""),
		sender:   mailer.NewSMTPSender("", ""),
	}
}
