// Package seed installs the firm's baseline reference data on startup:
// the admin user, area default costs, the turnover fair-value table and a
// starter task catalog. Runs are idempotent and transactional.
package seed

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"

	"github.com/ruimtc/gabinete/internal/model"
)

// Config contains the values required by startup seed.
type Config struct {
	AdminEmail    string
	AdminPassword string
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
}

type defaultTask struct {
	id        string
	name      string
	area      model.Area
	taskType  model.TaskType
	minutes   float64
	frequency float64
	logic     model.MultiplierLogic
}

var defaultTasks = []defaultTask{
	{"proc-contabilidade", "Processamento contabilístico", model.AreaAccounting, model.TaskObligation, 2, 12, model.LogicDocumentCount},
	{"proc-salarios", "Processamento salarial", model.AreaHR, model.TaskObligation, 15, 14, model.LogicEmployeeCount},
	{"reconc-bancaria", "Reconciliação bancária", model.AreaAccounting, model.TaskObligation, 30, 12, model.LogicBanks},
	{"decl-iva", "Declaração periódica de IVA", model.AreaTax, model.TaskObligation, 60, 4, model.LogicManual},
	{"modelo-22", "Modelo 22 / IES", model.AreaTax, model.TaskObligation, 240, 1, model.LogicManual},
	{"reuniao-gestao", "Reunião de acompanhamento", model.AreaManagement, model.TaskNeed, 60, 2, model.LogicEstablishments},
}

var defaultAreaCosts = map[model.Area]float64{
	model.AreaAccounting: 18,
	model.AreaHR:         16,
	model.AreaAdmin:      14,
	model.AreaConsulting: 35,
	model.AreaTax:        25,
	model.AreaManagement: 30,
}

type defaultBracket struct {
	min, max               float64
	minPercent, maxPercent float64
}

var defaultBrackets = []defaultBracket{
	{0, 50000, 2.4, 3.6},
	{50000, 150000, 1.6, 2.4},
	{150000, 500000, 1.0, 1.6},
	{500000, 1500000, 0.6, 1.0},
	{1500000, 10000000, 0.3, 0.6},
}

// Run executes the startup seed in an idempotent way.
func Run(db *sql.DB, cfg Config) (Stats, error) {
	tx, err := db.Begin()
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}

	if err := seedAdmin(tx, cfg.AdminEmail, cfg.AdminPassword, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if err := seedAreaCosts(tx, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if err := seedBrackets(tx, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if err := seedTasks(tx, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

// HashPassword is the password digest shared with the auth service.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

func seedAdmin(tx *sql.Tx, email, password string, stats *Stats) error {
	if email == "" || password == "" {
		return nil
	}

	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM users WHERE email = ? LIMIT 1)`, email).Scan(&exists); err != nil {
		return fmt.Errorf("check admin user existence: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := tx.Exec(`INSERT INTO users (email, password_hash) VALUES (?, ?)`, email, HashPassword(password)); err != nil {
		return fmt.Errorf("insert admin user: %w", err)
	}
	stats.Inserts++
	return nil
}

func seedAreaCosts(tx *sql.Tx, stats *Stats) error {
	for area, cost := range defaultAreaCosts {
		var exists bool
		if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM area_costs WHERE area = ?)`, area).Scan(&exists); err != nil {
			return fmt.Errorf("check area cost existence: %w", err)
		}
		if exists {
			continue
		}
		if _, err := tx.Exec(`INSERT INTO area_costs (area, hourly_cost) VALUES (?, ?)`, area, cost); err != nil {
			return fmt.Errorf("insert area cost %s: %w", area, err)
		}
		stats.Inserts++
	}
	return nil
}

func seedBrackets(tx *sql.Tx, stats *Stats) error {
	var count int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM turnover_brackets`).Scan(&count); err != nil {
		return fmt.Errorf("count turnover brackets: %w", err)
	}
	if count > 0 {
		return nil
	}

	for i, b := range defaultBrackets {
		if _, err := tx.Exec(`
			INSERT INTO turnover_brackets (position, min_turnover, max_turnover, min_percent, max_percent)
			VALUES (?, ?, ?, ?, ?)
		`, i, b.min, b.max, b.minPercent, b.maxPercent); err != nil {
			return fmt.Errorf("insert turnover bracket %d: %w", i, err)
		}
		stats.Inserts++
	}
	return nil
}

func seedTasks(tx *sql.Tx, stats *Stats) error {
	for _, t := range defaultTasks {
		var exists bool
		if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM tasks WHERE id = ?)`, t.id).Scan(&exists); err != nil {
			return fmt.Errorf("check task existence: %w", err)
		}
		if exists {
			continue
		}
		if _, err := tx.Exec(`
			INSERT INTO tasks (id, name, area, type, default_time_minutes, default_frequency_per_year, multiplier_logic)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, t.id, t.name, t.area, t.taskType, t.minutes, t.frequency, t.logic); err != nil {
			return fmt.Errorf("insert task %s: %w", t.id, err)
		}
		stats.Inserts++
	}
	return nil
}
