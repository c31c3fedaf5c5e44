package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ruimtc/gabinete/internal/model"
)

var errNotFound = errors.New("record not found")

const clientColumns = `
	id, name, tax_id, COALESCE(address, ''), COALESCE(email, ''), COALESCE(sector, ''), COALESCE(entity_type, ''),
	status, monthly_fee, responsible_staff,
	employee_count, document_count, establishments, banks, turnover, call_time_balance, travel_count,
	has_foreign_ops, has_group_company, payroll_complexes,
	COALESCE(contract_renewal, ''), COALESCE(advisory_json, ''), COALESCE(advisory_generated, '')`

func scanClient(row interface{ Scan(...any) error }) (model.Client, error) {
	var c model.Client
	var responsible, renewal, advisoryAt string
	err := row.Scan(
		&c.ID, &c.Name, &c.TaxID, &c.Address, &c.Email, &c.Sector, &c.EntityType,
		&c.Status, &c.MonthlyFee, &responsible,
		&c.EmployeeCount, &c.DocumentCount, &c.Establishments, &c.Banks, &c.Turnover, &c.CallTimeBalance, &c.TravelCount,
		&c.HasForeignOps, &c.HasGroupCompany, &c.PayrollComplexes,
		&renewal, &c.AdvisoryJSON, &advisoryAt,
	)
	if err != nil {
		return model.Client{}, err
	}
	c.ResponsibleStaff = model.ParseStaffRef(responsible)
	if renewal != "" {
		if t, err := time.Parse(time.RFC3339, renewal); err == nil {
			c.ContractRenewal = &t
		}
	}
	if advisoryAt != "" {
		if t, err := time.Parse(time.RFC3339, advisoryAt); err == nil {
			c.AdvisoryGenerated = &t
		}
	}
	return c, nil
}

func (s *server) listClients(ctx context.Context, status string) ([]model.Client, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+clientColumns+`
		FROM clients
		WHERE (? = '' OR status = ?)
		ORDER BY name, id
	`, status, status)
	if err != nil {
		return nil, fmt.Errorf("query clients: %w", err)
	}
	defer rows.Close()

	clients := make([]model.Client, 0)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clients: %w", err)
	}

	for i := range clients {
		overrides, err := s.loadOverrides(ctx, clients[i].ID)
		if err != nil {
			return nil, err
		}
		clients[i].Overrides = overrides
	}
	return clients, nil
}

func (s *server) getClient(ctx context.Context, id string) (model.Client, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = ?`, id)
	c, err := scanClient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Client{}, errNotFound
	}
	if err != nil {
		return model.Client{}, fmt.Errorf("query client %s: %w", id, err)
	}

	c.Overrides, err = s.loadOverrides(ctx, id)
	if err != nil {
		return model.Client{}, err
	}
	return c, nil
}

func (s *server) loadOverrides(ctx context.Context, clientID string) ([]model.ClientTaskOverride, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT task_id, frequency_per_year, multiplier, COALESCE(assigned_staff_id, '')
		FROM client_task_overrides
		WHERE client_id = ?
		ORDER BY task_id
	`, clientID)
	if err != nil {
		return nil, fmt.Errorf("query overrides: %w", err)
	}
	defer rows.Close()

	overrides := make([]model.ClientTaskOverride, 0)
	for rows.Next() {
		var o model.ClientTaskOverride
		if err := rows.Scan(&o.TaskID, &o.FrequencyPerYear, &o.Multiplier, &o.AssignedStaffID); err != nil {
			return nil, fmt.Errorf("scan override: %w", err)
		}
		overrides = append(overrides, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate overrides: %w", err)
	}
	return overrides, nil
}

// saveClient writes the whole record in one transaction: the client row plus
// a full replace of its overrides. The edit workflow saves complete records,
// never field-level patches.
func (s *server) saveClient(ctx context.Context, c model.Client) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin client save: %w", err)
	}

	var renewal, advisoryAt any
	if c.ContractRenewal != nil {
		renewal = c.ContractRenewal.UTC().Format(time.RFC3339)
	}
	if c.AdvisoryGenerated != nil {
		advisoryAt = c.AdvisoryGenerated.UTC().Format(time.RFC3339)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO clients (
			id, name, tax_id, address, email, sector, entity_type, status, monthly_fee, responsible_staff,
			employee_count, document_count, establishments, banks, turnover, call_time_balance, travel_count,
			has_foreign_ops, has_group_company, payroll_complexes, contract_renewal, advisory_json, advisory_generated
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			tax_id = excluded.tax_id,
			address = excluded.address,
			email = excluded.email,
			sector = excluded.sector,
			entity_type = excluded.entity_type,
			status = excluded.status,
			monthly_fee = excluded.monthly_fee,
			responsible_staff = excluded.responsible_staff,
			employee_count = excluded.employee_count,
			document_count = excluded.document_count,
			establishments = excluded.establishments,
			banks = excluded.banks,
			turnover = excluded.turnover,
			call_time_balance = excluded.call_time_balance,
			travel_count = excluded.travel_count,
			has_foreign_ops = excluded.has_foreign_ops,
			has_group_company = excluded.has_group_company,
			payroll_complexes = excluded.payroll_complexes,
			contract_renewal = excluded.contract_renewal,
			advisory_json = excluded.advisory_json,
			advisory_generated = excluded.advisory_generated,
			updated_at = CURRENT_TIMESTAMP
	`,
		c.ID, c.Name, c.TaxID, c.Address, c.Email, c.Sector, c.EntityType, c.Status, c.MonthlyFee, c.ResponsibleStaff.Raw(),
		c.EmployeeCount, c.DocumentCount, c.Establishments, c.Banks, c.Turnover, c.CallTimeBalance, c.TravelCount,
		c.HasForeignOps, c.HasGroupCompany, c.PayrollComplexes, renewal, c.AdvisoryJSON, advisoryAt,
	); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("upsert client %s: %w", c.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM client_task_overrides WHERE client_id = ?`, c.ID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear overrides for %s: %w", c.ID, err)
	}
	for _, o := range c.Overrides {
		var assigned any
		if o.AssignedStaffID != "" {
			assigned = o.AssignedStaffID
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO client_task_overrides (client_id, task_id, frequency_per_year, multiplier, assigned_staff_id)
			VALUES (?, ?, ?, ?, ?)
		`, c.ID, o.TaskID, o.FrequencyPerYear, o.Multiplier, assigned); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert override (%s, %s): %w", c.ID, o.TaskID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit client save: %w", err)
	}
	return nil
}

func (s *server) listStaff(ctx context.Context) ([]model.Staff, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(role, ''), base_salary, social_charge_percent, meal_allowance, other_monthly_costs, capacity_hours_per_month
		FROM staff
		ORDER BY name, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query staff: %w", err)
	}
	defer rows.Close()

	roster := make([]model.Staff, 0)
	for rows.Next() {
		var st model.Staff
		if err := rows.Scan(&st.ID, &st.Name, &st.Role, &st.BaseSalary, &st.SocialChargePercent, &st.MealAllowance, &st.OtherMonthlyCosts, &st.CapacityHoursPerMonth); err != nil {
			return nil, fmt.Errorf("scan staff: %w", err)
		}
		roster = append(roster, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate staff: %w", err)
	}
	return roster, nil
}

func (s *server) saveStaff(ctx context.Context, st model.Staff) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO staff (id, name, role, base_salary, social_charge_percent, meal_allowance, other_monthly_costs, capacity_hours_per_month)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			role = excluded.role,
			base_salary = excluded.base_salary,
			social_charge_percent = excluded.social_charge_percent,
			meal_allowance = excluded.meal_allowance,
			other_monthly_costs = excluded.other_monthly_costs,
			capacity_hours_per_month = excluded.capacity_hours_per_month,
			updated_at = CURRENT_TIMESTAMP
	`, st.ID, st.Name, st.Role, st.BaseSalary, st.SocialChargePercent, st.MealAllowance, st.OtherMonthlyCosts, st.CapacityHoursPerMonth)
	if err != nil {
		return fmt.Errorf("upsert staff %s: %w", st.ID, err)
	}
	return nil
}

func (s *server) listTasks(ctx context.Context) ([]model.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, area, type, default_time_minutes, default_frequency_per_year, multiplier_logic
		FROM tasks
		ORDER BY area, name
	`)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		var t model.Task
		if err := rows.Scan(&t.ID, &t.Name, &t.Area, &t.Type, &t.DefaultTimeMinutes, &t.DefaultFrequencyPerYear, &t.MultiplierLogic); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

func (s *server) saveTask(ctx context.Context, t model.Task) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, name, area, type, default_time_minutes, default_frequency_per_year, multiplier_logic)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			area = excluded.area,
			type = excluded.type,
			default_time_minutes = excluded.default_time_minutes,
			default_frequency_per_year = excluded.default_frequency_per_year,
			multiplier_logic = excluded.multiplier_logic
	`, t.ID, t.Name, t.Area, t.Type, t.DefaultTimeMinutes, t.DefaultFrequencyPerYear, t.MultiplierLogic)
	if err != nil {
		return fmt.Errorf("upsert task %s: %w", t.ID, err)
	}
	return nil
}

func (s *server) loadBrackets(ctx context.Context) ([]model.TurnoverBracket, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT min_turnover, max_turnover, min_percent, max_percent
		FROM turnover_brackets
		ORDER BY position, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query turnover brackets: %w", err)
	}
	defer rows.Close()

	brackets := make([]model.TurnoverBracket, 0)
	for rows.Next() {
		var b model.TurnoverBracket
		if err := rows.Scan(&b.MinTurnover, &b.MaxTurnover, &b.MinPercent, &b.MaxPercent); err != nil {
			return nil, fmt.Errorf("scan turnover bracket: %w", err)
		}
		brackets = append(brackets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turnover brackets: %w", err)
	}
	return brackets, nil
}

// replaceBrackets swaps the whole fair-value table; position preserves the
// caller's array order, which is load-bearing for first-match lookup.
func (s *server) replaceBrackets(ctx context.Context, brackets []model.TurnoverBracket) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bracket replace: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM turnover_brackets`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear turnover brackets: %w", err)
	}
	for i, b := range brackets {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO turnover_brackets (position, min_turnover, max_turnover, min_percent, max_percent)
			VALUES (?, ?, ?, ?, ?)
		`, i, b.MinTurnover, b.MaxTurnover, b.MinPercent, b.MaxPercent); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert turnover bracket %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bracket replace: %w", err)
	}
	return nil
}

func (s *server) loadAreaCosts(ctx context.Context) (model.AreaCosts, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT area, hourly_cost FROM area_costs`)
	if err != nil {
		return nil, fmt.Errorf("query area costs: %w", err)
	}
	defer rows.Close()

	costs := make(model.AreaCosts)
	for rows.Next() {
		var area model.Area
		var cost float64
		if err := rows.Scan(&area, &cost); err != nil {
			return nil, fmt.Errorf("scan area cost: %w", err)
		}
		costs[area] = cost
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate area costs: %w", err)
	}
	return costs, nil
}

func (s *server) saveAreaCost(ctx context.Context, area model.Area, cost float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO area_costs (area, hourly_cost) VALUES (?, ?)
		ON CONFLICT(area) DO UPDATE SET hourly_cost = excluded.hourly_cost
	`, area, cost)
	if err != nil {
		return fmt.Errorf("upsert area cost %s: %w", area, err)
	}
	return nil
}
