// Package model holds the domain records shared by the analytic core, the
// cash register and the HTTP layer.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Area is a task category with its own default hourly cost.
type Area string

const (
	AreaAccounting Area = "accounting"
	AreaHR         Area = "hr"
	AreaAdmin      Area = "admin"
	AreaConsulting Area = "consulting"
	AreaTax        Area = "tax"
	AreaManagement Area = "management"
)

// TaskType distinguishes legal obligations from optional work.
type TaskType string

const (
	TaskObligation TaskType = "obligation"
	TaskNeed       TaskType = "need"
	TaskExtra      TaskType = "extra"
)

// MultiplierLogic names which client attribute drives a task's quantity when
// no manual override exists.
type MultiplierLogic string

const (
	LogicManual         MultiplierLogic = "manual"
	LogicEmployeeCount  MultiplierLogic = "employeeCount"
	LogicDocumentCount  MultiplierLogic = "documentCount"
	LogicEstablishments MultiplierLogic = "establishments"
	LogicBanks          MultiplierLogic = "banks"
)

// Task is a catalog entry, global and admin-edited.
type Task struct {
	ID                      string          `json:"id"`
	Name                    string          `json:"name"`
	Area                    Area            `json:"area"`
	Type                    TaskType        `json:"type"`
	DefaultTimeMinutes      float64         `json:"default_time_minutes"`
	DefaultFrequencyPerYear float64         `json:"default_frequency_per_year"`
	MultiplierLogic         MultiplierLogic `json:"multiplier_logic,omitempty"`
}

// ClientTaskOverride is a client-specific deviation from a task's defaults.
// At most one override exists per (client, task) pair.
type ClientTaskOverride struct {
	TaskID           string  `json:"task_id"`
	FrequencyPerYear float64 `json:"frequency_per_year"`
	Multiplier       float64 `json:"multiplier"`
	AssignedStaffID  string  `json:"assigned_staff_id,omitempty"`
}

// ClientStatus is the client lifecycle state.
type ClientStatus string

const (
	ClientActive   ClientStatus = "active"
	ClientProspect ClientStatus = "prospect"
	ClientInactive ClientStatus = "inactive"
)

// StaffRef points at a staff member either by id or, for legacy records
// imported from the old spreadsheet, by plain name. Exactly one field is set.
type StaffRef struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// ParseStaffRef classifies a raw reference at the data-mapping boundary:
// values that parse as a UUID are ids, anything else is a legacy name.
func ParseStaffRef(raw string) StaffRef {
	if raw == "" {
		return StaffRef{}
	}
	if _, err := uuid.Parse(raw); err == nil {
		return StaffRef{ID: raw}
	}
	return StaffRef{Name: raw}
}

// IsZero reports whether the reference points at nobody.
func (r StaffRef) IsZero() bool {
	return r.ID == "" && r.Name == ""
}

// Raw returns the stored representation, id winning over name.
func (r StaffRef) Raw() string {
	if r.ID != "" {
		return r.ID
	}
	return r.Name
}

// Client is a firm client. Mutated through an edit-then-save workflow: the
// caller holds the whole record and writes it back in one upsert.
type Client struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	TaxID            string       `json:"tax_id"`
	Address          string       `json:"address,omitempty"`
	Email            string       `json:"email,omitempty"`
	Sector           string       `json:"sector,omitempty"`
	EntityType       string       `json:"entity_type,omitempty"`
	Status           ClientStatus `json:"status"`
	MonthlyFee       float64      `json:"monthly_fee"`
	ResponsibleStaff StaffRef     `json:"responsible_staff"`

	EmployeeCount   float64 `json:"employee_count"`
	DocumentCount   float64 `json:"document_count"`
	Establishments  float64 `json:"establishments"`
	Banks           float64 `json:"banks"`
	Turnover        float64 `json:"turnover"`
	CallTimeBalance float64 `json:"call_time_balance"` // minutes per month
	TravelCount     float64 `json:"travel_count"`      // trips per year

	// Complexity indicators, display/advisory only.
	HasForeignOps    bool `json:"has_foreign_ops"`
	HasGroupCompany  bool `json:"has_group_company"`
	PayrollComplexes int  `json:"payroll_complexes"`

	Overrides []ClientTaskOverride `json:"overrides,omitempty"`

	ContractRenewal   *time.Time `json:"contract_renewal,omitempty"`
	AdvisoryJSON      string     `json:"advisory_json,omitempty"`
	AdvisoryGenerated *time.Time `json:"advisory_generated,omitempty"`
}

// Attribute reads the numeric client attribute named by a multiplier logic.
// Unknown or manual logic reads as 0.
func (c Client) Attribute(logic MultiplierLogic) float64 {
	switch logic {
	case LogicEmployeeCount:
		return c.EmployeeCount
	case LogicDocumentCount:
		return c.DocumentCount
	case LogicEstablishments:
		return c.Establishments
	case LogicBanks:
		return c.Banks
	}
	return 0
}

// Override returns the client's override for a task, if any.
func (c Client) Override(taskID string) (ClientTaskOverride, bool) {
	for _, o := range c.Overrides {
		if o.TaskID == taskID {
			return o, true
		}
	}
	return ClientTaskOverride{}, false
}

// Staff is a firm employee with the inputs its hourly cost derives from.
type Staff struct {
	ID                    string  `json:"id"`
	Name                  string  `json:"name"`
	Role                  string  `json:"role,omitempty"`
	BaseSalary            float64 `json:"base_salary"`
	SocialChargePercent   float64 `json:"social_charge_percent"`
	MealAllowance         float64 `json:"meal_allowance"`
	OtherMonthlyCosts     float64 `json:"other_monthly_costs"`
	CapacityHoursPerMonth float64 `json:"capacity_hours_per_month"`
}

// TotalMonthlyCost is the full salary-derived monthly cost of the employee.
func (s Staff) TotalMonthlyCost() float64 {
	return s.BaseSalary*(1+s.SocialChargePercent/100) + s.MealAllowance + s.OtherMonthlyCosts
}

// HourlyCost derives the cost rate charged against client work.
// Zero capacity yields a zero rate rather than a division error.
func (s Staff) HourlyCost() float64 {
	if s.CapacityHoursPerMonth <= 0 {
		return 0
	}
	return s.TotalMonthlyCost() / s.CapacityHoursPerMonth
}

// TurnoverBracket maps a turnover range to a recommended fee-percentage range.
type TurnoverBracket struct {
	MinTurnover float64 `json:"min_turnover"`
	MaxTurnover float64 `json:"max_turnover"`
	MinPercent  float64 `json:"min_percent"`
	MaxPercent  float64 `json:"max_percent"`
}

// AreaCosts holds the default hourly cost per task area, used when a task has
// neither an assigned staff member nor a resolvable manager.
type AreaCosts map[Area]float64

// NewID returns a fresh entity id.
func NewID() string {
	return uuid.NewString()
}
