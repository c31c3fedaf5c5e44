package profit

import (
	"math"
	"testing"

	"github.com/ruimtc/gabinete/internal/model"
)

func nearlyEqual(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

var testRoster = []model.Staff{
	{
		ID:                    "11111111-1111-4111-8111-111111111111",
		Name:                  "Ana",
		BaseSalary:            1500,
		SocialChargePercent:   23.75,
		MealAllowance:         150,
		OtherMonthlyCosts:     50,
		CapacityHoursPerMonth: 160,
	},
	{
		ID:                    "22222222-2222-4222-8222-222222222222",
		Name:                  "Bruno",
		BaseSalary:            1200,
		SocialChargePercent:   23.75,
		CapacityHoursPerMonth: 160,
	},
}

func TestHourlyCostDerivation(t *testing.T) {
	s := model.Staff{BaseSalary: 1000, SocialChargePercent: 20, MealAllowance: 100, OtherMonthlyCosts: 50, CapacityHoursPerMonth: 135}
	nearlyEqual(t, "totalMonthlyCost", s.TotalMonthlyCost(), 1350)
	nearlyEqual(t, "hourlyCost", s.HourlyCost(), 10)

	s.CapacityHoursPerMonth = 0
	nearlyEqual(t, "hourlyCost with zero capacity", s.HourlyCost(), 0)
}

func TestResolveRatePriorityChain(t *testing.T) {
	areaCosts := model.AreaCosts{model.AreaAccounting: 30}
	client := model.Client{ResponsibleStaff: model.StaffRef{ID: testRoster[0].ID}}

	override := &model.ClientTaskOverride{AssignedStaffID: testRoster[1].ID}
	nearlyEqual(t, "assigned staff wins", ResolveRate(client, model.AreaAccounting, override, testRoster, areaCosts), testRoster[1].HourlyCost())

	unknown := &model.ClientTaskOverride{AssignedStaffID: "33333333-3333-4333-8333-333333333333"}
	nearlyEqual(t, "unknown assignment falls to manager", ResolveRate(client, model.AreaAccounting, unknown, testRoster, areaCosts), testRoster[0].HourlyCost())

	nearlyEqual(t, "manager rate", ResolveRate(client, model.AreaAccounting, nil, testRoster, areaCosts), testRoster[0].HourlyCost())

	orphan := model.Client{}
	nearlyEqual(t, "area default", ResolveRate(orphan, model.AreaAccounting, nil, testRoster, areaCosts), 30)
	nearlyEqual(t, "hard default", ResolveRate(orphan, model.AreaTax, nil, testRoster, areaCosts), DefaultAreaRate)
}

func TestResolveManagerAcceptsLegacyNames(t *testing.T) {
	byID := model.Client{ResponsibleStaff: model.ParseStaffRef(testRoster[0].ID)}
	if m, ok := ResolveManager(byID, testRoster); !ok || m.ID != testRoster[0].ID {
		t.Fatalf("expected manager resolved by id, got %+v ok=%v", m, ok)
	}

	byName := model.Client{ResponsibleStaff: model.ParseStaffRef("Bruno")}
	if m, ok := ResolveManager(byName, testRoster); !ok || m.ID != testRoster[1].ID {
		t.Fatalf("expected manager resolved by legacy name, got %+v ok=%v", m, ok)
	}

	if _, ok := ResolveManager(model.Client{ResponsibleStaff: model.ParseStaffRef("Carla")}, testRoster); ok {
		t.Fatal("expected no manager for unknown name")
	}
}

func TestSingleOverrideHoursExact(t *testing.T) {
	task := model.Task{ID: "t1", Name: "Processamento", Area: model.AreaAccounting, DefaultTimeMinutes: 30, DefaultFrequencyPerYear: 1}
	client := model.Client{
		MonthlyFee: 100,
		Overrides:  []model.ClientTaskOverride{{TaskID: "t1", Multiplier: 10, FrequencyPerYear: 12}},
	}

	res := CalculateClientProfitability(client, []model.Task{task}, nil, model.AreaCosts{}, nil)

	nearlyEqual(t, "totalAnnualHours", res.TotalAnnualHours, 60)
	nearlyEqual(t, "totalAnnualMinutes", res.TotalAnnualMinutes, 3600)
}

func TestMultiplierLogicLinearity(t *testing.T) {
	task := model.Task{ID: "t1", Area: model.AreaAccounting, DefaultTimeMinutes: 10, DefaultFrequencyPerYear: 12, MultiplierLogic: model.LogicBanks}
	areaCosts := model.AreaCosts{model.AreaAccounting: 20}

	client := model.Client{Banks: 2}
	base := CalculateClientProfitability(client, []model.Task{task}, nil, areaCosts, nil)

	client.Banks = 6
	tripled := CalculateClientProfitability(client, []model.Task{task}, nil, areaCosts, nil)

	nearlyEqual(t, "base cost", base.TotalAnnualCost, 2*12*10.0/60*20)
	nearlyEqual(t, "tripled cost", tripled.TotalAnnualCost, base.TotalAnnualCost*3)
}

func TestZeroOverrideDisablesManualTask(t *testing.T) {
	manual := model.Task{ID: "t1", Area: model.AreaAccounting, DefaultTimeMinutes: 60, DefaultFrequencyPerYear: 12, MultiplierLogic: model.LogicManual}
	logic := model.Task{ID: "t2", Area: model.AreaAccounting, DefaultTimeMinutes: 60, DefaultFrequencyPerYear: 12, MultiplierLogic: model.LogicEmployeeCount}

	client := model.Client{
		EmployeeCount: 4,
		Overrides: []model.ClientTaskOverride{
			{TaskID: "t1", Multiplier: 0, FrequencyPerYear: 12},
			{TaskID: "t2", Multiplier: 0, FrequencyPerYear: 12},
		},
	}

	res := CalculateClientProfitability(client, []model.Task{manual, logic}, nil, model.AreaCosts{}, nil)

	if len(res.Tasks) != 1 || res.Tasks[0].TaskID != "t2" {
		t.Fatalf("expected only the logic-driven task to apply, got %+v", res.Tasks)
	}
	nearlyEqual(t, "logic multiplier", res.Tasks[0].Multiplier, 4)
}

func TestOperationalCostsAtManagerRate(t *testing.T) {
	client := model.Client{
		ResponsibleStaff: model.StaffRef{ID: testRoster[0].ID},
		CallTimeBalance:  30, // minutes per month
		TravelCount:      4,  // trips per year
	}

	res := CalculateClientProfitability(client, nil, testRoster, model.AreaCosts{}, nil)

	nearlyEqual(t, "phone minutes", res.PhoneSupportMinutes, 360)
	nearlyEqual(t, "travel minutes", res.TravelMinutes, 240)
	nearlyEqual(t, "total minutes", res.TotalAnnualMinutes, 600)
	nearlyEqual(t, "total cost", res.TotalAnnualCost, 600.0/60*testRoster[0].HourlyCost())
}

func TestZeroRevenueYieldsZeroPercentagesNotNaN(t *testing.T) {
	res := CalculateClientProfitability(model.Client{}, nil, nil, model.AreaCosts{}, nil)

	nearlyEqual(t, "marginPercent", res.MarginPercent, 0)
	nearlyEqual(t, "hourlyReturn", res.HourlyReturn, 0)
	if math.IsNaN(res.MarginPercent) || math.IsNaN(res.HourlyReturn) {
		t.Fatal("percentages must not be NaN")
	}
	if res.Tier != TierCritical {
		t.Fatalf("zero margin should classify as critical, got %s", res.Tier)
	}
}

func TestClassifyMarginThresholds(t *testing.T) {
	cases := []struct {
		margin float64
		want   Tier
	}{
		{-5, TierCritical},
		{9.99, TierCritical},
		{10, TierAttention},
		{29.99, TierAttention},
		{30, TierHealthy},
		{80, TierHealthy},
	}
	for _, tc := range cases {
		if got := ClassifyMargin(tc.margin); got != tc.want {
			t.Fatalf("ClassifyMargin(%v) = %s, want %s", tc.margin, got, tc.want)
		}
	}
}
