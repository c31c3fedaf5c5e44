package profit

import (
	"testing"

	"github.com/ruimtc/gabinete/internal/model"
)

func TestStaffStatsHoursFollowAssignmentRevenueFollowsManagement(t *testing.T) {
	manager := testRoster[0]
	assignee := testRoster[1]

	task := model.Task{ID: "t1", Area: model.AreaAccounting, DefaultTimeMinutes: 60, DefaultFrequencyPerYear: 12}
	client := model.Client{
		MonthlyFee:       200,
		ResponsibleStaff: model.StaffRef{ID: manager.ID},
		Overrides:        []model.ClientTaskOverride{{TaskID: "t1", Multiplier: 1, FrequencyPerYear: 12, AssignedStaffID: assignee.ID}},
	}

	managerStats := CalculateStaffStats(manager, []model.Client{client}, []model.Task{task}, testRoster)
	assigneeStats := CalculateStaffStats(assignee, []model.Client{client}, []model.Task{task}, testRoster)

	// Hours land on the assignee, revenue stays with the manager.
	nearlyEqual(t, "assignee hours", assigneeStats.TotalAnnualHours, 12)
	nearlyEqual(t, "manager hours", managerStats.TotalAnnualHours, 0)
	nearlyEqual(t, "manager revenue", managerStats.AttributedRevenue, 2400)
	nearlyEqual(t, "assignee revenue", assigneeStats.AttributedRevenue, 0)
	if managerStats.ManagedClients != 1 || assigneeStats.ManagedClients != 0 {
		t.Fatalf("unexpected managed counts: %d / %d", managerStats.ManagedClients, assigneeStats.ManagedClients)
	}
}

func TestStaffStatsRevenueNeverDoubleCounted(t *testing.T) {
	task := model.Task{ID: "t1", Area: model.AreaAccounting, DefaultTimeMinutes: 30, DefaultFrequencyPerYear: 12}
	clients := []model.Client{
		{MonthlyFee: 100, ResponsibleStaff: model.StaffRef{ID: testRoster[0].ID}, Overrides: []model.ClientTaskOverride{{TaskID: "t1", Multiplier: 1, FrequencyPerYear: 12}}},
		{MonthlyFee: 300, ResponsibleStaff: model.StaffRef{Name: "Bruno"}, Overrides: []model.ClientTaskOverride{{TaskID: "t1", Multiplier: 2, FrequencyPerYear: 12, AssignedStaffID: testRoster[0].ID}}},
	}

	var totalAttributed float64
	for _, member := range testRoster {
		stats := CalculateStaffStats(member, clients, []model.Task{task}, testRoster)
		totalAttributed += stats.AttributedRevenue
	}

	// Every euro of client revenue lands on exactly one staff member.
	nearlyEqual(t, "total attributed revenue", totalAttributed, (100+300)*12)
}

func TestStaffStatsFallsBackToManagerWithoutAssignment(t *testing.T) {
	manager := testRoster[0]
	task := model.Task{ID: "t1", Area: model.AreaAccounting, DefaultTimeMinutes: 90, DefaultFrequencyPerYear: 4}
	client := model.Client{
		MonthlyFee:       150,
		ResponsibleStaff: model.StaffRef{ID: manager.ID},
		CallTimeBalance:  10,
		Overrides:        []model.ClientTaskOverride{{TaskID: "t1", Multiplier: 2, FrequencyPerYear: 4}},
	}

	stats := CalculateStaffStats(manager, []model.Client{client}, []model.Task{task}, testRoster)

	// 90 * 2 * 4 task minutes plus 10 * 12 phone minutes.
	nearlyEqual(t, "total minutes", stats.TotalAnnualMinutes, 720+120)
	nearlyEqual(t, "utilization", stats.CapacityUtilizationPercent, (14.0/12)/manager.CapacityHoursPerMonth*100)
	nearlyEqual(t, "cost", stats.Cost, 14*manager.HourlyCost())
}

func TestStaffStatsZeroRevenueYieldsZeroProfitability(t *testing.T) {
	member := testRoster[1]
	stats := CalculateStaffStats(member, nil, nil, testRoster)
	nearlyEqual(t, "profitability", stats.ProfitabilityPercent, 0)
	nearlyEqual(t, "utilization", stats.CapacityUtilizationPercent, 0)
}
