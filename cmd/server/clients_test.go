package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ruimtc/gabinete/internal/model"
	"github.com/ruimtc/gabinete/internal/profit"
)

const testManagerID = "11111111-1111-1111-1111-111111111111"

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestSaveClientReplacesOverrides(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	c := model.Client{
		ID:         "c1",
		Name:       "Padaria Central",
		Status:     model.ClientActive,
		MonthlyFee: 100,
		Overrides: []model.ClientTaskOverride{
			{TaskID: "t1", FrequencyPerYear: 12, Multiplier: 1},
			{TaskID: "t2", FrequencyPerYear: 4, Multiplier: 2},
		},
	}
	if err := srv.saveClient(ctx, c); err != nil {
		t.Fatalf("first save: %v", err)
	}

	c.Overrides = []model.ClientTaskOverride{{TaskID: "t2", FrequencyPerYear: 6, Multiplier: 3}}
	if err := srv.saveClient(ctx, c); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, err := srv.getClient(ctx, "c1")
	if err != nil {
		t.Fatalf("get client: %v", err)
	}
	if len(got.Overrides) != 1 {
		t.Fatalf("expected overrides replaced, got %+v", got.Overrides)
	}
	if got.Overrides[0].TaskID != "t2" || got.Overrides[0].FrequencyPerYear != 6 || got.Overrides[0].Multiplier != 3 {
		t.Fatalf("unexpected override: %+v", got.Overrides[0])
	}
}

func TestHandleClientProfitability(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	// Manager with an hourly cost of 10 (1000 salary over 100 capacity hours).
	manager := model.Staff{ID: testManagerID, Name: "Rita", BaseSalary: 1000, CapacityHoursPerMonth: 100}
	if err := srv.saveStaff(ctx, manager); err != nil {
		t.Fatalf("save staff: %v", err)
	}
	task := model.Task{ID: "t1", Name: "Contabilidade mensal", Area: model.AreaAccounting, Type: model.TaskObligation, DefaultTimeMinutes: 60, DefaultFrequencyPerYear: 12, MultiplierLogic: model.LogicManual}
	if err := srv.saveTask(ctx, task); err != nil {
		t.Fatalf("save task: %v", err)
	}
	if err := srv.replaceBrackets(ctx, []model.TurnoverBracket{{MinTurnover: 0, MaxTurnover: 100000, MinPercent: 1, MaxPercent: 2}}); err != nil {
		t.Fatalf("save brackets: %v", err)
	}

	c := model.Client{
		ID:               "c1",
		Name:             "Padaria Central",
		Status:           model.ClientActive,
		MonthlyFee:       100,
		Turnover:         50000,
		ResponsibleStaff: model.ParseStaffRef(testManagerID),
		Overrides:        []model.ClientTaskOverride{{TaskID: "t1", FrequencyPerYear: 12, Multiplier: 1}},
	}
	if err := srv.saveClient(ctx, c); err != nil {
		t.Fatalf("save client: %v", err)
	}

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/clients/c1/profitability", nil), "id", "c1")
	rr := httptest.NewRecorder()
	srv.handleClientProfitability(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var result profit.Result
	if err := json.NewDecoder(rr.Body).Decode(&result); err != nil {
		t.Fatalf("decode result: %v", err)
	}

	// 12 runs of 60 minutes at 10/h cost 120 a year against 1200 revenue.
	if result.TotalAnnualCost != 120 {
		t.Fatalf("total annual cost = %v, want 120", result.TotalAnnualCost)
	}
	if result.AnnualRevenue != 1200 {
		t.Fatalf("annual revenue = %v, want 1200", result.AnnualRevenue)
	}
	if result.MarginPercent != 90 || result.Tier != profit.TierHealthy {
		t.Fatalf("margin = %v tier = %s, want 90 healthy", result.MarginPercent, result.Tier)
	}

	// 50000 turnover in a 1..2 percent bracket puts the fee between 41.67 and
	// 83.33; a 100 fee reads above average.
	if result.Turnover == nil || result.Turnover.Status != profit.FeeAboveAverage {
		t.Fatalf("unexpected turnover analysis: %+v", result.Turnover)
	}

	missing := withURLParam(httptest.NewRequest(http.MethodGet, "/clients/nope/profitability", nil), "id", "nope")
	rr = httptest.NewRecorder()
	srv.handleClientProfitability(rr, missing)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown client, got %d", rr.Code)
	}
}

func TestHandleClientsListRenewalFilter(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	soon := time.Now().Add(20 * 24 * time.Hour)
	far := time.Now().Add(200 * 24 * time.Hour)
	if err := srv.saveClient(ctx, model.Client{ID: "c1", Name: "Renova já", Status: model.ClientActive, ContractRenewal: &soon}); err != nil {
		t.Fatalf("save c1: %v", err)
	}
	if err := srv.saveClient(ctx, model.Client{ID: "c2", Name: "Renova tarde", Status: model.ClientActive, ContractRenewal: &far}); err != nil {
		t.Fatalf("save c2: %v", err)
	}
	if err := srv.saveClient(ctx, model.Client{ID: "c3", Name: "Sem contrato", Status: model.ClientActive}); err != nil {
		t.Fatalf("save c3: %v", err)
	}

	rr := httptest.NewRecorder()
	srv.handleClientsList(rr, httptest.NewRequest(http.MethodGet, "/clients?renewals=due", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var due []model.Client
	if err := json.NewDecoder(rr.Body).Decode(&due); err != nil {
		t.Fatalf("decode clients: %v", err)
	}
	if len(due) != 1 || due[0].ID != "c1" {
		t.Fatalf("expected only the imminent renewal, got %+v", due)
	}
}

func TestHandleClientCreateRejectsDuplicateOverride(t *testing.T) {
	srv := newTestServer(t)

	body := `{"name":"Talho Novo","monthly_fee":50,"overrides":[{"task_id":"t1"},{"task_id":"t1"}]}`
	rr := httptest.NewRecorder()
	srv.handleClientCreate(rr, httptest.NewRequest(http.MethodPost, "/clients", strings.NewReader(body)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate override, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	srv.handleClientCreate(rr, httptest.NewRequest(http.MethodPost, "/clients", strings.NewReader(`{"name":"  "}`)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank name, got %d", rr.Code)
	}
}
