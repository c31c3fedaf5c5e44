package main

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ruimtc/gabinete/internal/cashier"
	"github.com/ruimtc/gabinete/internal/model"
)

// agreementView decorates an agreement with its read-time derivations.
type agreementView struct {
	cashier.Agreement
	RemainingDebt   decimal.Decimal         `json:"remaining_debt"`
	EffectiveStatus cashier.AgreementStatus `json:"effective_status"`
}

type registerView struct {
	Year       int                            `json:"year"`
	Payments   []cashier.Payment              `json:"payments"`
	Agreements []agreementView                `json:"agreements"`
	Grid       map[string][]cashier.CellState `json:"grid"` // client id -> 12 cell states
}

func yearParam(r *http.Request) (int, bool) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 2000 || year > 2100 {
		return 0, false
	}
	return year, true
}

// handleRegisterYear returns the register grid of one year: every payment,
// every plan with derived debt/status, and the per-client cell states.
func (s *server) handleRegisterYear(w http.ResponseWriter, r *http.Request) {
	year, ok := yearParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid year")
		return
	}

	ctx := r.Context()
	payments, err := s.ledger.PaymentsForYear(ctx, year)
	if err != nil {
		log.Printf("register payments: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load payments")
		return
	}
	agreements, err := s.ledger.AgreementsForYear(ctx, year)
	if err != nil {
		log.Printf("register agreements: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load agreements")
		return
	}
	clients, err := s.listClients(ctx, string(model.ClientActive))
	if err != nil {
		log.Printf("register clients: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load clients")
		return
	}

	view := registerView{
		Year:       year,
		Payments:   payments,
		Agreements: make([]agreementView, 0, len(agreements)),
		Grid:       make(map[string][]cashier.CellState, len(clients)),
	}
	for _, a := range agreements {
		view.Agreements = append(view.Agreements, agreementView{
			Agreement:       a,
			RemainingDebt:   a.RemainingDebt(payments),
			EffectiveStatus: a.EffectiveStatus(payments),
		})
	}
	for _, c := range clients {
		states := make([]cashier.CellState, 12)
		for month := 1; month <= 12; month++ {
			states[month-1] = cashier.StateOf(c.ID, month, payments, agreements)
		}
		view.Grid[c.ID] = states
	}

	respondJSON(w, http.StatusOK, view)
}

type toggleRequest struct {
	ClientID string                `json:"client_id"`
	Month    int                   `json:"month"`
	Method   cashier.PaymentMethod `json:"method"`
}

// handleRegisterToggle prices one cell click and returns the buffered change
// for the caller's pending set. Nothing is persisted here.
func (s *server) handleRegisterToggle(w http.ResponseWriter, r *http.Request) {
	year, ok := yearParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid year")
		return
	}
	var req toggleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Month < 1 || req.Month > 12 {
		respondError(w, http.StatusBadRequest, "invalid month")
		return
	}
	if req.Method != cashier.MethodCash && req.Method != cashier.MethodMBWay {
		respondError(w, http.StatusBadRequest, "invalid payment method")
		return
	}

	ctx := r.Context()
	client, err := s.getClient(ctx, req.ClientID)
	if errors.Is(err, errNotFound) {
		respondError(w, http.StatusNotFound, "client not found")
		return
	}
	if err != nil {
		log.Printf("toggle client: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load client")
		return
	}

	payments, err := s.ledger.PaymentsForYear(ctx, year)
	if err != nil {
		log.Printf("toggle payments: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load payments")
		return
	}
	agreements, err := s.ledger.AgreementsForYear(ctx, year)
	if err != nil {
		log.Printf("toggle agreements: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load agreements")
		return
	}

	clientAgreements := make([]cashier.Agreement, 0)
	for _, a := range agreements {
		if a.ClientID == req.ClientID {
			clientAgreements = append(clientAgreements, a)
		}
	}

	change, err := cashier.Toggle(req.ClientID, client.MonthlyFee, year, req.Month, req.Method, payments, clientAgreements, time.Now().UTC(), model.NewID)
	if errors.Is(err, cashier.ErrCellLocked) {
		respondError(w, http.StatusConflict, "cell is locked")
		return
	}
	if err != nil {
		log.Printf("toggle: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to toggle cell")
		return
	}
	respondJSON(w, http.StatusOK, change)
}

type changesRequest struct {
	Changes []cashier.PendingChange `json:"changes"`
	// Legacy frontend builds post raw payments where amount -1 marks a
	// deletion; translated here and never stored.
	Payments []cashier.Payment `json:"payments"`
}

func (req changesRequest) changeSet() cashier.PendingChangeSet {
	set := cashier.PendingChangeSet{Changes: req.Changes}
	for _, p := range req.Payments {
		set.Changes = append(set.Changes, cashier.DecodePendingAmount(p))
	}
	return set
}

func (s *server) handleRegisterChanges(w http.ResponseWriter, r *http.Request) {
	var req changesRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.register.Commit(r.Context(), req.changeSet()); err != nil {
		log.Printf("commit register changes: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to save changes")
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

type closeRequest struct {
	Deposited        decimal.Decimal         `json:"deposited_amount"`
	MBWayDeposited   decimal.Decimal         `json:"mbway_deposited_amount"`
	Adjustment       decimal.Decimal         `json:"adjustment_amount"`
	SpentDescription string                  `json:"spent_description"`
	Force            bool                    `json:"force"`
	Changes          []cashier.PendingChange `json:"changes"`
}

func (s *server) handleRegisterClose(w http.ResponseWriter, r *http.Request) {
	clerk, ok := sessionEmail(r, s.auth)
	if !ok {
		respondError(w, http.StatusUnauthorized, "session required")
		return
	}
	var req closeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx := r.Context()
	clients, err := s.listClients(ctx, "")
	if err != nil {
		log.Printf("close clients: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load clients")
		return
	}
	names := make(map[string]string, len(clients))
	for _, c := range clients {
		names[c.ID] = c.Name
	}

	op, err := s.register.Close(ctx, cashier.CloseInput{
		Clerk:            clerk,
		Deposited:        req.Deposited,
		MBWayDeposited:   req.MBWayDeposited,
		Adjustment:       req.Adjustment,
		SpentDescription: req.SpentDescription,
		Pending:          cashier.PendingChangeSet{Changes: req.Changes},
		Force:            req.Force,
	}, names)
	switch {
	case errors.Is(err, cashier.ErrNothingToClose):
		respondError(w, http.StatusUnprocessableEntity, "nothing to close")
		return
	case errors.Is(err, cashier.ErrUnbalanced):
		// Confirmable: the caller may retry with force set.
		respondJSON(w, http.StatusConflict, map[string]any{
			"warning":     "unbalanced",
			"detail":      err.Error(),
			"confirmable": true,
		})
		return
	case err != nil:
		log.Printf("close register: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to close register")
		return
	}
	respondJSON(w, http.StatusCreated, op)
}

func (s *server) handleOperationsList(w http.ResponseWriter, r *http.Request) {
	ops, err := s.ledger.Operations(r.Context())
	if err != nil {
		log.Printf("list operations: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load operations")
		return
	}
	respondJSON(w, http.StatusOK, ops)
}

func (s *server) handleAgreementSave(w http.ResponseWriter, r *http.Request) {
	var a cashier.Agreement
	if !decodeBody(w, r, &a) {
		return
	}
	if a.Status == "" {
		a.Status = cashier.AgreementActive
	}

	err := s.register.SaveAgreement(r.Context(), a)
	if errors.Is(err, cashier.ErrInvalidAgreement) {
		respondError(w, http.StatusBadRequest, "invalid agreement")
		return
	}
	if err != nil {
		log.Printf("save agreement: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to save agreement")
		return
	}
	respondJSON(w, http.StatusOK, a)
}

type agreementStatusRequest struct {
	Status cashier.AgreementStatus `json:"status"`
}

// handleAgreementStatus flips a plan between active and cancelled. Completed
// is derived, never set.
func (s *server) handleAgreementStatus(w http.ResponseWriter, r *http.Request) {
	var req agreementStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Status != cashier.AgreementActive && req.Status != cashier.AgreementCancelled {
		respondError(w, http.StatusBadRequest, "status must be active or cancelled")
		return
	}

	a, err := s.findAgreement(r, chi.URLParam(r, "id"))
	if errors.Is(err, errNotFound) {
		respondError(w, http.StatusNotFound, "agreement not found")
		return
	}
	if err != nil {
		log.Printf("load agreement: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load agreement")
		return
	}

	a.Status = req.Status
	if err := s.register.SaveAgreement(r.Context(), a); err != nil {
		log.Printf("update agreement status: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to save agreement")
		return
	}
	respondJSON(w, http.StatusOK, a)
}

type installmentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (s *server) handleAgreementInstallment(w http.ResponseWriter, r *http.Request) {
	var req installmentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	a, err := s.findAgreement(r, chi.URLParam(r, "id"))
	if errors.Is(err, errNotFound) {
		respondError(w, http.StatusNotFound, "agreement not found")
		return
	}
	if err != nil {
		log.Printf("load agreement: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load agreement")
		return
	}

	payment, err := s.register.RecordInstallment(r.Context(), a, req.Amount)
	if errors.Is(err, cashier.ErrInvalidAgreement) {
		respondError(w, http.StatusUnprocessableEntity, "no open month or no outstanding debt")
		return
	}
	if err != nil {
		log.Printf("record installment: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to record installment")
		return
	}
	respondJSON(w, http.StatusCreated, payment)
}

// findAgreement scans the agreement's year tables; the id carries no year, so
// look across a small window around the current year.
func (s *server) findAgreement(r *http.Request, id string) (cashier.Agreement, error) {
	currentYear := time.Now().Year()
	for year := currentYear + 1; year >= currentYear-5; year-- {
		agreements, err := s.ledger.AgreementsForYear(r.Context(), year)
		if err != nil {
			return cashier.Agreement{}, err
		}
		for _, a := range agreements {
			if a.ID == id {
				return a, nil
			}
		}
	}
	return cashier.Agreement{}, errNotFound
}

type expenseRequest struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

func (s *server) handleExpensesList(w http.ResponseWriter, r *http.Request) {
	clerk, ok := sessionEmail(r, s.auth)
	if !ok {
		respondError(w, http.StatusUnauthorized, "session required")
		return
	}
	expenses, err := s.ledger.ExpensesFor(r.Context(), clerk)
	if err != nil {
		log.Printf("list expenses: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load expenses")
		return
	}
	respondJSON(w, http.StatusOK, expenses)
}

func (s *server) handleExpenseCreate(w http.ResponseWriter, r *http.Request) {
	clerk, ok := sessionEmail(r, s.auth)
	if !ok {
		respondError(w, http.StatusUnauthorized, "session required")
		return
	}
	var req expenseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Description == "" || !req.Amount.IsPositive() {
		respondError(w, http.StatusBadRequest, "description and a positive amount are required")
		return
	}

	e := cashier.Expense{
		ID:          model.NewID(),
		Clerk:       clerk,
		Description: req.Description,
		Amount:      req.Amount,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.ledger.AddExpense(r.Context(), e); err != nil {
		log.Printf("add expense: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to save expense")
		return
	}
	respondJSON(w, http.StatusCreated, e)
}

func (s *server) handleExpenseDelete(w http.ResponseWriter, r *http.Request) {
	if _, ok := sessionEmail(r, s.auth); !ok {
		respondError(w, http.StatusUnauthorized, "session required")
		return
	}
	if err := s.ledger.RemoveExpense(r.Context(), chi.URLParam(r, "id")); err != nil {
		log.Printf("delete expense: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to delete expense")
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
