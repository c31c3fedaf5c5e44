package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ruimtc/gabinete/internal/model"
	"github.com/ruimtc/gabinete/internal/profit"
)

// renewalWindow flags contracts whose renewal date is close enough to chase.
const renewalWindow = 60 * 24 * time.Hour

func (s *server) handleClientsList(w http.ResponseWriter, r *http.Request) {
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	clients, err := s.listClients(r.Context(), status)
	if err != nil {
		log.Printf("list clients: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load clients")
		return
	}

	if r.URL.Query().Get("renewals") == "due" {
		cutoff := time.Now().Add(renewalWindow)
		due := make([]model.Client, 0)
		for _, c := range clients {
			if c.ContractRenewal != nil && c.ContractRenewal.Before(cutoff) {
				due = append(due, c)
			}
		}
		clients = due
	}

	respondJSON(w, http.StatusOK, clients)
}

func (s *server) handleClientGet(w http.ResponseWriter, r *http.Request) {
	c, err := s.getClient(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, errNotFound) {
		respondError(w, http.StatusNotFound, "client not found")
		return
	}
	if err != nil {
		log.Printf("get client: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load client")
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func validateClient(c model.Client) string {
	if strings.TrimSpace(c.Name) == "" {
		return "name is required"
	}
	if c.MonthlyFee < 0 {
		return "monthly_fee must not be negative"
	}
	seen := make(map[string]bool, len(c.Overrides))
	for _, o := range c.Overrides {
		if o.TaskID == "" {
			return "override task_id is required"
		}
		if seen[o.TaskID] {
			return "duplicate override for task " + o.TaskID
		}
		seen[o.TaskID] = true
	}
	return ""
}

func (s *server) handleClientCreate(w http.ResponseWriter, r *http.Request) {
	var c model.Client
	if !decodeBody(w, r, &c) {
		return
	}
	if msg := validateClient(c); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	c.ID = model.NewID()
	if c.Status == "" {
		c.Status = model.ClientActive
	}
	if err := s.saveClient(r.Context(), c); err != nil {
		log.Printf("create client: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to save client")
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

// handleClientUpdate writes the whole record: the edit workflow keeps a dirty
// copy client-side and saves everything at once.
func (s *server) handleClientUpdate(w http.ResponseWriter, r *http.Request) {
	var c model.Client
	if !decodeBody(w, r, &c) {
		return
	}
	c.ID = chi.URLParam(r, "id")
	if msg := validateClient(c); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	if _, err := s.getClient(r.Context(), c.ID); errors.Is(err, errNotFound) {
		respondError(w, http.StatusNotFound, "client not found")
		return
	} else if err != nil {
		log.Printf("load client before update: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load client")
		return
	}

	if err := s.saveClient(r.Context(), c); err != nil {
		log.Printf("update client: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to save client")
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (s *server) clientProfitability(r *http.Request, id string) (model.Client, profit.Result, error) {
	ctx := r.Context()
	c, err := s.getClient(ctx, id)
	if err != nil {
		return model.Client{}, profit.Result{}, err
	}
	tasks, err := s.listTasks(ctx)
	if err != nil {
		return model.Client{}, profit.Result{}, err
	}
	roster, err := s.listStaff(ctx)
	if err != nil {
		return model.Client{}, profit.Result{}, err
	}
	areaCosts, err := s.loadAreaCosts(ctx)
	if err != nil {
		return model.Client{}, profit.Result{}, err
	}
	brackets, err := s.loadBrackets(ctx)
	if err != nil {
		return model.Client{}, profit.Result{}, err
	}
	return c, profit.CalculateClientProfitability(c, tasks, roster, areaCosts, brackets), nil
}

func (s *server) handleClientProfitability(w http.ResponseWriter, r *http.Request) {
	_, result, err := s.clientProfitability(r, chi.URLParam(r, "id"))
	if errors.Is(err, errNotFound) {
		respondError(w, http.StatusNotFound, "client not found")
		return
	}
	if err != nil {
		log.Printf("client profitability: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to compute profitability")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// handleClientAdvisory refreshes the cached AI advisory for a client.
func (s *server) handleClientAdvisory(w http.ResponseWriter, r *http.Request) {
	if !s.advisory.Enabled() {
		respondError(w, http.StatusServiceUnavailable, "advisory service is not configured")
		return
	}

	c, result, err := s.clientProfitability(r, chi.URLParam(r, "id"))
	if errors.Is(err, errNotFound) {
		respondError(w, http.StatusNotFound, "client not found")
		return
	}
	if err != nil {
		log.Printf("advisory profitability: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to compute profitability")
		return
	}

	advice, err := s.advisory.ClientAdvice(r.Context(), c, result)
	if err != nil {
		log.Printf("advisory call: %v", err)
		respondError(w, http.StatusBadGateway, "advisory service failed")
		return
	}

	cached, err := json.Marshal(advice)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to cache advisory")
		return
	}
	now := time.Now().UTC()
	c.AdvisoryJSON = string(cached)
	c.AdvisoryGenerated = &now
	if err := s.saveClient(r.Context(), c); err != nil {
		log.Printf("cache advisory: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to cache advisory")
		return
	}

	respondJSON(w, http.StatusOK, advice)
}
