package main

import (
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ruimtc/gabinete/internal/model"
)

func (s *server) handleTasksList(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.listTasks(r.Context())
	if err != nil {
		log.Printf("list tasks: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load tasks")
		return
	}
	respondJSON(w, http.StatusOK, tasks)
}

func validateTask(t model.Task) string {
	if strings.TrimSpace(t.Name) == "" {
		return "name is required"
	}
	switch t.Area {
	case model.AreaAccounting, model.AreaHR, model.AreaAdmin, model.AreaConsulting, model.AreaTax, model.AreaManagement:
	default:
		return "unknown area"
	}
	switch t.Type {
	case model.TaskObligation, model.TaskNeed, model.TaskExtra:
	default:
		return "unknown task type"
	}
	// Non-manual logic must name a numeric client attribute.
	switch t.MultiplierLogic {
	case "", model.LogicManual, model.LogicEmployeeCount, model.LogicDocumentCount, model.LogicEstablishments, model.LogicBanks:
	default:
		return "unknown multiplier logic"
	}
	if t.DefaultTimeMinutes < 0 || t.DefaultFrequencyPerYear < 0 {
		return "duration and frequency must not be negative"
	}
	return ""
}

func (s *server) handleTaskCreate(w http.ResponseWriter, r *http.Request) {
	var t model.Task
	if !decodeBody(w, r, &t) {
		return
	}
	if msg := validateTask(t); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	if t.ID == "" {
		t.ID = model.NewID()
	}
	if t.MultiplierLogic == "" {
		t.MultiplierLogic = model.LogicManual
	}
	if err := s.saveTask(r.Context(), t); err != nil {
		log.Printf("create task: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to save task")
		return
	}
	respondJSON(w, http.StatusCreated, t)
}

func (s *server) handleTaskUpdate(w http.ResponseWriter, r *http.Request) {
	var t model.Task
	if !decodeBody(w, r, &t) {
		return
	}
	t.ID = chi.URLParam(r, "id")
	if msg := validateTask(t); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	if t.MultiplierLogic == "" {
		t.MultiplierLogic = model.LogicManual
	}

	if err := s.saveTask(r.Context(), t); err != nil {
		log.Printf("update task: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to save task")
		return
	}
	respondJSON(w, http.StatusOK, t)
}

func (s *server) handleAreaCostsGet(w http.ResponseWriter, r *http.Request) {
	costs, err := s.loadAreaCosts(r.Context())
	if err != nil {
		log.Printf("load area costs: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load area costs")
		return
	}
	respondJSON(w, http.StatusOK, costs)
}

func (s *server) handleAreaCostsPut(w http.ResponseWriter, r *http.Request) {
	var costs model.AreaCosts
	if !decodeBody(w, r, &costs) {
		return
	}

	for area, cost := range costs {
		if cost < 0 {
			respondError(w, http.StatusBadRequest, "hourly cost must not be negative")
			return
		}
		if err := s.saveAreaCost(r.Context(), area, cost); err != nil {
			log.Printf("save area cost: %v", err)
			respondError(w, http.StatusInternalServerError, "failed to save area costs")
			return
		}
	}
	respondJSON(w, http.StatusOK, costs)
}

func (s *server) handleBracketsGet(w http.ResponseWriter, r *http.Request) {
	brackets, err := s.loadBrackets(r.Context())
	if err != nil {
		log.Printf("load brackets: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load turnover brackets")
		return
	}
	respondJSON(w, http.StatusOK, brackets)
}

// handleBracketsPut replaces the whole fair-value table. Array order is kept
// as-is: lookups match the first containing bracket.
func (s *server) handleBracketsPut(w http.ResponseWriter, r *http.Request) {
	var brackets []model.TurnoverBracket
	if !decodeBody(w, r, &brackets) {
		return
	}
	for _, b := range brackets {
		if b.MaxTurnover < b.MinTurnover {
			respondError(w, http.StatusBadRequest, "bracket range is inverted")
			return
		}
	}

	if err := s.replaceBrackets(r.Context(), brackets); err != nil {
		log.Printf("replace brackets: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to save turnover brackets")
		return
	}
	respondJSON(w, http.StatusOK, brackets)
}
