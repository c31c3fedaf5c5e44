package main

import (
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ruimtc/gabinete/internal/model"
	"github.com/ruimtc/gabinete/internal/profit"
)

// staffView decorates a staff record with its derived cost rate.
type staffView struct {
	model.Staff
	TotalMonthlyCost float64 `json:"total_monthly_cost"`
	HourlyCost       float64 `json:"hourly_cost"`
}

func newStaffView(st model.Staff) staffView {
	return staffView{Staff: st, TotalMonthlyCost: st.TotalMonthlyCost(), HourlyCost: st.HourlyCost()}
}

func (s *server) handleStaffList(w http.ResponseWriter, r *http.Request) {
	roster, err := s.listStaff(r.Context())
	if err != nil {
		log.Printf("list staff: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load staff")
		return
	}

	views := make([]staffView, 0, len(roster))
	for _, st := range roster {
		views = append(views, newStaffView(st))
	}
	respondJSON(w, http.StatusOK, views)
}

func validateStaff(st model.Staff) string {
	if strings.TrimSpace(st.Name) == "" {
		return "name is required"
	}
	if st.CapacityHoursPerMonth < 0 || st.BaseSalary < 0 {
		return "salary and capacity must not be negative"
	}
	return ""
}

func (s *server) handleStaffCreate(w http.ResponseWriter, r *http.Request) {
	var st model.Staff
	if !decodeBody(w, r, &st) {
		return
	}
	if msg := validateStaff(st); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	st.ID = model.NewID()
	if err := s.saveStaff(r.Context(), st); err != nil {
		log.Printf("create staff: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to save staff")
		return
	}
	respondJSON(w, http.StatusCreated, newStaffView(st))
}

func (s *server) handleStaffUpdate(w http.ResponseWriter, r *http.Request) {
	var st model.Staff
	if !decodeBody(w, r, &st) {
		return
	}
	st.ID = chi.URLParam(r, "id")
	if msg := validateStaff(st); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	if err := s.saveStaff(r.Context(), st); err != nil {
		log.Printf("update staff: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to save staff")
		return
	}
	respondJSON(w, http.StatusOK, newStaffView(st))
}

func (s *server) handleStaffStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	roster, err := s.listStaff(ctx)
	if err != nil {
		log.Printf("staff stats roster: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load staff")
		return
	}

	var member model.Staff
	found := false
	for _, st := range roster {
		if st.ID == id {
			member = st
			found = true
			break
		}
	}
	if !found {
		respondError(w, http.StatusNotFound, "staff member not found")
		return
	}

	clients, err := s.listClients(ctx, "")
	if err != nil {
		log.Printf("staff stats clients: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load clients")
		return
	}
	tasks, err := s.listTasks(ctx)
	if err != nil {
		log.Printf("staff stats tasks: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load tasks")
		return
	}

	respondJSON(w, http.StatusOK, profit.CalculateStaffStats(member, clients, tasks, roster))
}
