package main

import (
	"database/sql"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ruimtc/gabinete/internal/advisory"
	"github.com/ruimtc/gabinete/internal/cashier"
	"github.com/ruimtc/gabinete/internal/config"
	"github.com/ruimtc/gabinete/internal/db"
	"github.com/ruimtc/gabinete/internal/mailer"
	"github.com/ruimtc/gabinete/internal/migrations"
	"github.com/ruimtc/gabinete/internal/model"
	"github.com/ruimtc/gabinete/internal/seed"
)

type server struct {
	db       *sql.DB
	auth     *authService
	ledger   *cashier.SQLiteLedger
	register *cashier.Register
	advisory *advisory.Client
	sender   mailer.Sender
}

func main() {
	cfg := config.Load()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	if cfg.IsDev() {
		if err := migrations.Up(database, "migrations"); err != nil {
			log.Fatalf("failed to run database migrations: %v", err)
		}
	}

	stats, err := seed.Run(database, seed.Config{AdminEmail: cfg.AdminEmail, AdminPassword: cfg.AdminPassword})
	if err != nil {
		log.Fatalf("failed to seed database: %v", err)
	}
	if stats.Inserts > 0 {
		log.Printf("seeded %d reference rows", stats.Inserts)
	}

	ledger := cashier.NewSQLiteLedger(database)
	srv := &server{
		db:       database,
		auth:     newAuthService(database, cfg.SessionSecret),
		ledger:   ledger,
		register: cashier.NewRegister(ledger, func() time.Time { return time.Now().UTC() }, model.NewID),
		advisory: advisory.New(cfg.AdvisoryURL, cfg.AdvisoryKey),
		sender:   mailer.NewSMTPSender(cfg.SMTPAddr, cfg.SMTPFrom),
	}

	r := chi.NewRouter()
	r.Use(srv.authMiddleware)

	r.Post("/login", srv.handleLogin)
	r.Post("/logout", srv.handleLogout)

	r.Get("/clients", srv.handleClientsList)
	r.Post("/clients", srv.handleClientCreate)
	r.Get("/clients/{id}", srv.handleClientGet)
	r.Put("/clients/{id}", srv.handleClientUpdate)
	r.Get("/clients/{id}/profitability", srv.handleClientProfitability)
	r.Post("/clients/{id}/advisory", srv.handleClientAdvisory)

	r.Get("/staff", srv.handleStaffList)
	r.Post("/staff", srv.handleStaffCreate)
	r.Put("/staff/{id}", srv.handleStaffUpdate)
	r.Get("/staff/{id}/stats", srv.handleStaffStats)

	r.Get("/tasks", srv.handleTasksList)
	r.Post("/tasks", srv.handleTaskCreate)
	r.Put("/tasks/{id}", srv.handleTaskUpdate)
	r.Get("/area-costs", srv.handleAreaCostsGet)
	r.Put("/area-costs", srv.handleAreaCostsPut)
	r.Get("/brackets", srv.handleBracketsGet)
	r.Put("/brackets", srv.handleBracketsPut)

	r.Get("/cashier/{year}", srv.handleRegisterYear)
	r.Post("/cashier/{year}/toggle", srv.handleRegisterToggle)
	r.Post("/cashier/changes", srv.handleRegisterChanges)
	r.Post("/cashier/close", srv.handleRegisterClose)
	r.Get("/cashier/operations", srv.handleOperationsList)
	r.Post("/cashier/agreements", srv.handleAgreementSave)
	r.Post("/cashier/agreements/{id}/status", srv.handleAgreementStatus)
	r.Post("/cashier/agreements/{id}/installments", srv.handleAgreementInstallment)
	r.Get("/cashier/expenses", srv.handleExpensesList)
	r.Post("/cashier/expenses", srv.handleExpenseCreate)
	r.Delete("/cashier/expenses/{id}", srv.handleExpenseDelete)

	r.Get("/campaigns", srv.handleCampaignsList)
	r.Post("/campaigns", srv.handleCampaignCreate)
	r.Put("/campaigns/{id}", srv.handleCampaignUpdate)
	r.Post("/campaigns/{id}/send", srv.handleCampaignSend)

	addr := ":" + cfg.Port
	log.Printf("listening on %s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

// authMiddleware guards every route except login behind a valid session.
func (s *server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/login") {
			next.ServeHTTP(w, r)
			return
		}
		if _, ok := sessionEmail(r, s.auth); !ok {
			respondError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	valid, err := s.auth.validateCredentials(req.Email, req.Password)
	if err != nil {
		log.Printf("validate credentials: %v", err)
		respondError(w, http.StatusInternalServerError, "authentication error")
		return
	}
	if !valid {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	s.auth.setSessionCookie(w, req.Email)
	respondJSON(w, http.StatusOK, map[string]string{"email": req.Email})
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.clearSessionCookie(w)
	respondJSON(w, http.StatusNoContent, nil)
}
