package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ruimtc/gabinete/internal/model"
)

type campaignStatus string

const (
	campaignDraft campaignStatus = "draft"
	campaignSent  campaignStatus = "sent"
)

type campaign struct {
	ID             string         `json:"id"`
	Topic          string         `json:"topic"`
	Tone           string         `json:"tone"`
	Subject        string         `json:"subject"`
	Body           string         `json:"body"`
	Status         campaignStatus `json:"status"`
	RecipientCount int            `json:"recipient_count"`
	CreatedAt      time.Time      `json:"created_at"`
	SentAt         *time.Time     `json:"sent_at,omitempty"`
}

func scanCampaign(row interface{ Scan(...any) error }) (campaign, error) {
	var (
		c         campaign
		createdAt string
		sentAt    sql.NullString
	)
	err := row.Scan(&c.ID, &c.Topic, &c.Tone, &c.Subject, &c.Body, &c.Status, &c.RecipientCount, &createdAt, &sentAt)
	if err != nil {
		return campaign{}, err
	}
	if c.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return campaign{}, fmt.Errorf("parse campaign created_at: %w", err)
	}
	if sentAt.Valid {
		t, err := time.Parse(time.RFC3339, sentAt.String)
		if err != nil {
			return campaign{}, fmt.Errorf("parse campaign sent_at: %w", err)
		}
		c.SentAt = &t
	}
	return c, nil
}

const campaignColumns = `id, topic, tone, subject, body, status, recipient_count, created_at, sent_at`

func (s *server) listCampaigns(ctx context.Context) ([]campaign, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+campaignColumns+` FROM email_campaigns ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query campaigns: %w", err)
	}
	defer rows.Close()

	campaigns := make([]campaign, 0)
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

func (s *server) getCampaign(ctx context.Context, id string) (campaign, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+campaignColumns+` FROM email_campaigns WHERE id = ?`, id)
	c, err := scanCampaign(row)
	if errors.Is(err, sql.ErrNoRows) {
		return campaign{}, errNotFound
	}
	if err != nil {
		return campaign{}, fmt.Errorf("query campaign %s: %w", id, err)
	}
	return c, nil
}

func (s *server) saveCampaign(ctx context.Context, c campaign) error {
	var sentAt any
	if c.SentAt != nil {
		sentAt = c.SentAt.UTC().Format(time.RFC3339)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO email_campaigns (id, topic, tone, subject, body, status, recipient_count, created_at, sent_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			subject = excluded.subject,
			body = excluded.body,
			status = excluded.status,
			recipient_count = excluded.recipient_count,
			sent_at = excluded.sent_at`,
		c.ID, c.Topic, c.Tone, c.Subject, c.Body, c.Status, c.RecipientCount,
		c.CreatedAt.UTC().Format(time.RFC3339), sentAt,
	)
	if err != nil {
		return fmt.Errorf("save campaign %s: %w", c.ID, err)
	}
	return nil
}

func (s *server) handleCampaignsList(w http.ResponseWriter, r *http.Request) {
	campaigns, err := s.listCampaigns(r.Context())
	if err != nil {
		log.Printf("list campaigns: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load campaigns")
		return
	}
	respondJSON(w, http.StatusOK, campaigns)
}

type campaignRequest struct {
	Topic string `json:"topic"`
	Tone  string `json:"tone"`
}

// handleCampaignCreate drafts a campaign: the advisory service writes the
// subject and body, the draft is stored for review before sending.
func (s *server) handleCampaignCreate(w http.ResponseWriter, r *http.Request) {
	if !s.advisory.Enabled() {
		respondError(w, http.StatusServiceUnavailable, "advisory service is not configured")
		return
	}
	var req campaignRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" {
		respondError(w, http.StatusBadRequest, "topic is required")
		return
	}
	if req.Tone == "" {
		req.Tone = "professional"
	}

	copyOut, err := s.advisory.EmailTemplate(r.Context(), req.Topic, req.Tone)
	if err != nil {
		log.Printf("campaign template: %v", err)
		respondError(w, http.StatusBadGateway, "advisory service failed")
		return
	}

	c := campaign{
		ID:        model.NewID(),
		Topic:     req.Topic,
		Tone:      req.Tone,
		Subject:   copyOut.Subject,
		Body:      copyOut.Body,
		Status:    campaignDraft,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.saveCampaign(r.Context(), c); err != nil {
		log.Printf("save campaign: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to save campaign")
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

type campaignUpdateRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// handleCampaignUpdate lets a reviewer edit the drafted copy before sending.
func (s *server) handleCampaignUpdate(w http.ResponseWriter, r *http.Request) {
	var req campaignUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	c, err := s.getCampaign(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, errNotFound) {
		respondError(w, http.StatusNotFound, "campaign not found")
		return
	}
	if err != nil {
		log.Printf("load campaign: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load campaign")
		return
	}
	if c.Status == campaignSent {
		respondError(w, http.StatusConflict, "campaign was already sent")
		return
	}

	c.Subject = req.Subject
	c.Body = req.Body
	if err := s.saveCampaign(r.Context(), c); err != nil {
		log.Printf("update campaign: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to save campaign")
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// handleCampaignSend delivers the draft to every active client with an email
// address and marks it sent.
func (s *server) handleCampaignSend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, err := s.getCampaign(ctx, chi.URLParam(r, "id"))
	if errors.Is(err, errNotFound) {
		respondError(w, http.StatusNotFound, "campaign not found")
		return
	}
	if err != nil {
		log.Printf("load campaign: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load campaign")
		return
	}
	if c.Status == campaignSent {
		respondError(w, http.StatusConflict, "campaign was already sent")
		return
	}
	if c.Subject == "" || c.Body == "" {
		respondError(w, http.StatusUnprocessableEntity, "campaign has no subject or body")
		return
	}

	clients, err := s.listClients(ctx, string(model.ClientActive))
	if err != nil {
		log.Printf("campaign recipients: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load recipients")
		return
	}
	recipients := make([]string, 0, len(clients))
	for _, cl := range clients {
		if cl.Email != "" {
			recipients = append(recipients, cl.Email)
		}
	}
	if len(recipients) == 0 {
		respondError(w, http.StatusUnprocessableEntity, "no active clients with an email address")
		return
	}

	if err := s.sender.Send(ctx, recipients, c.Subject, c.Body); err != nil {
		log.Printf("send campaign: %v", err)
		respondError(w, http.StatusBadGateway, "failed to deliver campaign")
		return
	}

	now := time.Now().UTC()
	c.Status = campaignSent
	c.RecipientCount = len(recipients)
	c.SentAt = &now
	if err := s.saveCampaign(ctx, c); err != nil {
		log.Printf("mark campaign sent: %v", err)
		respondError(w, http.StatusInternalServerError, "campaign delivered but not marked as sent")
		return
	}
	respondJSON(w, http.StatusOK, c)
}
