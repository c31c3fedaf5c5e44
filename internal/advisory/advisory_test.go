package advisory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ruimtc/gabinete/internal/model"
	"github.com/ruimtc/gabinete/internal/profit"
)

func TestClientAdviceDecodesResponse(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")

		var req adviceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Client.Name != "Padaria Central" {
			t.Errorf("unexpected client in payload: %+v", req.Client)
		}

		json.NewEncoder(w).Encode(Advice{AdviceText: "renegociar", SuggestedFee: 250})
	}))
	defer srv.Close()

	c := New(srv.URL, "secret")
	advice, err := c.ClientAdvice(context.Background(), model.Client{Name: "Padaria Central"}, profit.Result{})
	if err != nil {
		t.Fatalf("ClientAdvice: %v", err)
	}

	if gotPath != "/v1/advice" || gotAuth != "Bearer secret" {
		t.Fatalf("unexpected request: path=%s auth=%s", gotPath, gotAuth)
	}
	if advice.AdviceText != "renegociar" || advice.SuggestedFee != 250 {
		t.Fatalf("unexpected advice: %+v", advice)
	}
}

func TestEmailTemplateSurfacesServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	if _, err := c.EmailTemplate(context.Background(), "renovação", "formal"); err == nil {
		t.Fatal("expected error on 503 response")
	}
}

func TestDisabledClientFailsFast(t *testing.T) {
	c := New("", "")
	if c.Enabled() {
		t.Fatal("expected disabled client")
	}
	if _, err := c.EmailTemplate(context.Background(), "t", "formal"); err == nil {
		t.Fatal("expected configuration error")
	}
}
