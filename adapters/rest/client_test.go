package rest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/parleylabs/parley/client/domain"
	"github.com/parleylabs/parley/client/domain/entities"
	"github.com/parleylabs/parley/client/internal/mockapi"
	"github.com/parleylabs/parley/client/repository"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	server := httptest.NewServer(mockapi.New(zaptest.NewLogger(t)).Handler())
	t.Cleanup(server.Close)

	client, err := NewClient(Config{BaseURL: server.URL}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(Config{}, zaptest.NewLogger(t)); err == nil {
		t.Error("NewClient() without base URL succeeded")
	}
}

func TestAuthFlow(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	guest, err := client.CreateGuest(ctx, "Sam")
	if err != nil {
		t.Fatalf("CreateGuest() error = %v", err)
	}
	if guest.Token == "" {
		t.Fatal("guest token is empty")
	}
	if !guest.Identity.IsGuest() {
		t.Error("guest identity kind is not guest")
	}

	// Unauthenticated whoami must be rejected.
	if _, err := client.CurrentUser(ctx); err == nil {
		t.Fatal("CurrentUser() without a token succeeded")
	}

	client.SetAuthToken(guest.Token)
	current, err := client.CurrentUser(ctx)
	if err != nil {
		t.Fatalf("CurrentUser() error = %v", err)
	}
	if current.ID != guest.Identity.ID {
		t.Errorf("CurrentUser() id = %q, want %q", current.ID, guest.Identity.ID)
	}

	converted, err := client.ConvertGuest(ctx, "sam@example.com", "hunter2", "Sam")
	if err != nil {
		t.Fatalf("ConvertGuest() error = %v", err)
	}
	if converted.Identity.IsGuest() {
		t.Error("converted identity is still a guest")
	}
	if converted.Token == guest.Token {
		t.Error("conversion reused the guest token")
	}
}

func TestRegisterConflict(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	if _, err := client.Register(ctx, "sam@example.com", "hunter2", "Sam"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	_, err := client.Register(ctx, "sam@example.com", "other", "Sam Two")
	var httpErr *domain.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("Register() duplicate error = %v, want HTTPError", err)
	}
	if httpErr.Status != http.StatusConflict {
		t.Errorf("status = %d, want 409", httpErr.Status)
	}
	if httpErr.Message != "EMAIL_EXISTS" {
		t.Errorf("message = %q, want EMAIL_EXISTS", httpErr.Message)
	}
}

func TestSessionFlow(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	guest, err := client.CreateGuest(ctx, "Sam")
	if err != nil {
		t.Fatal(err)
	}
	client.SetAuthToken(guest.Token)

	scenarios, err := client.ListScenarios(ctx, entities.ScenarioFilter{Category: "work"})
	if err != nil {
		t.Fatalf("ListScenarios() error = %v", err)
	}
	if len(scenarios) == 0 {
		t.Fatal("no work scenarios returned")
	}
	scenario := scenarios[0]

	roles, err := client.ListRoles(ctx, scenario.ID)
	if err != nil {
		t.Fatalf("ListRoles() error = %v", err)
	}
	if len(roles) == 0 {
		t.Fatal("no roles returned")
	}

	session, err := client.CreateSession(ctx, repository.NewSessionParams{
		ScenarioID:        scenario.ID,
		RoleID:            roles[0].ID,
		RelationshipLevel: entities.RelationshipNormal,
		Language:          "en",
	})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if session.MaxTurns != scenario.MaxTurns {
		t.Errorf("session MaxTurns = %d, want %d", session.MaxTurns, scenario.MaxTurns)
	}

	turn, updated, err := client.SubmitTurn(ctx, session.ID, "hello!")
	if err != nil {
		t.Fatalf("SubmitTurn() error = %v", err)
	}
	if turn.AIResponse == "" {
		t.Error("turn has no AI response")
	}
	if updated.CurrentTurn != 1 {
		t.Errorf("CurrentTurn = %d, want 1", updated.CurrentTurn)
	}

	ended, err := client.EndSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("EndSession() error = %v", err)
	}
	if !ended.Completed {
		t.Error("session not completed after end call")
	}
	if ended.CompletionReason != entities.CompletionEndedEarly {
		t.Errorf("CompletionReason = %q, want ended_early", ended.CompletionReason)
	}

	rated, err := client.RateSession(ctx, session.ID, 4, "fun")
	if err != nil {
		t.Fatalf("RateSession() error = %v", err)
	}
	if rated.Rating != 4 {
		t.Errorf("Rating = %d, want 4", rated.Rating)
	}

	analytics, err := client.SessionAnalytics(ctx, session.ID)
	if err != nil {
		t.Fatalf("SessionAnalytics() error = %v", err)
	}
	if analytics.TotalTurns != 1 {
		t.Errorf("TotalTurns = %d, want 1", analytics.TotalTurns)
	}
	if len(analytics.Distribution) == 0 {
		t.Error("analytics distribution is empty")
	}

	insights, err := client.SessionInsights(ctx, session.ID)
	if err != nil {
		t.Fatalf("SessionInsights() error = %v", err)
	}
	if insights.Summary == "" {
		t.Error("insights summary is empty")
	}
}

func TestErrorTaxonomy(t *testing.T) {
	t.Run("http error carries status", func(t *testing.T) {
		client := newTestClient(t)
		guest, err := client.CreateGuest(context.Background(), "Sam")
		if err != nil {
			t.Fatal(err)
		}
		client.SetAuthToken(guest.Token)

		_, err = client.GetSession(context.Background(), "sess-unknown")
		var httpErr *domain.HTTPError
		if !errors.As(err, &httpErr) {
			t.Fatalf("error = %v, want HTTPError", err)
		}
		if httpErr.Status != http.StatusNotFound {
			t.Errorf("status = %d, want 404", httpErr.Status)
		}
	})

	t.Run("transport failure maps to network error", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		client, err := NewClient(Config{BaseURL: url}, zaptest.NewLogger(t))
		if err != nil {
			t.Fatal(err)
		}
		_, err = client.ListTags(context.Background(), "en")
		var netErr *domain.NetworkError
		if !errors.As(err, &netErr) {
			t.Errorf("error = %v, want NetworkError", err)
		}
	})

	t.Run("garbage body maps to decode error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("<html>not json</html>"))
		}))
		t.Cleanup(server.Close)

		client, err := NewClient(Config{BaseURL: server.URL}, zaptest.NewLogger(t))
		if err != nil {
			t.Fatal(err)
		}
		_, err = client.ListTags(context.Background(), "en")
		var decodeErr *domain.DecodeError
		if !errors.As(err, &decodeErr) {
			t.Errorf("error = %v, want DecodeError", err)
		}
	})

	t.Run("unsuccessful envelope maps to http error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"success":false,"error":"nope"}`))
		}))
		t.Cleanup(server.Close)

		client, err := NewClient(Config{BaseURL: server.URL}, zaptest.NewLogger(t))
		if err != nil {
			t.Fatal(err)
		}
		_, err = client.ListTags(context.Background(), "en")
		var httpErr *domain.HTTPError
		if !errors.As(err, &httpErr) {
			t.Fatalf("error = %v, want HTTPError", err)
		}
		if httpErr.Message != "nope" {
			t.Errorf("message = %q, want nope", httpErr.Message)
		}
	})
}
