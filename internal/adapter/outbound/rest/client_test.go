package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/TanmoySin/sessionguard/internal/domain/auth"
	"github.com/TanmoySin/sessionguard/internal/port/outbound"
)

func TestClient_Login(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/auth/login" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding login request: %v", err)
		}
		if req.Email != "ada@example.com" || req.Password != "secret" {
			t.Errorf("credentials = %+v", req)
		}
		_ = json.NewEncoder(w).Encode(loginResponse{
			Credential: "tok-1",
			SessionID:  "sess-1",
			User:       userPayload{ID: "u-1", Email: "ada@example.com", Name: "Ada", Role: "manager"},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	result, err := client.Login(context.Background(), outbound.Credentials{Email: "ada@example.com", Password: "secret"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.Credential != "tok-1" || result.SessionID != "sess-1" {
		t.Errorf("result = %+v", result)
	}
	if result.User.Role != auth.RoleManager {
		t.Errorf("role = %q, want manager", result.User.Role)
	}
}

func TestClient_LoginRejectsIncompleteResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		resp loginResponse
	}{
		{"missing credential", loginResponse{SessionID: "s", User: userPayload{Role: "member"}}},
		{"missing session id", loginResponse{Credential: "t", User: userPayload{Role: "member"}}},
		{"unknown role", loginResponse{Credential: "t", SessionID: "s", User: userPayload{Role: "superuser"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(tt.resp)
			}))
			defer srv.Close()

			client := NewClient(srv.URL)
			if _, err := client.Login(context.Background(), outbound.Credentials{}); err == nil {
				t.Error("expected error for incomplete login response")
			}
		})
	}
}

func TestClient_SessionStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/auth/session-status" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(statusResponse{
			IsActive:            true,
			IdleTimeRemainingMs: 90_000,
			ShouldWarn:          true,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	status, err := client.SessionStatus(context.Background())
	if err != nil {
		t.Fatalf("SessionStatus: %v", err)
	}
	if !status.Active {
		t.Error("Active = false, want true")
	}
	if status.IdleRemaining != 90*time.Second {
		t.Errorf("IdleRemaining = %v, want 90s", status.IdleRemaining)
	}
	if !status.ShouldWarn {
		t.Error("ShouldWarn = false, want true")
	}
}

func TestClient_Unauthorized(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "session expired", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.SessionStatus(context.Background())
	if !errors.Is(err, outbound.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %T, want *APIError", err)
	}
	if apiErr.Status != http.StatusUnauthorized {
		t.Errorf("Status = %d, want 401", apiErr.Status)
	}
}

func TestClient_ServerUnreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	client := NewClient(srv.URL)
	err := client.Ping(context.Background())
	if !errors.Is(err, outbound.ErrServerUnreachable) {
		t.Errorf("err = %v, want ErrServerUnreachable", err)
	}
}

func TestClient_PingAndLogout(t *testing.T) {
	t.Parallel()

	var gotPaths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPaths = append(gotPaths, r.Method+" "+r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := client.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	want := []string{"POST /auth/ping", "POST /auth/logout"}
	if len(gotPaths) != 2 || gotPaths[0] != want[0] || gotPaths[1] != want[1] {
		t.Errorf("requests = %v, want %v", gotPaths, want)
	}
}

func TestClient_Timeout(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	client := NewClient(srv.URL, WithTimeout(50*time.Millisecond))
	start := time.Now()
	err := client.Ping(context.Background())
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("timed out after %v, want ~50ms", elapsed)
	}
}
