package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/TallerDrive/TallerDrive/internal/common/config"
	"github.com/TallerDrive/TallerDrive/internal/common/logger"
	"github.com/TallerDrive/TallerDrive/internal/model"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	c := New(srv.URL, config.RemoteConfig{TimeoutSeconds: 2}, logger.Nop())
	return c, srv
}

func TestLoginParsesEnvelopeAndKeepsToken(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/login" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"user":      model.User{ID: "u1", Username: "admin", Role: "admin"},
				"token":     "tok-123",
				"expiresAt": "2026-12-31T00:00:00Z",
			},
		})
	}))
	defer srv.Close()

	sess, err := c.Login(context.Background(), "admin", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.User.ID != "u1" || sess.Token != "tok-123" {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if c.currentToken() != "tok-123" {
		t.Fatalf("expected token retained on client")
	}
}

func TestTokenAttachedToRequests(t *testing.T) {
	var gotAuth string
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": []model.Client{}})
	}))
	defer srv.Close()

	c.SetToken("tok-9")
	if _, err := c.ListClients(context.Background()); err != nil {
		t.Fatalf("ListClients: %v", err)
	}
	if gotAuth != "Bearer tok-9" {
		t.Fatalf("expected bearer token header, got %q", gotAuth)
	}
}

func TestAPIErrorOnRejectedEnvelope(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "duplicate phone"})
	}))
	defer srv.Close()

	_, err := c.CreateClient(context.Background(), model.Client{Name: "Ana"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if !strings.Contains(apiErr.Error(), "duplicate phone") {
		t.Fatalf("expected remote message surfaced, got %q", apiErr.Error())
	}
}

func TestTransportErrorOnMalformedEnvelope(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	_, err := c.ListClients(context.Background())
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestTransportErrorOnNon2xx(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := c.ListVehicles(context.Background())
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestPreviewImportUploadsMultipart(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("expected multipart body: %v", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("file part missing: %v", err)
		} else {
			defer file.Close()
			if header.Filename != "clients.xlsx" {
				t.Errorf("unexpected filename %q", header.Filename)
			}
		}
		_ = json.NewEncoder(w).Encode(ImportPreview{
			Success:      true,
			Clients:      []model.Client{{Name: "Ana"}},
			TempFilePath: "tmp-1",
			TempFileName: "clients.xlsx",
		})
	}))
	defer srv.Close()

	preview, err := c.PreviewImport(context.Background(), "clients.xlsx", strings.NewReader("fake-bytes"))
	if err != nil {
		t.Fatalf("PreviewImport: %v", err)
	}
	if preview.TempFilePath != "tmp-1" || len(preview.Clients) != 1 {
		t.Fatalf("unexpected preview: %+v", preview)
	}
}

func TestPreviewImportRequiresStagingToken(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ImportPreview{Success: true})
	}))
	defer srv.Close()

	_, err := c.PreviewImport(context.Background(), "a.csv", strings.NewReader("x"))
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError on missing staging token, got %v", err)
	}
}

func TestConfirmImportSendsToken(t *testing.T) {
	var gotToken string
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		gotToken = in["tempFilePath"]
		_ = json.NewEncoder(w).Encode(ImportConfirmResult{
			Success: true,
			Stats:   &ImportStats{ClientsProcessed: 4},
		})
	}))
	defer srv.Close()

	result, err := c.ConfirmImport(context.Background(), "tmp-2")
	if err != nil {
		t.Fatalf("ConfirmImport: %v", err)
	}
	if gotToken != "tmp-2" {
		t.Fatalf("expected token relayed, got %q", gotToken)
	}
	if result.Stats.ClientsProcessed != 4 {
		t.Fatalf("unexpected stats: %+v", result.Stats)
	}
}
