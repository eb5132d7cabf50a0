package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/TallerDrive/TallerDrive/internal/common/config"
	"github.com/TallerDrive/TallerDrive/internal/common/logger"
)

func TestEmitDeliversEntry(t *testing.T) {
	var mu sync.Mutex
	var got []Entry
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var e Entry
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			t.Errorf("decode entry: %v", err)
		}
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	em := NewEmitter(config.AuditConfig{Endpoint: srv.URL, TimeoutSeconds: 2}, logger.Nop())
	em.Emit(context.Background(), Entry{
		UserID:      "u1",
		Action:      "delete",
		Entity:      "client",
		EntityID:    "c1",
		Description: "Deleted client",
		Severity:    SeverityHigh,
	})
	em.Flush()

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("expected 1 delivered entry, got %d", len(got))
	}
	if got[0].Action != "delete" || got[0].Severity != SeverityHigh {
		t.Fatalf("unexpected entry: %+v", got[0])
	}
	if got[0].CreatedAt.IsZero() {
		t.Fatalf("expected createdAt stamped")
	}
}

func TestEmitSwallowsDeliveryFailure(t *testing.T) {
	// 指向已关闭的地址：投递必然失败，但 Emit/Flush 不得炸给调用方
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	em := NewEmitter(config.AuditConfig{Endpoint: endpoint, TimeoutSeconds: 1}, logger.Nop())
	em.Emit(context.Background(), Entry{Action: "update", Entity: "client"})
	em.Flush()
}

func TestEmitSwallowsSinkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "sink down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	em := NewEmitter(config.AuditConfig{Endpoint: srv.URL, TimeoutSeconds: 1}, logger.Nop())
	em.Emit(context.Background(), Entry{Action: "create", Entity: "vehicle"})
	em.Flush()
}

func TestEmitRateLimitDropsExcess(t *testing.T) {
	var mu sync.Mutex
	delivered := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		delivered++
		mu.Unlock()
	}))
	defer srv.Close()

	em := NewEmitter(config.AuditConfig{
		Endpoint:       srv.URL,
		TimeoutSeconds: 2,
		RatePerSecond:  1,
		Burst:          2,
	}, logger.Nop())

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		em.Emit(ctx, Entry{Action: "update", Entity: "client"})
	}
	em.Flush()

	mu.Lock()
	defer mu.Unlock()
	if delivered > 3 {
		t.Fatalf("expected excess entries dropped, delivered %d", delivered)
	}
	if delivered == 0 {
		t.Fatalf("expected at least burst entries delivered")
	}
}

func TestEmitWithoutEndpointOnlyLogs(t *testing.T) {
	em := NewEmitter(config.AuditConfig{}, logger.Nop())
	em.Emit(context.Background(), Entry{Action: "login", Entity: "session"})
	em.Flush()
}
