package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/TallerDrive/TallerDrive/internal/cascade"
	"github.com/TallerDrive/TallerDrive/internal/common/config"
	"github.com/TallerDrive/TallerDrive/internal/common/logger"
	"github.com/TallerDrive/TallerDrive/internal/importer"
	"github.com/TallerDrive/TallerDrive/internal/model"
	"github.com/TallerDrive/TallerDrive/internal/remote"
	"github.com/TallerDrive/TallerDrive/internal/store"
)

// Gateway 控制台 HTTP 入口：把请求翻译成对引擎/管线/查询层的调用。
// 本身不持有业务状态，所有读写都经由 Store 快照与 Dispatch。
type Gateway struct {
	store    *store.Store
	engine   *cascade.Engine
	pipeline *importer.Pipeline
	remote   *remote.Client
	auth     config.AuthConfig
	log      logger.Logger
}

// New 创建网关。
func New(st *store.Store, en *cascade.Engine, pl *importer.Pipeline, rc *remote.Client,
	authCfg config.AuthConfig, log logger.Logger) *Gateway {
	return &Gateway{
		store:    st,
		engine:   en,
		pipeline: pl,
		remote:   rc,
		auth:     authCfg,
		log:      log,
	}
}

// Handler 组装路由。
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", g.handleHealthz)

	mux.HandleFunc("/api/session/login", g.handleLogin)
	mux.HandleFunc("/api/session/logout", g.handleLogout)
	mux.HandleFunc("/api/session", g.handleSession)

	mux.HandleFunc("/api/clients", g.handleClients)
	mux.HandleFunc("/api/clients/", g.handleClientByID)
	mux.HandleFunc("/api/vehicles", g.handleVehicles)
	mux.HandleFunc("/api/vehicles/", g.handleVehicleByID)
	mux.HandleFunc("/api/work-orders/", g.handleWorkOrderByID)

	mux.HandleFunc("/api/dashboard/stats", g.handleDashboardStats)
	mux.HandleFunc("/api/dashboard/refresh", g.handleDashboardRefresh)

	mux.HandleFunc("/api/import/preview", g.handleImportPreview)
	mux.HandleFunc("/api/import/confirm", g.handleImportConfirm)
	mux.HandleFunc("/api/import/cancel", g.handleImportCancel)
	mux.HandleFunc("/api/import/state", g.handleImportState)
	mux.HandleFunc("/api/import/template", g.handleImportTemplate)

	return mux
}

// writeOK 输出 {success: true, data: ...} 信封。
func (g *Gateway) writeOK(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"data":    data,
	})
}

// writeErr 输出 {success: false, message: ...} 信封，状态码按错误类型映射。
func (g *Gateway) writeErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, cascade.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, cascade.ErrAlreadyCompleted):
		status = http.StatusConflict
	case errors.Is(err, importer.ErrValidationPending),
		errors.Is(err, importer.ErrUnsupportedFile):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, importer.ErrRateLimited):
		status = http.StatusTooManyRequests
	default:
		var apiErr *remote.APIError
		if errors.As(err, &apiErr) {
			status = http.StatusBadRequest
		}
		var transportErr *remote.TransportError
		if errors.As(err, &transportErr) {
			status = http.StatusBadGateway
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"message": err.Error(),
	})
}

func (g *Gateway) writeBadRequest(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"message": msg,
	})
}

func notFoundErr(entity, id string) error {
	return fmt.Errorf("%s %s: %w", entity, id, cascade.ErrNotFound)
}

func methodNotAllowed(w http.ResponseWriter) {
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}

func (g *Gateway) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// sessionView 会话响应（不回传远端令牌本体之外的敏感信息）。
type sessionView struct {
	User      model.User `json:"user"`
	Token     string     `json:"token"`
	ExpiresAt string     `json:"expiresAt"`
}

func (g *Gateway) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		g.writeBadRequest(w, "malformed request body")
		return
	}
	if in.Username == "" || in.Password == "" {
		g.writeBadRequest(w, "username and password required")
		return
	}

	sess, err := g.remote.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		g.writeErr(w, err)
		return
	}
	g.store.Dispatch(r.Context(), store.Login(*sess))

	g.writeOK(w, http.StatusOK, sessionView{
		User:      sess.User,
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

func (g *Gateway) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	g.store.Dispatch(r.Context(), store.Logout())
	g.remote.SetToken("")
	g.writeOK(w, http.StatusOK, nil)
}

func (g *Gateway) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	sess := g.store.Snapshot().Session
	if sess == nil {
		g.writeOK(w, http.StatusOK, nil)
		return
	}
	g.writeOK(w, http.StatusOK, sessionView{
		User:      sess.User,
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

func (g *Gateway) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	g.writeOK(w, http.StatusOK, g.store.Snapshot().Stats)
}

func (g *Gateway) handleDashboardRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	g.engine.RefreshStats(r.Context())
	g.writeOK(w, http.StatusOK, g.store.Snapshot().Stats)
}
