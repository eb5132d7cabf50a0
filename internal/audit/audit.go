package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/TallerDrive/TallerDrive/internal/common/config"
	"github.com/TallerDrive/TallerDrive/internal/common/logger"
	"github.com/TallerDrive/TallerDrive/internal/common/middleware"
)

// Severity 审计条目级别。
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Entry 一条业务 mutation 的结构化审计记录。
type Entry struct {
	UserID      string         `json:"userId"`
	UserName    string         `json:"userName"`
	UserRole    string         `json:"userRole"`
	Action      string         `json:"action"`
	Entity      string         `json:"entity"`
	EntityID    string         `json:"entityId,omitempty"`
	Description string         `json:"description"`
	Details     map[string]any `json:"details,omitempty"`
	Severity    Severity       `json:"severity"`
	IPAddress   string         `json:"ipAddress,omitempty"`
	UserAgent   string         `json:"userAgent,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// Emitter 审计发射器：fire-and-forget 旁路通道。
// 铁律：投递失败（网络/限流/接收端挂了）只能记本地日志并吞掉，
// 绝不允许把它描述的那次业务操作拖垮。
type Emitter struct {
	endpoint string
	http     *http.Client
	limiter  middleware.RateLimiter
	log      logger.Logger

	wg sync.WaitGroup
}

// NewEmitter 创建发射器。endpoint 为空时只打本地日志。
func NewEmitter(cfg config.AuditConfig, log logger.Logger) *Emitter {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	var limiter middleware.RateLimiter
	if cfg.RatePerSecond > 0 {
		limiter = middleware.NewTokenBucket(cfg.Burst, cfg.RatePerSecond)
	}
	return &Emitter{
		endpoint: cfg.Endpoint,
		http:     &http.Client{Timeout: timeout},
		limiter:  limiter,
		log:      log,
	}
}

// Emit 异步投递一条审计记录，立即返回。
func (e *Emitter) Emit(ctx context.Context, entry Entry) {
	if e == nil {
		return
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if entry.Severity == "" {
		entry.Severity = SeverityLow
	}

	// 本地侧写一份，方便排查（旁路挂了也有迹可循）
	if e.log != nil {
		e.log.WithFields(map[string]interface{}{
			"action":   entry.Action,
			"entity":   entry.Entity,
			"entityId": entry.EntityID,
			"severity": string(entry.Severity),
		}).Info(entry.Description)
	}

	if e.endpoint == "" {
		return
	}
	if e.limiter != nil && !e.limiter.Allow(ctx) {
		e.warnf("audit entry dropped by rate limiter: action=%s entity=%s", entry.Action, entry.Entity)
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				e.warnf("audit delivery panic: %v", r)
			}
		}()
		e.deliver(entry)
	}()
}

// deliver 同步 POST 到接收端；任何失败都只记日志。
func (e *Emitter) deliver(entry Entry) {
	data, err := json.Marshal(entry)
	if err != nil {
		e.warnf("audit marshal failed: %v", err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, e.endpoint, bytes.NewReader(data))
	if err != nil {
		e.warnf("audit request build failed: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.http.Do(req)
	if err != nil {
		e.warnf("audit delivery failed: %v", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e.warnf("audit sink returned status %d", resp.StatusCode)
	}
}

// Flush 等待所有在途投递完成（测试 / 进程退出用）。
func (e *Emitter) Flush() {
	if e == nil {
		return
	}
	e.wg.Wait()
}

func (e *Emitter) warnf(format string, args ...interface{}) {
	if e.log != nil {
		e.log.Warnf(format, args...)
	}
}
