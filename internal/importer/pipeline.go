package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/TallerDrive/TallerDrive/internal/audit"
	"github.com/TallerDrive/TallerDrive/internal/common/config"
	"github.com/TallerDrive/TallerDrive/internal/common/logger"
	"github.com/TallerDrive/TallerDrive/internal/common/middleware"
	"github.com/TallerDrive/TallerDrive/internal/model"
	"github.com/TallerDrive/TallerDrive/internal/query"
	"github.com/TallerDrive/TallerDrive/internal/remote"
	"github.com/TallerDrive/TallerDrive/internal/store"
)

// State 导入管线状态。
type State string

const (
	StateIdle         State = "idle"
	StateUploading    State = "uploading"
	StatePreviewReady State = "preview_ready"
	StateConfirming   State = "confirming"
	StateCommitted    State = "committed"
	StateCancelled    State = "cancelled"
	StateError        State = "error"
)

// AllowTransition 导入管线状态机的允许流转关系。
// committed / cancelled / error 不是死胡同：发起新上传会重新进入 uploading。
var AllowTransition = map[State][]State{
	StateIdle:         {StateUploading},
	StateUploading:    {StatePreviewReady, StateError},
	StatePreviewReady: {StateConfirming, StateCancelled, StateUploading},
	StateConfirming:   {StateCommitted, StateError},
	StateCommitted:    {StateUploading},
	StateCancelled:    {StateUploading},
	StateError:        {StateUploading},
}

// CanTransition 判断 from -> to 是否允许。
func CanTransition(from, to State) bool {
	for _, s := range AllowTransition[from] {
		if s == to {
			return true
		}
	}
	return false
}

var (
	// ErrValidationPending 预览批次还有未解决的校验错误，禁止提交。
	ErrValidationPending = errors.New("import preview has unresolved validation errors")
	// ErrRateLimited 预览上传触发滑动窗口限流。
	ErrRateLimited = errors.New("too many import uploads, slow down")
	// ErrUnsupportedFile 文件扩展名不在白名单内。
	ErrUnsupportedFile = errors.New("unsupported import file type")
)

// allowedExtensions 预览上传接受的表格类型。
var allowedExtensions = map[string]struct{}{
	".xlsx": {},
	".xls":  {},
	".csv":  {},
}

// Remote 管线依赖的远端导入端点。
type Remote interface {
	PreviewImport(ctx context.Context, filename string, file io.Reader) (*remote.ImportPreview, error)
	ConfirmImport(ctx context.Context, tempFilePath string) (*remote.ImportConfirmResult, error)
	ReleaseImport(ctx context.Context, tempFilePath string) error
	ListClients(ctx context.Context) ([]model.Client, error)
	ListVehicles(ctx context.Context) ([]model.Vehicle, error)
}

// Pipeline 两段式批量导入管线（上传预览 -> 确认落库）。
// 单实例串行：mutex 覆盖整个操作，同一时刻只有一个在途批次。
// 要点：
//   - staging token 单次有效，进入 confirming 即消耗，失败也不复用
//   - 新上传顶替旧批次时，旧 token 尽力释放（远端另有 TTL 兜底）
//   - 提交成功后从远端整拉客户/车辆回灌 Store，不做本地增量合并
type Pipeline struct {
	mu      sync.Mutex
	state   State
	lastErr error

	preview *remote.ImportPreview
	token   string

	remote  Remote
	store   *store.Store
	audit   *audit.Emitter
	limiter middleware.RateLimiter
	log     logger.Logger
}

// NewPipeline 创建管线。
func NewPipeline(rc Remote, st *store.Store, em *audit.Emitter, cfg config.ImportConfig, log logger.Logger) *Pipeline {
	var limiter middleware.RateLimiter
	if cfg.MaxUploadsPerMinute > 0 {
		limiter = middleware.NewSlidingWindow(time.Minute, cfg.MaxUploadsPerMinute)
	}
	return &Pipeline{
		state:   StateIdle,
		remote:  rc,
		store:   st,
		audit:   em,
		limiter: limiter,
		log:     log,
	}
}

// State 当前状态。
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Preview 当前预览批次（preview_ready 之外为 nil）。
func (p *Pipeline) Preview() *remote.ImportPreview {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.preview
}

// Err 最近一次进入 error 状态的原因。
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// Start 上传表格，进入预览。
// 允许从任意非在途状态发起；已有预览批次时视为顶替，旧 token 先释放。
func (p *Pipeline) Start(ctx context.Context, filename string, file io.Reader) (*remote.ImportPreview, error) {
	if p == nil || p.remote == nil {
		return nil, fmt.Errorf("pipeline not initialized")
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedExtensions[ext]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, ext)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !CanTransition(p.state, StateUploading) {
		return nil, fmt.Errorf("cannot start upload in state %s", p.state)
	}
	if p.limiter != nil && !p.limiter.Allow(ctx) {
		return nil, ErrRateLimited
	}

	// 顶替旧批次：释放旧 staging token，失败只记日志
	if p.token != "" {
		if err := p.remote.ReleaseImport(ctx, p.token); err != nil {
			p.warnf("release superseded staging batch %s: %v", p.token, err)
		}
		p.token = ""
		p.preview = nil
	}

	p.state = StateUploading
	preview, err := p.remote.PreviewImport(ctx, filename, file)
	if err != nil {
		// 上传/解析失败是终态：不重试，等用户修正后重新上传
		p.state = StateError
		p.lastErr = err
		return nil, err
	}

	p.state = StatePreviewReady
	p.lastErr = nil
	p.preview = preview
	p.token = preview.TempFilePath
	return preview, nil
}

// Confirm 提交预览批次落库。
// 硬校验门：ValidationErrors 非空时直接拒绝，状态停留在 preview_ready。
func (p *Pipeline) Confirm(ctx context.Context) (*remote.ImportConfirmResult, error) {
	if p == nil || p.remote == nil {
		return nil, fmt.Errorf("pipeline not initialized")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if !CanTransition(p.state, StateConfirming) {
		return nil, fmt.Errorf("cannot confirm in state %s", p.state)
	}
	if p.preview == nil || p.token == "" {
		return nil, fmt.Errorf("no staged batch to confirm")
	}
	if len(p.preview.ValidationErrors) > 0 {
		return nil, fmt.Errorf("%w: %d error(s)", ErrValidationPending, len(p.preview.ValidationErrors))
	}

	// token 单次有效：进入 confirming 即消耗，失败也不会拿它重试
	token := p.token
	p.token = ""
	p.state = StateConfirming

	result, err := p.remote.ConfirmImport(ctx, token)
	if err != nil {
		p.state = StateError
		p.lastErr = err
		return nil, err
	}

	p.state = StateCommitted
	p.preview = nil
	p.resync(ctx)
	p.emit(ctx, result)
	return result, nil
}

// Cancel 放弃当前预览批次，尽力释放 staging token。
func (p *Pipeline) Cancel(ctx context.Context) error {
	if p == nil {
		return fmt.Errorf("pipeline not initialized")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if !CanTransition(p.state, StateCancelled) {
		return fmt.Errorf("cannot cancel in state %s", p.state)
	}
	if p.token != "" {
		if err := p.remote.ReleaseImport(ctx, p.token); err != nil {
			p.warnf("release cancelled staging batch %s: %v", p.token, err)
		}
	}
	p.state = StateCancelled
	p.preview = nil
	p.token = ""
	return nil
}

// resync 提交成功后从远端整拉客户/车辆回灌 Store，并重算统计。
// 拉取失败只记日志：落库已完成，本地陈旧数据等下一次同步。
func (p *Pipeline) resync(ctx context.Context) {
	if p.store == nil {
		return
	}
	if clients, err := p.remote.ListClients(ctx); err != nil {
		p.warnf("post-import client resync failed: %v", err)
	} else {
		p.store.Dispatch(ctx, store.SetClients(clients))
	}
	if vehicles, err := p.remote.ListVehicles(ctx); err != nil {
		p.warnf("post-import vehicle resync failed: %v", err)
	} else {
		p.store.Dispatch(ctx, store.SetVehicles(vehicles))
	}
	stats := query.ComputeDashboardStats(p.store.Snapshot(), time.Now())
	p.store.Dispatch(ctx, store.RefreshDashboardStats(stats))
}

func (p *Pipeline) emit(ctx context.Context, result *remote.ImportConfirmResult) {
	if p.audit == nil {
		return
	}
	entry := audit.Entry{
		Action:      "import",
		Entity:      "import_batch",
		Description: "Committed bulk client/vehicle import",
		Severity:    audit.SeverityHigh,
	}
	if result != nil && result.Stats != nil {
		entry.Details = map[string]any{
			"clientsProcessed":  result.Stats.ClientsProcessed,
			"vehiclesProcessed": result.Stats.VehiclesProcessed,
			"clientsSkipped":    result.Stats.ClientsSkipped,
			"vehiclesSkipped":   result.Stats.VehiclesSkipped,
		}
	}
	if p.store != nil {
		if sess := p.store.Snapshot().Session; sess != nil {
			entry.UserID = sess.User.ID
			entry.UserName = sess.User.Name
			entry.UserRole = sess.User.Role
		}
	}
	p.audit.Emit(ctx, entry)
}

func (p *Pipeline) warnf(format string, args ...interface{}) {
	if p.log != nil {
		p.log.Warnf(format, args...)
	}
}
