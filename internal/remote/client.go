package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/TallerDrive/TallerDrive/internal/common/config"
	"github.com/TallerDrive/TallerDrive/internal/common/logger"
	"github.com/TallerDrive/TallerDrive/internal/common/middleware"
	"github.com/TallerDrive/TallerDrive/internal/common/tracing"
	"github.com/TallerDrive/TallerDrive/internal/model"
)

// Client 远端持久化 API（事实源）的 REST 客户端。
// 边界约定：
// - 每个 CRUD 端点返回 {success, data?, message?} 信封
// - 信封在这里解析成显式 DTO；畸形响应一律视为 TransportError，
//   不把松散类型的数据放进内存 Store
// - 单次调用超时即终态失败，不重试；所有调用包在熔断器里
type Client struct {
	baseURL string
	http    *http.Client
	breaker *middleware.CircuitBreaker
	log     logger.Logger

	mu    sync.RWMutex
	token string // 会话令牌，登录后附带到后续请求
}

// New 创建客户端。baseURL 由上层决定（静态配置或 Consul 解析结果）。
func New(baseURL string, cfg config.RemoteConfig, log logger.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		breaker: middleware.NewCircuitBreaker("remote-api", cfg.BreakerMaxFail,
			time.Duration(cfg.BreakerResetMS)*time.Millisecond),
		log: log,
	}
}

// SetToken 设置会话令牌（登录成功后由上层写入）。
func (c *Client) SetToken(token string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// envelope CRUD 端点的统一响应信封。
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// doJSON 发送 JSON 请求并把信封里的 data 解析到 out（out 可为 nil）。
func (c *Client) doJSON(ctx context.Context, op, method, path string, in, out any) error {
	if c == nil || c.http == nil {
		return &TransportError{Op: op, Err: fmt.Errorf("client not initialized")}
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return &TransportError{Op: op, Err: fmt.Errorf("marshal request: %w", err)}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	raw, err := c.roundTrip(ctx, op, req)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("malformed envelope: %w", err)}
	}
	if !env.Success {
		return &APIError{Op: op, Message: env.Message}
	}
	if out != nil {
		if len(env.Data) == 0 {
			return &TransportError{Op: op, Err: fmt.Errorf("envelope data is empty")}
		}
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &TransportError{Op: op, Err: fmt.Errorf("malformed data: %w", err)}
		}
	}
	return nil
}

// newJSONRequest 构造携带 JSON body 的请求。
func (c *Client) newJSONRequest(ctx context.Context, op, method, path string, in any) (*http.Request, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("marshal request: %w", err)}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// roundTrip 附加令牌 + tracing，包熔断执行，返回 2xx 响应体。
func (c *Client) roundTrip(ctx context.Context, op string, req *http.Request) ([]byte, error) {
	if token := c.currentToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	span, _ := tracing.StartClientSpan(ctx, "remote."+op, req)

	var raw []byte
	statusCode := 0
	err := c.breaker.Call(ctx, func() error {
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		statusCode = resp.StatusCode

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(data, 256))
		}
		raw = data
		return nil
	})
	tracing.FinishClientSpan(span, statusCode, err)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	return raw, nil
}

// loginData 登录端点的 data 字段。
type loginData struct {
	User      model.User `json:"user"`
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

// Login 登录，成功后把令牌记到客户端并返回会话。
func (c *Client) Login(ctx context.Context, username, password string) (*model.Session, error) {
	in := map[string]string{"username": username, "password": password}
	var data loginData
	if err := c.doJSON(ctx, "login", http.MethodPost, "/api/auth/login", in, &data); err != nil {
		return nil, err
	}
	if data.Token == "" || data.User.ID == "" {
		return nil, &TransportError{Op: "login", Err: fmt.Errorf("incomplete login payload")}
	}
	c.SetToken(data.Token)
	return &model.Session{User: data.User, Token: data.Token, ExpiresAt: data.ExpiresAt}, nil
}

// CreateClient 新建客户（远端先写，成功才会进内存 Store）。
func (c *Client) CreateClient(ctx context.Context, in model.Client) (*model.Client, error) {
	var out model.Client
	if err := c.doJSON(ctx, "create client", http.MethodPost, "/api/clients", in, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, &TransportError{Op: "create client", Err: fmt.Errorf("response missing id")}
	}
	return &out, nil
}

// UpdateClient 更新客户。
func (c *Client) UpdateClient(ctx context.Context, in model.Client) (*model.Client, error) {
	if in.ID == "" {
		return nil, fmt.Errorf("client id is empty")
	}
	var out model.Client
	if err := c.doJSON(ctx, "update client", http.MethodPut, "/api/clients/"+in.ID, in, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, &TransportError{Op: "update client", Err: fmt.Errorf("response missing id")}
	}
	return &out, nil
}

// CreateVehicle 新建车辆。
func (c *Client) CreateVehicle(ctx context.Context, in model.Vehicle) (*model.Vehicle, error) {
	var out model.Vehicle
	if err := c.doJSON(ctx, "create vehicle", http.MethodPost, "/api/vehicles", in, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, &TransportError{Op: "create vehicle", Err: fmt.Errorf("response missing id")}
	}
	return &out, nil
}

// ListClients 拉取全量客户（导入提交后的重新同步用）。
func (c *Client) ListClients(ctx context.Context) ([]model.Client, error) {
	var out []model.Client
	if err := c.doJSON(ctx, "list clients", http.MethodGet, "/api/clients", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListVehicles 拉取全量车辆。
func (c *Client) ListVehicles(ctx context.Context) ([]model.Vehicle, error) {
	var out []model.Vehicle
	if err := c.doJSON(ctx, "list vehicles", http.MethodGet, "/api/vehicles", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListServiceTypes 拉取服务项目。
func (c *Client) ListServiceTypes(ctx context.Context) ([]model.ServiceType, error) {
	var out []model.ServiceType
	if err := c.doJSON(ctx, "list service types", http.MethodGet, "/api/service-types", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func truncate(data []byte, n int) string {
	if len(data) <= n {
		return string(data)
	}
	return string(data[:n]) + "..."
}
