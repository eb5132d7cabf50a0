package remote

import "fmt"

// TransportError 网络层失败：连接/超时/非 2xx/响应体不合法。
// 统一语义：向上层直接透出，不自动重试、不静默降级为本地状态。
type TransportError struct {
	Op  string // 出错的操作名，如 "create client"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("remote %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError 远端返回 success=false 的业务失败（带远端 message）。
type APIError struct {
	Op      string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote %s: request rejected", e.Op)
	}
	return fmt.Sprintf("remote %s: %s", e.Op, e.Message)
}
