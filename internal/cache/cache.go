package cache

import "context"

// 持久化本地缓存：key -> JSON 字符串。
// 进程启动时读取一次，用于给内存态 Store 播种；相关 mutation 每次落盘。

// 约定的缓存 key（与远端无关，仅本地侧存储使用）。
const (
	KeySession      = "session"       // 已登录会话（含 isAuthenticated 语义：无值即未登录）
	KeyClients      = "clients"       // 客户列表
	KeyServiceTypes = "service_types" // 服务项目列表
)

// KV 键值缓存接口。value 必须是 JSON 字符串。
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
