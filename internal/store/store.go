package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/TallerDrive/TallerDrive/internal/cache"
	"github.com/TallerDrive/TallerDrive/internal/common/logger"
	"github.com/TallerDrive/TallerDrive/internal/model"
)

// Store 是唯一的共享可写资源：互斥量守护的当前快照 + 纯 reducer。
// 所有写入都走 Dispatch；读侧通过 Snapshot 拿到不可变引用。
// 其中 {session, clients, serviceTypes} 会镜像到持久化本地缓存，
// 进程启动时 Restore 负责回灌。
type Store struct {
	mu    sync.RWMutex
	state *State

	kv  cache.KV
	log logger.Logger
}

// New 创建 Store。kv 可为 nil（不做镜像，纯内存）。
func New(kv cache.KV, log logger.Logger) *Store {
	return &Store{
		state: NewState(),
		kv:    kv,
		log:   log,
	}
}

// Snapshot 返回当前快照。调用方只读，不得修改。
func (s *Store) Snapshot() *State {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Dispatch 应用一条 mutation 并返回新快照。
// 镜像在持锁期间完成，并发 Dispatch 的缓存写入严格按快照版本顺序落盘，
// 旧快照不会覆盖新快照。镜像失败只记日志，不回滚内存态（缓存是副本，不是事实源）。
func (s *Store) Dispatch(ctx context.Context, msg Message) *State {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.state
	next := Reduce(prev, msg)
	s.state = next
	if next != prev {
		s.mirror(ctx, msg.Kind, next)
	}
	return next
}

// Restore 从持久化缓存回灌 {session, clients, serviceTypes}。
// 过期的会话直接丢弃（视为未登录），缓存数据损坏时跳过对应 key。
func (s *Store) Restore(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	if s.kv == nil {
		return nil
	}

	if raw, ok, err := s.kv.Get(ctx, cache.KeyClients); err != nil {
		return fmt.Errorf("restore clients: %w", err)
	} else if ok {
		var clients []model.Client
		if err := json.Unmarshal([]byte(raw), &clients); err != nil {
			s.warnf("restore: bad clients cache, skipping: %v", err)
		} else {
			s.Dispatch(ctx, SetClients(clients))
		}
	}

	if raw, ok, err := s.kv.Get(ctx, cache.KeyServiceTypes); err != nil {
		return fmt.Errorf("restore service types: %w", err)
	} else if ok {
		var sts []model.ServiceType
		if err := json.Unmarshal([]byte(raw), &sts); err != nil {
			s.warnf("restore: bad service types cache, skipping: %v", err)
		} else {
			s.Dispatch(ctx, SetServiceTypes(sts))
		}
	}

	if raw, ok, err := s.kv.Get(ctx, cache.KeySession); err != nil {
		return fmt.Errorf("restore session: %w", err)
	} else if ok {
		var sess model.Session
		if err := json.Unmarshal([]byte(raw), &sess); err != nil {
			s.warnf("restore: bad session cache, skipping: %v", err)
		} else if !sess.ExpiresAt.After(time.Now()) {
			s.warnf("restore: cached session expired at %s, discarding", sess.ExpiresAt)
			_ = s.kv.Delete(ctx, cache.KeySession)
		} else {
			s.Dispatch(ctx, Login(sess))
		}
	}
	return nil
}

// mirror 按消息类型把受影响的集合写入持久化缓存。
func (s *Store) mirror(ctx context.Context, kind Kind, st *State) {
	if s.kv == nil {
		return
	}
	switch kind {
	case KindSetClients, KindAddClient, KindUpdateClient, KindDeleteClient:
		s.mirrorJSON(ctx, cache.KeyClients, st.Clients)
	case KindSetServiceTypes, KindAddServiceType, KindUpdateServiceType, KindDeleteServiceType:
		s.mirrorJSON(ctx, cache.KeyServiceTypes, st.ServiceTypes)
	case KindLogin:
		s.mirrorJSON(ctx, cache.KeySession, st.Session)
	case KindLogout:
		if err := s.kv.Delete(ctx, cache.KeySession); err != nil {
			s.warnf("cache delete %s: %v", cache.KeySession, err)
		}
	case KindApplyTransaction:
		// 级联可能移除客户，同步客户镜像
		s.mirrorJSON(ctx, cache.KeyClients, st.Clients)
	}
}

func (s *Store) mirrorJSON(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.warnf("cache marshal %s: %v", key, err)
		return
	}
	if err := s.kv.Set(ctx, key, string(data)); err != nil {
		s.warnf("cache set %s: %v", key, err)
	}
}

func (s *Store) warnf(format string, args ...interface{}) {
	if s.log != nil {
		s.log.Warnf(format, args...)
	}
}
