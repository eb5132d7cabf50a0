package main

import (
	"context"
	"flag"
	"time"

	"github.com/TallerDrive/TallerDrive/internal/audit"
	"github.com/TallerDrive/TallerDrive/internal/cache"
	"github.com/TallerDrive/TallerDrive/internal/cascade"
	"github.com/TallerDrive/TallerDrive/internal/common/config"
	"github.com/TallerDrive/TallerDrive/internal/common/db"
	"github.com/TallerDrive/TallerDrive/internal/common/discovery"
	"github.com/TallerDrive/TallerDrive/internal/common/logger"
	"github.com/TallerDrive/TallerDrive/internal/common/server"
	"github.com/TallerDrive/TallerDrive/internal/common/tracing"
	"github.com/TallerDrive/TallerDrive/internal/gateway"
	"github.com/TallerDrive/TallerDrive/internal/importer"
	"github.com/TallerDrive/TallerDrive/internal/remote"
	"github.com/TallerDrive/TallerDrive/internal/store"
	"github.com/sirupsen/logrus"
)

var (
	configPath  = flag.String("config", "configs/console.json", "配置文件路径")
	consulKVKey = flag.String("consul-kv", "", "从 Consul KV 加载配置的 key（优先于 -config）")
)

func main() {
	flag.Parse()

	// 加载配置：Consul KV 优先，其次本地文件（缺失时用默认配置）
	var cfg *config.Config
	var err error
	if *consulKVKey != "" {
		bootstrap := config.GetConfig()
		cfg, err = config.LoadConfigFromConsulKV(bootstrap.Consul.Host, bootstrap.Consul.Port, *consulKVKey)
		if err != nil {
			logrus.Fatalf("failed to load config from consul kv: %v", err)
		}
	} else {
		cfg, err = config.LoadConfig(*configPath)
		if err != nil {
			logrus.Fatalf("failed to load config: %v", err)
		}
	}

	log, err := logger.NewLogger(cfg.Log.Driver, cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.Path)
	if err != nil {
		logrus.Fatalf("failed to init logger: %v", err)
	}

	// 链路追踪（失败不阻塞启动）
	_, closer, err := tracing.InitTracer(cfg.Server.Name, cfg.Jaeger.Endpoint, cfg.Jaeger.Sampler)
	if err != nil {
		log.Warnf("failed to init tracer: %v", err)
	} else {
		defer closer.Close()
	}

	// 持久化本地缓存：MySQL 可用时走 GORM，否则退化为纯内存
	var kv cache.KV
	if cfg.Database.Enabled {
		gdb, err := db.NewMySQL(cfg.Database.Host, cfg.Database.Port,
			cfg.Database.User, cfg.Database.Password, cfg.Database.Database,
			cfg.Database.MaxIdle, cfg.Database.MaxOpen)
		if err != nil {
			log.Warnf("failed to connect cache db, falling back to memory cache: %v", err)
			kv = cache.NewMemory()
		} else {
			gkv := cache.NewGormKV(gdb)
			if err := gkv.AutoMigrate(); err != nil {
				log.Fatalf("failed to migrate cache table: %v", err)
			}
			kv = gkv
		}
	} else {
		kv = cache.NewMemory()
	}

	st := store.New(kv, log)

	restoreCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := st.Restore(restoreCtx); err != nil {
		log.Warnf("cache restore failed, starting with empty state: %v", err)
	}
	cancel()

	// 远端持久化 API 基地址：Consul 解析优先，静态 base_url 兜底
	baseURL := cfg.Remote.BaseURL
	if cfg.Remote.ConsulService != "" {
		consulClient, err := discovery.NewConsulClient(cfg.Consul.Host, cfg.Consul.Port)
		if err != nil {
			log.Warnf("failed to connect consul for service discovery: %v", err)
		} else if resolved, err := discovery.ResolveHTTPService(consulClient, cfg.Remote.ConsulService); err != nil {
			log.Warnf("failed to resolve remote service %s, using base_url: %v", cfg.Remote.ConsulService, err)
		} else {
			baseURL = resolved
		}
	}
	rc := remote.New(baseURL, cfg.Remote, log)

	// 恢复出已登录会话时，把令牌交还远端客户端
	if sess := st.Snapshot().Session; sess != nil {
		rc.SetToken(sess.Token)
		log.Infof("restored session for user %s", sess.User.Username)
	}

	emitter := audit.NewEmitter(cfg.Audit, log)
	defer emitter.Flush()

	engine := cascade.New(st, rc, emitter, log)
	pipeline := importer.NewPipeline(rc, st, emitter, cfg.Import, log)

	// 启动即重算一次仪表盘统计（回灌的缓存数据也能立即出数）
	engine.RefreshStats(context.Background())

	gw := gateway.New(st, engine, pipeline, rc, cfg.Auth, log)
	if err := server.RunHTTPServer(cfg, log, gw.Handler()); err != nil {
		log.Fatalf("console service exited: %v", err)
	}
}
