package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/gorilla/mux"

	"github.com/inventoryapp/inventoryapp/internal/api"
	"github.com/inventoryapp/inventoryapp/internal/common/config"
	"github.com/inventoryapp/inventoryapp/internal/common/db"
	"github.com/inventoryapp/inventoryapp/internal/common/logger"
	"github.com/inventoryapp/inventoryapp/internal/common/server"
	"github.com/inventoryapp/inventoryapp/internal/common/tracing"
	"github.com/inventoryapp/inventoryapp/internal/inventory"
	"github.com/inventoryapp/inventoryapp/internal/storage"
	"github.com/inventoryapp/inventoryapp/internal/user"
)

var (
	configPath      = flag.String("config", "configs/inventory-service.json", "配置文件路径")
	configFromKV    = flag.Bool("config-from-consul", false, "从 Consul KV 加载配置")
	consulConfigKey = flag.String("consul-kv-key", "inventoryapp/inventory-service/config", "Consul KV 配置键")
)

func main() {
	flag.Parse()

	// 加载配置
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	if *configFromKV {
		cfg, err = config.LoadConfigFromConsulKV(cfg.Consul, *consulConfigKey)
		if err != nil {
			panic(fmt.Sprintf("failed to load config from consul kv: %v", err))
		}
	}

	// 初始化日志
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

	// 初始化链路追踪
	tracer, closer, err := tracing.InitTracer(
		cfg.Server.Name,
		cfg.Jaeger.Endpoint,
		cfg.Jaeger.Sampler,
	)
	if err != nil {
		log.Warnf("failed to init tracer: %v", err)
	} else {
		defer closer.Close()
	}
	_ = tracer

	// 初始化数据库
	gormDB, err := db.NewMySQL(
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Database,
		cfg.Database.MaxIdle,
		cfg.Database.MaxOpen,
	)
	if err != nil {
		log.Fatalf("failed to init mysql: %v", err)
	}
	if err := gormDB.AutoMigrate(&inventory.Vehicle{}, &user.User{}); err != nil {
		log.Fatalf("failed to migrate mysql schema: %v", err)
	}

	ctx := context.Background()

	// 初始化对象存储
	objects, err := storage.NewObjectStoreFromConfig(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("failed to init object storage: %v", err)
	}
	if err := objects.ValidateSetup(); err != nil {
		log.Fatalf("object storage setup check failed: %v", err)
	}

	// 组装领域服务
	userSvc := user.NewService(user.NewRepo(gormDB), cfg.Auth, log)
	if err := userSvc.EnsureGuestAccount(ctx); err != nil {
		log.Fatalf("failed to seed guest account: %v", err)
	}
	invSvc := inventory.NewService(inventory.NewRepo(gormDB), objects, log)

	handler := api.NewHandler(invSvc, userSvc, log)
	// 启动时整表加载一次，之后列表靠增删改按 id 原地同步。
	handler.RefreshInventory(ctx)

	// 启动统一的 HTTP 服务模板
	if err := server.RunHTTPServer(cfg, log, func(r *mux.Router) error {
		handler.Register(r, objects)
		return nil
	}); err != nil {
		log.Fatalf("inventory-service exited with error: %v", err)
	}
}
