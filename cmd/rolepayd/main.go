package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"RolePay-Agent/internal/agent"
	"RolePay-Agent/internal/api"
	"RolePay-Agent/internal/config"
	"RolePay-Agent/internal/notify"
	"RolePay-Agent/internal/settle"
	"RolePay-Agent/internal/status"
	"RolePay-Agent/internal/sui"
	"RolePay-Agent/pkg/logger"
)

// main 是结算守护进程的入口。凭证或配置不可用时以非零码退出。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("rolepayd 运行失败: %v", err)
	}
}

func run(ctx context.Context) error {
	configPath := os.Getenv("ROLEPAY_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("configs", "rolepay.json")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		OutputPaths: cfg.Log.OutputPaths,
		Audit: logger.AuditConfig{
			Enabled:    cfg.Log.Audit.Enabled,
			Path:       cfg.Log.Audit.Path,
			MaxSizeMB:  cfg.Log.Audit.MaxSizeMB,
			MaxBackups: cfg.Log.Audit.MaxBackups,
			MaxAgeDays: cfg.Log.Audit.MaxAgeDays,
		},
	}); err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	network, err := cfg.ResolveNetwork()
	if err != nil {
		return err
	}
	if network.RPCURL == "" {
		return fmt.Errorf("网络 %s 缺少 rpc_url", cfg.Network.Name)
	}
	if network.PackageID == "" {
		return fmt.Errorf("网络 %s 缺少 package_id", cfg.Network.Name)
	}

	// 凭证缺失或无效是致命错误，进程直接退出。
	secret := strings.TrimSpace(os.Getenv(config.EnvPrivateKey))
	if secret == "" {
		return fmt.Errorf("环境变量 %s 未设置", config.EnvPrivateKey)
	}
	signer, err := sui.ParseKey(secret)
	if err != nil {
		return fmt.Errorf("解析签名私钥失败: %w", err)
	}

	client, err := sui.Dial(ctx, sui.Config{
		Name:   cfg.Network.Name,
		RPCURL: network.RPCURL,
		Notes:  network.Description,
	})
	if err != nil {
		return err
	}
	defer client.Close()
	ledger := sui.NewSigningClient(client, signer)

	store, err := createSettlementStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if store != nil {
			_ = store.Close()
		}
	}()

	queue, err := createNotifyQueue(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if queue != nil {
			if err := queue.Close(); err != nil {
				log.Printf("关闭事件队列失败: %v", err)
			}
		}
	}()

	ag := agent.New(ledger, store, network.PackageID, network.ClockObjectID,
		agent.WithCheckInterval(cfg.CheckInterval()),
		agent.WithCallTimeout(cfg.CallTimeout()),
		agent.WithConcurrency(cfg.Scheduler.Concurrency),
		agent.WithEventLimit(cfg.Scheduler.EventLimit),
		agent.WithGasBudget(cfg.Scheduler.GasBudget),
		agent.WithMinGasBalance(cfg.Scheduler.MinGasBalance),
		agent.WithPublisher(queue),
	)

	registry := status.NewRegistry()
	monitor := agent.NewMonitor(ag, registry, cfg.MonitorInterval())

	agentCtx, agentCancel := context.WithCancel(ctx)
	defer agentCancel()

	go func() {
		if err := ag.Start(agentCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("结算循环异常退出: %v", err)
		}
	}()
	go func() {
		if err := monitor.Start(agentCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("监控循环异常退出: %v", err)
		}
	}()

	server := api.NewServer(cfg.Server.Address, registry, store)
	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// createSettlementStore 根据配置选择结算记录存储驱动。
func createSettlementStore(cfg *config.Config) (settle.Store, error) {
	switch cfg.Storage.SettlementStore.Driver {
	case "", "memory":
		return settle.NewMemoryStore(), nil
	case "mysql":
		return settle.NewMySQLStore(cfg.Storage.SettlementStore.DSN)
	default:
		return nil, fmt.Errorf("未知的存储驱动: %s", cfg.Storage.SettlementStore.Driver)
	}
}

// createNotifyQueue 根据配置选择结算事件队列驱动。
func createNotifyQueue(cfg *config.Config) (notify.Queue, error) {
	switch cfg.Notify.Driver {
	case "", "memory":
		return notify.NewMemoryQueue(1024), nil
	case "redis":
		return notify.NewRedisQueue(notify.RedisQueueConfig{
			Address:   cfg.Notify.Redis.Address,
			Password:  cfg.Notify.Redis.Password,
			DB:        cfg.Notify.Redis.DB,
			Queue:     cfg.Notify.Redis.Queue,
			BlockWait: time.Duration(cfg.Notify.Redis.BlockWaitSeconds) * time.Second,
		})
	case "rabbitmq":
		return notify.NewRabbitMQQueue(notify.RabbitMQConfig{
			URL:        cfg.Notify.RabbitMQ.URL,
			Queue:      cfg.Notify.RabbitMQ.Queue,
			Prefetch:   cfg.Notify.RabbitMQ.Prefetch,
			Durable:    cfg.Notify.RabbitMQ.Durable,
			AutoDelete: cfg.Notify.RabbitMQ.AutoDelete,
		})
	default:
		return nil, fmt.Errorf("未知的队列驱动: %s", cfg.Notify.Driver)
	}
}
