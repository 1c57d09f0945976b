package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// 默认的 Sui 共享时钟对象，合约从它读取链上时间。
const defaultClockObjectID = "0x0000000000000000000000000000000000000000000000000000000000000006"

// EnvPrivateKey 指定签名私钥的环境变量名称。
const EnvPrivateKey = "SUI_PRIVATE_KEY"

// EnvCheckInterval 允许通过环境变量覆盖轮询间隔（秒）。
const EnvCheckInterval = "ROLEPAY_CHECK_INTERVAL"

// Config 描述了结算守护进程在启动阶段需要加载的核心配置。
type Config struct {
	Server    ServerConfig    `json:"server"`
	Network   NetworkConfig   `json:"network"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Storage   StorageConfig   `json:"storage"`
	Notify    NotifyConfig    `json:"notify"`
	Log       LogConfig       `json:"log"`
}

// ServerConfig 控制只读状态接口的监听地址。
type ServerConfig struct {
	Address string `json:"address"`
}

// NetworkConfig 选择目标网络并指向 networks.yaml 定义文件。
type NetworkConfig struct {
	Name           string `json:"name"`
	DefinitionPath string `json:"definition_path"`
	// 以下字段可以覆盖定义文件中的内容，便于本地调试。
	RPCURL        string `json:"rpc_url"`
	PackageID     string `json:"package_id"`
	ClockObjectID string `json:"clock_object_id"`
}

// SchedulerConfig 控制结算循环与监控循环的节奏。
type SchedulerConfig struct {
	CheckIntervalSeconds   int    `json:"check_interval_seconds"`
	MonitorIntervalSeconds int    `json:"monitor_interval_seconds"`
	CallTimeoutSeconds     int    `json:"call_timeout_seconds"`
	Concurrency            int    `json:"concurrency"`
	EventLimit             int    `json:"event_limit"`
	GasBudget              uint64 `json:"gas_budget"`
	MinGasBalance          uint64 `json:"min_gas_balance"`
}

// StorageConfig 描述结算记录存储的驱动方式。
type StorageConfig struct {
	SettlementStore SettlementStoreConfig `json:"settlement_store"`
}

// SettlementStoreConfig 支持 memory 与 mysql 两种驱动。
type SettlementStoreConfig struct {
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`
}

// NotifyConfig 描述结算结果事件队列的驱动方式。
type NotifyConfig struct {
	Driver   string         `json:"driver"`
	Redis    RedisConfig    `json:"redis"`
	RabbitMQ RabbitMQConfig `json:"rabbitmq"`
}

// RedisConfig 描述 Redis 队列连接参数。
type RedisConfig struct {
	Address          string `json:"address"`
	Password         string `json:"password"`
	DB               int    `json:"db"`
	Queue            string `json:"queue"`
	BlockWaitSeconds int    `json:"block_wait_seconds"`
}

// RabbitMQConfig 描述 RabbitMQ 队列连接参数。
type RabbitMQConfig struct {
	URL        string `json:"url"`
	Queue      string `json:"queue"`
	Prefetch   int    `json:"prefetch"`
	Durable    bool   `json:"durable"`
	AutoDelete bool   `json:"auto_delete"`
}

// LogConfig 对应 pkg/logger 的初始化参数。
type LogConfig struct {
	Level       string         `json:"level"`
	Format      string         `json:"format"`
	OutputPaths []string       `json:"output_paths"`
	Audit       AuditLogConfig `json:"audit"`
}

// AuditLogConfig 控制结算审计日志。
type AuditLogConfig struct {
	Enabled    bool   `json:"enabled"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// Load 负责解析指定路径的 JSON 配置文件。
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("配置文件路径为空")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开配置文件失败: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	cfg.applyDefaults(filepath.Dir(path))
	cfg.applyEnvOverrides()

	return &cfg, nil
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}

	if c.Network.Name == "" {
		c.Network.Name = "testnet"
	}
	if c.Network.DefinitionPath == "" {
		c.Network.DefinitionPath = filepath.Join(baseDir, "networks.yaml")
	} else if !filepath.IsAbs(c.Network.DefinitionPath) {
		c.Network.DefinitionPath = filepath.Join(baseDir, c.Network.DefinitionPath)
	}
	if c.Network.ClockObjectID == "" {
		c.Network.ClockObjectID = defaultClockObjectID
	}

	if c.Scheduler.CheckIntervalSeconds <= 0 {
		c.Scheduler.CheckIntervalSeconds = 120
	}
	if c.Scheduler.MonitorIntervalSeconds <= 0 {
		c.Scheduler.MonitorIntervalSeconds = 15
	}
	if c.Scheduler.CallTimeoutSeconds <= 0 {
		c.Scheduler.CallTimeoutSeconds = 15
	}
	if c.Scheduler.Concurrency <= 0 {
		c.Scheduler.Concurrency = 4
	}
	if c.Scheduler.EventLimit <= 0 {
		c.Scheduler.EventLimit = 100
	}
	if c.Scheduler.GasBudget == 0 {
		c.Scheduler.GasBudget = 10_000_000
	}
	if c.Scheduler.MinGasBalance == 0 {
		// 0.01 SUI，与参考机器人的低余额告警阈值一致。
		c.Scheduler.MinGasBalance = 10_000_000
	}

	if c.Storage.SettlementStore.Driver == "" {
		c.Storage.SettlementStore.Driver = "memory"
	}
	if c.Notify.Driver == "" {
		c.Notify.Driver = "memory"
	}
}

// applyEnvOverrides 读取允许通过环境变量覆盖的运行参数。
func (c *Config) applyEnvOverrides() {
	if raw := os.Getenv(EnvCheckInterval); raw != "" {
		if seconds, err := strconv.Atoi(raw); err == nil && seconds > 0 {
			c.Scheduler.CheckIntervalSeconds = seconds
		}
	}
}

// CheckInterval 返回结算循环的间隔。
func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.Scheduler.CheckIntervalSeconds) * time.Second
}

// MonitorInterval 返回监控循环的间隔。
func (c *Config) MonitorInterval() time.Duration {
	return time.Duration(c.Scheduler.MonitorIntervalSeconds) * time.Second
}

// CallTimeout 返回单次链上调用的超时时间。
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.Scheduler.CallTimeoutSeconds) * time.Second
}
