package agent

import (
	"context"
	"log/slog"
	"time"

	"RolePay-Agent/internal/role"
	"RolePay-Agent/internal/status"
	"RolePay-Agent/pkg/logger"
)

// Monitor 是结算循环的只读伴随进程：以更短的间隔重新判定每个
// 已知角色，把快照写进状态注册表供展示层轮询。它从不提交交易。
type Monitor struct {
	agent    *Agent
	registry *status.Registry
	interval time.Duration
	now      func() time.Time
}

const defaultMonitorInterval = 15 * time.Second

// NewMonitor 创建监控循环。角色集合与链上读取能力都复用 agent 的。
func NewMonitor(agent *Agent, registry *status.Registry, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = defaultMonitorInterval
	}
	return &Monitor{
		agent:    agent,
		registry: registry,
		interval: interval,
		now:      agent.now,
	}
}

// Start 启动监控循环，直到 ctx 被取消。
func (m *Monitor) Start(ctx context.Context) error {
	logger.L().Info("监控循环启动", slog.Duration("interval", m.interval))

	m.refresh(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.L().Info("监控循环退出")
			return ctx.Err()
		case <-ticker.C:
			m.refresh(ctx)
		}
	}
}

// refresh 串行刷新所有已知角色的快照。监控只做读取，单个角色
// 出错时保留上一份快照。
func (m *Monitor) refresh(ctx context.Context) {
	for _, roleID := range m.agent.Roles() {
		if ctx.Err() != nil {
			return
		}
		r, err := m.agent.readRole(ctx, roleID)
		if err != nil {
			logger.Named("monitor").Warn("刷新角色快照失败",
				slog.String("role_id", roleID),
				slog.String("error", err.Error()))
			continue
		}
		if r == nil {
			m.registry.Delete(roleID)
			continue
		}
		m.registry.Put(m.snapshot(r))
	}
}

// snapshot 把一个角色的当前判定结果折叠成展示快照。
func (m *Monitor) snapshot(r *role.Role) status.Snapshot {
	now := m.now()
	snapshot := status.Snapshot{
		RoleID:        r.ID,
		RoleName:      r.Name,
		ReadyCount:    role.ReadyCount(r, now),
		Balance:       r.Balance,
		ExpiryTime:    r.ExpiryTime,
		Action:        role.Evaluate(r, now).String(),
		LastCheckedAt: now.UnixMilli(),
	}
	if next, ok := role.NextPaymentTime(r, now); ok {
		snapshot.NextPaymentTime = next.UnixMilli()
	}
	return snapshot
}
