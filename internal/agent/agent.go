package agent

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	xerrors "RolePay-Agent/internal/errors"
	"RolePay-Agent/internal/observability/metrics"
	"RolePay-Agent/internal/role"
	"RolePay-Agent/internal/settle"
	"RolePay-Agent/internal/sui"
	"RolePay-Agent/pkg/logger"
)

// Ledger 抽象了代理需要的链上能力，由 sui.SigningClient 实现。
type Ledger interface {
	QueryEvents(ctx context.Context, eventType string, limit int) ([]sui.Event, error)
	GetObject(ctx context.Context, id string) (*sui.ObjectData, error)
	SignAndExecute(ctx context.Context, call sui.MoveCall) (*sui.TxResponse, error)
	Balance(ctx context.Context, owner string) (uint64, error)
	Address() string
}

// Agent 是系统的业务核心：周期性发现角色、读取状态、判定并提交结算。
type Agent struct {
	ledger        Ledger
	store         settle.Store
	publisher     notifyPublisher
	alerts        alertDispatcher
	packageID     string
	clockObjectID string
	checkInterval time.Duration
	callTimeout   time.Duration
	concurrency   int
	eventLimit    int
	gasBudget     uint64
	minGasBalance uint64
	now           func() time.Time

	// running 保证同一时刻最多一轮检查在跑；到点时上一轮未结束则直接丢弃本次触发。
	running atomic.Bool

	mu    sync.RWMutex
	roles map[string]struct{}
}

// Option 定义可选的 Agent 配置。
type Option func(*Agent)

const (
	defaultCheckInterval = 2 * time.Minute
	defaultCallTimeout   = 15 * time.Second
	defaultConcurrency   = 4
	defaultEventLimit    = 100
)

// WithCheckInterval 设置结算循环的间隔。
func WithCheckInterval(interval time.Duration) Option {
	return func(a *Agent) {
		if interval > 0 {
			a.checkInterval = interval
		}
	}
}

// WithCallTimeout 设置单次链上调用的超时时间。
func WithCallTimeout(timeout time.Duration) Option {
	return func(a *Agent) {
		if timeout > 0 {
			a.callTimeout = timeout
		}
	}
}

// WithConcurrency 设置同一轮内并发处理的角色数上限。
func WithConcurrency(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithEventLimit 设置每轮角色发现时查询的事件数量。
func WithEventLimit(limit int) Option {
	return func(a *Agent) {
		if limit > 0 {
			a.eventLimit = limit
		}
	}
}

// WithGasBudget 设置结算交易的 gas 预算。
func WithGasBudget(budget uint64) Option {
	return func(a *Agent) {
		if budget > 0 {
			a.gasBudget = budget
		}
	}
}

// WithMinGasBalance 设置预检时的最低 gas 余额阈值。
func WithMinGasBalance(min uint64) Option {
	return func(a *Agent) {
		a.minGasBalance = min
	}
}

// WithPublisher 配置结算事件队列，用于实时交易流。
func WithPublisher(publisher notifyPublisher) Option {
	return func(a *Agent) {
		a.publisher = publisher
	}
}

// WithAlertDispatcher 配置告警分发器。
func WithAlertDispatcher(dispatcher alertDispatcher) Option {
	return func(a *Agent) {
		a.alerts = dispatcher
	}
}

// WithClock 替换时间源，仅测试使用。
func WithClock(now func() time.Time) Option {
	return func(a *Agent) {
		if now != nil {
			a.now = now
		}
	}
}

// New 创建一个 Agent。
func New(ledger Ledger, store settle.Store, packageID, clockObjectID string, opts ...Option) *Agent {
	ag := &Agent{
		ledger:        ledger,
		store:         store,
		packageID:     packageID,
		clockObjectID: clockObjectID,
		checkInterval: defaultCheckInterval,
		callTimeout:   defaultCallTimeout,
		concurrency:   defaultConcurrency,
		eventLimit:    defaultEventLimit,
		now:           time.Now,
		roles:         make(map[string]struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(ag)
		}
	}
	return ag
}

// Preflight 在进入循环前验证链上凭证可用，并检查 gas 余额。
// 余额不足只告警不中断：代理仍可能完成余额充足前入账的结算。
func (a *Agent) Preflight(ctx context.Context) error {
	if a.ledger == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "未配置链上客户端")
	}
	address := a.ledger.Address()
	if address == "" {
		return xerrors.New(xerrors.CodeInitializationFailure, "签名地址为空")
	}

	callCtx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()
	balance, err := a.ledger.Balance(callCtx, address)
	if err != nil {
		logger.L().Warn("预检查询 gas 余额失败",
			slog.String("address", address),
			slog.String("error", err.Error()))
		return nil
	}
	if balance < a.minGasBalance {
		logger.L().Warn("gas 余额低于阈值，结算可能失败",
			slog.String("address", address),
			slog.Uint64("balance", balance),
			slog.Uint64("min_balance", a.minGasBalance))
	} else {
		logger.L().Info("预检通过",
			slog.String("address", address),
			slog.Uint64("balance", balance))
	}
	return nil
}

// Start 启动结算循环，直到 ctx 被取消。启动后立即执行一轮，
// 之后按固定间隔触发。
func (a *Agent) Start(ctx context.Context) error {
	if err := a.Preflight(ctx); err != nil {
		return err
	}

	logger.L().Info("结算循环启动",
		slog.String("package_id", a.packageID),
		slog.Duration("interval", a.checkInterval))

	a.dispatchCycle(ctx)

	ticker := time.NewTicker(a.checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.L().Info("结算循环退出")
			return ctx.Err()
		case <-ticker.C:
			a.dispatchCycle(ctx)
		}
	}
}

// dispatchCycle 尝试启动一轮检查。上一轮仍在执行时丢弃本次触发，
// 不排队补跑。
func (a *Agent) dispatchCycle(ctx context.Context) {
	if !a.running.CompareAndSwap(false, true) {
		metrics.ObserveDroppedTick()
		logger.L().Warn("上一轮检查尚未结束，丢弃本次触发")
		return
	}
	go func() {
		defer a.running.Store(false)
		a.runCycle(ctx)
	}()
}

// runCycle 执行一轮完整的检查：发现角色、读取状态、判定并结算。
func (a *Agent) runCycle(ctx context.Context) {
	cycleID := uuid.NewString()
	started := a.now()
	log := logger.Named("agent").With(slog.String("cycle_id", cycleID))

	if err := a.discoverRoles(ctx); err != nil {
		// 发现失败不致命：已知角色仍然会被检查。
		log.Warn("角色发现失败", slog.String("error", err.Error()))
	}

	roleIDs := a.Roles()
	log.Info("开始检查角色", slog.Int("count", len(roleIDs)))

	sem := make(chan struct{}, a.concurrency)
	var wg sync.WaitGroup
	for _, roleID := range roleIDs {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			defer func() { <-sem }()
			a.checkRole(ctx, log, id)
		}(roleID)
	}
	wg.Wait()

	metrics.ObserveCycle(len(roleIDs))
	log.Info("本轮检查完成",
		slog.Int("count", len(roleIDs)),
		slog.Duration("elapsed", a.now().Sub(started)))
}

// discoverRoles 通过 RoleCreated 事件发现角色并合并进已知集合。
// 事件查询有分页上限，历史角色依赖集合自身保留。
func (a *Agent) discoverRoles(ctx context.Context) error {
	callCtx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()

	events, err := a.ledger.QueryEvents(callCtx, role.CreatedEventType(a.packageID), a.eventLimit)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, event := range events {
		id := roleIDFromEvent(event)
		if id == "" {
			continue
		}
		a.roles[id] = struct{}{}
	}
	return nil
}

// roleIDFromEvent 从 RoleCreated 事件负载中提取角色对象 ID。
func roleIDFromEvent(event sui.Event) string {
	for _, key := range []string{"role_id", "id", "object_id"} {
		if raw, ok := event.ParsedJSON[key]; ok {
			if id, ok := raw.(string); ok && id != "" {
				return id
			}
		}
	}
	return ""
}

// Roles 返回已知角色 ID 的有序快照。
func (a *Agent) Roles() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ids := make([]string, 0, len(a.roles))
	for id := range a.roles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// forgetRole 将已销毁的角色从集合中移除。
func (a *Agent) forgetRole(id string) {
	a.mu.Lock()
	delete(a.roles, id)
	a.mu.Unlock()
}

// checkRole 对单个角色执行一次读取、判定与结算。任何错误都被
// 限制在该角色内，不影响同一轮的其他角色。
func (a *Agent) checkRole(ctx context.Context, log *slog.Logger, roleID string) {
	r, err := a.readRole(ctx, roleID)
	if err != nil {
		code := xerrors.CodeOf(err)
		log.Warn("读取角色状态失败",
			slog.String("role_id", roleID),
			slog.String("code", string(code)),
			slog.String("error", err.Error()))
		return
	}
	if r == nil {
		// 对象已销毁或不再是角色，停止跟踪。
		a.forgetRole(roleID)
		log.Info("角色不存在，移出跟踪集合", slog.String("role_id", roleID))
		return
	}

	action := role.Evaluate(r, a.now())
	if action == role.ActionNone {
		return
	}
	a.execute(ctx, log, r, action)
}

// readRole 读取并解析角色对象。对象不存在返回 (nil, nil)；
// 解析失败返回 MalformedState 错误。
func (a *Agent) readRole(ctx context.Context, roleID string) (*role.Role, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()

	object, err := a.ledger.GetObject(callCtx, roleID)
	if err != nil {
		return nil, err
	}
	if object == nil || object.Content == nil {
		return nil, nil
	}
	parsed, err := role.Parse(roleID, object.Content.Fields)
	if err != nil {
		if xerrors.CodeOf(err) == xerrors.CodeNotFound {
			return nil, nil
		}
		return nil, err
	}
	return parsed, nil
}
