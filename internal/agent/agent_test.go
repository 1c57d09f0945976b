package agent

import (
	"context"
	"sync"
	"testing"
	"time"

	xerrors "RolePay-Agent/internal/errors"
	"RolePay-Agent/internal/settle"
	"RolePay-Agent/internal/status"
	"RolePay-Agent/internal/sui"
)

// fakeLedger 是可编程的链上假实现。
type fakeLedger struct {
	mu      sync.Mutex
	events  []sui.Event
	objects map[string]*sui.ObjectData

	queryErr  error
	objectErr map[string]error
	execErr   error
	execResp  *sui.TxResponse

	executed []sui.MoveCall
	delay    time.Duration
}

func (f *fakeLedger) QueryEvents(ctx context.Context, eventType string, limit int) ([]sui.Event, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.events, nil
}

func (f *fakeLedger) GetObject(ctx context.Context, id string) (*sui.ObjectData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.objectErr[id]; err != nil {
		return nil, err
	}
	return f.objects[id], nil
}

func (f *fakeLedger) SignAndExecute(ctx context.Context, call sui.MoveCall) (*sui.TxResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.executed = append(f.executed, call)
	if f.execErr != nil {
		return nil, f.execErr
	}
	if f.execResp != nil {
		return f.execResp, nil
	}
	return successResponse(1), nil
}

func (f *fakeLedger) Balance(ctx context.Context, owner string) (uint64, error) {
	return 1_000_000_000, nil
}

func (f *fakeLedger) Address() string { return "0xsender" }

func (f *fakeLedger) executedCalls() []sui.MoveCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sui.MoveCall(nil), f.executed...)
}

func successResponse(payments int) *sui.TxResponse {
	resp := &sui.TxResponse{
		Digest:  "digest-1",
		Effects: &sui.TxEffects{Status: sui.TxStatus{Status: "success"}},
	}
	for i := 0; i < payments; i++ {
		resp.Events = append(resp.Events, sui.Event{Type: "0xpkg::role::PaymentExecuted"})
	}
	return resp
}

func roleObject(balance string, scheduledTime string, executed bool) *sui.ObjectData {
	return &sui.ObjectData{
		Content: &sui.ObjectContent{
			DataType: "moveObject",
			Type:     "0xpkg::role::Role",
			Fields: map[string]any{
				"name":        "payroll",
				"start_time":  "1000",
				"expiry_time": "1000000000000000",
				"balance":     balance,
				"payments": []any{
					map[string]any{
						"recipient":      "0xaaa",
						"amount":         "100",
						"scheduled_time": scheduledTime,
						"executed":       executed,
					},
				},
			},
		},
	}
}

func createdEvent(roleID string) sui.Event {
	return sui.Event{
		Type:       "0xpkg::role::RoleCreated",
		ParsedJSON: map[string]any{"role_id": roleID},
	}
}

func newTestAgent(ledger *fakeLedger, store settle.Store, opts ...Option) *Agent {
	base := []Option{WithCallTimeout(time.Second)}
	return New(ledger, store, "0xpkg", "0x6", append(base, opts...)...)
}

func TestRunCycleExecutesDuePayments(t *testing.T) {
	ledger := &fakeLedger{
		events: []sui.Event{createdEvent("0xrole")},
		objects: map[string]*sui.ObjectData{
			"0xrole": roleObject("5000", "2000", false),
		},
	}
	store := settle.NewMemoryStore()
	ag := newTestAgent(ledger, store)

	ag.runCycle(context.Background())

	calls := ledger.executedCalls()
	if len(calls) != 1 {
		t.Fatalf("期望提交 1 笔交易，实际为 %d", len(calls))
	}
	if calls[0].Function != "execute_payments" {
		t.Fatalf("入口不正确: %s", calls[0].Function)
	}
	if calls[0].Args[0] != "0xrole" || calls[0].Args[1] != "0x6" {
		t.Fatalf("参数不正确: %+v", calls[0].Args)
	}

	records, err := store.List(context.Background(), settle.ListOptions{})
	if err != nil {
		t.Fatalf("查询结算记录失败: %v", err)
	}
	if len(records) != 1 || records[0].Status != settle.StatusConfirmed {
		t.Fatalf("结算记录不正确: %+v", records)
	}
	if records[0].Affected != 1 {
		t.Fatalf("应记录 1 笔资金移动，实际为 %d", records[0].Affected)
	}
}

func TestRunCycleSkipsIdleRoles(t *testing.T) {
	ledger := &fakeLedger{
		events: []sui.Event{createdEvent("0xrole")},
		objects: map[string]*sui.ObjectData{
			// 支付排在遥远的未来，本轮不应有任何提交。
			"0xrole": roleObject("5000", "900000000000000", false),
		},
	}
	ag := newTestAgent(ledger, settle.NewMemoryStore())

	ag.runCycle(context.Background())

	if calls := ledger.executedCalls(); len(calls) != 0 {
		t.Fatalf("空闲角色不应触发交易: %+v", calls)
	}
}

func TestRunCycleIsolatesRoleFailures(t *testing.T) {
	ledger := &fakeLedger{
		events: []sui.Event{createdEvent("0xbad"), createdEvent("0xgood")},
		objects: map[string]*sui.ObjectData{
			"0xgood": roleObject("5000", "2000", false),
		},
		objectErr: map[string]error{
			"0xbad": xerrors.New(xerrors.CodeTransientTransport, "节点超时"),
		},
	}
	store := settle.NewMemoryStore()
	ag := newTestAgent(ledger, store)

	ag.runCycle(context.Background())

	calls := ledger.executedCalls()
	if len(calls) != 1 || calls[0].Args[0] != "0xgood" {
		t.Fatalf("健康角色应正常结算: %+v", calls)
	}
	// 读取失败的角色保留在集合中，下一轮重试。
	roles := ag.Roles()
	if len(roles) != 2 {
		t.Fatalf("失败角色不应被移除: %+v", roles)
	}
}

func TestRunCycleForgetsDestroyedRoles(t *testing.T) {
	ledger := &fakeLedger{
		events:  []sui.Event{createdEvent("0xgone")},
		objects: map[string]*sui.ObjectData{},
	}
	ag := newTestAgent(ledger, settle.NewMemoryStore())

	ag.runCycle(context.Background())

	if roles := ag.Roles(); len(roles) != 0 {
		t.Fatalf("已销毁角色应被移除: %+v", roles)
	}
}

func TestRunCycleRecordsNoop(t *testing.T) {
	ledger := &fakeLedger{
		events: []sui.Event{createdEvent("0xrole")},
		objects: map[string]*sui.ObjectData{
			"0xrole": roleObject("5000", "2000", false),
		},
		execResp: successResponse(0),
	}
	store := settle.NewMemoryStore()
	ag := newTestAgent(ledger, store)

	ag.runCycle(context.Background())

	records, err := store.List(context.Background(), settle.ListOptions{})
	if err != nil {
		t.Fatalf("查询结算记录失败: %v", err)
	}
	if len(records) != 1 || records[0].Status != settle.StatusNoop {
		t.Fatalf("无资金移动的成功交易应记为 noop: %+v", records)
	}
}

func TestRunCycleRecordsRejection(t *testing.T) {
	ledger := &fakeLedger{
		events: []sui.Event{createdEvent("0xrole")},
		objects: map[string]*sui.ObjectData{
			"0xrole": roleObject("5000", "2000", false),
		},
		execResp: &sui.TxResponse{
			Digest:  "digest-2",
			Effects: &sui.TxEffects{Status: sui.TxStatus{Status: "failure", Error: "MoveAbort(..., 4)"}},
		},
	}
	store := settle.NewMemoryStore()
	ag := newTestAgent(ledger, store)

	ag.runCycle(context.Background())

	records, err := store.List(context.Background(), settle.ListOptions{})
	if err != nil {
		t.Fatalf("查询结算记录失败: %v", err)
	}
	if len(records) != 1 || records[0].Status != settle.StatusRejected {
		t.Fatalf("合约拒绝应记为 rejected: %+v", records)
	}
	if records[0].ErrorCode != string(xerrors.CodeContractRejection) {
		t.Fatalf("错误码不正确: %s", records[0].ErrorCode)
	}
}

func TestDispatchCycleDropsOverlappingTicks(t *testing.T) {
	ledger := &fakeLedger{
		events: []sui.Event{createdEvent("0xrole")},
		objects: map[string]*sui.ObjectData{
			"0xrole": roleObject("5000", "900000000000000", false),
		},
		delay: 200 * time.Millisecond,
	}
	ag := newTestAgent(ledger, settle.NewMemoryStore())

	ctx := context.Background()
	ag.dispatchCycle(ctx)
	time.Sleep(20 * time.Millisecond)

	// 第一轮仍在慢速查询中，后续触发应被直接丢弃。
	if ag.running.CompareAndSwap(false, true) {
		t.Fatal("第一轮应仍在执行")
	}
	ag.dispatchCycle(ctx)
	ag.dispatchCycle(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for ag.running.Load() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if ag.running.Load() {
		t.Fatal("第一轮未在期限内结束")
	}
}

func TestMonitorPublishesSnapshots(t *testing.T) {
	ledger := &fakeLedger{
		events: []sui.Event{createdEvent("0xrole")},
		objects: map[string]*sui.ObjectData{
			"0xrole": roleObject("5000", "2000", false),
		},
	}
	ag := newTestAgent(ledger, settle.NewMemoryStore())
	if err := ag.discoverRoles(context.Background()); err != nil {
		t.Fatalf("发现角色失败: %v", err)
	}

	registry := status.NewRegistry()
	monitor := NewMonitor(ag, registry, time.Second)
	monitor.refresh(context.Background())

	snapshot, ok := registry.Get("0xrole")
	if !ok {
		t.Fatal("监控应写入角色快照")
	}
	if snapshot.ReadyCount != 1 || snapshot.Action != "execute_payments" {
		t.Fatalf("快照内容不正确: %+v", snapshot)
	}
	if snapshot.Balance != 5_000 {
		t.Fatalf("快照余额不正确: %d", snapshot.Balance)
	}

	// 角色销毁后快照被清除。
	ledger.mu.Lock()
	delete(ledger.objects, "0xrole")
	ledger.mu.Unlock()
	monitor.refresh(context.Background())
	if _, ok := registry.Get("0xrole"); ok {
		t.Fatal("已销毁角色的快照应被删除")
	}
}

func TestDiscoverRolesMergesAndDedupes(t *testing.T) {
	ledger := &fakeLedger{
		events: []sui.Event{
			createdEvent("0xone"),
			createdEvent("0xone"),
			{Type: "0xpkg::role::RoleCreated", ParsedJSON: map[string]any{"unrelated": 1.0}},
			createdEvent("0xtwo"),
		},
	}
	ag := newTestAgent(ledger, settle.NewMemoryStore())

	if err := ag.discoverRoles(context.Background()); err != nil {
		t.Fatalf("发现角色失败: %v", err)
	}

	roles := ag.Roles()
	if len(roles) != 2 || roles[0] != "0xone" || roles[1] != "0xtwo" {
		t.Fatalf("角色集合不正确: %+v", roles)
	}

	// 事件翻页后旧角色依然保留。
	ledger.mu.Lock()
	ledger.events = []sui.Event{createdEvent("0xthree")}
	ledger.mu.Unlock()
	if err := ag.discoverRoles(context.Background()); err != nil {
		t.Fatalf("发现角色失败: %v", err)
	}
	if len(ag.Roles()) != 3 {
		t.Fatalf("历史角色应保留: %+v", ag.Roles())
	}
}
