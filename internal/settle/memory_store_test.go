package settle

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func seedRecords(t *testing.T, store *MemoryStore) {
	t.Helper()
	statuses := []Status{StatusConfirmed, StatusNoop, StatusRejected, StatusConfirmed, StatusFailed}
	for i, status := range statuses {
		roleID := "0xone"
		if i%2 == 1 {
			roleID = "0xtwo"
		}
		record := &Record{
			ID:        fmt.Sprintf("rec-%d", i),
			RoleID:    roleID,
			Action:    "execute_payments",
			Status:    status,
			CreatedAt: int64(1000 + i),
		}
		if err := store.Create(context.Background(), record); err != nil {
			t.Fatalf("写入记录失败: %v", err)
		}
	}
}

func TestMemoryStoreCreateAndGet(t *testing.T) {
	store := NewMemoryStore()
	record := &Record{ID: "rec-1", RoleID: "0xrole", Action: "execute_expiry", Status: StatusConfirmed}

	if err := store.Create(context.Background(), record); err != nil {
		t.Fatalf("写入记录失败: %v", err)
	}
	// 同一 ID 重复写入必须失败。
	if err := store.Create(context.Background(), record); !errors.Is(err, ErrRecordConflict) {
		t.Fatalf("期望 ErrRecordConflict，实际为 %v", err)
	}

	got, err := store.Get(context.Background(), "rec-1")
	if err != nil {
		t.Fatalf("查询记录失败: %v", err)
	}
	if got.RoleID != "0xrole" || got.Status != StatusConfirmed {
		t.Fatalf("记录内容不正确: %+v", got)
	}
	// 读出的是副本，修改不应影响存储。
	got.Status = StatusFailed
	again, _ := store.Get(context.Background(), "rec-1")
	if again.Status != StatusConfirmed {
		t.Fatal("存储中的记录被外部修改污染")
	}

	if _, err := store.Get(context.Background(), "missing"); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("期望 ErrRecordNotFound，实际为 %v", err)
	}
}

func TestMemoryStoreCreateValidation(t *testing.T) {
	store := NewMemoryStore()

	if err := store.Create(context.Background(), nil); err == nil {
		t.Fatal("nil 记录应写入失败")
	}
	if err := store.Create(context.Background(), &Record{Status: StatusConfirmed}); err == nil {
		t.Fatal("缺少 ID 的记录应写入失败")
	}
	if err := store.Create(context.Background(), &Record{ID: "rec-x", Status: Status("bogus")}); err == nil {
		t.Fatal("非法状态应写入失败")
	}
}

func TestMemoryStoreListFilters(t *testing.T) {
	store := NewMemoryStore()
	seedRecords(t, store)

	all, err := store.List(context.Background(), ListOptions{})
	if err != nil {
		t.Fatalf("查询列表失败: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("期望 5 条记录，实际为 %d", len(all))
	}
	// 默认按创建时间倒序。
	if all[0].ID != "rec-4" || all[4].ID != "rec-0" {
		t.Fatalf("默认排序不正确: %s ... %s", all[0].ID, all[4].ID)
	}

	byRole, err := store.List(context.Background(), ListOptions{RoleID: "0xtwo"})
	if err != nil {
		t.Fatalf("按角色过滤失败: %v", err)
	}
	if len(byRole) != 2 {
		t.Fatalf("期望 2 条记录，实际为 %d", len(byRole))
	}

	confirmed, err := store.List(context.Background(), ListOptions{Statuses: []Status{StatusConfirmed}})
	if err != nil {
		t.Fatalf("按状态过滤失败: %v", err)
	}
	if len(confirmed) != 2 {
		t.Fatalf("期望 2 条 confirmed，实际为 %d", len(confirmed))
	}

	paged, err := store.List(context.Background(), ListOptions{Limit: 2, Offset: 1, Order: SortByCreatedAsc})
	if err != nil {
		t.Fatalf("分页查询失败: %v", err)
	}
	if len(paged) != 2 || paged[0].ID != "rec-1" || paged[1].ID != "rec-2" {
		t.Fatalf("分页结果不正确: %+v", paged)
	}
}

func TestMemoryStoreStats(t *testing.T) {
	store := NewMemoryStore()
	seedRecords(t, store)

	stats, err := store.Stats(context.Background(), ListOptions{})
	if err != nil {
		t.Fatalf("查询统计失败: %v", err)
	}
	if stats.Total != 5 || stats.Confirmed != 2 || stats.Noop != 1 || stats.Rejected != 1 || stats.Failed != 1 {
		t.Fatalf("统计不正确: %+v", stats)
	}
	if stats.OldestCreatedAt != 1000 || stats.NewestCreatedAt != 1004 {
		t.Fatalf("时间范围不正确: %+v", stats)
	}

	empty, err := NewMemoryStore().Stats(context.Background(), ListOptions{})
	if err != nil {
		t.Fatalf("空存储统计失败: %v", err)
	}
	if empty.Total != 0 || empty.OldestCreatedAt != 0 {
		t.Fatalf("空存储统计不正确: %+v", empty)
	}
}
