// Package status keeps the per-role snapshots recomputed by the read-only
// monitor loop so the display layer can poll them over HTTP.
package status

import (
	"sort"
	"sync"
)

// Snapshot 是某个角色在最近一次监控检查时的只读快照。
// NextPaymentTime 为 0 表示没有未来的未执行支付。
type Snapshot struct {
	RoleID          string `json:"role_id"`
	RoleName        string `json:"role_name"`
	ReadyCount      int    `json:"ready_count"`
	NextPaymentTime int64  `json:"next_payment_time,omitempty"`
	Balance         uint64 `json:"balance"`
	ExpiryTime      int64  `json:"expiry_time"`
	Action          string `json:"action"`
	LastCheckedAt   int64  `json:"last_checked_at"`
}

// Registry 保存所有已知角色的最新快照。
type Registry struct {
	mu        sync.RWMutex
	snapshots map[string]Snapshot
}

// NewRegistry 创建空的快照注册表。
func NewRegistry() *Registry {
	return &Registry{snapshots: make(map[string]Snapshot)}
}

// Put 写入或覆盖一个角色的快照。
func (r *Registry) Put(snapshot Snapshot) {
	if snapshot.RoleID == "" {
		return
	}
	r.mu.Lock()
	r.snapshots[snapshot.RoleID] = snapshot
	r.mu.Unlock()
}

// Get 返回指定角色的快照。
func (r *Registry) Get(roleID string) (Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snapshot, ok := r.snapshots[roleID]
	return snapshot, ok
}

// Delete 移除不再存在的角色。
func (r *Registry) Delete(roleID string) {
	r.mu.Lock()
	delete(r.snapshots, roleID)
	r.mu.Unlock()
}

// All 返回按角色 ID 排序的快照列表。
func (r *Registry) All() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Snapshot, 0, len(r.snapshots))
	for _, snapshot := range r.snapshots {
		result = append(result, snapshot)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].RoleID < result[j].RoleID
	})
	return result
}

// Len 返回已知角色数量。
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.snapshots)
}
