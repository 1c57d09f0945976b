package settle

import (
	"context"
	"sort"
	"sync"
	"time"

	xerrors "RolePay-Agent/internal/errors"
)

// MemoryStore 以内存方式保存结算记录，默认驱动，也用于测试。
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryStore 创建 MemoryStore。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

// Create 实现 Store 接口。
func (m *MemoryStore) Create(_ context.Context, record *Record) error {
	if record == nil {
		return xerrors.New(xerrors.CodeInvalidArgument, "record 不能为空")
	}
	if record.ID == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "记录 ID 不能为空")
	}
	if !IsValidStatus(record.Status) {
		return xerrors.New(xerrors.CodeInvalidArgument, "记录状态不合法")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[record.ID]; ok {
		return ErrRecordConflict
	}
	if record.CreatedAt == 0 {
		record.CreatedAt = time.Now().Unix()
	}
	clone := *record
	m.records[record.ID] = &clone
	return nil
}

// Get 返回指定记录。
func (m *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.records[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	clone := *record
	return &clone, nil
}

// List 返回符合过滤条件的记录。
func (m *MemoryStore) List(_ context.Context, opts ListOptions) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	opts.applyDefaults()

	results := make([]*Record, 0, len(m.records))
	for _, record := range m.records {
		if !matchesListFilters(record, opts) {
			continue
		}
		clone := *record
		results = append(results, &clone)
	}

	sort.Slice(results, func(i, j int) bool {
		if opts.Order == SortByCreatedAsc {
			if results[i].CreatedAt == results[j].CreatedAt {
				return results[i].ID < results[j].ID
			}
			return results[i].CreatedAt < results[j].CreatedAt
		}
		if results[i].CreatedAt == results[j].CreatedAt {
			return results[i].ID > results[j].ID
		}
		return results[i].CreatedAt > results[j].CreatedAt
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(results) {
			return []*Record{}, nil
		}
		results = results[opts.Offset:]
	}
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}

// Stats 统计符合过滤条件的记录数量与时间范围。
func (m *MemoryStore) Stats(_ context.Context, opts ListOptions) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	opts.applyDefaults()

	stats := Stats{}
	for _, record := range m.records {
		if !matchesListFilters(record, opts) {
			continue
		}
		stats.Total++
		switch record.Status {
		case StatusConfirmed:
			stats.Confirmed++
		case StatusNoop:
			stats.Noop++
		case StatusRejected:
			stats.Rejected++
		case StatusFailed:
			stats.Failed++
		}
		if record.CreatedAt > stats.NewestCreatedAt {
			stats.NewestCreatedAt = record.CreatedAt
		}
		if stats.OldestCreatedAt == 0 || (record.CreatedAt != 0 && record.CreatedAt < stats.OldestCreatedAt) {
			stats.OldestCreatedAt = record.CreatedAt
		}
	}
	return stats, nil
}

// Close 对内存存储无需操作。
func (m *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
