package settle

import "context"

// Store 抽象了结算记录的持久化接口。记录只增不改：每次提交
// 产生一条带最终结局的审计记录。
type Store interface {
	Create(ctx context.Context, record *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context, opts ListOptions) ([]*Record, error)
	Stats(ctx context.Context, opts ListOptions) (Stats, error)
	Close() error
}

// Stats 聚合了结算记录的统计信息，用于状态接口与健康检查。
type Stats struct {
	Total           int   `json:"total"`
	Confirmed       int   `json:"confirmed"`
	Noop            int   `json:"noop"`
	Rejected        int   `json:"rejected"`
	Failed          int   `json:"failed"`
	OldestCreatedAt int64 `json:"oldest_created_at,omitempty"`
	NewestCreatedAt int64 `json:"newest_created_at,omitempty"`
}
