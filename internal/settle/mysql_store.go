package settle

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"fmt"
	"strings"
	"time"

	"RolePay-Agent/deploy/migrations"
	xerrors "RolePay-Agent/internal/errors"
	"github.com/go-sql-driver/mysql"
)

// MySQLStore 使用 MySQL 持久化结算审计记录。
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore 创建一个新的 MySQLStore。
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "MySQL DSN 不能为空")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "连接 MySQL 失败")
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(10 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "无法连接到 MySQL")
	}

	if err := migrations.Apply(db); err != nil {
		_ = db.Close()
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "初始化 settlement_records 表失败")
	}
	return &MySQLStore{db: db}, nil
}

// Create 插入新的结算记录。
func (s *MySQLStore) Create(ctx context.Context, record *Record) error {
	if record == nil {
		return xerrors.New(xerrors.CodeInvalidArgument, "record 不能为空")
	}
	if strings.TrimSpace(record.ID) == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "记录 ID 不能为空")
	}
	if record.CreatedAt == 0 {
		record.CreatedAt = time.Now().Unix()
	}

	const stmt = `INSERT INTO settlement_records
        (id, role_id, role_name, action, digest, affected, status, last_error, error_code, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, stmt,
		record.ID,
		record.RoleID,
		record.RoleName,
		record.Action,
		record.Digest,
		record.Affected,
		record.Status,
		record.LastError,
		record.ErrorCode,
		record.CreatedAt,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if stdErrors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return ErrRecordConflict
		}
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "插入结算记录失败")
	}
	return nil
}

// Get 查询指定记录。
func (s *MySQLStore) Get(ctx context.Context, id string) (*Record, error) {
	const stmt = `SELECT id, role_id, role_name, action, digest, affected, status, last_error, error_code, created_at
        FROM settlement_records WHERE id = ?`

	row := s.db.QueryRowContext(ctx, stmt, id)

	var record Record
	var lastError sql.NullString
	if err := row.Scan(
		&record.ID,
		&record.RoleID,
		&record.RoleName,
		&record.Action,
		&record.Digest,
		&record.Affected,
		&record.Status,
		&lastError,
		&record.ErrorCode,
		&record.CreatedAt,
	); err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询结算记录失败")
	}
	record.LastError = lastError.String
	return &record, nil
}

// List 返回符合过滤条件的记录。
func (s *MySQLStore) List(ctx context.Context, opts ListOptions) ([]*Record, error) {
	opts.applyDefaults()

	query := `SELECT id, role_id, role_name, action, digest, affected, status, last_error, error_code, created_at
        FROM settlement_records`

	clause, filterArgs := buildFilterClause(opts)
	if clause != "" {
		query += " WHERE " + clause
	}

	order := " ORDER BY created_at DESC, id DESC"
	if opts.Order == SortByCreatedAsc {
		order = " ORDER BY created_at ASC, id ASC"
	}
	query += order + " LIMIT ? OFFSET ?"

	args := append(filterArgs, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询结算记录列表失败")
	}
	defer rows.Close()

	records := make([]*Record, 0, opts.Limit)
	for rows.Next() {
		var record Record
		var lastError sql.NullString
		if err := rows.Scan(
			&record.ID,
			&record.RoleID,
			&record.RoleName,
			&record.Action,
			&record.Digest,
			&record.Affected,
			&record.Status,
			&lastError,
			&record.ErrorCode,
			&record.CreatedAt,
		); err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析结算记录失败")
		}
		record.LastError = lastError.String
		recordCopy := record
		records = append(records, &recordCopy)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "遍历结算记录失败")
	}
	return records, nil
}

// Stats 返回符合过滤条件的聚合信息。
func (s *MySQLStore) Stats(ctx context.Context, opts ListOptions) (Stats, error) {
	opts.applyDefaults()

	query := `SELECT
        COUNT(*) AS total,
        SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS confirmed,
        SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS noop,
        SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS rejected,
        SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS failed,
        COALESCE(MIN(created_at), 0) AS oldest,
        COALESCE(MAX(created_at), 0) AS newest
        FROM settlement_records`

	clause, filterArgs := buildFilterClause(opts)
	if clause != "" {
		query += " WHERE " + clause
	}

	args := []any{string(StatusConfirmed), string(StatusNoop), string(StatusRejected), string(StatusFailed)}
	args = append(args, filterArgs...)

	row := s.db.QueryRowContext(ctx, query, args...)

	var stats Stats
	if err := row.Scan(
		&stats.Total,
		&stats.Confirmed,
		&stats.Noop,
		&stats.Rejected,
		&stats.Failed,
		&stats.OldestCreatedAt,
		&stats.NewestCreatedAt,
	); err != nil {
		return Stats{}, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询结算统计失败")
	}
	if stats.Total == 0 {
		stats.OldestCreatedAt = 0
		stats.NewestCreatedAt = 0
	}
	return stats, nil
}

// Close 关闭底层数据库连接。
func (s *MySQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func buildFilterClause(opts ListOptions) (string, []any) {
	conditions := make([]string, 0, 4)
	args := make([]any, 0, 6)

	if opts.RoleID != "" {
		conditions = append(conditions, "role_id = ?")
		args = append(args, opts.RoleID)
	}
	if len(opts.Statuses) > 0 {
		placeholders := make([]string, 0, len(opts.Statuses))
		for range opts.Statuses {
			placeholders = append(placeholders, "?")
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
		for _, status := range opts.Statuses {
			args = append(args, status)
		}
	}
	if opts.CreatedGTE > 0 {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, opts.CreatedGTE)
	}
	if opts.CreatedLTE > 0 {
		conditions = append(conditions, "created_at <= ?")
		args = append(args, opts.CreatedLTE)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return strings.Join(conditions, " AND "), args
}

var _ Store = (*MySQLStore)(nil)
