package settle

import (
	xerrors "RolePay-Agent/internal/errors"
)

// Status 表示一次结算提交的最终结局。
type Status string

const (
	// StatusConfirmed 交易成功且至少驱动了一笔资金移动。
	StatusConfirmed Status = "confirmed"
	// StatusNoop 交易成功落链但没有任何支付被移动（与其他实例竞争，
	// 或链上时钟尚未到达预定时间）。
	StatusNoop Status = "noop"
	// StatusRejected 合约拒绝了交易。
	StatusRejected Status = "rejected"
	// StatusFailed 提交过程中出现传输层错误。
	StatusFailed Status = "failed"
)

// Record 保存一次结算提交的审计信息。
type Record struct {
	ID        string `json:"id"`
	RoleID    string `json:"role_id"`
	RoleName  string `json:"role_name"`
	Action    string `json:"action"`
	Digest    string `json:"digest,omitempty"`
	Affected  int    `json:"affected"`
	Status    Status `json:"status"`
	LastError string `json:"last_error,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

var (
	// ErrRecordNotFound 表示指定的结算记录不存在。
	ErrRecordNotFound = xerrors.New(CodeRecordNotFound, "settlement record not found")
	// ErrRecordConflict 表示记录 ID 已存在。
	ErrRecordConflict = xerrors.New(CodeRecordConflict, "settlement record conflict", xerrors.WithSeverity(xerrors.SeverityWarning))
)

const (
	CodeRecordNotFound xerrors.Code = "SETTLEMENT_NOT_FOUND"
	CodeRecordConflict xerrors.Code = "SETTLEMENT_CONFLICT"
	CodeSettlementNoop xerrors.Code = "SETTLEMENT_NOOP"
)

func init() {
	xerrors.Register(CodeRecordNotFound, xerrors.Attributes{
		Message:   "settlement record not found",
		Severity:  xerrors.SeverityInfo,
		Retryable: false,
		Alert:     false,
	})
	xerrors.Register(CodeRecordConflict, xerrors.Attributes{
		Message:   "settlement record conflict",
		Severity:  xerrors.SeverityWarning,
		Retryable: false,
		Alert:     false,
	})
	xerrors.Register(CodeSettlementNoop, xerrors.Attributes{
		Message:   "settlement landed without moving funds",
		Severity:  xerrors.SeverityWarning,
		Retryable: false,
		Alert:     false,
	})
}

// IsValidStatus 检查给定状态是否为支持的枚举值。
func IsValidStatus(status Status) bool {
	switch status {
	case StatusConfirmed, StatusNoop, StatusRejected, StatusFailed:
		return true
	default:
		return false
	}
}
