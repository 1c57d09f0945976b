package role

import (
	xerrors "RolePay-Agent/internal/errors"
)

// 合约模块与事件、入口的命名，与链上 role 模块保持一致。
const (
	MoveModule = "role"

	EventRoleCreated         = "RoleCreated"
	EventPaymentExecuted     = "PaymentExecuted"
	EventLeftoverTransferred = "LeftoverTransferred"

	EntryExecutePayments = "execute_payments"
	EntryExecuteExpiry   = "execute_expiry"
)

// ScheduledPayment 是角色中的一笔预定支付。
type ScheduledPayment struct {
	Recipient     string `json:"recipient"`
	Amount        uint64 `json:"amount"`
	ScheduledTime int64  `json:"scheduled_time"`
	Executed      bool   `json:"executed"`
}

// Role 是链上角色对象的本地快照。余额与时间都是精确整数，
// 时间为毫秒时间戳，金额为链上最小单位。
type Role struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	Creator           string             `json:"creator"`
	StartTime         int64              `json:"start_time"`
	ExpiryTime        int64              `json:"expiry_time"`
	Balance           uint64             `json:"balance"`
	Payments          []ScheduledPayment `json:"payments"`
	LeftoverRecipient string             `json:"leftover_recipient"`
}

// ErrNotARole 表示对象存在但不是角色对象，属于正常跳过条件。
var ErrNotARole = xerrors.New(xerrors.CodeNotFound, "object is not a role")

// CreatedEventType 拼出角色创建事件的完整 Move 事件类型。
func CreatedEventType(packageID string) string {
	return packageID + "::" + MoveModule + "::" + EventRoleCreated
}
