package role

import "time"

// Action 是就绪判定的结果：本周期不动作、执行到期支付、或执行过期清算。
type Action int

const (
	ActionNone Action = iota
	ActionExecutePayments
	ActionExecuteExpiry
)

// String returns the entry point name for executable actions.
func (a Action) String() string {
	switch a {
	case ActionExecutePayments:
		return EntryExecutePayments
	case ActionExecuteExpiry:
		return EntryExecuteExpiry
	default:
		return "none"
	}
}

// Evaluate 是纯函数：只依据快照与给定时刻判定动作，不做任何 I/O。
// 本地时钟只是预筛选，链上合约以共享时钟对象为准。
//
// 判定顺序为刻意设计：过期清算优先于支付执行。一个同时满足
// “有到期支付”和“已过期”的角色会被清算而不是继续支付，
// 与自动执行机器人的参考行为一致。
func Evaluate(r *Role, now time.Time) Action {
	if r == nil {
		return ActionNone
	}
	nowMs := now.UnixMilli()

	// 过期且仍有余额：无论支付状态如何都清算剩余资金。
	if nowMs > r.ExpiryTime {
		if r.Balance > 0 {
			return ActionExecuteExpiry
		}
		return ActionNone
	}

	// 余额为零时任何提交都是无效交易。
	if r.Balance == 0 {
		return ActionNone
	}

	// 尚未进入有效期。
	if nowMs < r.StartTime {
		return ActionNone
	}

	if ReadyCount(r, now) > 0 {
		return ActionExecutePayments
	}
	return ActionNone
}

// ReadyCount 统计当前时刻已到期且未执行的支付数量。
func ReadyCount(r *Role, now time.Time) int {
	if r == nil {
		return 0
	}
	nowMs := now.UnixMilli()
	count := 0
	for _, payment := range r.Payments {
		if !payment.Executed && nowMs >= payment.ScheduledTime {
			count++
		}
	}
	return count
}

// NextPaymentTime 返回下一笔未执行支付的预定时间。第二个返回值为
// false 表示不存在未来的未执行支付。
func NextPaymentTime(r *Role, now time.Time) (time.Time, bool) {
	if r == nil {
		return time.Time{}, false
	}
	nowMs := now.UnixMilli()
	var next int64
	found := false
	for _, payment := range r.Payments {
		if payment.Executed || payment.ScheduledTime <= nowMs {
			continue
		}
		if !found || payment.ScheduledTime < next {
			next = payment.ScheduledTime
			found = true
		}
	}
	if !found {
		return time.Time{}, false
	}
	return time.UnixMilli(next), true
}
