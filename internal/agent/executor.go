package agent

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	xerrors "RolePay-Agent/internal/errors"
	"RolePay-Agent/internal/notify"
	"RolePay-Agent/internal/observability/alerting"
	"RolePay-Agent/internal/observability/metrics"
	"RolePay-Agent/internal/role"
	"RolePay-Agent/internal/settle"
	"RolePay-Agent/internal/sui"
	"RolePay-Agent/pkg/logger"
)

// notifyPublisher 是结算事件队列的最小依赖面。
type notifyPublisher interface {
	Publish(ctx context.Context, event notify.Event) error
}

// alertDispatcher 是告警分发器的最小依赖面。
type alertDispatcher interface {
	Notify(ctx context.Context, event alerting.Event) error
}

// execute 提交一次结算交易并记录结局。对同一角色，合约入口自身
// 是幂等的：支付已被执行或被并发实例抢先时交易成功但不移动资金，
// 记为 noop 而不是错误。
func (a *Agent) execute(ctx context.Context, log *slog.Logger, r *role.Role, action role.Action) {
	call := sui.MoveCall{
		PackageID: a.packageID,
		Module:    role.MoveModule,
		Function:  action.String(),
		Args:      []any{r.ID, a.clockObjectID},
		GasBudget: a.gasBudget,
	}

	log.Info("提交结算交易",
		slog.String("role_id", r.ID),
		slog.String("role_name", r.Name),
		slog.String("action", action.String()))
	metrics.ObserveAction(action.String())

	callCtx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()
	response, err := a.ledger.SignAndExecute(callCtx, call)

	record := &settle.Record{
		ID:        uuid.NewString(),
		RoleID:    r.ID,
		RoleName:  r.Name,
		Action:    action.String(),
		CreatedAt: a.now().Unix(),
	}

	switch {
	case err != nil:
		record.Status = settle.StatusFailed
		record.LastError = err.Error()
		record.ErrorCode = string(xerrors.CodeOf(err))
		log.Warn("结算交易提交失败",
			slog.String("role_id", r.ID),
			slog.String("code", record.ErrorCode),
			slog.String("error", err.Error()))
	case !response.Succeeded():
		record.Status = settle.StatusRejected
		record.Digest = response.Digest
		record.LastError = response.StatusError()
		record.ErrorCode = string(xerrors.CodeContractRejection)
		log.Warn("结算交易被合约拒绝",
			slog.String("role_id", r.ID),
			slog.String("digest", response.Digest),
			slog.String("error", record.LastError))
	default:
		record.Digest = response.Digest
		record.Affected = affectedCount(response, action)
		if record.Affected > 0 {
			record.Status = settle.StatusConfirmed
		} else {
			record.Status = settle.StatusNoop
		}
		log.Info("结算交易确认",
			slog.String("role_id", r.ID),
			slog.String("digest", response.Digest),
			slog.String("status", string(record.Status)),
			slog.Int("affected", record.Affected))
	}

	metrics.ObserveOutcome(string(record.Status))
	a.persistRecord(ctx, log, record)
	a.publishOutcome(ctx, log, record)
	if record.Status == settle.StatusRejected {
		a.alertRejection(ctx, record)
	}
}

// affectedCount 统计本次交易实际移动的资金笔数。
func affectedCount(response *sui.TxResponse, action role.Action) int {
	if action == role.ActionExecuteExpiry {
		return response.EventCount(role.EventLeftoverTransferred)
	}
	return response.EventCount(role.EventPaymentExecuted)
}

// persistRecord 写入结算审计记录，并同步写审计日志。
func (a *Agent) persistRecord(ctx context.Context, log *slog.Logger, record *settle.Record) {
	if a.store != nil {
		if err := a.store.Create(ctx, record); err != nil {
			log.Error("保存结算记录失败",
				slog.String("record_id", record.ID),
				slog.String("error", err.Error()))
		}
	}
	logger.Audit().Info("settlement",
		slog.String("record_id", record.ID),
		slog.String("role_id", record.RoleID),
		slog.String("action", record.Action),
		slog.String("status", string(record.Status)),
		slog.String("digest", record.Digest),
		slog.Int("affected", record.Affected))
}

// publishOutcome 将结算结局投递到事件队列，供实时交易流消费。
func (a *Agent) publishOutcome(ctx context.Context, log *slog.Logger, record *settle.Record) {
	if a.publisher == nil {
		return
	}
	event := notify.Event{
		RecordID:   record.ID,
		RoleID:     record.RoleID,
		RoleName:   record.RoleName,
		Action:     record.Action,
		Digest:     record.Digest,
		Affected:   record.Affected,
		Status:     string(record.Status),
		Error:      record.LastError,
		OccurredAt: record.CreatedAt,
	}
	if err := a.publisher.Publish(ctx, event); err != nil {
		log.Warn("投递结算事件失败",
			slog.String("record_id", record.ID),
			slog.String("error", err.Error()))
	}
}

// alertRejection 对合约拒绝触发告警。传输层错误是可重试的常态，
// 只记日志不告警。
func (a *Agent) alertRejection(ctx context.Context, record *settle.Record) {
	if a.alerts == nil {
		return
	}
	event := alerting.Event{
		Code:       xerrors.CodeContractRejection,
		Message:    record.LastError,
		Severity:   xerrors.AttributesOf(xerrors.CodeContractRejection).Severity,
		RoleID:     record.RoleID,
		Action:     record.Action,
		Digest:     record.Digest,
		OccurredAt: a.now(),
	}
	if err := a.alerts.Notify(ctx, event); err != nil {
		logger.L().Warn("发送告警失败",
			slog.String("record_id", record.ID),
			slog.String("error", err.Error()))
	}
}
