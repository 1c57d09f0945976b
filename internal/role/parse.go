package role

import (
	"fmt"
	"math"
	"strconv"

	xerrors "RolePay-Agent/internal/errors"
)

// Parse validates raw Move object fields and produces a typed Role. It
// returns ErrNotARole when the content shape is not a role at all, and a
// MALFORMED_STATE error when the shape matches but values do not parse.
// Numeric fields arrive as decimal strings and are parsed exactly; floats
// are never used for amounts or timestamps.
func Parse(id string, fields map[string]any) (*Role, error) {
	if fields == nil {
		return nil, ErrNotARole
	}
	// 角色对象必须同时带有时间与余额字段，缺字段视为非角色对象。
	for _, key := range []string{"start_time", "expiry_time", "balance"} {
		if _, ok := fields[key]; !ok {
			return nil, ErrNotARole
		}
	}

	startTime, err := timestampField(fields, "start_time")
	if err != nil {
		return nil, err
	}
	expiryTime, err := timestampField(fields, "expiry_time")
	if err != nil {
		return nil, err
	}
	balance, err := uintField(fields, "balance")
	if err != nil {
		return nil, err
	}

	r := &Role{
		ID:                id,
		Name:              nameField(fields["name"]),
		Creator:           stringField(fields["creator"]),
		StartTime:         startTime,
		ExpiryTime:        expiryTime,
		Balance:           balance,
		LeftoverRecipient: stringField(fields["leftover_recipient"]),
	}

	payments, err := parsePayments(fields["payments"])
	if err != nil {
		return nil, err
	}
	r.Payments = payments
	return r, nil
}

func parsePayments(raw any) ([]ScheduledPayment, error) {
	if raw == nil {
		return nil, nil
	}
	entries, ok := raw.([]any)
	if !ok {
		return nil, xerrors.New(xerrors.CodeMalformedState, "payments 字段不是数组")
	}

	payments := make([]ScheduledPayment, 0, len(entries))
	for i, entry := range entries {
		fields, ok := entry.(map[string]any)
		if !ok {
			return nil, xerrors.New(xerrors.CodeMalformedState,
				fmt.Sprintf("第 %d 笔支付的结构不合法", i))
		}
		// 节点可能把结构体包在 {type, fields} 里，也可能直接平铺。
		if inner, ok := fields["fields"].(map[string]any); ok {
			fields = inner
		}

		amount, err := uintField(fields, "amount")
		if err != nil {
			return nil, err
		}
		scheduled, err := timestampField(fields, "scheduled_time")
		if err != nil {
			return nil, err
		}
		executed, _ := fields["executed"].(bool)

		payments = append(payments, ScheduledPayment{
			Recipient:     stringField(fields["recipient"]),
			Amount:        amount,
			ScheduledTime: scheduled,
			Executed:      executed,
		})
	}
	return payments, nil
}

// uintField parses a non-negative integer field that the node renders as a
// decimal string (u64 values always arrive as strings in object JSON).
func uintField(fields map[string]any, key string) (uint64, error) {
	raw, ok := fields[key]
	if !ok {
		return 0, xerrors.New(xerrors.CodeMalformedState, fmt.Sprintf("缺少字段 %s", key))
	}
	switch value := raw.(type) {
	case string:
		parsed, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return 0, xerrors.Wrap(xerrors.CodeMalformedState, err,
				fmt.Sprintf("字段 %s 不是十进制整数", key))
		}
		return parsed, nil
	case float64:
		// JSON 小整数可能以 number 形式出现；非整数值一律拒绝。
		if value < 0 || value != math.Trunc(value) || value > float64(math.MaxInt64) {
			return 0, xerrors.New(xerrors.CodeMalformedState,
				fmt.Sprintf("字段 %s 的数值 %v 越界或非整数", key, value))
		}
		return uint64(value), nil
	default:
		return 0, xerrors.New(xerrors.CodeMalformedState,
			fmt.Sprintf("字段 %s 的类型 %T 不受支持", key, raw))
	}
}

func timestampField(fields map[string]any, key string) (int64, error) {
	value, err := uintField(fields, key)
	if err != nil {
		return 0, err
	}
	if value > math.MaxInt64 {
		return 0, xerrors.New(xerrors.CodeMalformedState,
			fmt.Sprintf("字段 %s 的时间戳越界", key))
	}
	return int64(value), nil
}

func stringField(raw any) string {
	value, _ := raw.(string)
	return value
}

// nameField decodes the role name, which the node renders either as a plain
// string or as a vector<u8> byte array.
func nameField(raw any) string {
	switch value := raw.(type) {
	case string:
		return value
	case []any:
		buf := make([]byte, 0, len(value))
		for _, item := range value {
			code, ok := item.(float64)
			if !ok || code < 0 || code > 255 || code != math.Trunc(code) {
				return ""
			}
			buf = append(buf, byte(code))
		}
		return string(buf)
	default:
		return ""
	}
}
