package notify

import (
	"context"
	"encoding/json"
	"fmt"
)

// Event 描述一次结算结果，供展示层的实时交易流消费。
type Event struct {
	RecordID   string `json:"record_id"`
	RoleID     string `json:"role_id"`
	RoleName   string `json:"role_name,omitempty"`
	Action     string `json:"action"`
	Digest     string `json:"digest,omitempty"`
	Affected   int    `json:"affected"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	OccurredAt int64  `json:"occurred_at"`
}

// Handler 处理来自队列的结算事件。
type Handler func(ctx context.Context, event Event) error

// Publisher 负责向队列投递事件。
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Consumer 负责从队列中消费事件。
type Consumer interface {
	Consume(ctx context.Context, workerCount int, handler Handler) error
	Close() error
}

// Queue 同时具备生产者与消费者能力。
type Queue interface {
	Publisher
	Consumer
}

func encodeEvent(event Event) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("编码结算事件失败: %w", err)
	}
	return payload, nil
}

func decodeEvent(payload []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return Event{}, fmt.Errorf("解码结算事件失败: %w", err)
	}
	return event, nil
}
