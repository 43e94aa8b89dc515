package relay

import "time"

// DraftEvent 是发往其他进程实例的草稿事件。
// 以 draftId 做 Kafka key，同一草稿的事件落在同一分区、保序；
// 对端进程消费后转发给自己本地的连接。
type DraftEvent struct {
	EventType string    `json:"eventType"`
	DraftID   string    `json:"draftId"`
	Payload   any       `json:"payload,omitempty"`
	EmittedAt time.Time `json:"emittedAt"`
}
