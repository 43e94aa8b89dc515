package ws

import (
	"encoding/json"

	"draftServer/backend/internal/draft"
)

// ClientMessage 客户端 → 服务端
type ClientMessage struct {
	Type    string `json:"type"` // "join" / "leave" / "heartbeat"
	DraftID string `json:"draftId,omitempty"`
}

// 出站消息接口
type OutboundMessage interface {
	MessageType() string
}

// ServerMessage 是简单的服务端通知（welcome / joined / error / feedback）。
type ServerMessage struct {
	Type    string `json:"type"`
	DraftID string `json:"draftId,omitempty"`
	Content string `json:"content,omitempty"`
}

func (m ServerMessage) MessageType() string { return m.Type }

// EventMessage 把引擎事件包装成统一的外发帧：
// {"type": "...", "draftId": "...", "payload": {...}}
type EventMessage struct {
	DraftID string
	Event   draft.Event
}

func (m EventMessage) MessageType() string { return m.Event.EventType() }

func (m EventMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    string      `json:"type"`
		DraftID string      `json:"draftId,omitempty"`
		Payload draft.Event `json:"payload"`
	}{m.Event.EventType(), m.DraftID, m.Event})
}
