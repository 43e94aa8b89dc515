package ws

import (
	"sync"

	"draftServer/backend/internal/cache"
	"draftServer/backend/internal/draft"
)

// RelayPublisher 把事件转发给其他进程实例（可选，fire-and-forget）。
type RelayPublisher interface {
	Publish(draftID, eventType string, payload any)
}

// Hub 维护每个草稿的在线连接并负责事件扇出。
// 实现 draft.Broadcaster。
type Hub struct {
	presence cache.PresenceCache
	relay    RelayPublisher // 可为 nil
	mu       sync.RWMutex
	// draftID -> set of connections
	rooms map[string]map[*Conn]struct{}
}

func NewHub(presence cache.PresenceCache, relay RelayPublisher) *Hub {
	return &Hub{
		presence: presence,
		relay:    relay,
		rooms:    make(map[string]map[*Conn]struct{}),
	}
}

// Connect 把连接加入草稿房间，并向房间里其他连接广播 user_joined
// （新连接自己不收：它随响应拿到完整状态）。
func (h *Hub) Connect(draftID string, c *Conn) {
	h.mu.Lock()
	if h.rooms[draftID] == nil {
		h.rooms[draftID] = make(map[*Conn]struct{})
	}
	h.rooms[draftID][c] = struct{}{}
	h.mu.Unlock()

	h.broadcast(draftID, draft.UserJoinedEvent{UserID: c.userID, Username: c.username}, 0, c)
}

// leaveRoom 把这个连接（按连接身份而不是用户身份）移出房间，
// 并向剩下的连接广播 user_left。连接本身继续存活，可再加入别的草稿。
func (h *Hub) leaveRoom(draftID string, c *Conn) {
	h.mu.Lock()
	if conns, ok := h.rooms[draftID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.rooms, draftID)
		}
	}
	h.mu.Unlock()

	h.broadcast(draftID, draft.UserLeftEvent{UserID: c.userID, Username: c.username}, 0, nil)
}

// Disconnect 在连接生命周期结束时调用：离开房间并恰好一次停掉保活。
func (h *Hub) Disconnect(draftID string, c *Conn) {
	h.leaveRoom(draftID, c)
	c.Close()
}

// Broadcast 把事件推给草稿的所有连接，excludeUserID 的连接除外
// （0 表示不排除）。没有观看者的草稿是 no-op。
func (h *Hub) Broadcast(draftID string, evt draft.Event, excludeUserID uint64) {
	h.broadcast(draftID, evt, excludeUserID, nil)
}

func (h *Hub) broadcast(draftID string, evt draft.Event, excludeUserID uint64, excludeConn *Conn) {
	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.rooms[draftID]))
	for c := range h.rooms[draftID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	msg := EventMessage{DraftID: draftID, Event: evt}
	for _, c := range conns {
		if c == excludeConn {
			continue
		}
		if excludeUserID != 0 && c.userID == excludeUserID {
			continue
		}
		// 入队失败只丢这一个连接的消息，不影响其他连接
		c.SendMessage_Enqueue(msg)
	}

	// 本地投递之后交给分布式中继；中继失败在 relay 内部打日志，
	// 永远不回传给广播方
	if h.relay != nil {
		h.relay.Publish(draftID, evt.EventType(), evt)
	}
}
