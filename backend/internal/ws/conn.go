package ws

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// 观看者在 presence 里的逻辑 TTL，心跳负责续期
const presenceTTL = 10 * time.Minute

// Conn 是一个观看者会话：一个用户可以同时打开多个标签页，
// 每个标签页一个 Conn，广播按连接发而不是按用户发。
type Conn struct {
	ws       *websocket.Conn
	hub      *Hub
	draftID  string
	userID   uint64
	username string
	// 有界出站队列：写循环慢时丢消息，不阻塞广播方
	send      chan OutboundMessage
	done      chan struct{}
	closeOnce sync.Once
}

func NewConn(ws *websocket.Conn, hub *Hub, userID uint64, username string) *Conn {
	return &Conn{
		ws:       ws,
		hub:      hub,
		userID:   userID,
		username: username,
		send:     make(chan OutboundMessage, 32),
		done:     make(chan struct{}),
	}
}

func (c *Conn) SendMessage_Enqueue(msg OutboundMessage) {
	select {
	case c.send <- msg:
	default:
		// 队列满时丢弃：断线的观看者重连后会整体拉平状态
		log.Printf("send queue full, drop %s (user=%d, draft=%s)", msg.MessageType(), c.userID, c.draftID)
	}
}

// Close 让写循环退出并停掉保活定时器；幂等，恰好生效一次。
func (c *Conn) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Conn) readLoop(ctx context.Context) {
	for {
		var msg ClientMessage
		if err := c.ws.ReadJSON(&msg); err != nil {
			log.Printf("read json error (user=%d, draft=%s): %v", c.userID, c.draftID, err)
			return
		}
		switch msg.Type {
		case "join":
			if msg.DraftID == "" {
				c.SendMessage_Enqueue(ServerMessage{Type: "error", Content: "MISSING_DRAFT_ID"})
				continue
			}
			// 切换草稿时先离开旧房间（连接还活着，不停保活）
			if c.draftID != "" && c.draftID != msg.DraftID {
				c.hub.leaveRoom(c.draftID, c)
				_ = c.hub.presence.RemoveViewer(ctx, c.draftID, c.userID)
			}
			c.draftID = msg.DraftID
			c.hub.Connect(c.draftID, c)
			if err := c.hub.presence.AddViewer(ctx, c.draftID, c.userID, c.username, presenceTTL); err != nil {
				log.Printf("presence add error: %v", err)
			}
			c.SendMessage_Enqueue(ServerMessage{Type: "joined", DraftID: c.draftID})

		case "leave":
			if c.draftID == "" {
				continue
			}
			c.hub.leaveRoom(c.draftID, c)
			if err := c.hub.presence.RemoveViewer(ctx, c.draftID, c.userID); err != nil {
				log.Printf("presence remove error: %v", err)
			}
			c.SendMessage_Enqueue(ServerMessage{Type: "left", DraftID: c.draftID})
			c.draftID = ""

		case "heartbeat":
			if c.draftID != "" {
				if err := c.hub.presence.AddViewer(ctx, c.draftID, c.userID, c.username, presenceTTL); err != nil {
					log.Printf("presence refresh error: %v", err)
				}
			}
			c.SendMessage_Enqueue(ServerMessage{Type: "feedback", Content: "Heartbeat received"})

		default:
			c.SendMessage_Enqueue(ServerMessage{Type: "ignored", Content: "Unknown message type"})
		}
	}
}

// writeLoop 消费出站队列，并周期性发 ping 保活，
// 防止中间代理掐掉空闲连接。done 关闭后定时器随 defer 停止。
func (c *Conn) writeLoop(keepAlive time.Duration) {
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			if err := c.ws.WriteJSON(msg); err != nil {
				log.Printf("write error (user=%d, draft=%s): %v", c.userID, c.draftID, err)
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(5 * time.Second)
			if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				log.Printf("keepalive ping error (user=%d, draft=%s): %v", c.userID, c.draftID, err)
				return
			}
		}
	}
}
