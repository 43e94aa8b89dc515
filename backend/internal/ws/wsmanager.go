package ws

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// 全局的WebSocket upgrader（允许本地开发环境的来源）
var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || origin == "null" {
		return true
	}
	allowedPrefixes := []string{
		"http://localhost",
		"http://127.0.0.1",
		"https://localhost",
		"https://127.0.0.1",
	}
	for _, p := range allowedPrefixes {
		if strings.HasPrefix(origin, p) {
			return true
		}
	}
	return false
}}

type Manager struct {
	hub       *Hub
	keepAlive time.Duration
}

func NewManager(hub *Hub, keepAlive time.Duration) *Manager {
	if keepAlive <= 0 {
		keepAlive = 30 * time.Second
	}
	return &Manager{hub: hub, keepAlive: keepAlive}
}

// WebSocketConnect 升级连接并进入读循环（阻塞至连接关闭）。
// 身份由鉴权中间件写入 gin 上下文。
func (m *Manager) WebSocketConnect(c *gin.Context) {
	userID := c.GetUint64("userId")
	username := c.GetString("username")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v (origin=%s)", err, c.Request.Header.Get("Origin"))
		return
	}
	defer conn.Close()

	wsConn := NewConn(conn, m.hub, userID, username)

	// 先启动写循环，welcome 和后续广播才能被及时发送
	go wsConn.writeLoop(m.keepAlive)
	wsConn.SendMessage_Enqueue(ServerMessage{Type: "welcome"})

	wsConn.readLoop(c.Request.Context())

	// 读循环退出即断线：移出房间、清 presence、停保活
	if wsConn.draftID != "" {
		m.hub.Disconnect(wsConn.draftID, wsConn)
		if err := m.hub.presence.RemoveViewer(context.Background(), wsConn.draftID, wsConn.userID); err != nil {
			log.Printf("presence remove on disconnect error: %v", err)
		}
	}
	wsConn.Close()
}
