package ws

import (
	"context"
	"testing"
	"time"

	"draftServer/backend/internal/cache"
	"draftServer/backend/internal/draft"
)

type nopPresence struct{}

func (nopPresence) AddViewer(context.Context, string, uint64, string, time.Duration) error {
	return nil
}
func (nopPresence) RemoveViewer(context.Context, string, uint64) error { return nil }
func (nopPresence) GetAliveViewers(context.Context, string) ([]cache.Viewer, error) {
	return nil, nil
}

type capturingRelay struct {
	published []string
}

func (r *capturingRelay) Publish(draftID, eventType string, _ any) {
	r.published = append(r.published, draftID+"/"+eventType)
}

// 连接不走真实 websocket：入队只碰 send 通道
func testConn(hub *Hub, userID uint64, username string) *Conn {
	return NewConn(nil, hub, userID, username)
}

func drain(c *Conn) []OutboundMessage {
	var out []OutboundMessage
	for {
		select {
		case msg := <-c.send:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestBroadcast_ExcludesUser(t *testing.T) {
	hub := NewHub(nopPresence{}, nil)
	alice := testConn(hub, 1, "alice")
	aliceTab2 := testConn(hub, 1, "alice")
	bob := testConn(hub, 2, "bob")
	hub.Connect("d1", alice)
	hub.Connect("d1", aliceTab2)
	hub.Connect("d1", bob)
	drain(alice)
	drain(aliceTab2)
	drain(bob)

	hub.Broadcast("d1", draft.ContentUpdateEvent{EditorID: 1}, 1)

	// alice 的两个标签页都被回显抑制排除，bob 收到
	if got := drain(alice); len(got) != 0 {
		t.Fatalf("alice received %d messages, want 0", len(got))
	}
	if got := drain(aliceTab2); len(got) != 0 {
		t.Fatalf("alice tab2 received %d messages, want 0", len(got))
	}
	got := drain(bob)
	if len(got) != 1 {
		t.Fatalf("bob received %d messages, want 1", len(got))
	}
	if got[0].MessageType() != draft.EventContentUpdate {
		t.Fatalf("bob received %q, want %q", got[0].MessageType(), draft.EventContentUpdate)
	}
}

func TestBroadcast_EmptyRoomIsNoop(t *testing.T) {
	hub := NewHub(nopPresence{}, nil)
	// 没有观看者时不应 panic，也不是错误
	hub.Broadcast("nobody-here", draft.DraftSavedEvent{UserID: 1}, 0)
}

func TestConnect_NotifiesOthersOnly(t *testing.T) {
	hub := NewHub(nopPresence{}, nil)
	alice := testConn(hub, 1, "alice")
	hub.Connect("d1", alice)
	drain(alice)

	bob := testConn(hub, 2, "bob")
	hub.Connect("d1", bob)

	// 新连接自己不收 user_joined
	if got := drain(bob); len(got) != 0 {
		t.Fatalf("joining conn received %d messages, want 0", len(got))
	}
	got := drain(alice)
	if len(got) != 1 || got[0].MessageType() != draft.EventUserJoined {
		t.Fatalf("alice received %+v, want one user_joined", got)
	}
}

func TestDisconnect_RemovesOneConnection(t *testing.T) {
	hub := NewHub(nopPresence{}, nil)
	alice := testConn(hub, 1, "alice")
	aliceTab2 := testConn(hub, 1, "alice")
	hub.Connect("d1", alice)
	hub.Connect("d1", aliceTab2)
	drain(alice)
	drain(aliceTab2)

	hub.Disconnect("d1", alice)

	// 只有被断开的那个连接被移除，同一用户的另一个标签页还在
	got := drain(aliceTab2)
	if len(got) != 1 || got[0].MessageType() != draft.EventUserLeft {
		t.Fatalf("remaining tab received %+v, want one user_left", got)
	}

	hub.Broadcast("d1", draft.DraftSavedEvent{UserID: 9}, 0)
	if got := drain(aliceTab2); len(got) != 1 {
		t.Fatalf("remaining tab received %d messages after broadcast, want 1", len(got))
	}
	if got := drain(alice); len(got) != 0 {
		t.Fatalf("disconnected conn received %d messages, want 0", len(got))
	}

	// 断开的连接保活恰好停一次；重复 Close 幂等
	select {
	case <-alice.done:
	default:
		t.Fatalf("done channel not closed after Disconnect")
	}
	alice.Close()
	alice.Close()
}

func TestBroadcast_HandsEventToRelay(t *testing.T) {
	relay := &capturingRelay{}
	hub := NewHub(nopPresence{}, relay)
	bob := testConn(hub, 2, "bob")
	hub.Connect("d1", bob)

	hub.Broadcast("d1", draft.SectionChangeAppliedEvent{ChangeID: 7, AuthorID: 2}, 0)

	want := "d1/" + draft.EventUserJoined
	if len(relay.published) < 2 || relay.published[0] != want {
		t.Fatalf("relay calls = %v, want first %q", relay.published, want)
	}
	if last := relay.published[len(relay.published)-1]; last != "d1/"+draft.EventSectionChangeApplied {
		t.Fatalf("last relay call = %q, want %q", last, "d1/"+draft.EventSectionChangeApplied)
	}
}

func TestEnqueue_DropsWhenFull(t *testing.T) {
	hub := NewHub(nopPresence{}, nil)
	c := testConn(hub, 1, "alice")
	for i := 0; i < cap(c.send)+10; i++ {
		c.SendMessage_Enqueue(ServerMessage{Type: "feedback"})
	}
	if got := len(c.send); got != cap(c.send) {
		t.Fatalf("queued = %d, want %d (overflow dropped)", got, cap(c.send))
	}
}
