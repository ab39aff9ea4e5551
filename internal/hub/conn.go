package hub

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"matchsocial/backend/internal/events"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// GroupViewer decides whether a user may watch a group channel.
type GroupViewer interface {
	CanView(ctx context.Context, userID, groupID uint) (bool, error)
}

type command struct {
	Action  string `json:"action"`
	Channel string `json:"channel"`
}

type reply struct {
	Event   string `json:"event"`
	Channel string `json:"channel,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Serve attaches ws to the hub for userID and blocks until the peer goes
// away. The user's own channel is subscribed up front; further channels are
// requested with {"action":"subscribe","channel":"group.7"}.
func (h *Hub) Serve(ctx context.Context, ws *websocket.Conn, userID uint, viewer GroupViewer) {
	c := h.NewClient(userID)
	h.Subscribe(c, events.UserChannel(userID))

	go h.writePump(ws, c)
	h.readPump(ctx, ws, c, viewer)
}

func (h *Hub) readPump(ctx context.Context, ws *websocket.Conn, c *Client, viewer GroupViewer) {
	defer func() {
		h.Disconnect(c)
		ws.Close()
	}()

	ws.SetReadLimit(maxMessageSize)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Debug("hub: connection closed", "client", c.ID, "error", err)
			}
			return
		}
		var cmd command
		if err := json.Unmarshal(data, &cmd); err != nil {
			h.reply(c, reply{Event: "error", Error: "malformed command"})
			continue
		}
		h.handle(ctx, c, cmd, viewer)
	}
}

func (h *Hub) handle(ctx context.Context, c *Client, cmd command, viewer GroupViewer) {
	switch cmd.Action {
	case "subscribe":
		if err := h.authorize(ctx, c.UserID, cmd.Channel, viewer); err != "" {
			h.reply(c, reply{Event: "error", Channel: cmd.Channel, Error: err})
			return
		}
		h.Subscribe(c, cmd.Channel)
		h.reply(c, reply{Event: "subscribed", Channel: cmd.Channel})
	case "unsubscribe":
		h.Unsubscribe(c, cmd.Channel)
		h.reply(c, reply{Event: "unsubscribed", Channel: cmd.Channel})
	default:
		h.reply(c, reply{Event: "error", Error: "unknown action"})
	}
}

func (h *Hub) authorize(ctx context.Context, userID uint, channel string, viewer GroupViewer) string {
	kind, id, err := events.ParseChannel(channel)
	if err != nil {
		return "unknown channel"
	}
	switch kind {
	case events.KindUser:
		if id != userID {
			return "forbidden"
		}
	case events.KindGroup:
		ok, err := viewer.CanView(ctx, userID, id)
		if err != nil || !ok {
			return "forbidden"
		}
	}
	return ""
}

// reply is sent to one client only, outside any channel.
func (h *Hub) reply(c *Client, r reply) {
	msg, err := json.Marshal(r)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; ok && !c.offer(msg) {
		h.dropped.Add(1)
	}
}

func (h *Hub) writePump(ws *websocket.Conn, c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send():
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
