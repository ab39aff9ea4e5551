package hub

import "github.com/google/uuid"

// Client is one live connection of a user. Frames queued for it are read
// from Send by the transport.
type Client struct {
	ID     uuid.UUID
	UserID uint
	send   chan []byte
}

func newClient(userID uint, queueSize int) *Client {
	return &Client{
		ID:     uuid.New(),
		UserID: userID,
		send:   make(chan []byte, queueSize),
	}
}

// Send yields encoded frames. It is closed once the hub disconnects the client.
func (c *Client) Send() <-chan []byte {
	return c.send
}

// offer queues msg without blocking. The hub read lock must be held so the
// queue cannot be closed concurrently.
func (c *Client) offer(msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}
