package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	reconnectBase = time.Second
	reconnectMax  = 30 * time.Second
	fetchTimeout  = 5 * time.Second
	writeTimeout  = 10 * time.Second
)

// frame is the relay wire envelope. Events arrive with op "event"; replies
// and fetches go out with op "reply" / "fetch"; fetch responses come back
// with op "message" and the correlating id.
type frame struct {
	Op   string          `json:"op"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

type fetchRequest struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}

type fetchResponse struct {
	Text string `json:"text"`
	Err  string `json:"error,omitempty"`
}

type replyPayload struct {
	ChannelID        string `json:"channel_id"`
	ReplyToMessageID string `json:"reply_to_message_id,omitempty"`
	Text             string `json:"text"`
}

// RelayClient speaks the gateway relay protocol over a websocket. It
// reconnects with capped backoff and keeps delivering events until Close.
type RelayClient struct {
	url    string
	token  string
	events chan Stimulus

	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[string]chan fetchResponse

	// gorilla/websocket allows one concurrent writer per connection.
	writeMu sync.Mutex

	closeOnce sync.Once
	done      chan struct{}
}

func NewRelayClient(url, token string) *RelayClient {
	return &RelayClient{
		url:     url,
		token:   token,
		events:  make(chan Stimulus, 64),
		pending: make(map[string]chan fetchResponse),
		done:    make(chan struct{}),
	}
}

func (c *RelayClient) Events() <-chan Stimulus { return c.events }

// Run connects and pumps events until ctx is canceled or Close is called.
// Run owns the events channel: it is closed only when Run returns, so the
// read loop can never send on a closed channel.
func (c *RelayClient) Run(ctx context.Context) {
	defer close(c.events)
	backoff := reconnectBase
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
		}

		conn, err := c.dial(ctx)
		if err != nil {
			log.Printf("gateway: connect failed: %v (retrying in %s)", err, backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			case <-c.done:
				return
			}
			backoff *= 2
			if backoff > reconnectMax {
				backoff = reconnectMax
			}
			continue
		}

		backoff = reconnectBase
		log.Printf("gateway: connected to %s", c.url)
		c.setConn(conn)
		c.readLoop(conn)
		c.setConn(nil)
	}
}

func (c *RelayClient) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, header)
	return conn, err
}

func (c *RelayClient) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn = conn
}

func (c *RelayClient) readLoop(conn *websocket.Conn) {
	defer conn.Close()
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			select {
			case <-c.done:
			default:
				log.Printf("gateway: read failed: %v", err)
			}
			return
		}

		switch f.Op {
		case "event":
			var s Stimulus
			if err := json.Unmarshal(f.Data, &s); err != nil {
				// Malformed stimulus: drop, nobody is waiting on it.
				log.Printf("gateway: malformed event: %v", err)
				continue
			}
			select {
			case c.events <- s:
			default:
				log.Printf("gateway: event buffer full, dropping message %s", s.MessageID)
			}
		case "message":
			var res fetchResponse
			if err := json.Unmarshal(f.Data, &res); err != nil {
				log.Printf("gateway: malformed fetch response: %v", err)
				continue
			}
			c.resolveFetch(f.ID, res)
		case "ping":
			_ = c.writeFrame(frame{Op: "pong", ID: f.ID})
		default:
			log.Printf("gateway: unknown op %q", f.Op)
		}
	}
}

func (c *RelayClient) Send(ctx context.Context, channelID, replyToMessageID, text string) error {
	data, err := json.Marshal(replyPayload{
		ChannelID:        channelID,
		ReplyToMessageID: replyToMessageID,
		Text:             text,
	})
	if err != nil {
		return fmt.Errorf("marshal reply: %w", err)
	}
	return c.writeFrame(frame{Op: "reply", Data: data})
}

func (c *RelayClient) FetchMessage(ctx context.Context, channelID, messageID string) (string, error) {
	id := uuid.NewString()
	res := make(chan fetchResponse, 1)

	c.mu.Lock()
	c.pending[id] = res
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	data, err := json.Marshal(fetchRequest{ChannelID: channelID, MessageID: messageID})
	if err != nil {
		return "", fmt.Errorf("marshal fetch: %w", err)
	}
	if err := c.writeFrame(frame{Op: "fetch", ID: id, Data: data}); err != nil {
		return "", err
	}

	timer := time.NewTimer(fetchTimeout)
	defer timer.Stop()
	select {
	case r := <-res:
		if r.Err != "" {
			return "", errors.New(r.Err)
		}
		return r.Text, nil
	case <-timer.C:
		return "", errors.New("fetch timed out")
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *RelayClient) resolveFetch(id string, res fetchResponse) {
	c.mu.Lock()
	ch, ok := c.pending[id]
	c.mu.Unlock()
	if ok {
		ch <- res
	}
}

func (c *RelayClient) writeFrame(f frame) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.New("gateway not connected")
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(f)
}

func (c *RelayClient) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.mu.Lock()
		if c.conn != nil {
			c.conn.Close()
		}
		c.mu.Unlock()
	})
	return nil
}
