package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	bridgedto "tujane/internal/matching-service/core/domain/bridge_dto"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	readLimit  = 64 * 1024
	egressSize = 64
)

var errClientClosed = errors.New("bridge connection closed")

type Client struct {
	ctx    context.Context
	cancel context.CancelFunc
	conn   *websocket.Conn
	dis    *Dispatcher
	egress chan bridgedto.Event
	id     string
	once   sync.Once
}

func NewClient(ctx context.Context, conn *websocket.Conn, dis *Dispatcher, id string) *Client {
	ctx, cancel := context.WithCancel(ctx)
	return &Client{
		ctx:    ctx,
		cancel: cancel,
		conn:   conn,
		dis:    dis,
		egress: make(chan bridgedto.Event, egressSize),
		id:     id,
	}
}

// ReadMessages runs until the bridge disconnects.
func (c *Client) ReadMessages() {
	log := c.dis.log.Action("bridge_read").With("bridge", c.id)
	defer c.dis.RemoveClient(c)

	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var ev bridgedto.Event
		if err := c.conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("bridge connection lost", "error", err.Error())
			}
			return
		}

		if err := c.dis.handleEvent(c, ev); err != nil {
			log.Warn("cannot handle event", "type", ev.Type, "error", err.Error())
			if reply, mErr := bridgedto.NewEvent(bridgedto.TypeError, map[string]string{"error": err.Error()}); mErr == nil {
				_ = c.enqueue(c.ctx, reply)
			}
		}
	}
}

// WriteMessages is the only writer on the connection once it is
// authenticated.
func (c *Client) WriteMessages() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.dis.RemoveClient(c)
	}()

	for {
		select {
		case <-c.ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case ev := <-c.egress:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) enqueue(ctx context.Context, ev bridgedto.Event) error {
	select {
	case <-c.ctx.Done():
		return errClientClosed
	default:
	}

	select {
	case c.egress <- ev:
		return nil
	case <-c.ctx.Done():
		return errClientClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) close() {
	c.once.Do(func() {
		c.cancel()
		_ = c.conn.Close()
	})
}
