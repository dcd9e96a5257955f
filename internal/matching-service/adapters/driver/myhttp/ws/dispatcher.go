package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"tujane/internal/auth"
	bridgedto "tujane/internal/matching-service/core/domain/bridge_dto"
	"tujane/internal/matching-service/core/domain/model"
	"tujane/internal/matching-service/core/myerrors"
	"tujane/internal/matching-service/core/ports"
	"tujane/internal/mylogger"

	"github.com/gorilla/websocket"
)

const authTimeout = 5 * time.Second

var websocketUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// bridges are server-side processes, not browsers
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ClientList is the set of authenticated bridge connections.
type ClientList map[*Client]bool

// Dispatcher is the websocket gateway for messaging bridges. Bridges push
// inbound chat messages and receive the texts the matcher sends.
type Dispatcher struct {
	ctx     context.Context
	clients ClientList
	sync.RWMutex
	log    mylogger.Logger
	secret string
	inbox  ports.IInbox
}

var _ ports.IMessenger = (*Dispatcher)(nil)

func NewDispatcher(ctx context.Context, log mylogger.Logger, secret string, inbox ports.IInbox) *Dispatcher {
	return &Dispatcher{
		ctx:     ctx,
		clients: make(ClientList),
		log:     log,
		secret:  secret,
		inbox:   inbox,
	}
}

func (d *Dispatcher) WsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := d.log.Action("bridge_connect").With("remote", r.RemoteAddr)

		conn, err := websocketUpgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error("cannot upgrade", err)
			return
		}

		subject, err := d.authenticate(conn)
		if err != nil {
			log.Warn("bridge authentication failed", "error", err.Error())
			if ev, mErr := bridgedto.NewEvent(bridgedto.TypeError, map[string]string{"error": err.Error()}); mErr == nil {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteJSON(ev)
			}
			_ = conn.Close()
			return
		}

		client := NewClient(d.ctx, conn, d, subject)
		d.AddClient(client)
		go client.WriteMessages()
		go client.ReadMessages()

		if ev, err := bridgedto.NewEvent(bridgedto.TypeAuthOK, map[string]string{"bridge": subject}); err == nil {
			_ = client.enqueue(d.ctx, ev)
		}
		log.Info("bridge connected", "bridge", subject)
	}
}

// authenticate expects {"type":"auth","data":{"token":"Bearer ..."}} as the
// first frame.
func (d *Dispatcher) authenticate(conn *websocket.Conn) (string, error) {
	_ = conn.SetReadDeadline(time.Now().Add(authTimeout))
	defer conn.SetReadDeadline(time.Time{})

	var ev bridgedto.Event
	if err := conn.ReadJSON(&ev); err != nil {
		return "", fmt.Errorf("read auth frame: %w", err)
	}
	if ev.Type != bridgedto.TypeAuth {
		return "", fmt.Errorf("expected %q frame, got %q", bridgedto.TypeAuth, ev.Type)
	}

	var msg bridgedto.AuthMessage
	if err := json.Unmarshal(ev.Data, &msg); err != nil {
		return "", fmt.Errorf("decode auth frame: %w", err)
	}
	claims, err := auth.VerifyRole(d.secret, msg.Token, auth.RoleBridge)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Send hands a direct message to a connected bridge.
func (d *Dispatcher) Send(ctx context.Context, to, text string, attachment *model.Attachment) error {
	ev, err := bridgedto.NewEvent(bridgedto.TypeOutbound, bridgedto.Outbound{
		To:         to,
		Text:       text,
		Attachment: attachment,
	})
	if err != nil {
		return err
	}
	return d.deliver(ctx, ev)
}

func (d *Dispatcher) Broadcast(ctx context.Context, group, text string) error {
	ev, err := bridgedto.NewEvent(bridgedto.TypeBroadcast, bridgedto.Broadcast{
		Group: group,
		Text:  text,
	})
	if err != nil {
		return err
	}
	return d.deliver(ctx, ev)
}

func (d *Dispatcher) deliver(ctx context.Context, ev bridgedto.Event) error {
	for {
		client := d.pick()
		if client == nil {
			return myerrors.ErrNoBridge
		}
		err := client.enqueue(ctx, ev)
		if errors.Is(err, errClientClosed) {
			d.RemoveClient(client)
			continue
		}
		return err
	}
}

// pick returns any connected bridge. Every bridge is logged in to the same
// account, so any of them can deliver.
func (d *Dispatcher) pick() *Client {
	d.RLock()
	defer d.RUnlock()

	for c := range d.clients {
		return c
	}
	return nil
}

func (d *Dispatcher) AddClient(client *Client) {
	d.Lock()
	defer d.Unlock()

	d.clients[client] = true
}

func (d *Dispatcher) RemoveClient(client *Client) {
	d.Lock()
	defer d.Unlock()

	if _, ok := d.clients[client]; ok {
		delete(d.clients, client)
		client.close()
	}
}

func (d *Dispatcher) Connected() int {
	d.RLock()
	defer d.RUnlock()
	return len(d.clients)
}

// handleEvent routes one frame read from a bridge.
func (d *Dispatcher) handleEvent(c *Client, ev bridgedto.Event) error {
	switch ev.Type {
	case bridgedto.TypeInbound:
		var in bridgedto.Inbound
		if err := json.Unmarshal(ev.Data, &in); err != nil {
			return fmt.Errorf("decode inbound: %w", err)
		}
		if in.ChatID == "" {
			return errors.New("inbound message has no chat id")
		}
		return d.inbox.Submit(c.ctx, in.ToModel())
	default:
		return fmt.Errorf("unsupported event type %q", ev.Type)
	}
}
