package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	bridgedto "tujane/internal/matching-service/core/domain/bridge_dto"

	"github.com/gorilla/websocket"
)

// WebSocketClient is the simulated bridge connection to the matcher.
type WebSocketClient struct {
	conn *websocket.Conn
	ctx  context.Context
	mu   sync.Mutex
}

func NewWebSocketClient(ctx context.Context) *WebSocketClient {
	return &WebSocketClient{ctx: ctx}
}

func (w *WebSocketClient) Connect(url string, insecure bool) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: insecure,
		},
	}

	conn, _, err := dialer.DialContext(w.ctx, url, nil)
	if err != nil {
		return fmt.Errorf("connecting to websocket: %w", err)
	}
	w.conn = conn
	return nil
}

// Login sends the auth frame and waits for the matcher to accept it.
func (w *WebSocketClient) Login(token string) error {
	if err := w.Send(bridgedto.TypeAuth, bridgedto.AuthMessage{Token: "Bearer " + token}); err != nil {
		return err
	}

	_ = w.conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	defer w.conn.SetReadDeadline(time.Time{})

	var ev bridgedto.Event
	if err := w.conn.ReadJSON(&ev); err != nil {
		return fmt.Errorf("reading auth reply: %w", err)
	}
	if ev.Type != bridgedto.TypeAuthOK {
		return fmt.Errorf("login rejected: %s", string(ev.Data))
	}
	return nil
}

func (w *WebSocketClient) Send(typ string, payload any) error {
	ev, err := bridgedto.NewEvent(typ, payload)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.conn.WriteJSON(ev); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	return nil
}

// ReadEvents calls handler for every frame until the connection drops.
func (w *WebSocketClient) ReadEvents(handler func(ev bridgedto.Event) error) error {
	for {
		var ev bridgedto.Event
		if err := w.conn.ReadJSON(&ev); err != nil {
			select {
			case <-w.ctx.Done():
				return nil
			default:
			}
			return fmt.Errorf("reading message: %w", err)
		}
		if err := handler(ev); err != nil {
			return err
		}
	}
}

func (w *WebSocketClient) Close() error {
	if w.conn == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return w.conn.Close()
}

func decode[T any](ev bridgedto.Event) (T, error) {
	var v T
	err := json.Unmarshal(ev.Data, &v)
	return v, err
}
