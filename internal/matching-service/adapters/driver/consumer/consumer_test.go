package consumer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tujane/internal/matching-service/core/domain/model"
	"tujane/internal/mylogger"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAck struct {
	mu      sync.Mutex
	acked   int
	nacked  int
	requeue bool
}

func (a *fakeAck) Ack(uint64, bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked++
	return nil
}

func (a *fakeAck) Nack(_ uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacked++
	a.requeue = requeue
	return nil
}

func (a *fakeAck) Reject(uint64, bool) error { return nil }

type fakeInbox struct {
	mu   sync.Mutex
	msgs []model.InboundMessage
	err  error
}

func (f *fakeInbox) Submit(_ context.Context, msg model.InboundMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeInbox) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

var errBrokerDown = errors.New("amqp connection is closed")

// fakeSource hands out its channels in order. After the first one it fails
// down times before serving the next, like a broker that is reconnecting.
type fakeSource struct {
	mu       sync.Mutex
	chans    []chan amqp091.Delivery
	down     int
	served   int
	attempts int
}

func (s *fakeSource) ConsumeInbound(context.Context) (<-chan amqp091.Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.served > 0 && s.down > 0 {
		s.down--
		return nil, errBrokerDown
	}
	if s.served == len(s.chans) {
		return nil, errBrokerDown
	}
	ch := s.chans[s.served]
	s.served++
	return ch, nil
}

func (s *fakeSource) attemptCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

func delivery(ack *fakeAck, body string) amqp091.Delivery {
	return amqp091.Delivery{Acknowledger: ack, Body: []byte(body), RoutingKey: "message.inbound.whatsapp"}
}

func TestInbound(t *testing.T) {
	inbox := &fakeInbox{}
	c := New(context.Background(), &sync.WaitGroup{}, mylogger.Nop(), nil, inbox)

	ack := &fakeAck{}
	err := c.Inbound(delivery(ack, `{"chat_id":"group@g.us","author":"25761000001@c.us","body":"TUJ1234","is_group":true}`))
	require.NoError(t, err)
	assert.Equal(t, 1, ack.acked)
	require.Len(t, inbox.msgs, 1)
	assert.Equal(t, "25761000001@c.us", inbox.msgs[0].Sender())
	assert.Equal(t, "TUJ1234", inbox.msgs[0].Text)
	assert.False(t, inbox.msgs[0].ReceivedAt.IsZero())
}

func TestInboundRejectsBadPayload(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `hello`},
		{name: "no chat id", body: `{"body":"hi"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inbox := &fakeInbox{}
			c := New(context.Background(), &sync.WaitGroup{}, mylogger.Nop(), nil, inbox)
			ack := &fakeAck{}

			assert.Error(t, c.Inbound(delivery(ack, tt.body)))
			assert.Equal(t, 1, ack.nacked)
			assert.False(t, ack.requeue)
			assert.Empty(t, inbox.msgs)
		})
	}
}

func TestInboundRequeuesWhenInboxFails(t *testing.T) {
	inbox := &fakeInbox{err: errors.New("inbox closed")}
	c := New(context.Background(), &sync.WaitGroup{}, mylogger.Nop(), nil, inbox)
	ack := &fakeAck{}

	assert.Error(t, c.Inbound(delivery(ack, `{"chat_id":"25779000001@c.us","body":"Hello"}`)))
	assert.Equal(t, 1, ack.nacked)
	assert.True(t, ack.requeue)
}

func TestRunDrainsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	deliveries := make(chan amqp091.Delivery)
	src := &fakeSource{chans: []chan amqp091.Delivery{deliveries}}
	inbox := &fakeInbox{}
	c := New(ctx, wg, mylogger.Nop(), src, inbox)

	require.NoError(t, c.Run())
	ack := &fakeAck{}
	deliveries <- delivery(ack, `{"chat_id":"25779000001@c.us","body":"Hello"}`)
	deliveries <- delivery(ack, `{"chat_id":"25779000002@c.us","body":"Hello"}`)

	require.Eventually(t, func() bool { return inbox.count() == 2 }, time.Second, 10*time.Millisecond)
	cancel()
	wg.Wait()
}

func TestRunResubscribesAfterChannelCloses(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wg := &sync.WaitGroup{}
	first, second := make(chan amqp091.Delivery), make(chan amqp091.Delivery)
	src := &fakeSource{chans: []chan amqp091.Delivery{first, second}, down: 2}
	inbox := &fakeInbox{}
	c := New(ctx, wg, mylogger.Nop(), src, inbox)
	c.retry = 5 * time.Millisecond

	require.NoError(t, c.Run())
	assert.True(t, c.IsConsuming())

	ack := &fakeAck{}
	first <- delivery(ack, `{"chat_id":"25779000001@c.us","body":"Hello"}`)
	close(first)

	select {
	case second <- delivery(ack, `{"chat_id":"25779000002@c.us","body":"Near the market"}`):
	case <-time.After(time.Second):
		t.Fatal("consumer did not resubscribe")
	}

	require.Eventually(t, func() bool { return inbox.count() == 2 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 4, src.attemptCount())
	assert.True(t, c.IsConsuming())

	inbox.mu.Lock()
	assert.Equal(t, "Near the market", inbox.msgs[1].Text)
	inbox.mu.Unlock()

	cancel()
	wg.Wait()
}

func TestRunStopsRetryingWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	deliveries := make(chan amqp091.Delivery)
	src := &fakeSource{chans: []chan amqp091.Delivery{deliveries}}
	c := New(ctx, wg, mylogger.Nop(), src, &fakeInbox{})
	c.retry = 5 * time.Millisecond

	require.NoError(t, c.Run())
	close(deliveries)

	require.Eventually(t, func() bool { return src.attemptCount() > 2 }, time.Second, 5*time.Millisecond)
	assert.False(t, c.IsConsuming())

	cancel()
	wg.Wait()
}
