package services

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"tujane/internal/matching-service/core/domain/model"
	"tujane/internal/matching-service/core/myerrors"
	"tujane/internal/matching-service/core/ports"
	"tujane/internal/mylogger"
)

// Router decides who handles an inbound message. Direct chats belong to the
// rider conversation, ride codes posted in the drivers group are claims, and
// anything else is ignored.
type Router struct {
	mylog        mylogger.Logger
	riders       ports.IRiderService
	matching     ports.IMatchingService
	driversGroup string
	codePrefix   string
}

func NewRouter(mylog mylogger.Logger, riders ports.IRiderService, matching ports.IMatchingService, driversGroup, codePrefix string) *Router {
	return &Router{
		mylog:        mylog,
		riders:       riders,
		matching:     matching,
		driversGroup: driversGroup,
		codePrefix:   strings.ToUpper(codePrefix),
	}
}

func (r *Router) Handle(ctx context.Context, msg model.InboundMessage) error {
	switch {
	case msg.IsGroup && msg.ChatID == r.driversGroup:
		if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(msg.Text)), r.codePrefix) {
			return nil
		}
		_, err := r.matching.Claim(ctx, msg.Sender(), msg.Text)
		return err
	case msg.IsGroup:
		return nil
	default:
		return r.riders.HandleMessage(ctx, msg.ChatID, msg.Text)
	}
}

// slowQueue is how long a message may wait in the inbox before its worker
// warns about it.
const slowQueue = 5 * time.Second

// Inbox spreads inbound messages over a fixed set of workers by sender, so
// one participant's messages are handled in arrival order while different
// participants proceed in parallel.
type Inbox struct {
	mylog  mylogger.Logger
	shards []chan model.InboundMessage
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

var _ ports.IInbox = (*Inbox)(nil)

func NewInbox(mylog mylogger.Logger, shards, depth int) *Inbox {
	in := &Inbox{
		mylog:  mylog,
		shards: make([]chan model.InboundMessage, shards),
	}
	for i := range in.shards {
		in.shards[i] = make(chan model.InboundMessage, depth)
	}
	return in
}

// Submit queues msg on its sender's shard. It blocks while the shard is full
// and fails with ErrInboxClosed after Close.
func (in *Inbox) Submit(ctx context.Context, msg model.InboundMessage) error {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if in.closed {
		return myerrors.ErrInboxClosed
	}

	select {
	case in.shards[in.shardOf(msg.Sender())] <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts one worker per shard. Each worker handles its shard until Close
// is called and the shard is empty; ctx is only passed on to handle.
func (in *Inbox) Run(ctx context.Context, handle func(context.Context, model.InboundMessage) error) {
	for i, ch := range in.shards {
		in.wg.Add(1)
		go in.work(ctx, i, ch, handle)
	}
}

// Close stops accepting messages. Messages already queued are still handled.
func (in *Inbox) Close() {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.closed {
		return
	}
	in.closed = true
	for _, ch := range in.shards {
		close(ch)
	}
}

// Wait blocks until every worker has returned.
func (in *Inbox) Wait() {
	in.wg.Wait()
}

func (in *Inbox) work(ctx context.Context, shard int, ch <-chan model.InboundMessage, handle func(context.Context, model.InboundMessage) error) {
	log := in.mylog.Action("inbox_worker").With("shard", shard)
	defer func() {
		log.Debug("worker stopped")
		in.wg.Done()
	}()

	for msg := range ch {
		if waited := time.Since(msg.ReceivedAt); !msg.ReceivedAt.IsZero() && waited > slowQueue {
			log.Warn("message waited long in the inbox", "sender", msg.Sender(), "waited", waited.String())
		}
		if err := handle(ctx, msg); err != nil {
			log.Debug("message not handled cleanly", "sender", msg.Sender(), "error", err.Error())
		}
	}
}

func (in *Inbox) shardOf(sender string) int {
	h := fnv.New32a()
	h.Write([]byte(sender))
	return int(h.Sum32() % uint32(len(in.shards)))
}
