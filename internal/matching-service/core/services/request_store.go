package services

import (
	"sync"
	"time"

	"tujane/internal/matching-service/core/domain/model"
	"tujane/internal/matching-service/core/myerrors"
	"tujane/internal/matching-service/core/ports"

	"github.com/google/uuid"
)

type storedRequest struct {
	req *model.RiderRequest
	seq uint64
}

// RequestStore keeps the in-flight conversations of every rider in memory.
//
// The returned *model.RiderRequest is owned by the caller handling that
// rider's messages. Inbound messages are sharded by sender, so a rider's
// request is only ever mutated by one goroutine. Sweep only reads CreatedAt,
// which never changes after Create.
type RequestStore struct {
	mu       sync.Mutex
	requests map[string]map[string]storedRequest
	seq      uint64
	limit    int
	now      func() time.Time
}

var _ ports.IRequestStore = (*RequestStore)(nil)

func NewRequestStore(limit int) *RequestStore {
	return &RequestStore{
		requests: make(map[string]map[string]storedRequest),
		limit:    limit,
		now:      time.Now,
	}
}

// GetActive returns the most recently created non-idle request of rider.
func (s *RequestStore) GetActive(rider string) *model.RiderRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	var newest *storedRequest
	for _, entry := range s.requests[rider] {
		if entry.req.State == model.StateIdle {
			continue
		}
		if newest == nil || entry.seq > newest.seq {
			e := entry
			newest = &e
		}
	}
	if newest == nil {
		return nil
	}
	return newest.req
}

// Create opens a new conversation waiting for the pickup location.
func (s *RequestStore) Create(rider string) (*model.RiderRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, ok := s.requests[rider]
	if !ok {
		entries = make(map[string]storedRequest)
		s.requests[rider] = entries
	}
	if len(entries) >= s.limit {
		return nil, myerrors.ErrCapacity
	}

	s.seq++
	req := &model.RiderRequest{
		ID:        uuid.NewString(),
		State:     model.StateAwaitingPickup,
		Details:   model.RideDetails{RiderIdentity: rider},
		CreatedAt: s.now(),
	}
	entries[req.ID] = storedRequest{req: req, seq: s.seq}
	return req, nil
}

func (s *RequestStore) Remove(rider, requestID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, ok := s.requests[rider]
	if !ok {
		return
	}
	delete(entries, requestID)
	if len(entries) == 0 {
		delete(s.requests, rider)
	}
}

// Sweep drops every request older than maxAge and returns how many were
// removed.
func (s *RequestStore) Sweep(now time.Time, maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for rider, entries := range s.requests {
		for id, entry := range entries {
			if now.Sub(entry.req.CreatedAt) > maxAge {
				delete(entries, id)
				removed++
			}
		}
		if len(entries) == 0 {
			delete(s.requests, rider)
		}
	}
	return removed
}

// Len reports how many riders currently hold at least one request.
func (s *RequestStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *RequestStore) count(rider string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests[rider])
}
