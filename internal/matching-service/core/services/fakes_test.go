package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"tujane/internal/matching-service/core/domain/model"
	"tujane/internal/matching-service/core/myerrors"
)

var errBoom = errors.New("boom")

type fakeRides struct {
	mu        sync.Mutex
	nextID    int64
	rides     map[string]*model.Ride
	createErr error
	claimErr  error
}

func newFakeRides() *fakeRides {
	return &fakeRides{rides: make(map[string]*model.Ride)}
}

func (f *fakeRides) CreateRide(_ context.Context, d model.RideDraft) (model.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return model.Ride{}, f.createErr
	}
	f.nextID++
	r := &model.Ride{
		ID:            f.nextID,
		PublicID:      d.PublicID,
		RiderIdentity: d.RiderIdentity,
		Pickup:        d.Pickup,
		Destination:   d.Destination,
		Passengers:    d.Passengers,
		CreatedAt:     d.CreatedAt,
	}
	f.rides[d.PublicID] = r
	return *r, nil
}

func (f *fakeRides) GetByPublicID(_ context.Context, id string) (model.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rides[id]
	if !ok {
		return model.Ride{}, myerrors.ErrRideNotFound
	}
	return *r, nil
}

// ClaimRide decides and writes under one lock, like the conditional UPDATE.
func (f *fakeRides) ClaimRide(_ context.Context, a model.ClaimAttempt) (model.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimErr != nil {
		return model.Ride{}, f.claimErr
	}
	r, ok := f.rides[a.PublicID]
	if !ok {
		return model.Ride{}, myerrors.NewClaimConflict(a.PublicID, myerrors.ReasonUnknownRide)
	}
	if r.DriverID != nil || r.CreatedAt.Before(a.NotBefore) || r.Passengers > a.DriverCapacity {
		return model.Ride{}, a.Reject(*r)
	}
	id := a.DriverID
	at := a.At
	r.DriverID = &id
	r.ClaimedAt = &at
	return *r, nil
}

func (f *fakeRides) ListRides(_ context.Context, filter model.RideFilter) ([]model.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Ride
	for _, r := range f.rides {
		if filter.RiderIdentity != "" && r.RiderIdentity != filter.RiderIdentity {
			continue
		}
		if filter.DriverID != nil && (r.DriverID == nil || *r.DriverID != *filter.DriverID) {
			continue
		}
		if filter.OpenSince != nil && (r.DriverID != nil || r.CreatedAt.Before(*filter.OpenSince)) {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeRides) put(r model.Ride) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	r.ID = f.nextID
	f.rides[r.PublicID] = &r
}

func (f *fakeRides) get(id string) model.Ride {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.rides[id]
}

type fakeDrivers struct {
	mu      sync.Mutex
	drivers map[string]model.Driver
	err     error
}

func newFakeDrivers(drivers ...model.Driver) *fakeDrivers {
	f := &fakeDrivers{drivers: make(map[string]model.Driver)}
	for _, d := range drivers {
		f.drivers[d.Phone] = d
	}
	return f
}

func (f *fakeDrivers) GetByPhone(_ context.Context, phone string) (model.Driver, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return model.Driver{}, f.err
	}
	d, ok := f.drivers[phone]
	if !ok {
		return model.Driver{}, myerrors.ErrDriverNotFound
	}
	return d, nil
}

func (f *fakeDrivers) Upsert(_ context.Context, d model.Driver) (model.Driver, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drivers[d.Phone] = d
	return d, nil
}

type sentMessage struct {
	To         string
	Text       string
	Attachment *model.Attachment
	Broadcast  bool
}

type fakeMessenger struct {
	mu           sync.Mutex
	sent         []sentMessage
	sendErr      error
	broadcastErr error
}

func (f *fakeMessenger) Send(_ context.Context, to, text string, att *model.Attachment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sentMessage{To: to, Text: text, Attachment: att})
	return nil
}

func (f *fakeMessenger) Broadcast(_ context.Context, group, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.broadcastErr != nil {
		return f.broadcastErr
	}
	f.sent = append(f.sent, sentMessage{To: group, Text: text, Broadcast: true})
	return nil
}

func (f *fakeMessenger) to(identity string) []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentMessage
	for _, m := range f.sent {
		if m.To == identity {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeMessenger) last(identity string) sentMessage {
	msgs := f.to(identity)
	if len(msgs) == 0 {
		return sentMessage{}
	}
	return msgs[len(msgs)-1]
}

func (f *fakeMessenger) broadcasts() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentMessage
	for _, m := range f.sent {
		if m.Broadcast {
			out = append(out, m)
		}
	}
	return out
}

type fakeRegistry struct {
	mu    sync.Mutex
	taken map[string]bool
	err   error
}

func (f *fakeRegistry) Reserve(_ context.Context, code string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if f.taken == nil {
		f.taken = make(map[string]bool)
	}
	if f.taken[code] {
		return false, nil
	}
	f.taken[code] = true
	return true, nil
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
