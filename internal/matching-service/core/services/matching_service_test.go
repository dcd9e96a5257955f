package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"tujane/internal/matching-service/core/domain/model"
	"tujane/internal/matching-service/core/myerrors"
	"tujane/internal/mylogger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const driversGroup = "120363385914840853@g.us"

var codePattern = regexp.MustCompile(`^TUJ\d{4}$`)

type matchingFixture struct {
	svc       *MatchingService
	rides     *fakeRides
	drivers   *fakeDrivers
	messenger *fakeMessenger
	clock     *fixedClock
}

func newMatchingFixture(t *testing.T, drivers ...model.Driver) *matchingFixture {
	t.Helper()
	f := &matchingFixture{
		rides:     newFakeRides(),
		drivers:   newFakeDrivers(drivers...),
		messenger: &fakeMessenger{},
		clock:     &fixedClock{now: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)},
	}
	log := mylogger.Nop()
	codes := NewCodeGenerator(log, "TUJ", 20*time.Minute, &fakeRegistry{})
	f.svc = NewMatchingService(log, f.rides, f.drivers, f.messenger, codes, driversGroup, 20*time.Minute)
	f.svc.now = f.clock.Now
	return f
}

func driverWithCapacity(id int64, capacity int) model.Driver {
	return model.Driver{
		ID:       id,
		Phone:    fmt.Sprintf("2576100000%d", id),
		FullName: fmt.Sprintf("Driver %d", id),
		Plate:    fmt.Sprintf("B%04dA", id),
		CarType:  "Toyota Probox",
		PhotoURL: fmt.Sprintf("https://cdn.example.com/cars/%d.png", id),
		Capacity: capacity,
	}
}

func identityOf(d model.Driver) string {
	return d.Phone + "@c.us"
}

func openRide(code string, passengers int, createdAt time.Time) model.Ride {
	return model.Ride{
		PublicID:      code,
		RiderIdentity: rider,
		Pickup:        "Near the market",
		Destination:   "Downtown",
		Passengers:    passengers,
		CreatedAt:     createdAt,
	}
}

func TestPublishPersistsBroadcastsAndConfirms(t *testing.T) {
	f := newMatchingFixture(t)

	ride, err := f.svc.Publish(context.Background(), rider, model.RideDetails{
		Pickup:      "Near the market",
		Destination: "Downtown",
		Passengers:  4,
	})
	require.NoError(t, err)
	assert.Regexp(t, codePattern, ride.PublicID)
	assert.Equal(t, 4, ride.Passengers)
	assert.Equal(t, f.clock.Now(), ride.CreatedAt)

	stored := f.rides.get(ride.PublicID)
	assert.Nil(t, stored.DriverID)

	offers := f.messenger.broadcasts()
	require.Len(t, offers, 1)
	assert.Equal(t, driversGroup, offers[0].To)
	assert.Contains(t, offers[0].Text, ride.PublicID)
	assert.Contains(t, offers[0].Text, "Near the market")
	assert.Contains(t, offers[0].Text, "minota itarenze 20")

	confirmation := f.messenger.last(rider)
	assert.Contains(t, confirmation.Text, "#"+ride.PublicID)
}

func TestPublishStopsWhenPersistenceFails(t *testing.T) {
	f := newMatchingFixture(t)
	f.rides.createErr = errBoom

	_, err := f.svc.Publish(context.Background(), rider, model.RideDetails{Pickup: "a", Destination: "b", Passengers: 1})
	require.ErrorIs(t, err, myerrors.ErrCollaborator)
	require.ErrorIs(t, err, errBoom)

	assert.Empty(t, f.messenger.broadcasts(), "nothing is offered without a persisted ride")
	assert.Equal(t, msgCreateFailed, f.messenger.last(rider).Text)
}

func TestPublishKeepsRideWhenBroadcastFails(t *testing.T) {
	f := newMatchingFixture(t, driverWithCapacity(1, 4))
	f.messenger.broadcastErr = errBoom

	ride, err := f.svc.Publish(context.Background(), rider, model.RideDetails{Pickup: "a", Destination: "b", Passengers: 2})
	require.ErrorIs(t, err, myerrors.ErrCollaborator)
	assert.Equal(t, msgBroadcastFailed, f.messenger.last(rider).Text)

	f.messenger.broadcastErr = nil
	claimed, err := f.svc.Claim(context.Background(), identityOf(driverWithCapacity(1, 4)), ride.PublicID)
	require.NoError(t, err, "the ride stays claimable")
	assert.Equal(t, ride.PublicID, claimed.PublicID)
}

func TestClaimWinnerNotifications(t *testing.T) {
	driver := driverWithCapacity(1, 4)
	f := newMatchingFixture(t, driver)
	f.rides.put(openRide("TUJ1234", 3, f.clock.Now().Add(-5*time.Minute)))

	ride, err := f.svc.Claim(context.Background(), identityOf(driver), "tuj1234")
	require.NoError(t, err)
	require.NotNil(t, ride.DriverID)
	assert.Equal(t, driver.ID, *ride.DriverID)

	toDriver := f.messenger.last(identityOf(driver))
	assert.Contains(t, toDriver.Text, "Mwatsindiye urugendo #TUJ1234")
	assert.Contains(t, toDriver.Text, "+25779000001")

	toRider := f.messenger.last(rider)
	assert.Contains(t, toRider.Text, driver.FullName)
	assert.Contains(t, toRider.Text, "+"+driver.Phone)
	assert.Contains(t, toRider.Text, driver.Plate)
	assert.Contains(t, toRider.Text, driver.CarType)
	require.NotNil(t, toRider.Attachment)
	assert.Equal(t, driver.PhotoURL, toRider.Attachment.URL)
	assert.Equal(t, "car-"+driver.Plate+".png", toRider.Attachment.Filename)

	notices := f.messenger.broadcasts()
	require.Len(t, notices, 1)
	assert.Equal(t, "Urugendo #TUJ1234 rwamaze gufatwa na @+"+driver.Phone, notices[0].Text)
}

func TestClaimRejections(t *testing.T) {
	small := driverWithCapacity(1, 3)
	big := driverWithCapacity(2, 6)
	other := driverWithCapacity(3, 6)

	cases := []struct {
		name   string
		ride   model.Ride
		age    time.Duration
		setup  func(t *testing.T, f *matchingFixture)
		driver model.Driver
		code   string
		reason myerrors.ClaimReason
	}{
		{
			name:   "insufficient capacity",
			ride:   openRide("TUJ1000", 4, time.Time{}),
			age:    20 * time.Minute,
			driver: small,
			code:   "TUJ1000",
			reason: myerrors.ReasonInsufficientCapacity,
		},
		{
			name:   "expired",
			ride:   openRide("TUJ2000", 2, time.Time{}),
			age:    21 * time.Minute,
			driver: big,
			code:   "TUJ2000",
			reason: myerrors.ReasonExpired,
		},
		{
			name: "already claimed",
			ride: openRide("TUJ3000", 2, time.Time{}),
			setup: func(t *testing.T, f *matchingFixture) {
				_, err := f.svc.Claim(context.Background(), identityOf(other), "TUJ3000")
				require.NoError(t, err)
			},
			driver: big,
			code:   "TUJ3000",
			reason: myerrors.ReasonAlreadyClaimed,
		},
		{
			name:   "unknown ride",
			driver: big,
			code:   "TUJ9999",
			reason: myerrors.ReasonUnknownRide,
		},
		{
			name:   "unknown driver",
			ride:   openRide("TUJ4000", 1, time.Time{}),
			driver: driverWithCapacity(9, 6),
			code:   "TUJ4000",
			reason: myerrors.ReasonUnknownDriver,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newMatchingFixture(t, small, big, other)
			if tc.ride.PublicID != "" {
				tc.ride.CreatedAt = f.clock.Now().Add(-tc.age)
				f.rides.put(tc.ride)
			}
			if tc.setup != nil {
				tc.setup(t, f)
			}

			_, err := f.svc.Claim(context.Background(), identityOf(tc.driver), tc.code)

			var conflict *myerrors.ClaimConflictError
			require.ErrorAs(t, err, &conflict)
			require.ErrorIs(t, err, myerrors.ErrClaimConflict)
			assert.Equal(t, tc.reason, conflict.Reason)
			assert.Equal(t, claimRejected(tc.code), f.messenger.last(identityOf(tc.driver)).Text)

			if tc.ride.PublicID != "" && tc.setup == nil {
				assert.Nil(t, f.rides.get(tc.code).DriverID, "ride stays unclaimed")
			}
		})
	}
}

func TestClaimTwentyMinuteBoundary(t *testing.T) {
	driver := driverWithCapacity(1, 4)
	f := newMatchingFixture(t, driver)
	f.rides.put(openRide("TUJ5555", 4, f.clock.Now().Add(-20*time.Minute)))

	_, err := f.svc.Claim(context.Background(), identityOf(driver), "TUJ5555")
	require.NoError(t, err, "a ride exactly 20 minutes old is still claimable")
}

func TestClaimRepositoryFailure(t *testing.T) {
	driver := driverWithCapacity(1, 4)
	f := newMatchingFixture(t, driver)
	f.rides.claimErr = errBoom

	_, err := f.svc.Claim(context.Background(), identityOf(driver), "TUJ1234")
	require.ErrorIs(t, err, myerrors.ErrCollaborator)
	assert.Equal(t, claimFailed("TUJ1234"), f.messenger.last(identityOf(driver)).Text)
}

func TestClaimNotificationFailureKeepsAssignment(t *testing.T) {
	driver := driverWithCapacity(1, 4)
	f := newMatchingFixture(t, driver)
	f.rides.put(openRide("TUJ1234", 2, f.clock.Now()))
	f.messenger.broadcastErr = errBoom

	ride, err := f.svc.Claim(context.Background(), identityOf(driver), "TUJ1234")
	require.ErrorIs(t, err, myerrors.ErrCollaborator)
	require.NotNil(t, ride.DriverID)

	stored := f.rides.get("TUJ1234")
	require.NotNil(t, stored.DriverID, "assignment is not rolled back")
	assert.Equal(t, claimFailed("TUJ1234"), f.messenger.last(identityOf(driver)).Text)
}

func TestClaimExclusivityUnderRace(t *testing.T) {
	const claimants = 16

	var drivers []model.Driver
	for i := 1; i <= claimants; i++ {
		drivers = append(drivers, driverWithCapacity(int64(i), 6))
	}
	f := newMatchingFixture(t, drivers...)
	f.rides.put(openRide("TUJ7777", 4, f.clock.Now()))

	start := make(chan struct{})
	errs := make(chan error, claimants)
	var wg sync.WaitGroup
	for _, d := range drivers {
		wg.Add(1)
		go func(d model.Driver) {
			defer wg.Done()
			<-start
			_, err := f.svc.Claim(context.Background(), identityOf(d), "TUJ7777")
			errs <- err
		}(d)
	}
	close(start)
	wg.Wait()
	close(errs)

	success, conflicts := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			success++
		case errors.Is(err, myerrors.ErrClaimConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, success)
	assert.Equal(t, claimants-1, conflicts)

	winners := 0
	for _, d := range drivers {
		for _, m := range f.messenger.to(identityOf(d)) {
			if strings.Contains(m.Text, "Mwatsindiye") {
				winners++
			}
		}
	}
	assert.Equal(t, 1, winners)
}
