package handle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"tujane/internal/matching-service/core/domain/model"
	"tujane/internal/matching-service/core/myerrors"
	"tujane/internal/matching-service/core/ports"
	"tujane/internal/mylogger"
)

type RidesHandler struct {
	ridesService ports.IRidesQueryService
	log          mylogger.Logger
}

func NewRidesHandler(rs ports.IRidesQueryService, log mylogger.Logger) *RidesHandler {
	return &RidesHandler{
		ridesService: rs,
		log:          log,
	}
}

type rideView struct {
	model.Ride
	Status model.RideStatus `json:"status"`
}

// GetRide serves GET /rides/{public_id}.
func (rh *RidesHandler) GetRide() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := rh.log.Action("GetRide")
		ctx, cancel := context.WithTimeout(r.Context(), WaitTime*time.Second)
		defer cancel()

		publicID := r.PathValue("public_id")
		ride, status, err := rh.ridesService.GetRide(ctx, publicID)
		if errors.Is(err, myerrors.ErrRideNotFound) {
			JsonError(w, http.StatusNotFound, err)
			return
		}
		if err != nil {
			log.Error("cannot get ride", err, "public_id", publicID)
			JsonError(w, http.StatusInternalServerError, fmt.Errorf("failed to get ride"))
			return
		}

		jsonResponse(w, http.StatusOK, rideView{Ride: ride, Status: status})
	}
}

// ListRides serves GET /rides?rider=&driver=&status=open&limit=.
func (rh *RidesHandler) ListRides() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := rh.log.Action("ListRides")
		ctx, cancel := context.WithTimeout(r.Context(), WaitTime*time.Second)
		defer cancel()

		q := r.URL.Query()
		filter := model.RideFilter{RiderIdentity: q.Get("rider")}

		switch q.Get("status") {
		case "":
		case "open":
			since := time.Time{}
			filter.OpenSince = &since
		default:
			JsonError(w, http.StatusBadRequest, fmt.Errorf("unsupported status %q", q.Get("status")))
			return
		}

		if raw := q.Get("limit"); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil || limit < 1 {
				JsonError(w, http.StatusBadRequest, fmt.Errorf("limit must be a positive number"))
				return
			}
			filter.Limit = limit
		}

		if phone := q.Get("driver"); phone != "" {
			driverID, err := rh.ridesService.DriverIDByPhone(ctx, phone)
			if errors.Is(err, myerrors.ErrDriverNotFound) {
				JsonError(w, http.StatusNotFound, err)
				return
			}
			if err != nil {
				log.Error("cannot resolve driver", err)
				JsonError(w, http.StatusInternalServerError, fmt.Errorf("failed to list rides"))
				return
			}
			filter.DriverID = &driverID
		}

		rides, err := rh.ridesService.ListRides(ctx, filter)
		if err != nil {
			JsonError(w, http.StatusInternalServerError, fmt.Errorf("failed to list rides"))
			return
		}

		jsonResponse(w, http.StatusOK, map[string]interface{}{
			"rides": rides,
			"count": len(rides),
		})
	}
}
