package http

import (
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/hris-attendance-agent/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/pkg/geo"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/pkg/validator"
)

type GeofenceHandler interface {
	Check(w http.ResponseWriter, r *http.Request)
}

type geofenceHandlerImpl struct {
	offices  []attendance.Office
	enforced bool
}

func NewGeofenceHandler(offices []attendance.Office, enforced bool) GeofenceHandler {
	return &geofenceHandlerImpl{offices: offices, enforced: enforced}
}

// Check implements GeofenceHandler.
func (h *geofenceHandlerImpl) Check(w http.ResponseWriter, r *http.Request) {
	var req attendance.GeofenceCheckRequest
	var errs validator.ValidationErrors

	lat, err := strconv.ParseFloat(r.URL.Query().Get("latitude"), 64)
	if err != nil {
		errs = append(errs, validator.ValidationError{Field: "latitude", Message: "latitude is required and must be a number"})
	}
	lon, err := strconv.ParseFloat(r.URL.Query().Get("longitude"), 64)
	if err != nil {
		errs = append(errs, validator.ValidationError{Field: "longitude", Message: "longitude is required and must be a number"})
	}
	if len(errs) > 0 {
		response.HandleError(w, errs)
		return
	}

	req.Latitude, req.Longitude = lat, lon
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	resp := attendance.GeofenceCheckResponse{Enforced: h.enforced}
	if office, distance, ok := geo.NearestOffice(req.Latitude, req.Longitude, h.offices); ok {
		resp.Configured = true
		resp.NearestOffice = office.Name
		resp.DistanceMeters = distance
		resp.RadiusMeters = office.RadiusMeters
		resp.Within = geo.IsWithin(distance, office.RadiusMeters)
	}

	response.Success(w, resp)
}
