package controllers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"pickupsports/internal/delivery/http/helpers"
	"pickupsports/internal/delivery/http/middleware"
	"pickupsports/internal/domain"
)

// CreateEventRequest is the request body for POST /api/events. Every field is required.
type CreateEventRequest struct {
	Type       string    `json:"type"`
	Location   string    `json:"location"`
	Latitude   *float64  `json:"latitude"`
	Longitude  *float64  `json:"longitude"`
	StartTime  time.Time `json:"startTime"`
	EndTime    time.Time `json:"endTime"`
	SkillLevel string    `json:"skillLevel"`
}

func (c CreateEventRequest) fields() domain.EventFields {
	f := domain.EventFields{
		Type:       c.Type,
		Location:   c.Location,
		StartTime:  c.StartTime,
		EndTime:    c.EndTime,
		SkillLevel: c.SkillLevel,
	}
	if c.Latitude != nil {
		f.Latitude = *c.Latitude
	}
	if c.Longitude != nil {
		f.Longitude = *c.Longitude
	}
	return f
}

// Validate implements Validator.
func (c CreateEventRequest) Validate() []string {
	var errs []string
	if c.Latitude == nil {
		errs = append(errs, "latitude is required")
	}
	if c.Longitude == nil {
		errs = append(errs, "longitude is required")
	}
	f := c.fields()
	return append(errs, f.Validate()...)
}

// MembershipRequest is the request body for check-in and check-out.
type MembershipRequest struct {
	EventID string `json:"eventId"`
}

// Validate implements Validator.
func (m MembershipRequest) Validate() []string {
	if strings.TrimSpace(m.EventID) == "" {
		return []string{"eventId is required"}
	}
	return nil
}

// EventSuccessResponse is the success response envelope for a single event.
type EventSuccessResponse struct {
	Data  *domain.Event     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// ListEventsSuccessResponse is the success response envelope for GET /api/events (200).
type ListEventsSuccessResponse struct {
	Data  []*domain.Event   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// CheckOutSuccessResponse is the success response envelope for DELETE /api/events/users/{userID} (200).
type CheckOutSuccessResponse struct {
	Data  *domain.CheckOutResult `json:"data"`
	Error *helpers.APIError      `json:"error"`
}

// EventController handles event listing, creation and membership endpoints.
type EventController struct {
	Logger  *slog.Logger
	Service domain.MembershipService
}

// NewEventController creates an EventController with the given logger and membership service.
func NewEventController(logger *slog.Logger, svc domain.MembershipService) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateEvent godoc
// @Summary Create an event
// @Description Create a pickup event. The authenticated user becomes its first and only player.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body CreateEventRequest true "Event data"
// @Success 201 {object} controllers.EventSuccessResponse "data contains the created event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 503 {object} helpers.APIResponse "error.code: unavailable"
// @Router /api/events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	var req CreateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event, err := c.Service.CreateEvent(r.Context(), userID, req.fields())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, event)
}

// ListEvents godoc
// @Summary List events
// @Description Returns every event ordered by start time.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.ListEventsSuccessResponse "data contains the events"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 503 {object} helpers.APIResponse "error.code: unavailable"
// @Router /api/events [get]
func (c *EventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := c.Service.ListEvents(r.Context())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, events)
}

// CheckIn godoc
// @Summary Check in to an event
// @Description Adds the user to the event. Returns 201 when the user joined and 200 when already a member.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param userID path string true "User ID; must be the caller"
// @Param body body MembershipRequest true "Event to join"
// @Success 200 {object} controllers.EventSuccessResponse "already a member"
// @Success 201 {object} controllers.EventSuccessResponse "joined"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 503 {object} helpers.APIResponse "error.code: unavailable"
// @Router /api/events/users/{userID} [post]
func (c *EventController) CheckIn(w http.ResponseWriter, r *http.Request) {
	userID, ok := c.pathUser(w, r)
	if !ok {
		return
	}
	var req MembershipRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event, joined, err := c.Service.CheckIn(r.Context(), userID, strings.TrimSpace(req.EventID))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	status := http.StatusOK
	if joined {
		status = http.StatusCreated
	}
	helpers.WriteJSONSuccess(w, status, event)
}

// CheckOut godoc
// @Summary Check out of an event
// @Description Removes the user from the event. The event is deleted when its last player leaves.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param userID path string true "User ID; must be the caller"
// @Param body body MembershipRequest true "Event to leave"
// @Success 200 {object} controllers.CheckOutSuccessResponse "data contains the event and whether it was deleted"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 503 {object} helpers.APIResponse "error.code: unavailable"
// @Router /api/events/users/{userID} [delete]
func (c *EventController) CheckOut(w http.ResponseWriter, r *http.Request) {
	userID, ok := c.pathUser(w, r)
	if !ok {
		return
	}
	var req MembershipRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	res, err := c.Service.CheckOut(r.Context(), userID, strings.TrimSpace(req.EventID))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, res)
}

// pathUser returns the {userID} path value after checking it names the caller.
func (c *EventController) pathUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	callerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return "", false
	}
	userID := r.PathValue("userID")
	if userID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing userID")
		return "", false
	}
	if userID != callerID {
		helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "cannot change another user's memberships")
		return "", false
	}
	return userID, true
}
