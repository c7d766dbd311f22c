package handler

import (
	"encoding/json"
	"net/http"
	"time"

	reserrors "roomdesk/internal/reservations/errors"
	"roomdesk/internal/reservations/service"
	apperrors "roomdesk/pkg/errors"
	httputil "roomdesk/pkg/http"
	"roomdesk/pkg/logger"
	"roomdesk/pkg/model"

	"github.com/julienschmidt/httprouter"
)

// StatusProvider is satisfied by the status refresher.
type StatusProvider interface {
	Latest() []model.RoomStatus
}

type ReservationHandler struct {
	service  service.ReservationService
	statuses StatusProvider
	log      *logger.Logger
	now      func() time.Time
}

func NewReservationHandler(service service.ReservationService, statuses StatusProvider, log *logger.Logger) *ReservationHandler {
	return &ReservationHandler{
		service:  service,
		statuses: statuses,
		log:      log,
		now:      time.Now,
	}
}

func invalidBody() *apperrors.AppError {
	return apperrors.InvalidInput("Invalid request body").
		WithDetails(map[string]any{service.DetailReason: string(reserrors.MalformedInput)})
}

func (h *ReservationHandler) Rooms(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	rooms, err := h.service.Rooms()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteList(w, rooms, len(rooms))
}

func (h *ReservationHandler) Teams(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	teams, err := h.service.Teams()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteList(w, teams, len(teams))
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.ReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("Rejected reservation body", "handler", "Create", "error", err)
		httputil.WriteError(w, invalidBody())
		return
	}

	res, err := h.service.Create(r.Context(), ps.ByName("room_id"), &req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteCreated(w, res)
}

func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	list, err := h.service.ListByRoom(r.Context(), ps.ByName("room_id"), r.URL.Query().Get("date"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteList(w, list, len(list))
}

func (h *ReservationHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	res, err := h.service.GetByID(r.Context(), ps.ByName("room_id"), ps.ByName("reservation_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, res)
}

func (h *ReservationHandler) Edit(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var patch model.ReservationPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		h.log.Debug("Rejected reservation body", "handler", "Edit", "error", err)
		httputil.WriteError(w, invalidBody())
		return
	}
	if patch.Password == "" {
		if password, err := httputil.ExtractCredential(r); err == nil {
			patch.Password = password
		}
	}

	res, err := h.service.Edit(r.Context(), ps.ByName("room_id"), ps.ByName("reservation_id"), &patch)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, res)
}

func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	password, err := httputil.ExtractCredential(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Cancel(r.Context(), ps.ByName("room_id"), ps.ByName("reservation_id"), password); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// CheckResponse is returned when a slot would be accepted.
type CheckResponse struct {
	Available bool `json:"available"`
}

func (h *ReservationHandler) Check(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	query := r.URL.Query()
	check := &model.SlotCheck{
		Date:                 query.Get("date"),
		StartTime:            query.Get("start_time"),
		EndTime:              query.Get("end_time"),
		ExcludeReservationID: query.Get("exclude_reservation_id"),
	}

	if err := h.service.Check(r.Context(), ps.ByName("room_id"), check); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, CheckResponse{Available: true})
}

func (h *ReservationHandler) Status(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	statuses := h.statuses.Latest()
	if statuses == nil {
		statuses = []model.RoomStatus{}
	}
	httputil.WriteList(w, statuses, len(statuses))
}

func (h *ReservationHandler) BookingWindow(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	httputil.WriteSuccess(w, h.service.BookingWindow(h.now()))
}

func (h *ReservationHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/rooms", h.Rooms)
	router.GET("/api/v1/teams", h.Teams)
	router.GET("/api/v1/rooms/:room_id/reservations", h.List)
	router.POST("/api/v1/rooms/:room_id/reservations", h.Create)
	router.GET("/api/v1/rooms/:room_id/reservations/:reservation_id", h.GetByID)
	router.PUT("/api/v1/rooms/:room_id/reservations/:reservation_id", h.Edit)
	router.DELETE("/api/v1/rooms/:room_id/reservations/:reservation_id", h.Cancel)
	router.GET("/api/v1/rooms/:room_id/check", h.Check)
	router.GET("/api/v1/status", h.Status)
	router.GET("/api/v1/booking-window", h.BookingWindow)
}
