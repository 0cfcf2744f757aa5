package reservation_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/analytics"
	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/auth"
	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/logger"
	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/models"
	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/notification"
	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/reservation"
	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/scheduler"
)

type Handler struct {
	ReservationService  *reservation.Service
	NotificationService *notification.Service
	AnalyticsService    *analytics.Service
	Scheduler           *scheduler.Scheduler
	Logger              *logger.Logger
}

func NewHandler(reservations *reservation.Service, notifications *notification.Service, stats *analytics.Service, sched *scheduler.Scheduler) *Handler {
	return &Handler{
		ReservationService:  reservations,
		NotificationService: notifications,
		AnalyticsService:    stats,
		Scheduler:           sched,
		Logger:              logger.NewLogger(),
	}
}

// writeError maps the domain error taxonomy onto HTTP statuses: validation
// 400, not-found 404, conflict 409, illegal transition 422, everything else
// 500.
func (h *Handler) writeError(w http.ResponseWriter, operation string, err error) {
	status := http.StatusInternalServerError
	var validationErr *reservation.ValidationError
	var notFoundErr *reservation.NotFoundError
	var conflictErr *reservation.ConflictError
	var transitionErr *reservation.TransitionError
	switch {
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
	case errors.As(err, &notFoundErr):
		status = http.StatusNotFound
	case errors.As(err, &conflictErr):
		status = http.StatusConflict
	case errors.As(err, &transitionErr):
		status = http.StatusUnprocessableEntity
	}
	h.Logger.Error("API", fmt.Sprintf("%s: %v", operation, err))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encodeErr := json.NewEncoder(w).Encode(map[string]string{"error": err.Error()}); encodeErr != nil {
		h.Logger.Error("API", fmt.Sprintf("%s: failed to encode error response: %v", operation, encodeErr))
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, operation string, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.Logger.Error("API", fmt.Sprintf("%s: failed to encode response: %v", operation, err))
	}
}

func (h *Handler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	h.Logger.Info("API", "CreateReservation: received request")

	var req models.CreateReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateReservation: failed to decode request body: %v", err))
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.ReservationService.Create(r.Context(), req, auth.ActorID(r.Context()))
	if err != nil {
		h.writeError(w, "CreateReservation", err)
		return
	}

	h.Logger.LogReservation("create", created.Number, "reservation created via API")
	h.writeJSON(w, "CreateReservation", http.StatusCreated, created)
}

func (h *Handler) GetReservation(w http.ResponseWriter, r *http.Request) {
	reservationID := chi.URLParam(r, "reservationId")
	h.Logger.Info("API", fmt.Sprintf("GetReservation: reservationId=%s", reservationID))

	found, err := h.ReservationService.Get(r.Context(), reservationID)
	if err != nil {
		h.writeError(w, "GetReservation", err)
		return
	}
	h.writeJSON(w, "GetReservation", http.StatusOK, found)
}

func (h *Handler) UpdateReservation(w http.ResponseWriter, r *http.Request) {
	reservationID := chi.URLParam(r, "reservationId")
	h.Logger.Info("API", fmt.Sprintf("UpdateReservation: reservationId=%s", reservationID))

	var req models.UpdateReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("UpdateReservation: failed to decode request body: %v", err))
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := h.ReservationService.Update(r.Context(), reservationID, req, auth.ActorID(r.Context()))
	if err != nil {
		h.writeError(w, "UpdateReservation", err)
		return
	}
	h.writeJSON(w, "UpdateReservation", http.StatusOK, updated)
}

func (h *Handler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	reservationID := chi.URLParam(r, "reservationId")
	h.Logger.Info("API", fmt.Sprintf("ChangeStatus: reservationId=%s", reservationID))

	var req models.ChangeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("ChangeStatus: failed to decode request body: %v", err))
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := h.ReservationService.ChangeStatus(r.Context(), reservationID, req.Status, req.Reason, auth.ActorID(r.Context()))
	if err != nil {
		h.writeError(w, "ChangeStatus", err)
		return
	}

	h.Logger.LogReservation("status", updated.Number, fmt.Sprintf("status changed to %s via API", updated.Status))
	h.writeJSON(w, "ChangeStatus", http.StatusOK, updated)
}

func (h *Handler) AssignTable(w http.ResponseWriter, r *http.Request) {
	reservationID := chi.URLParam(r, "reservationId")
	h.Logger.Info("API", fmt.Sprintf("AssignTable: reservationId=%s", reservationID))

	var req models.AssignTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("AssignTable: failed to decode request body: %v", err))
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := h.ReservationService.AssignTable(r.Context(), reservationID, req, auth.ActorID(r.Context()))
	if err != nil {
		h.writeError(w, "AssignTable", err)
		return
	}

	h.Logger.LogReservation("assign_table", updated.Number, "table assigned via API")
	h.writeJSON(w, "AssignTable", http.StatusOK, updated)
}

func (h *Handler) ListReservations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.ReservationFilter{
		RestaurantID: q.Get("restaurant_id"),
		Status:       q.Get("status"),
		TableID:      q.Get("table_id"),
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "Invalid 'from' timestamp, expected RFC3339", http.StatusBadRequest)
			return
		}
		filter.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "Invalid 'to' timestamp, expected RFC3339", http.StatusBadRequest)
			return
		}
		filter.To = t
	}
	if v := q.Get("page"); v != "" {
		filter.Page, _ = strconv.Atoi(v)
	}
	if v := q.Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}
	h.Logger.Info("API", fmt.Sprintf("ListReservations: restaurant=%s status=%s page=%d", filter.RestaurantID, filter.Status, filter.Page))

	page, err := h.ReservationService.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, "ListReservations", err)
		return
	}
	h.writeJSON(w, "ListReservations", http.StatusOK, page)
}

func (h *Handler) ListReservationsByDate(w http.ResponseWriter, r *http.Request) {
	dateParam := chi.URLParam(r, "date")
	restaurantID := r.URL.Query().Get("restaurant_id")
	h.Logger.Info("API", fmt.Sprintf("ListReservationsByDate: date=%s restaurant=%s", dateParam, restaurantID))

	day, err := time.Parse("2006-01-02", dateParam)
	if err != nil {
		http.Error(w, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	items, err := h.ReservationService.ListByDate(r.Context(), restaurantID, day)
	if err != nil {
		h.writeError(w, "ListReservationsByDate", err)
		return
	}
	h.writeJSON(w, "ListReservationsByDate", http.StatusOK, items)
}

// SendNotification triggers a single notification by type. The result body
// reports delivery success or failure; eligibility violations map onto the
// error taxonomy.
func (h *Handler) SendNotification(w http.ResponseWriter, r *http.Request) {
	reservationID := chi.URLParam(r, "reservationId")
	notificationType := chi.URLParam(r, "type")
	h.Logger.Info("API", fmt.Sprintf("SendNotification: reservationId=%s type=%s", reservationID, notificationType))

	var result *models.NotificationResult
	var err error
	switch notificationType {
	case models.NotificationConfirmation:
		result, err = h.NotificationService.SendConfirmation(r.Context(), reservationID)
	case models.NotificationReminder:
		result, err = h.NotificationService.SendReminder(r.Context(), reservationID)
	case models.NotificationCancellation:
		var body struct {
			Reason string `json:"reason"`
		}
		// Body is optional for cancellation notices.
		_ = json.NewDecoder(r.Body).Decode(&body)
		result, err = h.NotificationService.SendCancellation(r.Context(), reservationID, body.Reason)
	default:
		http.Error(w, "Unknown notification type: "+notificationType, http.StatusBadRequest)
		return
	}
	if err != nil {
		h.writeError(w, "SendNotification", err)
		return
	}
	h.writeJSON(w, "SendNotification", http.StatusOK, result)
}

func (h *Handler) RetryNotification(w http.ResponseWriter, r *http.Request) {
	reservationID := chi.URLParam(r, "reservationId")
	h.Logger.Info("API", fmt.Sprintf("RetryNotification: reservationId=%s", reservationID))

	var body struct {
		Type string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.NotificationService.RetryFailed(r.Context(), reservationID, body.Type)
	if err != nil {
		h.writeError(w, "RetryNotification", err)
		return
	}
	h.writeJSON(w, "RetryNotification", http.StatusOK, result)
}

func (h *Handler) BatchReminders(w http.ResponseWriter, r *http.Request) {
	restaurantID := r.URL.Query().Get("restaurant_id")
	h.Logger.Info("API", fmt.Sprintf("BatchReminders: restaurant=%s", restaurantID))

	summary, err := h.NotificationService.SendBatchReminders(r.Context(), restaurantID)
	if err != nil {
		h.writeError(w, "BatchReminders", err)
		return
	}
	h.writeJSON(w, "BatchReminders", http.StatusOK, summary)
}

func (h *Handler) RunJob(w http.ResponseWriter, r *http.Request) {
	jobName := chi.URLParam(r, "name")
	h.Logger.Info("API", fmt.Sprintf("RunJob: name=%s", jobName))

	summary, err := h.Scheduler.RunJob(r.Context(), jobName)
	if err != nil {
		if errors.Is(err, scheduler.ErrUnknownJob) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.writeError(w, "RunJob", err)
		return
	}
	h.writeJSON(w, "RunJob", http.StatusOK, summary)
}

func (h *Handler) RestaurantStats(w http.ResponseWriter, r *http.Request) {
	restaurantID := chi.URLParam(r, "restaurantId")
	h.Logger.Info("API", fmt.Sprintf("RestaurantStats: restaurantId=%s", restaurantID))

	stats, err := h.AnalyticsService.WeeklyStats(r.Context(), restaurantID, time.Now())
	if err != nil {
		h.writeError(w, "RestaurantStats", err)
		return
	}
	h.writeJSON(w, "RestaurantStats", http.StatusOK, stats)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, "Health", http.StatusOK, map[string]string{"status": "ok"})
}
