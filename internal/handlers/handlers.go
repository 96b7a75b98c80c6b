package handlers

import (
	"errors"
	"net/http"
	"strconv"

	apperrors "cinematime/internal/errors"
	"cinematime/internal/logger"
	"cinematime/internal/middleware"
	"cinematime/internal/models"
	"cinematime/internal/service"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	services *service.Services
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{services: services}
}

// Showtimes handlers

// GetSeatMap - GET /api/showtimes/:id/seats
func (h *Handlers) GetSeatMap(c *gin.Context) {
	showtimeID, ok := pathID(c)
	if !ok {
		return
	}

	seatMap, err := h.services.Showtimes.SeatMap(c.Request.Context(), showtimeID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, seatMap)
}

// GetOccupiedSeats - GET /api/showtimes/:id/occupied
func (h *Handlers) GetOccupiedSeats(c *gin.Context) {
	showtimeID, ok := pathID(c)
	if !ok {
		return
	}

	response, err := h.services.Showtimes.Occupied(c.Request.Context(), showtimeID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// Bookings handlers

// CreateBooking - POST /api/bookings
func (h *Handlers) CreateBooking(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	response, err := h.services.Bookings.Create(c.Request.Context(), userID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

// ListBookings - GET /api/bookings
func (h *Handlers) ListBookings(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	response, err := h.services.Bookings.List(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetBooking - GET /api/bookings/:id
func (h *Handlers) GetBooking(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	bookingID, ok := pathID(c)
	if !ok {
		return
	}

	response, err := h.services.Bookings.Get(c.Request.Context(), userID, bookingID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// CancelBooking - PATCH /api/bookings/:id/cancel
func (h *Handlers) CancelBooking(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	bookingID, ok := pathID(c)
	if !ok {
		return
	}

	response, err := h.services.Bookings.Cancel(c.Request.Context(), userID, bookingID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "id must be a positive integer"})
		return 0, false
	}
	return id, true
}

func currentUser(c *gin.Context) (int64, bool) {
	userID, ok := middleware.UserIDFromContext(c.Request.Context())
	if !ok {
		handleServiceError(c, apperrors.ErrUnauthorized)
		return 0, false
	}
	return userID, true
}

// handleServiceError maps error kinds onto HTTP statuses
func handleServiceError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrUnauthorized) {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: err.Error(), Reason: "Unauthorized"})
		return
	}

	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.Storage("request", err)
	}

	status := http.StatusInternalServerError
	switch appErr.Kind {
	case apperrors.KindValidation:
		status = http.StatusBadRequest
	case apperrors.KindNotFound:
		status = http.StatusNotFound
	case apperrors.KindConflict:
		status = http.StatusConflict
	case apperrors.KindPolicy:
		status = http.StatusUnprocessableEntity
	case apperrors.KindStorage:
		status = http.StatusServiceUnavailable
		logger.WithContext(c.Request.Context()).Error("Request failed on storage", "error", err, "path", c.FullPath())
	}

	_ = c.Error(err)
	response := models.ErrorResponse{
		Error:  appErr.PublicMessage(),
		Reason: string(appErr.Reason),
	}
	if len(appErr.Seats) > 0 {
		response.Seats = models.SeatLabels(appErr.Seats)
	}
	c.JSON(status, response)
}
