// Package client is a Go client for the booking HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"cinematime/internal/models"
)

// Client calls the API on behalf of one user
type Client struct {
	BaseURL      string
	UserIDHeader string
	UserID       int64
	HTTPClient   *http.Client
}

func New(baseURL string, userID int64) *Client {
	return &Client{
		BaseURL:      baseURL,
		UserIDHeader: "X-User-ID",
		UserID:       userID,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// AsUser returns a copy of c acting for another user
func (c *Client) AsUser(userID int64) *Client {
	clone := *c
	clone.UserID = userID
	return &clone
}

// APIError is a non-2xx response
type APIError struct {
	StatusCode int
	Body       models.ErrorResponse
}

func (e *APIError) Error() string {
	if e.Body.Reason != "" {
		return fmt.Sprintf("api returned %d %s: %s", e.StatusCode, e.Body.Reason, e.Body.Error)
	}
	return fmt.Sprintf("api returned %d: %s", e.StatusCode, e.Body.Error)
}

func (c *Client) SeatMap(ctx context.Context, showtimeID int64) (*models.SeatMap, error) {
	var out models.SeatMap
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/showtimes/%d/seats", showtimeID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) OccupiedSeats(ctx context.Context, showtimeID int64) (*models.OccupiedSeatsResponse, error) {
	var out models.OccupiedSeatsResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/showtimes/%d/occupied", showtimeID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateBooking(ctx context.Context, showtimeID int64, seats ...models.SeatCoordinate) (*models.BookingResponse, error) {
	req := models.CreateBookingRequest{ShowtimeID: showtimeID, Seats: seats}
	var out models.BookingResponse
	if err := c.do(ctx, http.MethodPost, "/api/bookings", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListBookings(ctx context.Context) (models.ListBookingsResponse, error) {
	var out models.ListBookingsResponse
	if err := c.do(ctx, http.MethodGet, "/api/bookings", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetBooking(ctx context.Context, bookingID int64) (*models.BookingResponse, error) {
	var out models.BookingResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/bookings/%d", bookingID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CancelBooking(ctx context.Context, bookingID int64) (*models.BookingResponse, error) {
	var out models.BookingResponse
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/bookings/%d/cancel", bookingID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.UserID != 0 {
		req.Header.Set(c.UserIDHeader, strconv.FormatInt(c.UserID, 10))
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		data, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(data, &apiErr.Body) != nil {
			apiErr.Body.Error = string(data)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: failed to decode response: %w", method, path, err)
	}
	return nil
}
