package service

import (
	"context"

	"cinematime/internal/inventory"
	"cinematime/internal/models"
)

type ShowtimeService struct {
	view *inventory.View
}

func NewShowtimeService(view *inventory.View) *ShowtimeService {
	return &ShowtimeService{view: view}
}

func (s *ShowtimeService) SeatMap(ctx context.Context, showtimeID int64) (*models.SeatMap, error) {
	return s.view.SeatMap(ctx, showtimeID)
}

// Occupied lists the confirmed seats of a showtime in row, column order
func (s *ShowtimeService) Occupied(ctx context.Context, showtimeID int64) (*models.OccupiedSeatsResponse, error) {
	seats, err := s.view.OccupiedSeats(ctx, showtimeID)
	if err != nil {
		return nil, err
	}
	return &models.OccupiedSeatsResponse{
		ShowtimeID: showtimeID,
		Seats:      seats,
		SeatLabels: models.SeatLabels(seats),
	}, nil
}
