package inventory

import (
	"context"

	apperrors "cinematime/internal/errors"
	"cinematime/internal/models"
)

// ShowtimeSource provides theater dimensions for a showtime
type ShowtimeSource interface {
	GetShowtime(ctx context.Context, showtimeID int64) (*models.Showtime, error)
}

// SeatSource reads seats held by confirmed bookings
type SeatSource interface {
	OccupiedSeats(ctx context.Context, showtimeID int64, seats []models.SeatCoordinate) ([]models.SeatCoordinate, error)
}

// View answers availability questions for a showtime. Occupancy is read
// from the store on every call so it reflects committed state.
type View struct {
	showtimes ShowtimeSource
	seats     SeatSource
}

func NewView(showtimes ShowtimeSource, seats SeatSource) *View {
	return &View{showtimes: showtimes, seats: seats}
}

// OccupiedSeats returns the seats of a showtime held by confirmed bookings, ordered by row and column
func (v *View) OccupiedSeats(ctx context.Context, showtimeID int64) ([]models.SeatCoordinate, error) {
	if _, err := v.showtime(ctx, showtimeID); err != nil {
		return nil, err
	}
	return v.occupied(ctx, showtimeID)
}

// SeatMap renders the full availability grid of a showtime
func (v *View) SeatMap(ctx context.Context, showtimeID int64) (*models.SeatMap, error) {
	showtime, err := v.showtime(ctx, showtimeID)
	if err != nil {
		return nil, err
	}
	occupied, err := v.occupied(ctx, showtimeID)
	if err != nil {
		return nil, err
	}

	taken := make(map[models.SeatCoordinate]struct{}, len(occupied))
	for _, seat := range occupied {
		taken[seat] = struct{}{}
	}

	seatMap := &models.SeatMap{
		Showtime:   showtime,
		Rows:       make([]models.SeatMapRow, 0, showtime.Rows),
		Occupied:   occupied,
		TotalSeats: showtime.Capacity(),
	}
	for row := 1; row <= showtime.Rows; row++ {
		mapRow := models.SeatMapRow{
			Row:   row,
			Label: models.RowLabel(row),
			Seats: make([]models.SeatMapCell, 0, showtime.Columns),
		}
		for col := 1; col <= showtime.Columns; col++ {
			seat := models.SeatCoordinate{Row: row, Column: col}
			_, held := taken[seat]
			if !held {
				seatMap.AvailableSeats++
			}
			mapRow.Seats = append(mapRow.Seats, models.SeatMapCell{
				Column:    col,
				Label:     seat.Label(),
				Available: !held,
			})
		}
		seatMap.Rows = append(seatMap.Rows, mapRow)
	}
	return seatMap, nil
}

func (v *View) showtime(ctx context.Context, showtimeID int64) (*models.Showtime, error) {
	showtime, err := v.showtimes.GetShowtime(ctx, showtimeID)
	if err != nil {
		return nil, apperrors.Storage("load showtime", err)
	}
	if showtime == nil {
		return nil, apperrors.ShowtimeNotFound(showtimeID)
	}
	return showtime, nil
}

func (v *View) occupied(ctx context.Context, showtimeID int64) ([]models.SeatCoordinate, error) {
	seats, err := v.seats.OccupiedSeats(ctx, showtimeID, nil)
	if err != nil {
		return nil, apperrors.Storage("load occupied seats", err)
	}
	if seats == nil {
		seats = []models.SeatCoordinate{}
	}
	return seats, nil
}
