package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"cinematime/internal/database"
	"cinematime/internal/models"
)

// ShowtimeRepository is the authoritative showtime catalog
type ShowtimeRepository struct {
	db *database.DB
}

func NewShowtimeRepository(db *database.DB) *ShowtimeRepository {
	return &ShowtimeRepository{db: db}
}

const showtimeSelect = `
	SELECT s.id, s.movie_id, m.title, s.theater_id, t.name,
	       t.seat_rows, t.seat_columns, s.price, s.starts_at
	FROM showtimes s
	JOIN movies m ON m.id = s.movie_id
	JOIN theaters t ON t.id = s.theater_id`

func (r *ShowtimeRepository) GetShowtime(ctx context.Context, showtimeID int64) (*models.Showtime, error) {
	s := &models.Showtime{}
	err := r.db.QueryRowContext(ctx, showtimeSelect+` WHERE s.id = $1`, showtimeID).Scan(
		&s.ID,
		&s.MovieID,
		&s.MovieTitle,
		&s.TheaterID,
		&s.TheaterName,
		&s.Rows,
		&s.Columns,
		&s.Price,
		&s.StartsAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListUpcoming returns showtimes starting at or after from, soonest first
func (r *ShowtimeRepository) ListUpcoming(ctx context.Context, from time.Time, limit int) ([]models.Showtime, error) {
	rows, err := r.db.QueryContext(ctx, showtimeSelect+`
		WHERE s.starts_at >= $1
		ORDER BY s.starts_at, s.id
		LIMIT $2`, from, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var showtimes []models.Showtime
	for rows.Next() {
		var s models.Showtime
		err := rows.Scan(
			&s.ID,
			&s.MovieID,
			&s.MovieTitle,
			&s.TheaterID,
			&s.TheaterName,
			&s.Rows,
			&s.Columns,
			&s.Price,
			&s.StartsAt,
		)
		if err != nil {
			return nil, err
		}
		showtimes = append(showtimes, s)
	}
	return showtimes, rows.Err()
}

func (r *ShowtimeRepository) CreateTheater(ctx context.Context, name string, rows, columns int) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO theaters (name, seat_rows, seat_columns) VALUES ($1, $2, $3) RETURNING id`,
		name, rows, columns).Scan(&id)
	return id, err
}

func (r *ShowtimeRepository) CreateMovie(ctx context.Context, title string, durationMinutes int) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO movies (title, duration_minutes) VALUES ($1, $2) RETURNING id`,
		title, durationMinutes).Scan(&id)
	return id, err
}

func (r *ShowtimeRepository) CreateShowtime(ctx context.Context, movieID, theaterID int64, startsAt time.Time, price decimal.Decimal) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO showtimes (movie_id, theater_id, starts_at, price) VALUES ($1, $2, $3, $4) RETURNING id`,
		movieID, theaterID, startsAt, price).Scan(&id)
	return id, err
}
