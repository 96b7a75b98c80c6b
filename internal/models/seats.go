package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// SeatCoordinate identifies a physical seat inside a theater grid.
// Rows and columns are 1-based; row 1 is labelled "A".
type SeatCoordinate struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

// Label returns the printed seat label, e.g. "C7"
func (s SeatCoordinate) Label() string {
	if s.Row < 1 || s.Row > MaxTheaterRows {
		return fmt.Sprintf("%d-%d", s.Row, s.Column)
	}
	return fmt.Sprintf("%c%d", rune('A'+s.Row-1), s.Column)
}

func (s SeatCoordinate) String() string {
	return s.Label()
}

// RowLabel returns the letter used for a 1-based row number
func RowLabel(row int) string {
	if row < 1 || row > MaxTheaterRows {
		return strconv.Itoa(row)
	}
	return string(rune('A' + row - 1))
}

// ParseSeat parses a seat written either as a label ("A5") or in the
// "row-column" form posted by the legacy seat picker ("1-5").
func ParseSeat(s string) (SeatCoordinate, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return SeatCoordinate{}, fmt.Errorf("empty seat")
	}

	if row, col, ok := strings.Cut(s, "-"); ok {
		r, err := parseSeatNumber(strings.TrimSpace(row))
		if err != nil {
			return SeatCoordinate{}, fmt.Errorf("invalid seat row in %q", s)
		}
		c, err := parseSeatNumber(strings.TrimSpace(col))
		if err != nil {
			return SeatCoordinate{}, fmt.Errorf("invalid seat column in %q", s)
		}
		return SeatCoordinate{Row: r, Column: c}, nil
	}

	letter := strings.ToUpper(s[:1])[0]
	if letter < 'A' || letter > 'Z' {
		return SeatCoordinate{}, fmt.Errorf("invalid seat label %q", s)
	}
	c, err := parseSeatNumber(s[1:])
	if err != nil {
		return SeatCoordinate{}, fmt.Errorf("invalid seat number in %q", s)
	}
	return SeatCoordinate{Row: int(letter-'A') + 1, Column: c}, nil
}

// parseSeatNumber accepts plain decimal digits only, no sign or spaces
func parseSeatNumber(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty number")
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("invalid digit in %q", s)
		}
	}
	return strconv.Atoi(s)
}

// ParseSeats parses a list of seat strings, failing on the first invalid one
func ParseSeats(values []string) ([]SeatCoordinate, error) {
	seats := make([]SeatCoordinate, 0, len(values))
	for _, v := range values {
		seat, err := ParseSeat(v)
		if err != nil {
			return nil, err
		}
		seats = append(seats, seat)
	}
	return seats, nil
}

// NormalizeSeats removes duplicates and orders seats by row, then column
func NormalizeSeats(seats []SeatCoordinate) []SeatCoordinate {
	seen := make(map[SeatCoordinate]struct{}, len(seats))
	result := make([]SeatCoordinate, 0, len(seats))
	for _, seat := range seats {
		if _, ok := seen[seat]; ok {
			continue
		}
		seen[seat] = struct{}{}
		result = append(result, seat)
	}
	SortSeats(result)
	return result
}

// SortSeats orders seats in place by row, then column
func SortSeats(seats []SeatCoordinate) {
	sort.Slice(seats, func(i, j int) bool {
		if seats[i].Row != seats[j].Row {
			return seats[i].Row < seats[j].Row
		}
		return seats[i].Column < seats[j].Column
	})
}

// SeatLabels returns the labels of the given seats in order
func SeatLabels(seats []SeatCoordinate) []string {
	labels := make([]string, len(seats))
	for i, seat := range seats {
		labels[i] = seat.Label()
	}
	return labels
}

// SeatMapCell is one seat in a rendered seat map
type SeatMapCell struct {
	Column    int    `json:"column"`
	Label     string `json:"label"`
	Available bool   `json:"available"`
}

// SeatMapRow is one row of a rendered seat map
type SeatMapRow struct {
	Row   int           `json:"row"`
	Label string        `json:"label"`
	Seats []SeatMapCell `json:"seats"`
}

// SeatMap is the availability grid of a showtime at the instant it was read
type SeatMap struct {
	Showtime       *Showtime        `json:"showtime"`
	Rows           []SeatMapRow     `json:"rows"`
	Occupied       []SeatCoordinate `json:"occupied"`
	TotalSeats     int              `json:"total_seats"`
	AvailableSeats int              `json:"available_seats"`
}
