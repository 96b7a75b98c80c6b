package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"cinematime/internal/config"
	"cinematime/internal/database"
	"cinematime/internal/logger"
	"cinematime/internal/models"
	"cinematime/internal/repository"

	"github.com/shopspring/decimal"
)

var (
	theaterCount = flag.Int("theaters", 3, "Number of theaters to create")
	perTheater   = flag.Int("showtimes", 4, "Showtimes per theater per day")
	days         = flag.Int("days", 3, "Days of schedule to generate starting tomorrow")
	dryRun       = flag.Bool("dry-run", false, "Show what would be generated without making changes")
)

var movieTitles = []string{"The Long Night", "Paper Moons", "Harbor Lights", "Second Reel", "Quiet Engines"}

type theaterPlan struct {
	Name    string
	Rows    int
	Columns int
}

type Seeder struct {
	showtimes *repository.ShowtimeRepository
	rnd       *rand.Rand
}

func main() {
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Starting schedule seeder...")

	seeder := &Seeder{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
	theaters := seeder.planTheaters(*theaterCount)

	if *dryRun {
		for _, t := range theaters {
			slog.Info("[DRY RUN] Would create theater", "name", t.Name, "rows", t.Rows, "columns", t.Columns,
				"showtimes", (*perTheater)*(*days))
		}
		return
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	seeder.showtimes = repository.NewShowtimeRepository(db)

	ctx := context.Background()
	if err := seeder.Seed(ctx, theaters); err != nil {
		slog.Error("Failed to seed schedule", "error", err)
		os.Exit(1)
	}

	upcoming, err := seeder.showtimes.ListUpcoming(ctx, time.Now(), 10)
	if err != nil {
		slog.Error("Failed to list upcoming showtimes", "error", err)
		os.Exit(1)
	}
	for _, s := range upcoming {
		slog.Info("Upcoming showtime", "id", s.ID, "movie", s.MovieTitle, "theater", s.TheaterName,
			"starts_at", s.StartsAt, "price", s.Price.StringFixed(2))
	}

	slog.Info("Schedule seeding completed successfully!")
}

// planTheaters picks a random grid for each theater within the supported limits
func (s *Seeder) planTheaters(n int) []theaterPlan {
	plans := make([]theaterPlan, 0, n)
	for i := 1; i <= n; i++ {
		plans = append(plans, theaterPlan{
			Name:    fmt.Sprintf("Hall %d", i),
			Rows:    s.rnd.Intn(models.MaxTheaterRows-5) + 6,
			Columns: s.rnd.Intn(models.MaxTheaterColumns-7) + 8,
		})
	}
	return plans
}

func (s *Seeder) Seed(ctx context.Context, theaters []theaterPlan) error {
	movieIDs := make([]int64, 0, len(movieTitles))
	for _, title := range movieTitles {
		id, err := s.showtimes.CreateMovie(ctx, title, s.rnd.Intn(60)+90)
		if err != nil {
			return fmt.Errorf("failed to create movie %q: %w", title, err)
		}
		movieIDs = append(movieIDs, id)
	}

	tomorrow := time.Now().Truncate(24 * time.Hour).Add(24 * time.Hour)

	for _, t := range theaters {
		theaterID, err := s.showtimes.CreateTheater(ctx, t.Name, t.Rows, t.Columns)
		if err != nil {
			return fmt.Errorf("failed to create theater %q: %w", t.Name, err)
		}

		created := 0
		for day := 0; day < *days; day++ {
			for slot := 0; slot < *perTheater; slot++ {
				startsAt := tomorrow.Add(time.Duration(day)*24*time.Hour + time.Duration(12+slot*3)*time.Hour)
				movieID := movieIDs[s.rnd.Intn(len(movieIDs))]
				if _, err := s.showtimes.CreateShowtime(ctx, movieID, theaterID, startsAt, s.price(slot)); err != nil {
					return fmt.Errorf("failed to create showtime: %w", err)
				}
				created++
			}
		}
		slog.Info("Seeded theater", "theater_id", theaterID, "name", t.Name, "rows", t.Rows, "columns", t.Columns, "showtimes", created)
	}

	return nil
}

// price makes evening slots more expensive
func (s *Seeder) price(slot int) decimal.Decimal {
	base := int64(150)
	if slot >= 2 {
		return decimal.NewFromInt(base + int64(s.rnd.Intn(100)+100))
	}
	return decimal.NewFromInt(base + int64(s.rnd.Intn(50)))
}
