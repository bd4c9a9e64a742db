package main

import (
	"context"
	"errors"
	"flag"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/rs/zerolog"

	"github.com/hackgods/doctor-slot-booking/internal/appointment"
	"github.com/hackgods/doctor-slot-booking/internal/config"
	"github.com/hackgods/doctor-slot-booking/internal/db"
	"github.com/hackgods/doctor-slot-booking/internal/logging"
	redisclient "github.com/hackgods/doctor-slot-booking/internal/redis"
)

func main() {
	days := flag.Int("days", 7, "days of slots to generate, starting today")
	bookRatio := flag.Float64("book", 0.4, "share of generated slots to book with fake patients")
	blockRatio := flag.Float64("block", 0.1, "share of generated slots to block")
	patients := flag.Int("patients", 25, "number of distinct fake patients")
	seed := flag.Int64("seed", 0, "random seed, 0 picks one from the clock")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.Bootstrap()
		bootLog.Fatal().Err(err).Msg("config load error")
	}
	logger := logging.New(cfg.Env, cfg.LogLevel).With().Str("service", "seed").Logger()
	logger.Info().Msg("seed starting")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("migrate")
	}

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	faker := gofakeit.New(uint64(*seed))

	svc := appointment.NewService(appointment.NewPgRepository(pool), redisclient.NoopLocker{}, cfg.Schedule, logger)

	created, err := svc.GenerateUpcoming(ctx, time.Now(), *days)
	if err != nil {
		logger.Fatal().Err(err).Msg("generate slots")
	}
	logger.Info().Int("created", created).Int("days", *days).Msg("slots generated")

	people := fakePatients(faker, *patients)
	if err := fillSchedule(ctx, svc, faker, people, *days, *bookRatio, *blockRatio, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed bookings")
	}

	logger.Info().Msg("seed complete")
}

type patient struct {
	Name  string
	Phone string
}

func fakePatients(faker *gofakeit.Faker, n int) []patient {
	if n < 1 {
		n = 1
	}
	out := make([]patient, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, patient{Name: faker.Name(), Phone: faker.Phone()})
	}
	return out
}

func fillSchedule(ctx context.Context, svc *appointment.Service, faker *gofakeit.Faker, people []patient,
	days int, bookRatio, blockRatio float64, logger zerolog.Logger) error {
	loc := svc.Schedule().Location
	today, _ := appointment.DayBounds(time.Now().In(loc))

	booked, blocked := 0, 0
	for i := 0; i < days; i++ {
		date := today.AddDate(0, 0, i).Format("2006-01-02")

		slots, err := svc.GetAvailableSlots(ctx, date)
		if err != nil {
			return err
		}

		for _, s := range slots {
			roll := faker.Float64Range(0, 1)
			switch {
			case roll < bookRatio:
				p := people[faker.IntRange(0, len(people)-1)]
				_, err := svc.BookSlot(ctx, s.ID, p.Name, p.Phone)
				if errors.Is(err, appointment.ErrSlotUnavailable) {
					continue
				}
				if err != nil {
					return err
				}
				booked++
			case roll < bookRatio+blockRatio:
				if _, err := svc.ToggleSlotStatus(ctx, s.ID); err != nil {
					return err
				}
				blocked++
			}
		}
	}

	logger.Info().Int("booked", booked).Int("blocked", blocked).Int("patients", len(people)).Msg("schedule filled")
	return nil
}
