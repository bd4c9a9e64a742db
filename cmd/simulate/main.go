// simulate drives concurrent patients against a running API and checks
// afterwards that no slot was booked twice. Run the API with
// BOOK_RATE_PER_MINUTE=0, otherwise most bookings end as 429 errors.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/hackgods/doctor-slot-booking/internal/auth"
	"github.com/hackgods/doctor-slot-booking/internal/logging"
)

type SimConfig struct {
	APIBaseURL   string
	Date         string
	Duration     time.Duration
	Workers      int
	Patients     int
	BookingRatio float64
	JWTSecret    string
	JWTIssuer    string
}

type patient struct {
	Name  string
	Phone string
	Token string
}

type Simulator struct {
	config      SimConfig
	client      *http.Client
	logger      zerolog.Logger
	doctorToken string
	slots       []uuid.UUID
	patients    []patient
	booked      int64
	metrics     Metrics
}

func main() {
	_ = godotenv.Load()

	cfg := loadConfig()
	logger := logging.New(getEnv("APP_ENV", "dev"), getEnv("LOG_LEVEL", "info")).
		With().Str("service", "simulate").Logger()

	if err := validateConfig(cfg); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	logger.Info().
		Str("date", cfg.Date).
		Dur("duration", cfg.Duration).
		Int("workers", cfg.Workers).
		Int("patients", cfg.Patients).
		Float64("booking_ratio", cfg.BookingRatio).
		Msg("simulator starting")

	sim := &Simulator{
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sim.Prepare(ctx); err != nil {
		logger.Fatal().Err(err).Msg("prepare simulation")
	}

	sim.Run()

	if err := sim.Verify(context.Background()); err != nil {
		sim.PrintReport()
		logger.Fatal().Err(err).Msg("verification failed")
	}
	sim.PrintReport()
}

func loadConfig() SimConfig {
	return SimConfig{
		APIBaseURL:   getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Date:         getEnv("SIM_DATE", time.Now().AddDate(0, 0, 1).Format("2006-01-02")),
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 10),
		Patients:     getInt("SIM_PATIENTS", 50),
		BookingRatio: getFloat("SIM_BOOKING_RATIO", 0.6),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		JWTIssuer:    os.Getenv("JWT_ISSUER"),
	}
}

func validateConfig(cfg SimConfig) error {
	if cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required (set in .env or environment)")
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Patients <= 0 {
		return fmt.Errorf("SIM_PATIENTS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	if cfg.BookingRatio < 0 || cfg.BookingRatio > 1 {
		return fmt.Errorf("SIM_BOOKING_RATIO must be within [0, 1]")
	}
	return nil
}

// Prepare mints tokens, opens the day's slots and loads the ones still
// bookable.
func (s *Simulator) Prepare(ctx context.Context) error {
	a := auth.New(s.config.JWTSecret, s.config.JWTIssuer, false)
	ttl := s.config.Duration + time.Hour

	tok, err := a.Issue(auth.Identity{Subject: uuid.NewString(), Roles: []string{auth.RoleDoctor}}, ttl)
	if err != nil {
		return fmt.Errorf("issue doctor token: %w", err)
	}
	s.doctorToken = tok

	for i := 0; i < s.config.Patients; i++ {
		p := patient{Name: gofakeit.Name(), Phone: gofakeit.Phone()}
		p.Token, err = a.Issue(auth.Identity{
			Subject: uuid.NewString(),
			Roles:   []string{auth.RolePatient},
			Name:    p.Name,
			Phone:   p.Phone,
		}, ttl)
		if err != nil {
			return fmt.Errorf("issue patient token: %w", err)
		}
		s.patients = append(s.patients, p)
	}

	var gen struct {
		Count int `json:"count"`
	}
	status, err := s.call(ctx, http.MethodPost, "/doctor/slots/generate", s.doctorToken,
		map[string]string{"date": s.config.Date}, &gen)
	if err != nil {
		return fmt.Errorf("generate slots: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("generate slots: unexpected status %d", status)
	}

	var avail struct {
		Slots []struct {
			ID uuid.UUID `json:"id"`
		} `json:"slots"`
	}
	status, err = s.call(ctx, http.MethodGet, "/slots/available?date="+s.config.Date, "", nil, &avail)
	if err != nil {
		return fmt.Errorf("list available slots: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("list available slots: unexpected status %d", status)
	}
	for _, sl := range avail.Slots {
		s.slots = append(s.slots, sl.ID)
	}
	if len(s.slots) == 0 {
		return fmt.Errorf("no available slots on %s", s.config.Date)
	}

	s.logger.Info().
		Int("generated", gen.Count).
		Int("available", len(s.slots)).
		Msg("data loaded")
	return nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	s.logger.Info().Msg("simulation running")

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.logger.Info().Msg("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for ctx.Err() == nil {
		p := s.patients[rng.Intn(len(s.patients))]
		if rng.Float64() < s.config.BookingRatio {
			s.doBooking(ctx, p, s.slots[rng.Intn(len(s.slots))])
			continue
		}
		if rng.Intn(2) == 0 {
			s.doRead(ctx, &s.metrics.ListAvailable, "/slots/available?date="+s.config.Date, "")
		} else {
			s.doRead(ctx, &s.metrics.ListAppointments, "/patient/appointments", p.Token)
		}
	}
}

// doBooking outlives the run deadline so every committed booking is counted.
func (s *Simulator) doBooking(ctx context.Context, p patient, slotID uuid.UUID) {
	start := time.Now()
	status, err := s.call(context.WithoutCancel(ctx), http.MethodPost, "/slots/"+slotID.String()+"/book", p.Token,
		map[string]string{"name": p.Name}, nil)
	latency := time.Since(start)

	success := err == nil && status == http.StatusCreated
	conflict := err == nil && status == http.StatusConflict
	if success {
		atomic.AddInt64(&s.booked, 1)
	}
	s.metrics.Booking.Record(latency, success, conflict)
}

func (s *Simulator) doRead(ctx context.Context, om *OperationMetrics, path, token string) {
	start := time.Now()
	status, err := s.call(ctx, http.MethodGet, path, token, nil, nil)
	latency := time.Since(start)

	if ctx.Err() != nil {
		return
	}
	om.Record(latency, err == nil && status == http.StatusOK, false)
}

// Verify compares the doctor's view of the day with what the workers saw:
// every booked slot carries exactly one appointment, and the number of
// booked slots equals the number of successful bookings.
func (s *Simulator) Verify(ctx context.Context) error {
	var sched struct {
		Slots []struct {
			ID          uuid.UUID `json:"id"`
			Status      string    `json:"status"`
			Appointment *struct {
				ID uuid.UUID `json:"id"`
			} `json:"appointment"`
		} `json:"slots"`
	}
	status, err := s.call(ctx, http.MethodGet, "/doctor/schedule?date="+s.config.Date, s.doctorToken, nil, &sched)
	if err != nil {
		return fmt.Errorf("load schedule: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("load schedule: unexpected status %d", status)
	}

	tracked := make(map[uuid.UUID]bool, len(s.slots))
	for _, id := range s.slots {
		tracked[id] = true
	}

	bookedSlots := 0
	for _, sl := range sched.Slots {
		if !tracked[sl.ID] {
			continue
		}
		switch {
		case sl.Status == "BOOKED" && sl.Appointment == nil:
			return fmt.Errorf("slot %s is BOOKED without an appointment", sl.ID)
		case sl.Status != "BOOKED" && sl.Appointment != nil:
			return fmt.Errorf("slot %s is %s but has an appointment", sl.ID, sl.Status)
		case sl.Status == "BOOKED":
			bookedSlots++
		}
	}

	successes := atomic.LoadInt64(&s.booked)
	if int64(bookedSlots) != successes {
		return fmt.Errorf("%d slots booked but %d bookings succeeded", bookedSlots, successes)
	}

	s.logger.Info().Int("booked_slots", bookedSlots).Msg("no double bookings")
	return nil
}

// call sends a JSON request and decodes a JSON response into out when
// out is non-nil.
func (s *Simulator) call(ctx context.Context, method, path, token string, body, out any) (int, error) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func (s *Simulator) PrintReport() {
	w := os.Stdout
	fmt.Fprintln(w, "\n"+rule())
	fmt.Fprintln(w, "SIMULATION REPORT")
	fmt.Fprintln(w, rule())
	fmt.Fprintf(w, "Date: %s\n", s.config.Date)
	fmt.Fprintf(w, "Duration: %s\n", s.config.Duration)
	fmt.Fprintf(w, "Workers: %d\n", s.config.Workers)
	fmt.Fprintf(w, "Slots: %d\n", len(s.slots))
	fmt.Fprintf(w, "Booked: %d\n", atomic.LoadInt64(&s.booked))
	fmt.Fprintln(w)

	printOperationReport(w, "Booking", &s.metrics.Booking)
	printOperationReport(w, "List available", &s.metrics.ListAvailable)
	printOperationReport(w, "Patient appointments", &s.metrics.ListAppointments)
}

// Helper functions

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
