package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/oneany574/eduflow-calendar-hub/internal/calendar"
)

// App holds the runtime configuration loaded from environment variables.
type App struct {
	Env             string
	HTTPPort        string
	LogLevel        string
	RedisAddr       string
	QueueBackend    string // memory | redis | none
	QueueKey        string
	RateLimitPerMin int
	CORSOrigins     []string // empty allows any origin
	WeekStart       time.Weekday
	Location        *time.Location
	Today           calendar.Date // zero means wall clock
	SeedDemo        bool
	ShutdownTimeout time.Duration
}

// Load returns application config populated from environment variables with sensible defaults.
// A .env file in the working directory is loaded first when present.
func Load() App {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env not loaded: %v", err)
	}

	return App{
		Env:             getEnv("APP_ENV", "dev"),
		HTTPPort:        getEnv("HTTP_PORT", "8081"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		QueueBackend:    getEnv("QUEUE_BACKEND", "memory"),
		QueueKey:        getEnv("QUEUE_KEY", "eduflow:events"),
		RateLimitPerMin: intEnv("RATE_LIMIT_PER_MIN", 120),
		CORSOrigins:     listEnv("CORS_ORIGINS"),
		WeekStart:       weekdayEnv("WEEK_START", time.Monday),
		Location:        locationEnv("TIMEZONE", time.UTC),
		Today:           dateEnv("TODAY"),
		SeedDemo:        boolEnv("SEED_DEMO", false),
		ShutdownTimeout: durationEnv("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// Clock returns the calendar clock: fixed when TODAY is set, wall clock otherwise.
func (a App) Clock() calendar.Clock {
	if !a.Today.IsZero() {
		return calendar.FixedClock(a.Today)
	}
	return calendar.SystemClock{Location: a.Location}
}

// Production reports whether the app runs in a production environment.
func (a App) Production() bool {
	return a.Env == "production" || a.Env == "prod"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			log.Printf("invalid duration for %s: %v, using fallback %s", key, err, fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func boolEnv(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if val == "1" || val == "true" || val == "TRUE" {
			return true
		}
		if val == "0" || val == "false" || val == "FALSE" {
			return false
		}
		log.Printf("invalid bool for %s, using fallback %v", key, fallback)
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
		log.Printf("invalid int for %s, using fallback %d", key, fallback)
	}
	return fallback
}

func weekdayEnv(key string, fallback time.Weekday) time.Weekday {
	if val := os.Getenv(key); val != "" {
		wd, err := calendar.ParseWeekday(val)
		if err != nil {
			log.Printf("invalid weekday for %s, using fallback %s", key, fallback)
			return fallback
		}
		return wd
	}
	return fallback
}

func locationEnv(key string, fallback *time.Location) *time.Location {
	if val := os.Getenv(key); val != "" {
		loc, err := time.LoadLocation(val)
		if err != nil {
			log.Printf("invalid time zone for %s: %v, using fallback %s", key, err, fallback)
			return fallback
		}
		return loc
	}
	return fallback
}

func dateEnv(key string) calendar.Date {
	if val := os.Getenv(key); val != "" {
		d, err := calendar.ParseDate(val)
		if err != nil {
			log.Printf("invalid date for %s, using wall clock", key)
			return calendar.Date{}
		}
		return d
	}
	return calendar.Date{}
}

func listEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
