package health

import (
	"context"
	"time"
)

// Pinger abstracts a dependency liveness check (DB, redis).
type Pinger interface {
	Ping() error
}

// PingerFunc adapts a func to Pinger.
type PingerFunc func() error

func (f PingerFunc) Ping() error {
	return f()
}

// Service aggregates dependency checks for the health endpoint.
type Service struct {
	DB      Pinger
	Redis   Pinger
	Started time.Time
}

// Report is the health endpoint payload.
type Report struct {
	Status        string `json:"status"`
	Database      string `json:"database"`
	Redis         string `json:"redis"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// Check pings each wired dependency. Unwired dependencies report "disabled".
func (s *Service) Check(ctx context.Context) Report {
	r := Report{
		Status:        "ok",
		Database:      "disabled",
		Redis:         "disabled",
		UptimeSeconds: int64(time.Since(s.Started).Seconds()),
	}
	if s.DB != nil {
		r.Database = "up"
		if err := s.DB.Ping(); err != nil {
			r.Database = "down"
			r.Status = "degraded"
		}
	}
	if s.Redis != nil {
		r.Redis = "up"
		if err := s.Redis.Ping(); err != nil {
			r.Redis = "down"
			r.Status = "degraded"
		}
	}
	return r
}
