package handlers

import (
	"time"

	"media-review/internal/memory"
	"media-review/internal/session"
	"media-review/internal/thumbnail"
)

// defaultCommandTimeout bounds how long a request waits for the player
// loop to run its command.
const defaultCommandTimeout = 2 * time.Second

// Handlers serves the review API over one session and one thumbnail system.
type Handlers struct {
	session        *session.Session
	thumbs         *thumbnail.System
	memory         *memory.Monitor
	started        time.Time
	commandTimeout time.Duration
}

func New(s *session.Session, thumbs *thumbnail.System) *Handlers {
	return &Handlers{
		session:        s,
		thumbs:         thumbs,
		started:        time.Now(),
		commandTimeout: defaultCommandTimeout,
	}
}

// SetMemoryMonitor reports m's heap samples on the health endpoint.
func (h *Handlers) SetMemoryMonitor(m *memory.Monitor) {
	h.memory = m
}
