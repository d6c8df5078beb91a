package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"

	"cabo-server/internal/config"
)

const archiveWriteTimeout = 5 * time.Second

type Server struct {
	cfg         *config.Config
	registry    *Registry
	connections *ConnectionManager
	rateLimiter *RateLimiter
	archive     ResultArchive // nil when DATABASE_URL is unset
	startedAt   time.Time

	background context.Context
	stop       context.CancelFunc

	// archiveMu orders recordResult against Shutdown so no write starts
	// after the archive is drained.
	archiveMu sync.Mutex
	archiving sync.WaitGroup
}

// NewServer wires the registry, connection layer and optional archive. archive may be nil.
func NewServer(cfg *config.Config, archive ResultArchive, opts ...RegistryOption) (*Server, *http.Server) {
	background, stop := context.WithCancel(context.Background())

	s := &Server{
		cfg:         cfg,
		connections: NewConnectionManager(),
		rateLimiter: NewRateLimiter(cfg.RateLimitMessages, cfg.RateLimitWindow),
		archive:     archive,
		startedAt:   time.Now(),
		background:  background,
		stop:        stop,
	}
	opts = append(opts, WithFinishFunc(s.recordResult))
	s.registry = NewRegistry(opts...)

	go s.cleanupTask()

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.RegisterRoutes(),
		IdleTimeout:       time.Minute,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, httpServer
}

// recordResult archives a finished round in the background. Rounds ended by
// shutdown disconnects are not archived.
func (s *Server) recordResult(round FinishedRound) {
	if s.archive == nil {
		return
	}

	s.archiveMu.Lock()
	defer s.archiveMu.Unlock()
	if s.background.Err() != nil {
		log.Debug().Str("room", round.GameCode).Msg("Shutting down, round not archived")
		return
	}

	s.archiving.Add(1)
	go func() {
		defer s.archiving.Done()

		ctx, cancel := context.WithTimeout(context.Background(), archiveWriteTimeout)
		defer cancel()

		if err := s.archive.RecordRound(ctx, round); err != nil {
			log.Error().Err(err).Str("room", round.GameCode).Msg("Failed to archive round")
			return
		}
		log.Debug().Str("room", round.GameCode).Msg("Round archived")
	}()
}

// cleanupTask drops rate limiter state for idle connections every minute.
func (s *Server) cleanupTask() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.rateLimiter.Cleanup()
		case <-s.background.Done():
			return
		}
	}
}

// Shutdown tells every connection the server is going away, closes them and
// waits for pending archive writes.
func (s *Server) Shutdown(ctx context.Context) error {
	s.archiveMu.Lock()
	s.stop()
	s.archiveMu.Unlock()

	clients := s.connections.All()
	log.Info().Int("connections", len(clients)).Int("rooms", s.registry.Count()).Msg("Notifying clients of shutdown")

	// Halt everyone first so rooms emptied by these closes broadcast to nobody.
	for _, c := range clients {
		c.Halt()
	}
	for _, c := range clients {
		err := c.writeNow(ctx, NoticeMessage{
			Type:    MsgServerShutdown,
			Message: "Server is shutting down",
		})
		if err != nil {
			log.Debug().Err(err).Str("conn", c.ID()).Msg("Failed to send shutdown notice")
		}
		c.Close(websocket.StatusGoingAway, "server shutting down")
	}

	done := make(chan struct{})
	go func() {
		s.archiving.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("waiting for archive writes: %w", ctx.Err())
	}

	if s.archive != nil {
		s.archive.Close()
	}
	return nil
}
