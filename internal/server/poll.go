package server

import (
	"context"
	"time"
)

// pollRepo refreshes on every tick and whenever the watcher requests it.
// Refreshes never overlap.
func (s *Server) pollRepo(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	s.logger.Debug("repository polling started", "period", s.cfg.PollInterval)

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("repository polling stopped")
			return
		case <-ticker.C:
			s.pollOnce()
		case <-s.refreshCh:
			s.pollOnce()
		}
	}
}

func (s *Server) pollOnce() {
	// A corrupt or half-written repository must not take the server down.
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic while refreshing repository", "panic", r)
		}
	}()

	if _, err := s.refresh(); err != nil {
		s.logger.Warn("error refreshing commit log", "error", err)
	}
}

// requestRefresh asks the poll loop for an immediate refresh. Requests made
// while one is already pending are merged.
func (s *Server) requestRefresh() {
	select {
	case s.refreshCh <- struct{}{}:
	default:
	}
}
