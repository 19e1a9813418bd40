package service

import (
	"context"
	"fmt"
	"time"

	"github.com/loomhr/auth/internal/auth/domain"
	"github.com/loomhr/auth/internal/auth/store"
	"github.com/loomhr/auth/pkg/geo"
	"github.com/loomhr/auth/pkg/slogx"
)

const (
	// DefaultHistoryLimit caps how many events a history query returns.
	DefaultHistoryLimit = 50

	// DefaultActiveWindow is the trailing window inside which success
	// events count as active sessions.
	DefaultActiveWindow = 24 * time.Hour
)

// AuditService reads the append-only login trail. Active sessions are
// derived from it, not stored: the success events inside a trailing
// window. Location enrichment is display-only and best-effort.
type AuditService struct {
	Store        store.Store
	Geo          geo.Locator
	ActiveWindow time.Duration // defaults to DefaultActiveWindow
}

func (s *AuditService) activeWindow() time.Duration {
	if s.ActiveWindow > 0 {
		return s.ActiveWindow
	}
	return DefaultActiveWindow
}

// History returns the identity's recent login events, newest first.
func (s *AuditService) History(ctx context.Context, identityID string, limit int) ([]domain.LoginEventView, error) {
	if limit <= 0 || limit > DefaultHistoryLimit {
		limit = DefaultHistoryLimit
	}

	events, err := s.Store.LoginEvents().ListByIdentity(ctx, identityID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list login events: %w", err)
	}

	return s.enrich(ctx, events), nil
}

// ActiveSessions derives the identity's active sessions as the success
// events within the trailing window, newest first.
func (s *AuditService) ActiveSessions(ctx context.Context, identityID string) ([]domain.LoginEventView, error) {
	since := time.Now().UTC().Add(-s.activeWindow())

	events, err := s.Store.LoginEvents().ListSuccessesSince(ctx, identityID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list success events: %w", err)
	}

	return s.enrich(ctx, events), nil
}

// enrich annotates events with a coarse location. Lookup failures degrade
// to an empty location, never to an error; location is never an input to
// any access decision.
func (s *AuditService) enrich(ctx context.Context, events []domain.LoginEvent) []domain.LoginEventView {
	log := slogx.FromContext(ctx)

	views := make([]domain.LoginEventView, 0, len(events))
	for _, e := range events {
		view := domain.LoginEventView{LoginEvent: e}
		if s.Geo != nil && e.NetworkAddress != "" {
			loc, err := s.Geo.Lookup(ctx, e.NetworkAddress)
			switch {
			case err != nil:
				log.Debug("geolocation lookup failed", "address", e.NetworkAddress, "error", err)
			case loc != nil:
				view.Location = loc.String()
			}
		}
		views = append(views, view)
	}
	return views
}
