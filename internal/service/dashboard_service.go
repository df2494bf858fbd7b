package service

import (
	"context"

	"github.com/iliyamo/event-ticketing/internal/apperr"
	"github.com/iliyamo/event-ticketing/internal/model"
)

// DefaultRecentEvents is the number of events shown on the dashboard.
const DefaultRecentEvents = 5

// DashboardService answers the read-only dashboard queries.
type DashboardService struct {
	events       EventStore
	certificates CertificateStore
}

func NewDashboardService(events EventStore, certs CertificateStore) *DashboardService {
	return &DashboardService{events: events, certificates: certs}
}

func (s *DashboardService) Stats(ctx context.Context) (model.DashboardStats, error) {
	st, err := s.events.Stats(ctx)
	if err != nil {
		return model.DashboardStats{}, apperr.Storage("dashboard stats", err)
	}
	return st, nil
}

// RecentEvents returns the newest events; limit <= 0 uses DefaultRecentEvents.
func (s *DashboardService) RecentEvents(ctx context.Context, limit int) ([]*model.EventSummary, error) {
	if limit <= 0 {
		limit = DefaultRecentEvents
	}
	list, err := s.events.List(ctx, limit)
	if err != nil {
		return nil, apperr.Storage("recent events", err)
	}
	return list, nil
}

func (s *DashboardService) Certificates(ctx context.Context) ([]*model.CertificateDetail, error) {
	list, err := s.certificates.List(ctx)
	if err != nil {
		return nil, apperr.Storage("list certificates", err)
	}
	return list, nil
}
