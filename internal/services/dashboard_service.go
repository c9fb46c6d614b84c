package services

import (
	"context"

	"mobilestore/internal/api"
	"mobilestore/internal/domain"
)

// DashboardService is a passthrough: cache figures and clearing belong to
// the backend.
type DashboardService struct {
	API *api.Client
}

func NewDashboardService(client *api.Client) *DashboardService {
	return &DashboardService{API: client}
}

func (s *DashboardService) Stats(ctx context.Context) (domain.DashboardStats, error) {
	return api.Data(s.API.DashboardStats(ctx))
}

// ClearCache clears the backend cache and returns the stats read afterwards.
func (s *DashboardService) ClearCache(ctx context.Context) (domain.DashboardStats, error) {
	if _, err := api.Data(s.API.ClearCache(ctx)); err != nil {
		return domain.DashboardStats{}, err
	}
	return s.Stats(ctx)
}
