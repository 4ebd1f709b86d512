package service

import (
	"context"
	"log/slog"

	"github.com/daniloarcidiacono/remark42-mongodb/internal/model"
	"github.com/daniloarcidiacono/remark42-mongodb/internal/repository"
)

// AdminService implements the admin.* operations: per-site administrative
// reads plus the event notification sink.
type AdminService struct {
	store  repository.Store
	logger *slog.Logger
}

// NewAdminService creates the admin service.
func NewAdminService(store repository.Store, logger *slog.Logger) *AdminService {
	return &AdminService{store: store, logger: logger}
}

// Key returns the site's secret key, empty for unknown sites.
func (s *AdminService) Key(ctx context.Context, site string) (string, error) {
	return s.store.SiteKey(ctx, site)
}

// Admins returns the ids of the site's admin users.
func (s *AdminService) Admins(ctx context.Context, site string) ([]string, error) {
	return s.store.SiteAdmins(ctx, site)
}

// Email returns the site's administrator email, empty for unknown sites.
func (s *AdminService) Email(ctx context.Context, site string) (string, error) {
	return s.store.SiteAdminEmail(ctx, site)
}

// Enabled reports whether the site accepts new activity.
func (s *AdminService) Enabled(ctx context.Context, site string) (bool, error) {
	return s.store.IsSiteEnabled(ctx, site)
}

// OnEvent receives engine change notifications. Nothing reacts to them here;
// the event is acknowledged so the caller's notification path stays healthy.
func (s *AdminService) OnEvent(ctx context.Context, site string, ev model.EventType) error {
	s.logger.Debug("event received", "site", site, "type", int(ev))
	return nil
}
