package handler

import (
	"context"
	"encoding/json"

	"github.com/daniloarcidiacono/remark42-mongodb/internal/model"
	"github.com/daniloarcidiacono/remark42-mongodb/internal/rpc"
	"github.com/daniloarcidiacono/remark42-mongodb/internal/service"
)

// AdminHandler exposes the admin.* methods.
type AdminHandler struct {
	admin *service.AdminService
}

// NewAdminHandler creates the admin method handler.
func NewAdminHandler(admin *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// Routes returns the admin.* method table.
func (h *AdminHandler) Routes() rpc.Routes {
	return rpc.Routes{
		"admin.key":     h.key,
		"admin.admins":  h.admins,
		"admin.email":   h.email,
		"admin.enabled": h.enabled,
		"admin.event":   h.event,
	}
}

// eventParams is the positional [site, eventType] pair of admin.event.
type eventParams struct {
	Site string
	Type model.EventType
}

func (p *eventParams) UnmarshalJSON(b []byte) error {
	var parts [2]json.RawMessage
	if err := json.Unmarshal(b, &parts); err != nil {
		return err
	}
	if err := json.Unmarshal(parts[0], &p.Site); err != nil {
		return err
	}
	return json.Unmarshal(parts[1], &p.Type)
}

func (h *AdminHandler) key(ctx context.Context, params json.RawMessage) (any, error) {
	site, err := decode[string](params)
	if err != nil {
		return nil, err
	}
	return h.admin.Key(ctx, site)
}

func (h *AdminHandler) admins(ctx context.Context, params json.RawMessage) (any, error) {
	site, err := decode[string](params)
	if err != nil {
		return nil, err
	}
	return h.admin.Admins(ctx, site)
}

func (h *AdminHandler) email(ctx context.Context, params json.RawMessage) (any, error) {
	site, err := decode[string](params)
	if err != nil {
		return nil, err
	}
	return h.admin.Email(ctx, site)
}

func (h *AdminHandler) enabled(ctx context.Context, params json.RawMessage) (any, error) {
	site, err := decode[string](params)
	if err != nil {
		return nil, err
	}
	return h.admin.Enabled(ctx, site)
}

func (h *AdminHandler) event(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[eventParams](params)
	if err != nil {
		return nil, err
	}
	return nil, h.admin.OnEvent(ctx, p.Site, p.Type)
}
