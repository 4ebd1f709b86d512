// Package handler adapts the rpc envelope to the service layer: each method
// handler decodes the raw params into its typed parameter struct, calls the
// service and returns the result for the router to wrap. No business rules
// live here.
package handler

import (
	"context"
	"encoding/json"

	"github.com/daniloarcidiacono/remark42-mongodb/internal/apperror"
	"github.com/daniloarcidiacono/remark42-mongodb/internal/model"
	"github.com/daniloarcidiacono/remark42-mongodb/internal/rpc"
	"github.com/daniloarcidiacono/remark42-mongodb/internal/service"
)

// StoreHandler exposes the store.* methods.
type StoreHandler struct {
	store *service.StoreService
}

// NewStoreHandler creates the store method handler.
func NewStoreHandler(store *service.StoreService) *StoreHandler {
	return &StoreHandler{store: store}
}

// Routes returns the store.* method table.
func (h *StoreHandler) Routes() rpc.Routes {
	return rpc.Routes{
		"store.create":      h.create,
		"store.find":        h.find,
		"store.get":         h.get,
		"store.update":      h.update,
		"store.delete":      h.delete,
		"store.count":       h.count,
		"store.info":        h.info,
		"store.flag":        h.flag,
		"store.list_flags":  h.listFlags,
		"store.user_detail": h.userDetail,
		"store.close":       h.close,
	}
}

func (h *StoreHandler) create(ctx context.Context, params json.RawMessage) (any, error) {
	comment, err := decode[model.Comment](params)
	if err != nil {
		return nil, err
	}
	return h.store.Create(ctx, comment)
}

func (h *StoreHandler) find(ctx context.Context, params json.RawMessage) (any, error) {
	req, err := decode[model.FindRequest](params)
	if err != nil {
		return nil, err
	}
	return h.store.Find(ctx, req)
}

func (h *StoreHandler) get(ctx context.Context, params json.RawMessage) (any, error) {
	req, err := decode[model.GetRequest](params)
	if err != nil {
		return nil, err
	}
	return h.store.Get(ctx, req)
}

func (h *StoreHandler) update(ctx context.Context, params json.RawMessage) (any, error) {
	comment, err := decode[model.Comment](params)
	if err != nil {
		return nil, err
	}
	if err := h.store.Update(ctx, comment); err != nil {
		return nil, err
	}
	return comment.ID, nil
}

func (h *StoreHandler) delete(ctx context.Context, params json.RawMessage) (any, error) {
	req, err := decode[model.DeleteRequest](params)
	if err != nil {
		return nil, err
	}
	return nil, h.store.Delete(ctx, req)
}

func (h *StoreHandler) count(ctx context.Context, params json.RawMessage) (any, error) {
	req, err := decode[model.FindRequest](params)
	if err != nil {
		return nil, err
	}
	return h.store.Count(ctx, req)
}

func (h *StoreHandler) info(ctx context.Context, params json.RawMessage) (any, error) {
	req, err := decode[model.InfoRequest](params)
	if err != nil {
		return nil, err
	}
	return h.store.Info(ctx, req)
}

func (h *StoreHandler) flag(ctx context.Context, params json.RawMessage) (any, error) {
	req, err := decode[model.FlagRequest](params)
	if err != nil {
		return nil, err
	}
	return h.store.Flag(ctx, req)
}

func (h *StoreHandler) listFlags(ctx context.Context, params json.RawMessage) (any, error) {
	req, err := decode[model.FlagRequest](params)
	if err != nil {
		return nil, err
	}
	return h.store.ListFlags(ctx, req)
}

func (h *StoreHandler) userDetail(ctx context.Context, params json.RawMessage) (any, error) {
	req, err := decode[model.UserDetailRequest](params)
	if err != nil {
		return nil, err
	}
	return h.store.UserDetail(ctx, req)
}

func (h *StoreHandler) close(ctx context.Context, _ json.RawMessage) (any, error) {
	return nil, h.store.Close(ctx)
}

// decode unmarshals method params into their typed struct. A decoding
// failure is an invalid request, reported inside the envelope like every
// other processing error.
func decode[T any](params json.RawMessage) (T, error) {
	var v T
	if len(params) == 0 {
		return v, apperror.InvalidRequest("missing params")
	}
	if err := json.Unmarshal(params, &v); err != nil {
		return v, apperror.InvalidRequest("can't decode params: %v", err)
	}
	return v, nil
}
