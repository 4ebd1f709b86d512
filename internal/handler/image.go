package handler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/daniloarcidiacono/remark42-mongodb/internal/apperror"
	"github.com/daniloarcidiacono/remark42-mongodb/internal/rpc"
	"github.com/daniloarcidiacono/remark42-mongodb/internal/service"
)

// ImageHandler exposes the image.* methods.
type ImageHandler struct {
	images *service.ImageService
}

// NewImageHandler creates the image method handler.
func NewImageHandler(images *service.ImageService) *ImageHandler {
	return &ImageHandler{images: images}
}

// Routes returns the image.* method table.
func (h *ImageHandler) Routes() rpc.Routes {
	return rpc.Routes{
		"image.save_with_id":        h.save,
		"image.load":                h.load,
		"image.commit":              h.commit,
		"image.cleanup":             h.cleanup,
		"image.reset_cleanup_timer": h.resetCleanupTimer,
		"image.info":                h.info,
	}
}

// saveParams is the positional [id, data] pair of image.save_with_id. The
// data element is a base64 string on the wire, which is exactly how
// encoding/json represents []byte.
type saveParams struct {
	ID   string
	Data []byte
}

func (p *saveParams) UnmarshalJSON(b []byte) error {
	var parts [2]json.RawMessage
	if err := json.Unmarshal(b, &parts); err != nil {
		return err
	}
	if err := json.Unmarshal(parts[0], &p.ID); err != nil {
		return err
	}
	return json.Unmarshal(parts[1], &p.Data)
}

// stagingInfo is the result of image.info. The field name is part of the
// wire contract.
type stagingInfo struct {
	FirstStagingImageTS time.Time `json:"FirstStagingImageTS"`
}

func (h *ImageHandler) save(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[saveParams](params)
	if err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, apperror.InvalidRequest("image id is required")
	}
	if err := h.images.Save(ctx, p.ID, p.Data); err != nil {
		return nil, err
	}
	return p.ID, nil
}

func (h *ImageHandler) load(ctx context.Context, params json.RawMessage) (any, error) {
	id, err := decode[string](params)
	if err != nil {
		return nil, err
	}
	return h.images.Load(ctx, id)
}

func (h *ImageHandler) commit(ctx context.Context, params json.RawMessage) (any, error) {
	id, err := decode[string](params)
	if err != nil {
		return nil, err
	}
	return nil, h.images.Commit(ctx, id)
}

func (h *ImageHandler) cleanup(ctx context.Context, params json.RawMessage) (any, error) {
	ttl, err := decode[time.Duration](params)
	if err != nil {
		return nil, err
	}
	return nil, h.images.Cleanup(ctx, ttl)
}

func (h *ImageHandler) resetCleanupTimer(ctx context.Context, params json.RawMessage) (any, error) {
	id, err := decode[string](params)
	if err != nil {
		return nil, err
	}
	return nil, h.images.ResetCleanupTimer(ctx, id)
}

func (h *ImageHandler) info(ctx context.Context, _ json.RawMessage) (any, error) {
	ts, err := h.images.Info(ctx)
	if err != nil {
		return nil, err
	}
	return stagingInfo{FirstStagingImageTS: ts}, nil
}
