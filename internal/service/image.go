package service

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/daniloarcidiacono/remark42-mongodb/internal/repository"
)

// avatarGracePeriod is how long an unreferenced avatar survives before the
// cleanup sweep removes it. Independent of the staged-image ttl, which the
// caller supplies per cleanup request.
const avatarGracePeriod = 4 * time.Hour

// ImageService implements the image.* operations over the staged-image
// lifecycle: save, load, commit, timer reset and garbage collection.
type ImageService struct {
	images repository.ImageStore
	logger *slog.Logger
}

// NewImageService creates the image service.
func NewImageService(images repository.ImageStore, logger *slog.Logger) *ImageService {
	return &ImageService{images: images, logger: logger}
}

// Save stores image bytes under the caller-supplied id in staging state.
func (s *ImageService) Save(ctx context.Context, id string, data []byte) error {
	s.logger.Debug("saving image", "id", id, "size", len(data))
	return s.images.SaveImage(ctx, id, data)
}

// Load returns the image bytes for id.
func (s *ImageService) Load(ctx context.Context, id string) ([]byte, error) {
	return s.images.LoadImage(ctx, id)
}

// Commit makes a staged image permanent.
func (s *ImageService) Commit(ctx context.Context, id string) error {
	return s.images.CommitImage(ctx, id)
}

// ResetCleanupTimer gives a staged image a fresh expiry window.
func (s *ImageService) ResetCleanupTimer(ctx context.Context, id string) error {
	return s.images.ResetCleanupTimer(ctx, id)
}

// Cleanup expires staged images older than ttl and sweeps unreferenced
// avatars past their grace period. The two passes touch disjoint namespaces,
// so they run concurrently.
func (s *ImageService) Cleanup(ctx context.Context, ttl time.Duration) error {
	s.logger.Debug("cleaning up images", "ttl", ttl)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.images.ExpireImages(gctx, ttl) })
	g.Go(func() error { return s.images.CleanupAvatars(gctx, avatarGracePeriod) })
	return g.Wait()
}

// Info returns the earliest cleanup timer among staged images, zero when the
// staging area is empty.
func (s *ImageService) Info(ctx context.Context) (time.Time, error) {
	return s.images.StagingInfo(ctx)
}
