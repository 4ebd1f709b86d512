package mongodb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/daniloarcidiacono/remark42-mongodb/internal/apperror"
)

const imageChunkSize = 1 << 20 // 1MiB

// imageMetadata is the GridFS file metadata for uploaded images. Images start
// staged with the cleanup timer set; committing clears the staged flag, and
// the periodic cleanup deletes staged files whose timer has gone stale.
type imageMetadata struct {
	Staging      bool      `bson:"staging"`
	CleanupTimer time.Time `bson:"cleanupTimer"`
	UserID       string    `bson:"userId"`
}

// SaveImage uploads data under id into the staging area. The image id is the
// GridFS filename; the owning user is the id prefix before the first '/'.
func (db *DB) SaveImage(ctx context.Context, id string, data []byte) error {
	bucket, err := db.imagesBucket()
	if err != nil {
		return fmt.Errorf("mongodb: opening images bucket: %w", err)
	}

	_, err = bucket.UploadFromStream(id, bytes.NewReader(data),
		options.GridFSUpload().
			SetChunkSizeBytes(imageChunkSize).
			SetMetadata(imageMetadata{
				Staging:      true,
				CleanupTimer: db.clock.Now(),
				UserID:       imageOwner(id),
			}),
	)
	if err != nil {
		return fmt.Errorf("mongodb: saving image %s: %w", id, err)
	}
	return nil
}

// LoadImage returns the image bytes for id, preferring the committed copy
// over a staged one.
func (db *DB) LoadImage(ctx context.Context, id string) ([]byte, error) {
	fileID, err := db.findImageFile(ctx, id, false)
	if errors.Is(err, mongo.ErrNoDocuments) {
		fileID, err = db.findImageFile(ctx, id, true)
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperror.NotFound("image %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("mongodb: locating image %s: %w", id, err)
	}

	bucket, err := db.imagesBucket()
	if err != nil {
		return nil, fmt.Errorf("mongodb: opening images bucket: %w", err)
	}

	var buf bytes.Buffer
	if _, err := bucket.DownloadToStream(fileID, &buf); err != nil {
		return nil, fmt.Errorf("mongodb: downloading image %s: %w", id, err)
	}
	return buf.Bytes(), nil
}

// CommitImage moves a staged image to permanent storage by clearing its
// staged flag in place.
func (db *DB) CommitImage(ctx context.Context, id string) error {
	res, err := db.imagesFiles().UpdateOne(ctx,
		bson.D{
			{Key: "filename", Value: id},
			{Key: "metadata.staging", Value: true},
		},
		bson.D{{Key: "$set", Value: bson.D{{Key: "metadata.staging", Value: false}}}},
	)
	if err != nil {
		return fmt.Errorf("mongodb: committing image %s: %w", id, err)
	}
	if res.MatchedCount != 1 {
		return apperror.NotFound("failed to commit %s, not found in staging", id)
	}
	return nil
}

// ResetCleanupTimer gives a staged image a fresh expiry window.
func (db *DB) ResetCleanupTimer(ctx context.Context, id string) error {
	res, err := db.imagesFiles().UpdateOne(ctx,
		bson.D{
			{Key: "filename", Value: id},
			{Key: "metadata.staging", Value: true},
		},
		bson.D{{Key: "$set", Value: bson.D{{Key: "metadata.cleanupTimer", Value: db.clock.Now()}}}},
	)
	if err != nil {
		return fmt.Errorf("mongodb: resetting cleanup timer of %s: %w", id, err)
	}
	if res.MatchedCount != 1 {
		return apperror.NotFound("failed to reset cleanup timer %s, not found in staging", id)
	}
	return nil
}

// ExpireImages deletes every staged image whose cleanup timer is older than
// now-ttl.
func (db *DB) ExpireImages(ctx context.Context, ttl time.Duration) error {
	cutoff := db.clock.Now().Add(-ttl)
	return db.deleteImageFiles(ctx, bson.D{
		{Key: "metadata.staging", Value: true},
		{Key: "metadata.cleanupTimer", Value: bson.D{{Key: "$lt", Value: cutoff}}},
	})
}

// CleanupAvatars deletes avatars older than grace that no user's picture
// references anymore. Without a configured avatars bucket this is a no-op.
func (db *DB) CleanupAvatars(ctx context.Context, grace time.Duration) error {
	if !db.hasAvatars() {
		return nil
	}

	referenced, err := db.referencedAvatars(ctx)
	if err != nil {
		return err
	}

	cursor, err := db.avatarsFiles().Find(ctx,
		bson.D{
			{Key: "uploadDate", Value: bson.D{{Key: "$lt", Value: db.clock.Now().Add(-grace)}}},
			{Key: "filename", Value: bson.D{{Key: "$nin", Value: referenced}}},
		},
		options.Find().SetProjection(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return fmt.Errorf("mongodb: listing stale avatars: %w", err)
	}

	ids, err := fileIDs(ctx, cursor)
	if err != nil {
		return err
	}

	bucket, err := db.avatarsBucket()
	if err != nil {
		return fmt.Errorf("mongodb: opening avatars bucket: %w", err)
	}
	for _, id := range ids {
		if err := bucket.Delete(id); err != nil {
			return fmt.Errorf("mongodb: deleting avatar %s: %w", id.Hex(), err)
		}
	}
	return nil
}

// StagingInfo returns the oldest cleanup timer among staged images, zero when
// nothing is staged.
func (db *DB) StagingInfo(ctx context.Context) (time.Time, error) {
	var doc struct {
		Metadata imageMetadata `bson:"metadata"`
	}
	err := db.imagesFiles().FindOne(ctx,
		bson.D{{Key: "metadata.staging", Value: true}},
		options.FindOne().SetSort(bson.D{{Key: "metadata.cleanupTimer", Value: 1}}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("mongodb: reading staging info: %w", err)
	}
	return doc.Metadata.CleanupTimer, nil
}

// DeleteUserImages removes every image, staged or committed, owned by one of
// the given users.
func (db *DB) DeleteUserImages(ctx context.Context, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	return db.deleteImageFiles(ctx, bson.D{
		{Key: "metadata.userId", Value: bson.D{{Key: "$in", Value: userIDs}}},
	})
}

func (db *DB) findImageFile(ctx context.Context, id string, staging bool) (primitive.ObjectID, error) {
	var doc struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	err := db.imagesFiles().FindOne(ctx,
		bson.D{
			{Key: "filename", Value: id},
			{Key: "metadata.staging", Value: staging},
		},
		options.FindOne().SetSort(bson.D{{Key: "uploadDate", Value: -1}}),
	).Decode(&doc)
	return doc.ID, err
}

// deleteImageFiles removes every image matching the files-collection filter,
// chunks included, through the bucket API.
func (db *DB) deleteImageFiles(ctx context.Context, filter bson.D) error {
	cursor, err := db.imagesFiles().Find(ctx, filter,
		options.Find().SetProjection(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return fmt.Errorf("mongodb: listing images: %w", err)
	}

	ids, err := fileIDs(ctx, cursor)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	bucket, err := db.imagesBucket()
	if err != nil {
		return fmt.Errorf("mongodb: opening images bucket: %w", err)
	}
	for _, id := range ids {
		if err := bucket.Delete(id); err != nil {
			return fmt.Errorf("mongodb: deleting image %s: %w", id.Hex(), err)
		}
	}
	return nil
}

// referencedAvatars collects the avatar file names the users collection still
// points at through picture URLs.
func (db *DB) referencedAvatars(ctx context.Context) ([]string, error) {
	cursor, err := db.users().Find(ctx,
		bson.D{{Key: "picture", Value: bson.D{{Key: "$nin", Value: bson.A{"", nil}}}}},
		options.Find().SetProjection(bson.D{{Key: "picture", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("mongodb: listing user pictures: %w", err)
	}

	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongodb: decoding user pictures: %w", err)
	}

	names := make([]string, 0, len(docs))
	seen := map[string]bool{}
	for _, d := range docs {
		if name := extractPictureName(d.Picture); name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names, nil
}

func fileIDs(ctx context.Context, cursor *mongo.Cursor) ([]primitive.ObjectID, error) {
	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongodb: decoding file ids: %w", err)
	}
	ids := make([]primitive.ObjectID, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

// imageOwner extracts the owning user from an image id, the prefix before
// the first '/'.
func imageOwner(id string) string {
	if i := strings.Index(id, "/"); i >= 0 {
		return id[:i]
	}
	return id
}

// extractPictureName maps a picture URL to its avatar file name, the last
// path segment. A value that is already a bare name passes through.
func extractPictureName(picture string) string {
	u, err := url.Parse(picture)
	if err != nil {
		return picture
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return ""
	}
	return name
}
