// Package mongodb implements the repository interfaces on top of MongoDB.
//
// Entities live in three collections (sites, users, comments) plus GridFS
// buckets for binary objects. Uniqueness is enforced by the database through
// two compound indexes created at startup: comments are unique per
// (locator, cid) and users per (site, uid). The code relies on those indexes
// for duplicate detection instead of read-then-write checks, so concurrent
// creates stay safe without application-level locking.
package mongodb

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/daniloarcidiacono/remark42-mongodb/internal/repository"
)

const (
	sitesCollection    = "remark_sites"
	usersCollection    = "remark_users"
	commentsCollection = "remark_comments"
	imagesBucketName   = "remark_images"
)

// Config holds the MongoDB connection settings.
type Config struct {
	// URI is the MongoDB connection string.
	URI string

	// Database is the database holding all collections and buckets.
	Database string

	// AvatarsBucket is the GridFS bucket name for avatars. Blank disables
	// avatar storage and its garbage collection.
	AvatarsBucket string

	// Clock is used for cleanup cutoffs, block expiries and read-only
	// derivation. Defaults to the real clock when nil.
	Clock repository.Clock
}

// DB wraps a single shared MongoDB client. The driver pools connections
// internally, so one DB value serves all concurrent requests.
type DB struct {
	client  *mongo.Client
	db      *mongo.Database
	avatars string
	clock   repository.Clock
	logger  *slog.Logger
}

var (
	_ repository.Store      = (*DB)(nil)
	_ repository.ImageStore = (*DB)(nil)
)

// New connects to MongoDB and verifies the connection with a ping.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(cfg.URI).SetServerAPIOptions(serverAPI)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb: connecting: %w", err)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = repository.RealClock{}
	}

	db := &DB{
		client:  client,
		db:      client.Database(cfg.Database),
		avatars: cfg.AvatarsBucket,
		clock:   clock,
		logger:  logger,
	}

	if err := db.Ping(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongodb: pinging: %w", err)
	}

	return db, nil
}

// EnsureIndexes creates the compound unique indexes the engine depends on.
// MongoDB does not recreate an index that already exists, so this is safe to
// run on every startup. A failure here is fatal to the process.
func (db *DB) EnsureIndexes(ctx context.Context) error {
	_, err := db.comments().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "locator", Value: 1},
			{Key: "cid", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("mongodb: creating comments index: %w", err)
	}

	_, err = db.users().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "site", Value: 1},
			{Key: "uid", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("mongodb: creating users index: %w", err)
	}

	return nil
}

// Ping issues a liveness probe against the database.
func (db *DB) Ping(ctx context.Context) error {
	var result bson.M
	if err := db.db.RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Decode(&result); err != nil {
		return fmt.Errorf("mongodb: ping failed: %w", err)
	}
	return nil
}

// Close disconnects the underlying client.
func (db *DB) Close(ctx context.Context) error {
	return db.client.Disconnect(ctx)
}

func (db *DB) sites() *mongo.Collection {
	return db.db.Collection(sitesCollection)
}

func (db *DB) users() *mongo.Collection {
	return db.db.Collection(usersCollection)
}

func (db *DB) comments() *mongo.Collection {
	return db.db.Collection(commentsCollection)
}

func (db *DB) imagesBucket() (*gridfs.Bucket, error) {
	return gridfs.NewBucket(db.db, options.GridFSBucket().SetName(imagesBucketName))
}

// imagesFiles is the metadata collection backing the images bucket. Staging
// state and cleanup timers are updated here directly; GridFS has no API for
// mutating file metadata in place.
func (db *DB) imagesFiles() *mongo.Collection {
	return db.db.Collection(imagesBucketName + ".files")
}

func (db *DB) hasAvatars() bool {
	return db.avatars != ""
}

func (db *DB) avatarsBucket() (*gridfs.Bucket, error) {
	return gridfs.NewBucket(db.db, options.GridFSBucket().SetName(db.avatars))
}

func (db *DB) avatarsFiles() *mongo.Collection {
	return db.db.Collection(db.avatars + ".files")
}
