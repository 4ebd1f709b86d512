package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/daniloarcidiacono/remark42-mongodb/internal/apperror"
	"github.com/daniloarcidiacono/remark42-mongodb/internal/model"
)

// CreateUser inserts the user record for its site. A user already known to
// the site is left untouched: the unique {site, uid} index rejects the insert
// and the duplicate error is swallowed, which makes the call idempotent.
func (db *DB) CreateUser(ctx context.Context, user model.User) error {
	_, err := db.users().InsertOne(ctx, userToDocument(user))
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("mongodb: creating user %s: %w", user.ID, err)
	}
	return nil
}

// IsUserBlocked reports whether the user's block is still active.
func (db *DB) IsUserBlocked(ctx context.Context, site, userID string) (bool, error) {
	until, err := userField[*time.Time](ctx, db, site, userID, "blocked", nil)
	if err != nil {
		return false, err
	}
	return until != nil && !until.Before(db.clock.Now()), nil
}

// SetUserBlocked sets or clears the blocked-until timestamp.
func (db *DB) SetUserBlocked(ctx context.Context, site, userID string, until *time.Time) error {
	return db.setUserField(ctx, site, userID, "blocked", until)
}

// IsUserVerified returns the verified flag, false for unknown users.
func (db *DB) IsUserVerified(ctx context.Context, site, userID string) (bool, error) {
	return userField(ctx, db, site, userID, "verified", false)
}

// SetUserVerified sets the verified flag.
func (db *DB) SetUserVerified(ctx context.Context, site, userID string, verified bool) error {
	return db.setUserField(ctx, site, userID, "verified", verified)
}

// VerifiedUsers lists the ids of the site's verified users.
func (db *DB) VerifiedUsers(ctx context.Context, site string) ([]string, error) {
	return db.userIDsByFilter(ctx, bson.D{
		{Key: "site", Value: site},
		{Key: "verified", Value: true},
	})
}

// BlockedUsers lists the site's users whose block has not expired yet.
func (db *DB) BlockedUsers(ctx context.Context, site string) ([]model.BlockedUser, error) {
	cursor, err := db.users().Find(ctx, bson.D{
		{Key: "site", Value: site},
		{Key: "blocked", Value: bson.D{{Key: "$gte", Value: db.clock.Now()}}},
	})
	if err != nil {
		return nil, fmt.Errorf("mongodb: listing blocked users of %s: %w", site, err)
	}

	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongodb: decoding blocked users: %w", err)
	}

	blocked := make([]model.BlockedUser, 0, len(docs))
	for _, d := range docs {
		blocked = append(blocked, model.BlockedUser{ID: d.UID, Name: d.Name, Until: *d.Blocked})
	}
	return blocked, nil
}

// UserDetail reads one detail of one user. Absent users and empty values both
// yield an empty result rather than an error.
func (db *DB) UserDetail(ctx context.Context, site, userID string, detail model.UserDetail) ([]model.UserDetailEntry, error) {
	value, err := userField(ctx, db, site, userID, string(detail), "")
	if err != nil {
		return nil, err
	}
	if value == "" {
		return nil, nil
	}
	return []model.UserDetailEntry{detailEntry(userID, detail, value)}, nil
}

// SetUserDetail writes one detail of one user and returns the resulting
// entry.
func (db *DB) SetUserDetail(ctx context.Context, site, userID string, detail model.UserDetail, update string) ([]model.UserDetailEntry, error) {
	if err := db.setUserField(ctx, site, userID, string(detail), update); err != nil {
		return nil, err
	}
	return []model.UserDetailEntry{detailEntry(userID, detail, update)}, nil
}

// DeleteUserDetail clears one detail, or both for AllUserDetails.
func (db *DB) DeleteUserDetail(ctx context.Context, site, userID string, detail model.UserDetail) error {
	set := bson.D{}
	switch detail {
	case model.UserEmail, model.UserTelegram:
		set = append(set, bson.E{Key: string(detail), Value: ""})
	case model.AllUserDetails:
		set = append(set,
			bson.E{Key: string(model.UserEmail), Value: ""},
			bson.E{Key: string(model.UserTelegram), Value: ""},
		)
	default:
		return apperror.InvalidRequest("unsupported detail %q", detail)
	}

	_, err := db.users().UpdateOne(ctx,
		bson.D{{Key: "site", Value: site}, {Key: "uid", Value: userID}},
		bson.D{{Key: "$set", Value: set}},
	)
	if err != nil {
		return fmt.Errorf("mongodb: deleting detail %s of user %s: %w", detail, userID, err)
	}
	return nil
}

// ListUserDetails returns every non-empty detail value across the site's
// users, one entry per user and detail.
func (db *DB) ListUserDetails(ctx context.Context, site string) ([]model.UserDetailEntry, error) {
	cursor, err := db.users().Find(ctx,
		bson.D{
			{Key: "site", Value: site},
			{Key: "$or", Value: bson.A{
				bson.D{{Key: "email", Value: bson.D{{Key: "$nin", Value: bson.A{"", nil}}}}},
				bson.D{{Key: "telegram", Value: bson.D{{Key: "$nin", Value: bson.A{"", nil}}}}},
			}},
		},
		options.Find().SetSort(bson.D{{Key: "uid", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("mongodb: listing user details of %s: %w", site, err)
	}

	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongodb: decoding user details: %w", err)
	}

	var entries []model.UserDetailEntry
	for _, d := range docs {
		if d.Email != "" {
			entries = append(entries, model.UserDetailEntry{UserID: d.UID, Email: d.Email})
		}
		if d.Telegram != "" {
			entries = append(entries, model.UserDetailEntry{UserID: d.UID, Telegram: d.Telegram})
		}
	}
	return entries, nil
}

// DeleteUser scrubs every comment of the user in one bulk update, the
// already scrubbed ones included so hard mode detaches those too, then
// removes the user's details. In hard mode the user record goes away
// entirely; in soft mode only the detail fields are cleared. Each step
// tolerates its target being gone, so a partial failure can be retried.
func (db *DB) DeleteUser(ctx context.Context, site, userID string, mode model.DeleteMode) error {
	_, err := db.comments().UpdateMany(ctx,
		bson.D{
			{Key: "locator.site", Value: site},
			{Key: "user", Value: userID},
		},
		bson.D{{Key: "$set", Value: deleteCommentSet(mode)}},
	)
	if err != nil {
		return fmt.Errorf("mongodb: deleting comments of user %s: %w", userID, err)
	}

	if mode == model.HardDelete {
		_, err := db.users().DeleteOne(ctx, bson.D{
			{Key: "site", Value: site},
			{Key: "uid", Value: userID},
		})
		if err != nil {
			return fmt.Errorf("mongodb: deleting user %s: %w", userID, err)
		}
		return nil
	}
	return db.DeleteUserDetail(ctx, site, userID, model.AllUserDetails)
}

// userIDsByFilter returns the uid of every user matching the filter.
func (db *DB) userIDsByFilter(ctx context.Context, filter bson.D) ([]string, error) {
	cursor, err := db.users().Find(ctx, filter,
		options.Find().SetProjection(bson.D{{Key: "uid", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("mongodb: listing users: %w", err)
	}

	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongodb: decoding user ids: %w", err)
	}

	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.UID)
	}
	return ids, nil
}

// userField reads a single user field through a rename projection, returning
// def when the user does not exist.
func userField[T any](ctx context.Context, db *DB, site, userID, field string, def T) (T, error) {
	var doc struct {
		Field T `bson:"field"`
	}
	err := db.users().FindOne(ctx,
		bson.D{{Key: "site", Value: site}, {Key: "uid", Value: userID}},
		options.FindOne().SetProjection(bson.D{{Key: "field", Value: "$" + field}}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return def, nil
	}
	if err != nil {
		return def, fmt.Errorf("mongodb: reading user field %s: %w", field, err)
	}
	return doc.Field, nil
}

// setUserField writes a single user field. Unknown users are left alone, so
// flags and details only ever attach to records created through CreateUser.
func (db *DB) setUserField(ctx context.Context, site, userID, field string, value any) error {
	_, err := db.users().UpdateOne(ctx,
		bson.D{{Key: "site", Value: site}, {Key: "uid", Value: userID}},
		bson.D{{Key: "$set", Value: bson.D{{Key: field, Value: value}}}},
	)
	if err != nil {
		return fmt.Errorf("mongodb: setting user field %s: %w", field, err)
	}
	return nil
}

func detailEntry(userID string, detail model.UserDetail, value string) model.UserDetailEntry {
	entry := model.UserDetailEntry{UserID: userID}
	switch detail {
	case model.UserEmail:
		entry.Email = value
	case model.UserTelegram:
		entry.Telegram = value
	}
	return entry
}
