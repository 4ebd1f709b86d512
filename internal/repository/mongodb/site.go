package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/daniloarcidiacono/remark42-mongodb/internal/apperror"
	"github.com/daniloarcidiacono/remark42-mongodb/internal/model"
)

// SiteExists reports whether data for the site exists.
func (db *DB) SiteExists(ctx context.Context, site string) (bool, error) {
	count, err := db.sites().CountDocuments(ctx,
		bson.D{{Key: "_id", Value: site}},
		options.Count().SetLimit(1),
	)
	if err != nil {
		return false, fmt.Errorf("mongodb: checking site %s: %w", site, err)
	}
	return count > 0, nil
}

// PostExists reports whether the site carries a post entry for the locator URL.
func (db *DB) PostExists(ctx context.Context, locator model.Locator) (bool, error) {
	count, err := db.sites().CountDocuments(ctx,
		bson.D{
			{Key: "_id", Value: locator.SiteID},
			{Key: "posts.url", Value: locator.URL},
		},
		options.Count().SetLimit(1),
	)
	if err != nil {
		return false, fmt.Errorf("mongodb: checking post %s: %w", locator.URL, err)
	}
	return count > 0, nil
}

// IsSiteEnabled returns the site's enabled flag, false for unknown sites.
func (db *DB) IsSiteEnabled(ctx context.Context, site string) (bool, error) {
	return siteField(ctx, db, site, "enabled", false)
}

// SiteKey returns the site's secret key, empty for unknown sites.
func (db *DB) SiteKey(ctx context.Context, site string) (string, error) {
	return siteField(ctx, db, site, "key", "")
}

// SiteAdminEmail returns the administrator email, empty for unknown sites.
func (db *DB) SiteAdminEmail(ctx context.Context, site string) (string, error) {
	return siteField(ctx, db, site, "adminEmail", "")
}

// SiteAdmins lists the ids of the site's admin users.
func (db *DB) SiteAdmins(ctx context.Context, site string) ([]string, error) {
	return db.userIDsByFilter(ctx, bson.D{
		{Key: "site", Value: site},
		{Key: "admin", Value: true},
	})
}

// GetPost resolves a locator in one query: a filter-projection aggregation
// returns the site with its posts narrowed to the matching URL, so the caller
// can distinguish "site missing", "post missing" and "post found".
func (db *DB) GetPost(ctx context.Context, locator model.Locator) (bool, *model.Post, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "_id", Value: locator.SiteID}}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 1},
			{Key: "enabled", Value: 1},
			{Key: "posts", Value: filterPostsByURL(locator.URL)},
		}}},
	}

	cursor, err := db.sites().Aggregate(ctx, pipeline)
	if err != nil {
		return false, nil, fmt.Errorf("mongodb: resolving post %s: %w", locator.URL, err)
	}

	var results []siteDocument
	if err := cursor.All(ctx, &results); err != nil {
		return false, nil, fmt.Errorf("mongodb: decoding post lookup: %w", err)
	}
	if len(results) == 0 {
		return false, nil, nil
	}
	if len(results[0].Posts) == 0 {
		return true, nil, nil
	}

	post := results[0].Posts[0]
	return true, &model.Post{URL: post.URL, ReadOnly: post.ReadOnly}, nil
}

// CreateSite inserts a new site record; the name doubles as the document id,
// so a duplicate insert surfaces as a conflict.
func (db *DB) CreateSite(ctx context.Context, name, key, adminEmail string) error {
	_, err := db.sites().InsertOne(ctx, siteDocument{
		ID:         name,
		Enabled:    true,
		Key:        key,
		AdminEmail: adminEmail,
		Posts:      []postDocument{},
	})
	if mongo.IsDuplicateKeyError(err) {
		return apperror.Conflict("site %s already exists", name)
	}
	if err != nil {
		return fmt.Errorf("mongodb: creating site %s: %w", name, err)
	}
	return nil
}

// ListSites returns all registered sites without their keys or post lists.
func (db *DB) ListSites(ctx context.Context) ([]model.Site, error) {
	cursor, err := db.sites().Find(ctx, bson.D{},
		options.Find().SetProjection(bson.D{
			{Key: "key", Value: 0},
			{Key: "posts", Value: 0},
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("mongodb: listing sites: %w", err)
	}

	var docs []siteDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongodb: decoding sites: %w", err)
	}

	sites := make([]model.Site, 0, len(docs))
	for _, d := range docs {
		sites = append(sites, model.Site{ID: d.ID, Enabled: d.Enabled, AdminEmail: d.AdminEmail})
	}
	return sites, nil
}

// CreatePost appends a post entry to the site's list. The caller must have
// verified the site exists and the post does not.
func (db *DB) CreatePost(ctx context.Context, locator model.Locator, readOnly bool) error {
	_, err := db.sites().UpdateOne(ctx,
		bson.D{{Key: "_id", Value: locator.SiteID}},
		bson.D{{Key: "$push", Value: bson.D{
			{Key: "posts", Value: postDocument{URL: locator.URL, ReadOnly: readOnly}},
		}}},
	)
	if err != nil {
		return fmt.Errorf("mongodb: creating post %s: %w", locator.URL, err)
	}
	return nil
}

// ListPosts returns the post entries of a site, empty for unknown sites.
func (db *DB) ListPosts(ctx context.Context, site string) ([]model.Post, error) {
	var doc siteDocument
	err := db.sites().FindOne(ctx,
		bson.D{{Key: "_id", Value: site}},
		options.FindOne().SetProjection(bson.D{{Key: "posts", Value: 1}}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongodb: listing posts of %s: %w", site, err)
	}

	posts := make([]model.Post, 0, len(doc.Posts))
	for _, p := range doc.Posts {
		posts = append(posts, model.Post{URL: p.URL, ReadOnly: p.ReadOnly})
	}
	return posts, nil
}

// IsPostReadOnly returns the manual read-only flag, false for unknown posts.
func (db *DB) IsPostReadOnly(ctx context.Context, locator model.Locator) (bool, error) {
	return postField(ctx, db, locator, "readOnly", false)
}

// SetPostReadOnly sets the manual read-only flag of a post.
func (db *DB) SetPostReadOnly(ctx context.Context, locator model.Locator, readOnly bool) error {
	return setPostField(ctx, db, locator, "readOnly", readOnly)
}

// filterPostsByURL builds the $filter expression narrowing a site's posts
// array to the entries matching url.
func filterPostsByURL(url string) bson.D {
	return bson.D{{Key: "$filter", Value: bson.D{
		{Key: "input", Value: "$posts"},
		{Key: "as", Value: "post"},
		{Key: "cond", Value: bson.D{
			{Key: "$eq", Value: bson.A{"$$post.url", url}},
		}},
	}}}
}

// siteField reads a single site field through a rename projection, returning
// def when the site does not exist.
func siteField[T any](ctx context.Context, db *DB, site, field string, def T) (T, error) {
	var doc struct {
		Field T `bson:"field"`
	}
	err := db.sites().FindOne(ctx,
		bson.D{{Key: "_id", Value: site}},
		options.FindOne().SetProjection(bson.D{{Key: "field", Value: "$" + field}}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return def, nil
	}
	if err != nil {
		return def, fmt.Errorf("mongodb: reading site field %s: %w", field, err)
	}
	return doc.Field, nil
}

// postField reads a single field of a post sub-record, returning def when the
// site or the post is absent. Posts are embedded in the site document, so the
// lookup is an aggregation: filter the array to the locator URL, take the
// first element and fall back to a synthetic default document.
func postField[T any](ctx context.Context, db *DB, locator model.Locator, field string, def T) (T, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "_id", Value: locator.SiteID}}}},
		{{Key: "$project", Value: bson.D{
			{Key: "posts", Value: bson.D{{Key: "$ifNull", Value: bson.A{
				bson.D{{Key: "$arrayElemAt", Value: bson.A{filterPostsByURL(locator.URL), 0}}},
				bson.D{{Key: field, Value: def}},
			}}}},
		}}},
		{{Key: "$project", Value: bson.D{{Key: "field", Value: "$posts." + field}}}},
	}

	cursor, err := db.sites().Aggregate(ctx, pipeline)
	if err != nil {
		return def, fmt.Errorf("mongodb: reading post field %s: %w", field, err)
	}

	var results []struct {
		Field T `bson:"field"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return def, fmt.Errorf("mongodb: decoding post field %s: %w", field, err)
	}
	if len(results) == 0 {
		return def, nil
	}
	return results[0].Field, nil
}

// setPostField writes a single field of a post sub-record, matching the array
// element by URL. Unknown sites and posts are a silent no-op, same as the
// corresponding reads defaulting.
func setPostField[T any](ctx context.Context, db *DB, locator model.Locator, field string, value T) error {
	_, err := db.sites().UpdateOne(ctx,
		bson.D{{Key: "_id", Value: locator.SiteID}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "posts.$[elem]." + field, Value: value},
		}}},
		options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: []interface{}{bson.D{{Key: "elem.url", Value: locator.URL}}},
		}),
	)
	if err != nil {
		return fmt.Errorf("mongodb: setting post field %s: %w", field, err)
	}
	return nil
}
