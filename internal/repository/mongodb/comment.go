package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"github.com/daniloarcidiacono/remark42-mongodb/internal/apperror"
	"github.com/daniloarcidiacono/remark42-mongodb/internal/model"
)

// Result-set caps. Callers asking for more, or for an unbounded listing,
// get the cap instead.
const (
	lastCommentsMax = 1000
	userCommentsMax = 500
)

// CreateComment inserts a comment and returns its id. The unique
// (locator, cid) index turns a duplicate insert into a conflict.
func (db *DB) CreateComment(ctx context.Context, comment model.Comment) (string, error) {
	_, err := db.comments().InsertOne(ctx, commentToDocument(comment))
	if mongo.IsDuplicateKeyError(err) {
		return "", apperror.Conflict("key %s already in store", comment.ID)
	}
	if err != nil {
		return "", fmt.Errorf("mongodb: creating comment %s: %w", comment.ID, err)
	}
	return comment.ID, nil
}

// GetComment loads a single comment with its user resolved.
func (db *DB) GetComment(ctx context.Context, locator model.Locator, commentID string) (model.Comment, error) {
	var doc commentDocument
	err := db.comments().FindOne(ctx, commentFilter(locator, commentID)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Comment{}, apperror.NotFound("comment %s not found", commentID)
	}
	if err != nil {
		return model.Comment{}, fmt.Errorf("mongodb: loading comment %s: %w", commentID, err)
	}

	user, err := db.userByID(ctx, locator.SiteID, doc.User)
	if err != nil {
		return model.Comment{}, err
	}
	return commentFromDocument(doc, user), nil
}

// UpdateComment overwrites the mutable fields of a comment. Identity fields
// (cid, pid, locator, user, time) never change after creation.
func (db *DB) UpdateComment(ctx context.Context, commentID string, locator model.Locator, comment model.Comment) error {
	doc := commentToDocument(comment)
	res, err := db.comments().UpdateOne(ctx,
		commentFilter(locator, commentID),
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "text", Value: doc.Text},
			{Key: "orig", Value: doc.Orig},
			{Key: "score", Value: doc.Score},
			{Key: "controversy", Value: doc.Controversy},
			{Key: "votes", Value: doc.Votes},
			{Key: "voted_ips", Value: doc.VotedIPs},
			{Key: "edit", Value: doc.Edit},
			{Key: "pin", Value: doc.Pin},
			{Key: "delete", Value: doc.Deleted},
			{Key: "imported", Value: doc.Imported},
			{Key: "title", Value: doc.Title},
		}}},
	)
	if err != nil {
		return fmt.Errorf("mongodb: updating comment %s: %w", commentID, err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("comment %s not found", commentID)
	}
	return nil
}

// DeleteComment scrubs a comment in place. The record stays so threading and
// counts remain stable; text, votes and edit history are wiped. Scrubbing an
// already scrubbed comment applies the same update again, so the call is
// idempotent.
func (db *DB) DeleteComment(ctx context.Context, locator model.Locator, commentID string, mode model.DeleteMode) error {
	res, err := db.comments().UpdateOne(ctx, commentFilter(locator, commentID),
		bson.D{{Key: "$set", Value: deleteCommentSet(mode)}})
	if err != nil {
		return fmt.Errorf("mongodb: deleting comment %s: %w", commentID, err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("comment %s not found", commentID)
	}
	return nil
}

// CountPostComments counts a post's comments, deleted ones excluded.
func (db *DB) CountPostComments(ctx context.Context, locator model.Locator) (int, error) {
	return db.countComments(ctx, bson.D{
		{Key: "locator", Value: locatorToDocument(locator)},
		{Key: "delete", Value: false},
	})
}

// CountUserComments counts a user's comments on a site, deleted ones excluded.
func (db *DB) CountUserComments(ctx context.Context, site, userID string) (int, error) {
	return db.countComments(ctx, bson.D{
		{Key: "locator.site", Value: site},
		{Key: "user", Value: userID},
		{Key: "delete", Value: false},
	})
}

// PostComments returns a post's comments, deleted ones included so clients
// can render the thread structure. A non-zero since narrows to newer ones.
func (db *DB) PostComments(ctx context.Context, locator model.Locator, since time.Time, sort string) ([]model.Comment, error) {
	filter := bson.D{{Key: "locator", Value: locatorToDocument(locator)}}
	if !since.IsZero() {
		filter = append(filter, bson.E{Key: "time", Value: bson.D{{Key: "$gt", Value: since}}})
	}
	return db.findComments(ctx, locator.SiteID, filter, options.Find().SetSort(buildSort(sort)))
}

// SiteLastComments returns the newest comments across a site, newest first.
// With a since bound the deleted ones are filtered out as well; the unbounded
// form keeps them, matching the per-post listing.
func (db *DB) SiteLastComments(ctx context.Context, site string, max int, since time.Time) ([]model.Comment, error) {
	if max <= 0 || max > lastCommentsMax {
		max = lastCommentsMax
	}

	filter := bson.D{{Key: "locator.site", Value: site}}
	if !since.IsZero() {
		filter = append(filter,
			bson.E{Key: "time", Value: bson.D{{Key: "$gt", Value: since}}},
			bson.E{Key: "delete", Value: false},
		)
	}

	return db.findComments(ctx, site, filter, options.Find().
		SetSort(bson.D{{Key: "time", Value: -1}}).
		SetLimit(int64(max)))
}

// SiteUserComments returns a user's comments on a site, newest first.
func (db *DB) SiteUserComments(ctx context.Context, site, userID string, limit, skip int) ([]model.Comment, error) {
	if limit <= 0 || limit > userCommentsMax {
		limit = userCommentsMax
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "time", Value: -1}}).
		SetLimit(int64(limit))
	if skip > 0 {
		opts.SetSkip(int64(skip))
	}

	filter := bson.D{
		{Key: "locator.site", Value: site},
		{Key: "user", Value: userID},
		{Key: "delete", Value: false},
	}
	return db.findComments(ctx, site, filter, opts)
}

// PostInfo aggregates a post's comment stats, scrubbed comments included so
// the numbers stay stable across deletions. The read-only field is derived
// from age when roAge is positive: a post whose first comment is older than
// roAge days is read-only regardless of its manual flag. A post without
// comments yields a zero record, still carrying the manual flag.
func (db *DB) PostInfo(ctx context.Context, locator model.Locator, roAge int) (model.PostInfo, error) {
	stats, err := db.postStats(ctx, bson.D{
		{Key: "locator", Value: locatorToDocument(locator)},
	}, "$locator.url", 0, 0)
	if err != nil {
		return model.PostInfo{}, err
	}

	info := model.PostInfo{URL: locator.URL}
	if len(stats) > 0 {
		info = stats[0]
	}
	if roAge > 0 && !info.FirstTS.IsZero() && info.FirstTS.AddDate(0, 0, roAge).Before(db.clock.Now()) {
		info.ReadOnly = true
	} else {
		ro, err := db.IsPostReadOnly(ctx, locator)
		if err != nil {
			return model.PostInfo{}, err
		}
		info.ReadOnly = ro
	}
	return info, nil
}

// SiteInfo aggregates per-post comment stats across the whole site, ordered
// by URL. Scrubbed comments count here too.
func (db *DB) SiteInfo(ctx context.Context, site string, limit, skip int) ([]model.PostInfo, error) {
	return db.postStats(ctx, bson.D{
		{Key: "locator.site", Value: site},
	}, "$locator.url", limit, skip)
}

// DeleteSite removes everything the site owns. The four removals are
// independent, so they run concurrently; any failure aborts the remaining
// work and is reported. Re-running after a partial failure finishes the job,
// each step tolerates its target being gone already.
func (db *DB) DeleteSite(ctx context.Context, site string) error {
	userIDs, err := db.userIDsByFilter(ctx, bson.D{{Key: "site", Value: site}})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := db.sites().DeleteOne(gctx, bson.D{{Key: "_id", Value: site}})
		if err != nil {
			return fmt.Errorf("mongodb: deleting site record %s: %w", site, err)
		}
		return nil
	})
	g.Go(func() error {
		_, err := db.comments().DeleteMany(gctx, bson.D{{Key: "locator.site", Value: site}})
		if err != nil {
			return fmt.Errorf("mongodb: deleting comments of %s: %w", site, err)
		}
		return nil
	})
	g.Go(func() error {
		_, err := db.users().DeleteMany(gctx, bson.D{{Key: "site", Value: site}})
		if err != nil {
			return fmt.Errorf("mongodb: deleting users of %s: %w", site, err)
		}
		return nil
	})
	g.Go(func() error {
		return db.DeleteUserImages(gctx, userIDs)
	})
	return g.Wait()
}

// deleteCommentSet is the $set document that scrubs a comment. Hard mode
// additionally detaches the comment from its author.
func deleteCommentSet(mode model.DeleteMode) bson.D {
	set := bson.D{
		{Key: "text", Value: ""},
		{Key: "orig", Value: ""},
		{Key: "score", Value: 0},
		{Key: "votes", Value: map[string]bool{}},
		{Key: "voted_ips", Value: map[string]votedIPDocument{}},
		{Key: "edit", Value: nil},
		{Key: "delete", Value: true},
		{Key: "pin", Value: false},
	}
	if mode == model.HardDelete {
		set = append(set, bson.E{Key: "user", Value: model.DeletedUserID})
	}
	return set
}

func commentFilter(locator model.Locator, commentID string) bson.D {
	return bson.D{
		{Key: "locator", Value: locatorToDocument(locator)},
		{Key: "cid", Value: commentID},
	}
}

func (db *DB) countComments(ctx context.Context, filter bson.D) (int, error) {
	count, err := db.comments().CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("mongodb: counting comments: %w", err)
	}
	return int(count), nil
}

// findComments runs a comment query and resolves the user of every result in
// one batched lookup.
func (db *DB) findComments(ctx context.Context, site string, filter bson.D, opts *options.FindOptions) ([]model.Comment, error) {
	cursor, err := db.comments().Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb: querying comments: %w", err)
	}

	var docs []commentDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongodb: decoding comments: %w", err)
	}
	return db.mergeCommentsAndUsers(ctx, site, docs)
}

// mergeCommentsAndUsers attaches user records to comment documents. Users
// are fetched once per unique id; a comment whose user record is gone keeps
// the bare user id so moderation tooling can still attribute it.
func (db *DB) mergeCommentsAndUsers(ctx context.Context, site string, docs []commentDocument) ([]model.Comment, error) {
	ids := make([]string, 0, len(docs))
	seen := map[string]bool{}
	for _, d := range docs {
		if !seen[d.User] {
			seen[d.User] = true
			ids = append(ids, d.User)
		}
	}

	users := map[string]model.User{}
	if len(ids) > 0 {
		cursor, err := db.users().Find(ctx, bson.D{
			{Key: "site", Value: site},
			{Key: "uid", Value: bson.D{{Key: "$in", Value: ids}}},
		})
		if err != nil {
			return nil, fmt.Errorf("mongodb: resolving comment users: %w", err)
		}
		var userDocs []userDocument
		if err := cursor.All(ctx, &userDocs); err != nil {
			return nil, fmt.Errorf("mongodb: decoding comment users: %w", err)
		}
		for _, u := range userDocs {
			users[u.UID] = userFromDocument(u)
		}
	}

	comments := make([]model.Comment, 0, len(docs))
	for _, d := range docs {
		user, ok := users[d.User]
		if !ok {
			user = model.User{ID: d.User}
		}
		comments = append(comments, commentFromDocument(d, user))
	}
	return comments, nil
}

func (db *DB) userByID(ctx context.Context, site, userID string) (model.User, error) {
	var doc userDocument
	err := db.users().FindOne(ctx, bson.D{
		{Key: "site", Value: site},
		{Key: "uid", Value: userID},
	}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.User{ID: userID}, nil
	}
	if err != nil {
		return model.User{}, fmt.Errorf("mongodb: loading user %s: %w", userID, err)
	}
	return userFromDocument(doc), nil
}

// postStats groups comments by the given key expression and computes count
// plus first/last timestamps per group. Groups come back ordered by key.
func (db *DB) postStats(ctx context.Context, match bson.D, groupKey string, limit, skip int) ([]model.PostInfo, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: groupKey},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "first", Value: bson.D{{Key: "$min", Value: "$time"}}},
			{Key: "last", Value: bson.D{{Key: "$max", Value: "$time"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
	if skip > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$skip", Value: skip}})
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
	}

	cursor, err := db.comments().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("mongodb: aggregating post stats: %w", err)
	}

	var rows []struct {
		URL   string    `bson:"_id"`
		Count int       `bson:"count"`
		First time.Time `bson:"first"`
		Last  time.Time `bson:"last"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("mongodb: decoding post stats: %w", err)
	}

	infos := make([]model.PostInfo, 0, len(rows))
	for _, r := range rows {
		infos = append(infos, model.PostInfo{
			URL:     r.URL,
			Count:   r.Count,
			FirstTS: r.First,
			LastTS:  r.Last,
		})
	}
	return infos, nil
}

// buildSort translates a sort token into a Mongo sort document. The token is
// an optional +/- direction prefix followed by a field name; score and
// controversy sorts break ties by ascending time, anything unrecognized
// falls back to ascending time.
func buildSort(sort string) bson.D {
	direction := 1
	if strings.HasPrefix(sort, "-") {
		direction = -1
	}
	field := strings.TrimLeft(sort, "+-")

	switch field {
	case model.SortFieldScore:
		return bson.D{{Key: "score", Value: direction}, {Key: "time", Value: 1}}
	case model.SortFieldControversy:
		return bson.D{{Key: "controversy", Value: direction}, {Key: "time", Value: 1}}
	case model.SortFieldTime, model.SortFieldActive:
		return bson.D{{Key: "time", Value: direction}}
	default:
		return bson.D{{Key: "time", Value: 1}}
	}
}
