// Package service contains the business rules layered over the repository:
// request validation, dispatch of the polymorphic find/count/delete requests,
// dynamic post creation and flag semantics. Services program against the
// repository interfaces, so tests substitute in-memory fakes.
package service

import (
	"context"
	"log/slog"

	"github.com/daniloarcidiacono/remark42-mongodb/internal/apperror"
	"github.com/daniloarcidiacono/remark42-mongodb/internal/model"
	"github.com/daniloarcidiacono/remark42-mongodb/internal/repository"
)

// permanentBlockYears is the effective "forever" horizon for blocks issued
// without a ttl.
const permanentBlockYears = 100

// StoreService implements the store.* operations.
type StoreService struct {
	store        repository.Store
	dynamicPosts bool
	clock        repository.Clock
	logger       *slog.Logger
}

// NewStoreService creates the store service. With dynamicPosts enabled,
// commenting on an unknown post registers the post on the fly instead of
// failing.
func NewStoreService(store repository.Store, dynamicPosts bool, clock repository.Clock, logger *slog.Logger) *StoreService {
	return &StoreService{
		store:        store,
		dynamicPosts: dynamicPosts,
		clock:        clock,
		logger:       logger,
	}
}

// Create stores a new comment after resolving its site and post. The author's
// user record is registered along the way; registering an already known user
// is a no-op, while a duplicate comment id is a conflict.
func (s *StoreService) Create(ctx context.Context, comment model.Comment) (string, error) {
	if comment.ID == "" {
		return "", apperror.InvalidRequest("comment id is required")
	}

	siteFound, post, err := s.store.GetPost(ctx, comment.Locator)
	if err != nil {
		return "", err
	}
	if !siteFound {
		return "", apperror.NotFound("site %s not found", comment.Locator.SiteID)
	}

	switch {
	case post == nil && !s.dynamicPosts:
		return "", apperror.Precondition("post %s not found", comment.Locator.URL)
	case post == nil:
		s.logger.Info("registering post on first comment",
			"site", comment.Locator.SiteID, "url", comment.Locator.URL)
		if err := s.store.CreatePost(ctx, comment.Locator, false); err != nil {
			return "", err
		}
	case post.ReadOnly:
		return "", apperror.Precondition("post %s is read-only", comment.Locator.URL)
	}

	user := comment.User
	user.SiteID = comment.Locator.SiteID
	if err := s.store.CreateUser(ctx, user); err != nil {
		return "", err
	}

	return s.store.CreateComment(ctx, comment)
}

// Get loads a single comment.
func (s *StoreService) Get(ctx context.Context, req model.GetRequest) (model.Comment, error) {
	return s.store.GetComment(ctx, req.Locator, req.CommentID)
}

// Update rewrites a comment's mutable fields.
func (s *StoreService) Update(ctx context.Context, comment model.Comment) error {
	return s.store.UpdateComment(ctx, comment.ID, comment.Locator, comment)
}

// Find dispatches a listing request on its populated fields: a locator URL
// means one post's comments, a bare site means the site-wide latest, a user
// id means the user's comments across the site. The URL wins when both it
// and the user id are set.
func (s *StoreService) Find(ctx context.Context, req model.FindRequest) ([]model.Comment, error) {
	exists, err := s.store.SiteExists(ctx, req.Locator.SiteID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperror.NotFound("site %s not found", req.Locator.SiteID)
	}

	switch {
	case req.Locator.URL != "":
		return s.store.PostComments(ctx, req.Locator, req.Since, req.Sort)
	case req.UserID == "":
		return s.store.SiteLastComments(ctx, req.Locator.SiteID, req.Limit, req.Since)
	default:
		return s.store.SiteUserComments(ctx, req.Locator.SiteID, req.UserID, req.Limit, req.Skip)
	}
}

// Count dispatches a counting request with the same precedence as Find,
// except that a bare site is not countable and an unknown site counts as
// zero.
func (s *StoreService) Count(ctx context.Context, req model.FindRequest) (int, error) {
	exists, err := s.store.SiteExists(ctx, req.Locator.SiteID)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}

	switch {
	case req.Locator.URL != "":
		return s.store.CountPostComments(ctx, req.Locator)
	case req.UserID != "":
		return s.store.CountUserComments(ctx, req.Locator.SiteID, req.UserID)
	default:
		return 0, apperror.InvalidRequest("invalid count request: no user id or post url")
	}
}

// Delete dispatches a deletion request on its populated fields: user detail,
// single comment, user, or the whole site, in that order of precedence.
func (s *StoreService) Delete(ctx context.Context, req model.DeleteRequest) error {
	switch {
	case req.UserDetail != "":
		if req.UserID == "" {
			return apperror.InvalidRequest("user id is required to delete details")
		}
		return s.store.DeleteUserDetail(ctx, req.Locator.SiteID, req.UserID, req.UserDetail)
	case req.CommentID != "":
		return s.store.DeleteComment(ctx, req.Locator, req.CommentID, req.DeleteMode)
	case req.UserID != "":
		return s.store.DeleteUser(ctx, req.Locator.SiteID, req.UserID, req.DeleteMode)
	case req.Locator.SiteID != "" && req.Locator.URL == "":
		return s.store.DeleteSite(ctx, req.Locator.SiteID)
	default:
		return apperror.InvalidRequest("invalid delete request")
	}
}

// Flag reads or writes one boolean flag. A FlagNonSet update is a read; a
// write returns the value just written. Blocking computes the expiry from the
// request ttl, falling back to an effectively permanent horizon.
func (s *StoreService) Flag(ctx context.Context, req model.FlagRequest) (bool, error) {
	if req.Update == model.FlagNonSet {
		return s.readFlag(ctx, req)
	}

	status := req.Update == model.FlagTrue
	switch req.Flag {
	case model.FlagReadOnly:
		return status, s.store.SetPostReadOnly(ctx, req.Locator, status)
	case model.FlagVerified:
		return status, s.store.SetUserVerified(ctx, req.Locator.SiteID, req.UserID, status)
	case model.FlagBlocked:
		if !status {
			return false, s.store.SetUserBlocked(ctx, req.Locator.SiteID, req.UserID, nil)
		}
		until := s.clock.Now().AddDate(permanentBlockYears, 0, 0)
		if req.TTL > 0 {
			until = s.clock.Now().Add(req.TTL)
		}
		return true, s.store.SetUserBlocked(ctx, req.Locator.SiteID, req.UserID, &until)
	default:
		return false, apperror.InvalidRequest("unsupported flag %q", req.Flag)
	}
}

func (s *StoreService) readFlag(ctx context.Context, req model.FlagRequest) (bool, error) {
	switch req.Flag {
	case model.FlagReadOnly:
		return s.store.IsPostReadOnly(ctx, req.Locator)
	case model.FlagVerified:
		return s.store.IsUserVerified(ctx, req.Locator.SiteID, req.UserID)
	case model.FlagBlocked:
		return s.store.IsUserBlocked(ctx, req.Locator.SiteID, req.UserID)
	default:
		return false, apperror.InvalidRequest("unsupported flag %q", req.Flag)
	}
}

// ListFlags enumerates the users carrying a flag: blocked users with their
// expiry, verified users as bare ids. The read-only flag is per post and has
// no site-wide listing.
func (s *StoreService) ListFlags(ctx context.Context, req model.FlagRequest) (any, error) {
	switch req.Flag {
	case model.FlagBlocked:
		return s.store.BlockedUsers(ctx, req.Locator.SiteID)
	case model.FlagVerified:
		return s.store.VerifiedUsers(ctx, req.Locator.SiteID)
	default:
		return nil, apperror.InvalidRequest("flag %q not listable", req.Flag)
	}
}

// UserDetail reads, writes or lists secondary contact details. An update on
// the pseudo-detail "all" is rejected; reading "all" without a user id lists
// the whole site.
func (s *StoreService) UserDetail(ctx context.Context, req model.UserDetailRequest) ([]model.UserDetailEntry, error) {
	if req.Update != "" {
		if req.Detail == model.AllUserDetails {
			return nil, apperror.InvalidRequest("unsupported request: update of all details")
		}
		if req.UserID == "" {
			return nil, apperror.InvalidRequest("user id is required to set details")
		}
		return s.store.SetUserDetail(ctx, req.Locator.SiteID, req.UserID, req.Detail, req.Update)
	}

	switch req.Detail {
	case model.UserEmail, model.UserTelegram:
		if req.UserID == "" {
			return nil, apperror.InvalidRequest("user id is required to get details")
		}
		return s.store.UserDetail(ctx, req.Locator.SiteID, req.UserID, req.Detail)
	case model.AllUserDetails:
		return s.store.ListUserDetails(ctx, req.Locator.SiteID)
	default:
		return nil, apperror.InvalidRequest("unsupported detail %q", req.Detail)
	}
}

// Info returns post summaries: one for the locator's post when a URL is set,
// otherwise one per commented post of the site.
func (s *StoreService) Info(ctx context.Context, req model.InfoRequest) (any, error) {
	if req.Locator.URL != "" {
		return s.store.PostInfo(ctx, req.Locator, req.ReadOnlyAge)
	}
	return s.store.SiteInfo(ctx, req.Locator.SiteID, req.Limit, req.Skip)
}

// Close exists to satisfy the wire contract; the store connection is owned
// by the server and closed on shutdown, not per request.
func (s *StoreService) Close(ctx context.Context) error {
	return nil
}
