// Package repository declares the storage interfaces the service layer
// programs against. The MongoDB implementation lives in repository/mongodb;
// tests substitute in-memory fakes.
package repository

import (
	"context"
	"time"

	"github.com/daniloarcidiacono/remark42-mongodb/internal/model"
)

// Store is the query/mutation engine over the three entity collections
// (sites, users, comments).
//
// Probe-style reads (SiteExists, SiteKey, IsPostReadOnly, ...) return a
// type-appropriate zero value when the target is absent; they never fail on
// "not found". Only GetComment treats absence as an error, because the wire
// contract has no default for it.
type Store interface {
	// Sites and posts.
	SiteExists(ctx context.Context, site string) (bool, error)
	PostExists(ctx context.Context, locator model.Locator) (bool, error)
	IsSiteEnabled(ctx context.Context, site string) (bool, error)
	SiteKey(ctx context.Context, site string) (string, error)
	SiteAdminEmail(ctx context.Context, site string) (string, error)
	SiteAdmins(ctx context.Context, site string) ([]string, error)

	// GetPost resolves a locator: whether the site exists and, when it does,
	// the post entry matching the locator URL (nil when the post is unknown).
	GetPost(ctx context.Context, locator model.Locator) (siteFound bool, post *model.Post, err error)

	// CreateSite inserts a new site; a duplicate name is a conflict.
	CreateSite(ctx context.Context, name, key, adminEmail string) error
	ListSites(ctx context.Context) ([]model.Site, error)

	// CreatePost appends a post entry to the site's list. The caller must
	// have verified that the site exists and the post does not; no dedup
	// happens at this level.
	CreatePost(ctx context.Context, locator model.Locator, readOnly bool) error
	ListPosts(ctx context.Context, site string) ([]model.Post, error)

	// Users.
	CreateUser(ctx context.Context, user model.User) error // insert-if-absent, duplicates swallowed
	IsUserBlocked(ctx context.Context, site, userID string) (bool, error)
	SetUserBlocked(ctx context.Context, site, userID string, until *time.Time) error
	IsUserVerified(ctx context.Context, site, userID string) (bool, error)
	SetUserVerified(ctx context.Context, site, userID string, verified bool) error
	VerifiedUsers(ctx context.Context, site string) ([]string, error)
	BlockedUsers(ctx context.Context, site string) ([]model.BlockedUser, error)
	UserDetail(ctx context.Context, site, userID string, detail model.UserDetail) ([]model.UserDetailEntry, error)
	SetUserDetail(ctx context.Context, site, userID string, detail model.UserDetail, update string) ([]model.UserDetailEntry, error)
	DeleteUserDetail(ctx context.Context, site, userID string, detail model.UserDetail) error
	ListUserDetails(ctx context.Context, site string) ([]model.UserDetailEntry, error)
	DeleteUser(ctx context.Context, site, userID string, mode model.DeleteMode) error

	// Comments.
	CreateComment(ctx context.Context, comment model.Comment) (string, error)
	GetComment(ctx context.Context, locator model.Locator, commentID string) (model.Comment, error)
	UpdateComment(ctx context.Context, commentID string, locator model.Locator, comment model.Comment) error
	DeleteComment(ctx context.Context, locator model.Locator, commentID string, mode model.DeleteMode) error
	CountPostComments(ctx context.Context, locator model.Locator) (int, error)
	CountUserComments(ctx context.Context, site, userID string) (int, error)
	PostComments(ctx context.Context, locator model.Locator, since time.Time, sort string) ([]model.Comment, error)
	SiteLastComments(ctx context.Context, site string, max int, since time.Time) ([]model.Comment, error)
	SiteUserComments(ctx context.Context, site, userID string, limit, skip int) ([]model.Comment, error)
	PostInfo(ctx context.Context, locator model.Locator, roAge int) (model.PostInfo, error)
	SiteInfo(ctx context.Context, site string, limit, skip int) ([]model.PostInfo, error)
	IsPostReadOnly(ctx context.Context, locator model.Locator) (bool, error)
	SetPostReadOnly(ctx context.Context, locator model.Locator, readOnly bool) error

	// DeleteSite removes the site record, its comments, its users and the
	// images owned by those users. The steps are independent; a partial
	// failure is reported, never swallowed.
	DeleteSite(ctx context.Context, site string) error
}

// ImageStore manages the binary objects: staged uploads with their cleanup
// timers plus the optional avatar namespace.
type ImageStore interface {
	// SaveImage stores data under id in staging state with the cleanup timer
	// set to now. The owner is the id prefix before the first '/'.
	SaveImage(ctx context.Context, id string, data []byte) error

	// LoadImage returns the committed copy for id when one exists, falling
	// back to the staged copy; no copy at all is a not-found error.
	LoadImage(ctx context.Context, id string) ([]byte, error)

	// CommitImage flips exactly one staged object to committed; matching
	// nothing is an error.
	CommitImage(ctx context.Context, id string) error

	// ResetCleanupTimer refreshes the cleanup timer of a staged object;
	// a committed or absent target is an error.
	ResetCleanupTimer(ctx context.Context, id string) error

	// ExpireImages deletes every staged object whose cleanup timer is older
	// than now-ttl.
	ExpireImages(ctx context.Context, ttl time.Duration) error

	// CleanupAvatars deletes avatars uploaded more than grace ago that no
	// user's picture field references. No-op without an avatar namespace.
	CleanupAvatars(ctx context.Context, grace time.Duration) error

	// StagingInfo returns the earliest cleanup timer among staged objects,
	// or the zero time when nothing is staged.
	StagingInfo(ctx context.Context) (time.Time, error)

	// DeleteUserImages removes every object, staged or committed, owned by
	// one of the given users.
	DeleteUserImages(ctx context.Context, userIDs []string) error
}

// Clock abstracts time retrieval so block expiries, read-only derivation and
// cleanup cutoffs are deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }
