package model

import "time"

// Typed parameter structs for the store.* methods. Every method carries one of
// these instead of loosely-typed positional params; the handler layer decodes
// them before any operation runs.

// FindRequest is the input of store.find and store.count. A blank locator URL
// means a site-level operation; a non-blank UserID makes it a per-user find.
type FindRequest struct {
	Locator Locator   `json:"locator"`
	UserID  string    `json:"user_id,omitempty"`
	Sort    string    `json:"sort,omitempty"`
	Since   time.Time `json:"since,omitempty"`
	Limit   int       `json:"limit,omitempty"`
	Skip    int       `json:"skip,omitempty"`
}

// GetRequest is the input of store.get.
type GetRequest struct {
	Locator   Locator `json:"locator"`
	CommentID string  `json:"comment_id"`
}

// InfoRequest is the input of store.info. ReadOnlyAge is expressed in days;
// zero disables the age-based read-only derivation.
type InfoRequest struct {
	Locator     Locator `json:"locator"`
	Limit       int     `json:"limit,omitempty"`
	Skip        int     `json:"skip,omitempty"`
	ReadOnlyAge int     `json:"ro_age,omitempty"`
}

// FlagRequest is the input of store.flag and store.list_flags. Update left at
// FlagNonSet makes it a read. TTL applies to time-bound flags only (blocked
// for a period); it travels as a nanosecond count on the wire.
type FlagRequest struct {
	Flag    Flag          `json:"flag"`
	Locator Locator       `json:"locator"`
	UserID  string        `json:"user_id,omitempty"`
	Update  FlagStatus    `json:"update,omitempty"`
	TTL     time.Duration `json:"ttl,omitempty"`
}

// UserDetailRequest is the input of store.user_detail, both for getting and
// setting a single detail and for listing all details of a site.
type UserDetailRequest struct {
	Detail  UserDetail `json:"detail"`
	Locator Locator    `json:"locator"`
	UserID  string     `json:"user_id,omitempty"`
	Update  string     `json:"update,omitempty"`
}

// DeleteRequest is the input of store.delete. The populated field combination
// selects the target: user detail, single comment, user, or the whole site.
type DeleteRequest struct {
	Locator    Locator    `json:"locator"`
	CommentID  string     `json:"comment_id,omitempty"`
	UserID     string     `json:"user_id,omitempty"`
	UserDetail UserDetail `json:"user_detail,omitempty"`
	DeleteMode DeleteMode `json:"del_mode"`
}
