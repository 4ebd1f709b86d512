package model

import "time"

// User holds the user-related info the engine attaches to comments.
// Blocked here is the resolved boolean view; the stored representation is a
// blocked-until timestamp kept by the repository layer.
type User struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Picture           string `json:"picture"`
	IP                string `json:"ip,omitempty"`
	Admin             bool   `json:"admin"`
	Blocked           bool   `json:"block,omitempty"`
	Verified          bool   `json:"verified,omitempty"`
	EmailSubscription bool   `json:"email_subscription,omitempty"`
	PaidSub           bool   `json:"paid_sub,omitempty"`
	SiteID            string `json:"site_id,omitempty"`
}

// BlockedUser is a single entry of the blocked-users listing; Until is the
// instant the block expires.
type BlockedUser struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Until time.Time `json:"time"`
}

// Flag is a named boolean attribute on a post or user with get/set semantics.
type Flag string

const (
	FlagReadOnly Flag = "readonly"
	FlagVerified Flag = "verified"
	FlagBlocked  Flag = "blocked"
)

// FlagStatus selects between reading and writing a flag in a flag request.
type FlagStatus int

const (
	FlagNonSet FlagStatus = 0
	FlagTrue   FlagStatus = 1
	FlagFalse  FlagStatus = -1
)

// UserDetail names a secondary contact channel stored per user.
type UserDetail string

const (
	UserEmail    UserDetail = "email"
	UserTelegram UserDetail = "telegram"

	// AllUserDetails is used for listing and deletion requests only.
	AllUserDetails UserDetail = "all"
)

// UserDetailEntry is one detail value for one user. The user id is duplicated
// so the struct works both embedded and standalone in listings.
type UserDetailEntry struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email,omitempty"`
	Telegram string `json:"telegram,omitempty"`
}
