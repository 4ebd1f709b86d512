// Package model defines the wire-level types of the remark42 storage contract.
// These structs mirror the shapes the comment engine sends and expects over
// JSON-RPC; the stored document shapes live in the repository layer and are
// mapped to and from these types there.
package model

import "time"

// Locator identifies a post as a (site, url) pair. A blank URL denotes a
// site-level operation.
type Locator struct {
	SiteID string `json:"site"`
	URL    string `json:"url"`
}

// Edit tracks a comment modification with a short summary.
type Edit struct {
	Timestamp time.Time `json:"time"`
	Summary   string    `json:"summary"`
}

// VotedIPInfo keeps the timestamp and direction of a vote, keyed by the
// voter's hashed IP in Comment.VotedIPs. The field names are uppercase on the
// wire — they come from the engine as-is.
type VotedIPInfo struct {
	Timestamp time.Time `json:"Timestamp"`
	Value     bool      `json:"Value"`
}

// Comment is a single comment with an optional reference to its parent.
// The reply tree is resolved by the calling engine, not by this backend.
//
// Immutable after creation: ID, ParentID, Locator, User and Timestamp.
// Everything else may change through updates, votes and deletions.
type Comment struct {
	ID          string                 `json:"id"`
	ParentID    string                 `json:"pid"`
	Text        string                 `json:"text"`
	Orig        string                 `json:"orig,omitempty"`
	User        User                   `json:"user"`
	Locator     Locator                `json:"locator"`
	Score       int                    `json:"score"`
	Votes       map[string]bool        `json:"votes,omitempty"`
	VotedIPs    map[string]VotedIPInfo `json:"voted_ips,omitempty"`
	Vote        int                    `json:"vote"`
	Controversy float64                `json:"controversy,omitempty"`
	Timestamp   time.Time              `json:"time"`
	Edit        *Edit                  `json:"edit,omitempty"`
	Pin         bool                   `json:"pin,omitempty"`
	Deleted     bool                   `json:"delete,omitempty"`
	Imported    bool                   `json:"imported,omitempty"`
	PostTitle   string                 `json:"title,omitempty"`
}

// DeletedUserID is written over a comment's owning-user reference on hard
// delete. The user document itself is never removed by comment deletion.
const DeletedUserID = "deleted"

// DeleteMode defines how much of a comment is erased on deletion.
type DeleteMode int

const (
	// SoftDelete clears the comment content but keeps the owning-user link.
	SoftDelete DeleteMode = 0
	// HardDelete clears the content and anonymizes the owning-user link.
	HardDelete DeleteMode = 1
)

// Sort tokens accepted by find requests: an optional +/- prefix followed by a
// field name. "-" sorts descending, "+" or no prefix ascending. "active" is an
// alias for "time"; unknown tokens fall back to ascending time.
const (
	SortFieldTime        = "time"
	SortFieldActive      = "active"
	SortFieldScore       = "score"
	SortFieldControversy = "controversy"
)
