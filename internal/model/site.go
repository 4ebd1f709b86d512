package model

import "time"

// Site is a registered tenant: one remark42 site with its secret key and the
// list of posts that accumulated comments. Posts are embedded in the site
// record; the post list holds at most one entry per URL.
type Site struct {
	ID         string `json:"id"`
	Enabled    bool   `json:"enabled"`
	AdminEmail string `json:"admin_email"`
}

// Post is a single post entry of a site.
type Post struct {
	URL      string `json:"url"`
	ReadOnly bool   `json:"read_only"`
}

// PostInfo is a per-post summary: number of comments and the time range they
// span. First/Last timestamps are zero for posts without comments.
type PostInfo struct {
	URL      string    `json:"url"`
	Count    int       `json:"count"`
	ReadOnly bool      `json:"read_only,omitempty"`
	FirstTS  time.Time `json:"first_time,omitempty"`
	LastTS   time.Time `json:"last_time,omitempty"`
}

// EventType indicates the kind of change the engine notifies through
// admin.event.
type EventType int

const (
	EvCreate EventType = 0
	EvDelete EventType = 1
	EvUpdate EventType = 2
	EvVote   EventType = 3
)
