package mongodb

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/daniloarcidiacono/remark42-mongodb/internal/model"
)

// Stored document shapes. The wire-level types in internal/model never reach
// the database directly: comments embed their full user on the wire but store
// only the user id, and users store a blocked-until timestamp plus the detail
// fields (email, telegram) that the wire user does not carry.

type siteDocument struct {
	ID         string         `bson:"_id"`
	Enabled    bool           `bson:"enabled"`
	Key        string         `bson:"key"`
	AdminEmail string         `bson:"adminEmail"`
	Posts      []postDocument `bson:"posts"`
}

type postDocument struct {
	URL      string `bson:"url"`
	ReadOnly bool   `bson:"readOnly"`
}

type userDocument struct {
	ID                primitive.ObjectID `bson:"_id,omitempty"`
	UID               string             `bson:"uid"`
	Name              string             `bson:"name"`
	Email             string             `bson:"email"`
	Telegram          string             `bson:"telegram"`
	Picture           string             `bson:"picture"`
	IP                string             `bson:"ip"`
	Site              string             `bson:"site"`
	Admin             bool               `bson:"admin"`
	Blocked           *time.Time         `bson:"blocked"`
	Verified          bool               `bson:"verified"`
	EmailSubscription bool               `bson:"email_subscription"`
	PaidSub           bool               `bson:"paid_sub"`
}

// locatorDocument is embedded in comments and matched by whole-value equality
// in filters, which is why its field order must never change: the compound
// unique index and equality lookups both depend on it.
type locatorDocument struct {
	Site string `bson:"site"`
	URL  string `bson:"url"`
}

type editDocument struct {
	Summary string    `bson:"summary"`
	Time    time.Time `bson:"time"`
}

type votedIPDocument struct {
	Timestamp time.Time `bson:"timestamp"`
	Value     bool      `bson:"value"`
}

type commentDocument struct {
	ID          primitive.ObjectID         `bson:"_id,omitempty"`
	CID         string                     `bson:"cid"`
	PID         string                     `bson:"pid"`
	Locator     locatorDocument            `bson:"locator"`
	Text        string                     `bson:"text"`
	Orig        string                     `bson:"orig"`
	Score       int                        `bson:"score"`
	Controversy float64                    `bson:"controversy"`
	Votes       map[string]bool            `bson:"votes"`
	VotedIPs    map[string]votedIPDocument `bson:"voted_ips"`
	User        string                     `bson:"user"`
	Time        time.Time                  `bson:"time"`
	Pin         bool                       `bson:"pin"`
	Deleted     bool                       `bson:"delete"`
	Imported    bool                       `bson:"imported"`
	Title       string                     `bson:"title"`
	Edit        *editDocument              `bson:"edit"`
}

func locatorToDocument(l model.Locator) locatorDocument {
	return locatorDocument{Site: l.SiteID, URL: l.URL}
}

func (d locatorDocument) toModel() model.Locator {
	return model.Locator{SiteID: d.Site, URL: d.URL}
}

// commentToDocument maps a wire comment to its stored shape. Vote maps are
// persisted as sent by the engine, which recomputes score and controversy on
// every vote; nil maps become empty ones so lookups never hit a null field.
func commentToDocument(c model.Comment) commentDocument {
	votes := c.Votes
	if votes == nil {
		votes = map[string]bool{}
	}

	votedIPs := make(map[string]votedIPDocument, len(c.VotedIPs))
	for ip, info := range c.VotedIPs {
		votedIPs[ip] = votedIPDocument{Timestamp: info.Timestamp, Value: info.Value}
	}

	var edit *editDocument
	if c.Edit != nil {
		edit = &editDocument{Summary: c.Edit.Summary, Time: c.Edit.Timestamp}
	}

	return commentDocument{
		CID:         c.ID,
		PID:         c.ParentID,
		Locator:     locatorToDocument(c.Locator),
		Text:        c.Text,
		Orig:        c.Orig,
		Score:       c.Score,
		Controversy: c.Controversy,
		Votes:       votes,
		VotedIPs:    votedIPs,
		User:        c.User.ID,
		Time:        c.Timestamp,
		Pin:         c.Pin,
		Deleted:     c.Deleted,
		Imported:    c.Imported,
		Title:       c.PostTitle,
		Edit:        edit,
	}
}

// commentFromDocument maps a stored comment back to its wire shape, merging
// the given user projection. Callers pass a zero-value user when the owning
// user cannot be resolved; the comment itself still round-trips.
func commentFromDocument(d commentDocument, user model.User) model.Comment {
	votedIPs := make(map[string]model.VotedIPInfo, len(d.VotedIPs))
	for ip, info := range d.VotedIPs {
		votedIPs[ip] = model.VotedIPInfo{Timestamp: info.Timestamp, Value: info.Value}
	}

	var edit *model.Edit
	if d.Edit != nil {
		edit = &model.Edit{Summary: d.Edit.Summary, Timestamp: d.Edit.Time}
	}

	return model.Comment{
		ID:          d.CID,
		ParentID:    d.PID,
		Text:        d.Text,
		Orig:        d.Orig,
		User:        user,
		Locator:     d.Locator.toModel(),
		Score:       d.Score,
		Controversy: d.Controversy,
		Votes:       d.Votes,
		VotedIPs:    votedIPs,
		Timestamp:   d.Time,
		Edit:        edit,
		Pin:         d.Pin,
		Deleted:     d.Deleted,
		Imported:    d.Imported,
		PostTitle:   d.Title,
	}
}

// userToDocument maps a wire user to its stored shape. Detail fields start
// blank and are managed only through the user-detail operations; the blocked
// timestamp starts unset regardless of the wire-level boolean.
func userToDocument(u model.User) userDocument {
	return userDocument{
		UID:               u.ID,
		Name:              u.Name,
		Picture:           u.Picture,
		IP:                u.IP,
		Site:              u.SiteID,
		Admin:             u.Admin,
		Blocked:           nil,
		Verified:          u.Verified,
		EmailSubscription: u.EmailSubscription,
		PaidSub:           u.PaidSub,
		Email:             "",
		Telegram:          "",
	}
}

func userFromDocument(d userDocument) model.User {
	return model.User{
		ID:                d.UID,
		Name:              d.Name,
		Picture:           d.Picture,
		IP:                d.IP,
		Admin:             d.Admin,
		Blocked:           d.Blocked != nil,
		Verified:          d.Verified,
		EmailSubscription: d.EmailSubscription,
		PaidSub:           d.PaidSub,
		SiteID:            d.Site,
	}
}
