package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/daniloarcidiacono/remark42-mongodb/internal/apperror"
	"github.com/daniloarcidiacono/remark42-mongodb/internal/model"
)

// mockStore is an in-memory repository.Store. It mirrors the real store's
// semantics closely enough for the service rules to be exercised: duplicate
// comment ids conflict, duplicate users are swallowed, probes default.
type mockStore struct {
	sites    map[string]*mockSite
	users    map[string]model.User          // key site+"/"+uid
	blocked  map[string]*time.Time          // key site+"/"+uid
	verified map[string]bool                // key site+"/"+uid
	details  map[string]map[string]string   // key site+"/"+uid → detail → value
	comments map[string]model.Comment       // key site+"|"+url+"|"+cid

	deletedSites []string
}

type mockSite struct {
	key        string
	adminEmail string
	enabled    bool
	posts      map[string]*model.Post
}

func newMockStore() *mockStore {
	return &mockStore{
		sites:    map[string]*mockSite{},
		users:    map[string]model.User{},
		blocked:  map[string]*time.Time{},
		verified: map[string]bool{},
		details:  map[string]map[string]string{},
		comments: map[string]model.Comment{},
	}
}

func (m *mockStore) addSite(name string) *mockSite {
	s := &mockSite{enabled: true, posts: map[string]*model.Post{}}
	m.sites[name] = s
	return s
}

func userKey(site, uid string) string { return site + "/" + uid }

func commentKey(l model.Locator, cid string) string { return l.SiteID + "|" + l.URL + "|" + cid }

func (m *mockStore) SiteExists(_ context.Context, site string) (bool, error) {
	_, ok := m.sites[site]
	return ok, nil
}

func (m *mockStore) PostExists(_ context.Context, l model.Locator) (bool, error) {
	s, ok := m.sites[l.SiteID]
	if !ok {
		return false, nil
	}
	_, ok = s.posts[l.URL]
	return ok, nil
}

func (m *mockStore) IsSiteEnabled(_ context.Context, site string) (bool, error) {
	s, ok := m.sites[site]
	return ok && s.enabled, nil
}

func (m *mockStore) SiteKey(_ context.Context, site string) (string, error) {
	if s, ok := m.sites[site]; ok {
		return s.key, nil
	}
	return "", nil
}

func (m *mockStore) SiteAdminEmail(_ context.Context, site string) (string, error) {
	if s, ok := m.sites[site]; ok {
		return s.adminEmail, nil
	}
	return "", nil
}

func (m *mockStore) SiteAdmins(_ context.Context, site string) ([]string, error) {
	var admins []string
	for _, u := range m.users {
		if u.SiteID == site && u.Admin {
			admins = append(admins, u.ID)
		}
	}
	return admins, nil
}

func (m *mockStore) GetPost(_ context.Context, l model.Locator) (bool, *model.Post, error) {
	s, ok := m.sites[l.SiteID]
	if !ok {
		return false, nil, nil
	}
	if p, ok := s.posts[l.URL]; ok {
		cp := *p
		return true, &cp, nil
	}
	return true, nil, nil
}

func (m *mockStore) CreateSite(_ context.Context, name, key, adminEmail string) error {
	if _, ok := m.sites[name]; ok {
		return apperror.Conflict("site %s already exists", name)
	}
	s := m.addSite(name)
	s.key, s.adminEmail = key, adminEmail
	return nil
}

func (m *mockStore) ListSites(_ context.Context) ([]model.Site, error) {
	var sites []model.Site
	for name, s := range m.sites {
		sites = append(sites, model.Site{ID: name, Enabled: s.enabled, AdminEmail: s.adminEmail})
	}
	return sites, nil
}

func (m *mockStore) CreatePost(_ context.Context, l model.Locator, readOnly bool) error {
	m.sites[l.SiteID].posts[l.URL] = &model.Post{URL: l.URL, ReadOnly: readOnly}
	return nil
}

func (m *mockStore) ListPosts(_ context.Context, site string) ([]model.Post, error) {
	s, ok := m.sites[site]
	if !ok {
		return nil, nil
	}
	var posts []model.Post
	for _, p := range s.posts {
		posts = append(posts, *p)
	}
	return posts, nil
}

func (m *mockStore) CreateUser(_ context.Context, user model.User) error {
	key := userKey(user.SiteID, user.ID)
	if _, ok := m.users[key]; ok {
		return nil // duplicates swallowed
	}
	m.users[key] = user
	return nil
}

func (m *mockStore) IsUserBlocked(_ context.Context, site, uid string) (bool, error) {
	until := m.blocked[userKey(site, uid)]
	return until != nil && until.After(time.Now()), nil
}

func (m *mockStore) SetUserBlocked(_ context.Context, site, uid string, until *time.Time) error {
	m.blocked[userKey(site, uid)] = until
	return nil
}

func (m *mockStore) IsUserVerified(_ context.Context, site, uid string) (bool, error) {
	return m.verified[userKey(site, uid)], nil
}

func (m *mockStore) SetUserVerified(_ context.Context, site, uid string, verified bool) error {
	m.verified[userKey(site, uid)] = verified
	return nil
}

func (m *mockStore) VerifiedUsers(_ context.Context, site string) ([]string, error) {
	var ids []string
	for key, v := range m.verified {
		if v {
			ids = append(ids, key)
		}
	}
	return ids, nil
}

func (m *mockStore) BlockedUsers(_ context.Context, site string) ([]model.BlockedUser, error) {
	var blocked []model.BlockedUser
	for key, until := range m.blocked {
		if until != nil {
			blocked = append(blocked, model.BlockedUser{ID: key, Until: *until})
		}
	}
	return blocked, nil
}

func (m *mockStore) UserDetail(_ context.Context, site, uid string, detail model.UserDetail) ([]model.UserDetailEntry, error) {
	value := m.details[userKey(site, uid)][string(detail)]
	if value == "" {
		return nil, nil
	}
	return []model.UserDetailEntry{{UserID: uid, Email: value}}, nil
}

func (m *mockStore) SetUserDetail(_ context.Context, site, uid string, detail model.UserDetail, update string) ([]model.UserDetailEntry, error) {
	key := userKey(site, uid)
	if m.details[key] == nil {
		m.details[key] = map[string]string{}
	}
	m.details[key][string(detail)] = update
	return []model.UserDetailEntry{{UserID: uid, Email: update}}, nil
}

func (m *mockStore) DeleteUserDetail(_ context.Context, site, uid string, detail model.UserDetail) error {
	key := userKey(site, uid)
	if detail == model.AllUserDetails {
		delete(m.details, key)
		return nil
	}
	delete(m.details[key], string(detail))
	return nil
}

func (m *mockStore) ListUserDetails(_ context.Context, site string) ([]model.UserDetailEntry, error) {
	var entries []model.UserDetailEntry
	for key, details := range m.details {
		for _, v := range details {
			entries = append(entries, model.UserDetailEntry{UserID: key, Email: v})
		}
	}
	return entries, nil
}

func (m *mockStore) DeleteUser(_ context.Context, site, uid string, mode model.DeleteMode) error {
	if mode == model.HardDelete {
		delete(m.users, userKey(site, uid))
	}
	delete(m.details, userKey(site, uid))
	return nil
}

func (m *mockStore) CreateComment(_ context.Context, comment model.Comment) (string, error) {
	key := commentKey(comment.Locator, comment.ID)
	if _, ok := m.comments[key]; ok {
		return "", apperror.Conflict("key %s already in store", comment.ID)
	}
	m.comments[key] = comment
	return comment.ID, nil
}

func (m *mockStore) GetComment(_ context.Context, l model.Locator, cid string) (model.Comment, error) {
	c, ok := m.comments[commentKey(l, cid)]
	if !ok {
		return model.Comment{}, apperror.NotFound("comment %s not found", cid)
	}
	return c, nil
}

func (m *mockStore) UpdateComment(_ context.Context, cid string, l model.Locator, comment model.Comment) error {
	key := commentKey(l, cid)
	if _, ok := m.comments[key]; !ok {
		return apperror.NotFound("comment %s not found", cid)
	}
	m.comments[key] = comment
	return nil
}

func (m *mockStore) DeleteComment(_ context.Context, l model.Locator, cid string, mode model.DeleteMode) error {
	key := commentKey(l, cid)
	c, ok := m.comments[key]
	if !ok {
		return apperror.NotFound("comment %s not found", cid)
	}
	c.Text, c.Orig, c.Score, c.Deleted = "", "", 0, true
	if mode == model.HardDelete {
		c.User = model.User{ID: model.DeletedUserID}
	}
	m.comments[key] = c
	return nil
}

func (m *mockStore) CountPostComments(_ context.Context, l model.Locator) (int, error) {
	count := 0
	for _, c := range m.comments {
		if c.Locator == l && !c.Deleted {
			count++
		}
	}
	return count, nil
}

func (m *mockStore) CountUserComments(_ context.Context, site, uid string) (int, error) {
	count := 0
	for _, c := range m.comments {
		if c.Locator.SiteID == site && c.User.ID == uid && !c.Deleted {
			count++
		}
	}
	return count, nil
}

func (m *mockStore) PostComments(_ context.Context, l model.Locator, _ time.Time, _ string) ([]model.Comment, error) {
	var out []model.Comment
	for _, c := range m.comments {
		if c.Locator == l {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockStore) SiteLastComments(_ context.Context, site string, _ int, _ time.Time) ([]model.Comment, error) {
	var out []model.Comment
	for _, c := range m.comments {
		if c.Locator.SiteID == site {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockStore) SiteUserComments(_ context.Context, site, uid string, _, _ int) ([]model.Comment, error) {
	var out []model.Comment
	for _, c := range m.comments {
		if c.Locator.SiteID == site && c.User.ID == uid {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockStore) PostInfo(_ context.Context, l model.Locator, _ int) (model.PostInfo, error) {
	count, _ := m.CountPostComments(context.Background(), l)
	return model.PostInfo{URL: l.URL, Count: count}, nil
}

func (m *mockStore) SiteInfo(_ context.Context, site string, _, _ int) ([]model.PostInfo, error) {
	return nil, nil
}

func (m *mockStore) IsPostReadOnly(_ context.Context, l model.Locator) (bool, error) {
	s, ok := m.sites[l.SiteID]
	if !ok {
		return false, nil
	}
	p, ok := s.posts[l.URL]
	return ok && p.ReadOnly, nil
}

func (m *mockStore) SetPostReadOnly(_ context.Context, l model.Locator, readOnly bool) error {
	if s, ok := m.sites[l.SiteID]; ok {
		if p, ok := s.posts[l.URL]; ok {
			p.ReadOnly = readOnly
		}
	}
	return nil
}

func (m *mockStore) DeleteSite(_ context.Context, site string) error {
	m.deletedSites = append(m.deletedSites, site)
	delete(m.sites, site)
	return nil
}

// fakeClock serves a fixed instant so expiry math is deterministic.
type fakeClock struct {
	now time.Time
}

func (f fakeClock) Now() time.Time { return f.now }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestStoreService(t *testing.T, dynamicPosts bool, clock fakeClock) (*StoreService, *mockStore) {
	t.Helper()
	store := newMockStore()
	svc := NewStoreService(store, dynamicPosts, clock, testLogger())
	return svc, store
}

func sampleComment(site, url, cid string) model.Comment {
	return model.Comment{
		ID:      cid,
		Text:    "some text",
		User:    model.User{ID: "u1", Name: "user one"},
		Locator: model.Locator{SiteID: site, URL: url},
	}
}

func TestCreate_UnknownSite(t *testing.T) {
	svc, _ := newTestStoreService(t, false, fakeClock{})

	_, err := svc.Create(context.Background(), sampleComment("nope", "u", "c1"))
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestCreate_UnknownPostWithoutDynamicPosts(t *testing.T) {
	svc, store := newTestStoreService(t, false, fakeClock{})
	store.addSite("s")

	_, err := svc.Create(context.Background(), sampleComment("s", "u", "c1"))
	if !errors.Is(err, apperror.ErrPrecondition) {
		t.Fatalf("error = %v, want ErrPrecondition", err)
	}
}

func TestCreate_DynamicPostRegistration(t *testing.T) {
	svc, store := newTestStoreService(t, true, fakeClock{})
	store.addSite("s")

	id, err := svc.Create(context.Background(), sampleComment("s", "u", "c1"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if id != "c1" {
		t.Errorf("id = %q, want %q", id, "c1")
	}
	if _, ok := store.sites["s"].posts["u"]; !ok {
		t.Error("expected post to be registered on first comment")
	}
}

func TestCreate_ReadOnlyPost(t *testing.T) {
	svc, store := newTestStoreService(t, false, fakeClock{})
	site := store.addSite("s")
	site.posts["u"] = &model.Post{URL: "u", ReadOnly: true}

	_, err := svc.Create(context.Background(), sampleComment("s", "u", "c1"))
	if !errors.Is(err, apperror.ErrPrecondition) {
		t.Fatalf("error = %v, want ErrPrecondition", err)
	}
}

func TestCreate_DuplicateID(t *testing.T) {
	svc, store := newTestStoreService(t, false, fakeClock{})
	site := store.addSite("s")
	site.posts["u"] = &model.Post{URL: "u"}

	if _, err := svc.Create(context.Background(), sampleComment("s", "u", "c1")); err != nil {
		t.Fatalf("setup: Create() error = %v", err)
	}

	_, err := svc.Create(context.Background(), sampleComment("s", "u", "c1"))
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("error = %v, want ErrConflict", err)
	}
	if len(store.comments) != 1 {
		t.Errorf("comment count = %d, want 1", len(store.comments))
	}
}

func TestCreate_EmptyID(t *testing.T) {
	svc, _ := newTestStoreService(t, false, fakeClock{})

	_, err := svc.Create(context.Background(), sampleComment("s", "u", ""))
	if !errors.Is(err, apperror.ErrInvalidRequest) {
		t.Fatalf("error = %v, want ErrInvalidRequest", err)
	}
}

func TestCreate_RegistersAuthor(t *testing.T) {
	svc, store := newTestStoreService(t, false, fakeClock{})
	site := store.addSite("s")
	site.posts["u"] = &model.Post{URL: "u"}

	if _, err := svc.Create(context.Background(), sampleComment("s", "u", "c1")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	user, ok := store.users[userKey("s", "u1")]
	if !ok {
		t.Fatal("expected author to be registered")
	}
	if user.SiteID != "s" {
		t.Errorf("SiteID = %q, want %q", user.SiteID, "s")
	}
}

func TestFind_Dispatch(t *testing.T) {
	svc, store := newTestStoreService(t, false, fakeClock{})
	store.addSite("s")
	store.comments[commentKey(model.Locator{SiteID: "s", URL: "u1"}, "c1")] = model.Comment{
		ID: "c1", User: model.User{ID: "alice"}, Locator: model.Locator{SiteID: "s", URL: "u1"},
	}
	store.comments[commentKey(model.Locator{SiteID: "s", URL: "u2"}, "c2")] = model.Comment{
		ID: "c2", User: model.User{ID: "bob"}, Locator: model.Locator{SiteID: "s", URL: "u2"},
	}

	tests := []struct {
		name string
		req  model.FindRequest
		want int
	}{
		{"by user", model.FindRequest{Locator: model.Locator{SiteID: "s"}, UserID: "alice"}, 1},
		{"by post", model.FindRequest{Locator: model.Locator{SiteID: "s", URL: "u1"}}, 1},
		{"site wide", model.FindRequest{Locator: model.Locator{SiteID: "s"}}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comments, err := svc.Find(context.Background(), tt.req)
			if err != nil {
				t.Fatalf("Find() error = %v", err)
			}
			if len(comments) != tt.want {
				t.Errorf("len = %d, want %d", len(comments), tt.want)
			}
		})
	}
}

func TestFind_URLWinsOverUserID(t *testing.T) {
	svc, store := newTestStoreService(t, false, fakeClock{})
	store.addSite("s")
	store.comments[commentKey(model.Locator{SiteID: "s", URL: "u1"}, "c1")] = model.Comment{
		ID: "c1", User: model.User{ID: "alice"}, Locator: model.Locator{SiteID: "s", URL: "u1"},
	}
	store.comments[commentKey(model.Locator{SiteID: "s", URL: "u2"}, "c2")] = model.Comment{
		ID: "c2", User: model.User{ID: "alice"}, Locator: model.Locator{SiteID: "s", URL: "u2"},
	}

	comments, err := svc.Find(context.Background(), model.FindRequest{
		Locator: model.Locator{SiteID: "s", URL: "u1"}, UserID: "alice",
	})
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(comments) != 1 || comments[0].ID != "c1" {
		t.Errorf("comments = %+v, want post u1's comment c1", comments)
	}
}

func TestFind_UnknownSite(t *testing.T) {
	svc, _ := newTestStoreService(t, false, fakeClock{})

	_, err := svc.Find(context.Background(), model.FindRequest{Locator: model.Locator{SiteID: "nope"}})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestCount_InvalidRequest(t *testing.T) {
	svc, store := newTestStoreService(t, false, fakeClock{})
	store.addSite("s")

	_, err := svc.Count(context.Background(), model.FindRequest{Locator: model.Locator{SiteID: "s"}})
	if !errors.Is(err, apperror.ErrInvalidRequest) {
		t.Fatalf("error = %v, want ErrInvalidRequest", err)
	}
}

func TestCount_UnknownSiteIsZero(t *testing.T) {
	svc, _ := newTestStoreService(t, false, fakeClock{})

	count, err := svc.Count(context.Background(), model.FindRequest{
		Locator: model.Locator{SiteID: "nope", URL: "u1"},
	})
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

func TestDelete_Dispatch(t *testing.T) {
	locator := model.Locator{SiteID: "s", URL: "u"}

	t.Run("single comment", func(t *testing.T) {
		svc, store := newTestStoreService(t, false, fakeClock{})
		store.comments[commentKey(locator, "c1")] = model.Comment{ID: "c1", Text: "hi", Locator: locator}

		err := svc.Delete(context.Background(), model.DeleteRequest{Locator: locator, CommentID: "c1"})
		if err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if got := store.comments[commentKey(locator, "c1")]; !got.Deleted || got.Text != "" {
			t.Errorf("comment not scrubbed: %+v", got)
		}
	})

	t.Run("whole site", func(t *testing.T) {
		svc, store := newTestStoreService(t, false, fakeClock{})
		store.addSite("s")

		err := svc.Delete(context.Background(), model.DeleteRequest{Locator: model.Locator{SiteID: "s"}})
		if err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if len(store.deletedSites) != 1 || store.deletedSites[0] != "s" {
			t.Errorf("deletedSites = %v, want [s]", store.deletedSites)
		}
	})

	t.Run("single detail", func(t *testing.T) {
		svc, store := newTestStoreService(t, false, fakeClock{})
		store.details[userKey("s", "u1")] = map[string]string{
			string(model.UserEmail):    "u1@example.com",
			string(model.UserTelegram): "@u1",
		}

		err := svc.Delete(context.Background(), model.DeleteRequest{
			Locator: model.Locator{SiteID: "s"}, UserID: "u1", UserDetail: model.UserEmail,
		})
		if err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		details := store.details[userKey("s", "u1")]
		if _, ok := details[string(model.UserEmail)]; ok {
			t.Error("expected email detail to be removed")
		}
		if details[string(model.UserTelegram)] != "@u1" {
			t.Error("expected telegram detail to survive")
		}
	})

	t.Run("all details", func(t *testing.T) {
		svc, store := newTestStoreService(t, false, fakeClock{})
		store.details[userKey("s", "u1")] = map[string]string{string(model.UserEmail): "u1@example.com"}

		err := svc.Delete(context.Background(), model.DeleteRequest{
			Locator: model.Locator{SiteID: "s"}, UserID: "u1", UserDetail: model.AllUserDetails,
		})
		if err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, ok := store.details[userKey("s", "u1")]; ok {
			t.Error("expected all details to be removed")
		}
	})

	t.Run("detail without user rejected", func(t *testing.T) {
		svc, _ := newTestStoreService(t, false, fakeClock{})

		err := svc.Delete(context.Background(), model.DeleteRequest{
			Locator: model.Locator{SiteID: "s"}, UserDetail: model.AllUserDetails,
		})
		if !errors.Is(err, apperror.ErrInvalidRequest) {
			t.Fatalf("error = %v, want ErrInvalidRequest", err)
		}
	})

	t.Run("empty request rejected", func(t *testing.T) {
		svc, _ := newTestStoreService(t, false, fakeClock{})

		err := svc.Delete(context.Background(), model.DeleteRequest{})
		if !errors.Is(err, apperror.ErrInvalidRequest) {
			t.Fatalf("error = %v, want ErrInvalidRequest", err)
		}
	})
}

func TestFlag_BlockWithTTL(t *testing.T) {
	now := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)
	svc, store := newTestStoreService(t, false, fakeClock{now: now})

	req := model.FlagRequest{
		Flag:    model.FlagBlocked,
		Locator: model.Locator{SiteID: "s"},
		UserID:  "u1",
		Update:  model.FlagTrue,
		TTL:     7 * 24 * time.Hour,
	}
	status, err := svc.Flag(context.Background(), req)
	if err != nil {
		t.Fatalf("Flag() error = %v", err)
	}
	if !status {
		t.Error("status = false, want true")
	}

	until := store.blocked[userKey("s", "u1")]
	if until == nil {
		t.Fatal("expected blocked-until to be set")
	}
	if want := now.Add(7 * 24 * time.Hour); !until.Equal(want) {
		t.Errorf("until = %v, want %v", until, want)
	}
}

func TestFlag_PermanentBlockOverwritesTTL(t *testing.T) {
	now := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)
	svc, store := newTestStoreService(t, false, fakeClock{now: now})

	weekReq := model.FlagRequest{
		Flag: model.FlagBlocked, Locator: model.Locator{SiteID: "s"},
		UserID: "u1", Update: model.FlagTrue, TTL: 7 * 24 * time.Hour,
	}
	if _, err := svc.Flag(context.Background(), weekReq); err != nil {
		t.Fatalf("setup: Flag() error = %v", err)
	}

	permReq := weekReq
	permReq.TTL = 0
	if _, err := svc.Flag(context.Background(), permReq); err != nil {
		t.Fatalf("Flag() error = %v", err)
	}

	until := store.blocked[userKey("s", "u1")]
	if until == nil {
		t.Fatal("expected blocked-until to be set")
	}
	if want := now.AddDate(permanentBlockYears, 0, 0); !until.Equal(want) {
		t.Errorf("until = %v, want %v", until, want)
	}
}

func TestFlag_UnblockClearsExpiry(t *testing.T) {
	now := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)
	svc, store := newTestStoreService(t, false, fakeClock{now: now})
	until := now.Add(time.Hour)
	store.blocked[userKey("s", "u1")] = &until

	status, err := svc.Flag(context.Background(), model.FlagRequest{
		Flag: model.FlagBlocked, Locator: model.Locator{SiteID: "s"},
		UserID: "u1", Update: model.FlagFalse,
	})
	if err != nil {
		t.Fatalf("Flag() error = %v", err)
	}
	if status {
		t.Error("status = true, want false")
	}
	if store.blocked[userKey("s", "u1")] != nil {
		t.Error("expected blocked-until to be cleared")
	}
}

func TestFlag_Unsupported(t *testing.T) {
	svc, _ := newTestStoreService(t, false, fakeClock{})

	_, err := svc.Flag(context.Background(), model.FlagRequest{Flag: "bogus"})
	if !errors.Is(err, apperror.ErrInvalidRequest) {
		t.Fatalf("error = %v, want ErrInvalidRequest", err)
	}
}

func TestUserDetail_Validation(t *testing.T) {
	svc, _ := newTestStoreService(t, false, fakeClock{})

	tests := []struct {
		name string
		req  model.UserDetailRequest
	}{
		{"update of all", model.UserDetailRequest{Detail: model.AllUserDetails, UserID: "u1", Update: "x"}},
		{"update without user", model.UserDetailRequest{Detail: model.UserEmail, Update: "x"}},
		{"get without user", model.UserDetailRequest{Detail: model.UserEmail}},
		{"unknown detail", model.UserDetailRequest{Detail: "bogus", UserID: "u1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UserDetail(context.Background(), tt.req)
			if !errors.Is(err, apperror.ErrInvalidRequest) {
				t.Errorf("error = %v, want ErrInvalidRequest", err)
			}
		})
	}
}

func TestUserDetail_SetAndGet(t *testing.T) {
	svc, _ := newTestStoreService(t, false, fakeClock{})
	locator := model.Locator{SiteID: "s"}

	set, err := svc.UserDetail(context.Background(), model.UserDetailRequest{
		Detail: model.UserEmail, Locator: locator, UserID: "u1", Update: "u1@example.com",
	})
	if err != nil {
		t.Fatalf("UserDetail() error = %v", err)
	}
	if len(set) != 1 || set[0].Email != "u1@example.com" {
		t.Fatalf("set result = %+v", set)
	}

	got, err := svc.UserDetail(context.Background(), model.UserDetailRequest{
		Detail: model.UserEmail, Locator: locator, UserID: "u1",
	})
	if err != nil {
		t.Fatalf("UserDetail() error = %v", err)
	}
	if len(got) != 1 || got[0].Email != "u1@example.com" {
		t.Errorf("get result = %+v", got)
	}
}
