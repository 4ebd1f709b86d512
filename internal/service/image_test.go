package service

import (
	"context"
	"testing"
	"time"
)

// mockImageStore records calls; Cleanup fan-out is what matters here, the
// real lifecycle lives in the repository tests.
type mockImageStore struct {
	saved        map[string][]byte
	committed    []string
	resets       []string
	expireTTL    time.Duration
	avatarGrace  time.Duration
	stagingFirst time.Time
}

func newMockImageStore() *mockImageStore {
	return &mockImageStore{saved: map[string][]byte{}}
}

func (m *mockImageStore) SaveImage(_ context.Context, id string, data []byte) error {
	m.saved[id] = data
	return nil
}

func (m *mockImageStore) LoadImage(_ context.Context, id string) ([]byte, error) {
	return m.saved[id], nil
}

func (m *mockImageStore) CommitImage(_ context.Context, id string) error {
	m.committed = append(m.committed, id)
	return nil
}

func (m *mockImageStore) ResetCleanupTimer(_ context.Context, id string) error {
	m.resets = append(m.resets, id)
	return nil
}

func (m *mockImageStore) ExpireImages(_ context.Context, ttl time.Duration) error {
	m.expireTTL = ttl
	return nil
}

func (m *mockImageStore) CleanupAvatars(_ context.Context, grace time.Duration) error {
	m.avatarGrace = grace
	return nil
}

func (m *mockImageStore) StagingInfo(_ context.Context) (time.Time, error) {
	return m.stagingFirst, nil
}

func (m *mockImageStore) DeleteUserImages(_ context.Context, _ []string) error {
	return nil
}

func TestCleanup_RunsBothSweeps(t *testing.T) {
	store := newMockImageStore()
	svc := NewImageService(store, testLogger())

	if err := svc.Cleanup(context.Background(), time.Hour); err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if store.expireTTL != time.Hour {
		t.Errorf("expire ttl = %v, want %v", store.expireTTL, time.Hour)
	}
	if store.avatarGrace != avatarGracePeriod {
		t.Errorf("avatar grace = %v, want %v", store.avatarGrace, avatarGracePeriod)
	}
}

func TestInfo_PassesStagingTimestamp(t *testing.T) {
	store := newMockImageStore()
	store.stagingFirst = time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := NewImageService(store, testLogger())

	ts, err := svc.Info(context.Background())
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	if !ts.Equal(store.stagingFirst) {
		t.Errorf("ts = %v, want %v", ts, store.stagingFirst)
	}
}
