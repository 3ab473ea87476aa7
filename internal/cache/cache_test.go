package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrSnakeDoc/updater/internal/domain"
	"github.com/MrSnakeDoc/updater/internal/store/memory"
)

// staleStore keeps values forever, ignoring the ttl.
type staleStore struct {
	data map[string][]byte
	err  error
}

func (s *staleStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	if s.err != nil {
		return nil, false, s.err
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *staleStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	if s.err != nil {
		return s.err
	}
	s.data[key] = value
	return nil
}

func (s *staleStore) Delete(_ context.Context, key string) error {
	delete(s.data, key)
	return nil
}

func TestKey(t *testing.T) {
	// md5("test-pluginabc1")
	if k := Key("test-plugin", "abc", true); k != "edd_api_request_9d60c362f944a783a518b7eedd29f858" {
		t.Fatalf("Key() = %q", k)
	}

	tests := []struct {
		name string
		a, b string
	}{
		{"license key changes", Key("test-plugin", "abc", false), Key("test-plugin", "def", false)},
		{"channel changes", Key("test-plugin", "abc", false), Key("test-plugin", "abc", true)},
		{"slug changes", Key("test-plugin", "abc", false), Key("other-plugin", "abc", false)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.a == tt.b {
				t.Errorf("keys should differ: %s", tt.a)
			}
		})
	}

	if Key("test-plugin", "abc", false) != Key("test-plugin", "abc", false) {
		t.Error("Key() should be deterministic")
	}
}

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	c := New(memory.NewStore(), nil, nil)

	resp := &domain.Response{
		StatusCode: 200,
		Version: &domain.VersionInfo{
			NewVersion: domain.StringPtr("1.2.3"),
			Sections:   domain.NewOrderedMap("description", "Desc", "changelog", "Log"),
		},
	}
	c.Put(ctx, "k", resp, time.Hour)

	got, ok := c.Get(ctx, "k")
	if !ok {
		t.Fatal("Get() should hit")
	}
	if got.StatusCode != 200 || got.Version == nil || *got.Version.NewVersion != "1.2.3" {
		t.Errorf("Get() = %+v", got)
	}
	if keys := got.Version.Sections.Keys(); len(keys) != 2 || keys[0] != "description" {
		t.Errorf("section order lost: %v", keys)
	}
}

func TestGetExpiredEnvelope(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	c := New(&staleStore{data: map[string][]byte{}}, nil, nil)
	c.Now = func() time.Time { return now }

	c.Put(ctx, "k", &domain.Response{StatusCode: 200}, 0)

	now = now.Add(DefaultTTL - time.Minute)
	if _, ok := c.Get(ctx, "k"); !ok {
		t.Error("Get() should hit inside the ttl")
	}

	now = now.Add(time.Minute)
	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("Get() should miss once expired, even if the store still has it")
	}
}

func TestErrorResponsesAreCached(t *testing.T) {
	ctx := context.Background()
	c := New(memory.NewStore(), nil, nil)

	c.Put(ctx, "k", domain.NewTransportFailure("http_request_failed: boom"), time.Hour)

	got, ok := c.Get(ctx, "k")
	if !ok || !got.IsError() || got.Message != "http_request_failed: boom" {
		t.Errorf("Get() = %+v, %v", got, ok)
	}
}

func TestStoreErrorsReadAsMiss(t *testing.T) {
	ctx := context.Background()
	c := New(&staleStore{data: map[string][]byte{}, err: errors.New("down")}, nil, nil)

	c.Put(ctx, "k", &domain.Response{StatusCode: 200}, time.Hour)
	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("Get() should miss when the store fails")
	}
}

func TestUndecodableEntry(t *testing.T) {
	store := &staleStore{data: map[string][]byte{"k": []byte("not json")}}
	c := New(store, nil, nil)

	if _, ok := c.Get(context.Background(), "k"); ok {
		t.Error("Get() should miss on an unreadable entry")
	}
}

func TestPurge(t *testing.T) {
	ctx := context.Background()
	c := New(memory.NewStore(), nil, nil)

	c.Put(ctx, "k", &domain.Response{StatusCode: 200}, time.Hour)
	if err := c.Purge(ctx, "k"); err != nil {
		t.Fatalf("Purge() error: %v", err)
	}
	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("Get() should miss after Purge()")
	}
}
