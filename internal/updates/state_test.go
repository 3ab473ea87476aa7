package updates

import (
	"context"
	"testing"
	"time"

	"github.com/MrSnakeDoc/updater/internal/domain"
	"github.com/MrSnakeDoc/updater/internal/store/memory"
)

func TestStateStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewStateStore(memory.NewStore(), time.Hour)

	empty, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(empty.Checked) != 0 || empty.Response == nil {
		t.Errorf("Load() on empty store = %+v", empty)
	}

	state := NewCycleState()
	state.LastChecked = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	state.Checked["test-plugin/test-plugin.php"] = "1.0.0"
	state.CacheKeys["test-plugin/test-plugin.php"] = "edd_api_request_abc"
	state.Response["test-plugin/test-plugin.php"] = &domain.VersionInfo{
		NewVersion: domain.StringPtr("1.2.3"),
		Sections:   domain.NewOrderedMap("changelog", "Log", "description", "Desc"),
	}

	if err := s.Save(ctx, state); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !got.LastChecked.Equal(state.LastChecked) || got.Checked["test-plugin/test-plugin.php"] != "1.0.0" {
		t.Errorf("Load() = %+v", got)
	}
	if got.CacheKeys["test-plugin/test-plugin.php"] != "edd_api_request_abc" {
		t.Errorf("CacheKeys = %v", got.CacheKeys)
	}
	v := got.Response["test-plugin/test-plugin.php"]
	if v == nil || *v.NewVersion != "1.2.3" || v.Sections.Keys()[0] != "changelog" {
		t.Errorf("Response = %+v", v)
	}

	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset() error: %v", err)
	}
	after, _ := s.Load(ctx)
	if len(after.Checked) != 0 {
		t.Error("Reset() should drop the state")
	}
}

func TestCycleStateClone(t *testing.T) {
	var nilState *CycleState
	if c := nilState.Clone(); c == nil || c.Checked == nil {
		t.Error("Clone() of nil should return an empty state")
	}

	s := NewCycleState()
	s.Checked["a"] = "1"
	c := s.Clone()
	c.Checked["b"] = "2"
	if len(s.Checked) != 1 {
		t.Error("Clone() should not share maps")
	}
}

func TestNoticeBoard(t *testing.T) {
	b := NewNoticeBoard(nil)
	p := domain.Product{Slug: "test-plugin"}

	b.Notice(context.Background(), p, "Renew")
	n, ok := b.Get("test-plugin")
	if !ok || n.Message != "Renew" {
		t.Errorf("Get() = %+v, %v", n, ok)
	}

	b.Clear("test-plugin")
	if _, ok := b.Get("test-plugin"); ok {
		t.Error("Clear() should remove the notice")
	}
}
