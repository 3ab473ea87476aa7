package updates

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrSnakeDoc/updater/internal/cache"
	"github.com/MrSnakeDoc/updater/internal/domain"
	"github.com/MrSnakeDoc/updater/internal/store/memory"
)

type fakeAPI struct {
	product     domain.Product
	latest      *domain.Response
	info        *domain.Response
	err         error
	latestCalls int
	infoCalls   int
	lastBeta    bool
}

func (f *fakeAPI) Product() domain.Product { return f.product }

func (f *fakeAPI) GetLatestVersion(_ context.Context, beta bool) (*domain.Response, error) {
	f.latestCalls++
	f.lastBeta = beta
	return f.latest, f.err
}

func (f *fakeAPI) GetPluginInfo(_ context.Context) (*domain.Response, error) {
	f.infoCalls++
	return f.info, f.err
}

type recordingNotifier struct {
	messages []string
}

func (n *recordingNotifier) Notice(_ context.Context, _ domain.Product, message string) {
	n.messages = append(n.messages, message)
}

func testProduct() domain.Product {
	return domain.Product{
		Name:            "Test Plugin",
		Slug:            "test-plugin",
		Version:         "1.0.0",
		UpdateServerURL: "https://updates.example",
		LicenseKey:      "key-1",
	}
}

func okResponse(newVersion string) *domain.Response {
	return &domain.Response{
		StatusCode: 200,
		Version: &domain.VersionInfo{
			NewVersion: domain.StringPtr(newVersion),
			Slug:       "test-plugin",
			Package:    "https://updates.example/pkg.zip",
			Sections:   domain.NewOrderedMap("description", "Desc", "changelog", "<h4>2.0.0</h4>"),
		},
	}
}

func newTestChecker(api *fakeAPI, n Notifier) *Checker {
	vc := cache.New(memory.NewStore(), nil, nil)
	return NewChecker(api, vc, Config{Notifier: n})
}

func TestCheckUpdateAvailable(t *testing.T) {
	api := &fakeAPI{product: testProduct(), latest: okResponse("1.2.3")}
	c := newTestChecker(api, nil)
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	c.Now = func() time.Time { return at }

	in := NewCycleState()
	state, res, err := c.Check(context.Background(), in)
	if err != nil {
		t.Fatalf("Check() error: %v", err)
	}

	if !res.UpdateAvailable || res.FromCache || res.Skipped {
		t.Errorf("Result = %+v", res)
	}
	basename := "test-plugin/test-plugin.php"
	if state.Response[basename] == nil || *state.Response[basename].NewVersion != "1.2.3" {
		t.Errorf("Response[%s] = %+v", basename, state.Response[basename])
	}
	if state.Checked[basename] != "1.0.0" {
		t.Errorf("Checked[%s] = %q", basename, state.Checked[basename])
	}
	if !state.LastChecked.Equal(at) {
		t.Errorf("LastChecked = %v", state.LastChecked)
	}
	if len(in.Checked) != 0 {
		t.Error("Check() must not modify the input state")
	}
}

func TestCheckCacheIdempotence(t *testing.T) {
	api := &fakeAPI{product: testProduct(), latest: okResponse("1.2.3")}
	c := newTestChecker(api, nil)

	_, first, err := c.Check(context.Background(), NewCycleState())
	if err != nil {
		t.Fatalf("Check() error: %v", err)
	}
	_, second, err := c.Check(context.Background(), NewCycleState())
	if err != nil {
		t.Fatalf("Check() error: %v", err)
	}

	if api.latestCalls != 1 {
		t.Errorf("server calls = %d, want 1", api.latestCalls)
	}
	if first.UpdateAvailable != second.UpdateAvailable {
		t.Errorf("decisions differ: %v vs %v", first.UpdateAvailable, second.UpdateAvailable)
	}
	if !second.FromCache {
		t.Error("second check should come from the cache")
	}
}

func TestCheckSkipsWhenAlreadyInjected(t *testing.T) {
	api := &fakeAPI{product: testProduct(), latest: okResponse("1.2.3")}
	c := newTestChecker(api, nil)

	state, _, _ := c.Check(context.Background(), NewCycleState())
	again, res, err := c.Check(context.Background(), state)
	if err != nil {
		t.Fatalf("Check() error: %v", err)
	}

	if !res.Skipped || !res.UpdateAvailable {
		t.Errorf("Result = %+v, want skipped with update", res)
	}
	if again != state {
		t.Error("skipped check should return the state unchanged")
	}
	if api.latestCalls != 1 {
		t.Errorf("server calls = %d, want 1", api.latestCalls)
	}
}

func TestCheckNoUpdateClearsStaleEntry(t *testing.T) {
	api := &fakeAPI{product: testProduct(), latest: okResponse("1.0.0")}
	c := newTestChecker(api, nil)

	stale := NewCycleState()
	stale.Response["test-plugin/test-plugin.php"] = okResponse("0.9.0").Version

	state, res, err := c.Check(context.Background(), stale)
	if err != nil {
		t.Fatalf("Check() error: %v", err)
	}
	if res.UpdateAvailable {
		t.Error("same version should not be an update")
	}
	if _, ok := state.Response["test-plugin/test-plugin.php"]; ok {
		t.Error("stale response entry should be removed")
	}
	if _, ok := state.Checked["test-plugin/test-plugin.php"]; !ok {
		t.Error("product should be marked as checked")
	}
}

func TestCheckErrorResponseIsCached(t *testing.T) {
	api := &fakeAPI{
		product: testProduct(),
		latest:  domain.NewTransportFailure("http_request_failed: request timed out after 2m0s"),
	}
	c := newTestChecker(api, nil)

	for i := 0; i < 2; i++ {
		state, res, err := c.Check(context.Background(), NewCycleState())
		if err != nil {
			t.Fatalf("Check() error: %v", err)
		}
		if res.UpdateAvailable {
			t.Error("an error response must read as no update")
		}
		if !strings.Contains(res.Error, "timed out") {
			t.Errorf("Result.Error = %q", res.Error)
		}
		if len(state.Checked) != 1 {
			t.Error("product should still be marked as checked")
		}
	}

	if api.latestCalls != 1 {
		t.Errorf("server calls = %d, the error should be cached", api.latestCalls)
	}
}

func TestCheckServerMessageNotifies(t *testing.T) {
	resp := okResponse("1.2.3")
	resp.Version.Message = "Please renew your license."
	api := &fakeAPI{product: testProduct(), latest: resp}
	n := &recordingNotifier{}
	c := newTestChecker(api, n)

	if _, _, err := c.Check(context.Background(), NewCycleState()); err != nil {
		t.Fatalf("Check() error: %v", err)
	}
	if len(n.messages) != 1 || n.messages[0] != "Please renew your license." {
		t.Errorf("notices = %v", n.messages)
	}
}

func TestCheckLicenseKeyChangeMissesCache(t *testing.T) {
	api := &fakeAPI{product: testProduct(), latest: okResponse("1.2.3")}
	c := newTestChecker(api, nil)

	oldKey := c.CacheKey()
	_, _, _ = c.Check(context.Background(), NewCycleState())

	api.product = api.product.WithLicenseKey("key-2")
	if c.CacheKey() == oldKey {
		t.Fatal("cache key should change with the license key")
	}

	_, res, _ := c.Check(context.Background(), NewCycleState())
	if res.FromCache {
		t.Error("a new license key must not reuse the old cached answer")
	}
	if api.latestCalls != 2 {
		t.Errorf("server calls = %d, want 2", api.latestCalls)
	}
}

func TestCheckLicenseKeyChangeRefreshesState(t *testing.T) {
	api := &fakeAPI{product: testProduct().WithLicenseKey("key-1"), latest: okResponse("2.0.0")}
	c := newTestChecker(api, nil)

	state, _, err := c.Check(context.Background(), NewCycleState())
	if err != nil {
		t.Fatalf("Check() error: %v", err)
	}

	api.product = api.product.WithLicenseKey("key-2")
	api.latest = okResponse("3.0.0")

	next, res, err := c.Check(context.Background(), state)
	if err != nil {
		t.Fatalf("Check() error: %v", err)
	}
	if res.Skipped {
		t.Error("an answer recorded for the old license key must not be reused")
	}
	if api.latestCalls != 2 {
		t.Errorf("server calls = %d, want 2", api.latestCalls)
	}
	if res.Version == nil || *res.Version.NewVersion != "3.0.0" {
		t.Errorf("Version = %+v, want 3.0.0", res.Version)
	}
	if v := next.Response["test-plugin/test-plugin.php"]; v == nil || *v.NewVersion != "3.0.0" {
		t.Errorf("state response = %+v, want 3.0.0", v)
	}
	if next.CacheKeys["test-plugin/test-plugin.php"] != c.CacheKey() {
		t.Error("state should record the cache key of the new answer")
	}
}

func TestCheckBetaChannel(t *testing.T) {
	api := &fakeAPI{product: testProduct(), latest: okResponse("1.2.3")}
	c := newTestChecker(api, nil)

	stable := c.CacheKey()
	c.SetBeta(true)
	if c.CacheKey() == stable {
		t.Error("beta channel should use its own cache key")
	}

	_, _, _ = c.Check(context.Background(), NewCycleState())
	if !api.lastBeta {
		t.Error("beta flag should be forwarded to the server")
	}
}

func TestCheckConfigurationError(t *testing.T) {
	api := &fakeAPI{product: testProduct(), err: errors.New("api configuration: update server must be another server")}
	c := newTestChecker(api, nil)

	in := NewCycleState()
	out, _, err := c.Check(context.Background(), in)
	if err == nil {
		t.Fatal("Check() should return the client error")
	}
	if out != in {
		t.Error("state should be returned untouched on error")
	}
}

func TestPluginInfo(t *testing.T) {
	api := &fakeAPI{product: testProduct(), info: okResponse("2.0.0")}
	c := newTestChecker(api, nil)

	if _, err := c.PluginInfo(context.Background(), "other-plugin"); !errors.Is(err, ErrUnknownSlug) {
		t.Errorf("PluginInfo(other) error = %v, want ErrUnknownSlug", err)
	}
	if api.infoCalls != 0 {
		t.Error("unknown slug should not reach the server")
	}

	for i := 0; i < 2; i++ {
		info, err := c.PluginInfo(context.Background(), "test-plugin")
		if err != nil {
			t.Fatalf("PluginInfo() error: %v", err)
		}
		if info.Sections.Len() != 2 {
			t.Errorf("Sections = %v", info.Sections.Keys())
		}
	}
	if api.infoCalls != 1 {
		t.Errorf("plugin_information calls = %d, want 1", api.infoCalls)
	}
}

func TestChangelog(t *testing.T) {
	tests := []struct {
		name string
		info *domain.Response
		want string
	}{
		{name: "changelog present", info: okResponse("2.0.0"), want: "<h4>2.0.0</h4>"},
		{name: "no changelog section", info: &domain.Response{StatusCode: 200, Version: &domain.VersionInfo{Slug: "test-plugin"}}, want: ChangelogUnavailable},
		{name: "malformed payload", info: &domain.Response{StatusCode: 200}, want: ChangelogUnavailable},
		{name: "server error", info: &domain.Response{StatusCode: 404, Message: "Not Found"}, want: ChangelogUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestChecker(&fakeAPI{product: testProduct(), info: tt.info}, nil)
			got, err := c.Changelog(context.Background())
			if err != nil {
				t.Fatalf("Changelog() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Changelog() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPurge(t *testing.T) {
	api := &fakeAPI{product: testProduct(), latest: okResponse("1.2.3")}
	c := newTestChecker(api, nil)

	_, _, _ = c.Check(context.Background(), NewCycleState())
	if err := c.Purge(context.Background()); err != nil {
		t.Fatalf("Purge() error: %v", err)
	}
	_, res, _ := c.Check(context.Background(), NewCycleState())
	if res.FromCache || api.latestCalls != 2 {
		t.Errorf("after Purge() calls = %d, FromCache = %v", api.latestCalls, res.FromCache)
	}
}

func TestNotification(t *testing.T) {
	api := &fakeAPI{product: testProduct(), latest: okResponse("1.2.3")}
	c := newTestChecker(api, nil)

	if c.Notification(NewCycleState()) != nil {
		t.Error("no notification expected without a recorded update")
	}

	state, _, _ := c.Check(context.Background(), NewCycleState())
	n := c.Notification(state)
	if n == nil {
		t.Fatal("Notification() should be set")
	}
	if n.NewVersion != "1.2.3" || n.Name != "Test Plugin" || !n.AutoUpdateAvailable {
		t.Errorf("Notification = %+v", n)
	}
	if n.DetailsURL != "/api/changelog?plugin=test-plugin%2Ftest-plugin.php&slug=test-plugin" {
		t.Errorf("DetailsURL = %q", n.DetailsURL)
	}

	state.Response["test-plugin/test-plugin.php"].Package = ""
	if c.Notification(state).AutoUpdateAvailable {
		t.Error("no package means automatic update is unavailable")
	}
}
