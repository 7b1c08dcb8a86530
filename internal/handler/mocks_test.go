package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/weeklynews/internal/calendar"
	"github.com/hitoshi/weeklynews/internal/digest"
	"github.com/hitoshi/weeklynews/internal/favourites"
	"github.com/hitoshi/weeklynews/internal/model"
	"github.com/hitoshi/weeklynews/internal/view"
)

// --- モック定義 ---

// mockLoader はDigestLoaderのモック実装。
type mockLoader struct {
	loadFn func(ctx context.Context, isoYear, isoWeek int) *digest.Result
	calls  [][2]int
}

func (m *mockLoader) Load(ctx context.Context, isoYear, isoWeek int) *digest.Result {
	m.calls = append(m.calls, [2]int{isoYear, isoWeek})
	if m.loadFn != nil {
		return m.loadFn(ctx, isoYear, isoWeek)
	}
	return &digest.Result{Err: model.NewArchiveNotFoundError(isoYear, isoWeek)}
}

// mockFavouritesService はFavouritesServiceのモック実装。
type mockFavouritesService struct {
	disabled      bool
	favourites    map[string]bool
	toggleFn      func(ctx context.Context, item model.NewsItem, tc favourites.ToggleContext) (bool, error)
	removeFn      func(ctx context.Context, url string) error
	listByMonthFn func(ctx context.Context, year, month int) ([]model.FavouriteRecord, error)

	toggled []model.NewsItem
	ctxs    []favourites.ToggleContext
}

func (m *mockFavouritesService) Enabled() bool      { return !m.disabled }
func (m *mockFavouritesService) HashScheme() string { return favourites.SchemeSHA256 }

func (m *mockFavouritesService) IsFavourite(_ context.Context, url string) bool {
	return m.favourites[url]
}

func (m *mockFavouritesService) Toggle(ctx context.Context, item model.NewsItem, tc favourites.ToggleContext) (bool, error) {
	m.toggled = append(m.toggled, item)
	m.ctxs = append(m.ctxs, tc)
	if m.toggleFn != nil {
		return m.toggleFn(ctx, item, tc)
	}
	return true, nil
}

func (m *mockFavouritesService) Remove(ctx context.Context, url string) error {
	if m.removeFn != nil {
		return m.removeFn(ctx, url)
	}
	return nil
}

func (m *mockFavouritesService) ListByMonth(ctx context.Context, year, month int) ([]model.FavouriteRecord, error) {
	if m.listByMonthFn != nil {
		return m.listByMonthFn(ctx, year, month)
	}
	return []model.FavouriteRecord{}, nil
}

// mockViewRouter はViewRouterのモック実装。呼び出しを記録する。
type mockViewRouter struct {
	calls []string

	selectDateErr error
	selectionErr  error
	toggleErr     error
	removeErr     error
	toggleResult  bool
	snapshot      view.Snapshot

	lastToken    string
	lastRoute    view.Route
	lastFilters  [2]string
	lastJump     int
	lastSelected [2]int
}

func (m *mockViewRouter) Boot(_ context.Context, token string) {
	m.calls = append(m.calls, "boot")
	m.lastToken = token
}

func (m *mockViewRouter) Navigate(_ context.Context, route view.Route) {
	m.calls = append(m.calls, "navigate")
	m.lastRoute = route
}

func (m *mockViewRouter) SelectDate(_ context.Context, value string) error {
	m.calls = append(m.calls, "date")
	return m.selectDateErr
}

func (m *mockViewRouter) SetFilters(category, query string) {
	m.calls = append(m.calls, "filters")
	m.lastFilters = [2]string{category, query}
}

func (m *mockViewRouter) PrevPage() int {
	m.calls = append(m.calls, "prev")
	return 1
}

func (m *mockViewRouter) NextPage() int {
	m.calls = append(m.calls, "next")
	return 2
}

func (m *mockViewRouter) JumpToPage(page int) int {
	m.calls = append(m.calls, "jump")
	m.lastJump = page
	return page
}

func (m *mockViewRouter) SelectFavourites(_ context.Context, year, month int) error {
	m.calls = append(m.calls, "selection")
	m.lastSelected = [2]int{year, month}
	return m.selectionErr
}

func (m *mockViewRouter) ToggleFavourite(_ context.Context, url string) (bool, error) {
	m.calls = append(m.calls, "toggle")
	return m.toggleResult, m.toggleErr
}

func (m *mockViewRouter) RemoveFavourite(_ context.Context, url string) error {
	m.calls = append(m.calls, "remove")
	return m.removeErr
}

func (m *mockViewRouter) Snapshot(_ context.Context) view.Snapshot {
	return m.snapshot
}

// mockPinger はStorePingerのモック実装。
type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(context.Context) error { return m.err }

// --- テストヘルパー ---

// testNow はテストの「今日」（2025-08-26、ISO 2025-W35）。
var testNow = time.Date(2025, 8, 26, 9, 0, 0, 0, time.UTC)

func testClock() *calendar.Clock {
	return calendar.NewFixedClock(testNow)
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

// decodeBody はレスポンスボディをvにデコードするヘルパー。
func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v\nbody: %s", err, w.Body.String())
	}
}

// newsItems はn件のテスト用記事を生成する。
func newsItems(n int, category string) []model.NewsItem {
	items := make([]model.NewsItem, n)
	for i := range items {
		items[i] = model.NewsItem{
			URL:          "https://example.com/" + category + "/" + string(rune('a'+i)),
			Title:        category + " " + string(rune('A'+i)),
			Category:     category,
			Significance: 3,
		}
	}
	return items
}
