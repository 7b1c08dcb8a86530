package view

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/hitoshi/weeklynews/internal/calendar"
	"github.com/hitoshi/weeklynews/internal/digest"
	"github.com/hitoshi/weeklynews/internal/favourites"
	"github.com/hitoshi/weeklynews/internal/model"
	"github.com/hitoshi/weeklynews/internal/pipeline"
)

// DigestLoader は1週分のダイジェストを読み込むインターフェース。
type DigestLoader interface {
	Load(ctx context.Context, isoYear, isoWeek int) *digest.Result
}

// FavouritesService はお気に入り操作のインターフェース。
type FavouritesService interface {
	Enabled() bool
	IsFavourite(ctx context.Context, url string) bool
	Toggle(ctx context.Context, item model.NewsItem, tc favourites.ToggleContext) (bool, error)
	Remove(ctx context.Context, url string) error
	ListByMonth(ctx context.Context, year, month int) ([]model.FavouriteRecord, error)
}

// Router は画面状態を所有し、画面遷移に応じてダイジェストやお気に入りを読み込み直す。
//
// 読み込みはロックの外で行い、結果は到着した時点で状態に反映する。
// 日付を素早く切り替えると読み込みが重なり、最後に到着した結果が残る（最後に要求した結果とは限らない）。
type Router struct {
	loader DigestLoader
	favs   FavouritesService
	clock  *calendar.Clock
	logger *slog.Logger

	mu    sync.Mutex
	state State
}

// NewRouter はRouterを生成する。初期状態は週表示。
func NewRouter(loader DigestLoader, favs FavouritesService, clock *calendar.Clock, logger *slog.Logger) *Router {
	return &Router{
		loader: loader,
		favs:   favs,
		clock:  clock,
		logger: logger,
		state:  State{Route: RouteWeek, Page: 1},
	}
}

// Boot はルートトークンから初期画面を決定して読み込む。
// トークンがない場合は週表示で今日のダイジェストを読み込む。
func (r *Router) Boot(ctx context.Context, token string) {
	route := ParseRoute(token)
	r.mu.Lock()
	r.state.Route = route
	r.mu.Unlock()

	if route == RouteFavourites {
		r.enterFavourites(ctx)
		return
	}
	r.loadWeek(ctx, r.activeDate())
}

// Navigate は画面を切り替える。
// お気に入り表示へ移るときは選択を初期化（初回のみ）して一覧を読み込み、
// 週表示へ戻るときは選択中の日付（未選択なら今日）のダイジェストを読み込み直す。
// 同じ画面への遷移では何もしない。
func (r *Router) Navigate(ctx context.Context, route Route) {
	r.mu.Lock()
	from := r.state.Route
	r.state.Route = route
	r.mu.Unlock()

	if from == route {
		return
	}
	r.logger.Info("画面を切り替えました", slog.String("from", string(from)), slog.String("to", string(route)))

	switch route {
	case RouteFavourites:
		r.enterFavourites(ctx)
	case RouteWeek:
		r.loadWeek(ctx, r.activeDate())
	}
}

// SelectDate は日付選択欄の値を変更する。週表示中であればその日の週を読み込む。
// お気に入り表示中は値の保持のみ行い、週表示へ戻ったときに読み込む。
func (r *Router) SelectDate(ctx context.Context, value string) error {
	d, err := calendar.ParseDate(value)
	if err != nil {
		return model.NewInvalidDateError(value)
	}

	r.mu.Lock()
	r.state.SelectedDate = d
	route := r.state.Route
	r.mu.Unlock()

	if route == RouteWeek {
		r.loadWeek(ctx, d)
	}
	return nil
}

// SetFilters は絞り込み条件を変更し、ページを1に戻す。
func (r *Router) SetFilters(category, query string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Filters = pipeline.Filters{Category: category, Query: query}
	r.state.Page = 1
}

// PrevPage は前のページへ移動する。
func (r *Router) PrevPage() int {
	return r.movePage(pipeline.Prev)
}

// NextPage は次のページへ移動する。
func (r *Router) NextPage() int {
	return r.movePage(pipeline.Next)
}

// JumpToPage は指定ページへ移動する。範囲外の値は丸める。
func (r *Router) JumpToPage(page int) int {
	return r.movePage(func(_, total int) int { return pipeline.Jump(page, total) })
}

func (r *Router) movePage(move func(page, total int) int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := pipeline.TotalPages(len(pipeline.Filter(r.items(), r.state.Filters)))
	r.state.Page = move(r.state.Page, total)
	return r.state.Page
}

// SelectFavourites はお気に入り表示の年・月を変更する。monthが0の場合は全月。
// お気に入り表示中であれば一覧を読み込み直す。
func (r *Router) SelectFavourites(ctx context.Context, year, month int) error {
	if month < 0 || month > 12 {
		return model.NewInvalidMonthError(strconv.Itoa(month))
	}

	r.mu.Lock()
	r.state.Selection = &FavouritesSelection{Year: year, Month: month}
	route := r.state.Route
	r.mu.Unlock()

	if route == RouteFavourites {
		return r.loadFavourites(ctx)
	}
	return nil
}

// ToggleFavourite は読み込み中のダイジェストにある記事のお気に入り状態を切り替える。
// 記事の公開日時が解釈できない場合はダイジェスト自身のメタデータの週を使う。
func (r *Router) ToggleFavourite(ctx context.Context, url string) (bool, error) {
	r.mu.Lock()
	found := r.state.Digest.FindItem(url)
	var item model.NewsItem
	if found != nil {
		item = *found
	}
	var tc favourites.ToggleContext
	if r.state.Digest != nil {
		tc.Digest = favourites.WeekRef{ISOYear: r.state.Digest.ISOYear, ISOWeek: r.state.Digest.ISOWeek}
	}
	r.mu.Unlock()

	if found == nil {
		return false, model.NewItemNotFoundError(url)
	}
	return r.favs.Toggle(ctx, item, tc)
}

// RemoveFavourite はお気に入りを削除する。お気に入り表示中であれば一覧を読み込み直す。
func (r *Router) RemoveFavourite(ctx context.Context, url string) error {
	if err := r.favs.Remove(ctx, url); err != nil {
		return err
	}

	r.mu.Lock()
	route := r.state.Route
	r.mu.Unlock()

	if route == RouteFavourites {
		return r.loadFavourites(ctx)
	}
	return nil
}

// YearOptions はお気に入り表示の年の選択肢を返す。
func (r *Router) YearOptions() []int {
	return YearOptions(r.clock.CurrentYear())
}

// State は現在の状態のコピーを返す。
func (r *Router) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.state
	if s.Selection != nil {
		sel := *s.Selection
		s.Selection = &sel
	}
	return s
}

// activeDate は選択中の日付、未選択なら今日を返す。
func (r *Router) activeDate() calendar.Date {
	r.mu.Lock()
	d := r.state.SelectedDate
	r.mu.Unlock()
	if d.IsZero() {
		return r.clock.Today()
	}
	return d
}

// loadWeek は日付の属するISO週を読み込み、到着した結果で状態を置き換える。
func (r *Router) loadWeek(ctx context.Context, d calendar.Date) {
	isoYear, isoWeek := calendar.ToISOWeek(d)
	result := r.loader.Load(ctx, isoYear, isoWeek)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Digest = result.Digest
	r.state.ISOYear, r.state.ISOWeek = isoYear, isoWeek
	r.state.Notice = result.Cause()
	r.state.Page = 1
}

// enterFavourites は選択を初期化（初回のみ）して一覧を読み込む。
func (r *Router) enterFavourites(ctx context.Context) {
	r.mu.Lock()
	if r.state.Selection == nil {
		r.state.Selection = &FavouritesSelection{Year: r.clock.CurrentYear(), Month: 0}
	}
	r.mu.Unlock()

	if err := r.loadFavourites(ctx); err != nil {
		r.logger.Warn("お気に入り一覧を読み込めませんでした", slog.String("error", err.Error()))
	}
}

func (r *Router) loadFavourites(ctx context.Context) error {
	r.mu.Lock()
	sel := *r.state.Selection
	r.mu.Unlock()

	recs, err := r.favs.ListByMonth(ctx, sel.Year, sel.Month)

	r.mu.Lock()
	r.state.Favourites = recs
	r.mu.Unlock()
	return err
}

// items は読み込み中のダイジェストの記事を返す。呼び出し時にロックを保持していること。
func (r *Router) items() []model.NewsItem {
	if r.state.Digest == nil {
		return nil
	}
	return r.state.Digest.Items
}
