package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/hitoshi/weeklynews/internal/calendar"
	"github.com/hitoshi/weeklynews/internal/digest"
	"github.com/hitoshi/weeklynews/internal/model"
	"github.com/hitoshi/weeklynews/internal/pipeline"
	"github.com/hitoshi/weeklynews/internal/view"
)

// DigestLoader は1週分のダイジェストを読み込むインターフェース。
type DigestLoader interface {
	Load(ctx context.Context, isoYear, isoWeek int) *digest.Result
}

// WeekHandler は状態を持たない週表示のHTTPハンドラー。
// 1回のリクエストで週の読み込み・絞り込み・並べ替え・ページ分割を行う。
type WeekHandler struct {
	loader DigestLoader
	favs   FavouritesService
	clock  *calendar.Clock
}

// NewWeekHandler はWeekHandlerを生成する。
func NewWeekHandler(loader DigestLoader, favs FavouritesService, clock *calendar.Clock) *WeekHandler {
	return &WeekHandler{loader: loader, favs: favs, clock: clock}
}

// weekResponse は週表示1ページ分のAPIレスポンス。
type weekResponse struct {
	ISOYear     int                   `json:"iso_year"`
	ISOWeek     int                   `json:"iso_week"`
	Key         string                `json:"key"`
	GeneratedAt string                `json:"generated_at,omitempty"`
	Notice      string                `json:"notice,omitempty"`
	ErrorCode   string                `json:"error_code,omitempty"`
	Filters     pipeline.Filters      `json:"filters"`
	Categories  []string              `json:"categories"`
	Items       []view.ItemView       `json:"items"`
	Page        int                   `json:"page"`
	TotalPages  int                   `json:"total_pages"`
	Total       int                   `json:"total"`
	Pages       []pipeline.PageButton `json:"pages"`
}

// GetWeek は指定週のダイジェストを絞り込み・並べ替え・ページ分割して返す。
// 週はdate（YYYY-MM-DD）またはyearとweekで指定し、どちらもなければ今日の週とする。
// アーカイブが存在しない・解析できない場合もエラーにはせず、空の一覧とnoticeを返す。
// GET /api/week?date=&year=&week=&category=&q=&page=
func (h *WeekHandler) GetWeek(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	isoYear, isoWeek, apiErr := resolveWeek(q.Get("date"), q.Get("year"), q.Get("week"), h.clock)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	page := 1
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("page は整数で指定してください"))
			return
		}
		page = n
	}

	filters := pipeline.Filters{Category: q.Get("category"), Query: q.Get("q")}
	result := h.loader.Load(r.Context(), isoYear, isoWeek)

	var items []model.NewsItem
	resp := weekResponse{
		ISOYear: isoYear,
		ISOWeek: isoWeek,
		Key:     result.Key,
		Notice:  result.Cause(),
		Filters: filters,
	}
	if result.Err != nil {
		resp.ErrorCode = result.Err.Code
	}
	if result.Digest != nil {
		items = result.Digest.Items
		resp.GeneratedAt = result.Digest.GeneratedAt
	}

	p := pipeline.Apply(items, filters, page)
	resp.Categories = pipeline.Categories(items)
	resp.Page, resp.TotalPages, resp.Total = p.Page, p.TotalPages, p.Total
	resp.Pages = pipeline.Window(p.Page, p.TotalPages)
	resp.Items = make([]view.ItemView, len(p.Items))
	for i, item := range p.Items {
		resp.Items[i] = view.ItemView{NewsItem: item, Favourite: h.favs.IsFavourite(r.Context(), item.URL)}
	}

	writeJSON(w, resp)
}

// resolveWeek はクエリパラメータからISO年と週を決定する。
func resolveWeek(date, year, week string, clock *calendar.Clock) (int, int, *model.APIError) {
	if date != "" {
		d, err := calendar.ParseDate(date)
		if err != nil {
			return 0, 0, model.NewInvalidDateError(date)
		}
		y, wk := calendar.ToISOWeek(d)
		return y, wk, nil
	}

	if year == "" && week == "" {
		y, wk := calendar.ToISOWeek(clock.Today())
		return y, wk, nil
	}

	y, errY := strconv.Atoi(year)
	wk, errW := strconv.Atoi(week)
	if errY != nil || errW != nil || !calendar.ValidWeek(y, wk) {
		return 0, 0, model.NewInvalidWeekError(y, wk)
	}
	return y, wk, nil
}
