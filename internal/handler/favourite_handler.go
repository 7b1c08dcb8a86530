package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/hitoshi/weeklynews/internal/calendar"
	"github.com/hitoshi/weeklynews/internal/favourites"
	"github.com/hitoshi/weeklynews/internal/model"
)

// FavouritesService はお気に入りハンドラーが必要とするサービスインターフェース。
// favourites.Serviceが実装する。
type FavouritesService interface {
	Enabled() bool
	HashScheme() string
	IsFavourite(ctx context.Context, url string) bool
	Toggle(ctx context.Context, item model.NewsItem, tc favourites.ToggleContext) (bool, error)
	Remove(ctx context.Context, url string) error
	ListByMonth(ctx context.Context, year, month int) ([]model.FavouriteRecord, error)
}

// FavouriteHandler はお気に入りのHTTPハンドラー。
type FavouriteHandler struct {
	service FavouritesService
	clock   *calendar.Clock
}

// NewFavouriteHandler はFavouriteHandlerを生成する。
func NewFavouriteHandler(service FavouritesService, clock *calendar.Clock) *FavouriteHandler {
	return &FavouriteHandler{service: service, clock: clock}
}

// favouriteListResponse はお気に入り一覧のAPIレスポンス。
type favouriteListResponse struct {
	Year       int                     `json:"year"`
	Month      int                     `json:"month"`
	Enabled    bool                    `json:"enabled"`
	HashScheme string                  `json:"hash_scheme"`
	Records    []model.FavouriteRecord `json:"records"`
	Groups     []favourites.MonthGroup `json:"groups,omitempty"`
	Notice     string                  `json:"notice,omitempty"`
	ErrorCode  string                  `json:"error_code,omitempty"`
}

// favouriteStateResponse は1件のお気に入り状態。
type favouriteStateResponse struct {
	URL       string `json:"url"`
	Favourite bool   `json:"favourite"`
	Enabled   bool   `json:"enabled"`
}

// toggleRequest はお気に入り切り替えリクエストのボディ。
// iso_year/iso_weekは呼び出し元が明示する週で、省略可能。
type toggleRequest struct {
	URL            string   `json:"url"`
	Title          string   `json:"title"`
	SummaryBullets []string `json:"summary_bullets"`
	Published      string   `json:"published"`
	ISOYear        int      `json:"iso_year"`
	ISOWeek        int      `json:"iso_week"`
}

// List はお気に入りをday_dateの降順で返す。monthが0またはallの場合はISO年全体を返し、暦月ごとのグループも付ける。
// ストアの読み出しに失敗した場合も空の一覧を返す。
// GET /api/favourites?year=&month=
func (h *FavouriteHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	year := h.clock.CurrentYear()
	if v := q.Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("year は正の整数で指定してください"))
			return
		}
		year = n
	}

	month, apiErr := parseMonth(q.Get("month"))
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	resp := favouriteListResponse{
		Year:       year,
		Month:      month,
		Enabled:    h.service.Enabled(),
		HashScheme: h.service.HashScheme(),
	}

	// ストア障害時は空の一覧を200で返し、noticeとerror_codeで失敗を伝える
	recs, err := h.service.ListByMonth(r.Context(), year, month)
	var storeErr *model.APIError
	switch {
	case err == nil:
	case errors.As(err, &storeErr) && storeErr.Code == model.ErrCodeStoreOperationFailed:
		recs = []model.FavouriteRecord{}
		resp.Notice = storeErr.Message
		resp.ErrorCode = storeErr.Code
	default:
		handleServiceError(w, r, err)
		return
	}
	resp.Records = recs
	if month == 0 {
		resp.Groups = favourites.GroupByMonth(recs)
	}
	writeJSON(w, resp)
}

// Status はURLがお気に入りに登録されているかを返す。
// GET /api/favourites/status?url=
func (h *FavouriteHandler) Status(w http.ResponseWriter, r *http.Request) {
	url := strings.TrimSpace(r.URL.Query().Get("url"))
	if url == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("url は必須です"))
		return
	}
	writeJSON(w, favouriteStateResponse{
		URL:       url,
		Favourite: h.service.IsFavourite(r.Context(), url),
		Enabled:   h.service.Enabled(),
	})
}

// Toggle はお気に入り状態を反転し、新しい状態を返す。
// 縮退モードでは何も保存せずfalseを返す。
// POST /api/favourites/toggle
func (h *FavouriteHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("url は必須です"))
		return
	}

	explicit := favourites.WeekRef{ISOYear: req.ISOYear, ISOWeek: req.ISOWeek}
	if (req.ISOYear != 0 || req.ISOWeek != 0) && !explicit.Valid() {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidWeekError(req.ISOYear, req.ISOWeek))
		return
	}

	item := model.NewsItem{
		URL:            req.URL,
		Title:          req.Title,
		SummaryBullets: req.SummaryBullets,
		Published:      req.Published,
	}
	on, err := h.service.Toggle(r.Context(), item, favourites.ToggleContext{Explicit: explicit})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, favouriteStateResponse{URL: req.URL, Favourite: on, Enabled: h.service.Enabled()})
}

// Remove はお気に入りを削除する。登録されていないURLでも204を返す。
// DELETE /api/favourites?url=
func (h *FavouriteHandler) Remove(w http.ResponseWriter, r *http.Request) {
	url := strings.TrimSpace(r.URL.Query().Get("url"))
	if url == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("url は必須です"))
		return
	}

	if err := h.service.Remove(r.Context(), url); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseMonth は月の指定を解釈する。空文字列・all・0は全月を表す0を返す。
func parseMonth(v string) (int, *model.APIError) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" || v == "all" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || n > 12 {
		return 0, model.NewInvalidMonthError(v)
	}
	return n, nil
}
