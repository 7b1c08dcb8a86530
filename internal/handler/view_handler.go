package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/hitoshi/weeklynews/internal/model"
	"github.com/hitoshi/weeklynews/internal/view"
)

// ViewRouter は画面状態を操作するインターフェース。view.Routerが実装する。
type ViewRouter interface {
	Boot(ctx context.Context, token string)
	Navigate(ctx context.Context, route view.Route)
	SelectDate(ctx context.Context, value string) error
	SetFilters(category, query string)
	PrevPage() int
	NextPage() int
	JumpToPage(page int) int
	SelectFavourites(ctx context.Context, year, month int) error
	ToggleFavourite(ctx context.Context, url string) (bool, error)
	RemoveFavourite(ctx context.Context, url string) error
	Snapshot(ctx context.Context) view.Snapshot
}

// ViewHandler は週表示・お気に入り表示の画面状態を操作するHTTPハンドラー。
// 変更系のエンドポイントはすべて変更後のスナップショットを返す。
type ViewHandler struct {
	router ViewRouter
}

// NewViewHandler はViewHandlerを生成する。
func NewViewHandler(router ViewRouter) *ViewHandler {
	return &ViewHandler{router: router}
}

type bootRequest struct {
	Token string `json:"token"`
}

type routeRequest struct {
	Route string `json:"route"`
}

type dateRequest struct {
	Date string `json:"date"`
}

type filtersRequest struct {
	Category string `json:"category"`
	Query    string `json:"query"`
}

type pageRequest struct {
	Action string `json:"action"` // prev, next, jump
	Page   int    `json:"page"`
}

type selectionRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

type urlRequest struct {
	URL string `json:"url"`
}

// toggleViewResponse は切り替え結果と切り替え後のスナップショット。
type toggleViewResponse struct {
	URL       string        `json:"url"`
	Favourite bool          `json:"favourite"`
	Snapshot  view.Snapshot `json:"snapshot"`
}

// Get は現在の画面のスナップショットを返す。
// GET /api/view
func (h *ViewHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.router.Snapshot(r.Context()))
}

// Boot はルートトークン（#/favourites など）から初期画面を決めて読み込む。
// POST /api/view/boot
func (h *ViewHandler) Boot(w http.ResponseWriter, r *http.Request) {
	var req bootRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.router.Boot(r.Context(), req.Token)
	h.Get(w, r)
}

// Navigate は画面を切り替える。
// POST /api/view/route
func (h *ViewHandler) Navigate(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	route, ok := view.LookupRoute(req.Route)
	if !ok {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRouteError(req.Route))
		return
	}
	h.router.Navigate(r.Context(), route)
	h.Get(w, r)
}

// SelectDate は日付を選択する。週表示中であればその週を読み込む。
// POST /api/view/date
func (h *ViewHandler) SelectDate(w http.ResponseWriter, r *http.Request) {
	var req dateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.router.SelectDate(r.Context(), req.Date); err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.Get(w, r)
}

// SetFilters は絞り込み条件を変更し、1ページ目に戻す。
// POST /api/view/filters
func (h *ViewHandler) SetFilters(w http.ResponseWriter, r *http.Request) {
	var req filtersRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.router.SetFilters(req.Category, req.Query)
	h.Get(w, r)
}

// MovePage はページを移動する。範囲外の指定は丸める。
// POST /api/view/page
func (h *ViewHandler) MovePage(w http.ResponseWriter, r *http.Request) {
	var req pageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	switch strings.ToLower(req.Action) {
	case "prev":
		h.router.PrevPage()
	case "next":
		h.router.NextPage()
	case "jump":
		h.router.JumpToPage(req.Page)
	default:
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("action は prev, next, jump のいずれかを指定してください"))
		return
	}
	h.Get(w, r)
}

// SelectFavourites はお気に入り表示の年・月を選択する。monthが0の場合は全月。
// POST /api/view/favourites
func (h *ViewHandler) SelectFavourites(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.router.SelectFavourites(r.Context(), req.Year, req.Month); err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.Get(w, r)
}

// Toggle は表示中の週の記事のお気に入り状態を切り替える。
// POST /api/view/toggle
func (h *ViewHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	on, err := h.router.ToggleFavourite(r.Context(), req.URL)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, toggleViewResponse{URL: req.URL, Favourite: on, Snapshot: h.router.Snapshot(r.Context())})
}

// Remove はお気に入りを削除する。お気に入り表示中であれば一覧を読み込み直す。
// DELETE /api/view/favourites?url=
func (h *ViewHandler) Remove(w http.ResponseWriter, r *http.Request) {
	url := strings.TrimSpace(r.URL.Query().Get("url"))
	if url == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("url は必須です"))
		return
	}
	if err := h.router.RemoveFavourite(r.Context(), url); err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.Get(w, r)
}
