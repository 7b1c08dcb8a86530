package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/weeklynews/internal/calendar"
	"github.com/hitoshi/weeklynews/internal/metrics"
	"github.com/hitoshi/weeklynews/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger
	Clock  *calendar.Clock

	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	StatusRecorder    middleware.StatusRecorder
	// TrustProxy がtrueの場合、X-Forwarded-For等からクライアントIPを決定する。
	TrustProxy bool

	// ドメイン
	Loader     DigestLoader
	Favourites FavouritesService
	View       ViewRouter

	// 運用
	Store    StorePinger // nilの場合はお気に入り無効として/healthに報告する
	Gatherer prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → Logging → SecurityHeaders → CORS → RateLimit(General)
//
// /health と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	if deps.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewRecoveryMiddleware(deps.Logger))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.StatusRecorder))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	healthHandler := NewHealthHandler(deps.Store)
	calendarHandler := NewCalendarHandler(deps.Clock)
	weekHandler := NewWeekHandler(deps.Loader, deps.Favourites, deps.Clock)
	favHandler := NewFavouriteHandler(deps.Favourites, deps.Clock)
	viewHandler := NewViewHandler(deps.View)

	// --- 運用エンドポイント ---
	r.Get("/health", healthHandler.Health)
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	// --- API ---
	// ミドルウェアスタック: RateLimit(General)
	r.Route("/api", func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())
		write := deps.RateLimiter.WriteMiddleware()

		r.Route("/calendar", func(r chi.Router) {
			r.Get("/today", calendarHandler.Today)
			r.Get("/week", calendarHandler.Week)
		})

		r.Get("/week", weekHandler.GetWeek)

		r.Route("/favourites", func(r chi.Router) {
			r.Get("/", favHandler.List)
			r.Get("/status", favHandler.Status)
			r.With(write).Post("/toggle", favHandler.Toggle)
			r.With(write).Delete("/", favHandler.Remove)
		})

		r.Route("/view", func(r chi.Router) {
			r.Get("/", viewHandler.Get)
			r.Post("/boot", viewHandler.Boot)
			r.Post("/route", viewHandler.Navigate)
			r.Post("/date", viewHandler.SelectDate)
			r.Post("/filters", viewHandler.SetFilters)
			r.Post("/page", viewHandler.MovePage)
			r.Post("/favourites", viewHandler.SelectFavourites)
			r.With(write).Post("/toggle", viewHandler.Toggle)
			r.With(write).Delete("/favourites", viewHandler.Remove)
		})
	})

	return r
}
