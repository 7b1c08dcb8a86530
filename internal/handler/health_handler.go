package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// healthCheckTimeout はストアへの疎通確認の待ち時間の上限。
const healthCheckTimeout = 2 * time.Second

// StorePinger はお気に入りストアの疎通確認を行うインターフェース。
// repository.FavouriteRepositoryが実装する。
type StorePinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler は/healthのHTTPハンドラー。
type HealthHandler struct {
	store StorePinger
}

// NewHealthHandler はHealthHandlerを生成する。storeがnilの場合はお気に入り機能が無効として報告する。
func NewHealthHandler(store StorePinger) *HealthHandler {
	return &HealthHandler{store: store}
}

type healthResponse struct {
	Status     string `json:"status"`
	Favourites string `json:"favourites"`
}

// Health はプロセスとお気に入りストアの状態を返す。
// お気に入り機能が無効（縮退モード）でもプロセスは健全なので200を返す。
// ストアが設定されているのに応答しない場合は503を返す。
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, healthResponse{Status: "ok", Favourites: "disabled"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		slog.Warn("health check: favourites store unreachable", slog.String("error", err.Error()))
		writeJSONStatus(w, http.StatusServiceUnavailable, healthResponse{Status: "error", Favourites: "unreachable"})
		return
	}

	writeJSON(w, healthResponse{Status: "ok", Favourites: "enabled"})
}
