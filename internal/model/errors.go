// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: archive, favourites, validation, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeArchiveNotFound      = "ARCHIVE_NOT_FOUND"
	ErrCodeArchiveParseFailed   = "ARCHIVE_PARSE_FAILED"
	ErrCodeArchiveFetchFailed   = "ARCHIVE_FETCH_FAILED"
	ErrCodeStoreUnavailable     = "STORE_UNAVAILABLE"
	ErrCodeStoreOperationFailed = "STORE_OPERATION_FAILED"
	ErrCodeInvalidDate          = "INVALID_DATE"
	ErrCodeInvalidWeek          = "INVALID_WEEK"
	ErrCodeInvalidMonth         = "INVALID_MONTH"
	ErrCodeInvalidRoute         = "INVALID_ROUTE"
	ErrCodeInvalidRequest       = "INVALID_REQUEST"
	ErrCodeItemNotFound         = "ITEM_NOT_FOUND"
	ErrCodeToggleInProgress     = "TOGGLE_IN_PROGRESS"
	ErrCodeRateLimitExceeded    = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal             = "INTERNAL_ERROR"
)

// NewArchiveNotFoundError は指定週のアーカイブが存在しない場合のエラーを生成する。
// 未公開の週では通常起こり得るため、致命的なエラーとしては扱わない。
func NewArchiveNotFoundError(isoYear, isoWeek int) *APIError {
	return &APIError{
		Code:     ErrCodeArchiveNotFound,
		Message:  fmt.Sprintf("%d-W%02d のダイジェストはまだ公開されていません。", isoYear, isoWeek),
		Category: "archive",
		Action:   "別の日付を選択するか、公開後に再度お試しください。",
	}
}

// NewArchiveParseFailedError はアーカイブの解析に失敗した場合のエラーを生成する。
func NewArchiveParseFailedError(isoYear, isoWeek int) *APIError {
	return &APIError{
		Code:     ErrCodeArchiveParseFailed,
		Message:  fmt.Sprintf("%d-W%02d のダイジェストの解析に失敗しました。", isoYear, isoWeek),
		Category: "archive",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewArchiveFetchFailedError はアーカイブの取得に失敗した場合のエラーを生成する。
func NewArchiveFetchFailedError(isoYear, isoWeek int) *APIError {
	return &APIError{
		Code:     ErrCodeArchiveFetchFailed,
		Message:  fmt.Sprintf("%d-W%02d のダイジェストを取得できませんでした。", isoYear, isoWeek),
		Category: "archive",
		Action:   "ネットワーク接続を確認し、再度お試しください。",
	}
}

// NewStoreUnavailableError はお気に入りストアが利用できない場合のエラーを生成する。
func NewStoreUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeStoreUnavailable,
		Message:  "お気に入り機能は現在利用できません。",
		Category: "favourites",
		Action:   "管理者にお問い合わせください。",
	}
}

// NewStoreOperationFailedError はお気に入りストアへの個別操作が失敗した場合のエラーを生成する。
func NewStoreOperationFailedError(op string) *APIError {
	return &APIError{
		Code:     ErrCodeStoreOperationFailed,
		Message:  fmt.Sprintf("お気に入りの操作に失敗しました: %s", op),
		Category: "favourites",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInvalidDateError は日付形式が不正な場合のエラーを生成する。
func NewInvalidDateError(value string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDate,
		Message:  fmt.Sprintf("無効な日付です: %s", value),
		Category: "validation",
		Action:   "日付は YYYY-MM-DD 形式で指定してください。",
	}
}

// NewInvalidWeekError はISO週の指定が不正な場合のエラーを生成する。
func NewInvalidWeekError(isoYear, isoWeek int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidWeek,
		Message:  fmt.Sprintf("無効なISO週です: %d-W%02d", isoYear, isoWeek),
		Category: "validation",
		Action:   "週番号は1から52（年によっては53）の範囲で指定してください。",
	}
}

// NewInvalidMonthError は月の指定が不正な場合のエラーを生成する。
func NewInvalidMonthError(value string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidMonth,
		Message:  fmt.Sprintf("無効な月です: %s", value),
		Category: "validation",
		Action:   "月は1から12、または all を指定してください。",
	}
}

// NewInvalidRouteError は表示モードの指定が不正な場合のエラーを生成する。
func NewInvalidRouteError(value string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRoute,
		Message:  fmt.Sprintf("無効な表示モードです: %s", value),
		Category: "validation",
		Action:   "week または favourites を指定してください。",
	}
}

// NewInvalidRequestError はリクエストが不正な場合のエラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewItemNotFoundError は読み込み中のダイジェストに記事が存在しない場合のエラーを生成する。
func NewItemNotFoundError(url string) *APIError {
	return &APIError{
		Code:     ErrCodeItemNotFound,
		Message:  fmt.Sprintf("指定された記事が見つかりません: %s", url),
		Category: "archive",
		Action:   "ダイジェストを再読み込みしてください。",
	}
}

// NewToggleInProgressError は同じ記事のお気に入り切り替えが処理中の場合のエラーを生成する。
func NewToggleInProgressError() *APIError {
	return &APIError{
		Code:     ErrCodeToggleInProgress,
		Message:  "この記事のお気に入り切り替えは処理中です。",
		Category: "favourites",
		Action:   "処理が完了してから再度お試しください。",
	}
}

// NewRateLimitExceededError はレート制限を超えた場合のエラーを生成する。
func NewRateLimitExceededError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimitExceeded,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "Retry-Afterヘッダーの秒数だけ待ってから再度お試しください。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
