package model

// FavouriteRecord はお気に入り（ブックマーク）1件を表す。
// URLHashが主キーで、同一URLのレコードは常に高々1件。
// 更新は行わず、変更は削除と再挿入で表現する。
type FavouriteRecord struct {
	URLHash string  `json:"url_hash"`
	URL     string  `json:"url"`
	Title   string  `json:"title"`
	Summary *string `json:"summary"` // 要約箇条書きを連結したテキスト
	ISOYear *int    `json:"iso_year"`
	ISOWeek *int    `json:"iso_week"`
	DayDate string  `json:"day_date"` // YYYY-MM-DD、永続化後は常に非空
}
