// Package view は週表示とお気に入り表示の2つの画面状態を切り替えるルーターを提供する。
package view

import (
	"strings"

	"github.com/hitoshi/weeklynews/internal/calendar"
	"github.com/hitoshi/weeklynews/internal/model"
	"github.com/hitoshi/weeklynews/internal/pipeline"
)

// Route は表示中の画面。
type Route string

// 画面の種類。
const (
	RouteWeek       Route = "week"
	RouteFavourites Route = "favourites"
)

// ParseRoute はルートトークンを解釈する。
// favourites, #favourites, #/favourites, /favourites（大文字小文字を区別しない）をお気に入り表示とし、
// それ以外は空文字列も含めて週表示とする。
func ParseRoute(token string) Route {
	if r, ok := LookupRoute(token); ok {
		return r
	}
	return RouteWeek
}

// LookupRoute はルートトークンが既知の画面名かどうかを判定する。
// ParseRouteと同じ正規化を行い、未知のトークンではfalseを返す。
func LookupRoute(token string) (Route, bool) {
	t := strings.ToLower(strings.TrimSpace(token))
	t = strings.TrimPrefix(t, "#")
	t = strings.TrimPrefix(t, "/")
	switch Route(t) {
	case RouteFavourites:
		return RouteFavourites, true
	case RouteWeek:
		return RouteWeek, true
	}
	return "", false
}

// FavouritesSelection はお気に入り表示の年・月の選択。Monthが0の場合は全月。
type FavouritesSelection struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// State は画面状態。Routerが所有し、Routerのメソッドを通してのみ変更する。
type State struct {
	Route   Route
	Filters pipeline.Filters
	Page    int

	// SelectedDate は日付選択欄の値。未選択の場合はゼロ値。
	SelectedDate calendar.Date

	// Digest は最後に到着した週のダイジェスト。読み込みに失敗した場合はnilで、Noticeに原因が入る。
	Digest  *model.WeeklyDigest
	ISOYear int
	ISOWeek int
	Notice  string

	// Selection はお気に入り表示に初めて入ったときに初期化する。
	Selection  *FavouritesSelection
	Favourites []model.FavouriteRecord
}

// YearOptions はお気に入り表示の年の選択肢（今年の2年前から翌年まで）を返す。
func YearOptions(currentYear int) []int {
	years := make([]int, 0, 4)
	for y := currentYear - 2; y <= currentYear+1; y++ {
		years = append(years, y)
	}
	return years
}
