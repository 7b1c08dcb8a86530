package view

import (
	"context"

	"github.com/hitoshi/weeklynews/internal/favourites"
	"github.com/hitoshi/weeklynews/internal/model"
	"github.com/hitoshi/weeklynews/internal/pipeline"
)

// Snapshot は表示層へ渡す画面のスナップショット。表示中の画面の部分だけが埋まる。
type Snapshot struct {
	Route             Route           `json:"route"`
	FavouritesEnabled bool            `json:"favourites_enabled"`
	Week              *WeekView       `json:"week,omitempty"`
	Favourites        *FavouritesView `json:"favourites,omitempty"`
}

// WeekView は週表示の内容。
type WeekView struct {
	SelectedDate string                `json:"selected_date"`
	ISOYear      int                   `json:"iso_year"`
	ISOWeek      int                   `json:"iso_week"`
	GeneratedAt  string                `json:"generated_at,omitempty"`
	Notice       string                `json:"notice,omitempty"`
	Filters      pipeline.Filters      `json:"filters"`
	Categories   []string              `json:"categories"`
	Items        []ItemView            `json:"items"`
	Page         int                   `json:"page"`
	TotalPages   int                   `json:"total_pages"`
	Total        int                   `json:"total"`
	Pages        []pipeline.PageButton `json:"pages"`
}

// ItemView は記事1件とお気に入り状態。
type ItemView struct {
	model.NewsItem
	Favourite bool `json:"favourite"`
}

// FavouritesView はお気に入り表示の内容。
type FavouritesView struct {
	Selection   FavouritesSelection     `json:"selection"`
	YearOptions []int                   `json:"year_options"`
	Records     []model.FavouriteRecord `json:"records"`
	// Groups は全月表示のときのみ、暦月ごとにまとめた一覧を返す。
	Groups []favourites.MonthGroup `json:"groups,omitempty"`
}

// Snapshot は現在の画面を組み立てる。
// 週表示では表示中のページの記事ごとにお気に入り状態を問い合わせる。問い合わせはロックの外で行う。
func (r *Router) Snapshot(ctx context.Context) Snapshot {
	s := r.State()
	snap := Snapshot{Route: s.Route, FavouritesEnabled: r.favs.Enabled()}

	if s.Route == RouteFavourites {
		fv := &FavouritesView{
			YearOptions: r.YearOptions(),
			Records:     s.Favourites,
		}
		if s.Selection != nil {
			fv.Selection = *s.Selection
		}
		if fv.Records == nil {
			fv.Records = []model.FavouriteRecord{}
		}
		if fv.Selection.Month == 0 {
			fv.Groups = favourites.GroupByMonth(fv.Records)
		}
		snap.Favourites = fv
		return snap
	}

	var items []model.NewsItem
	wv := &WeekView{
		ISOYear: s.ISOYear,
		ISOWeek: s.ISOWeek,
		Notice:  s.Notice,
		Filters: s.Filters,
	}
	if !s.SelectedDate.IsZero() {
		wv.SelectedDate = s.SelectedDate.String()
	} else {
		wv.SelectedDate = r.clock.LocalToday()
	}
	if s.Digest != nil {
		items = s.Digest.Items
		wv.GeneratedAt = s.Digest.GeneratedAt
	}

	page := pipeline.Apply(items, s.Filters, s.Page)
	wv.Categories = pipeline.Categories(items)
	wv.Page, wv.TotalPages, wv.Total = page.Page, page.TotalPages, page.Total
	wv.Pages = pipeline.Window(page.Page, page.TotalPages)

	wv.Items = make([]ItemView, len(page.Items))
	for i, item := range page.Items {
		wv.Items[i] = ItemView{NewsItem: item, Favourite: r.favs.IsFavourite(ctx, item.URL)}
	}

	snap.Week = wv
	return snap
}
