// Package pipeline は読み込み済みの記事一覧に対するフィルタ・ソート・ページングを提供する。
// 入力のスライスは変更しない。
package pipeline

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/hitoshi/weeklynews/internal/model"
)

// PageSize は1ページあたりの記事数。
const PageSize = 10

// Filters は記事一覧の絞り込み条件。
type Filters struct {
	Category string `json:"category"` // 空の場合は全カテゴリ
	Query    string `json:"query"`    // 空の場合は全件一致
}

// IsZero は絞り込み条件が指定されていないかどうかを返す。
func (f Filters) IsZero() bool {
	return f.Category == "" && strings.TrimSpace(f.Query) == ""
}

// Page はApplyの結果。
type Page struct {
	Items      []model.NewsItem `json:"items"`
	Page       int              `json:"page"`
	TotalPages int              `json:"total_pages"`
	Total      int              `json:"total"`
}

// Apply は絞り込み・並べ替えを行い、指定ページの記事を返す。
// ページ番号は [1, TotalPages] に丸める。該当が0件でも TotalPages は1になる。
func Apply(items []model.NewsItem, f Filters, page int) Page {
	filtered := Filter(items, f)
	Sort(filtered)

	total := TotalPages(len(filtered))
	page = Clamp(page, total)

	start := (page - 1) * PageSize
	end := min(start+PageSize, len(filtered))

	return Page{
		Items:      filtered[start:end],
		Page:       page,
		TotalPages: total,
		Total:      len(filtered),
	}
}

// Filter は条件に一致する記事を新しいスライスで返す。
// カテゴリは完全一致、検索語はタイトル・要約の各行・企業名のいずれかへの部分一致（大文字小文字を区別しない）。
func Filter(items []model.NewsItem, f Filters) []model.NewsItem {
	// cases.Caser はゴルーチン間で共有できないため呼び出しごとに生成する。
	fold := cases.Fold()
	query := fold.String(strings.TrimSpace(f.Query))

	out := make([]model.NewsItem, 0, len(items))
	for _, item := range items {
		if f.Category != "" && item.Category != f.Category {
			continue
		}
		if query != "" && !matchesQuery(fold, item, query) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func matchesQuery(fold cases.Caser, item model.NewsItem, query string) bool {
	if strings.Contains(fold.String(item.Title), query) {
		return true
	}
	for _, b := range item.SummaryBullets {
		if strings.Contains(fold.String(b), query) {
			return true
		}
	}
	for _, c := range item.Companies {
		if strings.Contains(fold.String(c), query) {
			return true
		}
	}
	return false
}

// Sort は記事をその場で安定ソートする。
//  1. 重要度の降順
//  2. 公開日時の降順（解析できない記事は解析できた記事すべての後ろ）
//  3. タイトルの昇順（大文字小文字を区別しない）
func Sort(items []model.NewsItem) {
	fold := cases.Fold()
	key := func(item model.NewsItem) string {
		return fold.String(item.Title)
	}

	slices.SortStableFunc(items, func(a, b model.NewsItem) int {
		if a.Significance != b.Significance {
			return b.Significance - a.Significance
		}
		switch {
		case a.PublishedAt != nil && b.PublishedAt == nil:
			return -1
		case a.PublishedAt == nil && b.PublishedAt != nil:
			return 1
		case a.PublishedAt != nil && b.PublishedAt != nil:
			if c := b.PublishedAt.Compare(*a.PublishedAt); c != 0 {
				return c
			}
		}
		return strings.Compare(key(a), key(b))
	})
}

// Categories は記事のカテゴリを重複なく昇順で返す。カテゴリ選択肢の表示に使う。
func Categories(items []model.NewsItem) []string {
	out := make([]string, 0)
	for _, item := range items {
		if !slices.Contains(out, item.Category) {
			out = append(out, item.Category)
		}
	}
	slices.Sort(out)
	return out
}
