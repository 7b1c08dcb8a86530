// Package model はドメインモデルを定義する。
package model

import "time"

// DefaultCategory はカテゴリ未設定の記事に割り当てるプレースホルダー。
const DefaultCategory = "Uncategorized"

// Significance の範囲。無効値・欠損値は最小値として扱う。
const (
	MinSignificance = 1
	MaxSignificance = 5
)

// NewsItem は週次ダイジェストに含まれる1件のニュース記事を表す。
// 読み込み時に正規化され、以降は不変として扱う。
type NewsItem struct {
	URL            string   `json:"url"` // ダイジェスト内で一意
	Title          string   `json:"title"`
	Category       string   `json:"category"`
	Significance   int      `json:"significance"`
	SummaryBullets []string `json:"summary_bullets"`
	Companies      []string `json:"companies"`
	Published      string   `json:"published,omitempty"` // 元の文字列のまま保持する
	Source         string   `json:"source,omitempty"`
	Tags           []string `json:"tags,omitempty"`

	// PublishedAt はPublishedをパースした結果。パースできない場合はnil。
	PublishedAt *time.Time `json:"-"`
}

// WeeklyDigest は1つのISO週に対応するニュース記事の集合を表す。
// 別の週を読み込むと丸ごと置き換えられ、週をまたいだマージは行わない。
type WeeklyDigest struct {
	ISOYear     int        `json:"iso_year"`
	ISOWeek     int        `json:"iso_week"`
	Items       []NewsItem `json:"items"`
	GeneratedAt string     `json:"generated_at"` // 表示用の文字列
}

// FindItem はURLに一致する記事を返す。見つからない場合はnilを返す。
func (d *WeeklyDigest) FindItem(url string) *NewsItem {
	if d == nil {
		return nil
	}
	for i := range d.Items {
		if d.Items[i].URL == url {
			return &d.Items[i]
		}
	}
	return nil
}
