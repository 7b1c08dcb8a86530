package favourites

import (
	"time"

	"github.com/hitoshi/weeklynews/internal/calendar"
	"github.com/hitoshi/weeklynews/internal/model"
)

// MonthGroup は同じ暦月のお気に入りをまとめたもの。
type MonthGroup struct {
	Year    int                     `json:"year"`
	Month   time.Month              `json:"month"`
	Records []model.FavouriteRecord `json:"records"`
}

// Label は "2025-08" 形式の表示名を返す。日付を解釈できなかったグループでは空文字列を返す。
func (g MonthGroup) Label() string {
	if g.Year == 0 {
		return ""
	}
	return calendar.NewDate(g.Year, g.Month, 1).String()[:7]
}

// GroupByMonth はday_dateの降順に並んだレコードを暦月ごとにまとめる。
// グループの順序と各グループ内の順序は入力の順序を保つ。
// day_dateを解釈できないレコードは末尾のゼロ値グループに入れる。
func GroupByMonth(records []model.FavouriteRecord) []MonthGroup {
	groups := make([]MonthGroup, 0)
	index := make(map[[2]int]int)
	for _, rec := range records {
		var key [2]int
		if d, err := calendar.ParseDate(rec.DayDate); err == nil {
			key = [2]int{d.Year, int(d.Month)}
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, MonthGroup{Year: key[0], Month: time.Month(key[1])})
		}
		groups[i].Records = append(groups[i].Records, rec)
	}
	return groups
}
