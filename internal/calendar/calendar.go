// Package calendar はISO-8601週番号と暦日の相互変換を提供する。
// すべての計算はタイムゾーンに依存しない暦日（壁時計の年月日）で行う。
package calendar

import (
	"fmt"
	"time"

	"github.com/araddon/dateparse"
)

// DateLayout は暦日の固定フォーマット。
const DateLayout = "2006-01-02"

// Date はタイムゾーンを持たない暦日を表す。
// 瞬間（instant）ではないため、UTCへの変換による日付ずれが起きない。
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate は年月日からDateを生成する。範囲外の値は正規化される（例: 1月32日 → 2月1日）。
func NewDate(year int, month time.Month, day int) Date {
	return fromTime(civil(year, month, day))
}

// DateOf は時刻の壁時計上の年月日をDateとして返す。ロケーション変換は行わない。
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// civil は暦日計算用の time.Time を返す。
// UTCは暦の計算器としてのみ使用し、利用者のタイムゾーンとは無関係。
func civil(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}

func fromTime(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

func (d Date) time() time.Time {
	return civil(d.Year, d.Month, d.Day)
}

// String は YYYY-MM-DD 形式の文字列を返す。
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// IsZero はゼロ値かどうかを返す。
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Weekday は曜日を返す。
func (d Date) Weekday() time.Weekday {
	return d.time().Weekday()
}

// AddDays は日数を加算したDateを返す。
func (d Date) AddDays(n int) Date {
	return fromTime(d.time().AddDate(0, 0, n))
}

// Before はdがotherより前の日付かどうかを返す。
func (d Date) Before(other Date) bool {
	return d.time().Before(other.time())
}

// Monday はdを含むISO週の月曜日を返す。
func (d Date) Monday() Date {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDays(-offset)
}

// ToISOWeek は暦日が属するISO年とISO週番号を返す。
// 週は月曜始まりで、その年の最初の木曜日を含む週が第1週となる。
// 12月29〜31日は翌年の第1週に、1月1〜3日は前年の第52/53週に属することがある。
func ToISOWeek(d Date) (isoYear, isoWeek int) {
	return d.time().ISOWeek()
}

// FromISOWeek はISO週の木曜日を返す。
// 年と週の組しか分からない場合に、その週を代表する暦日として使用する。
func FromISOWeek(isoYear, isoWeek int) Date {
	// 1月4日は必ず第1週に含まれる
	jan4 := NewDate(isoYear, time.January, 4)
	week1Monday := jan4.Monday()
	return week1Monday.AddDays((isoWeek-1)*7 + 3)
}

// WeeksInYear はISO年に含まれる週数（52または53）を返す。
func WeeksInYear(isoYear int) int {
	_, w := ToISOWeek(NewDate(isoYear, time.December, 28))
	return w
}

// ValidWeek はISO年と週番号の組が実在するかを返す。
func ValidWeek(isoYear, isoWeek int) bool {
	return isoWeek >= 1 && isoWeek <= WeeksInYear(isoYear)
}

// ParseDate は YYYY-MM-DD 形式の文字列を厳密にパースする。
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// 書式の揺れたタイムスタンプとして受け付ける年の範囲。
// 年を含まない文字列（例: "Aug 23"）は0年として解釈されるため、この範囲で弾く。
const (
	minLooseYear = 1900
	maxLooseYear = 9999
)

// ParseLooseTime は書式の揺れたタイムスタンプをパースする。
// パースできない場合や、年が minLooseYear〜maxLooseYear の範囲外の場合はfalseを返す。
func ParseLooseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Time{}, false
	}
	if y := t.Year(); y < minLooseYear || y > maxLooseYear {
		return time.Time{}, false
	}
	return t, true
}

// ParseLooseDate は書式の揺れたタイムスタンプから暦日を取り出す。
// 文字列自身のオフセットにおける年月日をそのまま使い、タイムゾーン変換は行わない。
func ParseLooseDate(s string) (Date, bool) {
	t, ok := ParseLooseTime(s)
	if !ok {
		return Date{}, false
	}
	return DateOf(t), true
}

// MonthRange は指定月の半開区間 [月初, 翌月初) を返す。
func MonthRange(year int, month time.Month) (start, next Date) {
	start = NewDate(year, month, 1)
	next = fromTime(start.time().AddDate(0, 1, 0))
	return start, next
}

// Clock は設定されたロケーションにおける「今日」を提供する。
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// NewClock はClockを生成する。locがnilの場合はtime.Localを使用する。
func NewClock(loc *time.Location) *Clock {
	if loc == nil {
		loc = time.Local
	}
	return &Clock{loc: loc, now: time.Now}
}

// NewFixedClock は常に同じ時刻を返すClockを生成する。テストで使用する。
func NewFixedClock(t time.Time) *Clock {
	return &Clock{loc: t.Location(), now: func() time.Time { return t }}
}

// Today は現在の壁時計上の暦日を返す。
func (c *Clock) Today() Date {
	return DateOf(c.now().In(c.loc))
}

// LocalToday は現在の暦日を YYYY-MM-DD 形式で返す。
// UTCの瞬間を経由せず、壁時計の年月日から直接組み立てる。
func (c *Clock) LocalToday() string {
	return c.Today().String()
}

// CurrentYear は現在の暦年を返す。
func (c *Clock) CurrentYear() int {
	return c.Today().Year
}
