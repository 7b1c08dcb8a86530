// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/weeklynews/internal/model"
)

// FavouriteRepository はお気に入りレコードの外部キーストアのインターフェース。
// キーはURLHashで、同じキーのレコードは高々1件。
type FavouriteRepository interface {
	// Exists はurlHashのレコードが存在するかどうかを返す。
	Exists(ctx context.Context, urlHash string) (bool, error)

	// Insert はレコードを追加する。同じurlHashのレコードがすでに存在する場合は何もしない。
	Insert(ctx context.Context, rec *model.FavouriteRecord) error

	// Delete はurlHashのレコードを削除する。存在しない場合もエラーにしない。
	Delete(ctx context.Context, urlHash string) error

	// ListByYear はiso_yearが一致するレコードをday_dateの降順で返す。
	ListByYear(ctx context.Context, isoYear int) ([]model.FavouriteRecord, error)

	// ListByDateRange は day_date が [start, end) に入るレコードをday_dateの降順で返す。
	// start, endは YYYY-MM-DD 形式。
	ListByDateRange(ctx context.Context, start, end string) ([]model.FavouriteRecord, error)

	// Count はレコードの総数を返す。
	Count(ctx context.Context) (int, error)

	// Ping はストアへの疎通を確認する。
	Ping(ctx context.Context) error
}

// rowScanner は *sql.Rows と *sql.Row の共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanFavourite は favouriteColumns の順に並んだ1行を読み取る。
func scanFavourite(s rowScanner) (model.FavouriteRecord, error) {
	var rec model.FavouriteRecord
	var summary nullString
	var isoYear, isoWeek nullInt
	if err := s.Scan(&rec.URLHash, &rec.URL, &rec.Title, &summary, &isoYear, &isoWeek, &rec.DayDate); err != nil {
		return model.FavouriteRecord{}, err
	}
	rec.Summary = summary.ptr()
	rec.ISOYear = isoYear.ptr()
	rec.ISOWeek = isoWeek.ptr()
	return rec, nil
}

// queryer は *sql.DB のクエリ実行部分。
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// queryFavourites は一覧クエリを実行して全行を読み取る。該当なしの場合は空スライスを返す。
func queryFavourites(ctx context.Context, q queryer, query string, args ...any) ([]model.FavouriteRecord, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("お気に入り一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	recs := make([]model.FavouriteRecord, 0)
	for rows.Next() {
		rec, err := scanFavourite(rows)
		if err != nil {
			return nil, fmt.Errorf("お気に入り行の読み取りに失敗しました: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("お気に入り一覧の走査に失敗しました: %w", err)
	}
	return recs, nil
}
