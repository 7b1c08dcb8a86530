package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/weeklynews/internal/model"
)

const sqliteFavouriteColumns = `url_hash, url, title, summary, iso_year, iso_week, day_date`

// SQLiteFavouriteRepo はSQLiteを使用したお気に入りリポジトリ。
// 単一ユーザーのローカル運用向け。day_dateはYYYY-MM-DDのTEXTで保持し、文字列比較で範囲検索する。
type SQLiteFavouriteRepo struct {
	db *sql.DB
}

// NewSQLiteFavouriteRepo はSQLiteFavouriteRepoを生成する。
func NewSQLiteFavouriteRepo(db *sql.DB) *SQLiteFavouriteRepo {
	return &SQLiteFavouriteRepo{db: db}
}

// Exists はurlHashのレコードが存在するかどうかを返す。
func (r *SQLiteFavouriteRepo) Exists(ctx context.Context, urlHash string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM favourites WHERE url_hash = ?)`,
		urlHash,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("お気に入りの存在確認に失敗しました: %w", err)
	}
	return exists, nil
}

// Insert はレコードを追加する。既存のurlHashとは衝突させずに何もしない。
func (r *SQLiteFavouriteRepo) Insert(ctx context.Context, rec *model.FavouriteRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO favourites (url_hash, url, title, summary, iso_year, iso_week, day_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (url_hash) DO NOTHING`,
		rec.URLHash, rec.URL, rec.Title, stringArg(rec.Summary), intArg(rec.ISOYear), intArg(rec.ISOWeek), rec.DayDate,
	)
	if err != nil {
		return fmt.Errorf("お気に入りの追加に失敗しました: %w", err)
	}
	return nil
}

// Delete はurlHashのレコードを削除する。
func (r *SQLiteFavouriteRepo) Delete(ctx context.Context, urlHash string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM favourites WHERE url_hash = ?`, urlHash)
	if err != nil {
		return fmt.Errorf("お気に入りの削除に失敗しました: %w", err)
	}
	return nil
}

// ListByYear はiso_yearが一致するレコードをday_dateの降順で返す。
func (r *SQLiteFavouriteRepo) ListByYear(ctx context.Context, isoYear int) ([]model.FavouriteRecord, error) {
	return queryFavourites(ctx, r.db,
		`SELECT `+sqliteFavouriteColumns+`
		 FROM favourites WHERE iso_year = ?
		 ORDER BY day_date DESC, created_at DESC`,
		isoYear,
	)
}

// ListByDateRange は day_date が [start, end) に入るレコードをday_dateの降順で返す。
func (r *SQLiteFavouriteRepo) ListByDateRange(ctx context.Context, start, end string) ([]model.FavouriteRecord, error) {
	return queryFavourites(ctx, r.db,
		`SELECT `+sqliteFavouriteColumns+`
		 FROM favourites WHERE day_date >= ? AND day_date < ?
		 ORDER BY day_date DESC, created_at DESC`,
		start, end,
	)
}

// Count はレコードの総数を返す。
func (r *SQLiteFavouriteRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM favourites`).Scan(&count); err != nil {
		return 0, fmt.Errorf("お気に入り数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// Ping はストアへの疎通を確認する。
func (r *SQLiteFavouriteRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

var _ FavouriteRepository = (*SQLiteFavouriteRepo)(nil)
