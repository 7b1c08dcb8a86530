package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/weeklynews/internal/model"
)

// PostgreSQLのday_dateはDATE型のため、文字列で読むときはYYYY-MM-DDに整形する。
const postgresFavouriteColumns = `url_hash, url, title, summary, iso_year, iso_week, to_char(day_date, 'YYYY-MM-DD')`

// PostgresFavouriteRepo はPostgreSQLを使用したお気に入りリポジトリ。
type PostgresFavouriteRepo struct {
	db *sql.DB
}

// NewPostgresFavouriteRepo はPostgresFavouriteRepoを生成する。
func NewPostgresFavouriteRepo(db *sql.DB) *PostgresFavouriteRepo {
	return &PostgresFavouriteRepo{db: db}
}

// Exists はurlHashのレコードが存在するかどうかを返す。
func (r *PostgresFavouriteRepo) Exists(ctx context.Context, urlHash string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM favourites WHERE url_hash = $1)`,
		urlHash,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("お気に入りの存在確認に失敗しました: %w", err)
	}
	return exists, nil
}

// Insert はレコードを追加する。既存のurlHashとは衝突させずに何もしない。
func (r *PostgresFavouriteRepo) Insert(ctx context.Context, rec *model.FavouriteRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO favourites (url_hash, url, title, summary, iso_year, iso_week, day_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (url_hash) DO NOTHING`,
		rec.URLHash, rec.URL, rec.Title, stringArg(rec.Summary), intArg(rec.ISOYear), intArg(rec.ISOWeek), rec.DayDate,
	)
	if err != nil {
		return fmt.Errorf("お気に入りの追加に失敗しました: %w", err)
	}
	return nil
}

// Delete はurlHashのレコードを削除する。
func (r *PostgresFavouriteRepo) Delete(ctx context.Context, urlHash string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM favourites WHERE url_hash = $1`, urlHash)
	if err != nil {
		return fmt.Errorf("お気に入りの削除に失敗しました: %w", err)
	}
	return nil
}

// ListByYear はiso_yearが一致するレコードをday_dateの降順で返す。
func (r *PostgresFavouriteRepo) ListByYear(ctx context.Context, isoYear int) ([]model.FavouriteRecord, error) {
	return queryFavourites(ctx, r.db,
		`SELECT `+postgresFavouriteColumns+`
		 FROM favourites WHERE iso_year = $1
		 ORDER BY day_date DESC, created_at DESC`,
		isoYear,
	)
}

// ListByDateRange は day_date が [start, end) に入るレコードをday_dateの降順で返す。
func (r *PostgresFavouriteRepo) ListByDateRange(ctx context.Context, start, end string) ([]model.FavouriteRecord, error) {
	return queryFavourites(ctx, r.db,
		`SELECT `+postgresFavouriteColumns+`
		 FROM favourites WHERE day_date >= $1::date AND day_date < $2::date
		 ORDER BY day_date DESC, created_at DESC`,
		start, end,
	)
}

// Count はレコードの総数を返す。
func (r *PostgresFavouriteRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM favourites`).Scan(&count); err != nil {
		return 0, fmt.Errorf("お気に入り数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// Ping はストアへの疎通を確認する。
func (r *PostgresFavouriteRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

var _ FavouriteRepository = (*PostgresFavouriteRepo)(nil)
