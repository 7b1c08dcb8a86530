// Package favourites はお気に入り（ブックマーク）の切り替え・一覧・削除を提供する。
// レコードはURLのハッシュをキーとして外部ストアに保存し、同一URLのレコードは高々1件に保つ。
package favourites

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/weeklynews/internal/calendar"
	"github.com/hitoshi/weeklynews/internal/model"
	"github.com/hitoshi/weeklynews/internal/repository"
)

// ErrToggleInProgress は同じ記事の切り替えが処理中であることを示す。
var ErrToggleInProgress = errors.New("favourite toggle already in progress")

// 切り替え結果のメトリクスラベル。
const (
	ToggleOn         = "on"
	ToggleOff        = "off"
	ToggleFailed     = "failed"
	ToggleInProgress = "in_progress"
)

// Recorder は切り替え結果とストア障害を記録するインターフェース。metrics.Collectorが実装する。
type Recorder interface {
	RecordFavouriteToggle(result string)
	RecordStoreFailure(op string)
}

type noopRecorder struct{}

func (noopRecorder) RecordFavouriteToggle(string) {}
func (noopRecorder) RecordStoreFailure(string)    {}

// WeekRef はISO年と週の組。ゼロ値は「指定なし」を表す。
type WeekRef struct {
	ISOYear int `json:"iso_year"`
	ISOWeek int `json:"iso_week"`
}

// Valid は実在するISO週を指しているかどうかを返す。
func (w WeekRef) Valid() bool {
	return w.ISOYear > 0 && calendar.ValidWeek(w.ISOYear, w.ISOWeek)
}

// ToggleContext は切り替え時に呼び出し元が持っている週の情報。
type ToggleContext struct {
	Explicit WeekRef // 呼び出し元が明示的に指定した週
	Digest   WeekRef // 読み込み中のダイジェストの週
}

// Service はお気に入りのユースケースを提供する。
// repoがnilの場合は縮退モードとなり、すべての操作が副作用のない既定値を返す。
type Service struct {
	repo     repository.FavouriteRepository
	hasher   *Hasher
	clock    *calendar.Clock
	recorder Recorder
	logger   *slog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewService はServiceを生成する。
// repoがnilの場合は縮退モードで起動し、その旨を一度だけログに記録する。
func NewService(repo repository.FavouriteRepository, hasher *Hasher, clock *calendar.Clock, recorder Recorder, logger *slog.Logger) *Service {
	if repo == nil {
		return NewDisabledService(nil, hasher, clock, recorder, logger)
	}
	return newService(repo, hasher, clock, recorder, logger)
}

// NewDisabledService は縮退モードのServiceを生成し、原因とともに一度だけログに記録する。
// causeがnilの場合はストアが設定されていないものとして扱う。
func NewDisabledService(cause error, hasher *Hasher, clock *calendar.Clock, recorder Recorder, logger *slog.Logger) *Service {
	var attrs []any
	if cause != nil {
		attrs = append(attrs, slog.String("error", cause.Error()))
	}
	logger.Warn("お気に入りストアが利用できないため、お気に入り機能を無効化します", attrs...)
	return newService(nil, hasher, clock, recorder, logger)
}

func newService(repo repository.FavouriteRepository, hasher *Hasher, clock *calendar.Clock, recorder Recorder, logger *slog.Logger) *Service {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Service{
		repo:     repo,
		hasher:   hasher,
		clock:    clock,
		recorder: recorder,
		logger:   logger,
		inFlight: make(map[string]struct{}),
	}
}

// Enabled はお気に入りストアが利用可能かどうかを返す。
func (s *Service) Enabled() bool {
	return s.repo != nil
}

// HashScheme は使用中のハッシュ方式を返す。
func (s *Service) HashScheme() string {
	return s.hasher.Scheme()
}

// IsFavourite はurlがお気に入りに登録されているかどうかを返す。
// 縮退モードやストア障害時はfalseを返す。
func (s *Service) IsFavourite(ctx context.Context, url string) bool {
	if !s.Enabled() {
		return false
	}
	hash := s.hasher.Hash(url)
	exists, err := s.repo.Exists(ctx, hash)
	if err != nil {
		s.storeFailure("exists", hash, err)
		return false
	}
	return exists
}

// Toggle は記事のお気に入り状態を反転し、新しい状態を返す。
// 登録済みなら削除してfalseを、未登録ならレコードを作成してtrueを返す。
// ストア障害時は状態を変えず、失敗した時点で判明している状態とエラーを返す。
// 同じ記事の切り替えが処理中の場合はErrToggleInProgressを返す。
func (s *Service) Toggle(ctx context.Context, item model.NewsItem, tc ToggleContext) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}

	hash := s.hasher.Hash(item.URL)
	if !s.acquire(hash) {
		s.recorder.RecordFavouriteToggle(ToggleInProgress)
		return false, ErrToggleInProgress
	}
	defer s.release(hash)

	exists, err := s.repo.Exists(ctx, hash)
	if err != nil {
		s.storeFailure("exists", hash, err)
		s.recorder.RecordFavouriteToggle(ToggleFailed)
		return false, model.NewStoreOperationFailedError("exists")
	}

	if exists {
		if err := s.repo.Delete(ctx, hash); err != nil {
			s.storeFailure("delete", hash, err)
			s.recorder.RecordFavouriteToggle(ToggleFailed)
			return true, model.NewStoreOperationFailedError("delete")
		}
		s.recorder.RecordFavouriteToggle(ToggleOff)
		s.logger.Info("お気に入りを解除しました", slog.String("url_hash", hash))
		return false, nil
	}

	rec := s.NewRecord(item, tc)
	if err := s.repo.Insert(ctx, &rec); err != nil {
		s.storeFailure("insert", hash, err)
		s.recorder.RecordFavouriteToggle(ToggleFailed)
		return false, model.NewStoreOperationFailedError("insert")
	}
	s.recorder.RecordFavouriteToggle(ToggleOn)
	s.logger.Info("お気に入りに登録しました",
		slog.String("url_hash", hash),
		slog.String("day_date", rec.DayDate),
	)
	return true, nil
}

// Remove はurlのお気に入りを削除する。登録されていない場合は何もしない。
// 縮退モードでは何もしない。
func (s *Service) Remove(ctx context.Context, url string) error {
	if !s.Enabled() {
		return nil
	}
	hash := s.hasher.Hash(url)
	if err := s.repo.Delete(ctx, hash); err != nil {
		s.storeFailure("delete", hash, err)
		return model.NewStoreOperationFailedError("delete")
	}
	return nil
}

// ListByMonth はお気に入りをday_dateの降順で返す。
// monthが0の場合はISO年yearの全レコード、1〜12の場合はその月の [月初, 翌月初) のレコードを返す。
// 縮退モードやストア障害時は空のスライスを返す。
func (s *Service) ListByMonth(ctx context.Context, year, month int) ([]model.FavouriteRecord, error) {
	if month < 0 || month > 12 {
		return []model.FavouriteRecord{}, model.NewInvalidMonthError(strconv.Itoa(month))
	}
	if !s.Enabled() {
		return []model.FavouriteRecord{}, nil
	}

	var (
		recs []model.FavouriteRecord
		err  error
	)
	if month == 0 {
		recs, err = s.repo.ListByYear(ctx, year)
	} else {
		start, next := calendar.MonthRange(year, time.Month(month))
		recs, err = s.repo.ListByDateRange(ctx, start.String(), next.String())
	}
	if err != nil {
		s.storeFailure("list", "", err)
		return []model.FavouriteRecord{}, model.NewStoreOperationFailedError("list")
	}
	return recs, nil
}

// NewRecord は記事からお気に入りレコードを組み立てる。
// 要約は箇条書きを改行で連結し、箇条書きがない場合はnilにする。
func (s *Service) NewRecord(item model.NewsItem, tc ToggleContext) model.FavouriteRecord {
	day := s.ResolveDayDate(item, tc)

	var week WeekRef
	switch {
	case tc.Explicit.Valid():
		week = tc.Explicit
	case tc.Digest.Valid():
		week = tc.Digest
	default:
		week.ISOYear, week.ISOWeek = calendar.ToISOWeek(day)
	}

	rec := model.FavouriteRecord{
		URLHash: s.hasher.Hash(item.URL),
		URL:     item.URL,
		Title:   item.Title,
		ISOYear: &week.ISOYear,
		ISOWeek: &week.ISOWeek,
		DayDate: day.String(),
	}
	if len(item.SummaryBullets) > 0 {
		summary := strings.Join(item.SummaryBullets, "\n")
		rec.Summary = &summary
	}
	return rec
}

// ResolveDayDate はレコードのday_dateを決定する。最初に該当した規則を使う。
//  1. 記事自身の公開日時（日付として解釈できる場合）
//  2. 呼び出し元が明示した週の木曜日
//  3. 読み込み中のダイジェストの週の木曜日
//  4. 今日
func (s *Service) ResolveDayDate(item model.NewsItem, tc ToggleContext) calendar.Date {
	if d, ok := calendar.ParseLooseDate(item.Published); ok {
		return d
	}
	if tc.Explicit.Valid() {
		return calendar.FromISOWeek(tc.Explicit.ISOYear, tc.Explicit.ISOWeek)
	}
	if tc.Digest.Valid() {
		return calendar.FromISOWeek(tc.Digest.ISOYear, tc.Digest.ISOWeek)
	}
	return s.clock.Today()
}

func (s *Service) acquire(hash string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[hash]; busy {
		return false
	}
	s.inFlight[hash] = struct{}{}
	return true
}

func (s *Service) release(hash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, hash)
}

func (s *Service) storeFailure(op, hash string, err error) {
	s.recorder.RecordStoreFailure(op)
	attrs := []any{slog.String("op", op), slog.String("error", err.Error())}
	if hash != "" {
		attrs = append(attrs, slog.String("url_hash", hash))
	}
	s.logger.Error("お気に入りストアの操作に失敗しました", attrs...)
}
