// Package digest は週次ダイジェストのアーカイブ取得と正規化を提供する。
package digest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/weeklynews/internal/model"
)

// DefaultExt はアーカイブファイルのデフォルト拡張子。
const DefaultExt = "json"

// 読み込み結果のメトリクスラベル。
const (
	ResultOK           = "ok"
	ResultNotFound     = "not_found"
	ResultParseFailure = "parse_failure"
	ResultFetchFailure = "fetch_failure"
)

// Recorder は読み込み結果を記録するインターフェース。metrics.Collectorが実装する。
type Recorder interface {
	RecordDigestLoad(result string, duration time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) RecordDigestLoad(string, time.Duration) {}

// ArchiveKey はISO年と週からアーカイブのキーを組み立てる。
// 形式: <basePath>/<isoYear>/<isoYear>-W<2桁の週>.<ext>
// 外部の生成ジョブが書き出すパスと完全に一致する必要がある。
func ArchiveKey(basePath string, isoYear, isoWeek int, ext string) string {
	if ext == "" {
		ext = DefaultExt
	}
	name := fmt.Sprintf("%d/%d-W%02d.%s", isoYear, isoYear, isoWeek, strings.TrimPrefix(ext, "."))
	basePath = strings.TrimRight(basePath, "/")
	if basePath == "" {
		return name
	}
	return basePath + "/" + name
}

// Result は読み込み結果。失敗時もエラーとしては返さず、空の結果と原因を保持する。
type Result struct {
	Key    string
	Digest *model.WeeklyDigest // 空の結果ではnil
	Err    *model.APIError     // 成功時はnil
}

// Empty は空の結果かどうかを返す。
func (r *Result) Empty() bool {
	return r.Digest == nil
}

// Cause は空の結果の原因を人が読める文字列で返す。
func (r *Result) Cause() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Message
}

// Loader は1週分のダイジェストを取得・正規化する。
type Loader struct {
	source     Source
	normalizer *Normalizer
	basePath   string
	ext        string
	recorder   Recorder
	logger     *slog.Logger
}

// LoaderConfig はLoaderの設定。
type LoaderConfig struct {
	BasePath string
	Ext      string
}

// NewLoader はLoaderを生成する。recorderがnilの場合は記録しない。
func NewLoader(source Source, normalizer *Normalizer, cfg LoaderConfig, recorder Recorder, logger *slog.Logger) *Loader {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	if cfg.Ext == "" {
		cfg.Ext = DefaultExt
	}
	return &Loader{
		source:     source,
		normalizer: normalizer,
		basePath:   cfg.BasePath,
		ext:        cfg.Ext,
		recorder:   recorder,
		logger:     logger,
	}
}

// Load は指定週のダイジェストを読み込む。
// 取得失敗・パース失敗は呼び出し元へ伝播させず、原因付きの空の結果として返す。
func (l *Loader) Load(ctx context.Context, isoYear, isoWeek int) *Result {
	start := time.Now()
	key := ArchiveKey(l.basePath, isoYear, isoWeek, l.ext)

	data, err := l.source.Fetch(ctx, key)
	if err != nil {
		if errors.Is(err, ErrArchiveNotFound) {
			l.logger.Info("ダイジェストが存在しません", slog.String("key", key))
			l.recorder.RecordDigestLoad(ResultNotFound, time.Since(start))
			return &Result{Key: key, Err: model.NewArchiveNotFoundError(isoYear, isoWeek)}
		}
		l.logger.Error("ダイジェストの取得に失敗しました",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		l.recorder.RecordDigestLoad(ResultFetchFailure, time.Since(start))
		return &Result{Key: key, Err: model.NewArchiveFetchFailedError(isoYear, isoWeek)}
	}

	d, err := l.normalizer.Normalize(data, isoYear, isoWeek)
	if err != nil {
		l.logger.Error("ダイジェストの解析に失敗しました",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		l.recorder.RecordDigestLoad(ResultParseFailure, time.Since(start))
		return &Result{Key: key, Err: model.NewArchiveParseFailedError(isoYear, isoWeek)}
	}

	l.recorder.RecordDigestLoad(ResultOK, time.Since(start))
	l.logger.Info("ダイジェストを読み込みました",
		slog.String("key", key),
		slog.Int("items_count", len(d.Items)),
	)
	return &Result{Key: key, Digest: d}
}
