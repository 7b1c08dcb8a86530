package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/weeklynews/internal/calendar"
	"github.com/hitoshi/weeklynews/internal/config"
	"github.com/hitoshi/weeklynews/internal/database"
	"github.com/hitoshi/weeklynews/internal/digest"
	"github.com/hitoshi/weeklynews/internal/favourites"
	"github.com/hitoshi/weeklynews/internal/handler"
	"github.com/hitoshi/weeklynews/internal/logger"
	"github.com/hitoshi/weeklynews/internal/metrics"
	"github.com/hitoshi/weeklynews/internal/middleware"
	"github.com/hitoshi/weeklynews/internal/repository"
	"github.com/hitoshi/weeklynews/internal/security"
	"github.com/hitoshi/weeklynews/internal/view"
)

// storeConnectTimeout はお気に入りストアへの起動時の接続確認の待ち時間の上限。
const storeConnectTimeout = 5 * time.Second

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、LOG_LEVELに従ったJSON構造化ログをグローバルロガーとしてセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, *slog.Logger, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	log := logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたレベルでロガーを作り直す
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn("unknown LOG_LEVEL, falling back to info", slog.String("log_level", cfg.LogLevel))
	}
	return cfg, logger.SetupDefault(w, level), nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。SIGINTまたはSIGTERMを受信するとキャンセルされる。
func Run(w io.Writer, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return RunContext(ctx, w, args)
}

// RunContext はctxがキャンセルされるまでサブコマンドを実行する。
func RunContext(ctx context.Context, w io.Writer, args []string) error {
	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if len(args) > 0 && args[0] == string(CommandHealthcheck) {
		return runHealthcheck(healthcheckPort())
	}

	root := NewRootCommand(w)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// archive はダイジェストの読み込みに必要な部品。
type archive struct {
	clock  *calendar.Clock
	loader *digest.Loader
}

// newArchive はARCHIVE_ROOTがhttp(s)のURLであればHTTPSource、それ以外はFSSourceからローダーを組み立てる。
// recorderがnilの場合は読み込み結果を記録しない。
func newArchive(cfg *config.Config, recorder digest.Recorder, log *slog.Logger) (*archive, error) {
	var source digest.Source
	if security.IsRemoteBase(cfg.ArchiveRoot) {
		if err := security.ValidateArchiveBaseURL(cfg.ArchiveRoot, cfg.ArchiveAllowPrivate); err != nil {
			return nil, fmt.Errorf("invalid ARCHIVE_ROOT: %w", err)
		}
		client := security.NewArchiveClient(security.ArchiveClientConfig{
			Timeout:      cfg.ArchiveTimeout,
			AllowPrivate: cfg.ArchiveAllowPrivate,
		})
		source = digest.NewHTTPSource(client, cfg.ArchiveRoot, cfg.ArchiveMaxSize)
	} else {
		source = digest.NewFSSource(cfg.ArchiveRoot)
	}

	normalizer := digest.NewNormalizer(security.NewTextSanitizer(), log)
	loader := digest.NewLoader(source, normalizer, digest.LoaderConfig{
		BasePath: cfg.ArchivePrefix,
		Ext:      cfg.ArchiveExt,
	}, recorder, log)

	return &archive{clock: calendar.NewClock(cfg.Location()), loader: loader}, nil
}

// openFavouriteStore はお気に入りストアに接続し、マイグレーションを適用してリポジトリを返す。
// DATABASE_URLが未設定の場合はnilのリポジトリとnilのエラーを返す。
// 接続できない場合はnilのリポジトリと原因を返し、呼び出し側は縮退モードで起動する。
// 返すclose関数は常に呼び出してよい。
func openFavouriteStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (repository.FavouriteRepository, func(), error) {
	noop := func() {}
	if !cfg.FavouritesEnabled() {
		return nil, noop, nil
	}

	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, noop, fmt.Errorf("failed to open favourites store: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, storeConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, noop, fmt.Errorf("failed to connect to favourites store %s: %w", maskDatabaseURL(cfg.DatabaseURL), err)
	}

	if err := database.Migrate(db, cfg.DatabaseDriver); err != nil {
		db.Close()
		return nil, noop, fmt.Errorf("failed to migrate favourites store: %w", err)
	}

	log.Info("favourites store connection established", slog.String("driver", cfg.DatabaseDriver))

	closeDB := func() { db.Close() }
	if cfg.DatabaseDriver == config.DriverSQLite {
		return repository.NewSQLiteFavouriteRepo(db), closeDB, nil
	}
	return repository.NewPostgresFavouriteRepo(db), closeDB, nil
}

// unreachableStore は起動時に接続できなかったストア。/healthで常にその原因を返す。
type unreachableStore struct {
	err error
}

func (s unreachableStore) Ping(context.Context) error {
	return s.err
}

// rateLimiterConfig は分単位の設定値をリミッターの秒単位のレートに変換する。
// バーストは1分あたりの上限と同じにする。
func rateLimiterConfig(cfg *config.Config) middleware.RateLimiterConfig {
	rl := middleware.DefaultRateLimiterConfig()
	rl.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60)
	rl.GeneralBurst = cfg.RateLimitGeneral
	rl.WriteRate = rate.Limit(float64(cfg.RateLimitWrite) / 60)
	rl.WriteBurst = cfg.RateLimitWrite
	return rl
}

// newServer は全依存関係をワイヤリングしたHTTPサーバーを返す。
// 返すcleanup関数でリミッターとストア接続を解放する。
func newServer(ctx context.Context, cfg *config.Config, log *slog.Logger) (*http.Server, func(), error) {
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	arc, err := newArchive(cfg, collector, log)
	if err != nil {
		return nil, nil, err
	}

	repo, closeStore, storeErr := openFavouriteStore(ctx, cfg, log)
	hasher, err := favourites.NewHasher(cfg.FavouritesHash)
	if err != nil {
		closeStore()
		return nil, nil, err
	}

	// 設定済みのストアに接続できない場合は縮退モードで起動し、/healthは503を返す
	var (
		favs  *favourites.Service
		store handler.StorePinger
	)
	switch {
	case storeErr != nil:
		favs = favourites.NewDisabledService(storeErr, hasher, arc.clock, collector, log)
		store = unreachableStore{err: storeErr}
	default:
		favs = favourites.NewService(repo, hasher, arc.clock, collector, log)
		if repo != nil {
			store = repo
		}
	}
	viewRouter := view.NewRouter(arc.loader, favs, arc.clock, log)

	limiter := middleware.NewRateLimiter(rateLimiterConfig(cfg), log)
	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            log,
		Clock:             arc.clock,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       limiter,
		StatusRecorder:    collector,
		TrustProxy:        cfg.TrustProxy,
		Loader:            arc.loader,
		Favourites:        favs,
		View:              viewRouter,
		Store:             store,
		Gatherer:          registry,
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	cleanup := func() {
		limiter.Stop()
		closeStore()
	}
	return server, cleanup, nil
}

// runServe はAPIサーバーモードで起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	server, cleanup, err := newServer(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	log.Info("API server starting",
		slog.String("addr", server.Addr),
		slog.String("archive_root", cfg.ArchiveRoot),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen error: %w", err)
	case <-ctx.Done():
	}
	log.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("API server stopped gracefully")
	return nil
}

// runMigrate はお気に入りストアのマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config, log *slog.Logger) error {
	if !cfg.FavouritesEnabled() {
		return errors.New("DATABASE_URL is required for migrate")
	}

	log.Info("running database migrations",
		slog.String("driver", cfg.DatabaseDriver),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseDriver, cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	log.Info("database migrations completed successfully")
	return nil
}

// healthcheckPort は設定全体を読み込まずにSERVER_PORTだけを参照する。
func healthcheckPort() string {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		return port
	}
	return "8080"
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	endpoint := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(endpoint)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
// URLとして解釈できない値は全体を伏せる。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "***"
	}
	return u.Redacted()
}
