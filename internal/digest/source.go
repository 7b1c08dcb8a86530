package digest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
)

// ErrArchiveNotFound はアーカイブが存在しないことを示す。
// まだ公開されていない週では通常発生する。
var ErrArchiveNotFound = errors.New("archive not found")

// Source はアーカイブキーから文書本体を取得するインターフェース。
type Source interface {
	// Fetch はキーに対応する文書を返す。存在しない場合はErrArchiveNotFoundを返す。
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// HTTPSource はHTTP(S)で公開されたアーカイブを取得する。
type HTTPSource struct {
	client  *http.Client
	baseURL string
	maxSize int64
}

// NewHTTPSource はHTTPSourceを生成する。
// clientにはsecurity.NewArchiveClientで生成したクライアントを渡すことを想定している。
func NewHTTPSource(client *http.Client, baseURL string, maxSize int64) *HTTPSource {
	return &HTTPSource{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		maxSize: maxSize,
	}
}

// Fetch はbaseURL/keyをGETする。404/410は未公開として扱う。
func (s *HTTPSource) Fetch(ctx context.Context, key string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/"+strings.TrimLeft(key, "/"), nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "WeeklyNews/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("アーカイブの取得に失敗しました: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, ErrArchiveNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("アーカイブサーバーがステータス %d を返しました", resp.StatusCode)
	}

	return readLimited(resp.Body, s.maxSize)
}

// FSSource はファイルシステム上のアーカイブを取得する。
type FSSource struct {
	fsys fs.FS
}

// NewFSSource はディレクトリrootをルートとするFSSourceを生成する。
func NewFSSource(root string) *FSSource {
	return &FSSource{fsys: os.DirFS(root)}
}

// NewFSSourceFromFS は任意のfs.FSからFSSourceを生成する。テストで使用する。
func NewFSSourceFromFS(fsys fs.FS) *FSSource {
	return &FSSource{fsys: fsys}
}

// Fetch はkeyに対応するファイルを読み込む。
func (s *FSSource) Fetch(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := path.Clean(strings.TrimLeft(key, "/"))
	data, err := fs.ReadFile(s.fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrArchiveNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("アーカイブの読み込みに失敗しました: %w", err)
	}
	return data, nil
}

// readLimited はmaxSizeを超える本文をエラーにする。maxSizeが0以下の場合は無制限。
func readLimited(r io.Reader, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("アーカイブのサイズが上限 %d バイトを超えています", maxSize)
	}
	return data, nil
}
