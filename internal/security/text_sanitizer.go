// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer はアーカイブ由来の文字列（タイトル・要約箇条書き・企業名）から
// HTMLを取り除き、プレーンテキストとして扱えるようにする。
// アーカイブは外部の要約ジョブが生成するため、マークアップ混入を前提に扱う。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// TextSanitizer はプレーンテキスト化のインターフェースを定義する。
type TextSanitizer interface {
	// Text は入力からすべてのタグを除去し、文字参照を展開したプレーンテキストを返す。
	// 前後の空白は取り除き、連続する空白は1つにまとめる。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Text(raw string) string
}

// textSanitizer はTextSanitizerの実装。
// bluemondayのStrictPolicyはゴルーチン間で共有できる。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerの新しいインスタンスを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// Text はタグを除去したプレーンテキストを返す。
// StrictPolicyは出力をHTMLエスケープするため、最後に文字参照を展開する。
func (s *textSanitizer) Text(raw string) string {
	if raw == "" {
		return ""
	}
	stripped := s.policy.Sanitize(raw)
	return strings.Join(strings.Fields(html.UnescapeString(stripped)), " ")
}
