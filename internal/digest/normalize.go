package digest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/hitoshi/weeklynews/internal/calendar"
	"github.com/hitoshi/weeklynews/internal/model"
	"github.com/hitoshi/weeklynews/internal/security"
)

// metadataContainers はメタデータを入れ子にする場合のフィールド名。
var metadataContainers = []string{"meta", "metadata"}

// 同じ意味を持つフィールド名の候補。先に見つかったものを使う。
var (
	yearKeys        = []string{"isoYear", "iso_year", "year"}
	weekKeys        = []string{"isoWeek", "iso_week", "week"}
	generatedAtKeys = []string{"generatedAt", "generated_at"}
)

// rawItem はアーカイブ内の記事1件。型の揺れがあるフィールドはRawMessageで受ける。
type rawItem struct {
	URL            string          `json:"url"`
	Title          string          `json:"title"`
	Category       string          `json:"category"`
	Significance   json.RawMessage `json:"significance"`
	SummaryBullets json.RawMessage `json:"summary_bullets"`
	Companies      json.RawMessage `json:"companies"`
	Published      json.RawMessage `json:"published"`
	Source         string          `json:"source"`
	Tags           json.RawMessage `json:"tags"`
}

// Normalizer はアーカイブ文書を正規の WeeklyDigest に変換する。
type Normalizer struct {
	sanitizer security.TextSanitizer
	logger    *slog.Logger
}

// NewNormalizer はNormalizerを生成する。
func NewNormalizer(sanitizer security.TextSanitizer, logger *slog.Logger) *Normalizer {
	return &Normalizer{sanitizer: sanitizer, logger: logger}
}

// Normalize はアーカイブ文書をパースする。
// メタデータがトップレベルにある形式と、meta/metadata の下に入れ子になった形式の両方を受け付ける。
// メタデータの年・週が解釈できない場合は要求された (fallbackYear, fallbackWeek) を使い、警告を記録する。
// 文書自体がJSONとして不正、またはitemsが配列でない場合はエラーを返す。
func (n *Normalizer) Normalize(raw []byte, fallbackYear, fallbackWeek int) (*model.WeeklyDigest, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("アーカイブ文書のパースに失敗しました: %w", err)
	}

	meta := doc
	for _, key := range metadataContainers {
		nested, ok := doc[key]
		if !ok {
			continue
		}
		var m map[string]json.RawMessage
		if err := json.Unmarshal(nested, &m); err == nil {
			meta = m
			break
		}
	}

	d := &model.WeeklyDigest{ISOYear: fallbackYear, ISOWeek: fallbackWeek}

	year, week, ok := parseMetadataWeek(meta)
	if ok {
		d.ISOYear, d.ISOWeek = year, week
		if year != fallbackYear || week != fallbackWeek {
			n.logger.Warn("アーカイブのメタデータが要求された週と一致しません",
				slog.Int("requested_year", fallbackYear),
				slog.Int("requested_week", fallbackWeek),
				slog.Int("document_year", year),
				slog.Int("document_week", week),
			)
		}
	} else {
		n.logger.Warn("アーカイブのメタデータを解釈できないため要求された週を使用します",
			slog.Int("iso_year", fallbackYear),
			slog.Int("iso_week", fallbackWeek),
		)
	}

	if v, ok := firstString(meta, generatedAtKeys); ok {
		d.GeneratedAt = v
	} else if v, ok := firstString(doc, generatedAtKeys); ok {
		d.GeneratedAt = v
	}

	itemsRaw, ok := doc["items"]
	if !ok {
		itemsRaw, ok = meta["items"]
	}
	var rawItems []json.RawMessage
	if ok && !isJSONNull(itemsRaw) {
		if err := json.Unmarshal(itemsRaw, &rawItems); err != nil {
			return nil, fmt.Errorf("itemsが配列ではありません: %w", err)
		}
	}

	seen := make(map[string]bool, len(rawItems))
	d.Items = make([]model.NewsItem, 0, len(rawItems))
	for i, r := range rawItems {
		var ri rawItem
		if err := json.Unmarshal(r, &ri); err != nil {
			n.logger.Warn("記事をスキップしました", slog.Int("index", i), slog.String("error", err.Error()))
			continue
		}
		item, ok := n.normalizeItem(ri)
		if !ok {
			n.logger.Warn("URLのない記事をスキップしました", slog.Int("index", i))
			continue
		}
		if seen[item.URL] {
			continue
		}
		seen[item.URL] = true
		d.Items = append(d.Items, item)
	}

	return d, nil
}

// normalizeItem は記事1件の欠損値・型の揺れを解消し、完全に埋まった NewsItem を返す。
// 下流のコンポーネントはフィールドごとのデフォルト処理を再実装しない。
// URLが空の場合はfalseを返す。
func (n *Normalizer) normalizeItem(ri rawItem) (model.NewsItem, bool) {
	url := strings.TrimSpace(ri.URL)
	if url == "" {
		return model.NewsItem{}, false
	}

	item := model.NewsItem{
		URL:            url,
		Title:          n.sanitizer.Text(ri.Title),
		Category:       n.sanitizer.Text(ri.Category),
		Significance:   ParseSignificance(ri.Significance),
		SummaryBullets: n.cleanList(parseStringList(ri.SummaryBullets), false),
		Companies:      n.cleanList(parseStringList(ri.Companies), true),
		Source:         strings.TrimSpace(ri.Source),
		Tags:           n.cleanList(parseStringList(ri.Tags), true),
	}
	if item.Category == "" {
		item.Category = model.DefaultCategory
	}

	if published, ok := parseString(ri.Published); ok {
		item.Published = strings.TrimSpace(published)
		if t, ok := calendar.ParseLooseTime(item.Published); ok {
			item.PublishedAt = &t
		}
	}

	return item, true
}

func (n *Normalizer) cleanList(values []string, dedup bool) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = n.sanitizer.Text(v)
		if v == "" {
			continue
		}
		if dedup {
			if seen[v] {
				continue
			}
			seen[v] = true
		}
		out = append(out, v)
	}
	return out
}

// ParseSignificance は重要度を解釈する。
// 1〜5の整数（JSON数値または整数文字列）のみ有効とし、それ以外は最小値1を返す。
func ParseSignificance(raw json.RawMessage) int {
	v, ok := parseInt(raw)
	if !ok || v < model.MinSignificance || v > model.MaxSignificance {
		return model.MinSignificance
	}
	return v
}

// ParseWeekValue は週の値を解釈する。
// 受け付ける形式: 35, "35", "W35", "2025-W35", "2025W35"。
// 年を含まない形式ではyearは0を返す。
func ParseWeekValue(raw json.RawMessage) (year, week int, ok bool) {
	if w, isInt := parseInt(raw); isInt {
		return 0, w, w > 0
	}
	s, isString := parseString(raw)
	if !isString {
		return 0, 0, false
	}
	return parseWeekString(s)
}

func parseWeekString(s string) (year, week int, ok bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, 0, false
	}

	yearPart, weekPart := "", s
	if i := strings.Index(s, "W"); i >= 0 {
		yearPart = strings.TrimSuffix(s[:i], "-")
		weekPart = s[i+1:]
	}

	week, err := strconv.Atoi(weekPart)
	if err != nil || week <= 0 {
		return 0, 0, false
	}
	if yearPart == "" {
		return 0, week, true
	}
	year, err = strconv.Atoi(yearPart)
	if err != nil || year <= 0 {
		return 0, 0, false
	}
	return year, week, true
}

// parseMetadataWeek はメタデータからISO年と週を取り出す。
// 週の値に年が含まれている場合（"2025-W35"）はそれを優先する。
func parseMetadataWeek(meta map[string]json.RawMessage) (year, week int, ok bool) {
	var weekYear int
	for _, key := range weekKeys {
		raw, exists := meta[key]
		if !exists {
			continue
		}
		if y, w, parsed := ParseWeekValue(raw); parsed {
			weekYear, week = y, w
			break
		}
	}
	if week == 0 {
		return 0, 0, false
	}

	year = weekYear
	if year == 0 {
		for _, key := range yearKeys {
			if y, parsed := parseInt(meta[key]); parsed && y > 0 {
				year = y
				break
			}
		}
	}
	if year == 0 || !calendar.ValidWeek(year, week) {
		return 0, 0, false
	}
	return year, week, true
}

// parseInt はJSON数値（整数値のみ）または整数文字列を解釈する。
func parseInt(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 || isJSONNull(raw) {
		return 0, false
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if f != math.Trunc(f) {
			return 0, false
		}
		return int(f), true
	}

	s, ok := parseString(raw)
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || isJSONNull(raw) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// parseStringList は文字列配列、または単一の文字列を受け付ける。
// 配列中の文字列以外の要素は無視する。
func parseStringList(raw json.RawMessage) []string {
	if len(raw) == 0 || isJSONNull(raw) {
		return nil
	}
	if s, ok := parseString(raw); ok {
		return []string{s}
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil
	}
	out := make([]string, 0, len(elems))
	for _, e := range elems {
		if s, ok := parseString(e); ok {
			out = append(out, s)
		}
	}
	return out
}

func firstString(m map[string]json.RawMessage, keys []string) (string, bool) {
	for _, key := range keys {
		if s, ok := parseString(m[key]); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

func isJSONNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
