package pipeline

import (
	"strconv"
	"strings"
	"testing"
)

func TestTotalPages(t *testing.T) {
	tests := map[int]int{-1: 1, 0: 1, 1: 1, 10: 1, 11: 2, 20: 2, 23: 3, 100: 10}
	for count, want := range tests {
		if got := TotalPages(count); got != want {
			t.Errorf("TotalPages(%d) = %d, want %d", count, got, want)
		}
	}
}

func TestNavigation(t *testing.T) {
	tests := []struct {
		name string
		got  int
		want int
	}{
		{"prev from first", Prev(1, 3), 1},
		{"prev", Prev(3, 3), 2},
		{"next", Next(1, 3), 2},
		{"next from last", Next(3, 3), 3},
		{"jump", Jump(2, 3), 2},
		{"jump past end", Jump(10, 3), 3},
		{"jump before start", Jump(0, 3), 1},
		{"zero total", Clamp(5, 0), 1},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %d, want %d", tt.name, tt.got, tt.want)
		}
	}
}

// render はボタン列を "1 … 4 5 [6] 7 8 … 12" 形式の文字列にする。
func render(buttons []PageButton) string {
	parts := make([]string, len(buttons))
	for i, b := range buttons {
		switch {
		case b.Ellipsis:
			parts[i] = "…"
		case b.Current:
			parts[i] = "[" + strconv.Itoa(b.Page) + "]"
		default:
			parts[i] = strconv.Itoa(b.Page)
		}
	}
	return strings.Join(parts, " ")
}

func TestWindow(t *testing.T) {
	tests := []struct {
		current int
		total   int
		want    string
	}{
		{1, 1, "[1]"},
		{1, 3, "[1] 2 3"},
		{2, 3, "1 [2] 3"},
		{1, 12, "[1] 2 3 … 12"},
		{6, 12, "1 … 4 5 [6] 7 8 … 12"},
		{4, 12, "1 2 3 [4] 5 6 … 12"},
		{9, 12, "1 … 7 8 [9] 10 11 12"},
		{12, 12, "1 … 10 11 [12]"},
		{5, 7, "1 … 3 4 [5] 6 7"},
		{99, 5, "1 … 3 4 [5]"},
		{1, 0, "[1]"},
	}

	for _, tt := range tests {
		if got := render(Window(tt.current, tt.total)); got != tt.want {
			t.Errorf("Window(%d, %d) = %q, want %q", tt.current, tt.total, got, tt.want)
		}
	}
}
