package pipeline

// WindowRadius は現在ページの前後に表示するページボタンの数。
const WindowRadius = 2

// PageButton はページナビゲーションのボタン1つ。
// Ellipsis が true の場合は省略記号で、Page は0になる。
type PageButton struct {
	Page     int  `json:"page,omitempty"`
	Current  bool `json:"current,omitempty"`
	Ellipsis bool `json:"ellipsis,omitempty"`
}

// TotalPages は件数からページ数を返す。0件でも1を返す。
func TotalPages(count int) int {
	if count <= 0 {
		return 1
	}
	return (count + PageSize - 1) / PageSize
}

// Clamp はページ番号を [1, total] に丸める。
func Clamp(page, total int) int {
	if total < 1 {
		total = 1
	}
	if page < 1 {
		return 1
	}
	if page > total {
		return total
	}
	return page
}

// Prev は前のページ番号を返す。
func Prev(page, total int) int {
	return Clamp(page-1, total)
}

// Next は次のページ番号を返す。
func Next(page, total int) int {
	return Clamp(page+1, total)
}

// Jump は指定ページへ移動した結果のページ番号を返す。
func Jump(target, total int) int {
	return Clamp(target, total)
}

// Window は現在ページを中心とするページボタン列を返す。
// 窓が先頭・末尾に届かない場合は先頭・末尾のボタンと省略記号を加える。
//
// 例: Window(6, 12) => 1 … 4 5 [6] 7 8 … 12
func Window(current, total int) []PageButton {
	if total < 1 {
		total = 1
	}
	current = Clamp(current, total)

	start := max(1, current-WindowRadius)
	end := min(total, current+WindowRadius)

	buttons := make([]PageButton, 0, end-start+5)
	if start > 1 {
		buttons = append(buttons, PageButton{Page: 1})
		if start > 2 {
			buttons = append(buttons, PageButton{Ellipsis: true})
		}
	}
	for p := start; p <= end; p++ {
		buttons = append(buttons, PageButton{Page: p, Current: p == current})
	}
	if end < total {
		if end < total-1 {
			buttons = append(buttons, PageButton{Ellipsis: true})
		}
		buttons = append(buttons, PageButton{Page: total})
	}
	return buttons
}
