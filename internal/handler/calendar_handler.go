package handler

import (
	"net/http"

	"github.com/hitoshi/weeklynews/internal/calendar"
	"github.com/hitoshi/weeklynews/internal/model"
)

// CalendarHandler は日付とISO週の変換を提供するHTTPハンドラー。
type CalendarHandler struct {
	clock *calendar.Clock
}

// NewCalendarHandler はCalendarHandlerを生成する。
func NewCalendarHandler(clock *calendar.Clock) *CalendarHandler {
	return &CalendarHandler{clock: clock}
}

// weekInfoResponse は日付が属するISO週の情報。
type weekInfoResponse struct {
	Date     string `json:"date"`
	ISOYear  int    `json:"iso_year"`
	ISOWeek  int    `json:"iso_week"`
	Monday   string `json:"monday"`
	Thursday string `json:"thursday"`
}

func newWeekInfo(d calendar.Date) weekInfoResponse {
	y, wk := calendar.ToISOWeek(d)
	return weekInfoResponse{
		Date:     d.String(),
		ISOYear:  y,
		ISOWeek:  wk,
		Monday:   d.Monday().String(),
		Thursday: calendar.FromISOWeek(y, wk).String(),
	}
}

// Today は設定されたタイムゾーンでの今日とそのISO週を返す。
// GET /api/calendar/today
func (h *CalendarHandler) Today(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, newWeekInfo(h.clock.Today()))
}

// Week は指定日付のISO週を返す。
// GET /api/calendar/week?date=YYYY-MM-DD
func (h *CalendarHandler) Week(w http.ResponseWriter, r *http.Request) {
	value := r.URL.Query().Get("date")
	d, err := calendar.ParseDate(value)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidDateError(value))
		return
	}
	writeJSON(w, newWeekInfo(d))
}
