package extract

import (
	"time"

	"go-wod-trmnl/internal/model"
	"go-wod-trmnl/internal/rules"
)

// Extractor 持有解析预设；可并发使用。
type Extractor struct {
	preset rules.Preset
	now    func() time.Time
}

// New 创建 Extractor，预设中的空字段以内置默认值补齐。
func New(p rules.Preset) *Extractor {
	return &Extractor{preset: p.WithDefaults(), now: time.Now}
}

var std = New(rules.Default())

// Extract 使用内置预设解析。
func Extract(markup, dateCode string) model.Workout {
	return std.Extract(markup, dateCode)
}

// Extract 将一页 HTML 解析为训练记录。任何缺失的分节都只得到空值。
func (e *Extractor) Extract(markup, dateCode string) model.Workout {
	return e.FromPage(Locate(markup, e.preset), dateCode)
}

// FromPage 在已展平的页面上执行分类与抽取。
func (e *Extractor) FromPage(pg Page, dateCode string) model.Workout {
	p := e.preset
	w := model.Workout{
		Title:     dateCode,
		DateCode:  dateCode,
		Date:      model.DisplayDate(dateCode),
		ScrapedAt: e.now(),
	}

	// 休息日优先，跳过其余抽取
	if isRestDay(pg.Text, p) {
		w.IsRestDay = true
		w.Description = model.RestDayDescription
		return w
	}

	if title, ok := classifyTitle(pg, p); ok {
		w.Title = title
		w.IsNamedWorkout = true
	}

	body := workoutBody(pg.Lines, p)
	w.Description = description(body)
	w.Movements = movements(body)
	w.Scaling = scaling(pg.Lines, p)
	w.Stimulus = stimulus(pg.Lines, p)

	if isHero(pg.Text, p) {
		w.IsHeroWorkout = true
		w.IsNamedWorkout = true
	}
	return w
}

// WithClock 返回使用指定时间来源的副本。
func (e *Extractor) WithClock(now func() time.Time) *Extractor {
	cp := *e
	cp.now = now
	return &cp
}
