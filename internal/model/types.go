// 包 model 定义训练记录及其投影（CSV 行、通知载荷、统计）。
package model

import (
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL 为每日训练页面所在站点。
const DefaultBaseURL = "https://www.crossfit.com"

// RestDayDescription 为休息日的固定描述。
const RestDayDescription = "Rest Day - Recovery and mobility work recommended"

// DateCodeLayout 为 date_code（yymmdd）的时间格式。
const DateCodeLayout = "060102"

// DisplayDateLayout 为 date 字段的人读格式。
const DisplayDateLayout = "January 02, 2006"

// Columns 为持久化日志的固定 12 列。
var Columns = []string{
	"date_code", "date", "title", "is_named_workout", "is_hero_workout", "is_rest_day",
	"description", "movements", "scaling", "stimulus", "scraped_at", "url",
}

// Workout 表示一天的训练记录，构造后不再修改。
type Workout struct {
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Movements      []string  `json:"movements"`
	Scaling        string    `json:"scaling"`
	Stimulus       string    `json:"stimulus"`
	DateCode       string    `json:"date_code"`
	Date           string    `json:"date"`
	IsNamedWorkout bool      `json:"is_named_workout"`
	IsHeroWorkout  bool      `json:"is_hero_workout"`
	IsRestDay      bool      `json:"is_rest_day"`
	ScrapedAt      time.Time `json:"scraped_at"`
}

// Stats 为日志统计信息。
type Stats struct {
	TotalWorkouts int    `json:"total_workouts"`
	NamedWorkouts int    `json:"named_workouts"`
	HeroWorkouts  int    `json:"hero_workouts"`
	RestDays      int    `json:"rest_days"`
	MostRecent    string `json:"most_recent"`
}

// Add 将一条记录计入统计，MostRecent 取最后加入的标题。
func (s *Stats) Add(w Workout) {
	s.TotalWorkouts++
	if w.IsNamedWorkout {
		s.NamedWorkouts++
	}
	if w.IsHeroWorkout {
		s.HeroWorkouts++
	}
	if w.IsRestDay {
		s.RestDays++
	}
	s.MostRecent = w.Title
}

// WorkoutURL 拼接某日训练页地址：<base>/<date_code>。
func WorkoutURL(base, dateCode string) string {
	if base == "" {
		base = DefaultBaseURL
	}
	return strings.TrimRight(base, "/") + "/" + dateCode
}

// DisplayDate 将 yymmdd 渲染为 "January 02, 2006"；无法解析时原样返回。
func DisplayDate(dateCode string) string {
	t, err := time.Parse(DateCodeLayout, dateCode)
	if err != nil {
		return dateCode
	}
	return t.Format(DisplayDateLayout)
}

// Flatten 将多行文本压成单行，换行替换为 " | " 并去掉 \r。
func Flatten(s string) string {
	s = strings.ReplaceAll(s, "\n", " | ")
	return strings.ReplaceAll(s, "\r", "")
}

// Row 按 Columns 顺序生成日志行。
func (w Workout) Row(base string) []string {
	return []string{
		w.DateCode,
		w.Date,
		w.Title,
		titleBool(w.IsNamedWorkout),
		titleBool(w.IsHeroWorkout),
		titleBool(w.IsRestDay),
		Flatten(w.Description),
		strings.Join(w.Movements, " | "),
		Flatten(w.Scaling),
		Flatten(w.Stimulus),
		w.ScrapedAt.Format(time.RFC3339Nano),
		WorkoutURL(base, w.DateCode),
	}
}

// MergeVariables 生成通知端点所需的扁平键值载荷。
func (w Workout) MergeVariables(base string, now time.Time) map[string]any {
	movements := w.Movements
	if movements == nil {
		movements = []string{}
	}
	return map[string]any{
		"workout_title":       w.Title,
		"workout_date":        w.Date,
		"workout_description": w.Description,
		"workout_movements":   movements,
		"workout_scaling":     w.Scaling,
		"workout_stimulus":    w.Stimulus,
		"is_named_workout":    w.IsNamedWorkout,
		"is_hero_workout":     w.IsHeroWorkout,
		"is_rest_day":         w.IsRestDay,
		"last_updated":        now.Format("15:04"),
		"date_code":           w.DateCode,
		"url":                 WorkoutURL(base, w.DateCode),
	}
}

// titleBool 输出 True/False，与历史日志文件保持一致。
func titleBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// ParseBool 解析日志中的布尔列（True/true/1）。
func ParseBool(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}

// Export 为 JSON 导出的顶层结构。
type Export struct {
	Stats     Stats     `json:"stats"`
	Workouts  []Workout `json:"workouts"`
	UpdatedAt time.Time `json:"updated_at"`
}
