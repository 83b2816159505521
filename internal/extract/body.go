package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"go-wod-trmnl/internal/rules"
)

const (
	maxDescriptionLines = 10
	maxMovements        = 8
)

// 数量（可含千分位逗号，可带 -meter/-mile）+ 空白 + 动作名，动作名止于逗号或行尾。
var movementRe = regexp.MustCompile(`(\d+(?:,\d+)?(?:-meter|-mile)?)\s+([a-zA-Z\-\s]+?)(?:,|$)`)

// workoutBody 返回训练正文行：从第一个起始标记行开始，遇到终止标记即停止。
// 以 ** 开头的行跳过；评论行（commented on:）在任何阶段都忽略。
func workoutBody(lines []string, p rules.Preset) []string {
	var body []string
	found := false
	for _, line := range lines {
		lower := strings.ToLower(line)
		if containsAny(lower, p.BodySkip) {
			continue
		}
		if !found && containsAny(lower, p.WorkoutStart) {
			found = true
		}
		if !found {
			continue
		}
		if containsAny(lower, p.BodyStop) {
			break
		}
		if strings.HasPrefix(line, "**") {
			continue
		}
		body = append(body, line)
	}
	return body
}

func description(body []string) string {
	if len(body) > maxDescriptionLines {
		body = body[:maxDescriptionLines]
	}
	return strings.Join(body, "\n")
}

// movements 从正文行中提取 "<数量> <动作>"，去重保序，最多 8 个。
func movements(body []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, line := range body {
		for _, m := range movementRe.FindAllStringSubmatch(line, -1) {
			mv := m[1] + " " + strings.TrimSpace(m[2])
			n := utf8.RuneCountInString(mv)
			if n <= 3 || n >= 50 || seen[mv] {
				continue
			}
			seen[mv] = true
			out = append(out, mv)
			if len(out) == maxMovements {
				return out
			}
		}
	}
	return out
}
