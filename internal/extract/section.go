package extract

import (
	"strings"

	"go-wod-trmnl/internal/rules"
)

// sectionWindow 为起始标记之后最多检查的行数。
const sectionWindow = 9

// indexOf 返回 from 之后第一个包含任一标记的行号，找不到返回 -1。
func indexOf(lines []string, markers []string, from int) int {
	for i := from; i < len(lines); i++ {
		if containsAny(strings.ToLower(lines[i]), markers) {
			return i
		}
	}
	return -1
}

// collectSection 收集 start 之后 window 行内的正文，遇到 stop 中任一短语即停止（不含该行）。
// 空行与 ** 开头的行跳过但仍占用窗口。
func collectSection(lines []string, start int, stop []string, window int) []string {
	end := start + 1 + window
	if end > len(lines) {
		end = len(lines)
	}
	var out []string
	for j := start + 1; j < end; j++ {
		line := strings.TrimSpace(lines[j])
		if line == "" {
			continue
		}
		if containsAny(strings.ToLower(line), stop) {
			break
		}
		if strings.HasPrefix(line, "**") {
			continue
		}
		out = append(out, line)
	}
	return out
}

// scaling 汇总 "Scaling:" 主段落与所有 Intermediate/Beginner 选项块，段落间空一行。
// 主段落每行各成一段；选项块以自身标题行开头，且至少含一行正文才计入。
func scaling(lines []string, p rules.Preset) string {
	var parts []string
	if i := indexOf(lines, p.Scaling.Open, 0); i >= 0 {
		parts = append(parts, collectSection(lines, i, p.Scaling.Close, sectionWindow)...)
	}
	for _, marker := range p.Options.Open {
		for i := indexOf(lines, []string{marker}, 0); i >= 0; i = indexOf(lines, []string{marker}, i+1) {
			body := collectSection(lines, i, p.Options.Close, sectionWindow)
			if len(body) == 0 {
				continue
			}
			parts = append(parts, strings.Join(append([]string{lines[i]}, body...), "\n"))
		}
	}
	return strings.Join(parts, "\n\n")
}

// stimulus 取第一个 stimulus 段落，单空格拼接为一段。
func stimulus(lines []string, p rules.Preset) string {
	i := indexOf(lines, p.Stimulus.Open, 0)
	if i < 0 {
		return ""
	}
	return strings.Join(collectSection(lines, i, p.Stimulus.Close, sectionWindow), " ")
}
