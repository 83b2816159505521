package extract

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"go-wod-trmnl/internal/rules"
)

var (
	eventRe      = regexp.MustCompile(`(?i)event\s+\d+`)
	singleWordRe = regexp.MustCompile(`^[A-Z][a-z]+$`)
)

// 加粗候选的排名，越小越靠前。
const (
	rankEvent = iota
	rankKeyword
	rankShouted
	rankNone
)

type candidate struct {
	text string
	rank int
}

// classifyTitle 依次尝试加粗候选与标题候选，首个非空来源的第一个候选即为标题。
// 未找到时返回 ("", false)。
func classifyTitle(pg Page, p rules.Preset) (string, bool) {
	sources := [][]string{
		boldCandidates(pg.Bold, p),
		headingCandidates(pg.Headings, p),
	}
	for _, list := range sources {
		if len(list) > 0 {
			return list[0], true
		}
	}
	return "", false
}

// boldCandidates 过滤促销文案后排序：Event N 逐个插到最前（后出现者在前），
// 其余按排名稳定排序（关键词 > 全大写）。
func boldCandidates(texts []string, p rules.Preset) []string {
	var events []string
	var rest []candidate
	for _, t := range texts {
		n := utf8.RuneCountInString(t)
		if n <= 5 || n >= 50 {
			continue
		}
		lower := strings.ToLower(t)
		if containsAny(lower, p.PromoPhrases) {
			continue
		}
		switch r := boldRank(t, p); r {
		case rankNone:
		case rankEvent:
			events = append([]string{t}, events...)
		default:
			rest = append(rest, candidate{text: t, rank: r})
		}
	}
	sort.SliceStable(rest, func(i, j int) bool { return rest[i].rank < rest[j].rank })
	out := make([]string, 0, len(events)+len(rest))
	out = append(out, events...)
	for _, c := range rest {
		out = append(out, c.text)
	}
	return out
}

func boldRank(t string, p rules.Preset) int {
	lower := strings.ToLower(t)
	switch {
	case eventRe.MatchString(t):
		return rankEvent
	case containsAny(lower, p.TitleKeywords):
		return rankKeyword
	case isUpper(t):
		return rankShouted
	default:
		return rankNone
	}
}

// headingCandidates 仅在加粗候选为空时使用：h1-h3，去掉栏目标题类文本。
func headingCandidates(texts []string, p rules.Preset) []string {
	var out []string
	for _, t := range texts {
		if t == "" || utf8.RuneCountInString(t) > 50 {
			continue
		}
		lower := strings.ToLower(t)
		if containsAny(lower, p.HeadingSkip) {
			continue
		}
		if isUpper(t) || isTitleCase(t) || singleWordRe.MatchString(t) || containsAny(lower, p.HeadingAccepts) {
			out = append(out, t)
		}
	}
	return out
}

// isUpper：至少一个有大小写的字符，且没有小写字符。
// 首字母大写且其余无小写的情况也包含在内。
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) || unicode.IsTitle(r) {
			cased = true
		}
	}
	return cased
}

// isTitleCase：每个单词以大写开头、其后均为小写；非字母字符分隔单词。
func isTitleCase(s string) bool {
	cased, prevCased := false, false
	for _, r := range s {
		switch {
		case unicode.IsUpper(r) || unicode.IsTitle(r):
			if prevCased {
				return false
			}
			prevCased, cased = true, true
		case unicode.IsLower(r):
			if !prevCased {
				return false
			}
			prevCased, cased = true, true
		default:
			prevCased = false
		}
	}
	return cased
}
