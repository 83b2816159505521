// 包 extract 将每日训练页 HTML 转为结构化训练记录：
// - Locate：移除评论区后展平为文本行
// - 标题分类、训练正文、分节（scaling/stimulus）、英雄/休息日判定
// - Extractor.Extract：组合以上步骤，纯函数、无 I/O
package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"

	"go-wod-trmnl/internal/rules"
)

var commentsOnRe = regexp.MustCompile(`(?i)comments on \d+`)

// Page 为展平后的页面：整页小写文本、按文档顺序的非空行、加粗与标题文本。
type Page struct {
	Text     string
	Lines    []string
	Bold     []string
	Headings []string
}

// Locate 解析 HTML 并去除评论区。没有评论标记时不做任何删除。
func Locate(markup string, p rules.Preset) Page {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return Page{}
	}
	if p.Strip != "" {
		doc.Find(p.Strip).Remove()
	}
	stripComments(doc, p.CommentClass)

	raw := normalize(doc.Text())
	pg := Page{
		Text:  strings.ToLower(raw),
		Lines: splitLines(raw),
	}
	doc.Find(p.Bold).Each(func(_ int, s *goquery.Selection) {
		pg.Bold = append(pg.Bold, strings.TrimSpace(normalize(s.Text())))
	})
	doc.Find(p.Headings).Each(func(_ int, s *goquery.Selection) {
		pg.Headings = append(pg.Headings, strings.TrimSpace(normalize(s.Text())))
	})
	return pg
}

// stripComments 删除 class 含 comment 的子树，以及 "Comments on N" 所在块及其后续兄弟节点。
func stripComments(doc *goquery.Document, class string) {
	if class != "" {
		class = strings.ToLower(class)
		doc.Find("body [class]").FilterFunction(func(_ int, s *goquery.Selection) bool {
			v, _ := s.Attr("class")
			return strings.Contains(strings.ToLower(v), class)
		}).Remove()
	}

	var markers []*goquery.Selection
	doc.Find("*").Contents().Each(func(_ int, s *goquery.Selection) {
		n := s.Get(0)
		if n.Type == html.TextNode && commentsOnRe.MatchString(n.Data) {
			markers = append(markers, s)
		}
	})
	for _, s := range markers {
		parent := s.Parent()
		if parent.Length() == 0 {
			continue
		}
		// 评论区总是渲染在正文之后；父节点为 body/html 时只删文本本身
		if name := goquery.NodeName(parent); name == "body" || name == "html" {
			s.Remove()
			continue
		}
		parent.NextAll().Remove()
		parent.Remove()
	}
}

// normalize 做 NFKC 归一化，&nbsp; 等变为普通空格。
func normalize(s string) string {
	return norm.NFKC.String(s)
}

func splitLines(s string) []string {
	parts := strings.Split(s, "\n")
	out := make([]string, 0, len(parts))
	for _, line := range parts {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// containsAny 判断 s（调用方负责小写）是否包含任一短语。
func containsAny(s string, phrases []string) bool {
	for _, ph := range phrases {
		if strings.Contains(s, ph) {
			return true
		}
	}
	return false
}
