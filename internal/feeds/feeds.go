// 包 feeds 通过站点订阅（RSS/Atom/JSON Feed）确定最新一天的 date_code：
// - ParseFeed：使用 gofeed 解析并归一化条目
// - LatestDateCode：取最新条目链接末尾的 6 位日期码
package feeds

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"go-wod-trmnl/internal/fetch"
	"go-wod-trmnl/internal/model"
)

var dateCodeRe = regexp.MustCompile(`(?:^|/)(\d{6})/?$`)

// Item 为解析后的订阅条目。
type Item struct {
	Title     string
	Link      string
	Published time.Time
}

// ParseFeed 从订阅地址解析条目（最多 max 条，0 表示不限制）。
func ParseFeed(ctx context.Context, cl *fetch.Client, feedURL string, max int) ([]Item, error) {
	reqCtx, cancel := context.WithTimeout(ctx, 25*time.Second)
	defer cancel()
	// gofeed 不直接接收自定义 http.Client，因此先用自定义客户端抓取后再交给 gofeed 解析
	resp, err := cl.Get(reqCtx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("GET feed %s: %w", feedURL, err)
	}
	defer resp.Body.Close()
	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}
	items := make([]Item, 0, len(feed.Items))
	for _, it := range feed.Items {
		items = append(items, Item{
			Title:     strings.TrimSpace(it.Title),
			Link:      strings.TrimSpace(it.Link),
			Published: pickTime(it.PublishedParsed, it.UpdatedParsed),
		})
		if max > 0 && len(items) >= max {
			break
		}
	}
	return items, nil
}

// DateCodeFromLink 提取链接路径末尾的 yymmdd，必须是合法日期。
func DateCodeFromLink(link string) (string, bool) {
	path := link
	if u, err := url.Parse(link); err == nil && u.Path != "" {
		path = u.Path
	}
	m := dateCodeRe.FindStringSubmatch(path)
	if m == nil {
		return "", false
	}
	if _, err := time.Parse(model.DateCodeLayout, m[1]); err != nil {
		return "", false
	}
	return m[1], true
}

// LatestDateCode 在条目中选出最新的日期码：有发布时间的按时间倒序，否则按 date_code 倒序。
func LatestDateCode(items []Item) (string, bool) {
	type cand struct {
		code string
		at   time.Time
	}
	var cs []cand
	for _, it := range items {
		if code, ok := DateCodeFromLink(it.Link); ok {
			cs = append(cs, cand{code: code, at: it.Published})
		}
	}
	if len(cs) == 0 {
		return "", false
	}
	sort.SliceStable(cs, func(i, j int) bool {
		if !cs[i].at.Equal(cs[j].at) {
			return cs[i].at.After(cs[j].at)
		}
		return cs[i].code > cs[j].code
	})
	return cs[0].code, true
}

// Latest 抓取订阅并返回最新日期码。
func Latest(ctx context.Context, cl *fetch.Client, feedURL string) (string, error) {
	items, err := ParseFeed(ctx, cl, feedURL, 0)
	if err != nil {
		return "", err
	}
	code, ok := LatestDateCode(items)
	if !ok {
		return "", fmt.Errorf("no dated item in feed %s", feedURL)
	}
	return code, nil
}

func pickTime(a, b *time.Time) time.Time {
	if a != nil {
		return *a
	}
	if b != nil {
		return *b
	}
	return time.Time{}
}
