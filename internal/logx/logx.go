// 包 logx 是对标准库 slog 的薄封装：
// - 支持级别/格式/语言/颜色配置，可指定输出目标
// - 提供 pretty 输出（[信息]/[INFO] 等标签）
// - 通过 Debugf/Infof/Warnf/Errorf 暴露，调用方无需关心底层实现
package logx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Options 为日志初始化参数。
type Options struct {
	Level  string    // debug|info|warn|error|none
	Format string    // pretty|json|text
	Locale string    // zh-CN|en
	Color  string    // auto|always|never
	Output io.Writer // 默认 os.Stderr
}

// Init 以 os.Stderr 为输出初始化全局日志器。
func Init(level, format, locale, colorMode string) {
	Setup(Options{Level: level, Format: format, Locale: locale, Color: colorMode})
}

// Setup 根据 Options 初始化全局日志器。
// stdout 留给 extract/stats 等命令的结构化输出。
func Setup(o Options) {
	w := o.Output
	if w == nil {
		w = os.Stderr
	}
	lv := parseSlogLevel(o.Level)
	opts := &slog.HandlerOptions{Level: lv}
	var handler slog.Handler
	switch strings.ToLower(strings.TrimSpace(o.Format)) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "pretty", "":
		handler = NewPrettyHandler(w, lv, o.Locale, o.Color)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// parseSlogLevel 将字符串级别解析为 slog.Leveler。
func parseSlogLevel(s string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "none", "silent", "off":
		var l slog.Level = 100 // silence all
		return l
	default:
		return slog.LevelInfo
	}
}

func Debugf(format string, v ...any) { slog.Debug(fmt.Sprintf(format, v...)) }
func Infof(format string, v ...any)  { slog.Info(fmt.Sprintf(format, v...)) }
func Warnf(format string, v ...any)  { slog.Warn(fmt.Sprintf(format, v...)) }
func Errorf(format string, v ...any) { slog.Error(fmt.Sprintf(format, v...)) }

// With 返回附带固定属性的日志器，例如 run_id/date_code。
func With(args ...any) *slog.Logger { return slog.Default().With(args...) }

// PrettyHandler：人读输出（可选彩色），支持中英文标签。
type PrettyHandler struct {
	w      io.Writer
	level  slog.Leveler
	locale string
	color  bool
	mu     *sync.Mutex
	attrs  []slog.Attr
	group  string
}

// NewPrettyHandler 创建 pretty Handler，默认英文标签。
func NewPrettyHandler(w io.Writer, lv slog.Leveler, locale string, colorMode string) slog.Handler {
	if w == nil {
		w = os.Stderr
	}
	if locale == "" {
		locale = "en"
	}
	ph := &PrettyHandler{w: w, level: lv, locale: locale, mu: &sync.Mutex{}}
	ph.color = shouldColor(w, colorMode)
	return ph
}

// Enabled 根据配置的最低级别判定是否输出。
func (h *PrettyHandler) Enabled(_ context.Context, l slog.Level) bool {
	floor := h.level.Level()
	return l >= floor && floor < 100
}

// Handle 格式化输出：时间 + 等级 + 消息 + 扁平化属性（带分组前缀）
func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	buf.WriteString(ts.Format("2006-01-02 15:04:05"))
	buf.WriteString(" ")
	lvl := levelLabel(h.locale, r.Level)
	if h.color {
		lvl = colorize(lvl, r.Level)
	}
	buf.WriteString(lvl)
	buf.WriteString(" ")
	buf.WriteString(r.Message)

	attrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	attrs = append(attrs, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		attrs = append(attrs, a)
		return true
	})
	for _, a := range attrs {
		buf.WriteString(" ")
		buf.WriteString(a.Key)
		buf.WriteString("=")
		buf.WriteString(formatValue(a.Value))
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

// WithAttrs 附加属性；在分组内时加上分组前缀。
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cp := *h
	cp.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	cp.attrs = append(cp.attrs, h.attrs...)
	for _, a := range attrs {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		cp.attrs = append(cp.attrs, a)
	}
	return &cp
}

// WithGroup 属性分组。
func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	cp := *h
	if cp.group == "" {
		cp.group = name
	} else {
		cp.group += "." + name
	}
	return &cp
}

// 等级标签与颜色表，按 slog 的四个标准等级索引。
var (
	labelsZH = map[slog.Level]string{
		slog.LevelDebug: "[调试]", slog.LevelInfo: "[信息]", slog.LevelWarn: "[警告]", slog.LevelError: "[错误]",
	}
	labelsEN = map[slog.Level]string{
		slog.LevelDebug: "[DEBUG]", slog.LevelInfo: "[INFO]", slog.LevelWarn: "[WARN]", slog.LevelError: "[ERROR]",
	}
	ansi = map[slog.Level]string{
		slog.LevelDebug: "90", slog.LevelInfo: "36", slog.LevelWarn: "33", slog.LevelError: "31",
	}
)

func levelLabel(locale string, l slog.Level) string {
	labels := labelsEN
	if strings.HasPrefix(strings.ToLower(locale), "zh") {
		labels = labelsZH
	}
	if s, ok := labels[l]; ok {
		return s
	}
	return fmt.Sprintf("[L%d]", l)
}

// shouldColor：NO_COLOR 优先；auto 仅在终端上启用。
func shouldColor(w io.Writer, mode string) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "always" {
		return true
	}
	if mode != "auto" && mode != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

func colorize(s string, l slog.Level) string {
	code, ok := ansi[l]
	if !ok {
		code = "0"
	}
	return "\x1b[" + code + "m" + s + "\x1b[0m"
}

// formatValue 含空白或引号的字符串值加引号，例如训练标题。
func formatValue(v slog.Value) string {
	s := v.String()
	if v.Kind() == slog.KindString && (s == "" || strings.ContainsAny(s, " \t\"=")) {
		return strconv.Quote(s)
	}
	return s
}
