// 包 pipeline 负责单次运行的流程编排：
// - 确定日期码（参数 > WORKOUT_DATE > 订阅 > 今天）
// - 抓取训练页并解析
// - 依次写入 CSV、SQLite，推送 TRMNL；单个去向失败不影响其余去向
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"go-wod-trmnl/internal/config"
	"go-wod-trmnl/internal/csvlog"
	"go-wod-trmnl/internal/extract"
	"go-wod-trmnl/internal/feeds"
	"go-wod-trmnl/internal/fetch"
	"go-wod-trmnl/internal/logx"
	"go-wod-trmnl/internal/metrics"
	"go-wod-trmnl/internal/model"
	"go-wod-trmnl/internal/notify"
	"go-wod-trmnl/internal/store"
)

// 去向名称，同时用作指标标签。
const (
	SinkCSV    = "csv"
	SinkSQLite = "sqlite"
	SinkTRMNL  = "trmnl"
)

// Runner 单次运行执行器，持有配置/HTTP 客户端/解析器/各写入去向。
type Runner struct {
	cfg       *config.Config
	fetch     *fetch.Client
	extractor *extract.Extractor
	log       *csvlog.Log
	// 可为 nil：未配置数据库时不写库
	store  *store.SQLite
	sender *notify.Sender
	now    func() time.Time
}

// Result 为一次运行的结果；部分成功是合法结果。
type Result struct {
	RunID      string
	DateCode   string
	Workout    model.Workout
	LogOutcome csvlog.Outcome
	LogOK      bool
	StoreOK    bool
	NotifyOK   bool
}

// New 创建 Runner。st 为 nil 时跳过 SQLite；cfg.WebhookURL 为空时跳过推送。
func New(cfg *config.Config, cl *fetch.Client, ex *extract.Extractor, lg *csvlog.Log, st *store.SQLite) *Runner {
	r := &Runner{cfg: cfg, fetch: cl, extractor: ex, log: lg, store: st, now: time.Now}
	if cfg.WebhookURL != "" {
		r.sender = notify.NewSender(cl, cfg.WebhookURL, cfg.BaseURL)
	}
	return r
}

// WithClock 替换时钟，便于测试。
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	return r
}

// ParseDate 接受 yymmdd 或 YYYY-MM-DD，返回日期码。
func ParseDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(model.DateCodeLayout, s); err == nil && len(s) == 6 {
		return t.Format(model.DateCodeLayout), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return "", fmt.Errorf("parse date %q: want yymmdd or YYYY-MM-DD", s)
	}
	return t.Format(model.DateCodeLayout), nil
}

// ResolveDate 按优先级确定日期码：explicit > WORKOUT_DATE > 订阅最新 > 今天。
// explicit 非法时报错；其余来源失败仅告警并回退。
func (r *Runner) ResolveDate(ctx context.Context, explicit string) (string, error) {
	if explicit != "" {
		return ParseDate(explicit)
	}
	if d := r.cfg.WorkoutDate; d != "" {
		t, err := time.Parse("2006-01-02", strings.TrimSpace(d))
		if err == nil {
			return t.Format(model.DateCodeLayout), nil
		}
		logx.Warnf("WORKOUT_DATE 格式无效（应为 YYYY-MM-DD），已忽略：%q", d)
	}
	if r.cfg.FeedURL != "" {
		code, err := feeds.Latest(ctx, r.fetch, r.cfg.FeedURL)
		if err == nil {
			logx.Infof("从订阅获得日期码：%s", code)
			return code, nil
		}
		logx.Warnf("读取订阅失败，改用今天：%v", err)
	}
	return r.now().Format(model.DateCodeLayout), nil
}

// Run 执行一次：确定日期→抓取→解析→写 CSV→写库→推送→记录运行。
// 仅在抓取失败或所有已配置去向均失败时返回错误。
func (r *Runner) Run(ctx context.Context, explicitDate string) (Result, error) {
	res := Result{RunID: uuid.NewString()}
	started := r.now()
	defer func() {
		metrics.RecordRun(started)
		if err := metrics.WriteTextfile(r.cfg.MetricsFile); err != nil {
			logx.Warnf("写出指标文件失败：%v", err)
		}
	}()

	code, err := r.ResolveDate(ctx, explicitDate)
	if err != nil {
		return res, err
	}
	res.DateCode = code
	lg := logx.With("run_id", res.RunID, "date_code", code)

	pageURL := model.WorkoutURL(r.cfg.BaseURL, code)
	lg.Info("开始抓取", "url", pageURL)
	markup, err := r.fetch.GetText(ctx, pageURL)
	if err != nil {
		err = fmt.Errorf("fetch %s: %w", pageURL, err)
		r.recordRun(ctx, res, started, err)
		return res, err
	}

	w := r.extractor.Extract(markup, code)
	res.Workout = w
	metrics.RecordExtraction(w)
	logx.Infof("解析完成：标题=%q 命名=%v 英雄=%v 休息日=%v 动作=%d",
		w.Title, w.IsNamedWorkout, w.IsHeroWorkout, w.IsRestDay, len(w.Movements))

	var errs []error
	configured := 0

	// 1) CSV 日志
	configured++
	outcome, err := r.log.Write(w, r.cfg.Overwrite)
	metrics.RecordSink(SinkCSV, err)
	if err != nil {
		logx.Errorf("写入 CSV 失败：%v", err)
		errs = append(errs, err)
	} else {
		res.LogOK, res.LogOutcome = true, outcome
		logx.Infof("CSV %s：%s", outcome, r.log.Path())
	}

	// 2) SQLite（可选）
	if r.store != nil {
		configured++
		existed, herr := r.store.HasWorkout(ctx, code)
		if herr != nil {
			logx.Warnf("查询数据库失败：%v", herr)
		}
		err := r.store.UpsertWorkout(ctx, w)
		metrics.RecordSink(SinkSQLite, err)
		if err != nil {
			logx.Errorf("写入数据库失败：%v", err)
			errs = append(errs, err)
		} else {
			res.StoreOK = true
			logx.Debugf("数据库写入完成：%s 已存在=%v", code, existed)
		}
	}

	// 3) TRMNL 推送（可选）
	if r.sender != nil {
		configured++
		err := r.sender.Send(ctx, w)
		metrics.RecordSink(SinkTRMNL, err)
		if err != nil {
			logx.Errorf("推送 TRMNL 失败：%v", err)
			errs = append(errs, err)
		} else {
			res.NotifyOK = true
			logx.Infof("已推送 TRMNL")
		}
	} else {
		logx.Warnf("未设置 TRMNL_WEBHOOK_URL，跳过推送")
	}

	var runErr error
	if len(errs) == configured {
		runErr = fmt.Errorf("all sinks failed: %w", errors.Join(errs...))
	}
	r.recordRun(ctx, res, started, errors.Join(errs...))
	r.logStats()
	lg.Info("运行结束", "log_ok", res.LogOK, "store_ok", res.StoreOK, "notify_ok", res.NotifyOK)
	return res, runErr
}

// recordRun 将运行结果写入 runs 表；失败只告警。
func (r *Runner) recordRun(ctx context.Context, res Result, started time.Time, err error) {
	if r.store == nil {
		return
	}
	run := store.Run{
		ID:        res.RunID,
		DateCode:  res.DateCode,
		LogOK:     res.LogOK,
		StoreOK:   res.StoreOK,
		NotifyOK:  res.NotifyOK,
		StartedAt: started,
	}
	if err != nil {
		run.Error = err.Error()
	}
	if err := r.store.RecordRun(ctx, run); err != nil {
		logx.Warnf("记录运行失败：%v", err)
	}
}

func (r *Runner) logStats() {
	st, err := r.log.Stats()
	if err != nil {
		logx.Warnf("统计 CSV 失败：%v", err)
		return
	}
	logx.Infof("统计：总数=%d 命名=%d 英雄=%d 休息日=%d 最近=%q",
		st.TotalWorkouts, st.NamedWorkouts, st.HeroWorkouts, st.RestDays, st.MostRecent)
}
