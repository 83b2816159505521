package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"go-wod-trmnl/internal/config"
	"go-wod-trmnl/internal/csvlog"
	"go-wod-trmnl/internal/export"
	"go-wod-trmnl/internal/extract"
	"go-wod-trmnl/internal/fetch"
	"go-wod-trmnl/internal/logx"
	"go-wod-trmnl/internal/model"
	"go-wod-trmnl/internal/pipeline"
	"go-wod-trmnl/internal/rules"
	"go-wod-trmnl/internal/store"
)

// newApp 创建 CLI；结构化结果写到 out，日志写到 stderr。
func newApp(out io.Writer) *cli.App {
	run := runCmd()
	app := &cli.App{
		Name:    "wod",
		Usage:   "Scrape the CrossFit workout of the day into a CSV log and push it to TRMNL",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to settings.yaml (optional)"},
			&cli.StringFlag{Name: "rules", Value: "rules.yaml", Usage: "path to rules.yaml (optional)"},
		},
		Action: run.Action,
		Commands: []*cli.Command{
			run,
			extractCmd(out),
			showCmd(out),
			statsCmd(out),
			runsCmd(out),
			exportCmd(),
		},
	}
	// 错误交由 main 统一处理，便于测试拿到返回值
	// 不带子命令时等同 run，因此根命令也接受 run 的参数
	app.Flags = append(app.Flags, runFlags()...)
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// setup 加载配置与规则并初始化日志。
func setup(c *cli.Context) (*config.Config, rules.Preset, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, rules.Preset{}, err
	}
	logx.Init(cfg.LogLevel, cfg.LogFormat, cfg.LogLocale, cfg.LogColor)

	path := c.String("rules")
	if cfg.RulesFile != "" && !c.IsSet("rules") {
		path = cfg.RulesFile
	}
	var rl *rules.Rules
	if path != "" {
		r, err := rules.Load(path)
		switch {
		case err == nil:
			rl = r
		case errors.Is(err, fs.ErrNotExist):
			logx.Debugf("未找到规则文件 %s，使用内置规则", path)
		default:
			logx.Warnf("加载规则失败，使用内置规则：%v", err)
		}
	}
	preset, ok := rl.GetPreset(cfg.Theme)
	if rl != nil && !ok {
		logx.Warnf("规则文件中没有预设 %q，使用内置规则", cfg.Theme)
	}
	return cfg, preset, nil
}

func openStore(cfg *config.Config) (*store.SQLite, error) {
	if cfg.Database.DSN == "" {
		return nil, nil
	}
	return store.OpenSQLite(cfg.Database.DSN)
}

func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "date", Aliases: []string{"d"}, Usage: "workout date, yymmdd or YYYY-MM-DD"},
		&cli.BoolFlag{Name: "overwrite", Usage: "replace an existing CSV row for the date"},
		&cli.BoolFlag{Name: "reset-db", Usage: "clear the workouts and runs tables before running"},
	}
}

func runCmd() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Fetch, extract, log and notify one day's workout (default command)",
		Flags: runFlags(),
		Action: func(c *cli.Context) error {
			cfg, preset, err := setup(c)
			if err != nil {
				return err
			}
			if c.Bool("overwrite") {
				cfg.Overwrite = true
			}
			cl, err := fetch.New(fetch.Options{
				ProxyHTTP:  cfg.Proxy.HTTP,
				ProxyHTTPS: cfg.Proxy.HTTPS,
				Timeout:    time.Duration(cfg.TimeoutSec) * time.Second,
				Retry:      cfg.Retry,
			})
			if err != nil {
				return fmt.Errorf("http client: %w", err)
			}
			lg, err := csvlog.Open(cfg.CSVFile, cfg.BaseURL)
			if err != nil {
				return fmt.Errorf("open csv log: %w", err)
			}
			st, err := openStore(cfg)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if st != nil {
				defer st.Close()
				if c.Bool("reset-db") {
					if err := st.Reset(c.Context); err != nil {
						logx.Warnf("清理数据库失败：%v", err)
					} else {
						logx.Infof("已清理数据库表（workouts/runs）")
					}
				}
			}

			r := pipeline.New(cfg, cl, extract.New(preset), lg, st)
			res, err := r.Run(c.Context, c.String("date"))
			if err != nil {
				return err
			}
			if !res.LogOK || (cfg.WebhookURL != "" && !res.NotifyOK) {
				logx.Warnf("部分成功：csv=%v sqlite=%v trmnl=%v", res.LogOK, res.StoreOK, res.NotifyOK)
			}
			return nil
		},
	}
}

func extractCmd(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "extract",
		Usage: "Extract a workout from a saved page and print it as JSON",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true, Usage: "saved page HTML, - for stdin"},
			&cli.StringFlag{Name: "date", Aliases: []string{"d"}, Usage: "date code for the page (default today)"},
		},
		Action: func(c *cli.Context) error {
			_, preset, err := setup(c)
			if err != nil {
				return err
			}
			code := time.Now().Format(model.DateCodeLayout)
			if d := c.String("date"); d != "" {
				if code, err = pipeline.ParseDate(d); err != nil {
					return err
				}
			}
			markup, err := readInput(c.String("file"))
			if err != nil {
				return err
			}
			return outputJSON(out, extract.New(preset).Extract(markup, code))
		},
	}
}

func statsCmd(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Print workout statistics from the CSV log or the database",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "source", Value: "csv", Usage: "csv|sqlite"},
		},
		Action: func(c *cli.Context) error {
			cfg, _, err := setup(c)
			if err != nil {
				return err
			}
			var st model.Stats
			switch strings.ToLower(c.String("source")) {
			case "csv":
				lg, err := csvlog.Open(cfg.CSVFile, cfg.BaseURL)
				if err != nil {
					return fmt.Errorf("open csv log: %w", err)
				}
				if st, err = lg.Stats(); err != nil {
					return err
				}
			case "sqlite":
				db, err := openRequiredStore(cfg)
				if err != nil {
					return err
				}
				defer db.Close()
				if st, err = db.Stats(c.Context); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown source %q: want csv or sqlite", c.String("source"))
			}
			return outputJSON(out, st)
		},
	}
}

// openRequiredStore 打开数据库；未配置 WOD_DB 时报错。
func openRequiredStore(cfg *config.Config) (*store.SQLite, error) {
	db, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if db == nil {
		return nil, errors.New("WOD_DB is not configured")
	}
	return db, nil
}

func showCmd(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "Print one stored workout as JSON",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "date", Aliases: []string{"d"}, Required: true, Usage: "yymmdd or YYYY-MM-DD"},
		},
		Action: func(c *cli.Context) error {
			cfg, _, err := setup(c)
			if err != nil {
				return err
			}
			code, err := pipeline.ParseDate(c.String("date"))
			if err != nil {
				return err
			}
			db, err := openRequiredStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			w, err := db.GetWorkout(c.Context, code)
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no stored workout for %s", code)
			}
			if err != nil {
				return err
			}
			return outputJSON(out, w)
		},
	}
}

func runsCmd(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "Print recent run history from the database",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 20, Usage: "number of runs"},
		},
		Action: func(c *cli.Context) error {
			cfg, _, err := setup(c)
			if err != nil {
				return err
			}
			db, err := openRequiredStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			runs, err := db.ListRuns(c.Context, c.Int("limit"))
			if err != nil {
				return err
			}
			if runs == nil {
				runs = []store.Run{}
			}
			return outputJSON(out, runs)
		},
	}
}

func exportCmd() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export stored workouts, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Value: "json", Usage: "json|xlsx"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output path (default workouts.<format>)"},
		},
		Action: func(c *cli.Context) error {
			cfg, _, err := setup(c)
			if err != nil {
				return err
			}
			db, err := openStore(cfg)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if db == nil {
				return errors.New("export reads the database: set WOD_DB")
			}
			defer db.Close()

			format := strings.ToLower(c.String("format"))
			path := c.String("out")
			if path == "" {
				path = "workouts." + format
			}
			switch format {
			case "json":
				err = export.ToJSON(c.Context, db, path)
			case "xlsx":
				err = export.ToXLSX(c.Context, db, path, cfg.BaseURL)
			default:
				return fmt.Errorf("unknown format %q: want json or xlsx", format)
			}
			if err != nil {
				return err
			}
			logx.Infof("已导出 %s", path)
			return nil
		},
	}
}

func readInput(path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(b), nil
}

func outputJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
