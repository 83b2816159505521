// 包 csvlog 提供按 date_code 追加或更新的 CSV 训练日志（固定 12 列）。
package csvlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go-wod-trmnl/internal/logx"
	"go-wod-trmnl/internal/model"
)

// Outcome 为一次写入的结果。
type Outcome string

const (
	Appended Outcome = "appended"
	Updated  Outcome = "updated"
	Skipped  Outcome = "skipped"
)

// Log 为 CSV 日志文件。
type Log struct {
	path string
	base string
}

// Open 打开日志，文件不存在时创建并写入表头。base 用于生成 url 列。
func Open(path, base string) (*Log, error) {
	l := &Log{path: path, base: base}
	if _, err := os.Stat(path); err == nil {
		return l, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(model.Columns); err != nil {
		return nil, fmt.Errorf("write header %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush %s: %w", path, err)
	}
	logx.Infof("已创建 CSV 日志：%s", path)
	return l, nil
}

// Path 返回日志文件路径。
func (l *Log) Path() string { return l.path }

// Exists 判断某日记录是否已存在。
func (l *Log) Exists(dateCode string) (bool, error) {
	rows, err := l.rows()
	if err != nil {
		return false, err
	}
	for _, r := range rows {
		if r["date_code"] == dateCode {
			return true, nil
		}
	}
	return false, nil
}

// Write 写入一条记录：
// - 已存在且 overwrite=false：跳过（视为成功）
// - 已存在且 overwrite=true：重写整个文件替换该行
// - 否则追加
func (l *Log) Write(w model.Workout, overwrite bool) (Outcome, error) {
	exists, err := l.Exists(w.DateCode)
	if err != nil {
		return "", err
	}
	switch {
	case exists && !overwrite:
		logx.Infof("CSV 中已存在 %s，跳过", w.DateCode)
		return Skipped, nil
	case exists:
		if err := l.replace(w); err != nil {
			return "", err
		}
		return Updated, nil
	default:
		if err := l.append(w); err != nil {
			return "", err
		}
		return Appended, nil
	}
}

func (l *Log) append(w model.Workout) error {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", l.path, err)
	}
	defer f.Close()
	cw := csv.NewWriter(f)
	if err := cw.Write(w.Row(l.base)); err != nil {
		return fmt.Errorf("append %s: %w", w.DateCode, err)
	}
	cw.Flush()
	return cw.Error()
}

// replace 写入临时文件后原子替换，保留其余行。
func (l *Log) replace(w model.Workout) error {
	rows, err := l.rows()
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(l.path), ".wodlog-*.csv")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())
	cw := csv.NewWriter(tmp)
	if err := cw.Write(model.Columns); err != nil {
		tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		rec := w.Row(l.base)
		if r["date_code"] != w.DateCode {
			rec = make([]string, len(model.Columns))
			for i, c := range model.Columns {
				rec[i] = r[c]
			}
		}
		if err := cw.Write(rec); err != nil {
			tmp.Close()
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		return fmt.Errorf("rename %s: %w", l.path, err)
	}
	return nil
}

// Stats 统计总数/命名/英雄/休息日，MostRecent 为文件最后一行的标题。
func (l *Log) Stats() (model.Stats, error) {
	var st model.Stats
	rows, err := l.rows()
	if err != nil {
		return st, err
	}
	for _, r := range rows {
		st.Add(model.Workout{
			Title:          r["title"],
			IsNamedWorkout: model.ParseBool(r["is_named_workout"]),
			IsHeroWorkout:  model.ParseBool(r["is_hero_workout"]),
			IsRestDay:      model.ParseBool(r["is_rest_day"]),
		})
	}
	return st, nil
}

// rows 读取全部数据行，按表头映射为 map。
func (l *Log) rows() ([]map[string]string, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header %s: %w", l.path, err)
	}
	var out []map[string]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", l.path, err)
		}
		m := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(rec) {
				m[h] = rec[i]
			}
		}
		out = append(out, m)
	}
	return out, nil
}
