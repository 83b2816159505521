// 包 store 提供训练记录的 SQLite 存储：表迁移、按 date_code 写入/查询、运行记录与统计。
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"go-wod-trmnl/internal/model"
)

// ErrNotFound 表示查询的 date_code 不存在。
var ErrNotFound = errors.New("workout not found")

// SQLite 封装 *sql.DB，基于 modernc.org/sqlite（纯 Go 实现）。
type SQLite struct {
	db *sql.DB
}

// Run 为一次抓取流程的结果记录。
type Run struct {
	ID        string    `json:"id"`
	DateCode  string    `json:"date_code"`
	LogOK     bool      `json:"log_ok"`
	StoreOK   bool      `json:"store_ok"`
	NotifyOK  bool      `json:"notify_ok"`
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// OpenSQLite 打开 SQLite 数据库并执行自动迁移。
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// Reset 清空业务数据表（不删除数据库文件）。
func (s *SQLite) Reset(ctx context.Context) error {
	for _, tbl := range []string{"runs", "workouts"} {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM `+tbl); err != nil {
			return fmt.Errorf("delete %s: %w", tbl, err)
		}
	}
	return nil
}

// migrate 执行建表语句，保持幂等。
func (s *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS workouts (
            date_code TEXT PRIMARY KEY,
            date TEXT,
            title TEXT,
            is_named_workout INTEGER,
            is_hero_workout INTEGER,
            is_rest_day INTEGER,
            description TEXT,
            movements TEXT,
            scaling TEXT,
            stimulus TEXT,
            scraped_at TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS runs (
            id TEXT PRIMARY KEY,
            date_code TEXT,
            log_ok INTEGER,
            store_ok INTEGER,
            notify_ok INTEGER,
            error TEXT,
            started_at TIMESTAMP
        );`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("exec migrate: %w", err)
		}
	}
	return nil
}

// UpsertWorkout 插入或更新训练记录（date_code 主键）。
func (s *SQLite) UpsertWorkout(ctx context.Context, w model.Workout) error {
	if w.DateCode == "" {
		return errors.New("workout.date_code required")
	}
	mv, err := json.Marshal(nonNil(w.Movements))
	if err != nil {
		return fmt.Errorf("encode movements: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO workouts(date_code, date, title, is_named_workout, is_hero_workout, is_rest_day, description, movements, scaling, stimulus, scraped_at)
        VALUES(?,?,?,?,?,?,?,?,?,?,?)
        ON CONFLICT(date_code) DO UPDATE SET date=excluded.date, title=excluded.title, is_named_workout=excluded.is_named_workout, is_hero_workout=excluded.is_hero_workout, is_rest_day=excluded.is_rest_day, description=excluded.description, movements=excluded.movements, scaling=excluded.scaling, stimulus=excluded.stimulus, scraped_at=excluded.scraped_at`,
		w.DateCode, w.Date, w.Title, w.IsNamedWorkout, w.IsHeroWorkout, w.IsRestDay,
		w.Description, string(mv), w.Scaling, w.Stimulus, nowOr(w.ScrapedAt))
	if err != nil {
		return fmt.Errorf("upsert workout %s: %w", w.DateCode, err)
	}
	return nil
}

// HasWorkout 判断某日记录是否存在。
func (s *SQLite) HasWorkout(ctx context.Context, dateCode string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM workouts WHERE date_code = ?`, dateCode).Scan(&n); err != nil {
		return false, fmt.Errorf("count workout %s: %w", dateCode, err)
	}
	return n > 0, nil
}

const workoutCols = `date_code, date, title, is_named_workout, is_hero_workout, is_rest_day, description, movements, scaling, stimulus, scraped_at`

// GetWorkout 按 date_code 查询，不存在时返回 ErrNotFound。
func (s *SQLite) GetWorkout(ctx context.Context, dateCode string) (model.Workout, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+workoutCols+` FROM workouts WHERE date_code = ?`, dateCode)
	w, err := scanWorkout(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Workout{}, ErrNotFound
	}
	if err != nil {
		return model.Workout{}, fmt.Errorf("get workout %s: %w", dateCode, err)
	}
	return w, nil
}

// ListWorkouts 返回全部记录，按 date_code 倒序（最新在前）。
func (s *SQLite) ListWorkouts(ctx context.Context) ([]model.Workout, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+workoutCols+` FROM workouts ORDER BY date_code DESC`)
	if err != nil {
		return nil, fmt.Errorf("query workouts: %w", err)
	}
	defer rows.Close()
	var out []model.Workout
	for rows.Next() {
		w, err := scanWorkout(rows)
		if err != nil {
			return nil, fmt.Errorf("scan workouts: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workouts: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWorkout(sc scanner) (model.Workout, error) {
	var w model.Workout
	var mv string
	var scrapedAt sql.NullTime
	if err := sc.Scan(&w.DateCode, &w.Date, &w.Title, &w.IsNamedWorkout, &w.IsHeroWorkout, &w.IsRestDay,
		&w.Description, &mv, &w.Scaling, &w.Stimulus, &scrapedAt); err != nil {
		return w, err
	}
	if mv != "" {
		if err := json.Unmarshal([]byte(mv), &w.Movements); err != nil {
			return w, fmt.Errorf("decode movements: %w", err)
		}
	}
	if scrapedAt.Valid {
		w.ScrapedAt = scrapedAt.Time
	}
	return w, nil
}

// Stats 统计汇总，MostRecent 为最新 date_code 的标题。
func (s *SQLite) Stats(ctx context.Context) (model.Stats, error) {
	var st model.Stats
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1),
            COALESCE(SUM(is_named_workout), 0),
            COALESCE(SUM(is_hero_workout), 0),
            COALESCE(SUM(is_rest_day), 0)
        FROM workouts`).Scan(&st.TotalWorkouts, &st.NamedWorkouts, &st.HeroWorkouts, &st.RestDays)
	if err != nil {
		return st, fmt.Errorf("count workouts: %w", err)
	}
	if st.TotalWorkouts == 0 {
		return st, nil
	}
	if err := s.db.QueryRowContext(ctx, `SELECT title FROM workouts ORDER BY date_code DESC LIMIT 1`).Scan(&st.MostRecent); err != nil {
		return st, fmt.Errorf("most recent: %w", err)
	}
	return st, nil
}

// RecordRun 写入一次运行结果。
func (s *SQLite) RecordRun(ctx context.Context, r Run) error {
	if r.ID == "" {
		return errors.New("run.id required")
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO runs(id, date_code, log_ok, store_ok, notify_ok, error, started_at) VALUES(?,?,?,?,?,?,?)`,
		r.ID, r.DateCode, r.LogOK, r.StoreOK, r.NotifyOK, r.Error, nowOr(r.StartedAt))
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.ID, err)
	}
	return nil
}

// ListRuns 返回最近 limit 次运行，按开始时间倒序。
func (s *SQLite) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, date_code, log_ok, store_ok, notify_ok, COALESCE(error,''), started_at FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		var r Run
		var startedAt sql.NullTime
		if err := rows.Scan(&r.ID, &r.DateCode, &r.LogOK, &r.StoreOK, &r.NotifyOK, &r.Error, &startedAt); err != nil {
			return nil, fmt.Errorf("scan runs: %w", err)
		}
		if startedAt.Valid {
			r.StartedAt = startedAt.Time
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nowOr(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
