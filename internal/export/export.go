// 包 export 将已存储的训练记录导出为 data.json 或 xlsx。
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go-wod-trmnl/internal/model"
)

// Source 为导出的数据来源，由 store.SQLite 实现。
type Source interface {
	ListWorkouts(ctx context.Context) ([]model.Workout, error)
	Stats(ctx context.Context) (model.Stats, error)
}

// ToJSON 查询统计与记录并写入 JSON 文件（带缩进格式），记录按 date_code 倒序。
func ToJSON(ctx context.Context, s Source, path string) error {
	workouts, err := s.ListWorkouts(ctx)
	if err != nil {
		return fmt.Errorf("list workouts: %w", err)
	}
	stats, err := s.Stats(ctx)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	if workouts == nil {
		workouts = []model.Workout{}
	}
	out := model.Export{Stats: stats, Workouts: workouts, UpdatedAt: time.Now()}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode json to %s: %w", path, err)
	}
	return nil
}
