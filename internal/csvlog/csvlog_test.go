package csvlog_test

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go-wod-trmnl/internal/csvlog"
	"go-wod-trmnl/internal/model"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	recs, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	return recs
}

func workout(code, title string) model.Workout {
	return model.Workout{
		Title:          title,
		Description:    "For Time:\n21 Thrusters",
		Movements:      []string{"21 Thrusters", "400-meter Run"},
		Scaling:        "Lighter bar\r\n\nRing rows",
		DateCode:       code,
		Date:           model.DisplayDate(code),
		IsNamedWorkout: title != code,
		ScrapedAt:      time.Date(2025, 1, 1, 6, 0, 0, 0, time.UTC),
	}
}

func TestLog_CreateAppendSkipUpdate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "wod.csv")
	l, err := csvlog.Open(path, "https://example.test")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	recs := readCSV(t, path)
	if len(recs) != 1 || len(recs[0]) != 12 || recs[0][0] != "date_code" {
		t.Fatalf("header mismatch: %v", recs)
	}

	out, err := l.Write(workout("250101", "Fran"), false)
	if err != nil || out != csvlog.Appended {
		t.Fatalf("append: out=%s err=%v", out, err)
	}
	if _, err := l.Write(workout("250102", "250102"), false); err != nil {
		t.Fatalf("append 2: %v", err)
	}
	out, err = l.Write(workout("250101", "Grace"), false)
	if err != nil || out != csvlog.Skipped {
		t.Fatalf("skip: out=%s err=%v", out, err)
	}
	recs = readCSV(t, path)
	if len(recs) != 3 || recs[1][2] != "Fran" {
		t.Fatalf("skip should keep original row: %v", recs)
	}

	out, err = l.Write(workout("250101", "Grace"), true)
	if err != nil || out != csvlog.Updated {
		t.Fatalf("update: out=%s err=%v", out, err)
	}
	recs = readCSV(t, path)
	if len(recs) != 3 {
		t.Fatalf("rows = %d, want 3", len(recs))
	}
	row := recs[1]
	if row[0] != "250101" || row[2] != "Grace" {
		t.Fatalf("row not replaced in place: %v", row)
	}
	if row[3] != "True" || row[5] != "False" {
		t.Fatalf("bool columns: %v", row[3:6])
	}
	if row[6] != "For Time: | 21 Thrusters" {
		t.Fatalf("description not flattened: %q", row[6])
	}
	if row[7] != "21 Thrusters | 400-meter Run" {
		t.Fatalf("movements: %q", row[7])
	}
	if row[8] != "Lighter bar |  | Ring rows" {
		t.Fatalf("scaling: %q", row[8])
	}
	if row[11] != "https://example.test/250101" {
		t.Fatalf("url: %q", row[11])
	}
	if recs[2][0] != "250102" {
		t.Fatalf("other rows must survive: %v", recs[2])
	}

	ok, err := l.Exists("250102")
	if err != nil || !ok {
		t.Fatalf("exists: %v %v", ok, err)
	}
}

func TestLog_Stats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wod.csv")
	l, err := csvlog.Open(path, "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	hero := workout("250103", "Murph")
	hero.IsHeroWorkout = true
	rest := workout("250104", "250104")
	rest.IsRestDay = true
	for _, w := range []model.Workout{workout("250101", "Fran"), hero, rest} {
		if _, err := l.Write(w, false); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	st, err := l.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := model.Stats{TotalWorkouts: 3, NamedWorkouts: 2, HeroWorkouts: 1, RestDays: 1, MostRecent: "250104"}
	if st != want {
		t.Fatalf("stats = %+v, want %+v", st, want)
	}
}
