package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-wod-trmnl/internal/config"
	"go-wod-trmnl/internal/csvlog"
	"go-wod-trmnl/internal/extract"
	"go-wod-trmnl/internal/fetch"
	"go-wod-trmnl/internal/logx"
	"go-wod-trmnl/internal/rules"
	"go-wod-trmnl/internal/store"
)

const page = `<html><body>
<p><strong>FILTHY FIFTY</strong></p>
<p>For Time:</p>
<p>21-15-9 reps of:</p>
<p>95-lb Thrusters</p>
<p>Pull-ups</p>
<p>Scaling:</p>
<p>Reduce the load.</p>
</body></html>`

type fixture struct {
	cfg      *config.Config
	srv      *httptest.Server
	hookHits atomic.Int32
	hookCode atomic.Int32
	payload  atomic.Value
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fx := &fixture{}
	fx.hookCode.Store(http.StatusOK)
	mux := http.NewServeMux()
	mux.HandleFunc("/250101", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	})
	mux.HandleFunc("/hook", func(w http.ResponseWriter, r *http.Request) {
		fx.hookHits.Add(1)
		var body map[string]map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			fx.payload.Store(body["merge_variables"])
		}
		w.WriteHeader(int(fx.hookCode.Load()))
	})
	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(`<?xml version="1.0"?><rss version="2.0"><channel><title>WOD</title>
<item><title>Older</title><link>https://example.test/241231</link><pubDate>Tue, 31 Dec 2024 06:00:00 GMT</pubDate></item>
<item><title>Newest</title><link>https://example.test/250101</link><pubDate>Wed, 01 Jan 2025 06:00:00 GMT</pubDate></item>
</channel></rss>`))
	})
	fx.srv = httptest.NewServer(mux)
	t.Cleanup(fx.srv.Close)

	dir := t.TempDir()
	fx.cfg = &config.Config{
		BaseURL:     fx.srv.URL,
		WebhookURL:  fx.srv.URL + "/hook",
		CSVFile:     filepath.Join(dir, "log.csv"),
		MetricsFile: filepath.Join(dir, "wod.prom"),
	}
	require.NoError(t, fx.cfg.Validate())
	return fx
}

func (fx *fixture) runner(t *testing.T, withStore bool) (*Runner, *store.SQLite) {
	t.Helper()
	cl, err := fetch.New(fetch.Options{Timeout: 2 * time.Second})
	require.NoError(t, err)
	lg, err := csvlog.Open(fx.cfg.CSVFile, fx.cfg.BaseURL)
	require.NoError(t, err)
	var st *store.SQLite
	if withStore {
		st, err = store.OpenSQLite(filepath.Join(t.TempDir(), "wod.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = st.Close() })
	}
	now := func() time.Time { return time.Date(2025, 1, 1, 7, 30, 0, 0, time.UTC) }
	r := New(fx.cfg, cl, extract.New(rules.Default()).WithClock(now), lg, st).WithClock(now)
	return r, st
}

func TestRun_AllSinks(t *testing.T) {
	fx := newFixture(t)
	r, st := fx.runner(t, true)
	ctx := context.Background()

	res, err := r.Run(ctx, "250101")
	require.NoError(t, err)
	assert.True(t, res.LogOK)
	assert.True(t, res.StoreOK)
	assert.True(t, res.NotifyOK)
	assert.Equal(t, csvlog.Appended, res.LogOutcome)
	assert.Equal(t, "FILTHY FIFTY", res.Workout.Title)
	assert.NotEmpty(t, res.RunID)

	got, err := st.GetWorkout(ctx, "250101")
	require.NoError(t, err)
	assert.Equal(t, "FILTHY FIFTY", got.Title)

	runs, err := st.ListRuns(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, res.RunID, runs[0].ID)
	assert.Empty(t, runs[0].Error)

	mv, _ := fx.payload.Load().(map[string]any)
	require.NotNil(t, mv)
	assert.Equal(t, "FILTHY FIFTY", mv["workout_title"])
	assert.Equal(t, "07:30", mv["last_updated"])
	assert.Equal(t, fx.srv.URL+"/250101", mv["url"])

	_, err = os.Stat(fx.cfg.MetricsFile)
	assert.NoError(t, err)

	// 未开启覆盖时第二次运行跳过 CSV，但仍推送
	res, err = r.Run(ctx, "2025-01-01")
	require.NoError(t, err)
	assert.Equal(t, csvlog.Skipped, res.LogOutcome)
	assert.EqualValues(t, 2, fx.hookHits.Load())

	fx.cfg.Overwrite = true
	res, err = r.Run(ctx, "250101")
	require.NoError(t, err)
	assert.Equal(t, csvlog.Updated, res.LogOutcome)
}

func TestRun_PartialSuccess(t *testing.T) {
	fx := newFixture(t)
	fx.hookCode.Store(http.StatusInternalServerError)
	r, st := fx.runner(t, true)

	res, err := r.Run(context.Background(), "250101")
	require.NoError(t, err)
	assert.True(t, res.LogOK)
	assert.True(t, res.StoreOK)
	assert.False(t, res.NotifyOK)

	runs, err := st.ListRuns(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.False(t, runs[0].NotifyOK)
	assert.NotEmpty(t, runs[0].Error)
}

func TestRun_StoreUnavailable(t *testing.T) {
	fx := newFixture(t)
	r, st := fx.runner(t, true)
	require.NoError(t, st.Close())

	var buf bytes.Buffer
	logx.Setup(logx.Options{Level: "warn", Color: "never", Output: &buf})
	t.Cleanup(func() { logx.Setup(logx.Options{Level: "none"}) })

	res, err := r.Run(context.Background(), "250101")
	require.NoError(t, err)
	assert.True(t, res.LogOK)
	assert.False(t, res.StoreOK)
	assert.True(t, res.NotifyOK)
	assert.Contains(t, buf.String(), "查询数据库失败")
}

func TestRun_NoWebhookNoStore(t *testing.T) {
	fx := newFixture(t)
	fx.cfg.WebhookURL = ""
	r, _ := fx.runner(t, false)

	res, err := r.Run(context.Background(), "250101")
	require.NoError(t, err)
	assert.True(t, res.LogOK)
	assert.False(t, res.StoreOK)
	assert.False(t, res.NotifyOK)
	assert.Zero(t, fx.hookHits.Load())
}

func TestRun_FetchFailure(t *testing.T) {
	fx := newFixture(t)
	r, st := fx.runner(t, true)

	_, err := r.Run(context.Background(), "250102")
	require.Error(t, err)
	assert.Zero(t, fx.hookHits.Load())

	runs, err := st.ListRuns(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Contains(t, runs[0].Error, "fetch")
}

func TestRun_AllSinksFail(t *testing.T) {
	fx := newFixture(t)
	fx.hookCode.Store(http.StatusBadGateway)
	r, _ := fx.runner(t, false)
	// 让 CSV 路径变成目录，写入必然失败
	require.NoError(t, os.Remove(fx.cfg.CSVFile))
	require.NoError(t, os.Mkdir(fx.cfg.CSVFile, 0o755))

	res, err := r.Run(context.Background(), "250101")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all sinks failed")
	assert.False(t, res.LogOK)
	assert.False(t, res.NotifyOK)
}

func TestResolveDate(t *testing.T) {
	fx := newFixture(t)
	r, _ := fx.runner(t, false)
	ctx := context.Background()

	code, err := r.ResolveDate(ctx, "2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, "240229", code)

	_, err = r.ResolveDate(ctx, "29/02/2024")
	assert.Error(t, err)

	fx.cfg.WorkoutDate = "2024-12-25"
	code, _ = r.ResolveDate(ctx, "")
	assert.Equal(t, "241225", code)

	// 非法 WORKOUT_DATE 回退到订阅
	fx.cfg.WorkoutDate = "25/12/2024"
	fx.cfg.FeedURL = fx.srv.URL + "/feed.xml"
	code, _ = r.ResolveDate(ctx, "")
	assert.Equal(t, "250101", code)

	// 订阅不可用时回退到今天
	fx.cfg.FeedURL = fx.srv.URL + "/missing.xml"
	code, _ = r.ResolveDate(ctx, "")
	assert.Equal(t, "250101", code)
	fx.cfg.FeedURL = ""
	r.WithClock(func() time.Time { return time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC) })
	code, _ = r.ResolveDate(ctx, "")
	assert.Equal(t, "250304", code)
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in, want string
		ok       bool
	}{
		{"250101", "250101", true},
		{" 2025-01-01 ", "250101", true},
		{"251301", "", false},
		{"2025-1-1", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, err := ParseDate(c.in)
		if c.ok {
			assert.NoError(t, err, c.in)
			assert.Equal(t, c.want, got, c.in)
		} else {
			assert.Error(t, err, c.in)
		}
	}
}
