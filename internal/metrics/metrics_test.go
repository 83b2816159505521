package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-wod-trmnl/internal/model"
)

func TestKind(t *testing.T) {
	assert.Equal(t, "rest", Kind(model.Workout{IsRestDay: true}))
	assert.Equal(t, "hero", Kind(model.Workout{IsHeroWorkout: true, IsNamedWorkout: true}))
	assert.Equal(t, "named", Kind(model.Workout{IsNamedWorkout: true}))
	assert.Equal(t, "generic", Kind(model.Workout{}))
}

func TestRecordAndWrite(t *testing.T) {
	before := testutil.ToFloat64(sinkResultsTotal.WithLabelValues("notify", "error"))
	RecordSink("notify", errors.New("boom"))
	RecordSink("csv", nil)
	RecordExtraction(model.Workout{IsRestDay: true})
	RecordRun(time.Unix(1700000000, 0))

	assert.Equal(t, before+1, testutil.ToFloat64(sinkResultsTotal.WithLabelValues("notify", "error")))
	assert.Equal(t, float64(1700000000), testutil.ToFloat64(lastRunGauge))

	path := filepath.Join(t.TempDir(), "wod.prom")
	require.NoError(t, WriteTextfile(path))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(b), `wod_extractions_total{kind="rest"}`))
	assert.NoError(t, WriteTextfile(""))
}
