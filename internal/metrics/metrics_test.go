package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Counters(t *testing.T) {
	r := NewRegistry()

	r.IncrementCounter("requests_total", nil, "Total requests")
	r.IncrementCounter("requests_total", nil, "Total requests")
	r.AddToCounter("requests_total", 3, nil, "Total requests")

	snap := r.GetSnapshot()
	counter, ok := snap.Counters["requests_total"]
	require.True(t, ok)
	assert.Equal(t, float64(5), counter.Value)
	assert.Equal(t, Counter, counter.Type)
	assert.Equal(t, "Total requests", counter.Description)
}

func TestRegistry_CounterLabels(t *testing.T) {
	r := NewRegistry()

	r.IncrementCounter("requests_total", map[string]string{"method": "GET"}, "")
	r.IncrementCounter("requests_total", map[string]string{"method": "POST"}, "")
	r.IncrementCounter("requests_total", map[string]string{"method": "GET"}, "")

	snap := r.GetSnapshot()
	assert.Len(t, snap.Counters, 2)
	assert.Equal(t, float64(2), snap.Counters["requests_total,method=GET"].Value)
	assert.Equal(t, float64(1), snap.Counters["requests_total,method=POST"].Value)
}

func TestRegistry_LabelOrderIsCanonical(t *testing.T) {
	r := NewRegistry()

	r.IncrementCounter("m", map[string]string{"a": "1", "b": "2"}, "")
	r.IncrementCounter("m", map[string]string{"b": "2", "a": "1"}, "")

	snap := r.GetSnapshot()
	require.Len(t, snap.Counters, 1)
	assert.Equal(t, float64(2), snap.Counters["m,a=1,b=2"].Value)
}

func TestRegistry_Timers(t *testing.T) {
	r := NewRegistry()

	r.RecordTimer("op_duration", 10*time.Millisecond, nil)
	r.RecordTimer("op_duration", 30*time.Millisecond, nil)

	snap := r.GetSnapshot()
	timer, ok := snap.Timers["op_duration"]
	require.True(t, ok)
	assert.EqualValues(t, 2, timer.Count)
	assert.InDelta(t, 40, timer.Sum, 0.01)
	assert.InDelta(t, 10, timer.Min, 0.01)
	assert.InDelta(t, 30, timer.Max, 0.01)
	assert.InDelta(t, 20, timer.Average, 0.01)
}

func TestRegistry_Gauges(t *testing.T) {
	r := NewRegistry()

	r.SetGauge("queue_depth", 7, nil, "Queue depth")
	r.SetGauge("queue_depth", 3, nil, "Queue depth")

	snap := r.GetSnapshot()
	gauge, ok := snap.Gauges["queue_depth"]
	require.True(t, ok)
	assert.Equal(t, float64(3), gauge.Value)
}

func TestRegistry_SnapshotIsACopy(t *testing.T) {
	r := NewRegistry()
	r.IncrementCounter("c", nil, "")

	snap := r.GetSnapshot()
	snap.Counters["c"].Value = 99

	assert.Equal(t, float64(1), r.GetSnapshot().Counters["c"].Value)
}

func TestRegistry_Reset(t *testing.T) {
	r := NewRegistry()
	r.IncrementCounter("c", nil, "")
	r.RecordTimer("t", time.Millisecond, nil)
	r.SetGauge("g", 1, nil, "")

	r.Reset()

	snap := r.GetSnapshot()
	assert.Empty(t, snap.Counters)
	assert.Empty(t, snap.Timers)
	assert.Empty(t, snap.Gauges)
}

func TestGetRegistry_ReturnsSingleton(t *testing.T) {
	assert.Same(t, GetRegistry(), GetRegistry())
}
