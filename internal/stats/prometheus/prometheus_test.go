package prometheus

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/discochess/xzra/internal/stats"
)

// gather returns the metric family with the given name, or nil.
func gather(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	return nil
}

func TestNew_DefaultRegistry(t *testing.T) {
	c := New(nil)
	if c.registry != prometheus.DefaultRegisterer {
		t.Error("registry should default to prometheus.DefaultRegisterer")
	}
}

func TestCollector_IncCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.IncCounter(stats.MetricBlocksDecoded, 5)
	c.IncCounter(stats.MetricBlocksDecoded, 3)

	f := gather(t, reg, stats.MetricBlocksDecoded)
	if f == nil {
		t.Fatalf("%s not registered", stats.MetricBlocksDecoded)
	}
	if got := f.GetMetric()[0].GetCounter().GetValue(); got != 8 {
		t.Errorf("counter value = %v, want 8", got)
	}
	if got, want := f.GetHelp(), stats.Help(stats.MetricBlocksDecoded); got != want {
		t.Errorf("help = %q, want %q", got, want)
	}
}

func TestCollector_SetGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.SetGauge(stats.MetricCacheSize, 7)
	c.SetGauge(stats.MetricCacheSize, 3)

	f := gather(t, reg, stats.MetricCacheSize)
	if f == nil {
		t.Fatalf("%s not registered", stats.MetricCacheSize)
	}
	if got := f.GetMetric()[0].GetGauge().GetValue(); got != 3 {
		t.Errorf("gauge value = %v, want 3", got)
	}
}

func TestCollector_LoadSecondsBuckets(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.ObserveHistogram(stats.MetricLoadSeconds, 0.002)
	c.ObserveHistogram("other_seconds", 0.002)

	load := gather(t, reg, stats.MetricLoadSeconds).GetMetric()[0].GetHistogram()
	if got := len(load.GetBucket()); got != len(loadBuckets) {
		t.Errorf("load histogram has %d buckets, want %d", got, len(loadBuckets))
	}
	other := gather(t, reg, "other_seconds").GetMetric()[0].GetHistogram()
	if got := len(other.GetBucket()); got != len(prometheus.DefBuckets) {
		t.Errorf("other histogram has %d buckets, want %d", got, len(prometheus.DefBuckets))
	}
	if load.GetSampleCount() != 1 {
		t.Errorf("sample count = %d, want 1", load.GetSampleCount())
	}
}

func TestCollector_ConcurrentAccess(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.IncCounter(stats.MetricBytesLoaded, 2)
				c.ObserveHistogram(stats.MetricLoadSeconds, float64(j)/1000)
			}
		}()
	}
	wg.Wait()

	if got := gather(t, reg, stats.MetricBytesLoaded).GetMetric()[0].GetCounter().GetValue(); got != 1600 {
		t.Errorf("counter value = %v, want 1600", got)
	}
	if got := gather(t, reg, stats.MetricLoadSeconds).GetMetric()[0].GetHistogram().GetSampleCount(); got != 800 {
		t.Errorf("histogram count = %v, want 800", got)
	}
}

func TestCollector_AlreadyRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()

	// Same name and help as the collector would use for an unknown metric.
	existing := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "preexisting_total",
		Help: "preexisting_total",
	})
	reg.MustRegister(existing)
	existing.Add(100)

	c := New(reg)
	c.IncCounter("preexisting_total", 5)

	if got := gather(t, reg, "preexisting_total").GetMetric()[0].GetCounter().GetValue(); got != 105 {
		t.Errorf("counter value = %v, want 105", got)
	}
}
