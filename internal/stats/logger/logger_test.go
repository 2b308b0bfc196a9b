package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/discochess/xzra/internal/stats"
)

func TestCollector_IncCounterLogsTotal(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	c := New(zap.New(core))

	c.IncCounter(stats.MetricBlocksDecoded, 2)
	c.IncCounter(stats.MetricBlocksDecoded, 3)

	if got := c.Total(stats.MetricBlocksDecoded); got != 5 {
		t.Errorf("Total() = %d, want 5", got)
	}
	entries := logs.FilterMessage("counter").All()
	if len(entries) != 2 {
		t.Fatalf("got %d counter entries, want 2", len(entries))
	}
	if got := entries[1].ContextMap()["total"]; got != int64(5) {
		t.Errorf("total field = %v, want 5", got)
	}
}

func TestCollector_GaugeAndHistogram(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	c := New(zap.New(core))

	c.SetGauge(stats.MetricCacheSize, 4)
	c.ObserveHistogram(stats.MetricLoadSeconds, 0.25)

	if n := logs.FilterMessage("gauge").Len(); n != 1 {
		t.Errorf("gauge entries = %d, want 1", n)
	}
	if n := logs.FilterMessage("histogram").Len(); n != 1 {
		t.Errorf("histogram entries = %d, want 1", n)
	}
}

func TestNew_NilLogger(t *testing.T) {
	c := New(nil)
	c.IncCounter("x", 1)
	if got := c.Total("x"); got != 1 {
		t.Errorf("Total() = %d, want 1", got)
	}
}
