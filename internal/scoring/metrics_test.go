package scoring

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics()
	if m == nil {
		t.Fatal("NewMetrics() returned nil")
	}

	collectors := m.Collectors()
	if len(collectors) != 5 {
		t.Errorf("expected 5 collectors, got %d", len(collectors))
	}
}

func TestMetrics_Register(t *testing.T) {
	t.Run("successful registration", func(t *testing.T) {
		m := NewMetrics()
		reg := prometheus.NewRegistry()

		if err := m.Register(reg); err != nil {
			t.Errorf("Register() returned error: %v", err)
		}

		// Record some metrics to ensure they appear in Gather()
		m.IncRecomputeTotal(EntryRescore)
		m.IncRecomputeErrors(EntryRescore)
		m.ObserveRecomputeDuration(EntryRescore, 0.5)
		m.SetLastRecompute(EntryRescore, 1700000000, 42)

		families, err := reg.Gather()
		if err != nil {
			t.Errorf("Gather() returned error: %v", err)
		}

		expectedNames := map[string]bool{
			MetricRecomputeTotal:         false,
			MetricRecomputeErrors:        false,
			MetricRecomputeDuration:      false,
			MetricLastRecomputeTimestamp: false,
			MetricLastRecomputeUpdated:   false,
		}

		for _, family := range families {
			if _, ok := expectedNames[family.GetName()]; ok {
				expectedNames[family.GetName()] = true
			}
		}

		for name, found := range expectedNames {
			if !found {
				t.Errorf("metric %s not found in gathered metrics", name)
			}
		}
	})

	t.Run("duplicate registration fails", func(t *testing.T) {
		m1 := NewMetrics()
		m2 := NewMetrics()
		reg := prometheus.NewRegistry()

		if err := m1.Register(reg); err != nil {
			t.Fatalf("first Register() returned error: %v", err)
		}

		if err := m2.Register(reg); err == nil {
			t.Error("second Register() should have returned an error")
		}
	})
}

func TestMetrics_EntryPointLabels(t *testing.T) {
	m := NewMetrics()

	m.IncRecomputeTotal(EntryRescore)
	m.IncRecomputeTotal(EntryRescore)
	m.IncRecomputeTotal(EntryRetier)

	if got := counterValue(m.recomputeTotal, EntryRescore); got != 2 {
		t.Errorf("expected 2 rescore runs, got %f", got)
	}
	if got := counterValue(m.recomputeTotal, EntryRetier); got != 1 {
		t.Errorf("expected 1 retier run, got %f", got)
	}
	if got := counterValue(m.recomputeTotal, EntryReputation); got != 0 {
		t.Errorf("expected 0 reputation runs, got %f", got)
	}
}

func TestMetrics_SetLastRecompute(t *testing.T) {
	m := NewMetrics()

	m.SetLastRecompute(EntryReputation, 1700000000, 17)
	m.SetLastRecompute(EntryReputation, 1700000600, 23)

	if got := gaugeValue(m.lastRecomputeTimestamp, EntryReputation); got != 1700000600 {
		t.Errorf("expected latest timestamp, got %f", got)
	}
	if got := gaugeValue(m.lastRecomputeUpdated, EntryReputation); got != 23 {
		t.Errorf("expected latest updated count, got %f", got)
	}
}

func counterValue(vec *prometheus.CounterVec, labels ...string) float64 {
	metric, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		return -1
	}
	var m dto.Metric
	if err := metric.Write(&m); err != nil {
		return -1
	}
	return m.GetCounter().GetValue()
}

func gaugeValue(vec *prometheus.GaugeVec, labels ...string) float64 {
	metric, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		return -1
	}
	var m dto.Metric
	if err := metric.Write(&m); err != nil {
		return -1
	}
	return m.GetGauge().GetValue()
}
