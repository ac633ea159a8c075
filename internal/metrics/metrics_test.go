package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestObserveRequest_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRequest("/randomness", "POST", 200, 10*time.Millisecond)
	m.ObserveRequest("/randomness", "POST", 400, 5*time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	counter := findCounterValue(t, families, "star_randsrv_requests_total", map[string]string{
		"route": "/randomness", "method": "POST", "status": "2xx",
	})
	if counter != 1 {
		t.Fatalf("expected 1 request in the 2xx class, got %v", counter)
	}
}

func TestSetCurrentEpoch_PublishesGaugeValue(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.SetCurrentEpoch(17)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() == "star_randsrv_current_epoch" {
			if got := f.Metric[0].GetGauge().GetValue(); got != 17 {
				t.Fatalf("expected gauge value 17, got %v", got)
			}
			return
		}
	}
	t.Fatal("star_randsrv_current_epoch series not found")
}

func findCounterValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, metric := range f.Metric {
			if labelsMatch(metric.GetLabel(), labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("series %s with labels %v not found", name, labels)
	return 0
}

func labelsMatch(pairs []*dto.LabelPair, want map[string]string) bool {
	if len(pairs) != len(want) {
		return false
	}
	for _, p := range pairs {
		if want[p.GetName()] != p.GetValue() {
			return false
		}
	}
	return true
}
