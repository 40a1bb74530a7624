package metrics_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"notecast/internal/metrics"
)

func TestNilRecorderIsNoop(t *testing.T) {
	var r *metrics.Recorder
	r.ObserveStage("acquire", metrics.OutcomeExecuted, time.Second)
	r.ObservePipeline("completed")
	r.ObserveCleanup("removed")
	r.SetPendingCleanups(3)
	if r.Registry() != nil {
		t.Fatal("expected nil registry")
	}
}

func TestRecorderCountsStages(t *testing.T) {
	r := metrics.New()
	r.ObserveStage("acquire", metrics.OutcomeExecuted, 2*time.Second)
	r.ObserveStage("acquire", metrics.OutcomeReused, 0)
	r.ObserveStage("acquire", metrics.OutcomeReused, 0)

	families, err := r.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var found bool
	for _, family := range families {
		if family.GetName() != "notecast_stage_runs_total" {
			continue
		}
		found = true
		for _, metric := range family.GetMetric() {
			outcome := ""
			for _, label := range metric.GetLabel() {
				if label.GetName() == "outcome" {
					outcome = label.GetValue()
				}
			}
			want := map[string]float64{metrics.OutcomeExecuted: 1, metrics.OutcomeReused: 2}[outcome]
			if got := metric.GetCounter().GetValue(); got != want {
				t.Fatalf("outcome %s = %v, want %v", outcome, got, want)
			}
		}
	}
	if !found {
		t.Fatal("stage counter not gathered")
	}
}

func TestHandlerServesExposition(t *testing.T) {
	r := metrics.New()
	r.SetPendingCleanups(2)
	r.ObserveCleanup("removed")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "notecast_cleanups_pending 2") {
		t.Fatalf("expected pending gauge in exposition, got:\n%s", body)
	}
	if !strings.Contains(string(body), `notecast_cleanups_total{outcome="removed"} 1`) {
		t.Fatalf("expected cleanup counter in exposition, got:\n%s", body)
	}
}
