package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewCollector(t *testing.T) {
	if NewCollector() == nil {
		t.Fatal("NewCollector returned nil")
	}
}

func TestIncDroppedContributionDoesNotPanic(t *testing.T) {
	c := NewCollector()
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("IncDroppedContribution panicked: %v", r)
		}
	}()
	c.IncDroppedContribution()
	c.IncDroppedContribution()
}

func TestWritePrometheusExposesInstruments(t *testing.T) {
	c := NewCollector()
	c.IncDroppedContribution()
	c.SetPoolOccupancy(2)
	c.SetRegistrySize(37)

	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	rec := httptest.NewRecorder()
	c.WritePrometheus(rec, req)

	body := rec.Body.String()

	for _, want := range []string{
		"heapstats_dropped_contributions_total",
		"heapstats_pool_occupancy",
		"heapstats_registry_size",
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestTwoCollectorsDoNotCollide(t *testing.T) {
	// Each Collector owns a private registry, so creating a second one must
	// not panic on double-registration the way a shared default registry
	// would.
	a := NewCollector()
	b := NewCollector()
	a.IncDroppedContribution()
	b.IncDroppedContribution()
}
