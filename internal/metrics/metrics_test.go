package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestImportMetrics(t *testing.T) {
	MessagesImported.Reset()
	CheckpointUID.Reset()

	MessagesImported.WithLabelValues(ResultCreated).Inc()
	MessagesImported.WithLabelValues(ResultCreated).Inc()
	MessagesImported.WithLabelValues(ResultDuplicate).Inc()
	CheckpointUID.WithLabelValues("me@example.com", "INBOX").Set(42)

	if got := testutil.ToFloat64(MessagesImported.WithLabelValues(ResultCreated)); got != 2 {
		t.Errorf("Expected 2 created, got %v", got)
	}
	if got := testutil.ToFloat64(MessagesImported.WithLabelValues(ResultDuplicate)); got != 1 {
		t.Errorf("Expected 1 duplicate, got %v", got)
	}
	if got := testutil.ToFloat64(CheckpointUID.WithLabelValues("me@example.com", "INBOX")); got != 42 {
		t.Errorf("Expected checkpoint 42, got %v", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	FetchGaps.Inc()

	server := httptest.NewServer(promhttp.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("Failed to scrape metrics: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}

	for _, name := range []string{"mailvault_fetch_gaps_total", "mailvault_folders_skipped_total", "mailvault_threads_assigned_total"} {
		if !strings.Contains(string(body), name) {
			t.Errorf("Expected %s in scrape output", name)
		}
	}
}
