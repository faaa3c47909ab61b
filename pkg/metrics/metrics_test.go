package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(verdicts.WithLabelValues("accepted"))
	IncVerdict("accepted")
	IncVerdict("accepted")
	assert.Equal(t, before+2, testutil.ToFloat64(verdicts.WithLabelValues("accepted")))

	beforeQ := testutil.ToFloat64(questions.WithLabelValues("direct"))
	IncQuestion("direct")
	assert.Equal(t, beforeQ+1, testutil.ToFloat64(questions.WithLabelValues("direct")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	IncRetrieval("ok")
	ObserveStage("rank", time.Now())
	ObserveEngine("visual", 3)
	ObservePassages(12)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)

	for _, name := range []string{
		"agent_retrievals_total",
		"agent_stage_latency_ms",
		"search_engine_results",
		"retriever_passages_extracted",
	} {
		assert.Contains(t, text, name)
	}
}
