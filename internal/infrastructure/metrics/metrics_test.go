package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	if out.Gauge != nil {
		return out.GetGauge().GetValue()
	}
	return out.GetCounter().GetValue()
}

func TestRecordOperation(t *testing.T) {
	c := operationsTotal.WithLabelValues("connect", "ok")
	before := value(t, c)
	RecordOperation("connect", "ok")
	RecordOperation("connect", "ok")
	assert.Equal(t, before+2, value(t, c))
}

func TestRecordViolation(t *testing.T) {
	c := violationsTotal.WithLabelValues("place", "duplicate", "no-duplicate-placement")
	before := value(t, c)
	RecordViolation("place", "duplicate", "no-duplicate-placement")
	assert.Equal(t, before+1, value(t, c))
}

func TestSessions(t *testing.T) {
	SetActiveSessions(4)
	assert.Equal(t, float64(4), value(t, sessionsActive))

	before := value(t, sessionsEvicted)
	IncEvictedSessions(2)
	assert.Equal(t, before+2, value(t, sessionsEvicted))
}

func TestRegistryGathers(t *testing.T) {
	ObserveRepository("memory", "save", 0.001)
	ObserveDocumentSize("msgpack+zstd", 900)

	families, err := Registry.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["ivrflow_repository_duration_seconds"])
	assert.True(t, names["ivrflow_document_size_bytes"])
}
