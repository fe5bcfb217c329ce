package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dto "github.com/prometheus/client_model/go"
)

func TestNewCounters_RegistersAllCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCounters("derc", reg)
	require.NoError(t, err)

	c.RequestsTotal().Inc()
	c.SEMWritesBlocked().Add(2)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	var sawRequests, sawBlocked bool
	for _, fam := range families {
		switch fam.GetName() {
		case "derc_requests_total":
			sawRequests = true
			assert.Equal(t, float64(1), counterValue(fam))
		case "derc_sem_writes_blocked_total":
			sawBlocked = true
			assert.Equal(t, float64(2), counterValue(fam))
		}
	}
	assert.True(t, sawRequests)
	assert.True(t, sawBlocked)
}

func counterValue(fam *dto.MetricFamily) float64 {
	if len(fam.Metric) == 0 {
		return 0
	}
	return fam.Metric[0].GetCounter().GetValue()
}

func TestNewCounters_DuplicateNamespaceFailsOnSecondRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewCounters("derc", reg)
	require.NoError(t, err)

	_, err = NewCounters("derc", reg)
	assert.Error(t, err)
}
