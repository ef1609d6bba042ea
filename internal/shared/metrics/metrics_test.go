package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveProbe_CountsByResult(t *testing.T) {
	success := testutil.ToFloat64(probeTotal.WithLabelValues("success"))
	failure := testutil.ToFloat64(probeTotal.WithLabelValues("failure"))

	ObserveProbe(0.1, nil)
	ObserveProbe(0.2, errors.New("timeout"))
	ObserveProbe(0.3, errors.New("timeout"))

	assert.Equal(t, success+1, testutil.ToFloat64(probeTotal.WithLabelValues("success")))
	assert.Equal(t, failure+2, testutil.ToFloat64(probeTotal.WithLabelValues("failure")))
}

func TestSetConnected(t *testing.T) {
	SetConnected(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(vpnConnectedGauge))
	SetConnected(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(vpnConnectedGauge))
}

func TestObserveTransition(t *testing.T) {
	before := testutil.ToFloat64(transitionsTotal.WithLabelValues("disconnected"))
	ObserveTransition(false)
	assert.Equal(t, before+1, testutil.ToFloat64(transitionsTotal.WithLabelValues("disconnected")))
}
