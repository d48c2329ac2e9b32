package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorders(t *testing.T) {
	m := New()
	m.RecordNavigation("disk", "success", 0.01)
	m.RecordNavigation("disk", "success", 0.02)
	m.RecordNavigation("archive", "invalid_archive", 0.01)
	m.RecordShortening()
	m.RecordFallback("fixed")
	m.SetListingEntries("left", 12)
	m.RecordIconDrop()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.navigationsTotal.WithLabelValues("disk", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.navigationsTotal.WithLabelValues("archive", "invalid_archive")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.shorteningSteps))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fallbacksTotal.WithLabelValues("fixed")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.listingEntries.WithLabelValues("left")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.iconQueueDropped))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordNavigation("disk", "success", 1)
		m.RecordShortening()
		m.RecordFallback("rescue")
		m.SetListingEntries("right", 1)
		m.RecordIconDrop()
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.RecordShortening()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "salpanel_shortening_steps_total 1"))
}
