package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_DownloadsTotal(t *testing.T) {
	before := testutil.ToFloat64(DownloadsTotal.WithLabelValues("audio", "done"))
	DownloadsTotal.WithLabelValues("audio", "done").Inc()
	after := testutil.ToFloat64(DownloadsTotal.WithLabelValues("audio", "done"))

	assert.Equal(t, before+1, after)
}

func TestMetrics_QueueDepth(t *testing.T) {
	QueueDepth.Set(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(QueueDepth))
	QueueDepth.Set(0)
}

func TestMetrics_LibraryEntries(t *testing.T) {
	LibraryEntries.WithLabelValues("video").Set(7)
	assert.Equal(t, 7.0, testutil.ToFloat64(LibraryEntries.WithLabelValues("video")))
	LibraryEntries.WithLabelValues("video").Set(0)
}

func TestMetrics_Registered(t *testing.T) {
	families, err := prometheus.DefaultGatherer.Gather()
	assert.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	// vectors only show up once a label set has been observed
	assert.True(t, names["tubetrove_downloads_in_flight"])
	assert.True(t, names["tubetrove_queue_rejected_total"])
	assert.True(t, names["tubetrove_title_cache_hits_total"])
}
