package stats

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewStatsUpdater(t *testing.T) {
	mux := http.NewServeMux()
	su := NewStatsUpdater(mux)
	assert.NotNil(t, su, "expected StatsUpdater to be non-nil")
	assert.NotNil(t, su.updateChan, "expected updateChan to be initialized")
	handler, pattern := mux.Handler(&http.Request{URL: &url.URL{Path: "/debug/vars"}, Method: http.MethodGet})
	assert.NotNil(t, handler, "expected handler for /debug/vars to be set")
	assert.Equal(t, "GET /debug/vars", pattern, "expected handler to be registered for GET method on /debug/vars")
}

func TestStatsUpdater_Set(t *testing.T) {
	su := NewStatsUpdater(http.NewServeMux())
	su.RegisterMetric(UnreadMessages)
	su.Run()
	defer su.Stop()

	su.Incr(UnreadMessages)
	su.Set(UnreadMessages, 7)

	assert.Eventually(t, func() bool {
		return su.vars.Get(UnreadMessages).String() == "7"
	}, time.Second, 10*time.Millisecond, "expected Set to replace the metric value")
}
