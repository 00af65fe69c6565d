package metrics

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordHTTPRequest(t *testing.T) {
	counter := HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/recipes/:id", "404")
	before := testutil.ToFloat64(counter)

	RecordHTTPRequest(http.MethodGet, "/recipes/:id", http.StatusNotFound, 12*time.Millisecond)
	RecordHTTPRequest(http.MethodGet, "/recipes/:id", http.StatusNotFound, 3*time.Millisecond)

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "error", Outcome(errors.New("x")))
}
