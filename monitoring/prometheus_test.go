package monitoring

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mezonai/tokenledger/logx"
)

func TestMain(m *testing.M) {
	logx.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func TestRecordOperation(t *testing.T) {
	counter := metrics().operations.WithLabelValues("mint")
	before := testutil.ToFloat64(counter)

	RecordOperation("mint")
	RecordOperation("mint")
	assert.Equal(t, before+2, testutil.ToFloat64(counter))

	rejected := metrics().rejectedOperations.WithLabelValues("transfer", "BadFee")
	before = testutil.ToFloat64(rejected)
	RecordRejectedOperation("transfer", "BadFee")
	assert.Equal(t, before+1, testutil.ToFloat64(rejected))
}

func TestSetLogLength(t *testing.T) {
	SetLogLength(10, 4)
	assert.Equal(t, float64(10), testutil.ToFloat64(metrics().logLength))
	assert.Equal(t, float64(6), testutil.ToFloat64(metrics().hotLogLength))
}

func TestRegisterMetrics_ServesLedgerMetrics(t *testing.T) {
	AddArchivedTransactions(3)
	IncreasePanicCount()

	mux := http.NewServeMux()
	RegisterMetrics(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "tokenledger_archived_transactions_total")
	assert.Contains(t, string(body), "tokenledger_panics_total")
	assert.Contains(t, string(body), "tokenledger_up_timestamp_unix_seconds")
}
