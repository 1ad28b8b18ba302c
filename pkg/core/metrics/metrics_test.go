package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func TestObserveCall(t *testing.T) {
	m := New()

	m.ObserveCall("/bankapi.AccountService/GetBalance", codes.OK, 10*time.Millisecond)
	m.ObserveCall("/bankapi.AccountService/GetBalance", codes.OK, 20*time.Millisecond)
	m.ObserveCall("/bankapi.AccountService/GetAccount", codes.Unavailable, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CallsTotal.WithLabelValues("/bankapi.AccountService/GetBalance", "OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CallsTotal.WithLabelValues("/bankapi.AccountService/GetAccount", "Unavailable")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.CallDuration))
}

func TestObserveRun(t *testing.T) {
	m := New()
	m.ObserveRun(3, 1500*time.Millisecond)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.OperationsFailed))
	assert.Equal(t, 1.5, testutil.ToFloat64(m.RunDuration))
}

func TestSeparateRegistries(t *testing.T) {
	// a second instance must not panic on duplicate registration
	a, b := New(), New()
	a.ObserveRun(1, time.Second)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.OperationsFailed))
}

func TestPush(t *testing.T) {
	var path, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := New()
	m.ObserveRun(2, time.Second)
	require.NoError(t, m.Push(context.Background(), srv.URL, "bankprobe", "bank-x"))

	assert.True(t, strings.HasPrefix(path, "/metrics/job/bankprobe/bank_id/bank-x"), path)
	assert.NotEmpty(t, body)
}

func TestPush_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := New().Push(context.Background(), srv.URL, "bankprobe", "bank-x")
	assert.Error(t, err)
}
