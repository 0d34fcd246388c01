package stream

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowbridge-c2-agent/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHTTPClient(url, ackURL, compression string) *HTTPClient {
	return NewHTTPClient(url, ackURL, compression, nil, time.Second, time.Second, 2*time.Second, discardLogger())
}

func TestHTTPClientSendHeartbeatReturnsOperations(t *testing.T) {
	var got model.Heartbeat
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		resp := model.HeartbeatResponse{Operations: []model.Operation{
			{ID: "op-1", Name: model.OperationDebug},
		}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := newTestHTTPClient(srv.URL, "", "none")
	hb := model.Heartbeat{AgentID: "agent-1", TimestampUnix: 42}

	ops, err := c.SendHeartbeat(context.Background(), hb)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, "op-1", ops[0].ID)
	assert.Equal(t, "agent-1", got.AgentID)
}

func TestHTTPClientGzipCompression(t *testing.T) {
	var got model.Heartbeat
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "gzip", r.Header.Get("Content-Encoding"))
		zr, err := gzip.NewReader(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.NewDecoder(zr).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestHTTPClient(srv.URL, "", "gzip")
	_, err := c.SendHeartbeat(context.Background(), model.Heartbeat{AgentID: "agent-1"})
	require.NoError(t, err)
	assert.Equal(t, "agent-1", got.AgentID)
}

func TestHTTPClientEmptyResponseMeansNoOperations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := newTestHTTPClient(srv.URL, "", "none")
	ops, err := c.SendHeartbeat(context.Background(), model.Heartbeat{})
	require.NoError(t, err)
	assert.Empty(t, ops)
}

func TestHTTPClientNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestHTTPClient(srv.URL, "", "none")
	_, err := c.SendHeartbeat(context.Background(), model.Heartbeat{})
	assert.Error(t, err)
}

func TestHTTPClientSendAck(t *testing.T) {
	var got model.OperationAck
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	c := newTestHTTPClient(srv.URL, srv.URL, "none")
	ack := model.OperationAck{OperationID: "op-1", State: model.AckFullyApplied}
	require.NoError(t, c.SendAck(context.Background(), ack))
	assert.Equal(t, "op-1", got.OperationID)
	assert.Equal(t, model.AckFullyApplied, got.State)
}

func TestHTTPClientAckWithoutURLIsNoop(t *testing.T) {
	c := newTestHTTPClient("http://127.0.0.1:0", "", "none")
	assert.NoError(t, c.SendAck(context.Background(), model.OperationAck{OperationID: "op-1"}))
}
