package cluster

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGetJSON covers decoding and the error translation contract.
func TestGetJSON(t *testing.T) {
	t.Run("decodes a 200 body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			WriteJSON(w, http.StatusOK, ValueEnvelope{Value: "v1"})
		}))
		defer srv.Close()

		var out ValueEnvelope
		require.NoError(t, GetJSON(context.Background(), srv.URL, &out))
		assert.Equal(t, "v1", out.Value)
	})

	t.Run("error envelope becomes the matching sentinel", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			WriteError(w, ErrNoWorkers)
		}))
		defer srv.Close()

		err := GetJSON(context.Background(), srv.URL, &ValueEnvelope{})
		assert.ErrorIs(t, err, ErrNoWorkers)
	})

	t.Run("bare 404 becomes ErrNotFound", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		err := GetJSON(context.Background(), srv.URL+"/missing", &ValueEnvelope{})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("connection failure becomes ErrPeerUnreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()

		err := GetJSON(context.Background(), srv.URL, &ValueEnvelope{})
		assert.ErrorIs(t, err, ErrPeerUnreachable)
	})

	t.Run("non-envelope 500 becomes ErrPeerUnreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "panic page", http.StatusInternalServerError)
		}))
		defer srv.Close()

		err := GetJSON(context.Background(), srv.URL, &ValueEnvelope{})
		assert.ErrorIs(t, err, ErrPeerUnreachable)
	})
}

// TestPostJSON verifies the body round trip and nil-out handling.
func TestPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var in HeartbeatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "w1", in.ID)
		WriteJSON(w, http.StatusOK, AckResponse{OK: true})
	}))
	defer srv.Close()

	var ack AckResponse
	require.NoError(t, PostJSON(context.Background(), srv.URL, HeartbeatRequest{ID: "w1", Address: "http://x"}, &ack))
	assert.True(t, ack.OK)

	require.NoError(t, PostJSON(context.Background(), srv.URL, HeartbeatRequest{ID: "w1"}, nil))
}

// TestPutJSON verifies the proxy helper uses PUT.
func TestPutJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		WriteJSON(w, http.StatusOK, PutResponse{Acks: 2})
	}))
	defer srv.Close()

	var out PutResponse
	require.NoError(t, PutJSON(context.Background(), srv.URL, ValueEnvelope{Value: "v"}, &out))
	assert.Equal(t, 2, out.Acks)
}

// TestStatusCode pins the error-to-status mapping.
func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{ErrNoWorkers, http.StatusServiceUnavailable},
		{ErrMappingUnavailable, http.StatusServiceUnavailable},
		{ErrQuorumNotMet, http.StatusServiceUnavailable},
		{ErrPeerUnreachable, http.StatusServiceUnavailable},
		{ErrNotFound, http.StatusNotFound},
		{ErrStorageFailure, http.StatusInternalServerError},
		{errors.New("anything else"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, StatusCode(tt.err), "for %v", tt.err)
	}
}

// TestWriteErrorRoundTrip verifies a wrapped sentinel survives the trip
// through the wire envelope.
func TestWriteErrorRoundTrip(t *testing.T) {
	for _, sentinel := range []error{
		ErrNoWorkers, ErrMappingUnavailable, ErrQuorumNotMet,
		ErrNotFound, ErrStorageFailure, ErrPeerUnreachable,
	} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			WriteError(w, sentinel)
		}))

		err := GetJSON(context.Background(), srv.URL, &ValueEnvelope{})
		assert.ErrorIs(t, err, sentinel)
		srv.Close()
	}
}
