package adapter

import (
	"context"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-offline-sync/internal/config"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/utils"
	"github.com/MKhiriev/go-offline-sync/models"
)

const testHashKey = "testhashkey"

func newTestAdapter(t *testing.T, serverURL string) *httpServerAdapter {
	t.Helper()
	adapterCfg := config.ClientAdapter{
		HTTPAddress:   serverURL,
		RetryAttempts: 3,
		RetryBackoff:  time.Millisecond,
	}
	appCfg := config.ClientApp{HashKey: testHashKey}

	a, err := NewHTTPServerAdapter(adapterCfg, appCfg, logger.Nop())
	require.NoError(t, err)
	return a.(*httpServerAdapter)
}

func testBatchRequest() models.SyncBatchRequest {
	return models.SyncBatchRequest{
		UserID: "u1",
		Transactions: []models.WireTransaction{{
			ID:       "tx-1",
			UserID:   "u1",
			Kind:     models.TxEarn,
			Payload:  []byte(`{"points":10,"reason":"purchase"}`),
			Priority: 1,
		}},
		Events: []models.WireEvent{{ID: "ev-1", Type: "view", Payload: []byte(`{}`)}},
		Watermarks: models.Watermarks{
			POI: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
	}
}

func writeBatchResponse(t *testing.T, w http.ResponseWriter, resp models.SyncBatchResponse) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	require.NoError(t, json.NewEncoder(w).Encode(resp))
}

// ── Construction ─────────────────────────────────────────────────────────────

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "localhost:8080", want: "http://localhost:8080"},
		{raw: "https://api.example.com/", want: "https://api.example.com"},
		{raw: "  ", wantErr: true},
		{raw: "http://", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := normalizeBaseURL(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// ── Authenticate ─────────────────────────────────────────────────────────────

func TestAuthenticate_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/device", r.URL.Path)

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "u1", body["user_id"])

		w.Header().Set("Authorization", "Bearer device-token")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	require.NoError(t, a.Authenticate(context.Background(), "u1"))
	assert.Equal(t, "device-token", a.Token())
}

func TestAuthenticate_MissingHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	assert.Error(t, a.Authenticate(context.Background(), "u1"))
	assert.Empty(t, a.Token())
}

// ── SubmitBatch ──────────────────────────────────────────────────────────────

func TestSubmitBatch_WireFormat(t *testing.T) {
	var captured []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/sync/batch", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		captured = body
		assert.Equal(t, utils.HashString(string(body), testHashKey), r.Header.Get(HashHeader))

		writeBatchResponse(t, w, models.SyncBatchResponse{
			Transactions: []models.TransactionResult{{QueueID: "tx-1", Status: models.TxSynced}},
			Events:       []models.EventResult{{EventID: "ev-1", Status: models.EventSent}},
		})
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	a.SetToken("tok")

	resp, err := a.SubmitBatch(context.Background(), testBatchRequest())
	require.NoError(t, err)
	require.Len(t, resp.Transactions, 1)
	assert.Equal(t, models.TxSynced, resp.Transactions[0].Status)

	g := goldie.New(t)
	g.Assert(t, "sync_batch_request", captured)
}

func TestSubmitBatch_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeBatchResponse(t, w, models.SyncBatchResponse{})
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	a.SetToken("tok")

	_, err := a.SubmitBatch(context.Background(), testBatchRequest())
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestSubmitBatch_GivesUpAfterRetryCeiling(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	a.SetToken("tok")

	_, err := a.SubmitBatch(context.Background(), testBatchRequest())
	assert.ErrorIs(t, err, ErrBadGateway)
	assert.Equal(t, int32(3), calls.Load())
}

func TestSubmitBatch_BadRequestIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("malformed batch"))
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	a.SetToken("tok")

	_, err := a.SubmitBatch(context.Background(), testBatchRequest())
	assert.ErrorIs(t, err, ErrBadRequest)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSubmitBatch_RenewsExpiredToken(t *testing.T) {
	var auths atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/device":
			auths.Add(1)
			w.Header().Set("Authorization", "Bearer fresh")
			w.WriteHeader(http.StatusOK)
		case "/api/sync/batch":
			if r.Header.Get("Authorization") != "Bearer fresh" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			writeBatchResponse(t, w, models.SyncBatchResponse{})
		}
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	a.SetToken("expired")

	_, err := a.SubmitBatch(context.Background(), testBatchRequest())
	require.NoError(t, err)
	assert.Equal(t, int32(1), auths.Load())
	assert.Equal(t, "fresh", a.Token())
}

func TestSubmitBatch_NetworkUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	a := newTestAdapter(t, url)
	a.SetToken("tok")

	_, err := a.SubmitBatch(context.Background(), testBatchRequest())
	assert.ErrorIs(t, err, models.ErrNetworkUnavailable)
}

func TestSubmitBatch_ResponseSignature(t *testing.T) {
	tests := []struct {
		name      string
		signature func(body []byte) string
		wantErr   error
	}{
		{
			name: "valid signature",
			signature: func(body []byte) string {
				return utils.HashString(string(body), testHashKey)
			},
		},
		{
			name:      "tampered body",
			signature: func([]byte) string { return hex.EncodeToString([]byte("forged")) },
			wantErr:   ErrIntegrityCheck,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				body, err := json.Marshal(models.SyncBatchResponse{})
				assert.NoError(t, err)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set(HashHeader, tt.signature(body))
				_, _ = w.Write(body)
			}))
			defer srv.Close()

			a := newTestAdapter(t, srv.URL)
			a.SetToken("tok")

			_, err := a.SubmitBatch(context.Background(), testBatchRequest())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

// ── Probe / Version / FetchMedia ─────────────────────────────────────────────

func TestProbe(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/health", r.URL.Path)
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)

	status, err := a.Probe(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Online)

	healthy.Store(false)
	status, err = a.Probe(context.Background())
	assert.ErrorIs(t, err, models.ErrNetworkUnavailable)
	assert.False(t, status.Online)
}

func TestVersion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/version/", r.URL.Path)
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("1.4.0\n"))
	}))
	defer srv.Close()

	got, err := newTestAdapter(t, srv.URL).Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.4.0", got)
}

func TestFetchMedia(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/media/hero.png" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)

	data, err := a.FetchMedia(context.Background(), srv.URL+"/media/hero.png")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data)

	_, err = a.FetchMedia(context.Background(), "/media/missing.png")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, models.ErrEntityNotFound)
}
