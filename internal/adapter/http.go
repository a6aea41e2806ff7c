package adapter

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/sethvargo/go-retry"

	"github.com/MKhiriev/go-offline-sync/internal/config"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/utils"
	"github.com/MKhiriev/go-offline-sync/models"
)

// HashHeader carries the hex HMAC-SHA256 of a request or response body.
const HashHeader = "HashSHA256"

const (
	batchPath   = "/api/sync/batch"
	healthPath  = "/api/health"
	versionPath = "/api/version/"
	devicePath  = "/api/auth/device"

	maxBackoff = 30 * time.Second
)

type httpServerAdapter struct {
	client *utils.HTTPClient

	retryAttempts int
	retryBackoff  time.Duration

	mu    sync.RWMutex
	token string

	logger *logger.Logger
}

// NewHTTPServerAdapter constructs the HTTP implementation of [ServerAdapter].
// The base URL is adapterCfg.HTTPAddress; a missing scheme means http. The
// shared HMAC hasher pool is initialised with appCfg.HashKey.
func NewHTTPServerAdapter(adapterCfg config.ClientAdapter, appCfg config.ClientApp, logger *logger.Logger) (ServerAdapter, error) {
	baseURL, err := normalizeBaseURL(adapterCfg.HTTPAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid adapter http address: %w", err)
	}

	client := utils.NewHTTPClient(adapterCfg.RequestTimeout)
	client.SetBaseURL(baseURL)

	utils.InitHasherPool(appCfg.HashKey)

	return &httpServerAdapter{
		client:        client,
		retryAttempts: adapterCfg.RetryAttempts,
		retryBackoff:  adapterCfg.RetryBackoff,
		logger:        logger.WithComponent("adapter"),
	}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address")
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("address must include host and scheme")
	}

	return strings.TrimRight(u.String(), "/"), nil
}

func (h *httpServerAdapter) SetToken(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = strings.TrimSpace(token)
}

func (h *httpServerAdapter) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

// Authenticate POSTs userID to /api/auth/device and stores the bearer token
// returned in the Authorization header.
func (h *httpServerAdapter) Authenticate(ctx context.Context, userID string) error {
	resp, err := h.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"user_id": userID}).
		Post(devicePath)
	if err != nil {
		return fmt.Errorf("%w: device auth request: %w", models.ErrNetworkUnavailable, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return err
	}

	token, err := utils.ParseBearerToken(resp.Header().Get("Authorization"))
	if err != nil {
		return fmt.Errorf("device auth parse bearer token: %w", err)
	}

	h.SetToken(token)
	return nil
}

// SubmitBatch signs the encoded request with the HashSHA256 header and POSTs
// it to /api/sync/batch. Connection errors, 5xx and 401 responses are
// retried; a 401 first renews the device token. Other errors are returned at
// once.
func (h *httpServerAdapter) SubmitBatch(ctx context.Context, req models.SyncBatchRequest) (models.SyncBatchResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return models.SyncBatchResponse{}, fmt.Errorf("encode sync batch: %w", err)
	}
	signature := hex.EncodeToString(utils.Hash(body))

	var (
		result  models.SyncBatchResponse
		attempt int
	)
	err = retry.Do(ctx, h.backoff(), func(ctx context.Context) error {
		attempt++

		if h.Token() == "" {
			if err := h.Authenticate(ctx, req.UserID); err != nil {
				return h.classify(err, attempt)
			}
		}

		resp, err := h.authedRequest(ctx).
			SetHeader("Content-Type", "application/json").
			SetHeader(HashHeader, signature).
			SetBody(body).
			Post(batchPath)
		if err != nil {
			return h.classify(fmt.Errorf("%w: sync batch request: %w", models.ErrNetworkUnavailable, err), attempt)
		}
		if err = mapHTTPError(resp); err != nil {
			if errors.Is(err, ErrUnauthorized) {
				h.SetToken("")
			}
			return h.classify(err, attempt)
		}

		if err = verifyResponse(resp); err != nil {
			return err
		}

		result = models.SyncBatchResponse{}
		if err = json.Unmarshal(resp.Body(), &result); err != nil {
			return fmt.Errorf("decode sync batch response: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.SyncBatchResponse{}, err
	}

	h.logger.Debug().
		Str("func", "httpServerAdapter.SubmitBatch").
		Int("attempts", attempt).
		Int("transactions", len(result.Transactions)).
		Int("events", len(result.Events)).
		Msg("sync batch submitted")
	return result, nil
}

func (h *httpServerAdapter) backoff() retry.Backoff {
	base := h.retryBackoff
	if base <= 0 {
		base = time.Second
	}

	b := retry.NewExponential(base)
	b = retry.WithCappedDuration(maxBackoff, b)
	if h.retryAttempts > 1 {
		return retry.WithMaxRetries(uint64(h.retryAttempts-1), b)
	}
	return retry.WithMaxRetries(0, b)
}

// classify marks transient failures as retryable and logs them.
func (h *httpServerAdapter) classify(err error, attempt int) error {
	if !errors.Is(err, models.ErrNetworkUnavailable) && !retryable(err) {
		return err
	}

	h.logger.Warn().
		Err(err).
		Str("func", "httpServerAdapter.SubmitBatch").
		Int("attempt", attempt).
		Msg("transient sync failure")
	return retry.RetryableError(err)
}

// verifyResponse checks the HashSHA256 header when the server sent one.
func verifyResponse(resp *resty.Response) error {
	want := resp.Header().Get(HashHeader)
	if want == "" {
		return nil
	}
	if got := hex.EncodeToString(utils.Hash(resp.Body())); got != want {
		return fmt.Errorf("%w: got %s, header %s", ErrIntegrityCheck, got, want)
	}
	return nil
}

// Probe GETs /api/health. Any answer from the backend means the device is
// online; the link type cannot be observed from here.
func (h *httpServerAdapter) Probe(ctx context.Context) (models.NetworkStatus, error) {
	resp, err := h.client.R().SetContext(ctx).Get(healthPath)
	if err != nil {
		return models.NetworkStatus{Type: models.ConnectionNone}, fmt.Errorf("%w: %w", models.ErrNetworkUnavailable, err)
	}
	if resp.StatusCode() >= http.StatusInternalServerError {
		return models.NetworkStatus{Type: models.ConnectionNone}, fmt.Errorf("%w: %w", models.ErrNetworkUnavailable, mapHTTPError(resp))
	}
	return models.NetworkStatus{Online: true, Type: models.ConnectionUnknown, Strength: 100}, nil
}

// Version GETs /api/version/ and returns the plain-text body.
func (h *httpServerAdapter) Version(ctx context.Context) (string, error) {
	resp, err := h.client.R().SetContext(ctx).Get(versionPath)
	if err != nil {
		return "", fmt.Errorf("%w: version request: %w", models.ErrNetworkUnavailable, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return "", err
	}
	return strings.TrimSpace(string(resp.Body())), nil
}

// FetchMedia downloads rawURL, which may be absolute or relative to the
// backend.
func (h *httpServerAdapter) FetchMedia(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := h.authedRequest(ctx).Get(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: media request: %w", models.ErrNetworkUnavailable, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

func (h *httpServerAdapter) authedRequest(ctx context.Context) *resty.Request {
	req := h.client.R().SetContext(ctx)
	if token := h.Token(); token != "" {
		req.SetHeader("Authorization", "Bearer "+token)
	}
	return req
}
