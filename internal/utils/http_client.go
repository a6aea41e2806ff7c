package utils

import (
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
)

// HTTPClient embeds *resty.Client and exposes all of its methods.
type HTTPClient struct {
	*resty.Client
}

// NewHTTPClient returns an independent resty client that encodes and decodes
// JSON with goccy/go-json. A zero timeout leaves resty's default in place.
func NewHTTPClient(timeout time.Duration) *HTTPClient {
	client := resty.New().
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &HTTPClient{Client: client}
}
