package network

import (
	"context"

	"github.com/MKhiriev/go-offline-sync/models"
)

// Prober reads the current connectivity. An error means the backend could
// not be reached and is treated as offline.
type Prober interface {
	Probe(ctx context.Context) (models.NetworkStatus, error)
}

// ProberFunc adapts a function to [Prober].
type ProberFunc func(ctx context.Context) (models.NetworkStatus, error)

func (f ProberFunc) Probe(ctx context.Context) (models.NetworkStatus, error) {
	return f(ctx)
}

// Listener receives network events. It is called synchronously and must not
// block.
type Listener func(models.NetworkEvent)
