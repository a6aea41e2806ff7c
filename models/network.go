package models

import "time"

// ConnectionType is the kind of link the device is on.
type ConnectionType string

const (
	ConnectionNone     ConnectionType = "none"
	ConnectionWiFi     ConnectionType = "wifi"
	ConnectionCellular ConnectionType = "cellular"
	ConnectionEthernet ConnectionType = "ethernet"
	ConnectionUnknown  ConnectionType = "unknown"
)

// NetworkStatus is a point-in-time connectivity reading. Strength is 0-100.
type NetworkStatus struct {
	Online   bool           `json:"online"`
	Type     ConnectionType `json:"type"`
	Strength int            `json:"strength"`
}

// NetworkEventKind tags a [NetworkEvent].
type NetworkEventKind string

const (
	NetworkOnline       NetworkEventKind = "online"
	NetworkOffline      NetworkEventKind = "offline"
	NetworkStatusChange NetworkEventKind = "status_change"
)

// NetworkEvent is delivered to network subscribers.
type NetworkEvent struct {
	Kind   NetworkEventKind
	Status NetworkStatus
	At     time.Time
}
