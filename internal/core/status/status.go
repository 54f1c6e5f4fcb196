// Package status holds the ephemeral runtime-state projections fed by the
// live event channel. The UI layer only reads them.
package status

// BridgeState is the lifecycle state of a top-level bridge.
type BridgeState string

const (
	BridgeStarting BridgeState = "starting"
	BridgeStarted  BridgeState = "started"
	BridgeStopping BridgeState = "stopping"
	BridgeStopped  BridgeState = "stopped"
	BridgeDisabled BridgeState = "disabled"
)

// BrokerState is the connection state of one broker instance under a bridge.
type BrokerState string

const (
	BrokerConnecting    BrokerState = "connecting"
	BrokerConnected     BrokerState = "connected"
	BrokerDisconnecting BrokerState = "disconnecting"
	BrokerDisconnected  BrokerState = "disconnected"
	BrokerDisabled      BrokerState = "disabled"
)

// EntityKey identifies a nested entity by its parent and its own name.
type EntityKey string

// BrokerKey builds the EntityKey for a broker instance.
func BrokerKey(bridge, instance string) EntityKey {
	return EntityKey(bridge + "/" + instance)
}
