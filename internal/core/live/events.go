package live

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bridgesync/bridgesync/internal/core/status"
)

// Event names pushed by the server. The table below is the complete set;
// anything else on the wire is ignored.
const (
	EventBridgeStarting = "bridge_starting"
	EventBridgeStarted  = "bridge_started"
	EventBridgeStopping = "bridge_stopping"
	EventBridgeStopped  = "bridge_stopped"
	EventBridgeDisabled = "bridge_disabled"

	EventBrokerConnecting    = "broker_connecting"
	EventBrokerConnected     = "broker_connected"
	EventBrokerDisconnecting = "broker_disconnecting"
	EventBrokerDisconnected  = "broker_disconnected"
	EventBrokerDisabled      = "broker_disabled"
)

var errMissingField = errors.New("missing required field")

// Transition applies one event payload to the projection. Each transition
// writes exactly one entry in exactly one of the two maps.
type Transition func(proj *status.Projection, payload []byte) error

// transitions is the exhaustive event-name dispatch table.
var transitions = map[string]Transition{
	EventBridgeStarting: bridgeTransition(status.BridgeStarting),
	EventBridgeStarted:  bridgeTransition(status.BridgeStarted),
	EventBridgeStopping: bridgeTransition(status.BridgeStopping),
	EventBridgeStopped:  bridgeTransition(status.BridgeStopped),
	EventBridgeDisabled: bridgeTransition(status.BridgeDisabled),

	EventBrokerConnecting:    brokerTransition(status.BrokerConnecting),
	EventBrokerConnected:     brokerTransition(status.BrokerConnected),
	EventBrokerDisconnecting: brokerTransition(status.BrokerDisconnecting),
	EventBrokerDisconnected:  brokerTransition(status.BrokerDisconnected),
	EventBrokerDisabled:      brokerTransition(status.BrokerDisabled),
}

type bridgePayload struct {
	Bridge string `json:"bridge"`
}

type brokerPayload struct {
	Bridge   string `json:"bridge"`
	Instance string `json:"instance"`
}

func bridgeTransition(state status.BridgeState) Transition {
	return func(proj *status.Projection, payload []byte) error {
		var p bridgePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return err
		}
		if p.Bridge == "" {
			return fmt.Errorf("%w: bridge", errMissingField)
		}
		proj.SetBridge(p.Bridge, state)
		return nil
	}
}

func brokerTransition(state status.BrokerState) Transition {
	return func(proj *status.Projection, payload []byte) error {
		var p brokerPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return err
		}
		if p.Bridge == "" {
			return fmt.Errorf("%w: bridge", errMissingField)
		}
		if p.Instance == "" {
			return fmt.Errorf("%w: instance", errMissingField)
		}
		proj.SetBroker(status.BrokerKey(p.Bridge, p.Instance), state)
		return nil
	}
}

// Dispatch routes one named event into the projection. It reports whether
// the name was recognized; a non-nil error means the payload was malformed
// and nothing was written.
func Dispatch(proj *status.Projection, name string, payload []byte) (bool, error) {
	transition, ok := transitions[name]
	if !ok {
		return false, nil
	}
	if err := transition(proj, payload); err != nil {
		return true, err
	}
	return true, nil
}
