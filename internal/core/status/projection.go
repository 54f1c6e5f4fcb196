package status

import "github.com/patrickmn/go-cache"

// Projection is the pair of keyed state maps. Entries appear on the first
// observed event for a key and are overwritten last-write-wins afterwards;
// nothing ever evicts them.
type Projection struct {
	bridges *cache.Cache
	brokers *cache.Cache
}

// NewProjection returns an empty projection.
func NewProjection() *Projection {
	return &Projection{
		bridges: cache.New(cache.NoExpiration, 0),
		brokers: cache.New(cache.NoExpiration, 0),
	}
}

// SetBridge records the lifecycle state of a bridge.
func (p *Projection) SetBridge(name string, state BridgeState) {
	p.bridges.Set(name, state, cache.NoExpiration)
}

// Bridge returns the last observed state of a bridge.
func (p *Projection) Bridge(name string) (BridgeState, bool) {
	raw, ok := p.bridges.Get(name)
	if !ok {
		return "", false
	}
	return raw.(BridgeState), true
}

// SetBroker records the connection state of a broker instance.
func (p *Projection) SetBroker(key EntityKey, state BrokerState) {
	p.brokers.Set(string(key), state, cache.NoExpiration)
}

// Broker returns the last observed state of a broker instance.
func (p *Projection) Broker(key EntityKey) (BrokerState, bool) {
	raw, ok := p.brokers.Get(string(key))
	if !ok {
		return "", false
	}
	return raw.(BrokerState), true
}

// BridgeCount reports how many bridges have reported state.
func (p *Projection) BridgeCount() int {
	return p.bridges.ItemCount()
}

// BrokerCount reports how many broker instances have reported state.
func (p *Projection) BrokerCount() int {
	return p.brokers.ItemCount()
}
