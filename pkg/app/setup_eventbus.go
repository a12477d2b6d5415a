// Package app wires the services together and registers the event bus
// subscribers.
package app

import (
	purchasehandler "github.com/amirasaad/tripledger/pkg/handler/purchase"
)

// setupEventBus registers all event handlers with the event bus.
func (a *App) setupEventBus() {
	if a.Deps.EventBus == nil {
		return
	}
	purchasehandler.Register(a.Deps.EventBus, a.Deps.Logger)
}
