// Package events provides the in-process event bus that links the diagnostic
// engine to its downstream consumers.
//
// The diagnostic service emits a session.completed event when a session ends
// and a response.recorded event for every accepted answer. Handlers registered
// on the emitter (plan generation and the mastery ledger) react to them
// without the diagnostic service depending on either.
//
// The primary components are:
// - Event: a typed envelope around a JSON payload
// - EventHandler: Interface for components that can handle events
// - EventEmitter: Interface for components that can emit events
package events
