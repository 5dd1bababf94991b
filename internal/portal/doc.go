// Package portal implements the configuration portal: a single-client HTTP
// responder that runs while the device hosts its setup network.
//
// The responder reads each request with one bounded read, parses it by hand
// and writes a complete HTTP/1.1 response before closing the connection. It
// does not use net/http; the device only ever needs three routes and the
// session must poll its own deadline between connections.
//
//	GET  /        200, settings form prefilled with the current configuration
//	POST /        200 saved / 400 missing fields or headers / 500 save failed
//	anything else 204
//
// A session ends when its duration elapses (TimedOut), when a submission is
// validated and persisted (Submitted), or immediately when the listener cannot
// be created (BindFault).
package portal
