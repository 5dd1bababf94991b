// Package discovery advertises and finds configuration portals over mDNS.
//
// While the device hosts its setup network, the portal registers itself as an
// "_http._tcp" service whose TXT record carries "app=vakit". An operator's
// machine joined to the setup network can then run `vakitd discover` to find
// the portal address without reading it off the display.
//
// Advertising is best effort: a failure to register is logged by the caller
// and never affects the portal session.
package discovery
