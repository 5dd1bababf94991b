// Package radio abstracts the two wireless interfaces the device drives:
// a Station that joins an existing network and an AccessPoint that hosts the
// setup network.
//
// Two backends are provided. The nmcli backend shells out to NetworkManager's
// command-line client through an Executor. The simulated backend keeps all
// state in memory and is used by tests and by `vakitd run --radio=sim`.
//
// Implementations report failures as *fault.Error values of kind
// InterfaceFault.
package radio
