// Package provision configures a device remotely by submitting the setup
// form to its portal, the same request a browser on the setup network sends.
//
// The portal accepts one connection at a time and stops serving after the
// first saved submission, so a successful Submit is final: the device saves
// the record and restarts its lifecycle.
package provision
