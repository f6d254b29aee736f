// Package daemonrun wires configuration, logging, storage, the playback
// monitor, and the HTTP API into the veild process lifecycle.
package daemonrun
