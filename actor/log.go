package actor

import "github.com/btcsuite/btclog/v2"

// log is the package-wide logger used by the actor base type. It defaults to
// a disabled sink so importing this package is silent until a host process
// wires in a real handler via UseLogger.
var log btclog.Logger = btclog.Disabled

// UseLogger sets the logger used by this package. Host processes call this
// once during startup after building their own btclog handler set.
func UseLogger(logger btclog.Logger) {
	log = logger
}
