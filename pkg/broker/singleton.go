package broker

import "sync"

// global is the process-wide broker singleton. Grounded on the
// teacher's `core/helpers.go` `sync.Once`-guarded global (there:
// `InitLedger`/`CurrentLedger`), generalised from one ledger instance
// to one broker instance per process. `cmd/ngbroker` does not use it:
// its serve command passes its single Broker to each connection
// directly.
var (
	globalOnce sync.Once
	global     *Broker
)

// InitGlobal installs b as the process-wide broker. Only the first
// call takes effect, matching the teacher's Init*/Current* pattern.
func InitGlobal(b *Broker) {
	globalOnce.Do(func() { global = b })
}

// Global returns the process-wide broker, or nil if InitGlobal was
// never called.
func Global() *Broker {
	return global
}
