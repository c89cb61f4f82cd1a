package blehid

// maxClients bounds concurrent peer connections.
const maxClients = 3

type poolEntry struct {
	peer   string
	client Client
	used   bool
}

// clientPool tracks up to three peer bindings. Acquisition prefers an
// entry already bound to the peer, then any disconnected entry, then a
// fresh one.
type clientPool struct {
	entries [maxClients]poolEntry
}

// acquire reserves an entry for peer, or returns nil when the pool is
// saturated with other live connections.
func (p *clientPool) acquire(peer string) *poolEntry {
	for i := range p.entries {
		if p.entries[i].peer == peer && p.entries[i].peer != "" {
			p.entries[i].used = true
			return &p.entries[i]
		}
	}
	for i := range p.entries {
		if !p.entries[i].used && p.entries[i].peer != "" {
			p.entries[i].peer = peer
			p.entries[i].client = nil
			p.entries[i].used = true
			return &p.entries[i]
		}
	}
	for i := range p.entries {
		if p.entries[i].peer == "" {
			p.entries[i].peer = peer
			p.entries[i].used = true
			return &p.entries[i]
		}
	}
	return nil
}

// release marks an entry idle. With retain the peer binding survives
// for reuse; without it the entry is wiped.
func (p *clientPool) release(e *poolEntry, retain bool) {
	e.used = false
	e.client = nil
	if !retain {
		e.peer = ""
	}
}

// free counts entries not currently holding a live connection.
func (p *clientPool) free() int {
	n := 0
	for i := range p.entries {
		if !p.entries[i].used {
			n++
		}
	}
	return n
}
