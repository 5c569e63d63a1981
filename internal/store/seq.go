package store

import "sync"

// seqGenerator hands out serial ids per table, starting at 1.
type seqGenerator struct {
	mu       sync.Mutex
	perTable map[string]int64
}

func newSeqGenerator() *seqGenerator {
	return &seqGenerator{perTable: make(map[string]int64)}
}

func (g *seqGenerator) nextForTable(table string) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.perTable[table]++
	return g.perTable[table]
}

// observe moves the sequence past id, used when restoring a snapshot.
func (g *seqGenerator) observe(table string, id int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if id > g.perTable[table] {
		g.perTable[table] = id
	}
}
