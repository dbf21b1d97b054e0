package cache

// streamBuffer holds one sequential prefetch window: the four block
// numbers it expects next, and the access counter value at fill time
// (used to pick an LRU victim across streams).
type streamBuffer struct {
	blocks [4]uint64
	info   uint64
}

// prefetcher is the fixed set of stream buffers a cache consults on
// every miss (spec.md §4.5). A zero-length prefetcher (PFBufNum == 0)
// never reports a buffer available, so no stream is ever installed.
type prefetcher struct {
	buffers []streamBuffer
}

// newPrefetcher allocates n stream buffers at their zero value: blocks
// all 0, info (fill timestamp) 0. Block 0 is a legal tag, so a cold
// buffer may spuriously report it as already prefetched — accepted,
// since the 0 fill timestamp also loses to any real access and the
// buffer is immediately overwritten on first use.
func newPrefetcher(n int) prefetcher {
	return prefetcher{buffers: make([]streamBuffer, n)}
}

// decide scans every buffer for block. If any slot already contains
// it, the miss is already prefetch-satisfied (satisfied==true) and no
// buffer is returned. Otherwise it returns the buffer with the
// smallest fill timestamp — LRU across streams — to be overwritten, or
// -1 if there are no buffers at all.
func (p *prefetcher) decide(block uint64) (satisfied bool, victim int) {
	victim = -1
	for i := range p.buffers {
		buf := &p.buffers[i]
		for _, b := range buf.blocks {
			if b == block {
				return true, -1
			}
		}
		if victim == -1 || buf.info < p.buffers[victim].info {
			victim = i
		}
	}
	return false, victim
}

// install overwrites buffer victim with the four blocks following
// block and stamps it with the current access counter.
func (p *prefetcher) install(victim int, block, accessCounter uint64) {
	buf := &p.buffers[victim]
	for i := 0; i < 4; i++ {
		buf.blocks[i] = block + uint64(i) + 1
	}
	buf.info = accessCounter
}
