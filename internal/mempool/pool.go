// Package mempool provides the request-scoped arena that backs score
// containers. Slices handed out by a Pool are never freed one by one; the
// whole pool is recycled with Reset once the owning request completes.
//
// A Pool is not safe for concurrent use. Give every request its own pool.
package mempool

// DefaultChunkSize is the number of float64 slots reserved per chunk.
const DefaultChunkSize = 4096

// Stats reports pool usage.
type Stats struct {
	Chunks      int // chunks currently held
	Reserved    int // float64 slots reserved across chunks
	Used        int // float64 slots handed out since the last Reset
	TotalAllocs int // allocations since the last Reset
}

type chunk struct {
	data   []float64
	offset int
}

// Pool is a chunked bump allocator for float64 slices.
type Pool struct {
	chunkSize int
	chunks    []*chunk
	used      int
	allocs    int
}

// New creates a Pool whose chunks hold chunkSize floats. A non-positive
// chunkSize selects DefaultChunkSize.
func New(chunkSize int) *Pool {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	p := &Pool{chunkSize: chunkSize}
	p.chunks = append(p.chunks, &chunk{data: make([]float64, chunkSize)})
	return p
}

// Alloc returns n zeroed float64 slots. The slice capacity is clipped to n
// so appends never spill into a neighbouring allocation.
func (p *Pool) Alloc(n int) []float64 {
	if n <= 0 {
		return nil
	}
	p.allocs++
	p.used += n

	if n > p.chunkSize {
		// Oversized requests get a dedicated chunk placed before the
		// current one so the bump pointer keeps working.
		big := &chunk{data: make([]float64, n), offset: n}
		last := len(p.chunks) - 1
		p.chunks = append(p.chunks, p.chunks[last])
		p.chunks[last] = big
		return big.data[:n:n]
	}

	curr := p.chunks[len(p.chunks)-1]
	if curr.offset+n > len(curr.data) {
		curr = &chunk{data: make([]float64, p.chunkSize)}
		p.chunks = append(p.chunks, curr)
	}
	start := curr.offset
	curr.offset += n
	return curr.data[start : start+n : start+n]
}

// Reset releases every allocation at once. The first chunk is kept and
// cleared for reuse; the rest are dropped for the garbage collector.
func (p *Pool) Reset() {
	first := p.chunks[0]
	if len(first.data) != p.chunkSize {
		first = &chunk{data: make([]float64, p.chunkSize)}
	} else {
		clear(first.data[:first.offset])
		first.offset = 0
	}
	clear(p.chunks)
	p.chunks = p.chunks[:1]
	p.chunks[0] = first
	p.used = 0
	p.allocs = 0
}

// Stats returns a snapshot of pool usage.
func (p *Pool) Stats() Stats {
	s := Stats{
		Chunks:      len(p.chunks),
		Used:        p.used,
		TotalAllocs: p.allocs,
	}
	for _, c := range p.chunks {
		s.Reserved += len(c.data)
	}
	return s
}
