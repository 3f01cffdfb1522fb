// Package pool keeps native coordinate transformers for reuse. Transformers
// are directional and keyed by the ordered (source, destination) name pair.
// Callers lease a transformer exclusively and hand it back with Release.
package pool

import (
	"container/list"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/mohammed-shakir/crs-cache/internal/core/observability"
	"github.com/mohammed-shakir/crs-cache/internal/crs/crserr"
	"github.com/mohammed-shakir/crs-cache/internal/crs/spatial"
)

// DefaultCapacity fits 50 x 50 popular coordinate system pairs.
const DefaultCapacity = 2500

var ErrClosed = errors.New("transformation pool closed")

// SpatialRefResolver supplies the spatial references a new transformer is
// built from. The pool does not take ownership of returned references.
type SpatialRefResolver interface {
	SpatialReference(name string) (spatial.SpatialRef, error)
}

type ResolverFunc func(name string) (spatial.SpatialRef, error)

func (f ResolverFunc) SpatialReference(name string) (spatial.SpatialRef, error) { return f(name) }

// Key is the order sensitive hash of a coordinate system pair.
func Key(source, destination string) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(source)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(destination)
	return d.Sum64()
}

type entry struct {
	hash     uint64
	src, dst string
	tr       spatial.Transformer
}

type Stats struct {
	Hits          uint64
	Misses        uint64
	Constructions uint64
	Failures      uint64
	Evictions     uint64
	Size          int
	Capacity      int
}

// Pool is an MRU-ordered list of idle transformers. Idle transformers sit in
// the list; leased ones are owned by their Lease until released.
type Pool struct {
	backend  spatial.Backend
	capacity int

	mu     sync.Mutex
	items  *list.List
	closed bool
	stats  Stats
}

func New(backend spatial.Backend, capacity int) *Pool {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Pool{backend: backend, capacity: capacity, items: list.New()}
}

// Get leases a transformer for source -> destination, reusing an idle one
// when available and building a new one otherwise.
func (p *Pool) Get(source, destination string, resolver SpatialRefResolver) (*Lease, error) {
	h := Key(source, destination)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	for el := p.items.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry)
		if e.hash == h && e.src == source && e.dst == destination {
			p.items.Remove(el)
			p.stats.Hits++
			size := p.items.Len()
			p.mu.Unlock()
			observability.ObservePoolRequest("hit")
			observability.SetPoolSize(size)
			return &Lease{pool: p, e: e}, nil
		}
	}
	p.stats.Misses++
	p.mu.Unlock()
	observability.ObservePoolRequest("miss")

	tr, err := p.construct(source, destination, resolver)
	if err != nil {
		p.mu.Lock()
		p.stats.Failures++
		p.mu.Unlock()
		observability.ObservePoolConstruction("error")
		return nil, err
	}
	p.mu.Lock()
	p.stats.Constructions++
	p.mu.Unlock()
	observability.ObservePoolConstruction("ok")
	return &Lease{pool: p, e: &entry{hash: h, src: source, dst: destination, tr: tr}}, nil
}

func (p *Pool) construct(source, destination string, resolver SpatialRefResolver) (spatial.Transformer, error) {
	src, err := resolver.SpatialReference(source)
	if err != nil {
		return nil, err
	}
	dst, err := resolver.SpatialReference(destination)
	if err != nil {
		return nil, err
	}
	tr, err := p.backend.NewTransformer(src, dst)
	if err != nil {
		return nil, crserr.TransformationConstruction(source, destination, err)
	}
	return tr, nil
}

// put returns an idle transformer to the head of the list, evicting from
// the tail past capacity. Destroying happens outside the lock.
func (p *Pool) put(e *entry) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		e.tr.Close()
		return
	}
	p.items.PushFront(e)
	var evicted []*entry
	for p.items.Len() > p.capacity {
		back := p.items.Back()
		p.items.Remove(back)
		evicted = append(evicted, back.Value.(*entry))
	}
	p.stats.Evictions += uint64(len(evicted))
	size := p.items.Len()
	p.mu.Unlock()

	observability.SetPoolSize(size)
	for _, ev := range evicted {
		observability.ObservePoolEviction()
		ev.tr.Close()
	}
}

// Size is the number of idle transformers.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.items.Len()
}

func (p *Pool) Empty() bool { return p.Size() == 0 }

func (p *Pool) Capacity() int { return p.capacity }

func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.stats
	s.Size = p.items.Len()
	s.Capacity = p.capacity
	return s
}

// Close destroys idle transformers. Leases released afterwards destroy
// their transformer instead of returning it.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	var idle []*entry
	for el := p.items.Front(); el != nil; el = el.Next() {
		idle = append(idle, el.Value.(*entry))
	}
	p.items.Init()
	p.mu.Unlock()

	observability.SetPoolSize(0)
	for _, e := range idle {
		e.tr.Close()
	}
}

// Lease is exclusive ownership of a pooled transformer.
type Lease struct {
	pool     *Pool
	e        *entry
	released atomic.Bool
}

func (l *Lease) Transformer() spatial.Transformer { return l.e.tr }
func (l *Lease) Source() string                   { return l.e.src }
func (l *Lease) Destination() string              { return l.e.dst }

// Release hands the transformer back. Calling it more than once is a no-op.
func (l *Lease) Release() {
	if !l.released.CompareAndSwap(false, true) {
		return
	}
	l.pool.put(l.e)
}
