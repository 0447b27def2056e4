package strategy

import (
	"hash/crc32"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/angeloszaimis/edge-router/internal/backend"
)

type consistentHashStrategy struct {
	virtualNodes int
	ring         atomic.Value
	mutex        sync.Mutex
	hashKey      atomic.Uint32
}

type ringSnapshot struct {
	positions []uint32
	owners    map[uint32]*backend.Backend
	members   map[*backend.Backend]struct{}
}

func buildRing(backends []*backend.Backend, vnodes int) *ringSnapshot {
	rs := &ringSnapshot{
		positions: make([]uint32, 0, len(backends)*vnodes),
		owners:    make(map[uint32]*backend.Backend),
		members:   make(map[*backend.Backend]struct{}, len(backends)),
	}

	for _, b := range backends {
		rs.members[b] = struct{}{}
		for i := 0; i < vnodes; i++ {
			key := b.URL().String() + "#" + strconv.Itoa(i)
			hash := crc32.ChecksumIEEE([]byte(key))

			rs.positions = append(rs.positions, hash)
			rs.owners[hash] = b
		}
	}

	sort.Slice(rs.positions, func(i, j int) bool { return rs.positions[i] < rs.positions[j] })
	return rs
}

// matches reports whether the ring was built from exactly this candidate
// set. The pool filters out unhealthy and gated backends before selection,
// so membership changes request to request.
func (r *ringSnapshot) matches(backends []*backend.Backend) bool {
	if r == nil || len(r.members) != len(backends) {
		return false
	}
	for _, b := range backends {
		if _, ok := r.members[b]; !ok {
			return false
		}
	}
	return true
}

func (r *ringSnapshot) lookup(hash uint32) *backend.Backend {
	if r == nil || len(r.positions) == 0 {
		return nil
	}

	idx := sort.Search(len(r.positions), func(i int) bool {
		return r.positions[i] >= hash
	})

	if idx == len(r.positions) {
		idx = 0
	}

	return r.owners[r.positions[idx]]
}

// SelectBackend maps the current key onto a ring built from the candidate
// list. The ring is cached between calls and rebuilt whenever the
// candidates differ from the set it was built from, so a backend that
// dropped out of the pool can never be returned.
func (s *consistentHashStrategy) SelectBackend(backends []*backend.Backend) *backend.Backend {
	rs, _ := s.ring.Load().(*ringSnapshot)

	if !rs.matches(backends) {
		s.mutex.Lock()
		rs, _ = s.ring.Load().(*ringSnapshot)
		if !rs.matches(backends) {
			rs = buildRing(backends, s.virtualNodes)
			s.ring.Store(rs)
		}
		s.mutex.Unlock()
	}

	return rs.lookup(s.hashKey.Load())
}

// SetKey hashes the per-request key (typically the client address) used by
// the next selection.
func (s *consistentHashStrategy) SetKey(key string) {
	hash := crc32.ChecksumIEEE([]byte(key))
	s.hashKey.Store(hash)
}

func NewConsistentHashStrategy(virtualNodes int) Strategy {
	if virtualNodes <= 0 {
		virtualNodes = 100
	}

	return &consistentHashStrategy{virtualNodes: virtualNodes}
}
