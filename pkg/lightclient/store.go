package lightclient

import (
	"sort"
	"strconv"
	"sync"
)

// clientRecord bundles one client's state with its height-indexed
// consensus states.
type clientRecord struct {
	state           ClientState
	consensusStates map[Height]ConsensusState
}

// Store is the in-memory table of clients. All contract calls serialize at
// the host boundary, so a plain mutex is sufficient here.
type Store struct {
	mu      sync.Mutex
	clients map[string]*clientRecord
	counter uint64
}

// NewStore creates an empty client store.
func NewStore() *Store {
	return &Store{clients: make(map[string]*clientRecord)}
}

// nextClientID generates "07-tendermint-{n}" from the store's monotonic
// counter.
func (s *Store) nextClientID() string {
	id := s.counter
	s.counter++
	return formatClientID(id)
}

func formatClientID(n uint64) string {
	const prefix = "07-tendermint-"
	return prefix + strconv.FormatUint(n, 10)
}

// sortedHeights returns the heights with stored consensus states, ascending.
func (r *clientRecord) sortedHeights() []Height {
	heights := make([]Height, 0, len(r.consensusStates))
	for h := range r.consensusStates {
		heights = append(heights, h)
	}
	sort.Slice(heights, func(i, j int) bool { return heights[i].LT(heights[j]) })
	return heights
}
