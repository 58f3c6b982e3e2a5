package matchmaking

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Entry is one waiting player. It exists only while the player is queued.
type Entry struct {
	UserID      string
	ConnID      string
	DisplayName string
}

// Pair is the result of matching the two oldest entries, with colors
// already assigned.
type Pair struct {
	White Entry
	Black Entry
}

// Queue is a FIFO matchmaking queue. A userId occupies at most one slot.
type Queue struct {
	mu      sync.Mutex
	entries []Entry
	rng     *rand.Rand
	max     int
}

// New creates a queue. rng drives color assignment and may be seeded for
// deterministic tests; pass nil for a time-seeded source.
func New(rng *rand.Rand, maxSize int) *Queue {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &Queue{rng: rng, max: maxSize}
}

// Enqueue appends the entry unless the userId is already waiting or the
// queue is full. Returns true when the entry was added.
func (q *Queue) Enqueue(e Entry) bool {
	if strings.TrimSpace(e.UserID) == "" || strings.TrimSpace(e.ConnID) == "" {
		return false
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, cur := range q.entries {
		if cur.UserID == e.UserID {
			return false
		}
	}
	if len(q.entries) >= q.max {
		return false
	}
	q.entries = append(q.entries, e)
	return true
}

// TryPairOne removes the two oldest entries and assigns colors uniformly
// at random. Returns false when fewer than two players are waiting.
func (q *Queue) TryPairOne() (Pair, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) < 2 {
		return Pair{}, false
	}
	first, second := q.entries[0], q.entries[1]
	q.entries = q.entries[2:]
	if q.rng.Intn(2) == 0 {
		return Pair{White: first, Black: second}, true
	}
	return Pair{White: second, Black: first}, true
}

// RemoveByConnection drops any entry bound to connID. Idempotent.
func (q *Queue) RemoveByConnection(connID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	kept := q.entries[:0]
	for _, cur := range q.entries {
		if cur.ConnID != connID {
			kept = append(kept, cur)
		}
	}
	q.entries = kept
}

// Len reports how many players are waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}
