package jobs

import (
	"container/heap"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/naijabuzzed-bit/Achek-Downloader/internal/models"
)

// Registry tracks in-flight and recently finished download jobs by token.
// It is the only shared mutable structure in the process: the orchestrator
// writes from job goroutines while HTTP pollers read concurrently, so every
// operation takes the lock and records move in and out by value.
//
// Records live from Create until ExpireAfter fires; the registry is not
// persisted and a restart forgets everything by design.
type Registry struct {
	mu      sync.RWMutex
	records map[string]models.JobRecord
	queue   expiryQueue

	wake chan struct{}
	done chan struct{}
	once sync.Once
}

func NewRegistry() *Registry {
	r := &Registry{
		records: make(map[string]models.JobRecord),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go r.expireLoop()
	return r
}

// Create allocates a fresh token and inserts a starting record. UUIDv4
// tokens carry 122 bits of entropy, so a collision with a live token is
// not a practical concern; the loop guards against it anyway.
func (r *Registry) Create(kind models.MediaKind) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var token string
	for {
		token = uuid.NewString()
		if _, exists := r.records[token]; !exists {
			break
		}
	}
	r.records[token] = models.JobRecord{
		Status:    models.StatusStarting,
		Message:   "Preparing " + string(kind) + " download",
		CreatedAt: time.Now(),
	}
	return token
}

// Update replaces the mutable fields of a record. Updates racing an
// already-fired expiry are silently dropped; callers must tolerate that.
func (r *Registry) Update(token string, rec models.JobRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.records[token]
	if !ok {
		return
	}
	rec.CreatedAt = cur.CreatedAt
	r.records[token] = rec
}

// Get returns a snapshot of the record, or the not_found sentinel for any
// token not currently tracked.
func (r *Registry) Get(token string) models.JobRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[token]
	if !ok {
		return models.NotFoundRecord()
	}
	return rec
}

// Len reports how many records are currently tracked.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// ExpireAfter schedules unconditional removal of the record once delay
// elapses. All expiries are served by one scheduler goroutine rather than
// a timer per job.
func (r *Registry) ExpireAfter(token string, delay time.Duration) {
	r.mu.Lock()
	heap.Push(&r.queue, expiry{token: token, at: time.Now().Add(delay)})
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Close stops the expiry scheduler. Tracked records are left in place.
func (r *Registry) Close() {
	r.once.Do(func() { close(r.done) })
}

func (r *Registry) expireLoop() {
	for {
		timer := time.NewTimer(r.nextWait())
		select {
		case <-r.done:
			timer.Stop()
			return
		case <-r.wake:
			timer.Stop()
		case <-timer.C:
		}
		r.removeDue()
	}
}

func (r *Registry) nextWait() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.queue) == 0 {
		return time.Hour
	}
	wait := time.Until(r.queue[0].at)
	if wait < 0 {
		wait = 0
	}
	return wait
}

func (r *Registry) removeDue() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for len(r.queue) > 0 && !r.queue[0].at.After(now) {
		e := heap.Pop(&r.queue).(expiry)
		delete(r.records, e.token)
	}
}

type expiry struct {
	token string
	at    time.Time
}

// expiryQueue is a min-heap on deadline.
type expiryQueue []expiry

func (q expiryQueue) Len() int            { return len(q) }
func (q expiryQueue) Less(i, j int) bool  { return q[i].at.Before(q[j].at) }
func (q expiryQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *expiryQueue) Push(x interface{}) { *q = append(*q, x.(expiry)) }
func (q *expiryQueue) Pop() interface{} {
	old := *q
	n := len(old)
	e := old[n-1]
	*q = old[:n-1]
	return e
}
