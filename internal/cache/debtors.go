// Package cache holds the debtor view snapshot: one TTL-bounded full listing
// that trades freshness for read cost. The cache is best-effort; every
// failure mode is a miss, never an error.
package cache

import (
	"os"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/punchamoorthee/loanops/internal/domain"
)

type snapshot struct {
	CapturedAt time.Time     `json:"captured_at"`
	TTLSeconds int64         `json:"ttl"`
	Debts      []domain.Debt `json:"debts"`
}

// Debtors keeps at most one snapshot of the full debtor listing. Put replaces
// it wholesale; there are no merge semantics. When a spill file is
// configured, Put also writes the snapshot there so a restarted process can
// serve a still-fresh listing without recomputing.
type Debtors struct {
	mu   sync.RWMutex
	ttl  time.Duration
	file string
	now  func() time.Time
	snap *snapshot
}

type Option func(*Debtors)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Debtors) {
		d.now = now
	}
}

// NewDebtors creates the cache. file may be empty to disable the spill; a
// missing, stale or unreadable spill file just means starting cold.
func NewDebtors(ttl time.Duration, file string, opts ...Option) *Debtors {
	d := &Debtors{ttl: ttl, file: file, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	d.snap = d.loadSpill()
	return d
}

// Get returns the cached listing when it is younger than the TTL. Callers
// must treat the returned slice as read-only.
func (d *Debtors) Get() ([]domain.Debt, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.snap == nil || d.now().Sub(d.snap.CapturedAt) >= d.ttl {
		return nil, false
	}
	return d.snap.Debts, true
}

// Put replaces the snapshot. Concurrent writers race benignly: the content is
// derived and reproducible, so last writer wins.
func (d *Debtors) Put(debts []domain.Debt) {
	snap := &snapshot{
		CapturedAt: d.now(),
		TTLSeconds: int64(d.ttl / time.Second),
		Debts:      debts,
	}

	d.mu.Lock()
	d.snap = snap
	d.mu.Unlock()

	d.spill(snap)
}

func (d *Debtors) spill(snap *snapshot) {
	if d.file == "" {
		return
	}

	data, err := jsoniter.ConfigFastest.Marshal(snap)
	if err != nil {
		return
	}

	// Write-then-rename keeps a crashed writer from leaving a torn file.
	tmp := d.file + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return
	}
	_ = os.Rename(tmp, d.file)
}

func (d *Debtors) loadSpill() *snapshot {
	if d.file == "" {
		return nil
	}

	data, err := os.ReadFile(d.file)
	if err != nil {
		return nil
	}

	var snap snapshot
	if err := jsoniter.ConfigFastest.Unmarshal(data, &snap); err != nil {
		return nil
	}

	ttl := d.ttl
	if snap.TTLSeconds > 0 {
		ttl = time.Duration(snap.TTLSeconds) * time.Second
	}
	if d.now().Sub(snap.CapturedAt) >= ttl {
		return nil
	}
	return &snap
}
