// pkg/pager/faultstorage.go
package pager

import (
	"math/rand"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// FaultConfig controls which faults FaultStorage injects. A zero-value
// FaultConfig injects nothing and makes FaultStorage a transparent
// passthrough.
type FaultConfig struct {
	// SyncFailureRate is the probability, in [0,1], that Sync fails
	// instead of reaching the wrapped storage.
	SyncFailureRate float64

	// GrowFailureRate is the probability that Grow fails instead of
	// reaching the wrapped storage.
	GrowFailureRate float64

	// TornWriteRate is the probability that Sync stamps a torn-write
	// marker pattern into one random page before (successfully)
	// flushing, simulating a crash mid-write. PageSize must be set for
	// this to do anything.
	TornWriteRate float64
	PageSize      int

	// Rand, if non-nil, is used instead of the package-level random
	// source, so tests can make fault injection deterministic.
	Rand *rand.Rand
}

// ErrInjectedFault is wrapped by every error FaultStorage manufactures.
var ErrInjectedFault = errors.New("injected storage fault")

// FaultStorage wraps a Storage and probabilistically injects sync
// failures, grow failures, and torn-write page corruption, for exercising
// the pager's and btree's durability and recovery paths under fault
// conditions they would otherwise only see in production.
type FaultStorage struct {
	inner Storage
	cfg   FaultConfig
	log   *logrus.Entry
}

// NewFaultStorage wraps inner with fault injection governed by cfg.
func NewFaultStorage(inner Storage, cfg FaultConfig) *FaultStorage {
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(1))
	}
	return &FaultStorage{
		inner: inner,
		cfg:   cfg,
		log:   logrus.WithField("component", "pager.faultstorage"),
	}
}

func (f *FaultStorage) roll(rate float64) bool {
	if rate <= 0 {
		return false
	}
	return f.cfg.Rand.Float64() < rate
}

// Size returns the current size of the wrapped storage in bytes.
func (f *FaultStorage) Size() int64 { return f.inner.Size() }

// Slice returns a slice of the wrapped storage data.
func (f *FaultStorage) Slice(offset, length int) []byte {
	return f.inner.Slice(offset, length)
}

// Sync flushes the wrapped storage, unless a sync fault is injected, in
// which case the write is either dropped (reported as an error, nothing
// reaches the wrapped storage) or torn (a page is corrupted with a
// partial marker pattern before the flush completes).
func (f *FaultStorage) Sync() error {
	if f.roll(f.cfg.SyncFailureRate) {
		f.log.Warn("injected sync failure")
		return errors.Wrap(ErrInjectedFault, "Sync")
	}

	if f.cfg.PageSize > 0 && f.roll(f.cfg.TornWriteRate) {
		f.tearRandomPage()
	}

	return f.inner.Sync()
}

// tearRandomPage stamps TornWriteMarker into only the first marker slot
// of a random page, leaving the remaining slots as DetectTornWrite last
// saw them -- exactly the "some markers valid, some not" pattern
// DetectTornWrite is built to recognize.
func (f *FaultStorage) tearRandomPage() {
	pageCount := f.inner.Size() / int64(f.cfg.PageSize)
	if pageCount <= 0 {
		return
	}
	pageNo := f.cfg.Rand.Int63n(pageCount)
	page := f.inner.Slice(int(pageNo)*f.cfg.PageSize, f.cfg.PageSize)
	if len(page) < TornWriteMarkerSize {
		return
	}
	copy(page[:TornWriteMarkerSize], TornWriteMarker)
	f.log.WithField("page", pageNo).Warn("injected torn write")
}

// Grow extends the wrapped storage, unless a grow fault is injected.
func (f *FaultStorage) Grow(newSize int64) error {
	if f.roll(f.cfg.GrowFailureRate) {
		f.log.WithField("newSize", newSize).Warn("injected grow failure")
		return errors.Wrap(ErrInjectedFault, "Grow")
	}
	return f.inner.Grow(newSize)
}

// Close closes the wrapped storage. Close is never faulted: callers must
// always be able to release resources.
func (f *FaultStorage) Close() error { return f.inner.Close() }
