package sequence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bbkbilling/backend/internal/store"
)

// Allocator produces invoice numbers of the form <prefix>/<year>/<0000>.
// The numeric part is recomputed from durable ledger state on every
// allocation: the highest sequence embedded in a committed invoice number,
// plus one. Reservations handed out but not yet committed are tracked in
// memory only: a discarded draft leaves a gap in the numbering for the
// lifetime of the process, while a crash before commit leaks nothing
// durable. Because the counter reads the embedded number rather than a row
// id, a restart after a gap continues past the highest committed number and
// never reissues one.
//
// The counter is never reset on year rollover; only a full ledger erasure
// restarts it at 1.
type Allocator struct {
	mu           sync.Mutex
	ledger       store.Ledger
	prefix       string
	lastReserved int64
	now          func() time.Time
}

func New(ledger store.Ledger, prefix string) *Allocator {
	if prefix == "" {
		prefix = "abc"
	}
	return &Allocator{
		ledger: ledger,
		prefix: prefix,
		now:    time.Now,
	}
}

// Next reserves the next invoice number. The number counts as issued only
// once the ledger durably persists its sequence entry at commit time.
func (a *Allocator) Next(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	issued, err := a.ledger.MaxIssuedSequence(ctx)
	if err != nil {
		return "", fmt.Errorf("scan sequence: %w", err)
	}

	seq := issued + 1
	if a.lastReserved >= seq {
		seq = a.lastReserved + 1
	}
	a.lastReserved = seq

	return fmt.Sprintf("%s/%d/%04d", a.prefix, a.now().Year(), seq), nil
}

// Reset drops in-memory reservations. Called after a full ledger erasure so
// numbering restarts from the (now empty) durable state.
func (a *Allocator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastReserved = 0
}
