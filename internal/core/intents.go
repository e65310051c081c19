package core

import (
	"container/list"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"SynthLedger/internal/ledger"
	"SynthLedger/internal/store"
)

// ErrDuplicateIntent marks a command whose intent ID was already settled.
// Redelivering it cannot change the answer, so the broker acks it away.
var ErrDuplicateIntent = errors.New("intent already processed")

// intentLRUCapacity bounds the hot tier. The broker's redelivery window is
// minutes, so a few thousand recent intents cover it comfortably.
const intentLRUCapacity = 4096

// intentLRU is the hot tier of intent deduplication: a bounded cache of
// recently settled intent IDs. The store's processed_intents records are the
// cold tier and the source of truth.
type intentLRU struct {
	mu    sync.Mutex
	cache map[uuid.UUID]*list.Element
	order *list.List // front = most recently used
	cap   int
}

func newIntentLRU(capacity int) *intentLRU {
	return &intentLRU{
		cache: make(map[uuid.UUID]*list.Element, capacity),
		order: list.New(),
		cap:   capacity,
	}
}

// Contains reports whether id was recently settled, promoting it on a hit.
func (l *intentLRU) Contains(id uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	elem, ok := l.cache[id]
	if ok {
		l.order.MoveToFront(elem)
	}
	return ok
}

// Add records id, evicting the least recently used entry at capacity.
func (l *intentLRU) Add(id uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if elem, ok := l.cache[id]; ok {
		l.order.MoveToFront(elem)
		return
	}
	l.cache[id] = l.order.PushFront(id)
	if l.order.Len() > l.cap {
		oldest := l.order.Back()
		l.order.Remove(oldest)
		delete(l.cache, oldest.Value.(uuid.UUID))
	}
}

// guardIntent runs inside an operation's store transaction, before any
// balance is touched. A repeat returns ErrDuplicateIntent; a fresh intent is
// staged so it commits atomically with the operation's mutation. uuid.Nil
// disables deduplication (direct admin calls carry no intent).
func (c *Core) guardIntent(tx store.Tx, intent uuid.UUID, kind string, owner uuid.UUID) error {
	if intent == uuid.Nil {
		return nil
	}

	if c.intents.Contains(intent) {
		return fmt.Errorf("%w: %s", ErrDuplicateIntent, intent)
	}

	_, err := tx.ProcessedIntent(intent)
	switch {
	case err == nil:
		c.intents.Add(intent)
		return fmt.Errorf("%w: %s", ErrDuplicateIntent, intent)
	case errors.Is(err, store.ErrNotFound):
		// Fresh intent: claim it in this transaction.
	default:
		return fmt.Errorf("check intent %s: %w", intent, err)
	}

	tx.SaveProcessedIntent(&ledger.ProcessedIntent{
		IntentID:    intent,
		Kind:        kind,
		Owner:       owner,
		ProcessedAt: c.clock.Now(),
	})
	return nil
}

// rememberIntent promotes a committed intent into the hot tier. Called only
// after the store transaction commits; an aborted operation leaves the
// intent unclaimed so the broker may retry it.
func (c *Core) rememberIntent(intent uuid.UUID) {
	if intent != uuid.Nil {
		c.intents.Add(intent)
	}
}
