package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"SynthLedger/internal/ledger"
)

// Memory is the in-process Store. It backs tests and the default single-node
// deployment when no database DSN is configured.
type Memory struct {
	mu sync.RWMutex

	exchange       *ledger.Exchange
	markets        map[uint16]*ledger.Market
	accounts       map[uuid.UUID]*ledger.UserAccount
	positions      map[positionKey]*ledger.UserPosition
	yieldMarkets   map[uint16]*ledger.YieldMarket
	yieldPositions map[positionKey]*ledger.UserYieldPosition
	assets         map[string]*ledger.TreasuryAsset
	intents        map[uuid.UUID]*ledger.ProcessedIntent
}

func NewMemory() *Memory {
	return &Memory{
		markets:        make(map[uint16]*ledger.Market),
		accounts:       make(map[uuid.UUID]*ledger.UserAccount),
		positions:      make(map[positionKey]*ledger.UserPosition),
		yieldMarkets:   make(map[uint16]*ledger.YieldMarket),
		yieldPositions: make(map[positionKey]*ledger.UserYieldPosition),
		assets:         make(map[string]*ledger.TreasuryAsset),
		intents:        make(map[uuid.UUID]*ledger.ProcessedIntent),
	}
}

func (m *Memory) View(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	tx := newMemTx(m)
	return fn(tx)
}

func (m *Memory) Update(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := newMemTx(m)
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit(m)
	return nil
}

func (m *Memory) Close() error { return nil }

// memTx stages writes in private maps and folds them into the store only on
// commit. Getters consult the staged record first so a transaction reads its
// own writes.
type memTx struct {
	store *Memory

	exchange       *ledger.Exchange
	markets        map[uint16]*ledger.Market
	accounts       map[uuid.UUID]*ledger.UserAccount
	positions      map[positionKey]*ledger.UserPosition
	yieldMarkets   map[uint16]*ledger.YieldMarket
	yieldPositions map[positionKey]*ledger.UserYieldPosition
	assets         map[string]*ledger.TreasuryAsset
	intents        map[uuid.UUID]*ledger.ProcessedIntent
}

func newMemTx(m *Memory) *memTx {
	return &memTx{
		store:          m,
		markets:        make(map[uint16]*ledger.Market),
		accounts:       make(map[uuid.UUID]*ledger.UserAccount),
		positions:      make(map[positionKey]*ledger.UserPosition),
		yieldMarkets:   make(map[uint16]*ledger.YieldMarket),
		yieldPositions: make(map[positionKey]*ledger.UserYieldPosition),
		assets:         make(map[string]*ledger.TreasuryAsset),
		intents:        make(map[uuid.UUID]*ledger.ProcessedIntent),
	}
}

func (t *memTx) commit(m *Memory) {
	if t.exchange != nil {
		m.exchange = t.exchange
	}
	for k, v := range t.markets {
		m.markets[k] = v
	}
	for k, v := range t.accounts {
		m.accounts[k] = v
	}
	for k, v := range t.positions {
		m.positions[k] = v
	}
	for k, v := range t.yieldMarkets {
		m.yieldMarkets[k] = v
	}
	for k, v := range t.yieldPositions {
		m.yieldPositions[k] = v
	}
	for k, v := range t.assets {
		m.assets[k] = v
	}
	for k, v := range t.intents {
		m.intents[k] = v
	}
}

func (t *memTx) Exchange() (*ledger.Exchange, error) {
	if t.exchange != nil {
		return t.exchange.Clone(), nil
	}
	if t.store.exchange == nil {
		return nil, ErrNotFound
	}
	return t.store.exchange.Clone(), nil
}

func (t *memTx) SaveExchange(x *ledger.Exchange) {
	t.exchange = x.Clone()
}

func (t *memTx) Market(index uint16) (*ledger.Market, error) {
	if m, ok := t.markets[index]; ok {
		return m.Clone(), nil
	}
	m, ok := t.store.markets[index]
	if !ok {
		return nil, ErrNotFound
	}
	return m.Clone(), nil
}

func (t *memTx) Markets() ([]*ledger.Market, error) {
	seen := make(map[uint16]*ledger.Market, len(t.store.markets))
	for k, v := range t.store.markets {
		seen[k] = v
	}
	for k, v := range t.markets {
		seen[k] = v
	}

	out := make([]*ledger.Market, 0, len(seen))
	for _, v := range seen {
		out = append(out, v.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MarketIndex < out[j].MarketIndex })
	return out, nil
}

func (t *memTx) SaveMarket(m *ledger.Market) {
	t.markets[m.MarketIndex] = m.Clone()
}

func (t *memTx) UserAccount(owner uuid.UUID) (*ledger.UserAccount, error) {
	if a, ok := t.accounts[owner]; ok {
		return a.Clone(), nil
	}
	a, ok := t.store.accounts[owner]
	if !ok {
		return nil, ErrNotFound
	}
	return a.Clone(), nil
}

func (t *memTx) SaveUserAccount(a *ledger.UserAccount) {
	t.accounts[a.Owner] = a.Clone()
}

func (t *memTx) UserPosition(owner uuid.UUID, index uint16) (*ledger.UserPosition, error) {
	k := positionKey{owner: owner, index: index}
	if p, ok := t.positions[k]; ok {
		return p.Clone(), nil
	}
	p, ok := t.store.positions[k]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

func (t *memTx) UserPositions(owner uuid.UUID) ([]*ledger.UserPosition, error) {
	seen := make(map[positionKey]*ledger.UserPosition)
	for k, v := range t.store.positions {
		if k.owner == owner {
			seen[k] = v
		}
	}
	for k, v := range t.positions {
		if k.owner == owner {
			seen[k] = v
		}
	}

	out := make([]*ledger.UserPosition, 0, len(seen))
	for _, v := range seen {
		out = append(out, v.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MarketIndex < out[j].MarketIndex })
	return out, nil
}

func (t *memTx) SaveUserPosition(p *ledger.UserPosition) {
	t.positions[positionKey{owner: p.Owner, index: p.MarketIndex}] = p.Clone()
}

func (t *memTx) YieldMarket(index uint16) (*ledger.YieldMarket, error) {
	if m, ok := t.yieldMarkets[index]; ok {
		return m.Clone(), nil
	}
	m, ok := t.store.yieldMarkets[index]
	if !ok {
		return nil, ErrNotFound
	}
	return m.Clone(), nil
}

func (t *memTx) SaveYieldMarket(m *ledger.YieldMarket) {
	t.yieldMarkets[m.MarketIndex] = m.Clone()
}

func (t *memTx) UserYieldPosition(owner uuid.UUID, index uint16) (*ledger.UserYieldPosition, error) {
	k := positionKey{owner: owner, index: index}
	if p, ok := t.yieldPositions[k]; ok {
		return p.Clone(), nil
	}
	p, ok := t.store.yieldPositions[k]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

func (t *memTx) SaveUserYieldPosition(p *ledger.UserYieldPosition) {
	t.yieldPositions[positionKey{owner: p.Owner, index: p.MarketIndex}] = p.Clone()
}

func (t *memTx) TreasuryAsset(symbol string) (*ledger.TreasuryAsset, error) {
	if a, ok := t.assets[symbol]; ok {
		return a.Clone(), nil
	}
	a, ok := t.store.assets[symbol]
	if !ok {
		return nil, ErrNotFound
	}
	return a.Clone(), nil
}

func (t *memTx) SaveTreasuryAsset(a *ledger.TreasuryAsset) {
	t.assets[a.Symbol] = a.Clone()
}

func (t *memTx) ProcessedIntent(id uuid.UUID) (*ledger.ProcessedIntent, error) {
	if i, ok := t.intents[id]; ok {
		return i.Clone(), nil
	}
	i, ok := t.store.intents[id]
	if !ok {
		return nil, ErrNotFound
	}
	return i.Clone(), nil
}

func (t *memTx) SaveProcessedIntent(i *ledger.ProcessedIntent) {
	t.intents[i.IntentID] = i.Clone()
}
