package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"SynthLedger/internal/ledger"
)

// Postgres is the durable Store. Update wraps the callback in one database
// transaction with row locks on everything it reads, so concurrent service
// replicas serialize on the records they touch.
type Postgres struct {
	db *sql.DB
}

func OpenPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{db: db}, nil
}

// NewPostgres wraps an existing handle. Used by tests that manage the
// connection themselves.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) DB() *sql.DB { return p.db }

func (p *Postgres) View(ctx context.Context, fn func(Tx) error) error {
	tx, err := p.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("begin view tx: %w", err)
	}
	defer tx.Rollback()

	return fn(newPgTx(ctx, tx, false))
}

func (p *Postgres) Update(ctx context.Context, fn func(Tx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update tx: %w", err)
	}
	defer tx.Rollback()

	pt := newPgTx(ctx, tx, true)
	if err := fn(pt); err != nil {
		return err
	}
	if err := pt.flush(); err != nil {
		return fmt.Errorf("flush staged records: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error { return p.db.Close() }

// pgTx stages writes like the memory transaction and upserts them just
// before commit. Getters consult the staged record first so the callback
// reads its own writes.
type pgTx struct {
	ctx       context.Context
	tx        *sql.Tx
	forUpdate bool

	exchange       *ledger.Exchange
	markets        map[uint16]*ledger.Market
	accounts       map[uuid.UUID]*ledger.UserAccount
	positions      map[positionKey]*ledger.UserPosition
	yieldMarkets   map[uint16]*ledger.YieldMarket
	yieldPositions map[positionKey]*ledger.UserYieldPosition
	assets         map[string]*ledger.TreasuryAsset
	intents        map[uuid.UUID]*ledger.ProcessedIntent
}

func newPgTx(ctx context.Context, tx *sql.Tx, forUpdate bool) *pgTx {
	return &pgTx{
		ctx:            ctx,
		tx:             tx,
		forUpdate:      forUpdate,
		markets:        make(map[uint16]*ledger.Market),
		accounts:       make(map[uuid.UUID]*ledger.UserAccount),
		positions:      make(map[positionKey]*ledger.UserPosition),
		yieldMarkets:   make(map[uint16]*ledger.YieldMarket),
		yieldPositions: make(map[positionKey]*ledger.UserYieldPosition),
		assets:         make(map[string]*ledger.TreasuryAsset),
		intents:        make(map[uuid.UUID]*ledger.ProcessedIntent),
	}
}

func (t *pgTx) lockSuffix() string {
	if t.forUpdate {
		return " FOR UPDATE"
	}
	return ""
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (t *pgTx) Exchange() (*ledger.Exchange, error) {
	if t.exchange != nil {
		return t.exchange.Clone(), nil
	}

	x := &ledger.Exchange{}
	err := t.tx.QueryRowContext(t.ctx, `
		SELECT leverage, market_weight, margin_used, basis, pnl, fees, rebates,
		       rewards, collateral_value, number_of_markets,
		       reward_frequency, reward_rate, last_rewards_claim, test_mode
		FROM exchange WHERE id = 1`+t.lockSuffix(),
	).Scan(
		&x.Leverage, &x.MarketWeight, &x.MarginUsed, &x.Basis, &x.Pnl, &x.Fees,
		&x.Rebates, &x.Rewards, &x.CollateralValue, &x.NumberOfMarkets,
		&x.RewardFrequency, &x.RewardRate, &x.LastRewardsClaim, &x.TestMode,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return x, nil
}

func (t *pgTx) SaveExchange(x *ledger.Exchange) {
	t.exchange = x.Clone()
}

const marketColumns = `market_index, token_amount, basis, pnl, fees, rebates,
	margin_used, leverage, market_weight, maker_fee, taker_fee, feed`

func scanMarket(row interface{ Scan(...any) error }) (*ledger.Market, error) {
	m := &ledger.Market{}
	err := row.Scan(
		&m.MarketIndex, &m.TokenAmount, &m.Basis, &m.Pnl, &m.Fees, &m.Rebates,
		&m.MarginUsed, &m.Leverage, &m.MarketWeight, &m.MakerFee, &m.TakerFee, &m.Feed,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return m, nil
}

func (t *pgTx) Market(index uint16) (*ledger.Market, error) {
	if m, ok := t.markets[index]; ok {
		return m.Clone(), nil
	}
	return scanMarket(t.tx.QueryRowContext(t.ctx,
		`SELECT `+marketColumns+` FROM markets WHERE market_index = $1`+t.lockSuffix(),
		int32(index),
	))
}

func (t *pgTx) Markets() ([]*ledger.Market, error) {
	rows, err := t.tx.QueryContext(t.ctx,
		`SELECT `+marketColumns+` FROM markets ORDER BY market_index`+t.lockSuffix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ledger.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, err
		}
		if staged, ok := t.markets[m.MarketIndex]; ok {
			m = staged.Clone()
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (t *pgTx) SaveMarket(m *ledger.Market) {
	t.markets[m.MarketIndex] = m.Clone()
}

func (t *pgTx) UserAccount(owner uuid.UUID) (*ledger.UserAccount, error) {
	if a, ok := t.accounts[owner]; ok {
		return a.Clone(), nil
	}

	a := &ledger.UserAccount{}
	err := t.tx.QueryRowContext(t.ctx, `
		SELECT owner, collateral_value, margin_used, basis, pnl, fees, rebates,
		       rewards, last_rewards_claim
		FROM user_accounts WHERE owner = $1`+t.lockSuffix(),
		owner,
	).Scan(
		&a.Owner, &a.CollateralValue, &a.MarginUsed, &a.Basis, &a.Pnl,
		&a.Fees, &a.Rebates, &a.Rewards, &a.LastRewardsClaim,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

func (t *pgTx) SaveUserAccount(a *ledger.UserAccount) {
	t.accounts[a.Owner] = a.Clone()
}

const positionColumns = `owner, market_index, token_amount, basis, pnl, fees,
	rebates, margin_used`

func scanPosition(row interface{ Scan(...any) error }) (*ledger.UserPosition, error) {
	p := &ledger.UserPosition{}
	err := row.Scan(
		&p.Owner, &p.MarketIndex, &p.TokenAmount, &p.Basis, &p.Pnl,
		&p.Fees, &p.Rebates, &p.MarginUsed,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (t *pgTx) UserPosition(owner uuid.UUID, index uint16) (*ledger.UserPosition, error) {
	k := positionKey{owner: owner, index: index}
	if p, ok := t.positions[k]; ok {
		return p.Clone(), nil
	}
	return scanPosition(t.tx.QueryRowContext(t.ctx,
		`SELECT `+positionColumns+` FROM user_positions
		 WHERE owner = $1 AND market_index = $2`+t.lockSuffix(),
		owner, int32(index),
	))
}

func (t *pgTx) UserPositions(owner uuid.UUID) ([]*ledger.UserPosition, error) {
	rows, err := t.tx.QueryContext(t.ctx,
		`SELECT `+positionColumns+` FROM user_positions
		 WHERE owner = $1 ORDER BY market_index`+t.lockSuffix(),
		owner,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ledger.UserPosition
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		if staged, ok := t.positions[positionKey{owner: p.Owner, index: p.MarketIndex}]; ok {
			p = staged.Clone()
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (t *pgTx) SaveUserPosition(p *ledger.UserPosition) {
	t.positions[positionKey{owner: p.Owner, index: p.MarketIndex}] = p.Clone()
}

func (t *pgTx) YieldMarket(index uint16) (*ledger.YieldMarket, error) {
	if m, ok := t.yieldMarkets[index]; ok {
		return m.Clone(), nil
	}

	m := &ledger.YieldMarket{}
	err := t.tx.QueryRowContext(t.ctx, `
		SELECT market_index, long_token_amount, short_token_amount,
		       long_basis, short_basis, long_funding, short_funding,
		       long_fees, short_fees, last_claim_date, feed
		FROM yield_markets WHERE market_index = $1`+t.lockSuffix(),
		int32(index),
	).Scan(
		&m.MarketIndex, &m.LongTokenAmount, &m.ShortTokenAmount,
		&m.LongBasis, &m.ShortBasis, &m.LongFunding, &m.ShortFunding,
		&m.LongFees, &m.ShortFees, &m.LastClaimDate, &m.Feed,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return m, nil
}

func (t *pgTx) SaveYieldMarket(m *ledger.YieldMarket) {
	t.yieldMarkets[m.MarketIndex] = m.Clone()
}

func (t *pgTx) UserYieldPosition(owner uuid.UUID, index uint16) (*ledger.UserYieldPosition, error) {
	k := positionKey{owner: owner, index: index}
	if p, ok := t.yieldPositions[k]; ok {
		return p.Clone(), nil
	}

	p := &ledger.UserYieldPosition{}
	err := t.tx.QueryRowContext(t.ctx, `
		SELECT owner, market_index, long_token_amount, short_token_amount,
		       long_basis, short_basis, long_funding, short_funding,
		       long_fees, short_fees, last_claim_date
		FROM user_yield_positions
		WHERE owner = $1 AND market_index = $2`+t.lockSuffix(),
		owner, int32(index),
	).Scan(
		&p.Owner, &p.MarketIndex, &p.LongTokenAmount, &p.ShortTokenAmount,
		&p.LongBasis, &p.ShortBasis, &p.LongFunding, &p.ShortFunding,
		&p.LongFees, &p.ShortFees, &p.LastClaimDate,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (t *pgTx) SaveUserYieldPosition(p *ledger.UserYieldPosition) {
	t.yieldPositions[positionKey{owner: p.Owner, index: p.MarketIndex}] = p.Clone()
}

func (t *pgTx) TreasuryAsset(symbol string) (*ledger.TreasuryAsset, error) {
	if a, ok := t.assets[symbol]; ok {
		return a.Clone(), nil
	}

	a := &ledger.TreasuryAsset{}
	err := t.tx.QueryRowContext(t.ctx, `
		SELECT symbol, active, treasury_weight, decimals, feed
		FROM treasury_assets WHERE symbol = $1`+t.lockSuffix(),
		symbol,
	).Scan(&a.Symbol, &a.Active, &a.TreasuryWeight, &a.Decimals, &a.Feed)
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

func (t *pgTx) SaveTreasuryAsset(a *ledger.TreasuryAsset) {
	t.assets[a.Symbol] = a.Clone()
}

func (t *pgTx) ProcessedIntent(id uuid.UUID) (*ledger.ProcessedIntent, error) {
	if i, ok := t.intents[id]; ok {
		return i.Clone(), nil
	}

	i := &ledger.ProcessedIntent{}
	err := t.tx.QueryRowContext(t.ctx, `
		SELECT intent_id, kind, owner, processed_at
		FROM processed_intents WHERE intent_id = $1`+t.lockSuffix(),
		id,
	).Scan(&i.IntentID, &i.Kind, &i.Owner, &i.ProcessedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return i, nil
}

func (t *pgTx) SaveProcessedIntent(i *ledger.ProcessedIntent) {
	t.intents[i.IntentID] = i.Clone()
}

// flush upserts every staged record inside the open transaction.
func (t *pgTx) flush() error {
	if x := t.exchange; x != nil {
		_, err := t.tx.ExecContext(t.ctx, `
			INSERT INTO exchange (id, leverage, market_weight, margin_used, basis,
				pnl, fees, rebates, rewards, collateral_value, number_of_markets,
				reward_frequency, reward_rate, last_rewards_claim, test_mode)
			VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			ON CONFLICT (id) DO UPDATE SET
				leverage = EXCLUDED.leverage,
				market_weight = EXCLUDED.market_weight,
				margin_used = EXCLUDED.margin_used,
				basis = EXCLUDED.basis,
				pnl = EXCLUDED.pnl,
				fees = EXCLUDED.fees,
				rebates = EXCLUDED.rebates,
				rewards = EXCLUDED.rewards,
				collateral_value = EXCLUDED.collateral_value,
				number_of_markets = EXCLUDED.number_of_markets,
				reward_frequency = EXCLUDED.reward_frequency,
				reward_rate = EXCLUDED.reward_rate,
				last_rewards_claim = EXCLUDED.last_rewards_claim,
				test_mode = EXCLUDED.test_mode`,
			x.Leverage, x.MarketWeight, x.MarginUsed, x.Basis, x.Pnl, x.Fees,
			x.Rebates, x.Rewards, x.CollateralValue, int32(x.NumberOfMarkets),
			x.RewardFrequency, x.RewardRate, x.LastRewardsClaim, x.TestMode,
		)
		if err != nil {
			return fmt.Errorf("upsert exchange: %w", err)
		}
	}

	for _, m := range t.markets {
		_, err := t.tx.ExecContext(t.ctx, `
			INSERT INTO markets (market_index, token_amount, basis, pnl, fees,
				rebates, margin_used, leverage, market_weight, maker_fee, taker_fee, feed)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (market_index) DO UPDATE SET
				token_amount = EXCLUDED.token_amount,
				basis = EXCLUDED.basis,
				pnl = EXCLUDED.pnl,
				fees = EXCLUDED.fees,
				rebates = EXCLUDED.rebates,
				margin_used = EXCLUDED.margin_used,
				leverage = EXCLUDED.leverage,
				market_weight = EXCLUDED.market_weight,
				maker_fee = EXCLUDED.maker_fee,
				taker_fee = EXCLUDED.taker_fee,
				feed = EXCLUDED.feed`,
			int32(m.MarketIndex), m.TokenAmount, m.Basis, m.Pnl, m.Fees,
			m.Rebates, m.MarginUsed, m.Leverage, m.MarketWeight,
			m.MakerFee, m.TakerFee, m.Feed,
		)
		if err != nil {
			return fmt.Errorf("upsert market %d: %w", m.MarketIndex, err)
		}
	}

	for _, a := range t.accounts {
		_, err := t.tx.ExecContext(t.ctx, `
			INSERT INTO user_accounts (owner, collateral_value, margin_used,
				basis, pnl, fees, rebates, rewards, last_rewards_claim)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (owner) DO UPDATE SET
				collateral_value = EXCLUDED.collateral_value,
				margin_used = EXCLUDED.margin_used,
				basis = EXCLUDED.basis,
				pnl = EXCLUDED.pnl,
				fees = EXCLUDED.fees,
				rebates = EXCLUDED.rebates,
				rewards = EXCLUDED.rewards,
				last_rewards_claim = EXCLUDED.last_rewards_claim`,
			a.Owner, a.CollateralValue, a.MarginUsed, a.Basis, a.Pnl,
			a.Fees, a.Rebates, a.Rewards, a.LastRewardsClaim,
		)
		if err != nil {
			return fmt.Errorf("upsert account %s: %w", a.Owner, err)
		}
	}

	for _, p := range t.positions {
		_, err := t.tx.ExecContext(t.ctx, `
			INSERT INTO user_positions (owner, market_index, token_amount,
				basis, pnl, fees, rebates, margin_used)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (owner, market_index) DO UPDATE SET
				token_amount = EXCLUDED.token_amount,
				basis = EXCLUDED.basis,
				pnl = EXCLUDED.pnl,
				fees = EXCLUDED.fees,
				rebates = EXCLUDED.rebates,
				margin_used = EXCLUDED.margin_used`,
			p.Owner, int32(p.MarketIndex), p.TokenAmount, p.Basis, p.Pnl,
			p.Fees, p.Rebates, p.MarginUsed,
		)
		if err != nil {
			return fmt.Errorf("upsert position %s/%d: %w", p.Owner, p.MarketIndex, err)
		}
	}

	for _, m := range t.yieldMarkets {
		_, err := t.tx.ExecContext(t.ctx, `
			INSERT INTO yield_markets (market_index, long_token_amount,
				short_token_amount, long_basis, short_basis, long_funding,
				short_funding, long_fees, short_fees, last_claim_date, feed)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (market_index) DO UPDATE SET
				long_token_amount = EXCLUDED.long_token_amount,
				short_token_amount = EXCLUDED.short_token_amount,
				long_basis = EXCLUDED.long_basis,
				short_basis = EXCLUDED.short_basis,
				long_funding = EXCLUDED.long_funding,
				short_funding = EXCLUDED.short_funding,
				long_fees = EXCLUDED.long_fees,
				short_fees = EXCLUDED.short_fees,
				last_claim_date = EXCLUDED.last_claim_date,
				feed = EXCLUDED.feed`,
			int32(m.MarketIndex), m.LongTokenAmount, m.ShortTokenAmount,
			m.LongBasis, m.ShortBasis, m.LongFunding, m.ShortFunding,
			m.LongFees, m.ShortFees, m.LastClaimDate, m.Feed,
		)
		if err != nil {
			return fmt.Errorf("upsert yield market %d: %w", m.MarketIndex, err)
		}
	}

	for _, p := range t.yieldPositions {
		_, err := t.tx.ExecContext(t.ctx, `
			INSERT INTO user_yield_positions (owner, market_index,
				long_token_amount, short_token_amount, long_basis, short_basis,
				long_funding, short_funding, long_fees, short_fees, last_claim_date)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (owner, market_index) DO UPDATE SET
				long_token_amount = EXCLUDED.long_token_amount,
				short_token_amount = EXCLUDED.short_token_amount,
				long_basis = EXCLUDED.long_basis,
				short_basis = EXCLUDED.short_basis,
				long_funding = EXCLUDED.long_funding,
				short_funding = EXCLUDED.short_funding,
				long_fees = EXCLUDED.long_fees,
				short_fees = EXCLUDED.short_fees,
				last_claim_date = EXCLUDED.last_claim_date`,
			p.Owner, int32(p.MarketIndex), p.LongTokenAmount, p.ShortTokenAmount,
			p.LongBasis, p.ShortBasis, p.LongFunding, p.ShortFunding,
			p.LongFees, p.ShortFees, p.LastClaimDate,
		)
		if err != nil {
			return fmt.Errorf("upsert yield position %s/%d: %w", p.Owner, p.MarketIndex, err)
		}
	}

	for _, a := range t.assets {
		_, err := t.tx.ExecContext(t.ctx, `
			INSERT INTO treasury_assets (symbol, active, treasury_weight, decimals, feed)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (symbol) DO UPDATE SET
				active = EXCLUDED.active,
				treasury_weight = EXCLUDED.treasury_weight,
				decimals = EXCLUDED.decimals,
				feed = EXCLUDED.feed`,
			a.Symbol, a.Active, a.TreasuryWeight, int16(a.Decimals), a.Feed,
		)
		if err != nil {
			return fmt.Errorf("upsert treasury asset %s: %w", a.Symbol, err)
		}
	}

	for _, i := range t.intents {
		// The primary key backs up the in-transaction check: two replicas
		// racing the same intent serialize here and the loser conflicts.
		_, err := t.tx.ExecContext(t.ctx, `
			INSERT INTO processed_intents (intent_id, kind, owner, processed_at)
			VALUES ($1, $2, $3, $4)`,
			i.IntentID, i.Kind, i.Owner, i.ProcessedAt,
		)
		if err != nil {
			return fmt.Errorf("insert processed intent %s: %w", i.IntentID, err)
		}
	}

	return nil
}
