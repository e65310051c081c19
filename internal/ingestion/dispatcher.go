package ingestion

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"SynthLedger/internal/command"
	"SynthLedger/internal/core"
	"SynthLedger/internal/engine"
	"SynthLedger/internal/observability"
	"SynthLedger/internal/oracle"
	"SynthLedger/internal/store"
)

// Dispatcher drains the raw-command channel, parses each message, and
// executes it against the core. Deterministic failures (bad payloads,
// solvency rejections) are acked so they are never redelivered; transient
// failures are naked for redelivery.
type Dispatcher struct {
	core    *core.Core
	feeds   *oracle.FeedOracle
	in      <-chan RawCommand
	out     chan<- PublishableResult // nil disables outbound publishing
	log     zerolog.Logger
	metrics *observability.Metrics
}

func NewDispatcher(
	c *core.Core,
	feeds *oracle.FeedOracle,
	in <-chan RawCommand,
	out chan<- PublishableResult,
	log zerolog.Logger,
	metrics *observability.Metrics,
) *Dispatcher {
	return &Dispatcher{
		core:    c,
		feeds:   feeds,
		in:      in,
		out:     out,
		log:     log,
		metrics: metrics,
	}
}

// Run processes commands until the context is cancelled or the channel
// closes.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case raw, ok := <-d.in:
			if !ok {
				return nil
			}
			d.handle(ctx, raw)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, raw RawCommand) {
	if d.metrics != nil {
		d.metrics.CommandsReceived.WithLabelValues(raw.Subject).Inc()
	}

	cmd, err := ParseRawCommand(raw)
	if err != nil {
		// Poison message: redelivery cannot fix a malformed payload.
		d.log.Error().Str("subject", raw.Subject).Err(err).Msg("unparseable command")
		if d.metrics != nil {
			d.metrics.CommandsFailed.WithLabelValues(raw.Subject, "parse").Inc()
		}
		raw.AckFunc()
		return
	}

	res, err := d.execute(ctx, cmd)
	if err != nil {
		if isPermanent(err) {
			d.log.Warn().Str("kind", cmd.Kind()).Err(err).Msg("command rejected")
			if d.metrics != nil {
				d.metrics.CommandsFailed.WithLabelValues(raw.Subject, "rejected").Inc()
			}
			raw.AckFunc()
			return
		}

		d.log.Error().Str("kind", cmd.Kind()).Err(err).Msg("command failed, will redeliver")
		if d.metrics != nil {
			d.metrics.CommandsFailed.WithLabelValues(raw.Subject, "transient").Inc()
		}
		raw.NakFunc()
		return
	}

	raw.AckFunc()

	if d.out != nil && res != nil {
		select {
		case d.out <- *res:
		default:
			d.log.Warn().Str("kind", res.Kind).Msg("outbound channel full, result dropped")
		}
	}
}

func (d *Dispatcher) execute(ctx context.Context, cmd command.Command) (*PublishableResult, error) {
	switch c := cmd.(type) {
	case *command.Trade:
		r, err := d.core.ExecuteTrade(ctx, c.IntentID, c.Owner, c.MarketIndex, c.Amount)
		if err != nil {
			return nil, err
		}
		return &PublishableResult{
			Kind:      c.Kind(),
			IntentID:  c.IntentID,
			Owner:     c.Owner,
			Payload:   r,
			Timestamp: time.Now(),
		}, nil

	case *command.Deposit:
		r, err := d.core.Deposit(ctx, c.IntentID, c.Owner, c.Symbol, c.Amount)
		if err != nil {
			return nil, err
		}
		return &PublishableResult{
			Kind:      c.Kind(),
			IntentID:  c.IntentID,
			Owner:     c.Owner,
			Payload:   r,
			Timestamp: time.Now(),
		}, nil

	case *command.Withdraw:
		r, err := d.core.Withdraw(ctx, c.IntentID, c.Owner, c.Symbol, c.Amount)
		if err != nil {
			return nil, err
		}
		return &PublishableResult{
			Kind:      c.Kind(),
			IntentID:  c.IntentID,
			Owner:     c.Owner,
			Payload:   r,
			Timestamp: time.Now(),
		}, nil

	case *command.YieldUpdate:
		r, err := d.core.UpdateYield(ctx, c.IntentID, c.Owner, c.MarketIndex, c.LongDelta, c.ShortDelta)
		if err != nil {
			return nil, err
		}
		return &PublishableResult{
			Kind:      c.Kind(),
			IntentID:  c.IntentID,
			Owner:     c.Owner,
			Payload:   r,
			Timestamp: time.Now(),
		}, nil

	case *command.ClaimRewards:
		amount, err := d.core.ClaimRewards(ctx, c.IntentID, c.Owner)
		if err != nil {
			return nil, err
		}
		return &PublishableResult{
			Kind:      c.Kind(),
			IntentID:  c.IntentID,
			Owner:     c.Owner,
			Payload:   map[string]int64{"amount": amount},
			Timestamp: time.Now(),
		}, nil

	case *command.PriceUpdate:
		d.feeds.SetQuote(c.Feed, oracle.Quote{
			Price:       c.Price,
			Decimals:    c.Decimals,
			Description: c.Description,
		})
		if d.metrics != nil {
			d.metrics.PriceUpdates.WithLabelValues(c.Feed).Inc()
		}
		return nil, nil

	default:
		return nil, errors.New("unhandled command kind: " + cmd.Kind())
	}
}

// isPermanent reports whether an error is deterministic: re-running the same
// command against the same state fails the same way, so redelivery is
// pointless. A duplicate intent is the broker redelivering work that already
// committed; acking it is what completes the at-least-once handshake.
func isPermanent(err error) bool {
	return errors.Is(err, core.ErrDuplicateIntent) ||
		errors.Is(err, engine.ErrUserMarginInsufficient) ||
		errors.Is(err, engine.ErrMarketMarginInsufficient) ||
		errors.Is(err, engine.ErrExchangeMarginInsufficient) ||
		errors.Is(err, engine.ErrYieldAmountInsufficient) ||
		errors.Is(err, engine.ErrRewardsClaimUnavailable) ||
		errors.Is(err, engine.ErrNoRewardsAvailable) ||
		errors.Is(err, core.ErrAlreadyExists) ||
		errors.Is(err, core.ErrAssetInactive) ||
		errors.Is(err, store.ErrNotFound) ||
		errors.Is(err, oracle.ErrUnknownFeed)
}
