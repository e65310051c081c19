// Package treasury holds the token-transfer collaborator. The core only ever
// calls it around deposit and withdrawal flows, strictly after collateral
// bookkeeping is updated and, for withdrawals, after the solvency gate
// passes. The actual movement of tokens is external plumbing.
package treasury

import (
	"context"

	"github.com/rs/zerolog"
)

// TokenMover executes one token transfer in token units (10^asset decimals).
type TokenMover interface {
	Transfer(ctx context.Context, from, to, authority string, tokenAmount int64) error
}

// LogMover records transfers without moving anything. Used by single-node
// deployments where custody is handled out of band, and as the default when
// no transfer backend is configured.
type LogMover struct {
	Log zerolog.Logger
}

func (m LogMover) Transfer(ctx context.Context, from, to, authority string, tokenAmount int64) error {
	m.Log.Info().
		Str("from", from).
		Str("to", to).
		Str("authority", authority).
		Int64("token_amount", tokenAmount).
		Msg("token transfer")
	return nil
}

// Recorder captures transfers for test assertions.
type Recorder struct {
	Transfers []RecordedTransfer
	Err       error // returned from every Transfer when non-nil
}

type RecordedTransfer struct {
	From, To, Authority string
	TokenAmount         int64
}

func (r *Recorder) Transfer(ctx context.Context, from, to, authority string, tokenAmount int64) error {
	if r.Err != nil {
		return r.Err
	}
	r.Transfers = append(r.Transfers, RecordedTransfer{
		From: from, To: to, Authority: authority, TokenAmount: tokenAmount,
	})
	return nil
}
