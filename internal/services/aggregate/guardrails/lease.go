package guardrails

import (
	"context"
	"errors"
	"time"

	"aquawatch/internal/modkit"
	"aquawatch/internal/platform/store"
)

// ErrLeaseHeld signals another worker owns the machine already.
var ErrLeaseHeld = errors.New("aggregate: machine lease already held")

// MakeMachineLease returns a function that uses Postgres to acquire an
// advisory lease for the given machine, running the do function if
// successful. It uses the aggregation_leases table to track claimed
// machines. A live claim younger than ttl blocks other workers; a stale
// claim is taken over, so a crashed worker cannot wedge a machine
// forever. The lease is released when do returns.
// It assumes the aggregation_leases table exists.
func MakeMachineLease(
	deps modkit.Deps,
	ttl time.Duration,
) func(ctx context.Context, machineID string, do func(context.Context) error) error {
	return func(ctx context.Context, machineID string, do func(context.Context) error) error {
		var claimed bool
		err := deps.PG.Tx(ctx, func(q store.RowQuerier) error {
			rows, err := q.Query(ctx, `
				insert into aggregation_leases (machine_id, claimed_at)
				values ($1, now())
				on conflict (machine_id) do update
				set claimed_at = now()
				where aggregation_leases.claimed_at < now() - $2::interval
				returning true
			`, machineID, ttl.String())
			if err != nil {
				return err
			}
			defer rows.Close()
			if rows.Next() {
				claimed = true
			}
			return nil
		})
		if err != nil {
			return err
		}
		if !claimed {
			return ErrLeaseHeld // clean skip
		}

		defer func() {
			// best effort release; a stale row is reclaimed via ttl anyway
			rctx := context.WithoutCancel(ctx)
			_ = deps.PG.Tx(rctx, func(q store.RowQuerier) error {
				_, err := q.Exec(rctx, `delete from aggregation_leases where machine_id = $1`, machineID)
				return err
			})
		}()
		return do(ctx)
	}
}
