package store

import "context"

// RunForMachine wraps ctx with the machine id and calls fn inside the provided TxRunner
func RunForMachine(ctx context.Context, tx TxRunner, machineID string, fn func(ctx context.Context, q RowQuerier) error) error {
	ctx = WithMachine(ctx, machineID)
	return tx.Tx(ctx, func(q RowQuerier) error {
		return fn(ctx, q)
	})
}
