package repositories

import "context"

// TxFn is a function that runs within a transaction
type TxFn func(ctx context.Context) error

// TransactionManager handles database transactions
type TransactionManager interface {
	// ExecTx runs fn with a transaction stored in its context and commits
	// when fn returns nil.
	ExecTx(ctx context.Context, fn TxFn) error
}
