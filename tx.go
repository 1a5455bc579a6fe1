package pgwire

import (
	"bytes"
	"context"
	"fmt"
)

// TxIsoLevel is a BEGIN ISOLATION LEVEL clause.
type TxIsoLevel string

const (
	Serializable    = TxIsoLevel("serializable")
	RepeatableRead  = TxIsoLevel("repeatable read")
	ReadCommitted   = TxIsoLevel("read committed")
	ReadUncommitted = TxIsoLevel("read uncommitted")
)

// TxAccessMode is a BEGIN READ WRITE/READ ONLY clause.
type TxAccessMode string

const (
	ReadWrite = TxAccessMode("read write")
	ReadOnly  = TxAccessMode("read only")
)

// TxDeferrableMode is a BEGIN DEFERRABLE clause; only meaningful together
// with Serializable and ReadOnly.
type TxDeferrableMode string

const (
	Deferrable    = TxDeferrableMode("deferrable")
	NotDeferrable = TxDeferrableMode("not deferrable")
)

// TxOptions configures the outermost BEGIN of a transaction. Nested run
// calls within the same transaction ignore TxOptions: PostgreSQL savepoints
// do not carry their own isolation level or access mode.
type TxOptions struct {
	IsoLevel       TxIsoLevel
	AccessMode     TxAccessMode
	DeferrableMode TxDeferrableMode
}

func (o *TxOptions) beginSQL() string {
	if o == nil {
		return "begin"
	}
	buf := &bytes.Buffer{}
	buf.WriteString("begin")
	if o.IsoLevel != "" {
		fmt.Fprintf(buf, " isolation level %s", o.IsoLevel)
	}
	if o.AccessMode != "" {
		fmt.Fprintf(buf, " %s", o.AccessMode)
	}
	if o.DeferrableMode != "" {
		fmt.Fprintf(buf, " %s", o.DeferrableMode)
	}
	return buf.String()
}

// txCoordinator tracks the (depth, aborted) transaction context spec §3
// describes, one per Session. depth 0 means no transaction is open; depth 1
// is the outermost BEGIN, depth N>1 is N-1 nested savepoints.
type txCoordinator struct {
	session *Session
	depth   int
	aborted bool
}

func newTxCoordinator(s *Session) *txCoordinator {
	return &txCoordinator{session: s}
}

// Depth returns the current transaction nesting depth; 0 means idle.
func (c *txCoordinator) Depth() int { return c.depth }

// run implements spec §4.6: BEGIN (or SAVEPOINT when already inside a
// transaction) before fn, COMMIT/RELEASE SAVEPOINT after a clean return,
// ROLLBACK/ROLLBACK TO SAVEPOINT + RELEASE on error, preserving the abort
// distance so an outer run can recover from an inner one's failure.
func (c *txCoordinator) run(ctx context.Context, opts *TxOptions, fn func(ctx context.Context) error) (err error) {
	if c.depth > 0 && c.aborted {
		return &TransactionAbortedError{}
	}

	depth := c.depth + 1
	savepointName := fmt.Sprintf("s%d", depth)

	if depth == 1 {
		if _, err := c.session.Exec(ctx, opts.beginSQL()); err != nil {
			return err
		}
	} else {
		if _, err := c.session.Exec(ctx, "savepoint "+savepointName); err != nil {
			return err
		}
	}
	c.depth = depth

	defer func() {
		if r := recover(); r != nil {
			c.rollback(ctx, depth, savepointName)
			c.depth = depth - 1
			panic(r)
		}
	}()

	if fnErr := fn(ctx); fnErr != nil {
		rollbackErr := c.rollback(ctx, depth, savepointName)
		c.depth = depth - 1
		if rollbackErr != nil {
			return rollbackErr
		}
		return fnErr
	}

	if c.aborted {
		rollbackErr := c.rollback(ctx, depth, savepointName)
		c.depth = depth - 1
		if rollbackErr != nil {
			return rollbackErr
		}
		return &TransactionAbortedError{}
	}

	if depth == 1 {
		_, err = c.session.Exec(ctx, "commit")
	} else {
		_, err = c.session.Exec(ctx, "release savepoint "+savepointName)
	}
	c.depth = depth - 1
	return err
}

// rollback issues ROLLBACK (depth 1) or ROLLBACK TO SAVEPOINT + RELEASE
// (depth > 1), and clears the aborted flag: a rollback to a savepoint that
// existed before the abort recovers the transaction, matching spec §3's
// "depth 0" definition of Transaction context.
func (c *txCoordinator) rollback(ctx context.Context, depth int, savepointName string) error {
	var err error
	if depth == 1 {
		_, err = c.session.Exec(ctx, "rollback")
	} else {
		if _, rbErr := c.session.Exec(ctx, "rollback to savepoint "+savepointName); rbErr != nil {
			return rbErr
		}
		_, err = c.session.Exec(ctx, "release savepoint "+savepointName)
	}
	c.aborted = false
	return err
}

// noteReadyForQuery is called after every extended-query round trip to
// track spec §4.6's "transaction-status E with no rollback yet issued"
// condition.
func (c *txCoordinator) noteReadyForQuery(txStatus byte) {
	if c.depth == 0 {
		return
	}
	c.aborted = txStatus == 'E'
}
