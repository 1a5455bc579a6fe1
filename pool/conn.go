package pool

import (
	"context"
	"time"

	"github.com/jackc/puddle"

	"github.com/coredrift/pgwire"
)

// Conn is an acquired *pgwire.Session from a Pool.
type Conn struct {
	res *puddle.Resource
	p   *Pool
}

// Release returns c to the pool it was acquired from. Once Release has
// been called, other methods must not be called. Subsequent calls after
// the first are ignored.
func (c *Conn) Release() {
	if c.res == nil {
		return
	}

	session := c.Session()
	res := c.res
	c.res = nil
	p := c.p

	go func() {
		p.log(context.Background(), "pool_return", nil)

		if session.State() == pgwire.StateClosed {
			res.Destroy()
			return
		}

		if session.TxStatus() != 'I' {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_, err := session.Exec(ctx, "rollback")
			cancel()
			if err != nil {
				res.Destroy()
				return
			}
		}

		if p.expired(res) {
			res.Destroy()
			return
		}

		if p.afterRelease == nil || p.afterRelease(session) {
			res.Release()
		} else {
			res.Destroy()
		}
	}()
}

// Exec delegates to the underlying Session.
func (c *Conn) Exec(ctx context.Context, sql string, arguments ...any) (pgwire.Result, error) {
	c.countQuery()
	return c.Session().Exec(ctx, sql, arguments...)
}

// Query delegates to the underlying Session.
func (c *Conn) Query(ctx context.Context, sql string, args ...any) (*pgwire.ResultSet, error) {
	c.countQuery()
	return c.Session().Query(ctx, sql, args...)
}

// RunTx delegates to the underlying Session. Unlike Pool.RunTx it does not
// release c; the caller still owns c afterward and must Release it.
func (c *Conn) RunTx(ctx context.Context, opts *pgwire.TxOptions, fn func(ctx context.Context) error) error {
	c.countQuery()
	return c.Session().RunTx(ctx, opts, fn)
}

func (c *Conn) countQuery() {
	c.res.Value().(*holder).queriesSince++
}

// Session returns the underlying *pgwire.Session.
func (c *Conn) Session() *pgwire.Session {
	return c.res.Value().(*holder).session
}
