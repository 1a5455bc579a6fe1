// Package pool implements a puddle-backed Pool of pgwire Sessions,
// generalizing the teacher's pgxpool in the same shape: a fixed-size
// resource pool with a background health check that retires connections
// past their max lifetime, idle time, or use count.
package pool

import (
	"context"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/puddle"
	errors "golang.org/x/xerrors"

	"github.com/coredrift/pgwire"
	"github.com/coredrift/pgwire/pgwirelog"
)

var defaultMinMaxConns = int32(4)
var defaultMaxConnLifetime = time.Hour
var defaultHealthCheckPeriod = time.Minute

// holder is the puddle resource value: the pooled Session plus the
// bookkeeping spec §4.7's expiry predicates need beyond what puddle.Resource
// tracks itself (creation time only).
type holder struct {
	session      *pgwire.Session
	leasedAt     time.Time
	queriesSince int64
}

// Pool manages a set of pgwire.Session connections to one Endpoint.
type Pool struct {
	p                 *puddle.Pool
	afterConnect      func(context.Context, *pgwire.Session) error
	beforeAcquire     func(*pgwire.Session) bool
	afterRelease      func(*pgwire.Session) bool
	maxConnLifetime   time.Duration
	maxConnIdleTime   time.Duration
	maxConnUses       int32
	healthCheckPeriod time.Duration
	logger            pgwirelog.Logger
	closeChan         chan struct{}

	preallocatedConnsMux sync.Mutex
	preallocatedConns    []Conn
}

// Config configures a Pool. It is highly recommended to modify a Config
// returned by ParseConfig rather than construct one from scratch.
type Config struct {
	ConnConfig *pgwire.Config

	// AfterConnect is called after a Session is established, but before it
	// is added to the pool.
	AfterConnect func(context.Context, *pgwire.Session) error

	// BeforeAcquire is called before a Session is handed out from the pool.
	// It must return true to allow the acquisition or false to destroy the
	// Session and try a different one.
	BeforeAcquire func(*pgwire.Session) bool

	// AfterRelease is called when a Session is returned to the pool. It
	// must return true to return the Session to the pool or false to
	// destroy it.
	AfterRelease func(*pgwire.Session) bool

	// MaxConnLifetime is the duration after which a Session is
	// automatically closed, spec §4.7's max_connection_age.
	MaxConnLifetime time.Duration

	// MaxConnIdleTime is the duration a Session may sit leased-and-in-use
	// before it is retired on return, spec §4.7's max_session_use.
	MaxConnIdleTime time.Duration

	// MaxConnUses is the number of statements a Session may execute over
	// its lifetime before it is retired on return, spec §4.7's
	// max_query_count. Zero means unlimited.
	MaxConnUses int32

	// MaxConns is the maximum size of the pool.
	MaxConns int32

	// HealthCheckPeriod is the duration between checks of idle Sessions.
	HealthCheckPeriod time.Duration

	// Logger receives pool_open, pool_close, pool_lease, pool_return events.
	Logger pgwirelog.Logger
}

// Connect creates a new Pool and immediately establishes one Session. See
// ParseConfig for connString format.
func Connect(ctx context.Context, connString string) (*Pool, error) {
	config, err := ParseConfig(connString)
	if err != nil {
		return nil, err
	}
	return ConnectConfig(ctx, config)
}

// ConnectConfig creates a new Pool and immediately establishes one
// Session. ctx bounds that initial connection only.
func ConnectConfig(ctx context.Context, config *Config) (*Pool, error) {
	healthCheckPeriod := config.HealthCheckPeriod
	if healthCheckPeriod <= 0 {
		healthCheckPeriod = defaultHealthCheckPeriod
	}
	maxConns := config.MaxConns
	if maxConns <= 0 {
		maxConns = defaultMinMaxConns
	}

	p := &Pool{
		afterConnect:      config.AfterConnect,
		beforeAcquire:     config.BeforeAcquire,
		afterRelease:      config.AfterRelease,
		maxConnLifetime:   config.MaxConnLifetime,
		maxConnIdleTime:   config.MaxConnIdleTime,
		maxConnUses:       config.MaxConnUses,
		healthCheckPeriod: healthCheckPeriod,
		logger:            config.Logger,
		closeChan:         make(chan struct{}),
	}

	p.p = puddle.NewPool(
		func(ctx context.Context) (interface{}, error) {
			session, err := pgwire.Connect(ctx, config.ConnConfig)
			if err != nil {
				return nil, err
			}
			if p.afterConnect != nil {
				if err := p.afterConnect(ctx, session); err != nil {
					session.Close()
					return nil, err
				}
			}
			p.log(ctx, "pool_open", nil)
			return &holder{session: session}, nil
		},
		func(value interface{}) {
			h := value.(*holder)
			_ = h.session.Close()
			p.log(context.Background(), "pool_close", nil)
		},
		maxConns,
	)

	go p.backgroundHealthCheck()

	res, err := p.p.Acquire(ctx)
	if err != nil {
		p.p.Close()
		return nil, err
	}
	res.Release()

	return p, nil
}

func (p *Pool) log(ctx context.Context, msg string, data map[string]any) {
	if p.logger != nil {
		p.logger.Log(ctx, pgwirelog.LogLevelInfo, msg, data)
	}
}

// ParseConfig builds a Config from connString using pgwire.ParseConfig,
// plus these pool-specific settings:
//
// pool_max_conns: integer greater than 0
// pool_max_conn_lifetime: duration string
// pool_max_conn_idle_time: duration string
// pool_max_conn_uses: integer
// pool_health_check_period: duration string
func ParseConfig(connString string) (*Config, error) {
	connConfig, err := pgwire.ParseConfig(connString)
	if err != nil {
		return nil, err
	}

	config := &Config{ConnConfig: connConfig}

	if s, ok := connConfig.RuntimeParams["pool_max_conns"]; ok {
		delete(connConfig.RuntimeParams, "pool_max_conns")
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return nil, errors.Errorf("pgwire/pool: invalid pool_max_conns %q: %w", s, err)
		}
		if n < 1 {
			return nil, errors.Errorf("pgwire/pool: pool_max_conns too small: %d", n)
		}
		config.MaxConns = int32(n)
	} else {
		config.MaxConns = defaultMinMaxConns
		if numCPU := int32(runtime.NumCPU()); numCPU > config.MaxConns {
			config.MaxConns = numCPU
		}
	}

	if s, ok := connConfig.RuntimeParams["pool_max_conn_lifetime"]; ok {
		delete(connConfig.RuntimeParams, "pool_max_conn_lifetime")
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, errors.Errorf("pgwire/pool: invalid pool_max_conn_lifetime %q: %w", s, err)
		}
		config.MaxConnLifetime = d
	} else {
		config.MaxConnLifetime = defaultMaxConnLifetime
	}

	if s, ok := connConfig.RuntimeParams["pool_max_conn_idle_time"]; ok {
		delete(connConfig.RuntimeParams, "pool_max_conn_idle_time")
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, errors.Errorf("pgwire/pool: invalid pool_max_conn_idle_time %q: %w", s, err)
		}
		config.MaxConnIdleTime = d
	}

	if s, ok := connConfig.RuntimeParams["pool_max_conn_uses"]; ok {
		delete(connConfig.RuntimeParams, "pool_max_conn_uses")
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return nil, errors.Errorf("pgwire/pool: invalid pool_max_conn_uses %q: %w", s, err)
		}
		config.MaxConnUses = int32(n)
	}

	if s, ok := connConfig.RuntimeParams["pool_health_check_period"]; ok {
		delete(connConfig.RuntimeParams, "pool_health_check_period")
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, errors.Errorf("pgwire/pool: invalid pool_health_check_period %q: %w", s, err)
		}
		config.HealthCheckPeriod = d
	} else {
		config.HealthCheckPeriod = defaultHealthCheckPeriod
	}

	return config, nil
}

// Close closes every Session in the pool and rejects future Acquire calls.
// It blocks until all Sessions are returned and closed.
func (p *Pool) Close() {
	close(p.closeChan)
	p.p.Close()
}

func (p *Pool) backgroundHealthCheck() {
	ticker := time.NewTicker(p.healthCheckPeriod)
	for {
		select {
		case <-p.closeChan:
			ticker.Stop()
			return
		case <-ticker.C:
			p.checkIdleConnsHealth()
		}
	}
}

func (p *Pool) checkIdleConnsHealth() {
	resources := p.p.AcquireAllIdle()
	for _, res := range resources {
		if p.expired(res) {
			res.Destroy()
		} else {
			res.Release()
		}
	}
}

// expired reports whether res fails any of spec §4.7's expiry predicates:
// max_connection_age (wall time since open), max_session_use (wall time
// since last leased), or max_query_count (statements executed since open).
func (p *Pool) expired(res *puddle.Resource) bool {
	if p.maxConnLifetime > 0 && time.Since(res.CreationTime()) > p.maxConnLifetime {
		return true
	}
	h := res.Value().(*holder)
	if p.maxConnIdleTime > 0 && !h.leasedAt.IsZero() && time.Since(h.leasedAt) > p.maxConnIdleTime {
		return true
	}
	if p.maxConnUses > 0 && h.queriesSince >= int64(p.maxConnUses) {
		return true
	}
	return false
}

func (p *Pool) getConn(res *puddle.Resource) *Conn {
	p.preallocatedConnsMux.Lock()
	if len(p.preallocatedConns) == 0 {
		p.preallocatedConns = make([]Conn, 128)
	}
	c := &p.preallocatedConns[len(p.preallocatedConns)-1]
	p.preallocatedConns = p.preallocatedConns[0 : len(p.preallocatedConns)-1]
	p.preallocatedConnsMux.Unlock()

	res.Value().(*holder).leasedAt = time.Now()

	c.res = res
	c.p = p
	return c
}

// Acquire returns an idle Session from the pool, or blocks until one
// becomes available or ctx is done. Every candidate, idle or newly opened,
// is checked against the expiry predicates and BeforeAcquire; either
// rejecting it destroys it and tries the next one (spec §4.7's lease
// algorithm step 1).
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	for {
		res, err := p.p.Acquire(ctx)
		if err != nil {
			return nil, &pgwire.PoolExhaustedError{Err: err}
		}

		if p.expired(res) {
			res.Destroy()
			continue
		}

		h := res.Value().(*holder)
		if p.beforeAcquire == nil || p.beforeAcquire(h.session) {
			p.log(ctx, "pool_lease", nil)
			return p.getConn(res), nil
		}

		res.Destroy()
	}
}

// AcquireAllIdle atomically acquires every currently idle Session. Its
// intended use is health checks and keep-alives; it does not update pool
// statistics the way Acquire does.
func (p *Pool) AcquireAllIdle() []*Conn {
	resources := p.p.AcquireAllIdle()
	conns := make([]*Conn, 0, len(resources))
	for _, res := range resources {
		h := res.Value().(*holder)
		if p.beforeAcquire == nil || p.beforeAcquire(h.session) {
			conns = append(conns, p.getConn(res))
		} else {
			res.Destroy()
		}
	}
	return conns
}

// Exec acquires a Session, runs sql on it, and releases it.
func (p *Pool) Exec(ctx context.Context, sql string, arguments ...any) (pgwire.Result, error) {
	c, err := p.Acquire(ctx)
	if err != nil {
		return pgwire.Result{}, err
	}
	defer c.Release()
	return c.Exec(ctx, sql, arguments...)
}

// Query acquires a Session, runs sql on it to completion, and releases it.
func (p *Pool) Query(ctx context.Context, sql string, args ...any) (*pgwire.ResultSet, error) {
	c, err := p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer c.Release()
	return c.Query(ctx, sql, args...)
}

// RunTx acquires a Session, runs fn inside a transaction on it, and
// releases it once the transaction has committed or rolled back.
func (p *Pool) RunTx(ctx context.Context, opts *pgwire.TxOptions, fn func(ctx context.Context) error) error {
	c, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer c.Release()
	return c.RunTx(ctx, opts, fn)
}
