package pool

import "time"

// Stat is a snapshot of a Pool's resource counters, taken once at Stat
// time rather than held as a pointer into puddle's live stat. It also
// carries the expiry settings Pool.expired checks against (see
// pool.go's holder type), since puddle's own counters have no notion of
// session-idle-time or per-session query-count expiry — only this
// package's holder bookkeeping does.
type Stat struct {
	AcquireCount         int64
	AcquireDuration      time.Duration
	AcquiredConns        int
	CanceledAcquireCount int64
	ConstructingConns    int
	EmptyAcquireCount    int64
	IdleConns            int
	MaxConns             int
	TotalConns           int

	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	MaxConnUses     int32
}

// Stat returns a snapshot of the pool's resource counters.
func (p *Pool) Stat() *Stat {
	s := p.p.Stat()
	return &Stat{
		AcquireCount:         s.AcquireCount(),
		AcquireDuration:      s.AcquireDuration(),
		AcquiredConns:        int(s.AcquiredResources()),
		CanceledAcquireCount: s.CanceledAcquireCount(),
		ConstructingConns:    int(s.ConstructingResources()),
		EmptyAcquireCount:    s.EmptyAcquireCount(),
		IdleConns:            int(s.IdleResources()),
		MaxConns:             int(s.MaxResources()),
		TotalConns:           int(s.TotalResources()),

		MaxConnLifetime: p.maxConnLifetime,
		MaxConnIdleTime: p.maxConnIdleTime,
		MaxConnUses:     p.maxConnUses,
	}
}
