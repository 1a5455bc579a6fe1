package pool_test

import (
	"context"
	"net"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coredrift/pgwire"
	"github.com/coredrift/pgwire/internal/wiretest"
	"github.com/coredrift/pgwire/pool"
	"github.com/coredrift/pgwire/wireproto"
)

// serveForever accepts connections on ln until it is closed, answering each
// with a trust-auth startup handshake and a fresh, incrementing backend
// pid, then idling (no further frames) until the client closes.
func serveForever(t *testing.T, ln net.Listener) {
	t.Helper()
	var nextPID uint32 = 1000

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			pid := atomic.AddUint32(&nextPID, 1)
			go func() {
				defer conn.Close()
				b := wiretest.NewBackend(conn)
				if _, err := b.ReceiveStartup(); err != nil {
					return
				}
				if err := b.Send(&wireproto.AuthenticationOk{}); err != nil {
					return
				}
				if err := b.Send(&wireproto.BackendKeyData{ProcessID: pid, SecretKey: 1}); err != nil {
					return
				}
				_ = b.Send(&wireproto.ReadyForQuery{TxStatus: 'I'})
				// Idle: block on a frame that never arrives, so the
				// connection stays open until the client closes it.
				buf := make([]byte, 1)
				conn.Read(buf)
			}()
		}
	}()
}

func testConnConfig(t *testing.T, addr string) *pgwire.Config {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.ParseUint(portStr, 10, 16)
	require.NoError(t, err)

	cfg := pgwire.NewConfig(pgwire.Endpoint{Host: host, Port: uint16(port), User: "alice", Database: "testdb"})
	cfg.SSLMode = pgwire.SSLDisable
	return cfg
}

// TestPoolConnAgeExpiry reproduces spec §8's pool-expiry scenario: with a
// short max_connection_age, leasing, returning, waiting past the age, and
// leasing again must observe a new underlying connection.
func TestPoolConnAgeExpiry(t *testing.T) {
	ln, err := wiretest.Listen()
	require.NoError(t, err)
	defer ln.Close()
	serveForever(t, ln)

	cfg := &pool.Config{
		ConnConfig:      testConnConfig(t, ln.Addr().String()),
		MaxConns:        1,
		MaxConnLifetime: 50 * time.Millisecond,
	}

	p, err := pool.ConnectConfig(context.Background(), cfg)
	require.NoError(t, err)
	defer p.Close()

	c1, err := p.Acquire(context.Background())
	require.NoError(t, err)
	firstPID := c1.Session().BackendPID()
	c1.Release()

	time.Sleep(100 * time.Millisecond)

	c2, err := p.Acquire(context.Background())
	require.NoError(t, err)
	secondPID := c2.Session().BackendPID()
	c2.Release()

	require.NotEqual(t, firstPID, secondPID)
}

// TestPoolFIFOWaiters checks that a request blocked on Acquire is served
// once the sole connection is returned (spec §4.7 lease algorithm step 3).
func TestPoolFIFOWaiters(t *testing.T) {
	ln, err := wiretest.Listen()
	require.NoError(t, err)
	defer ln.Close()
	serveForever(t, ln)

	cfg := &pool.Config{
		ConnConfig: testConnConfig(t, ln.Addr().String()),
		MaxConns:   1,
	}

	p, err := pool.ConnectConfig(context.Background(), cfg)
	require.NoError(t, err)
	defer p.Close()

	c1, err := p.Acquire(context.Background())
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		c2, err := p.Acquire(context.Background())
		require.NoError(t, err)
		close(acquired)
		c2.Release()
	}()

	select {
	case <-acquired:
		t.Fatal("second Acquire returned before the first was released")
	case <-time.After(50 * time.Millisecond):
	}

	c1.Release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second Acquire never completed after release")
	}
}
