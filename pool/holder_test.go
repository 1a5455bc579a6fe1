package pool

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coredrift/pgwire"
	"github.com/coredrift/pgwire/internal/wiretest"
	"github.com/coredrift/pgwire/wireproto"
)

// TestMaxConnUsesExpiry checks spec §4.7's max_query_count predicate: a
// Session retired after its use budget is exhausted is not handed out
// again. Exercised from inside the package so the test can drive the
// query counter directly without a scripted backend that speaks the full
// extended-query protocol.
func TestMaxConnUsesExpiry(t *testing.T) {
	ln, err := wiretest.Listen()
	require.NoError(t, err)
	defer ln.Close()

	var nextPID uint32 = 2000
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			nextPID++
			pid := nextPID
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
				buf := make([]byte, 1)
				conn.Read(buf)
			}()
		}
	}()

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.ParseUint(portStr, 10, 16)
	require.NoError(t, err)
	connConfig := pgwire.NewConfig(pgwire.Endpoint{Host: host, Port: uint16(port), User: "alice", Database: "testdb"})
	connConfig.SSLMode = pgwire.SSLDisable

	p, err := ConnectConfig(context.Background(), &Config{
		ConnConfig:  connConfig,
		MaxConns:    1,
		MaxConnUses: 1,
	})
	require.NoError(t, err)
	defer p.Close()

	c1, err := p.Acquire(context.Background())
	require.NoError(t, err)
	firstPID := c1.Session().BackendPID()
	c1.res.Value().(*holder).queriesSince = 1
	c1.Release()

	time.Sleep(20 * time.Millisecond)

	c2, err := p.Acquire(context.Background())
	require.NoError(t, err)
	secondPID := c2.Session().BackendPID()
	c2.Release()

	require.NotEqual(t, firstPID, secondPID)
}
