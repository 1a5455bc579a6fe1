package pgwire_test

import (
	"context"
	"net"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coredrift/pgwire"
	"github.com/coredrift/pgwire/internal/wiretest"
	"github.com/coredrift/pgwire/wireproto"
)

func connectConfig(t *testing.T, addr string) *pgwire.Config {
	t.Helper()

	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.ParseUint(portStr, 10, 16)
	require.NoError(t, err)

	cfg := pgwire.NewConfig(pgwire.Endpoint{
		Host:     host,
		Port:     uint16(port),
		User:     "alice",
		Database: "testdb",
	})
	cfg.SSLMode = pgwire.SSLDisable
	return cfg
}

// startupScript scripts a trust-auth startup handshake followed by extra
// steps for whatever the test wants to exercise afterward.
func startupScript(extra ...wiretest.Step) *wiretest.Script {
	steps := []wiretest.Step{
		wiretest.FuncStep(func(b *wiretest.Backend) error {
			if _, err := b.ReceiveStartup(); err != nil {
				return err
			}
			if err := b.Send(&wireproto.AuthenticationOk{}); err != nil {
				return err
			}
			if err := b.Send(&wireproto.ParameterStatus{Name: "server_version", Value: "15.0"}); err != nil {
				return err
			}
			if err := b.Send(&wireproto.BackendKeyData{ProcessID: 1234, SecretKey: 5678}); err != nil {
				return err
			}
			return b.Send(&wireproto.ReadyForQuery{TxStatus: 'I'})
		}),
	}
	return &wiretest.Script{Steps: append(steps, extra...)}
}

func TestConnectTrustAuth(t *testing.T) {
	ln, err := wiretest.Listen()
	require.NoError(t, err)
	defer ln.Close()

	done := make(chan error, 1)
	go func() { done <- wiretest.ServeOne(ln, startupScript()) }()

	cfg := connectConfig(t, ln.Addr().String())
	session, err := pgwire.Connect(context.Background(), cfg)
	require.NoError(t, err)
	defer session.Close()

	require.Equal(t, pgwire.StateReady, session.State())
	require.Equal(t, uint32(1234), session.BackendPID())

	require.NoError(t, <-done)
}

func TestExecSimple(t *testing.T) {
	ln, err := wiretest.Listen()
	require.NoError(t, err)
	defer ln.Close()

	done := make(chan error, 1)
	go func() {
		done <- wiretest.ServeOne(ln, startupScript(
			wiretest.ExpectTypeStep(&wireproto.Parse{}),
			wiretest.ExpectTypeStep(&wireproto.Describe{}),
			wiretest.ExpectTypeStep(&wireproto.Sync{}),
			wiretest.FuncStep(func(b *wiretest.Backend) error {
				if err := b.Send(&wireproto.ParseComplete{}); err != nil {
					return err
				}
				if err := b.Send(&wireproto.ParameterDescription{}); err != nil {
					return err
				}
				if err := b.Send(&wireproto.NoData{}); err != nil {
					return err
				}
				return b.Send(&wireproto.ReadyForQuery{TxStatus: 'I'})
			}),
			wiretest.ExpectTypeStep(&wireproto.Bind{}),
			wiretest.ExpectTypeStep(&wireproto.Execute{}),
			wiretest.ExpectTypeStep(&wireproto.Sync{}),
			wiretest.FuncStep(func(b *wiretest.Backend) error {
				if err := b.Send(&wireproto.BindComplete{}); err != nil {
					return err
				}
				if err := b.Send(&wireproto.CommandComplete{CommandTag: []byte("DELETE 3")}); err != nil {
					return err
				}
				return b.Send(&wireproto.ReadyForQuery{TxStatus: 'I'})
			}),
		))
	}()

	cfg := connectConfig(t, ln.Addr().String())
	session, err := pgwire.Connect(context.Background(), cfg)
	require.NoError(t, err)
	defer session.Close()

	result, err := session.Exec(context.Background(), "delete from widgets where id = $1", 7)
	require.NoError(t, err)
	require.EqualValues(t, 3, result.RowsAffected)

	require.NoError(t, <-done)
}
