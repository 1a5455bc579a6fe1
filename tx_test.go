package pgwire_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coredrift/pgwire"
	"github.com/coredrift/pgwire/internal/wiretest"
	"github.com/coredrift/pgwire/wireproto"
)

// simpleQueryRound scripts one Parse/Describe/Sync + Bind/Execute/Sync
// round trip that always succeeds with the given CommandComplete tag.
func simpleQueryRound(tag string) []wiretest.Step {
	return []wiretest.Step{
		wiretest.ExpectTypeStep(&wireproto.Parse{}),
		wiretest.ExpectTypeStep(&wireproto.Describe{}),
		wiretest.ExpectTypeStep(&wireproto.Sync{}),
		wiretest.FuncStep(func(b *wiretest.Backend) error {
			if err := b.Send(&wireproto.ParseComplete{}); err != nil {
				return err
			}
			if err := b.Send(&wireproto.NoData{}); err != nil {
				return err
			}
			return b.Send(&wireproto.ReadyForQuery{TxStatus: 'T'})
		}),
		wiretest.ExpectTypeStep(&wireproto.Bind{}),
		wiretest.ExpectTypeStep(&wireproto.Execute{}),
		wiretest.ExpectTypeStep(&wireproto.Sync{}),
		wiretest.FuncStep(func(b *wiretest.Backend) error {
			if err := b.Send(&wireproto.BindComplete{}); err != nil {
				return err
			}
			if err := b.Send(&wireproto.CommandComplete{CommandTag: []byte(tag)}); err != nil {
				return err
			}
			return b.Send(&wireproto.ReadyForQuery{TxStatus: 'T'})
		}),
	}
}

func TestRunTxCommit(t *testing.T) {
	ln, err := wiretest.Listen()
	require.NoError(t, err)
	defer ln.Close()

	steps := startupScript().Steps
	steps = append(steps, simpleQueryRound("BEGIN")...)
	steps = append(steps, simpleQueryRound("INSERT 0 1")...)
	steps = append(steps, simpleQueryRound("COMMIT")...)

	done := make(chan error, 1)
	go func() { done <- wiretest.ServeOne(ln, &wiretest.Script{Steps: steps}) }()

	cfg := connectConfig(t, ln.Addr().String())
	session, err := pgwire.Connect(context.Background(), cfg)
	require.NoError(t, err)
	defer session.Close()

	err = session.RunTx(context.Background(), nil, func(ctx context.Context) error {
		_, err := session.Exec(ctx, "insert into widgets (name) values ('a')")
		return err
	})
	require.NoError(t, err)
	require.Equal(t, 0, session.TxDepth())

	require.NoError(t, <-done)
}

func TestRunTxRollbackOnError(t *testing.T) {
	ln, err := wiretest.Listen()
	require.NoError(t, err)
	defer ln.Close()

	steps := startupScript().Steps
	steps = append(steps, simpleQueryRound("BEGIN")...)
	steps = append(steps, simpleQueryRound("ROLLBACK")...)

	done := make(chan error, 1)
	go func() { done <- wiretest.ServeOne(ln, &wiretest.Script{Steps: steps}) }()

	cfg := connectConfig(t, ln.Addr().String())
	session, err := pgwire.Connect(context.Background(), cfg)
	require.NoError(t, err)
	defer session.Close()

	sentinel := errors.New("body failed")
	err = session.RunTx(context.Background(), nil, func(ctx context.Context) error {
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
	require.Equal(t, 0, session.TxDepth())

	require.NoError(t, <-done)
}

func TestRunTxNestedSavepoint(t *testing.T) {
	ln, err := wiretest.Listen()
	require.NoError(t, err)
	defer ln.Close()

	steps := startupScript().Steps
	steps = append(steps, simpleQueryRound("BEGIN")...)
	steps = append(steps, simpleQueryRound("SAVEPOINT")...)
	steps = append(steps, simpleQueryRound("RELEASE")...)
	steps = append(steps, simpleQueryRound("COMMIT")...)

	done := make(chan error, 1)
	go func() { done <- wiretest.ServeOne(ln, &wiretest.Script{Steps: steps}) }()

	cfg := connectConfig(t, ln.Addr().String())
	session, err := pgwire.Connect(context.Background(), cfg)
	require.NoError(t, err)
	defer session.Close()

	var innerDepth int
	err = session.RunTx(context.Background(), nil, func(ctx context.Context) error {
		return session.RunTx(ctx, nil, func(ctx context.Context) error {
			innerDepth = session.TxDepth()
			return nil
		})
	})
	require.NoError(t, err)
	require.Equal(t, 2, innerDepth)
	require.Equal(t, 0, session.TxDepth())

	require.NoError(t, <-done)
}
