package pgwire_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coredrift/pgwire"
	"github.com/coredrift/pgwire/internal/wiretest"
	"github.com/coredrift/pgwire/wireproto"
)

func TestSendBatch(t *testing.T) {
	ln, err := wiretest.Listen()
	require.NoError(t, err)
	defer ln.Close()

	done := make(chan error, 1)
	go func() {
		done <- wiretest.ServeOne(ln, startupScript(
			wiretest.ExpectTypeStep(&wireproto.Parse{}),
			wiretest.ExpectTypeStep(&wireproto.Bind{}),
			wiretest.ExpectTypeStep(&wireproto.Execute{}),
			wiretest.ExpectTypeStep(&wireproto.Parse{}),
			wiretest.ExpectTypeStep(&wireproto.Bind{}),
			wiretest.ExpectTypeStep(&wireproto.Execute{}),
			wiretest.ExpectTypeStep(&wireproto.Sync{}),
			wiretest.FuncStep(func(b *wiretest.Backend) error {
				if err := b.Send(&wireproto.ParseComplete{}); err != nil {
					return err
				}
				if err := b.Send(&wireproto.BindComplete{}); err != nil {
					return err
				}
				if err := b.Send(&wireproto.CommandComplete{CommandTag: []byte("INSERT 0 1")}); err != nil {
					return err
				}
				if err := b.Send(&wireproto.ParseComplete{}); err != nil {
					return err
				}
				if err := b.Send(&wireproto.BindComplete{}); err != nil {
					return err
				}
				fields := []wireproto.FieldDescription{{Name: []byte("id"), DataTypeOID: 23, Format: wireproto.TextFormat}}
				if err := b.Send(&wireproto.RowDescription{Fields: fields}); err != nil {
					return err
				}
				if err := b.Send(&wireproto.DataRow{Values: [][]byte{[]byte("9")}}); err != nil {
					return err
				}
				if err := b.Send(&wireproto.CommandComplete{CommandTag: []byte("SELECT 1")}); err != nil {
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

	var batch pgwire.Batch
	batch.Queue("insert into widgets (name) values ($1)", "gizmo")
	batch.Queue("select id from widgets where name = $1", "gizmo")
	require.Equal(t, 2, batch.Len())

	results, err := session.SendBatch(context.Background(), &batch)
	require.NoError(t, err)

	insertResult, err := results.Exec()
	require.NoError(t, err)
	require.EqualValues(t, 1, insertResult.RowsAffected)

	rs, err := results.Query()
	require.NoError(t, err)
	require.Len(t, rs.Rows, 1)

	require.NoError(t, results.Close())
	require.NoError(t, <-done)
}

func TestSendBatchServerError(t *testing.T) {
	ln, err := wiretest.Listen()
	require.NoError(t, err)
	defer ln.Close()

	done := make(chan error, 1)
	go func() {
		done <- wiretest.ServeOne(ln, startupScript(
			wiretest.ExpectTypeStep(&wireproto.Parse{}),
			wiretest.ExpectTypeStep(&wireproto.Bind{}),
			wiretest.ExpectTypeStep(&wireproto.Execute{}),
			wiretest.ExpectTypeStep(&wireproto.Sync{}),
			wiretest.FuncStep(func(b *wiretest.Backend) error {
				if err := b.Send(&wireproto.ErrorResponse{Fields: map[byte]string{
					wireproto.FieldSeverity: "ERROR",
					wireproto.FieldCode:     "23505",
					wireproto.FieldMessage:  "duplicate key value",
				}}); err != nil {
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

	var batch pgwire.Batch
	batch.Queue("insert into widgets (name) values ($1)", "gizmo")

	results, err := session.SendBatch(context.Background(), &batch)
	require.NoError(t, err)

	_, err = results.Exec()
	require.Error(t, err)

	var serverErr *pgwire.ServerError
	require.ErrorAs(t, err, &serverErr)
	require.Equal(t, "23505", serverErr.Code)

	require.NoError(t, <-done)
}
