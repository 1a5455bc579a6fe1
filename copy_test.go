package pgwire_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coredrift/pgwire"
	"github.com/coredrift/pgwire/internal/wiretest"
	"github.com/coredrift/pgwire/wireproto"
)

func TestCopyFrom(t *testing.T) {
	ln, err := wiretest.Listen()
	require.NoError(t, err)
	defer ln.Close()

	var gotRows [][]byte

	done := make(chan error, 1)
	go func() {
		done <- wiretest.ServeOne(ln, startupScript(
			wiretest.ExpectTypeStep(&wireproto.Query{}),
			wiretest.FuncStep(func(b *wiretest.Backend) error {
				return b.Send(&wireproto.CopyInResponse{OverallFormat: 0})
			}),
			wiretest.FuncStep(func(b *wiretest.Backend) error {
				for {
					fr, err := b.ReceiveFrame()
					if err != nil {
						return err
					}
					switch fr.TypeByte() {
					case 'd':
						gotRows = append(gotRows, fr.Body())
					case 'c':
						if err := b.Send(&wireproto.CommandComplete{CommandTag: []byte("COPY 2")}); err != nil {
							return err
						}
						return b.Send(&wireproto.ReadyForQuery{TxStatus: 'I'})
					}
				}
			}),
		))
	}()

	cfg := connectConfig(t, ln.Addr().String())
	session, err := pgwire.Connect(context.Background(), cfg)
	require.NoError(t, err)
	defer session.Close()

	src := pgwire.CopyFromRows([][]any{
		{"gizmo", 3},
		{"widget", nil},
	})

	rowsAffected, err := session.CopyFrom(context.Background(), "copy widgets (name, qty) from stdin", src)
	require.NoError(t, err)
	require.EqualValues(t, 2, rowsAffected)

	require.Len(t, gotRows, 2)
	require.Equal(t, "gizmo\t3\n", string(gotRows[0]))
	require.Equal(t, "widget\t\\N\n", string(gotRows[1]))

	require.NoError(t, <-done)
}

func TestCopyTo(t *testing.T) {
	ln, err := wiretest.Listen()
	require.NoError(t, err)
	defer ln.Close()

	done := make(chan error, 1)
	go func() {
		done <- wiretest.ServeOne(ln, startupScript(
			wiretest.ExpectTypeStep(&wireproto.Query{}),
			wiretest.FuncStep(func(b *wiretest.Backend) error {
				if err := b.Send(&wireproto.CopyOutResponse{OverallFormat: 0}); err != nil {
					return err
				}
				if err := b.Send(&wireproto.CopyData{Data: []byte("gizmo\t3\n")}); err != nil {
					return err
				}
				if err := b.Send(&wireproto.CopyData{Data: []byte("widget\t\\N\n")}); err != nil {
					return err
				}
				if err := b.Send(&wireproto.CopyDone{}); err != nil {
					return err
				}
				if err := b.Send(&wireproto.CommandComplete{CommandTag: []byte("COPY 2")}); err != nil {
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

	var buf bytes.Buffer
	rowsAffected, err := session.CopyTo(context.Background(), "copy widgets (name, qty) to stdout", &buf)
	require.NoError(t, err)
	require.EqualValues(t, 2, rowsAffected)
	require.Equal(t, "gizmo\t3\nwidget\t\\N\n", buf.String())

	require.NoError(t, <-done)
}
