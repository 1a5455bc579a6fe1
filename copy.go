package pgwire

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/coredrift/pgwire/wireproto"
)

// CopyFromSource feeds rows to Session.CopyFrom, one Values() call per
// row, the way pgx's CopyFromRows/CopyFromSlice adapters do.
type CopyFromSource interface {
	Next() bool
	Values() ([]any, error)
	Err() error
}

// copyFromRows is the []any{...} literal adapter: CopyFromRows(rows) lets
// a caller hand over an in-memory slice without implementing CopyFromSource.
type copyFromRows struct {
	rows [][]any
	idx  int
}

// CopyFromRows adapts an in-memory slice of rows into a CopyFromSource.
func CopyFromRows(rows [][]any) CopyFromSource {
	return &copyFromRows{rows: rows, idx: -1}
}

func (c *copyFromRows) Next() bool {
	c.idx++
	return c.idx < len(c.rows)
}

func (c *copyFromRows) Values() ([]any, error) { return c.rows[c.idx], nil }
func (c *copyFromRows) Err() error             { return nil }

// CopyFrom drives a `COPY ... FROM STDIN` statement: sql must already be
// that statement (pgwire does no SQL construction, per its scope). Rows
// are streamed from src in PostgreSQL's text COPY format, one CopyData
// frame per row, terminated by CopyDone; a source error instead sends
// CopyFail, which the backend answers with an ErrorResponse.
func (s *Session) CopyFrom(ctx context.Context, sql string, src CopyFromSource) (rowsAffected int64, err error) {
	if s.state != StateReady {
		return 0, fmt.Errorf("pgwire: session not ready (state=%s)", s.state)
	}
	s.state = StateBusy
	defer func() {
		if s.state == StateBusy {
			s.state = StateReady
		}
	}()

	if err := s.fe.Send(&wireproto.Query{String: sql}); err != nil {
		return 0, err
	}
	if err := s.fe.Flush(); err != nil {
		return 0, err
	}

	msg, err := s.fe.Receive()
	if err != nil {
		s.state = StateClosed
		return 0, translateReceiveError(err)
	}
	if _, ok := msg.(*wireproto.CopyInResponse); !ok {
		return 0, s.unexpectedCopyReply(ctx, msg, "CopyInResponse")
	}

	var row []byte
	for src.Next() {
		values, vErr := src.Values()
		if vErr != nil {
			return 0, s.abortCopyIn(ctx, vErr)
		}
		row = appendCopyTextRow(row[:0], values)
		frame, encErr := (&wireproto.CopyData{Data: row}).Encode(nil)
		if encErr != nil {
			return 0, encErr
		}
		// Large COPY payloads go straight to the transport rather than
		// through the send buffer, the way frontend.go's
		// SendUnbufferedCopyData is meant for.
		if err := s.fe.SendUnbufferedCopyData(frame); err != nil {
			return 0, err
		}
	}
	if err := src.Err(); err != nil {
		return 0, s.abortCopyIn(ctx, err)
	}

	if err := s.fe.Send(&wireproto.CopyDone{}); err != nil {
		return 0, err
	}
	if err := s.fe.Flush(); err != nil {
		return 0, err
	}

	return s.drainCopyTail(ctx)
}

// abortCopyIn sends CopyFail with cause's message and drains the
// resulting ErrorResponse/ReadyForQuery pair.
func (s *Session) abortCopyIn(ctx context.Context, cause error) error {
	_ = s.fe.Send(&wireproto.CopyFail{Message: cause.Error()})
	_ = s.fe.Flush()
	if _, err := s.drainCopyTail(ctx); err != nil {
		return err
	}
	return cause
}

// drainCopyTail reads through CommandComplete and ReadyForQuery, the
// shared tail of both a completed CopyFrom and an aborted one.
func (s *Session) drainCopyTail(ctx context.Context) (int64, error) {
	var rowsAffected int64
	var pending *ServerError

	for {
		msg, err := s.fe.Receive()
		if err != nil {
			s.state = StateClosed
			return 0, translateReceiveError(err)
		}

		switch m := msg.(type) {
		case *wireproto.CommandComplete:
			rowsAffected = parseRowsAffected(m.CommandTag)
		case *wireproto.ErrorResponse:
			pending = &ServerError{
				Severity: m.Severity(), Code: m.Code(), Message: m.Message(),
				Detail: m.Fields[wireproto.FieldDetail], Hint: m.Fields[wireproto.FieldHint],
				Fields: m.Fields,
			}
		case *wireproto.NoticeResponse:
			s.dispatchNotice(m)
		case *wireproto.ReadyForQuery:
			s.txStatus = m.TxStatus
			s.tx.noteReadyForQuery(m.TxStatus)
			if pending != nil {
				return 0, pending
			}
			return rowsAffected, nil
		default:
			return 0, &ProtocolError{Msg: fmt.Sprintf("unexpected message %T during copy", msg)}
		}
	}
}

// CopyTo drives a `COPY ... TO STDOUT` statement, writing every CopyData
// chunk to w verbatim as it arrives.
func (s *Session) CopyTo(ctx context.Context, sql string, w io.Writer) (rowsAffected int64, err error) {
	if s.state != StateReady {
		return 0, fmt.Errorf("pgwire: session not ready (state=%s)", s.state)
	}
	s.state = StateBusy
	defer func() {
		if s.state == StateBusy {
			s.state = StateReady
		}
	}()

	if err := s.fe.Send(&wireproto.Query{String: sql}); err != nil {
		return 0, err
	}
	if err := s.fe.Flush(); err != nil {
		return 0, err
	}

	msg, err := s.fe.Receive()
	if err != nil {
		s.state = StateClosed
		return 0, translateReceiveError(err)
	}
	if _, ok := msg.(*wireproto.CopyOutResponse); !ok {
		return 0, s.unexpectedCopyReply(ctx, msg, "CopyOutResponse")
	}

	for {
		msg, err := s.fe.Receive()
		if err != nil {
			s.state = StateClosed
			return 0, translateReceiveError(err)
		}
		switch m := msg.(type) {
		case *wireproto.CopyData:
			if _, werr := w.Write(m.Data); werr != nil {
				return 0, werr
			}
		case *wireproto.CopyDone:
			return s.drainCopyTail(ctx)
		case *wireproto.ErrorResponse:
			rows, derr := s.drainCopyTail(ctx)
			if derr != nil {
				return rows, derr
			}
			return rows, &ServerError{
				Severity: m.Severity(), Code: m.Code(), Message: m.Message(),
				Detail: m.Fields[wireproto.FieldDetail], Hint: m.Fields[wireproto.FieldHint],
				Fields: m.Fields,
			}
		default:
			return 0, &ProtocolError{Msg: fmt.Sprintf("unexpected message %T during copy", msg)}
		}
	}
}

// unexpectedCopyReply reports that sql didn't start a COPY after all
// (typically an ErrorResponse for a statement that wasn't COPY at all),
// draining the tail so the session is left at ReadyForQuery.
func (s *Session) unexpectedCopyReply(ctx context.Context, msg wireproto.BackendMessage, want string) error {
	if er, ok := msg.(*wireproto.ErrorResponse); ok {
		_, _ = s.drainCopyTail(ctx)
		return &ServerError{
			Severity: er.Severity(), Code: er.Code(), Message: er.Message(),
			Detail: er.Fields[wireproto.FieldDetail], Hint: er.Fields[wireproto.FieldHint],
			Fields: er.Fields,
		}
	}
	return &ProtocolError{Msg: fmt.Sprintf("expected %s, got %T", want, msg)}
}

// appendCopyTextRow renders one row in PostgreSQL's COPY text format:
// tab-separated columns, backslash-escaped, NULL as the literal \N,
// terminated by a newline.
func appendCopyTextRow(dst []byte, values []any) []byte {
	for i, v := range values {
		if i > 0 {
			dst = append(dst, '\t')
		}
		if v == nil {
			dst = append(dst, '\\', 'N')
			continue
		}
		dst = append(dst, escapeCopyText(fmt.Sprint(v))...)
	}
	return append(dst, '\n')
}

var copyTextEscapes = map[byte]string{
	'\\': `\\`, '\t': `\t`, '\n': `\n`, '\r': `\r`,
}

func escapeCopyText(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if esc, ok := copyTextEscapes[s[i]]; ok {
			b.WriteString(esc)
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
