package pgwire

import (
	"context"
	"fmt"

	"github.com/coredrift/pgwire/wireproto"
)

// BatchItem is one statement queued in a Batch.
type BatchItem struct {
	SQL    string
	Params []any
}

// Batch is a queue of statements pipelined together as a single
// Parse/Bind/Execute*/Sync round trip. Queuing does not touch the wire;
// the whole batch is sent in one go by Session.SendBatch.
type Batch struct {
	items []BatchItem
}

// Queue appends sql and its positional params to the batch.
func (b *Batch) Queue(sql string, params ...any) {
	b.items = append(b.items, BatchItem{SQL: sql, Params: params})
}

// Len returns the number of queued items.
func (b *Batch) Len() int { return len(b.items) }

// BatchResults is returned by Session.SendBatch. Results must be read in
// the order items were queued, one Exec or Query call per queued item,
// and Close must be called once done to drain anything left unread.
type BatchResults struct {
	s       *Session
	pending int
	err     error
}

// SendBatch writes every queued item as an unnamed Parse+Bind+Execute,
// followed by a single trailing Sync, and flushes once. A Batch trades
// the prepared-statement cache for round trips: every item is parsed
// fresh, the way session.query treats a cache miss, but all of them
// share one flush instead of one per statement.
func (s *Session) SendBatch(ctx context.Context, b *Batch) (*BatchResults, error) {
	if s.state != StateReady {
		return nil, fmt.Errorf("pgwire: session not ready (state=%s)", s.state)
	}
	if s.tx.depth > 0 && s.tx.aborted {
		return nil, &TransactionAbortedError{}
	}
	s.state = StateBusy

	for _, item := range b.items {
		name := ""

		if err := s.fe.Send(&wireproto.Parse{Name: name, Query: item.SQL}); err != nil {
			s.state = StateReady
			return nil, err
		}

		formats := make([]int16, len(item.Params))
		values := make([][]byte, len(item.Params))
		for j, p := range item.Params {
			if p == nil {
				continue
			}
			values[j] = []byte(fmt.Sprint(p))
		}

		if err := s.fe.Send(&wireproto.Bind{
			DestinationPortal:    name,
			PreparedStatement:    name,
			ParameterFormatCodes: formats,
			Parameters:           values,
		}); err != nil {
			s.state = StateReady
			return nil, err
		}
		if err := s.fe.Send(&wireproto.Execute{Portal: name}); err != nil {
			s.state = StateReady
			return nil, err
		}
	}

	if err := s.fe.Send(&wireproto.Sync{}); err != nil {
		s.state = StateReady
		return nil, err
	}
	if err := s.fe.Flush(); err != nil {
		s.state = StateReady
		return nil, err
	}

	return &BatchResults{s: s, pending: len(b.items)}, nil
}

// Exec reads the next queued item's result, discarding any rows it
// produced.
func (r *BatchResults) Exec() (Result, error) {
	rs, err := r.next()
	if err != nil {
		return Result{}, err
	}
	return rs.Result, nil
}

// Query reads the next queued item's result, including its rows.
func (r *BatchResults) Query() (*ResultSet, error) {
	return r.next()
}

// next drains frames for one queued item: acknowledgements, an optional
// RowDescription, DataRows, and the CommandComplete that ends it. An
// ErrorResponse aborts the rest of the batch up through the trailing
// ReadyForQuery the same way session.drainExecution does, so a failed
// item's error is also returned for every item queued after it.
func (r *BatchResults) next() (*ResultSet, error) {
	if r.err != nil {
		return nil, r.err
	}
	if r.pending == 0 {
		return nil, fmt.Errorf("pgwire: no more batch results")
	}
	r.pending--

	rs := &ResultSet{}
	var pending *ServerError

	for {
		msg, err := r.s.fe.Receive()
		if err != nil {
			r.s.state = StateClosed
			r.err = translateReceiveError(err)
			return nil, r.err
		}

		switch m := msg.(type) {
		case *wireproto.ParseComplete, *wireproto.BindComplete, *wireproto.NoData:
		case *wireproto.RowDescription:
			rs.Fields = m.Fields
		case *wireproto.DataRow:
			if pending != nil {
				continue
			}
			row, decErr := r.s.decodeRow(wireproto.RowDescription{Fields: rs.Fields}, m)
			if decErr != nil {
				pending = &ServerError{Message: decErr.Error()}
				continue
			}
			rs.Rows = append(rs.Rows, row)
		case *wireproto.CommandComplete:
			rs.Result.CommandTag = m.CommandTag
			rs.Result.RowsAffected = parseRowsAffected(m.CommandTag)
			if pending != nil {
				r.err = pending
				return nil, pending
			}
			return rs, nil
		case *wireproto.EmptyQueryResponse:
		case *wireproto.ErrorResponse:
			pending = &ServerError{
				Severity: m.Severity(), Code: m.Code(), Message: m.Message(),
				Detail: m.Fields[wireproto.FieldDetail], Hint: m.Fields[wireproto.FieldHint],
				Fields: m.Fields,
			}
		case *wireproto.NoticeResponse:
			r.s.dispatchNotice(m)
		case *wireproto.NotificationResponse:
			r.s.dispatchNotification(m)
		case *wireproto.ReadyForQuery:
			r.s.txStatus = m.TxStatus
			r.s.tx.noteReadyForQuery(m.TxStatus)
			r.s.state = StateReady
			r.pending = 0
			if pending != nil {
				r.err = pending
				return nil, pending
			}
			return rs, nil
		default:
			r.err = &ProtocolError{Msg: fmt.Sprintf("unexpected message %T during batch", msg)}
			return nil, r.err
		}
	}
}

// Close drains any results the caller never read, so the session's next
// operation doesn't trip over leftover frames from this batch.
func (r *BatchResults) Close() error {
	for r.pending > 0 && r.err == nil {
		if _, err := r.next(); err != nil {
			break
		}
	}
	// Every item read so far may have ended at its CommandComplete; the
	// batch's trailing ReadyForQuery is then still on the wire.
	for r.s.state == StateBusy {
		msg, err := r.s.fe.Receive()
		if err != nil {
			r.s.state = StateClosed
			if r.err == nil {
				r.err = translateReceiveError(err)
			}
			break
		}
		if m, ok := msg.(*wireproto.ReadyForQuery); ok {
			r.s.txStatus = m.TxStatus
			r.s.tx.noteReadyForQuery(m.TxStatus)
			r.s.state = StateReady
		}
	}
	return r.err
}
