package pgwire

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/coredrift/pgwire/pgwirelog"
	"github.com/coredrift/pgwire/sqltypes"
	"github.com/coredrift/pgwire/wireproto"
)

// State is a Session's position in its Connecting -> Authenticating ->
// Ready -> Busy -> ... -> Closed lifecycle.
type State int

const (
	StateConnecting State = iota
	StateAuthenticating
	StateReady
	StateBusy
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateReady:
		return "ready"
	case StateBusy:
		return "busy"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Notification is a NOTIFY payload delivered to a subscribed Session.
type Notification struct {
	PID     uint32
	Channel string
	Payload string
}

// Notice is an advisory NoticeResponse, e.g. from PL/pgSQL RAISE NOTICE.
type Notice struct {
	Fields map[byte]string
}

func (n *Notice) Severity() string { return n.Fields[wireproto.FieldSeverity] }
func (n *Notice) Message() string  { return n.Fields[wireproto.FieldMessage] }

// Result carries the outcome of a statement that produced no rows the
// caller asked for, or the trailing summary of one that did.
type Result struct {
	CommandTag   []byte
	RowsAffected int64
}

// ResultSet is the outcome of Session.Query: the row description the
// server described the statement with, and every decoded row.
type ResultSet struct {
	Fields []wireproto.FieldDescription
	Rows   [][]any
	Result Result
}

// Session owns one transport, one Frontend, a prepared-statement cache, and
// the transaction context spec §3 describes. It is not safe for concurrent
// use: spec §5 makes the state machine single-threaded per session.
type Session struct {
	cfg       *Config
	transport Transport
	fe        *wireproto.Frontend
	registry  *sqltypes.Registry
	logger    pgwirelog.Logger

	state State

	backendPID       uint32
	backendSecretKey uint32
	paramStatus      map[string]string
	serverVersion    *semver.Version

	stmts     *statementCache
	portalSeq uint64

	txStatus byte
	tx       *txCoordinator

	notificationSubscribers []chan<- *Notification
	noticeSubscribers       []chan<- *Notice
}

// Connect opens a Session against cfg: dials the transport, negotiates TLS
// if requested, and drives the startup handshake through to the first
// ReadyForQuery.
func Connect(ctx context.Context, cfg *Config) (*Session, error) {
	network, address := NetworkAddress(cfg.Host, cfg.Port)

	dialCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	transport, err := DialTransport(dialCtx, cfg.DialFunc, network, address)
	if err != nil {
		return nil, &ConnectionLostError{Err: err}
	}

	registry := cfg.TypeRegistry
	if registry == nil {
		registry = defaultRegistry
	}

	s := &Session{
		cfg:       cfg,
		transport: transport,
		registry:  registry,
		logger:    sessionLogger(cfg),
		state:     StateConnecting,
		stmts:     newStatementCache(32),
	}
	s.tx = newTxCoordinator(s)

	if cfg.SSLMode != SSLDisable {
		if err := s.negotiateTLS(); err != nil {
			transport.Close()
			return nil, err
		}
	}

	s.fe = wireproto.NewFrontend(s.transport, s.transport)
	s.fe.OnSend(func(msg wireproto.FrontendMessage) {
		s.log(ctx, pgwirelog.LogLevelTrace, "frame_sent", map[string]any{"type": fmt.Sprintf("%T", msg)})
	})
	s.fe.OnReceive(func(msg wireproto.BackendMessage) {
		s.log(ctx, pgwirelog.LogLevelTrace, "frame_received", map[string]any{"type": fmt.Sprintf("%T", msg)})
	})

	if err := s.startup(ctx); err != nil {
		transport.Close()
		return nil, err
	}

	return s, nil
}

func sessionLogger(cfg *Config) pgwirelog.Logger {
	if cfg.Logger != nil {
		return cfg.Logger
	}
	return pgwirelog.LoggerFunc(func(context.Context, pgwirelog.LogLevel, string, map[string]any) {})
}

func (s *Session) log(ctx context.Context, level pgwirelog.LogLevel, msg string, data map[string]any) {
	if s.logger != nil {
		s.logger.Log(ctx, level, msg, data)
	}
}

func (s *Session) negotiateTLS() error {
	msg, err := (&wireproto.SSLRequest{}).Encode(nil)
	if err != nil {
		return err
	}
	if _, err := s.transport.Write(msg); err != nil {
		return &ConnectionLostError{Err: err}
	}

	resp := make([]byte, 1)
	if _, err := io.ReadFull(s.transport, resp); err != nil {
		return &ConnectionLostError{Err: err}
	}

	switch resp[0] {
	case 'S':
		if err := s.transport.StartTLS(s.cfg.TLSConfig); err != nil {
			return &ConnectionLostError{Err: err}
		}
		return nil
	case 'N':
		return &AuthError{Reason: "server refused TLS negotiation"}
	default:
		return &ProtocolError{Msg: "unexpected byte in response to SSLRequest"}
	}
}

func (s *Session) startup(ctx context.Context) error {
	s.state = StateAuthenticating

	params := map[string]string{
		"user":     s.cfg.User,
		"database": s.cfg.Database,
	}
	if s.cfg.ApplicationName != "" {
		params["application_name"] = s.cfg.ApplicationName
	}
	if s.cfg.ClientEncoding != "" {
		params["client_encoding"] = s.cfg.ClientEncoding
	}
	if v := s.cfg.ReplicationMode.startupValue(); v != "" {
		params["replication"] = v
	}
	for k, v := range s.cfg.RuntimeParams {
		params[k] = v
	}

	if err := s.fe.Send(&wireproto.StartupMessage{
		ProtocolVersion: wireproto.ProtocolVersionNumber,
		Parameters:      params,
	}); err != nil {
		return err
	}
	if err := s.fe.Flush(); err != nil {
		return err
	}

	s.paramStatus = make(map[string]string)

	for {
		msg, err := s.fe.Receive()
		if err != nil {
			return translateReceiveError(err)
		}

		switch m := msg.(type) {
		case wireproto.AuthenticationResponse:
			done, err := s.handleAuthentication(m)
			if err != nil {
				return err
			}
			if done {
				continue
			}
		case *wireproto.ParameterStatus:
			s.paramStatus[m.Name] = m.Value
			if m.Name == "server_version" {
				s.serverVersion = parseServerVersion(m.Value)
			}
		case *wireproto.BackendKeyData:
			s.backendPID, s.backendSecretKey = m.ProcessID, m.SecretKey
		case *wireproto.ReadyForQuery:
			s.txStatus = m.TxStatus
			s.state = StateReady
			return nil
		case *wireproto.ErrorResponse:
			return &ServerError{
				Severity: m.Severity(), Code: m.Code(), Message: m.Message(),
				Detail: m.Fields[wireproto.FieldDetail], Hint: m.Fields[wireproto.FieldHint],
				Fields: m.Fields,
			}
		case *wireproto.NoticeResponse:
			s.dispatchNotice(m)
		default:
			return &ProtocolError{Msg: fmt.Sprintf("unexpected message %T during startup", msg)}
		}
	}
}

// handleAuthentication reacts to one AuthenticationRequest sub-kind. For
// SASL it drives the whole scram.Client exchange itself before returning,
// since every leg after the first arrives as its own backend message that
// only this function is positioned to read.
func (s *Session) handleAuthentication(m wireproto.AuthenticationResponse) (done bool, err error) {
	switch am := m.(type) {
	case *wireproto.AuthenticationOk:
		return true, nil
	case *wireproto.AuthenticationCleartextPassword:
		if err := s.fe.Send(&wireproto.PasswordMessage{Password: s.cfg.Password}); err != nil {
			return false, err
		}
		return true, s.fe.Flush()
	case *wireproto.AuthenticationMD5Password:
		if err := s.fe.Send(&wireproto.PasswordMessage{Password: md5Password(s.cfg.User, s.cfg.Password, am.Salt)}); err != nil {
			return false, err
		}
		return true, s.fe.Flush()
	case *wireproto.AuthenticationSASL:
		return true, s.runSASL(am)
	default:
		return false, &AuthError{Reason: fmt.Sprintf("unsupported authentication method %T", m)}
	}
}

func (s *Session) runSASL(offer *wireproto.AuthenticationSASL) error {
	mechanismOffered := false
	for _, m := range offer.AuthMechanisms {
		if m == scramMechanism {
			mechanismOffered = true
		}
	}
	if !mechanismOffered {
		return &AuthError{Reason: "server did not offer SCRAM-SHA-256"}
	}

	client := newSCRAMClient(s.cfg.User, s.cfg.Password)

	first, err := client.ClientFirstMessage()
	if err != nil {
		return &AuthError{Reason: "generating client-first-message", Err: err}
	}
	if err := s.fe.Send(&wireproto.SASLInitialResponse{AuthMechanism: scramMechanism, Data: first}); err != nil {
		return err
	}
	if err := s.fe.Flush(); err != nil {
		return err
	}

	msg, err := s.fe.Receive()
	if err != nil {
		return translateReceiveError(err)
	}
	cont, ok := msg.(*wireproto.AuthenticationSASLContinue)
	if !ok {
		return &AuthError{Reason: fmt.Sprintf("expected AuthenticationSASLContinue, got %T", msg)}
	}
	if err := client.RecvServerFirstMessage(cont.Data); err != nil {
		return &AuthError{Reason: "server-first-message", Err: err}
	}

	final, err := client.ClientFinalMessage()
	if err != nil {
		return &AuthError{Reason: "generating client-final-message", Err: err}
	}
	if err := s.fe.Send(&wireproto.SASLResponse{Data: final}); err != nil {
		return err
	}
	if err := s.fe.Flush(); err != nil {
		return err
	}

	msg, err = s.fe.Receive()
	if err != nil {
		return translateReceiveError(err)
	}
	sf, ok := msg.(*wireproto.AuthenticationSASLFinal)
	if !ok {
		return &AuthError{Reason: fmt.Sprintf("expected AuthenticationSASLFinal, got %T", msg)}
	}
	if err := client.RecvServerFinalMessage(sf.Data); err != nil {
		return &AuthError{Reason: "server-final-message", Err: err}
	}

	msg, err = s.fe.Receive()
	if err != nil {
		return translateReceiveError(err)
	}
	if _, ok := msg.(*wireproto.AuthenticationOk); !ok {
		return &AuthError{Reason: fmt.Sprintf("expected AuthenticationOk after SCRAM, got %T", msg)}
	}
	return nil
}

// Close politely ends the session: Terminate then drop the transport.
func (s *Session) Close() error {
	if s.state == StateClosed {
		return nil
	}
	s.stmts.clear()
	_ = s.fe.Send(&wireproto.Terminate{})
	_ = s.fe.Flush()
	s.state = StateClosed
	return s.transport.Close()
}

// State returns the Session's current lifecycle state.
func (s *Session) State() State { return s.state }

// TxStatus returns the transaction-status byte from the most recent
// ReadyForQuery: 'I' idle, 'T' in-transaction, 'E' failed-transaction.
func (s *Session) TxStatus() byte { return s.txStatus }

// RunTx runs fn inside a transaction, opening it with opts (ignored for
// nested calls, which open a savepoint instead) and committing or rolling
// back per spec §4.6's abort-distance-preserving rules.
func (s *Session) RunTx(ctx context.Context, opts *TxOptions, fn func(ctx context.Context) error) error {
	return s.tx.run(ctx, opts, fn)
}

// TxDepth returns the current transaction nesting depth; 0 means idle.
func (s *Session) TxDepth() int { return s.tx.Depth() }

// BackendPID and BackendSecretKey identify this session's backend process
// for a CancelRequest sent over a second transport.
func (s *Session) BackendPID() uint32       { return s.backendPID }
func (s *Session) BackendSecretKey() uint32 { return s.backendSecretKey }

// ServerVersion returns the backend's reported server_version, parsed
// loosely as semver, or nil if the value never arrived or doesn't parse
// (real server_version strings aren't always strict semver, e.g. "9.6.24"
// or "15beta1").
func (s *Session) ServerVersion() *semver.Version { return s.serverVersion }

// parseServerVersion coerces a PostgreSQL server_version string like
// "15.2 (Debian 15.2-1)" or "9.6.24" into a semver.Version, padding
// missing minor/patch components.
func parseServerVersion(raw string) *semver.Version {
	field := strings.Fields(raw)
	if len(field) == 0 {
		return nil
	}
	v, err := semver.NewVersion(field[0])
	if err != nil {
		return nil
	}
	return v
}

// SubscribeNotifications registers ch to receive NotificationResponse
// deliveries. Sends are non-blocking: a full channel drops the
// notification rather than stalling the session's read loop.
func (s *Session) SubscribeNotifications(ch chan<- *Notification) {
	s.notificationSubscribers = append(s.notificationSubscribers, ch)
}

// SubscribeNotices registers ch to receive NoticeResponse deliveries, with
// the same drop-on-overflow behavior as SubscribeNotifications.
func (s *Session) SubscribeNotices(ch chan<- *Notice) {
	s.noticeSubscribers = append(s.noticeSubscribers, ch)
}

func (s *Session) dispatchNotification(m *wireproto.NotificationResponse) {
	n := &Notification{PID: m.PID, Channel: m.Channel, Payload: m.Payload}
	for _, ch := range s.notificationSubscribers {
		select {
		case ch <- n:
		default:
		}
	}
}

func (s *Session) dispatchNotice(m *wireproto.NoticeResponse) {
	n := &Notice{Fields: m.Fields}
	s.log(context.Background(), pgwirelog.LogLevelInfo, "notice", map[string]any{"severity": n.Severity(), "message": n.Message()})
	for _, ch := range s.noticeSubscribers {
		select {
		case ch <- n:
		default:
		}
	}
}

// Exec runs sql to completion via the extended-query protocol, discarding
// any result rows and returning only the command tag / affected-row count.
func (s *Session) Exec(ctx context.Context, sql string, params ...any) (Result, error) {
	rs, err := s.query(ctx, sql, params, 0)
	if err != nil {
		return Result{}, err
	}
	return rs.Result, nil
}

// Query runs sql to completion via the extended-query protocol and decodes
// every result row through the type registry.
func (s *Session) Query(ctx context.Context, sql string, params ...any) (*ResultSet, error) {
	return s.query(ctx, sql, params, 0)
}

// query implements spec §4.5's central algorithm: prepare-or-reuse, Bind,
// then Execute/Sync in a loop that transparently continues a suspended
// portal until the server reports no more rows.
func (s *Session) query(ctx context.Context, sql string, params []any, fetchSize uint32) (*ResultSet, error) {
	if s.state != StateReady {
		return nil, fmt.Errorf("pgwire: session not ready (state=%s)", s.state)
	}
	if s.tx.depth > 0 && s.tx.aborted {
		return nil, &TransactionAbortedError{}
	}
	s.state = StateBusy
	defer func() {
		if s.state == StateBusy {
			s.state = StateReady
		}
	}()

	timeout := s.cfg.QueryTimeout
	var cancelTimer *time.Timer
	if timeout > 0 {
		cancelTimer = time.AfterFunc(timeout, func() { s.sendCancelRequest() })
		defer cancelTimer.Stop()
	}

	stmt, err := s.prepare(ctx, sql)
	if err != nil {
		return nil, err
	}

	portal := fmt.Sprintf("pgwire_portal_%d", s.portalSeq)
	s.portalSeq++

	paramFormats, paramValues, err := s.encodeParams(stmt, params)
	if err != nil {
		return nil, err
	}
	resultFormats := s.resultFormats(stmt.rowDesc)
	// Rows arrive in the formats requested by Bind, not the text formats the
	// statement Describe reported, so decode them with these.
	rowDesc := stmt.rowDesc
	rowDesc.Fields = append([]wireproto.FieldDescription(nil), stmt.rowDesc.Fields...)
	for i := range rowDesc.Fields {
		rowDesc.Fields[i].Format = resultFormats[i]
	}

	if err := s.fe.Send(&wireproto.Bind{
		DestinationPortal:    portal,
		PreparedStatement:    stmt.name,
		ParameterFormatCodes: paramFormats,
		Parameters:           paramValues,
		ResultFormatCodes:    resultFormats,
	}); err != nil {
		return nil, err
	}

	rs := &ResultSet{Fields: stmt.rowDesc.Fields}

	for {
		if err := s.fe.Send(&wireproto.Execute{Portal: portal, MaxRows: fetchSize}); err != nil {
			return nil, err
		}
		if err := s.fe.Send(&wireproto.Sync{}); err != nil {
			return nil, err
		}
		if err := s.fe.Flush(); err != nil {
			return nil, err
		}

		suspended, err := s.drainExecution(ctx, rs, rowDesc)
		if err != nil {
			return nil, err
		}
		if !suspended || fetchSize == 0 {
			break
		}
	}

	return rs, nil
}

// drainExecution reads backend frames from a single Bind+Execute+Sync round
// trip, absorbing acknowledgements, decoding DataRows, and stopping at
// ReadyForQuery. It reports whether the portal was left suspended.
func (s *Session) drainExecution(ctx context.Context, rs *ResultSet, rowDesc wireproto.RowDescription) (suspended bool, err error) {
	var pending *ServerError

	for {
		msg, err := s.fe.Receive()
		if err != nil {
			s.state = StateClosed
			return false, translateReceiveError(err)
		}

		switch m := msg.(type) {
		case *wireproto.BindComplete, *wireproto.ParseComplete, *wireproto.NoData:
			// state transitions only; nothing to record
		case *wireproto.RowDescription:
			rs.Fields = m.Fields
		case *wireproto.DataRow:
			if pending != nil {
				continue
			}
			row, decErr := s.decodeRow(rowDesc, m)
			if decErr != nil {
				pending = &ServerError{Message: decErr.Error()}
				continue
			}
			rs.Rows = append(rs.Rows, row)
		case *wireproto.CommandComplete:
			rs.Result.CommandTag = m.CommandTag
			rs.Result.RowsAffected = parseRowsAffected(m.CommandTag)
		case *wireproto.PortalSuspended:
			suspended = true
		case *wireproto.EmptyQueryResponse:
			// no-op: an empty statement produced no tag and no rows
		case *wireproto.ErrorResponse:
			pending = &ServerError{
				Severity: m.Severity(), Code: m.Code(), Message: m.Message(),
				Detail: m.Fields[wireproto.FieldDetail], Hint: m.Fields[wireproto.FieldHint],
				Fields: m.Fields,
			}
			s.log(ctx, pgwirelog.LogLevelError, "error_response", map[string]any{"code": pending.Code, "message": pending.Message})
		case *wireproto.NoticeResponse:
			s.dispatchNotice(m)
		case *wireproto.NotificationResponse:
			s.dispatchNotification(m)
		case *wireproto.ReadyForQuery:
			s.txStatus = m.TxStatus
			s.tx.noteReadyForQuery(m.TxStatus)
			s.log(ctx, pgwirelog.LogLevelInfo, "ready_for_query", map[string]any{"tx_status": string(m.TxStatus)})
			if pending != nil {
				return false, pending
			}
			return suspended, nil
		default:
			return false, &ProtocolError{Msg: fmt.Sprintf("unexpected message %T during execution", msg)}
		}
	}
}

// prepare looks up sql in the statement cache, or Parses+Describes it fresh
// on a miss, evicting the least-recently-used entry (and Closing it
// server-side) if the cache is full.
func (s *Session) prepare(ctx context.Context, sql string) (*preparedStatement, error) {
	if stmt, ok := s.stmts.get(sql); ok {
		return stmt, nil
	}

	name := s.stmts.nextName()
	if err := s.fe.Send(&wireproto.Parse{Name: name, Query: sql}); err != nil {
		return nil, err
	}
	if err := s.fe.Send(&wireproto.Describe{ObjectType: 'S', Name: name}); err != nil {
		return nil, err
	}
	if err := s.fe.Send(&wireproto.Sync{}); err != nil {
		return nil, err
	}
	if err := s.fe.Flush(); err != nil {
		return nil, err
	}

	stmt := &preparedStatement{name: name, sql: sql}
	var pending *ServerError

	for {
		msg, err := s.fe.Receive()
		if err != nil {
			s.state = StateClosed
			return nil, translateReceiveError(err)
		}

		switch m := msg.(type) {
		case *wireproto.ParseComplete:
		case *wireproto.ParameterDescription:
			stmt.parameterOIDs = m.ParameterOIDs
		case *wireproto.RowDescription:
			stmt.rowDesc = *m
		case *wireproto.NoData:
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
				return nil, pending
			}
			if evicted := s.stmts.put(stmt); evicted != "" {
				s.closeStatement(ctx, evicted)
			}
			return stmt, nil
		default:
			return nil, &ProtocolError{Msg: fmt.Sprintf("unexpected message %T during prepare", msg)}
		}
	}
}

// closeStatement deallocates a named statement evicted from the cache. It
// does not wait for confirmation beyond the batch's own ReadyForQuery,
// since a failure here does not affect the caller's in-flight statement.
func (s *Session) closeStatement(ctx context.Context, name string) {
	_ = s.fe.Send(&wireproto.Close{ObjectType: 'S', Name: name})
	_ = s.fe.Send(&wireproto.Sync{})
	if err := s.fe.Flush(); err != nil {
		return
	}
	for {
		msg, err := s.fe.Receive()
		if err != nil {
			return
		}
		if _, ok := msg.(*wireproto.ReadyForQuery); ok {
			return
		}
	}
}

// binaryCapableOIDs lists the OIDs this module's registry can both encode
// and decode in binary format, as opposed to the RawTextCodec used for
// text/varchar/bpchar/name/unknown and as the unregistered fallback. Spec
// §4.5 step 2 picks binary "where the row-description OID is registered";
// we read that as "registered to something better than raw text".
var binaryCapableOIDs = map[sqltypes.OID]bool{
	sqltypes.BoolOID: true, sqltypes.Int2OID: true, sqltypes.Int4OID: true, sqltypes.Int8OID: true,
	sqltypes.Float4OID: true, sqltypes.Float8OID: true, sqltypes.NumericOID: true,
	sqltypes.ByteaOID: true, sqltypes.UUIDOID: true, sqltypes.JSONBOID: true,
	sqltypes.DateOID: true, sqltypes.TimeOID: true, sqltypes.TimestampOID: true,
	sqltypes.TimestamptzOID: true, sqltypes.IntervalOID: true, sqltypes.PointOID: true,
	sqltypes.BoolArrayOID: true, sqltypes.Int2ArrayOID: true, sqltypes.Int4ArrayOID: true,
	sqltypes.Int8ArrayOID: true, sqltypes.Float4ArrayOID: true, sqltypes.Float8ArrayOID: true,
	sqltypes.ByteaArrayOID: true, sqltypes.UUIDArrayOID: true, sqltypes.DateArrayOID: true,
	sqltypes.TimestampArrayOID: true, sqltypes.TimestamptzArrayOID: true, sqltypes.NumericArrayOID: true,
	sqltypes.TextArrayOID: true, sqltypes.VarcharArrayOID: true, sqltypes.JSONOID: true,
	sqltypes.LineOID: true, sqltypes.LineSegmentOID: true, sqltypes.PathOID: true,
	sqltypes.BoxOID: true, sqltypes.PolygonOID: true, sqltypes.CircleOID: true,
}

func (s *Session) resultFormats(rowDesc wireproto.RowDescription) []int16 {
	formats := make([]int16, len(rowDesc.Fields))
	for i, f := range rowDesc.Fields {
		if binaryCapableOIDs[sqltypes.OID(f.DataTypeOID)] {
			formats[i] = wireproto.BinaryFormat
		} else {
			formats[i] = wireproto.TextFormat
		}
	}
	return formats
}

// encodeParams renders params for Bind, choosing binary format for any
// parameter whose position has a server-inferred OID this registry can
// encode in binary, text otherwise.
func (s *Session) encodeParams(stmt *preparedStatement, params []any) (formats []int16, values [][]byte, err error) {
	formats = make([]int16, len(params))
	values = make([][]byte, len(params))

	for i, p := range params {
		if p == nil {
			values[i] = nil
			continue
		}

		var oid sqltypes.OID
		if i < len(stmt.parameterOIDs) {
			oid = sqltypes.OID(stmt.parameterOIDs[i])
		}

		if binaryCapableOIDs[oid] {
			encoded, encErr := s.registry.EncodeValue(nil, oid, wireproto.BinaryFormat, p)
			if encErr == nil {
				formats[i] = wireproto.BinaryFormat
				values[i] = encoded
				continue
			}
		}

		formats[i] = wireproto.TextFormat
		values[i] = []byte(fmt.Sprint(p))
	}

	return formats, values, nil
}

func (s *Session) decodeRow(rowDesc wireproto.RowDescription, row *wireproto.DataRow) ([]any, error) {
	values := make([]any, len(row.Values))
	for i, raw := range row.Values {
		if i >= len(rowDesc.Fields) {
			return nil, &ProtocolError{Msg: "DataRow has more columns than RowDescription"}
		}
		f := rowDesc.Fields[i]
		v, err := s.registry.DecodeValue(sqltypes.OID(f.DataTypeOID), f.Format, raw)
		if err != nil {
			return nil, fmt.Errorf("pgwire: decoding column %q: %w", f.Name, err)
		}
		values[i] = v
	}
	return values, nil
}

func parseRowsAffected(tag []byte) int64 {
	fields := splitCommandTag(tag)
	if len(fields) == 0 {
		return 0
	}
	last := fields[len(fields)-1]
	n, err := strconv.ParseInt(last, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func splitCommandTag(tag []byte) []string {
	var fields []string
	start := -1
	for i, b := range tag {
		if b == ' ' {
			if start >= 0 {
				fields = append(fields, string(tag[start:i]))
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		fields = append(fields, string(tag[start:]))
	}
	return fields
}

// sendCancelRequest implements spec §4.5's query-timeout mechanism: a
// second, short-lived transport carrying the stored (pid, secret key). It
// does not read a response; the backend closes that connection unprompted.
func (s *Session) sendCancelRequest() {
	if s.backendPID == 0 {
		return
	}
	network, address := NetworkAddress(s.cfg.Host, s.cfg.Port)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	transport, err := DialTransport(ctx, s.cfg.DialFunc, network, address)
	if err != nil {
		return
	}
	defer transport.Close()

	msg, err := (&wireproto.CancelRequest{ProcessID: s.backendPID, SecretKey: s.backendSecretKey}).Encode(nil)
	if err != nil {
		return
	}
	_, _ = transport.Write(msg)
}

func translateReceiveError(err error) error {
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		return &ConnectionLostError{Err: err}
	}
	if _, ok := err.(*wireproto.ProtocolError); ok {
		return err
	}
	return &ConnectionLostError{Err: err}
}
