package pgwire

import (
	"context"
	"crypto/tls"
	"io"
	"net"
)

// Transport is the bidirectional byte stream a Session frames wire messages
// over. TCP/TLS negotiation itself is an external collaborator per spec §1;
// this interface is the seam a test can substitute a scripted mock at.
type Transport interface {
	io.Reader
	io.Writer
	io.Closer

	// StartTLS upgrades the connection in place, as required mid-handshake
	// after a server responds 'S' to an SSLRequest.
	StartTLS(cfg *tls.Config) error
}

// netTransport is the default Transport, backed by a net.Conn dialed with a
// Config's DialFunc.
type netTransport struct {
	net.Conn
}

// DialTransport opens a netTransport to network/address using dial, which
// is ordinarily a Config's DialFunc.
func DialTransport(ctx context.Context, dial DialFunc, network, address string) (Transport, error) {
	conn, err := dial(ctx, network, address)
	if err != nil {
		return nil, err
	}
	return &netTransport{Conn: conn}, nil
}

func (t *netTransport) StartTLS(cfg *tls.Config) error {
	tlsConn := tls.Client(t.Conn, cfg)
	if err := tlsConn.HandshakeContext(context.Background()); err != nil {
		return err
	}
	t.Conn = tlsConn
	return nil
}
