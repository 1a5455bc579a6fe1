package scram

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestFixedVector reproduces a complete exchange against fixed inputs, the
// same vector the extended-query and session tests assume authentication
// has already verified.
func TestFixedVector(t *testing.T) {
	const (
		username         = "user"
		password         = "pencil"
		cnonce           = "rOprNGfwEbeRWgbNEkqO"
		serverFirstNonce = "rOprNGfwEbeRWgbNEkqO%hvYDpWUa2RaTCAfuxFIlj)hNlF$k0"
		saltB64          = "W22ZaJ0SNY7soEsUEjb6gQ=="
		iterations       = "4096"

		wantClientProofB64 = "dHzbZapWIk4jUhN+Ute9ytag9zjfMHgsqmmiz7AndVQ="
		wantServerSigB64   = "6rriTRBi23WpRR/wtup+mMhUZUn/dB5nLTJRsjl95G4="
	)

	c := NewClient(username, password, func() (string, error) { return cnonce, nil })

	first, err := c.ClientFirstMessage()
	require.NoError(t, err)
	require.Equal(t, "n,,n=user,r="+cnonce, string(first))

	serverFirst := "r=" + serverFirstNonce + ",s=" + saltB64 + ",i=" + iterations
	require.NoError(t, c.RecvServerFirstMessage([]byte(serverFirst)))

	final, err := c.ClientFinalMessage()
	require.NoError(t, err)

	expectedChannelBinding := "c=" + base64.StdEncoding.EncodeToString([]byte("n,,"))
	require.Contains(t, string(final), expectedChannelBinding)
	require.Contains(t, string(final), "r="+serverFirstNonce)
	require.Contains(t, string(final), "p="+wantClientProofB64)

	serverFinal := "v=" + wantServerSigB64
	require.NoError(t, c.RecvServerFinalMessage([]byte(serverFinal)))
}

func TestRecvServerFinalMessageRejectsBadSignature(t *testing.T) {
	c := NewClient("user", "pencil", func() (string, error) { return "rOprNGfwEbeRWgbNEkqO", nil })
	_, err := c.ClientFirstMessage()
	require.NoError(t, err)
	require.NoError(t, c.RecvServerFirstMessage([]byte(
		"r=rOprNGfwEbeRWgbNEkqO%hvYDpWUa2RaTCAfuxFIlj)hNlF$k0,s=W22ZaJ0SNY7soEsUEjb6gQ==,i=4096")))
	_, err = c.ClientFinalMessage()
	require.NoError(t, err)

	err = c.RecvServerFinalMessage([]byte("v=AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="))
	require.Error(t, err)
}

func TestRecvServerFinalMessageErrorField(t *testing.T) {
	c := NewClient("user", "pencil", func() (string, error) { return "rOprNGfwEbeRWgbNEkqO", nil })
	_, err := c.ClientFirstMessage()
	require.NoError(t, err)
	require.NoError(t, c.RecvServerFirstMessage([]byte(
		"r=rOprNGfwEbeRWgbNEkqO%hvYDpWUa2RaTCAfuxFIlj)hNlF$k0,s=W22ZaJ0SNY7soEsUEjb6gQ==,i=4096")))
	_, err = c.ClientFinalMessage()
	require.NoError(t, err)

	err = c.RecvServerFinalMessage([]byte("e=invalid-proof"))
	require.Error(t, err)
}

func TestSASLNameEscaping(t *testing.T) {
	require.Equal(t, "=3D", saslName("="))
	require.Equal(t, "=2C", saslName(","))
	require.Equal(t, "a=3Db=2Cc", saslName("a=b,c"))
}

func TestSASLPrepPasswordFallsBackOnFailure(t *testing.T) {
	// A control character is disallowed by the OpaqueString profile;
	// RFC 5802 §5.1 says to use the original string rather than fail.
	bad := "pass\x07word"
	require.Equal(t, bad, saslPrepPassword(bad))
}

func TestServerNonceMustExtendClientNonce(t *testing.T) {
	c := NewClient("user", "pencil", func() (string, error) { return "clientnonce", nil })
	_, err := c.ClientFirstMessage()
	require.NoError(t, err)

	err = c.RecvServerFirstMessage([]byte("r=unrelatednonce,s=W22ZaJ0SNY7soEsUEjb6gQ==,i=4096"))
	require.Error(t, err)
}
