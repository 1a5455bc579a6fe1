// Package scram implements the client side of a SCRAM-SHA-256 SASL
// exchange (RFC 5802, RFC 7677), as PostgreSQL carries it nested inside
// AuthenticationSASL/AuthenticationSASLContinue/AuthenticationSASLFinal
// messages. It has no channel-binding support: the GS2 header is always the
// fixed "n,," (no binding), matching the server's own behavior of never
// advertising SCRAM-SHA-256-PLUS to a non-TLS-bound client.
package scram

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/text/secure/precis"
)

// Mechanism is the SASL mechanism name this package negotiates.
const Mechanism = "SCRAM-SHA-256"

// step names the three stages of the exchange, used only for error
// messages and to guard against calling methods out of order.
type step int

const (
	stepInitial step = iota
	stepServerFirstReceived
	stepDone
)

// Client drives one SCRAM-SHA-256 exchange. It is not safe for concurrent
// use and is good for exactly one authentication attempt.
type Client struct {
	username string
	password string

	nonceFn func() (string, error)

	step step

	clientNonce string
	clientFirstBare string

	serverNonce string
	salt        []byte
	iterations  int

	saltedPassword []byte
	authMessage    string
}

// NewClient creates a Client for username/password. nonceFn generates the
// client nonce; pass nil in production to use a crypto/rand-backed
// generator, or a fixed function in tests to reproduce a known exchange.
func NewClient(username, password string, nonceFn func() (string, error)) *Client {
	if nonceFn == nil {
		nonceFn = randomNonce
	}
	return &Client{username: username, password: password, nonceFn: nonceFn}
}

// ClientFirstMessage returns the SASLInitialResponse payload: the GS2
// header followed by the bare client-first-message.
func (c *Client) ClientFirstMessage() ([]byte, error) {
	if c.step != stepInitial {
		return nil, fmt.Errorf("scram: ClientFirstMessage called out of order")
	}

	nonce, err := c.nonceFn()
	if err != nil {
		return nil, fmt.Errorf("scram: generating client nonce: %w", err)
	}
	c.clientNonce = nonce
	c.clientFirstBare = "n=" + saslName(c.username) + ",r=" + c.clientNonce

	return []byte(gs2Header + c.clientFirstBare), nil
}

const gs2Header = "n,,"

// RecvServerFirstMessage parses the server-first-message carried in a
// SASLContinue, checks the server nonce, derives the salted password, and
// records the AuthMessage. It returns only an error; the proof-bearing
// message to send comes from ClientFinalMessage.
func (c *Client) RecvServerFirstMessage(data []byte) error {
	if c.step != stepInitial {
		return fmt.Errorf("scram: RecvServerFirstMessage called out of order")
	}

	msg := string(data)
	fields, err := parseFields(msg)
	if err != nil {
		return fmt.Errorf("scram: parsing server-first-message: %w", err)
	}

	snonce, ok := fields["r"]
	if !ok {
		return fmt.Errorf("scram: server-first-message missing nonce")
	}
	if !strings.HasPrefix(snonce, c.clientNonce) {
		return fmt.Errorf("scram: server nonce does not extend client nonce")
	}
	c.serverNonce = snonce

	saltB64, ok := fields["s"]
	if !ok {
		return fmt.Errorf("scram: server-first-message missing salt")
	}
	salt, err := base64.StdEncoding.DecodeString(saltB64)
	if err != nil {
		return fmt.Errorf("scram: decoding salt: %w", err)
	}
	c.salt = salt

	iterStr, ok := fields["i"]
	if !ok {
		return fmt.Errorf("scram: server-first-message missing iteration count")
	}
	iterations, err := strconv.Atoi(iterStr)
	if err != nil || iterations < 1 {
		return fmt.Errorf("scram: invalid iteration count %q", iterStr)
	}
	c.iterations = iterations

	c.saltedPassword = pbkdf2.Key([]byte(saslPrepPassword(c.password)), c.salt, c.iterations, sha256.Size, sha256.New)

	clientFinalWithoutProof := "c=" + base64.StdEncoding.EncodeToString([]byte(gs2Header)) + ",r=" + c.serverNonce
	c.authMessage = c.clientFirstBare + "," + msg + "," + clientFinalWithoutProof

	c.step = stepServerFirstReceived
	return nil
}

// ClientFinalMessage computes and returns the client-final-message (the
// SASLResponse payload), including the proof.
func (c *Client) ClientFinalMessage() ([]byte, error) {
	if c.step != stepServerFirstReceived {
		return nil, fmt.Errorf("scram: ClientFinalMessage called out of order")
	}

	clientKey := hmacSHA256(c.saltedPassword, []byte("Client Key"))
	storedKey := sha256.Sum256(clientKey)
	clientSignature := hmacSHA256(storedKey[:], []byte(c.authMessage))

	clientProof := make([]byte, len(clientKey))
	for i := range clientProof {
		clientProof[i] = clientKey[i] ^ clientSignature[i]
	}

	clientFinalWithoutProof := "c=" + base64.StdEncoding.EncodeToString([]byte(gs2Header)) + ",r=" + c.serverNonce
	msg := clientFinalWithoutProof + ",p=" + base64.StdEncoding.EncodeToString(clientProof)

	return []byte(msg), nil
}

// RecvServerFinalMessage parses the server-final-message carried in a
// SASLFinal, verifying the server signature against AuthMessage. An "e="
// field reports a server-side failure and is always an error regardless of
// signature verification.
func (c *Client) RecvServerFinalMessage(data []byte) error {
	if c.step != stepServerFirstReceived {
		return fmt.Errorf("scram: RecvServerFinalMessage called out of order")
	}

	msg := string(data)
	fields, err := parseFields(msg)
	if err != nil {
		return fmt.Errorf("scram: parsing server-final-message: %w", err)
	}

	if errMsg, ok := fields["e"]; ok {
		return fmt.Errorf("scram: server reported error: %s", errMsg)
	}

	sigB64, ok := fields["v"]
	if !ok {
		return fmt.Errorf("scram: server-final-message missing verifier")
	}
	gotSig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return fmt.Errorf("scram: decoding server signature: %w", err)
	}

	serverKey := hmacSHA256(c.saltedPassword, []byte("Server Key"))
	wantSig := hmacSHA256(serverKey, []byte(c.authMessage))

	if subtle.ConstantTimeCompare(gotSig, wantSig) != 1 {
		return fmt.Errorf("scram: server signature mismatch")
	}

	c.step = stepDone
	return nil
}

func hmacSHA256(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

// saslPrepPassword applies the SASLprep profile (RFC 4013, exposed by
// x/text as the precis OpaqueString profile) RFC 5802 §5.1 requires
// before salting a password. Per that same section, a password that
// fails to prep is used as-is rather than rejected.
func saslPrepPassword(password string) string {
	prepped, err := precis.OpaqueString.String(password)
	if err != nil {
		return password
	}
	return prepped
}

// saslName escapes a SASL "saslname" per RFC 5802 §5.1: "=" becomes "=3D"
// and "," becomes "=2C". Applied in that order so the "=" in a "=2C"
// produced by escaping "," is never re-escaped.
func saslName(s string) string {
	s = strings.ReplaceAll(s, "=", "=3D")
	s = strings.ReplaceAll(s, ",", "=2C")
	return s
}

// parseFields splits a comma-separated list of "key=value" attributes, the
// shape shared by every SCRAM message after the GS2 header.
func parseFields(msg string) (map[string]string, error) {
	fields := make(map[string]string)
	for _, part := range strings.Split(msg, ",") {
		eq := strings.IndexByte(part, '=')
		if eq < 0 {
			return nil, fmt.Errorf("malformed attribute %q", part)
		}
		fields[part[:eq]] = part[eq+1:]
	}
	return fields, nil
}
