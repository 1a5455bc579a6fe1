package pgwire

import (
	"crypto/md5"
	"encoding/hex"

	"github.com/coredrift/pgwire/scram"
)

const scramMechanism = scram.Mechanism

func newSCRAMClient(username, password string) *scram.Client {
	return scram.NewClient(username, password, nil)
}

// md5Password implements PostgreSQL's md5 password hashing: the string
// "md5" prepended to the hex md5 of (hex md5 of (password+username))+salt.
func md5Password(username, password string, salt [4]byte) string {
	first := md5Hex(password + username)
	return "md5" + md5Hex(first+string(salt[:]))
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
