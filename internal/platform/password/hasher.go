package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	saltSize  = 16
	keyLength = 32
)

var ErrInvalidHash = errors.New("invalid password hash")

type Params struct {
	Memory  uint32
	Time    uint32
	Threads uint8
}

var DefaultParams = Params{Memory: 64 * 1024, Time: 1, Threads: 4}

// Hasher produces and checks argon2id hashes in PHC string format.
type Hasher struct {
	params Params
	dummy  string
}

func NewHasher(params Params) *Hasher {
	if params.Memory == 0 || params.Time == 0 || params.Threads == 0 {
		params = DefaultParams
	}

	h := &Hasher{params: params}

	// Hash compared against when the account does not exist, so a miss costs
	// the same as a wrong password.
	dummy, err := h.Hash(base64.RawStdEncoding.EncodeToString(randomBytes(saltSize)))
	if err != nil {
		panic(err)
	}
	h.dummy = dummy

	return h
}

func randomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand unavailable: " + err.Error())
	}
	return b
}

func (h *Hasher) Hash(password string) (string, error) {
	salt := randomBytes(saltSize)

	hash := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.Memory, h.params.Threads, keyLength)

	saltBase64 := base64.RawStdEncoding.EncodeToString(salt)
	hashBase64 := base64.RawStdEncoding.EncodeToString(hash)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.params.Memory, h.params.Time, h.params.Threads, saltBase64, hashBase64), nil
}

// Verify reports whether password matches the encoded hash. A malformed hash
// never matches.
func (h *Hasher) Verify(password, encoded string) bool {
	p, salt, hash, err := decode(encoded)
	if err != nil {
		return false
	}

	derived := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, uint32(len(hash)))

	return subtle.ConstantTimeCompare(derived, hash) == 1
}

// VerifyDummy burns the same work as Verify against a throwaway hash and
// always reports false.
func (h *Hasher) VerifyDummy(password string) bool {
	h.Verify(password, h.dummy)
	return false
}

func decode(encoded string) (Params, []byte, []byte, error) {
	var p Params

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return p, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, ErrInvalidHash
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil {
		return p, nil, nil, ErrInvalidHash
	}
	if p.Memory == 0 || p.Time == 0 || p.Threads == 0 {
		return p, nil, nil, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return p, nil, nil, ErrInvalidHash
	}

	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(hash) == 0 {
		return p, nil, nil, ErrInvalidHash
	}

	return p, salt, hash, nil
}
