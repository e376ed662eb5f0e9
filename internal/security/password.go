package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters. Embedded in every hash string, so they can be
// tuned later without invalidating existing hashes.
const (
	defaultMemory  uint32 = 64 * 1024 // KiB
	defaultTime    uint32 = 3
	defaultThreads uint8  = 2
	defaultKeyLen  uint32 = 32
	defaultSaltLen uint32 = 16
)

// PasswordHasher hashes and verifies passwords using Argon2id
type PasswordHasher struct {
	memory  uint32
	time    uint32
	threads uint8
	keyLen  uint32
	saltLen uint32
}

// NewPasswordHasher creates a hasher with the default Argon2id parameters
func NewPasswordHasher() *PasswordHasher {
	return &PasswordHasher{
		memory:  defaultMemory,
		time:    defaultTime,
		threads: defaultThreads,
		keyLen:  defaultKeyLen,
		saltLen: defaultSaltLen,
	}
}

// Hash derives a key from the password with a fresh random salt and
// returns it in PHC string format:
//
//	$argon2id$v=19$m=65536,t=3,p=2$<salt_b64>$<hash_b64>
func (h *PasswordHasher) Hash(password string) (string, error) {
	salt := make([]byte, h.saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, h.time, h.memory, h.threads, h.keyLen)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.memory,
		h.time,
		h.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)

	return encoded, nil
}

// Verify recomputes the hash using the parameters embedded in encoded
// and compares in constant time. Returns false for malformed input.
func (h *PasswordHasher) Verify(password, encoded string) bool {
	memory, time, threads, salt, key, ok := decodeHash(encoded)
	if !ok {
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, time, memory, threads, uint32(len(key)))

	return subtle.ConstantTimeCompare(computed, key) == 1
}

func decodeHash(encoded string) (memory, time uint32, threads uint8, salt, key []byte, ok bool) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return 0, 0, 0, nil, nil, false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return 0, 0, 0, nil, nil, false
	}

	var p uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &p); err != nil {
		return 0, 0, 0, nil, nil, false
	}
	if memory == 0 || time == 0 || p == 0 {
		return 0, 0, 0, nil, nil, false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return 0, 0, 0, nil, nil, false
	}

	key, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return 0, 0, 0, nil, nil, false
	}

	return memory, time, p, salt, key, true
}
