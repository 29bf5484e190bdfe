// Package extcrypto provides hashing functions for expressions. Digests are
// returned as lowercase hex strings.
//
// MD5 and SHA-1 are provided for fingerprinting only.
package extcrypto

import (
	"crypto/hmac"
	"crypto/md5" //nolint:gosec // fingerprinting only
	"crypto/rand"
	"crypto/sha1" //nolint:gosec // fingerprinting only
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"

	"github.com/caiosm1005/outsystems-formula-flee/pkg/ext/extutil"
)

// Namespace is the default namespace of the library.
const Namespace = "Crypto"

// Library returns the hashing library.
func Library() extutil.Library {
	return extutil.Library{Name: Namespace, Defs: Defs()}
}

// Defs returns the function overloads of the library.
func Defs() []extutil.Def {
	return []extutil.Def{
		{Name: "UUID", Fn: UUID},
		{Name: "Hash", Fn: Hash},
		{Name: "Hash", Fn: func(s string) string { h, _ := Hash(s, "sha256"); return h }},
		{Name: "HMAC", Fn: HMAC},
		{Name: "Base64Encode", Fn: func(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }},
		{Name: "Base64Decode", Fn: func(s string) (string, error) {
			b, err := base64.StdEncoding.DecodeString(s)
			return string(b), err
		}},
	}
}

// Algorithms lists the names accepted by Hash and HMAC.
var Algorithms = []string{
	"md5", "sha1", "sha256", "sha384", "sha512",
	"sha3-256", "sha3-512", "blake2b-256", "blake2b-512",
}

// UUID returns a random version 4 UUID.
func UUID() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("uuid: %w", err)
	}
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16]), nil
}

// Hash returns the digest of s with the named algorithm.
func Hash(s, algorithm string) (string, error) {
	newHash, err := hasher(algorithm)
	if err != nil {
		return "", err
	}
	h := newHash()
	h.Write([]byte(s))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HMAC returns the keyed MAC of s with the named algorithm.
func HMAC(s, key, algorithm string) (string, error) {
	newHash, err := hasher(algorithm)
	if err != nil {
		return "", err
	}
	mac := hmac.New(newHash, []byte(key))
	mac.Write([]byte(s))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

func hasher(algorithm string) (func() hash.Hash, error) {
	switch strings.ToLower(algorithm) {
	case "md5":
		return md5.New, nil
	case "sha1":
		return sha1.New, nil
	case "sha256":
		return sha256.New, nil
	case "sha384":
		return sha512.New384, nil
	case "sha512":
		return sha512.New, nil
	case "sha3-256":
		return sha3.New256, nil
	case "sha3-512":
		return sha3.New512, nil
	case "blake2b-256":
		return func() hash.Hash { h, _ := blake2b.New256(nil); return h }, nil
	case "blake2b-512":
		return func() hash.Hash { h, _ := blake2b.New512(nil); return h }, nil
	}
	return nil, fmt.Errorf("unsupported algorithm %q; use one of %s", algorithm, strings.Join(Algorithms, ", "))
}
