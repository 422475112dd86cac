package crypto

import (
	"crypto/sha256"
	"fmt"

	"github.com/flashbots/fhesession/protocol"
	"github.com/tuneinsight/lattigo/v6/utils/sampling"
	"golang.org/x/crypto/hkdf"
)

// HKDF info strings separating the two common reference streams derived from
// the session seed.
var (
	publicKeyGenInfo = []byte("fhesession/public-key-gen")
	cipherTextInfo   = []byte("fhesession/cipher-text")
)

// deriveKey expands the session seed into a 32-byte PRNG key bound to info.
func deriveKey(seed protocol.Seed, info []byte) ([]byte, error) {
	kdf := hkdf.New(sha256.New, seed[:], nil, info)
	key := make([]byte, 32)
	if _, err := kdf.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

// newCommonPRNG returns a keyed PRNG that every holder of the seed
// reproduces identically.
func newCommonPRNG(seed protocol.Seed, info []byte) (sampling.PRNG, error) {
	key, err := deriveKey(seed, info)
	if err != nil {
		return nil, fmt.Errorf("could not derive common reference key: %w", err)
	}

	prng, err := sampling.NewKeyedPRNG(key)
	if err != nil {
		return nil, fmt.Errorf("could not create keyed prng: %w", err)
	}
	return prng, nil
}
