package crypto

import (
	"errors"
	"fmt"

	"github.com/flashbots/fhesession/protocol"
	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/schemes/bgv"
	"go.uber.org/atomic"
)

var (
	ErrKeyAlreadyUsed = errors.New("participant key has already encrypted an input")
	ErrInputTooLong   = errors.New("input vector is longer than the number of slots")
	ErrInputOverflow  = errors.New("input value is not below the plaintext modulus")
)

// participantKey holds a participant's secret key. Encrypt can only be used
// once: every participant ciphertext reuses the common c1 of the session.
type participantKey struct {
	params   bgv.Parameters
	seed     protocol.Seed
	sk       *rlwe.SecretKey
	keyShare []byte
	used     atomic.Bool
}

func (k *participantKey) KeyShare() []byte {
	return k.keyShare
}

func (k *participantKey) Encrypt(input []uint64) ([]byte, error) {
	if len(input) > k.params.MaxSlots() {
		return nil, fmt.Errorf("%w: %d > %d", ErrInputTooLong, len(input), k.params.MaxSlots())
	}
	t := k.params.PlaintextModulus()
	for i, v := range input {
		if v >= t {
			return nil, fmt.Errorf("%w: slot %d holds %d, modulus is %d", ErrInputOverflow, i, v, t)
		}
	}

	if !k.used.CompareAndSwap(false, true) {
		return nil, ErrKeyAlreadyUsed
	}

	prng, err := newCommonPRNG(k.seed, cipherTextInfo)
	if err != nil {
		return nil, err
	}

	pt := bgv.NewPlaintext(k.params, k.params.MaxLevel())
	if err := bgv.NewEncoder(k.params).Encode(input, pt); err != nil {
		return nil, fmt.Errorf("could not encode input: %w", err)
	}

	ct, err := rlwe.NewEncryptor(k.params, k.sk).WithPRNG(prng).EncryptNew(pt)
	if err != nil {
		return nil, fmt.Errorf("could not encrypt input: %w", err)
	}

	return ct.MarshalBinary()
}
