package crypto

import (
	"errors"
	"fmt"

	"github.com/flashbots/fhesession/protocol"
	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/multiparty"
	"github.com/tuneinsight/lattigo/v6/schemes/bgv"
)

var (
	ErrNoKeyShares       = errors.New("no key shares to aggregate")
	ErrNoCipherTexts     = errors.New("no cipher texts to evaluate")
	ErrMismatchedCommonA = errors.New("cipher text was not produced under the session parameters")
	ErrMalformedInput    = errors.New("malformed backend input")
)

// LatticeBackend implements protocol.Backend with multiparty BGV.
//
// Key shares are collective public key generation shares over a common
// reference polynomial derived from the session seed. The aggregated key is the
// collective public key, which decrypts under the sum of all participants'
// secret keys. Evaluation sums the participants' input vectors slot-wise.
type LatticeBackend struct {
	params bgv.Parameters

	// Encoded sizes at these parameters. lattigo's decoders do not fail
	// cleanly on short input, so every blob is checked against them first.
	keyShareSize   int
	publicKeySize  int
	cipherTextSize int
}

var (
	_ protocol.Backend             = (*LatticeBackend)(nil)
	_ protocol.SubmissionValidator = (*LatticeBackend)(nil)
)

// NewLatticeBackend validates the parameter literal and creates a backend.
func NewLatticeBackend(literal bgv.ParametersLiteral) (*LatticeBackend, error) {
	params, err := bgv.NewParametersFromLiteral(literal)
	if err != nil {
		return nil, fmt.Errorf("invalid bgv parameters: %w", err)
	}
	share := multiparty.NewPublicKeyGenProtocol(params).AllocateShare()
	return &LatticeBackend{
		params:         params,
		keyShareSize:   share.BinarySize(),
		publicKeySize:  rlwe.NewPublicKey(params).BinarySize(),
		cipherTextSize: bgv.NewCiphertext(params, 1, params.MaxLevel()).BinarySize(),
	}, nil
}

// Parameters returns the underlying BGV parameters.
func (b *LatticeBackend) Parameters() bgv.Parameters {
	return b.params
}

// Slots is the maximum length of an input vector.
func (b *LatticeBackend) Slots() int {
	return b.params.MaxSlots()
}

// GenerateKeyShare samples a fresh secret key and its public key generation
// share. The secret key stays inside the returned ParticipantKey.
func (b *LatticeBackend) GenerateKeyShare(params protocol.SessionParameters, id protocol.ParticipantID, total int) (protocol.ParticipantKey, error) {
	if total < 1 {
		return nil, fmt.Errorf("invalid group size %d", total)
	}
	if uint64(id) >= uint64(total) {
		return nil, fmt.Errorf("participant %d is outside a group of %d", id, total)
	}

	prng, err := newCommonPRNG(params.Seed, publicKeyGenInfo)
	if err != nil {
		return nil, err
	}

	sk := rlwe.NewKeyGenerator(b.params).GenSecretKeyNew()

	pkg := multiparty.NewPublicKeyGenProtocol(b.params)
	crp := pkg.SampleCRP(prng)
	share := pkg.AllocateShare()
	pkg.GenShare(sk, crp, &share)

	shareBytes, err := share.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("could not serialize key share: %w", err)
	}

	return &participantKey{
		params:   b.params,
		seed:     params.Seed,
		sk:       sk,
		keyShare: shareBytes,
	}, nil
}

// ValidateSubmission checks that the key share and ciphertext have the
// encoded sizes of these parameters.
func (b *LatticeBackend) ValidateSubmission(keyShare, cipherText []byte) error {
	if err := checkSize("key share", keyShare, b.keyShareSize); err != nil {
		return err
	}
	return checkSize("cipher text", cipherText, b.cipherTextSize)
}

// AggregateShares combines the key shares into the collective public key.
func (b *LatticeBackend) AggregateShares(params protocol.SessionParameters, keyShares [][]byte) (_ protocol.AggregatedKey, err error) {
	defer recoverMalformed(&err)

	if len(keyShares) == 0 {
		return nil, ErrNoKeyShares
	}

	prng, err := newCommonPRNG(params.Seed, publicKeyGenInfo)
	if err != nil {
		return nil, err
	}

	pkg := multiparty.NewPublicKeyGenProtocol(b.params)
	crp := pkg.SampleCRP(prng)

	aggregated := pkg.AllocateShare()
	for i, raw := range keyShares {
		if err := checkSize(fmt.Sprintf("key share %d", i), raw, b.keyShareSize); err != nil {
			return nil, err
		}
		share := pkg.AllocateShare()
		if err := share.UnmarshalBinary(raw); err != nil {
			return nil, fmt.Errorf("could not deserialize key share %d: %w", i, err)
		}
		pkg.AggregateShares(share, aggregated, &aggregated)
	}

	pk := rlwe.NewPublicKey(b.params)
	pkg.GenPublicKey(aggregated, crp, pk)

	pkBytes, err := pk.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("could not serialize collective public key: %w", err)
	}
	return protocol.AggregatedKey(pkBytes), nil
}

// Evaluate adds the participants' ciphertexts and re-randomizes the sum with
// a fresh encryption of zero under the collective public key.
//
// Every participant ciphertext shares the same c1 component, so only the c0
// components are summed.
func (b *LatticeBackend) Evaluate(key protocol.AggregatedKey, cipherTexts [][]byte) (_ protocol.Result, err error) {
	defer recoverMalformed(&err)

	if len(cipherTexts) == 0 {
		return nil, ErrNoCipherTexts
	}

	if err := checkSize("collective public key", key, b.publicKeySize); err != nil {
		return nil, err
	}
	pk := rlwe.NewPublicKey(b.params)
	if err := pk.UnmarshalBinary(key); err != nil {
		return nil, fmt.Errorf("could not deserialize collective public key: %w", err)
	}

	sum, err := b.unmarshalCipherText(cipherTexts[0])
	if err != nil {
		return nil, fmt.Errorf("cipher text 0: %w", err)
	}

	ringQ := b.params.RingQ().AtLevel(sum.Level())
	for i, raw := range cipherTexts[1:] {
		ct, err := b.unmarshalCipherText(raw)
		if err != nil {
			return nil, fmt.Errorf("cipher text %d: %w", i+1, err)
		}
		if ct.Level() != sum.Level() || !ct.Value[1].Equal(&sum.Value[1]) {
			return nil, fmt.Errorf("cipher text %d: %w", i+1, ErrMismatchedCommonA)
		}
		ringQ.Add(sum.Value[0], ct.Value[0], sum.Value[0])
	}

	zero, err := rlwe.NewEncryptor(b.params, pk).EncryptNew(bgv.NewPlaintext(b.params, sum.Level()))
	if err != nil {
		return nil, fmt.Errorf("could not encrypt zero: %w", err)
	}

	if err := bgv.NewEvaluator(b.params, nil).Add(sum, zero, sum); err != nil {
		return nil, fmt.Errorf("could not re-randomize result: %w", err)
	}

	out, err := sum.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("could not serialize result: %w", err)
	}
	return protocol.Result(out), nil
}

func (b *LatticeBackend) unmarshalCipherText(raw []byte) (*rlwe.Ciphertext, error) {
	if err := checkSize("cipher text", raw, b.cipherTextSize); err != nil {
		return nil, err
	}
	ct := bgv.NewCiphertext(b.params, 1, b.params.MaxLevel())
	if err := ct.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("could not deserialize: %w", err)
	}
	if ct.Degree() != 1 {
		return nil, fmt.Errorf("expected degree 1, got %d", ct.Degree())
	}
	return ct, nil
}

func checkSize(what string, raw []byte, want int) error {
	if len(raw) != want {
		return fmt.Errorf("%w: %s is %d bytes, expected %d", ErrMalformedInput, what, len(raw), want)
	}
	return nil
}

// recoverMalformed turns a panic raised while decoding participant-supplied
// bytes into an error.
func recoverMalformed(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %v", ErrMalformedInput, r)
	}
}
