package testutil

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/flashbots/fhesession/protocol"
	"go.uber.org/atomic"
)

// ErrInjected is returned by FakeBackend when a failure was requested.
var ErrInjected = errors.New("injected backend failure")

// FakeBackend is a plaintext protocol.Backend. Ciphertexts are the raw
// little-endian input vectors and evaluation sums them slot-wise, so results
// can be checked without any decryption.
type FakeBackend struct {
	FailAggregate atomic.Bool
	FailEvaluate  atomic.Bool

	Aggregations atomic.Int64
	Evaluations  atomic.Int64

	// Gate, when set, blocks AggregateShares until it is closed.
	Gate chan struct{}
}

var _ protocol.Backend = (*FakeBackend)(nil)

// NewFakeBackend returns a backend that succeeds on every call.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{}
}

func (b *FakeBackend) GenerateKeyShare(params protocol.SessionParameters, id protocol.ParticipantID, total int) (protocol.ParticipantKey, error) {
	if uint64(id) >= uint64(total) {
		return nil, fmt.Errorf("participant %d is outside a group of %d", id, total)
	}
	share := append(params.Seed[:], EncodeVector([]uint64{uint64(id)})...)
	return &fakeKey{share: share}, nil
}

func (b *FakeBackend) AggregateShares(params protocol.SessionParameters, keyShares [][]byte) (protocol.AggregatedKey, error) {
	if b.Gate != nil {
		<-b.Gate
	}
	b.Aggregations.Inc()
	if b.FailAggregate.Load() {
		return nil, ErrInjected
	}

	h := sha256.New()
	h.Write(params.Seed[:])
	for _, share := range keyShares {
		h.Write(share)
	}
	return protocol.AggregatedKey(h.Sum(nil)), nil
}

func (b *FakeBackend) Evaluate(key protocol.AggregatedKey, cipherTexts [][]byte) (protocol.Result, error) {
	b.Evaluations.Inc()
	if b.FailEvaluate.Load() {
		return nil, ErrInjected
	}

	var sum []uint64
	for i, ct := range cipherTexts {
		values, err := DecodeVector(ct)
		if err != nil {
			return nil, fmt.Errorf("cipher text %d: %w", i, err)
		}
		for len(sum) < len(values) {
			sum = append(sum, 0)
		}
		for j, v := range values {
			sum[j] += v
		}
	}
	return protocol.Result(EncodeVector(sum)), nil
}

type fakeKey struct {
	share []byte
}

func (k *fakeKey) KeyShare() []byte {
	return bytes.Clone(k.share)
}

func (k *fakeKey) Encrypt(input []uint64) ([]byte, error) {
	if len(input) == 0 {
		return nil, errors.New("empty input")
	}
	return EncodeVector(input), nil
}

// EncodeVector serializes values as little-endian uint64s.
func EncodeVector(values []uint64) []byte {
	out := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(out[8*i:], v)
	}
	return out
}

// DecodeVector is the inverse of EncodeVector.
func DecodeVector(data []byte) ([]uint64, error) {
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("vector length %d is not a multiple of 8", len(data))
	}
	values := make([]uint64, len(data)/8)
	for i := range values {
		values[i] = binary.LittleEndian.Uint64(data[8*i:])
	}
	return values, nil
}
