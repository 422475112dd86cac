package protocol

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// SeedSize is the byte length of the common reference seed.
const SeedSize = 32

// Seed is the common reference seed shared by every participant.
type Seed [SeedSize]byte

func (s Seed) String() string {
	return hex.EncodeToString(s[:])
}

// SessionParameters are the read-only setup parameters published to all participants.
type SessionParameters struct {
	Seed Seed `json:"seed"`
}

// ParameterPublisher holds the session parameters generated at session start.
type ParameterPublisher struct {
	params SessionParameters
}

// NewParameterPublisher draws the seed from random. A nil reader means crypto/rand.
func NewParameterPublisher(random io.Reader) (*ParameterPublisher, error) {
	if random == nil {
		random = rand.Reader
	}

	var seed Seed
	if _, err := io.ReadFull(random, seed[:]); err != nil {
		return nil, fmt.Errorf("could not generate session seed: %w", err)
	}

	return &ParameterPublisher{params: SessionParameters{Seed: seed}}, nil
}

// Publish returns the session parameters. Every call returns the same seed.
func (p *ParameterPublisher) Publish() SessionParameters {
	return p.params
}
