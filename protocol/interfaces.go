package protocol

// AggregatedKey is the backend-defined encoding of the combined evaluation key.
type AggregatedKey []byte

// Result is the backend-defined encoding of the evaluation output.
type Result []byte

// ParticipantKey is a participant's local key material. It never leaves the
// participant; only KeyShare and the ciphertexts produced by Encrypt are sent
// to the coordinator.
type ParticipantKey interface {
	// KeyShare returns the serialized share contributed toward the aggregated key.
	KeyShare() []byte

	// Encrypt encrypts the participant's input vector.
	Encrypt(input []uint64) ([]byte, error)
}

// KeyShareGenerator runs on the participant's side.
type KeyShareGenerator interface {
	// GenerateKeyShare derives fresh key material bound to the published
	// session parameters. total is the fixed group size.
	GenerateKeyShare(params SessionParameters, id ParticipantID, total int) (ParticipantKey, error)
}

// Aggregator runs on the coordinator's side, outside the registry lock.
// Calls are not cancellable: they either complete or fail as a whole.
type Aggregator interface {
	// AggregateShares combines the key shares, ordered by participant id,
	// into one evaluation key.
	AggregateShares(params SessionParameters, keyShares [][]byte) (AggregatedKey, error)

	// Evaluate runs the shared computation over the ciphertexts, ordered by
	// participant id.
	Evaluate(key AggregatedKey, cipherTexts [][]byte) (Result, error)
}

// Backend is the cryptographic capability consumed by the session.
type Backend interface {
	KeyShareGenerator
	Aggregator
}

// SubmissionValidator is implemented by backends that can check a key share
// and ciphertext before they are stored. A rejected submission leaves the
// participant in Acquired, so it can submit again.
type SubmissionValidator interface {
	ValidateSubmission(keyShare, cipherText []byte) error
}
