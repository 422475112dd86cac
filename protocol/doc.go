// Package protocol implements the coordination core of a multi-party
// homomorphic encryption session.
//
// A fixed group of N mutually distrusting participants sets up one shared
// computation:
//
//  1. Every participant fetches the SessionParameters, a 32-byte common
//     reference seed generated once at session start, and derives its key
//     material from it locally.
//
//  2. Every participant registers and receives a sequential ParticipantID.
//     Identifiers are dense, start at 0 and follow the order in which the
//     registrations were serialized. The registry never holds more than N
//     participants.
//
//  3. Every participant submits a key share and a ciphertext. A participant
//     moves from Acquired to KeySubmitted exactly once; resubmission is rejected
//     and the first submission is kept.
//
//  4. An operator calls Run. The AggregationGate checks that all N participants
//     have submitted, flips the one-shot completion flag and hands an ordered
//     snapshot of the key shares and ciphertexts to the Backend, which
//     aggregates the shares into an evaluation key and evaluates the shared
//     computation.
//
// # Concurrency
//
// Registration, submission and the completion check-and-set all run inside one
// mutex owned by the ParticipantRegistry. No backend work happens under that
// mutex: Run releases it before calling the Backend, so status queries keep
// being answered while aggregation is in progress.
//
// # Backend failures
//
// If the Backend fails, Run returns a KindBackendFailure error. With the
// RollbackOnFailure policy the completion flag is reset and Run can be retried;
// with SealOnFailure the session stays failed and later calls get
// KindAlreadyRun.
//
// # Errors
//
// Every rejection is an *Error carrying a machine-readable ErrorKind and a
// human-readable reason. Use errors.Is with the Err* sentinels to match kinds.
package protocol
