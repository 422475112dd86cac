// Package crypto provides the lattice-based cryptographic backend of a
// session, built on multiparty BGV from lattigo.
//
// # Common reference
//
// Every participant and the coordinator expand the 32-byte session seed with
// HKDF-SHA256 into two keyed PRNG streams:
//
//   - "fhesession/public-key-gen" samples the common reference polynomial of
//     the collective public key generation protocol
//   - "fhesession/cipher-text" samples the c1 component shared by every
//     participant ciphertext
//
// # Keys
//
// GenerateKeyShare samples a fresh secret key s_i for the participant and
// returns its public key generation share. The coordinator aggregates the N
// shares into the collective public key, which corresponds to the secret key
// s_1 + ... + s_N. No single party can decrypt.
//
// # Evaluation
//
// A participant encrypts its input vector under s_i with the common c1. Since
// all ciphertexts share c1, summing their c0 components yields an encryption
// of the slot-wise sum of the inputs under the collective secret key. The sum is
// re-randomized with an encryption of zero under the collective public key
// before it is returned.
//
// Threshold decryption of the result is not part of this package.
package crypto
