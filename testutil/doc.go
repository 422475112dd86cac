/*
Package testutil provides test helpers for session tests.

# Fake Backend

FakeBackend implements protocol.Backend without any cryptography. Ciphertexts
are little-endian encoded input vectors and Evaluate returns their slot-wise
sum, so tests can assert on results directly:

	backend := testutil.NewFakeBackend()
	session, err := protocol.NewSession(nil, backend)

	key, _ := backend.GenerateKeyShare(session.Parameters(), 0, 3)
	ct, _ := key.Encrypt([]uint64{1, 2, 3})

	// after Run
	sum, _ := testutil.DecodeVector(result)

Failures can be injected per stage and calls are counted:

	backend.FailAggregate.Store(true)
	require.EqualValues(t, 1, backend.Aggregations.Load())

Setting Gate blocks AggregateShares until the channel is closed, which lets
tests observe a session while the backend is running.
*/
package testutil
