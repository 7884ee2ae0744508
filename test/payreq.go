package test

import (
	"crypto/sha256"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/zpay32"
	"github.com/stretchr/testify/require"
)

// NodeKey returns the key pair of the scripted node with the given index.
// Index zero would give an all-zero private key, so the key bytes are
// offset by one.
func NodeKey(index int32) (*btcec.PrivateKey, *btcec.PublicKey) {
	var keyBytes [32]byte
	keyBytes[31] = byte(index + 1)

	return btcec.PrivKeyFromBytes(keyBytes[:])
}

// EncodePayReq encodes a zpay32 invoice signed with a fixed key.
func EncodePayReq(payReq *zpay32.Invoice) (string, error) {
	privKey, _ := NodeKey(5)

	return payReq.Encode(zpay32.MessageSigner{
		SignCompact: func(msg []byte) ([]byte, error) {
			// ecdsa.SignCompact returns a pubkey-recoverable
			// signature.
			sig := ecdsa.SignCompact(
				privKey, chainhash.HashB(msg), true,
			)

			return sig, nil
		},
	})
}

// NewPayReq creates an encoded payment request for the given amount. A zero
// amount creates a request without an amount field. The hash is derived from
// the memo so that distinct memos yield distinct hashes.
func NewPayReq(t *testing.T, params *chaincfg.Params,
	amt lnwire.MilliSatoshi, memo string) (string, lntypes.Hash) {

	t.Helper()

	hash := lntypes.Hash(sha256.Sum256([]byte(memo)))

	opts := []func(*zpay32.Invoice){
		zpay32.Description(memo),
		zpay32.Expiry(time.Hour),
	}
	if amt != 0 {
		opts = append(opts, zpay32.Amount(amt))
	}

	payReq, err := zpay32.NewInvoice(params, hash, time.Now(), opts...)
	require.NoError(t, err)

	encoded, err := EncodePayReq(payReq)
	require.NoError(t, err)

	return encoded, hash
}

// GetDestAddr deterministically generates a p2wkh address for testing.
func GetDestAddr(t *testing.T, params *chaincfg.Params,
	nr int32) btcutil.Address {

	t.Helper()

	_, pubKey := NodeKey(nr)
	addr, err := btcutil.NewAddressWitnessPubKeyHash(
		btcutil.Hash160(pubKey.SerializeCompressed()), params,
	)
	require.NoError(t, err)

	return addr
}
