package crypto

import (
	"bytes"
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"golang.org/x/crypto/ripemd160"

	"github.com/screa/puzzle-hunter/pkg/sampler"
	"github.com/screa/puzzle-hunter/pkg/types"
)

// Mainnet pay-to-pubkey-hash version byte
const p2pkhVersion = 0x00

// Errors
var (
	ErrInvalidScalar = errors.New("scalar outside the valid secp256k1 key range")
)

// curveOrder is the secp256k1 group order N in big-endian form. Valid
// private keys are the scalars in [1, N-1].
var curveOrder = sampler.Scalar{
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xfe,
	0xba, 0xae, 0xdc, 0xe6, 0xaf, 0x48, 0xa0, 0x3b,
	0xbf, 0xd2, 0x5e, 0x8c, 0xd0, 0x36, 0x41, 0x41,
}

// ValidateScalar checks that k is usable as a secp256k1 private key.
func ValidateScalar(k sampler.Scalar) error {
	if k.IsZero() || bytes.Compare(k[:], curveOrder[:]) >= 0 {
		return ErrInvalidScalar
	}
	return nil
}

// Hash160 computes RIPEMD160(SHA256(b)), the digest a P2PKH address
// encodes.
func Hash160(b []byte) []byte {
	sha := chainhash.HashB(b)
	h := ripemd160.New()
	h.Write(sha)
	return h.Sum(nil)
}

// EncodeP2PKH encodes a serialized public key as a mainnet
// pay-to-pubkey-hash address.
func EncodeP2PKH(pubKey []byte) string {
	return base58.CheckEncode(Hash160(pubKey), p2pkhVersion)
}

// DeriveAddresses derives the P2PKH addresses for the private key k.
// Depending on mode it fills the compressed encoding, the uncompressed
// encoding, or both; the unused slot stays empty.
func DeriveAddresses(k sampler.Scalar, mode types.AddressMode) (compressed, uncompressed string, err error) {
	if err := ValidateScalar(k); err != nil {
		return "", "", err
	}

	priv, _ := btcec.PrivKeyFromBytes(k[:])
	pub := priv.PubKey()

	if mode == types.ModeCompressed || mode == types.ModeBoth {
		compressed = EncodeP2PKH(pub.SerializeCompressed())
	}
	if mode == types.ModeUncompressed || mode == types.ModeBoth {
		uncompressed = EncodeP2PKH(pub.SerializeUncompressed())
	}
	return compressed, uncompressed, nil
}
