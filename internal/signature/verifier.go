// Package signature recovers signer addresses from secp256k1 signatures over
// personal (EIP-191) messages and encodes the use-ticket authorization.
package signature

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/sha3"

	"github.com/iliyamo/ticket-marketplace/internal/model"
)

const personalPrefix = "\x19Ethereum Signed Message:\n"

// TextHash is the personal-message digest of text: keccak256 over the
// prefix, the decimal length of text and text itself.
func TextHash(text []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(personalPrefix))
	h.Write([]byte(strconv.Itoa(len(text))))
	h.Write(text)
	return h.Sum(nil)
}

// MessageHash is the digest a wallet signs for a binary message.  Wallets sign
// the 0x-prefixed lowercase hex form of the bytes as text.
func MessageHash(message []byte) []byte {
	return TextHash([]byte(hexutil.Encode(message)))
}

// RecoverSigner returns the address that produced (v, r, s) over message.
// v may be given as 0/1 or 27/28.
func RecoverSigner(message []byte, v byte, r, s [32]byte) (common.Address, error) {
	return recoverHash(MessageHash(message), v, r, s)
}

// RecoverText recovers the signer of a 65-byte r‖s‖v signature over text.
func RecoverText(text []byte, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("%w: signature length %d", model.ErrInvalidSignature, len(sig))
	}
	var r, s [32]byte
	copy(r[:], sig[:32])
	copy(s[:], sig[32:64])
	return recoverHash(TextHash(text), sig[64], r, s)
}

func recoverHash(hash []byte, v byte, r, s [32]byte) (common.Address, error) {
	if v >= 27 {
		v -= 27
	}
	if v > 1 {
		return common.Address{}, fmt.Errorf("%w: recovery id %d", model.ErrInvalidSignature, v)
	}
	if !crypto.ValidateSignatureValues(v, new(big.Int).SetBytes(r[:]), new(big.Int).SetBytes(s[:]), true) {
		return common.Address{}, fmt.Errorf("%w: r or s out of range", model.ErrInvalidSignature)
	}
	sig := make([]byte, crypto.SignatureLength)
	copy(sig[:32], r[:])
	copy(sig[32:64], s[:])
	sig[64] = v

	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", model.ErrInvalidSignature, err)
	}
	addr := crypto.PubkeyToAddress(*pub)
	if addr == (common.Address{}) {
		return common.Address{}, model.ErrInvalidSignature
	}
	return addr, nil
}

// Sign produces (v, r, s) over message the way a wallet does, with v in {27, 28}.
func Sign(message []byte, key *ecdsa.PrivateKey) (v byte, r, s [32]byte, err error) {
	sig, err := crypto.Sign(MessageHash(message), key)
	if err != nil {
		return 0, r, s, err
	}
	copy(r[:], sig[:32])
	copy(s[:], sig[32:64])
	return sig[64] + 27, r, s, nil
}

// SignText signs text as a personal message and returns r‖s‖v with v in {27, 28}.
func SignText(text []byte, key *ecdsa.PrivateKey) ([]byte, error) {
	sig, err := crypto.Sign(TextHash(text), key)
	if err != nil {
		return nil, err
	}
	sig[64] += 27
	return sig, nil
}
