package signature

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ticket-marketplace/internal/model"
)

func TestUseTicketMessageRoundTrip(t *testing.T) {
	contract := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	msg := UseTicketMessage{Contract: contract, EventID: 7, TierIndex: 2, Nonce: 0xdeadbeef}

	raw := msg.Encode()
	require.Len(t, raw, MessageLength)
	assert.Equal(t, contract.Bytes(), raw[:20])
	assert.Equal(t, []byte{0, 0, 0, 7}, raw[20:24])
	assert.Equal(t, []byte{0, 0, 0, 2}, raw[24:28])
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, raw[28:32])

	got, err := DecodeUseTicketMessage(raw)
	require.NoError(t, err)
	assert.Equal(t, msg, got)
}

func TestDecodeUseTicketMessageRejectsWrongLength(t *testing.T) {
	for _, n := range []int{0, 31, 33} {
		_, err := DecodeUseTicketMessage(make([]byte, n))
		assert.ErrorIs(t, err, model.ErrMalformedMessage, "length %d", n)
	}
}

func TestRecoverSignerRoundTrip(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	want := crypto.PubkeyToAddress(key.PublicKey)

	msg, err := NewUseTicketMessage(common.HexToAddress("0x01"), 0, 1)
	require.NoError(t, err)

	v, r, s, err := Sign(msg.Encode(), key)
	require.NoError(t, err)
	assert.Contains(t, []byte{27, 28}, v)

	got, err := RecoverSigner(msg.Encode(), v, r, s)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// 0/1 recovery ids are accepted as well.
	got, err = RecoverSigner(msg.Encode(), v-27, r, s)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRecoverSignerDifferentMessageYieldsDifferentSigner(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := crypto.PubkeyToAddress(key.PublicKey)

	a := UseTicketMessage{Contract: common.HexToAddress("0x01"), EventID: 1, TierIndex: 0, Nonce: 1}.Encode()
	b := UseTicketMessage{Contract: common.HexToAddress("0x01"), EventID: 1, TierIndex: 0, Nonce: 2}.Encode()

	v, r, s, err := Sign(a, key)
	require.NoError(t, err)

	got, err := RecoverSigner(b, v, r, s)
	if err == nil {
		assert.NotEqual(t, signer, got)
	}
}

func TestRecoverSignerRejectsMalformedComponents(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	msg := UseTicketMessage{Contract: common.HexToAddress("0x01")}.Encode()
	v, r, s, err := Sign(msg, key)
	require.NoError(t, err)

	_, err = RecoverSigner(msg, 29, r, s)
	assert.ErrorIs(t, err, model.ErrInvalidSignature)

	_, err = RecoverSigner(msg, v, [32]byte{}, s)
	assert.ErrorIs(t, err, model.ErrInvalidSignature)

	var highS [32]byte
	for i := range highS {
		highS[i] = 0xff
	}
	_, err = RecoverSigner(msg, v, r, highS)
	assert.ErrorIs(t, err, model.ErrInvalidSignature)
}

func TestRecoverText(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	text := []byte("ticket-market login 0xabc 1700000000")

	sig, err := SignText(text, key)
	require.NoError(t, err)

	got, err := RecoverText(text, sig)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), got)

	_, err = RecoverText(text, sig[:64])
	assert.ErrorIs(t, err, model.ErrInvalidSignature)
}

func TestMessageHashSignsHexText(t *testing.T) {
	msg := []byte{0x01, 0xab}
	assert.Equal(t, TextHash([]byte("0x01ab")), MessageHash(msg))
}
