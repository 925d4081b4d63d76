package signature

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/iliyamo/ticket-marketplace/internal/model"
)

// MessageLength is the size of an encoded use-ticket message:
// contract (20) ‖ eventID (4, BE) ‖ tierIndex (4, BE) ‖ nonce (4).
const MessageLength = common.AddressLength + 12

// UseTicketMessage authorizes redemption of a ticket of (EventID, TierIndex)
// held by the signer.  Nonce only varies the signed payload; it is neither
// stored nor checked for uniqueness.
type UseTicketMessage struct {
	Contract  common.Address
	EventID   uint32
	TierIndex uint32
	Nonce     uint32
}

// NewUseTicketMessage builds a message with a random nonce.
func NewUseTicketMessage(contract common.Address, eventID, tierIndex uint32) (UseTicketMessage, error) {
	var n [4]byte
	if _, err := rand.Read(n[:]); err != nil {
		return UseTicketMessage{}, err
	}
	return UseTicketMessage{
		Contract:  contract,
		EventID:   eventID,
		TierIndex: tierIndex,
		Nonce:     binary.BigEndian.Uint32(n[:]),
	}, nil
}

// Encode returns the 32-byte wire form.
func (m UseTicketMessage) Encode() []byte {
	out := make([]byte, MessageLength)
	copy(out[:20], m.Contract.Bytes())
	binary.BigEndian.PutUint32(out[20:24], m.EventID)
	binary.BigEndian.PutUint32(out[24:28], m.TierIndex)
	binary.BigEndian.PutUint32(out[28:32], m.Nonce)
	return out
}

// DecodeUseTicketMessage parses the fixed-width fields of b.
func DecodeUseTicketMessage(b []byte) (UseTicketMessage, error) {
	if len(b) != MessageLength {
		return UseTicketMessage{}, fmt.Errorf("%w: length %d", model.ErrMalformedMessage, len(b))
	}
	return UseTicketMessage{
		Contract:  common.BytesToAddress(b[:20]),
		EventID:   binary.BigEndian.Uint32(b[20:24]),
		TierIndex: binary.BigEndian.Uint32(b[24:28]),
		Nonce:     binary.BigEndian.Uint32(b[28:32]),
	}, nil
}
