package model

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// User is a profile in the users registry.  A profile is keyed by wallet
// address and points at opaque off-chain metadata.  Event creators must
// have one.
//
// Fields:
//
//	Address     – wallet address owning the profile.
//	MetadataURI – opaque profile metadata location; never empty.
//	UpdatedAt   – time of the last upsert.
type User struct {
	Address     common.Address `json:"address"`
	MetadataURI string         `json:"metadataUri"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}
