package model

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ActivityKind names a committed marketplace operation.
type ActivityKind string

const (
	ActivityUserUpserted    ActivityKind = "user_upserted"
	ActivityEventCreated    ActivityKind = "event_created"
	ActivityEventCancelled  ActivityKind = "event_cancelled"
	ActivityTicketPurchased ActivityKind = "ticket_purchased"
	ActivityTicketUsed      ActivityKind = "ticket_used"
	ActivityFundsWithdrawn  ActivityKind = "funds_withdrawn"
	ActivityFundsReturned   ActivityKind = "funds_returned"
)

// Activity is emitted once per committed operation.  Amount and Fee are nil
// when the operation moves no funds; Quantity is the number of tickets for
// purchases.
type Activity struct {
	ID       string
	Kind     ActivityKind
	EventID  uint32
	Tier     uint32
	Actor    common.Address
	Currency Currency
	Amount   *uint256.Int
	Fee      *uint256.Int
	Quantity uint64
	At       time.Time
}
