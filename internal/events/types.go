// internal/events/types.go
package events

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// EventType represents the type of event.
type EventType string

const (
	// Asset lifecycle
	TokenCreated       EventType = "token.created"
	TokenGraduated     EventType = "token.graduated"
	TokenStatusChanged EventType = "token.status_changed"

	// Trades
	TokensMinted  EventType = "trade.minted"
	TokensBurned  EventType = "trade.burned"
	TokensSwapped EventType = "trade.swapped"

	// Custody
	IncomeWithdrawn  EventType = "custody.income_withdrawn"
	RoyaltyWithdrawn EventType = "custody.royalty_withdrawn"
	SettingsChanged  EventType = "settings.changed"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// NewBase stamps an event of type t with the current UTC time.
func NewBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now().UTC()}
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// TokenCreatedEvent is emitted when a new asset is registered.
type TokenCreatedEvent struct {
	BaseEvent
	Index     int
	Token     common.Address
	Creator   common.Address
	Name      string
	Symbol    string
	MaxSupply *uint256.Int
	Metadata  string
}

// TradeEvent is emitted for every mint or burn leg.
type TradeEvent struct {
	BaseEvent
	Token     common.Address
	Trader    common.Address
	ValueIn   *uint256.Int // value paid (mint) or gross curve proceeds (burn)
	TokensIn  *uint256.Int
	TokensOut *uint256.Int
	ValueOut  *uint256.Int
	Fee       *uint256.Int
	Royalty   *uint256.Int
	Balance   *uint256.Int // reserve after the trade
}

// SwapEvent is emitted once per swap in addition to the two leg events.
type SwapEvent struct {
	BaseEvent
	From      common.Address
	To        common.Address
	Trader    common.Address
	AmountIn  *uint256.Int
	AmountOut *uint256.Int
	Principal *uint256.Int
}

// GraduatedEvent is emitted when an asset moves to the AMM.
type GraduatedEvent struct {
	BaseEvent
	Token       common.Address
	Dex         common.Address
	TokenAmount *uint256.Int
	ValueAmount *uint256.Int
	Retired     *uint256.Int
	ToppedUp    *uint256.Int
}

// StatusChangedEvent is emitted on administrative (de)activation.
type StatusChangedEvent struct {
	BaseEvent
	Token  common.Address
	Active bool
}

// WithdrawalEvent is emitted when protocol income or royalty leaves custody.
type WithdrawalEvent struct {
	BaseEvent
	Token  common.Address // zero for protocol income
	To     common.Address
	Amount *uint256.Int
}

// SettingsChangedEvent is emitted when the administrator changes the settings or the
// graduation threshold of one asset.
type SettingsChangedEvent struct {
	BaseEvent
	Admin     common.Address
	Asset     common.Address // zero for process-wide settings
	Threshold *uint256.Int   // new threshold; nil when the settings were replaced or an override removed
}
