package game

import (
	"encoding/json"
	"time"
)

// EventType classifies world events written to the event log.
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypePlayerJoin
	EventTypePlayerLeave
	EventTypeKill
	EventTypeTierUp
	EventTypeSpawnRejected
	EventTypePurchase
	EventTypeBuildingPlaced
	EventTypeBuildingDestroyed
	EventTypeGameOver
)

// EventVersion is bumped when payload shapes change.
const EventVersion uint8 = 1

// Event is one line of the event log.
type Event struct {
	Version   uint8           `json:"version"`
	Type      EventType       `json:"type"`
	Timestamp int64           `json:"timestamp"` // unix nano
	Sequence  uint64          `json:"sequence"`
	Tick      uint64          `json:"tick"`
	Actor     string          `json:"actor,omitempty"` // rate limiting key
	Payload   json.RawMessage `json:"payload,omitempty"`
}

func (t EventType) String() string {
	switch t {
	case EventTypePlayerJoin:
		return "player_join"
	case EventTypePlayerLeave:
		return "player_leave"
	case EventTypeKill:
		return "kill"
	case EventTypeTierUp:
		return "tier_up"
	case EventTypeSpawnRejected:
		return "spawn_rejected"
	case EventTypePurchase:
		return "purchase"
	case EventTypeBuildingPlaced:
		return "building_placed"
	case EventTypeBuildingDestroyed:
		return "building_destroyed"
	case EventTypeGameOver:
		return "game_over"
	default:
		return "unknown"
	}
}

// MarshalJSON writes the type by name.
func (t EventType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// PlayerPayload describes a join or leave.
type PlayerPayload struct {
	ID   EntityID `json:"id"`
	Name string   `json:"name"`
	Team string   `json:"team"`
	X    float64  `json:"x,omitempty"`
	Y    float64  `json:"y,omitempty"`
}

// KillPayload describes a player death.
type KillPayload struct {
	Killer     EntityID `json:"killer"`
	KillerName string   `json:"killerName"`
	Victim     EntityID `json:"victim"`
	VictimName string   `json:"victimName"`
	VictimTeam string   `json:"victimTeam"`
}

// TierPayload describes a castle upgrade.
type TierPayload struct {
	Team  string `json:"team"`
	Tier  int    `json:"tier"`
	Arrow string `json:"arrow"`
}

// SpawnRejectedPayload records an admission refusal.
type SpawnRejectedPayload struct {
	Team       string `json:"team"`
	Unit       string `json:"unit"`
	Population int    `json:"population"`
	Limit      int    `json:"limit"`
}

// PurchasePayload records a vendor or castle shop purchase.
type PurchasePayload struct {
	Buyer  EntityID `json:"buyer"`
	Item   string   `json:"item"`
	Cost   int      `json:"cost"`
	Castle bool     `json:"castle,omitempty"`
}

// BuildingPayload records a placed or destroyed building.
type BuildingPayload struct {
	ID       EntityID `json:"id"`
	Building string   `json:"building"`
	Team     string   `json:"team"`
}

// GameOverPayload records the end of a match.
type GameOverPayload struct {
	Loser string `json:"loser"`
	Ticks uint64 `json:"ticks"`
}

// EncodePayload marshals a payload; unmarshalable payloads become empty.
func EncodePayload(payload any) json.RawMessage {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates an event stamped with the current time.
func NewEvent(eventType EventType, tick uint64, actor string, payload any) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		Tick:      tick,
		Actor:     actor,
		Payload:   EncodePayload(payload),
	}
}
