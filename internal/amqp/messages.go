package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

type EventType string

const (
	EventEntryRecorded EventType = "entry.recorded"
	EventPartyCreated  EventType = "party.created"
	EventPartyDeleted  EventType = "party.deleted"
)

// LedgerEvent announces a committed ledger change. Consumers re-read the
// ledger for details; the event only says what moved.
type LedgerEvent struct {
	Type      EventType `json:"type"`
	PartyID   int64     `json:"party_id"`
	PartyName string    `json:"party_name"`
	EntryID   int64     `json:"entry_id,omitempty"`
	Month     string    `json:"month,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEntryRecordedEvent(partyID int64, partyName string, entryID int64, month string) *LedgerEvent {
	return &LedgerEvent{
		Type:      EventEntryRecorded,
		PartyID:   partyID,
		PartyName: partyName,
		EntryID:   entryID,
		Month:     month,
		Timestamp: time.Now(),
	}
}

func NewPartyCreatedEvent(partyID int64, partyName string) *LedgerEvent {
	return &LedgerEvent{
		Type:      EventPartyCreated,
		PartyID:   partyID,
		PartyName: partyName,
		Timestamp: time.Now(),
	}
}

func NewPartyDeletedEvent(partyID int64, partyName string) *LedgerEvent {
	return &LedgerEvent{
		Type:      EventPartyDeleted,
		PartyID:   partyID,
		PartyName: partyName,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes an event and rejects unknown types.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var ev LedgerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	switch ev.Type {
	case EventEntryRecorded, EventPartyCreated, EventPartyDeleted:
		return &ev, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", ev.Type)
	}
}
