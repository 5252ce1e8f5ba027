package gamestate

import (
	"time"

	"github.com/google/uuid"
)

// Participant is a player entry in the public state.
type Participant struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CharacterID string `json:"characterId,omitempty"`
	Location    string `json:"location,omitempty"`
}

// Location is a node in the location tree. Sub-locations nest arbitrarily.
type Location struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Locations []Location `json:"locations,omitempty"`
}

// LogEntryType distinguishes logs visible to everyone from logs visible
// only to the master.
type LogEntryType string

const (
	LogEntryTypePublic LogEntryType = "public"
	LogEntryTypeMaster LogEntryType = "master"
)

// LogEntry is a single line in a room's game log.
type LogEntry struct {
	ID        string       `json:"id"`
	Type      LogEntryType `json:"type"`
	Message   string       `json:"message"`
	Timestamp time.Time    `json:"timestamp"`
}

// NewLogEntry creates a log entry with a fresh id and the current time.
func NewLogEntry(entryType LogEntryType, message string) LogEntry {
	return LogEntry{
		ID:        uuid.New().String(),
		Type:      entryType,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// PublicState is visible to every room member.
type PublicState struct {
	Players   []Participant `json:"players"`
	Locations []Location    `json:"locations"`
	Logs      []LogEntry    `json:"logs"`
}

// Clone returns a deep copy of the public state.
func (p *PublicState) Clone() *PublicState {
	if p == nil {
		return nil
	}
	c := &PublicState{
		Locations: cloneLocations(p.Locations),
	}
	if p.Players != nil {
		c.Players = append([]Participant{}, p.Players...)
	}
	if p.Logs != nil {
		c.Logs = append([]LogEntry{}, p.Logs...)
	}
	return c
}

// AppendLog appends a public log entry, trimming to the retention cap.
func (p *PublicState) AppendLog(message string) LogEntry {
	entry := NewLogEntry(LogEntryTypePublic, message)
	p.Logs = appendCapped(p.Logs, entry)
	return entry
}

func cloneLocations(locations []Location) []Location {
	if locations == nil {
		return nil
	}
	out := make([]Location, len(locations))
	for i, loc := range locations {
		out[i] = loc
		out[i].Locations = cloneLocations(loc.Locations)
	}
	return out
}

// MasterState is visible only to the room master.
type MasterState struct {
	Logs  []LogEntry        `json:"logs"`
	Notes map[string]string `json:"notes,omitempty"`
}

// Clone returns a deep copy of the master state.
func (m *MasterState) Clone() *MasterState {
	if m == nil {
		return nil
	}
	c := &MasterState{}
	if m.Logs != nil {
		c.Logs = append([]LogEntry{}, m.Logs...)
	}
	if m.Notes != nil {
		c.Notes = make(map[string]string, len(m.Notes))
		for k, v := range m.Notes {
			c.Notes[k] = v
		}
	}
	return c
}

// AppendLog appends a master-only log entry, trimming to the retention cap.
func (m *MasterState) AppendLog(message string) LogEntry {
	entry := NewLogEntry(LogEntryTypeMaster, message)
	m.Logs = appendCapped(m.Logs, entry)
	return entry
}

func appendCapped(logs []LogEntry, entry LogEntry) []LogEntry {
	logs = append(logs, entry)
	if len(logs) > MaxLogEntries {
		logs = logs[len(logs)-MaxLogEntries:]
	}
	return logs
}

// FullState is the complete state of one room. The public and master
// halves are stored and mutated independently.
type FullState struct {
	Public *PublicState `json:"public"`
	Master *MasterState `json:"master"`
}

// DefaultFullState returns the initial state a new room starts with.
func DefaultFullState() FullState {
	return FullState{
		Public: &PublicState{
			Players: []Participant{},
			Locations: []Location{
				{
					ID:   "forest",
					Name: "Forest",
					Locations: []Location{
						{
							ID:   "village",
							Name: "Village",
						},
					},
				},
				{
					ID:   "castle",
					Name: "Castle",
				},
			},
			Logs: []LogEntry{},
		},
		Master: &MasterState{
			Logs: []LogEntry{},
		},
	}
}
