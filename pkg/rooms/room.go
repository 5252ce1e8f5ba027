package rooms

import (
	"sync"
	"time"

	"github.com/cbodonnell/gametable/pkg/events"
	"github.com/cbodonnell/gametable/pkg/gamestate"
)

// Role is a room member's role. Exactly one member per room holds the
// master role, fixed at creation.
type Role string

const (
	RoleMaster Role = "master"
	RolePlayer Role = "player"
)

// CharacterSelection is how members pick characters for a room.
type CharacterSelection string

const (
	CharacterSelectionPredefined CharacterSelection = "predefined"
	CharacterSelectionInRoom     CharacterSelection = "in-room"
)

// Member is a participant of one room.
type Member struct {
	UserID       string    `json:"userId"`
	Name         string    `json:"name"`
	ConnectionID string    `json:"connectionId,omitempty"`
	Role         Role      `json:"role"`
	CharacterID  string    `json:"characterId,omitempty"`
	Connected    bool      `json:"connected"`
	JoinedAt     time.Time `json:"joinedAt"`
}

// Settings configure a room at creation time.
type Settings struct {
	// MaxPlayers caps membership; zero means unlimited
	MaxPlayers         int
	CharacterSelection CharacterSelection
}

// Room is one isolated game session. It exclusively owns a state store,
// an event dispatcher, and a membership map; all three share the room's
// lifetime. Mutable fields are guarded by the room's own lock so that
// operations on different rooms never contend.
type Room struct {
	ID                 string
	Code               string
	MasterID           string
	MaxPlayers         int
	CharacterSelection CharacterSelection
	CreatedAt          time.Time

	State      *gamestate.Store
	Dispatcher *events.Dispatcher

	lock               sync.Mutex
	masterConnectionID string
	paused             bool
	active             bool
	gameStarted        bool
	members            map[string]*Member
	lastActivity       time.Time
	masterLastSeen     time.Time
}

// Status is a point-in-time copy of a room's mutable flags and timers.
type Status struct {
	Paused         bool
	Active         bool
	GameStarted    bool
	MemberCount    int
	LastActivity   time.Time
	MasterLastSeen time.Time
}

// Status returns a consistent snapshot of the room's mutable state.
func (r *Room) Status() Status {
	r.lock.Lock()
	defer r.lock.Unlock()
	return Status{
		Paused:         r.paused,
		Active:         r.active,
		GameStarted:    r.gameStarted,
		MemberCount:    len(r.members),
		LastActivity:   r.lastActivity,
		MasterLastSeen: r.masterLastSeen,
	}
}

// Members returns a copy of the membership list.
func (r *Room) Members() []Member {
	r.lock.Lock()
	defer r.lock.Unlock()
	members := make([]Member, 0, len(r.members))
	for _, m := range r.members {
		members = append(members, *m)
	}
	return members
}

// GetMember returns a copy of one member by identity.
func (r *Room) GetMember(userID string) (Member, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	m, ok := r.members[userID]
	if !ok {
		return Member{}, false
	}
	return *m, true
}

// MemberIDs returns the identities of all members.
func (r *Room) MemberIDs() []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	ids := make([]string, 0, len(r.members))
	for id := range r.members {
		ids = append(ids, id)
	}
	return ids
}

// ConnectionIDs returns the connection ids of all connected members.
func (r *Room) ConnectionIDs() []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	ids := make([]string, 0, len(r.members))
	for _, m := range r.members {
		if m.Connected && m.ConnectionID != "" {
			ids = append(ids, m.ConnectionID)
		}
	}
	return ids
}

// MasterConnectionID returns the master's current connection id, or ""
// if the master is disconnected.
func (r *Room) MasterConnectionID() string {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.masterConnectionID
}

// IsMaster reports whether the identity holds the master role here.
func (r *Room) IsMaster(userID string) bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	m, ok := r.members[userID]
	return ok && m.Role == RoleMaster
}

func (r *Room) touch() {
	r.lastActivity = time.Now()
}

// join adds or rebinds a member. Callers go through Registry.JoinRoom.
func (r *Room) join(userID, name, connectionID, characterID string) (Member, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if existing, ok := r.members[userID]; ok {
		// reconnect: rebind the connection, never a duplicate member
		existing.ConnectionID = connectionID
		existing.Connected = true
		if characterID != "" {
			existing.CharacterID = characterID
		}
		if existing.Role == RoleMaster {
			r.masterConnectionID = connectionID
			r.masterLastSeen = time.Now()
			r.paused = false
		}
		r.touch()
		return *existing, nil
	}

	if r.MaxPlayers > 0 && len(r.members) >= r.MaxPlayers {
		return Member{}, &ErrRoomFull{Code: r.Code}
	}

	member := &Member{
		UserID:       userID,
		Name:         name,
		ConnectionID: connectionID,
		Role:         RolePlayer,
		CharacterID:  characterID,
		Connected:    true,
		JoinedAt:     time.Now(),
	}
	r.members[userID] = member
	r.touch()
	return *member, nil
}

// leave removes a member entirely. Reports whether the member was the
// master and whether the room is now empty.
func (r *Room) leave(userID string) (member Member, wasMaster bool, empty bool, err error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	m, ok := r.members[userID]
	if !ok {
		return Member{}, false, false, &ErrMemberNotFound{UserID: userID}
	}

	wasMaster = m.Role == RoleMaster
	if wasMaster {
		r.paused = true
		r.masterLastSeen = time.Now()
		r.masterConnectionID = ""
	}

	delete(r.members, userID)
	r.touch()
	return *m, wasMaster, len(r.members) == 0, nil
}

// updateConnection rebinds a member's connection id and connected flag.
// A master disconnect pauses the room but keeps the member entry; a
// master reconnect while paused resumes the room atomically.
func (r *Room) updateConnection(userID, connectionID string, connected bool) (Member, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	m, ok := r.members[userID]
	if !ok {
		return Member{}, &ErrMemberNotFound{UserID: userID}
	}

	m.ConnectionID = connectionID
	m.Connected = connected
	r.touch()

	if m.Role == RoleMaster {
		if connected {
			r.masterConnectionID = connectionID
			r.masterLastSeen = time.Now()
			if r.paused {
				r.paused = false
			}
		} else {
			r.masterConnectionID = ""
			r.masterLastSeen = time.Now()
			r.paused = true
		}
	}

	return *m, nil
}

// setPause sets the paused flag. Master only.
func (r *Room) setPause(userID string, paused bool) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	m, ok := r.members[userID]
	if !ok || m.Role != RoleMaster {
		return &ErrNotMaster{UserID: userID}
	}

	r.paused = paused
	r.touch()
	return nil
}

// startGame marks the game as started and resumes the room. Master only.
// The gameStarted flag is monotonic: once set it never reverts.
func (r *Room) startGame(userID string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	m, ok := r.members[userID]
	if !ok || m.Role != RoleMaster {
		return &ErrNotMaster{UserID: userID}
	}

	r.gameStarted = true
	r.paused = false
	r.touch()
	return nil
}

// close marks the room inactive. Idempotent; reports whether the flag
// changed on this call.
func (r *Room) close() bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	if !r.active {
		return false
	}
	r.active = false
	return true
}
