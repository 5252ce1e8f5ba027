package rooms

import (
	"sync"
	"time"

	"github.com/cbodonnell/gametable/pkg/events"
	"github.com/cbodonnell/gametable/pkg/gamestate"
	"github.com/cbodonnell/gametable/pkg/log"
	"github.com/google/uuid"
)

const (
	// DefaultEmptyRoomTimeout is how long an empty room may linger before
	// the idle sweep removes it
	DefaultEmptyRoomTimeout = 30 * time.Minute
	// DefaultMasterTimeout is how long a paused room waits for its master
	// before it is closed
	DefaultMasterTimeout = 5 * time.Minute
)

// Registry owns the map of active rooms. It is constructed explicitly
// and passed to every component that needs it; there is no process-wide
// instance. The top-level maps have their own lock; per-room mutation is
// guarded by each room's lock, so rooms never contend with each other.
type Registry struct {
	lock      sync.RWMutex
	rooms     map[string]*Room  // code -> room
	roomCodes map[string]string // id -> code

	emptyRoomTimeout time.Duration
	masterTimeout    time.Duration
	onRoomCreated    func(*Room)
}

// NewRegistryOptions contains options for creating a new Registry.
type NewRegistryOptions struct {
	// EmptyRoomTimeout overrides DefaultEmptyRoomTimeout when positive
	EmptyRoomTimeout time.Duration
	// MasterTimeout overrides DefaultMasterTimeout when positive
	MasterTimeout time.Duration
	// OnRoomCreated is called for every new room before it becomes
	// reachable, so callers can register event handlers on the room's
	// dispatcher
	OnRoomCreated func(*Room)
}

// NewRegistry creates a new Registry.
func NewRegistry(opts NewRegistryOptions) *Registry {
	emptyRoomTimeout := opts.EmptyRoomTimeout
	if emptyRoomTimeout <= 0 {
		emptyRoomTimeout = DefaultEmptyRoomTimeout
	}
	masterTimeout := opts.MasterTimeout
	if masterTimeout <= 0 {
		masterTimeout = DefaultMasterTimeout
	}
	return &Registry{
		rooms:            make(map[string]*Room),
		roomCodes:        make(map[string]string),
		emptyRoomTimeout: emptyRoomTimeout,
		masterTimeout:    masterTimeout,
		onRoomCreated:    opts.OnRoomCreated,
	}
}

// MasterTimeout returns the configured master-timeout threshold.
func (reg *Registry) MasterTimeout() time.Duration {
	return reg.masterTimeout
}

// CreateRoom generates a unique code, allocates the room's state store
// and event dispatcher, and inserts the master as the sole member. The
// master is marked connected only if a connection id is provided.
func (reg *Registry) CreateRoom(masterID, masterName, connectionID string, settings Settings) (*Room, error) {
	reg.lock.Lock()
	defer reg.lock.Unlock()

	code, err := generateUniqueCode(func(code string) bool {
		_, ok := reg.rooms[code]
		return ok
	})
	if err != nil {
		return nil, err
	}

	if settings.CharacterSelection == "" {
		settings.CharacterSelection = CharacterSelectionPredefined
	}

	now := time.Now()
	room := &Room{
		ID:                 uuid.New().String(),
		Code:               code,
		MasterID:           masterID,
		MaxPlayers:         settings.MaxPlayers,
		CharacterSelection: settings.CharacterSelection,
		CreatedAt:          now,
		State:              gamestate.NewStore(gamestate.DefaultFullState()),
		Dispatcher:         events.NewDispatcher(),
		masterConnectionID: connectionID,
		active:             true,
		members: map[string]*Member{
			masterID: {
				UserID:       masterID,
				Name:         masterName,
				ConnectionID: connectionID,
				Role:         RoleMaster,
				Connected:    connectionID != "",
				JoinedAt:     now,
			},
		},
		lastActivity:   now,
		masterLastSeen: now,
	}

	room.State.AppendMasterLog("Room " + code + " created by " + masterName)
	room.State.AppendPublicLog("Room " + code + " created")

	if reg.onRoomCreated != nil {
		reg.onRoomCreated(room)
	}

	reg.rooms[code] = room
	reg.roomCodes[room.ID] = code

	log.Info("Room created: %s by %s (%s)", code, masterName, masterID)
	return room, nil
}

// GetRoomByCode resolves a room by its shareable code. Lookup is
// case-insensitive.
func (reg *Registry) GetRoomByCode(code string) (*Room, error) {
	reg.lock.RLock()
	defer reg.lock.RUnlock()
	room, ok := reg.rooms[NormalizeCode(code)]
	if !ok {
		return nil, &ErrRoomNotFound{Code: NormalizeCode(code)}
	}
	return room, nil
}

// GetRoomByID resolves a room by its internal id.
func (reg *Registry) GetRoomByID(id string) (*Room, error) {
	reg.lock.RLock()
	defer reg.lock.RUnlock()
	code, ok := reg.roomCodes[id]
	if !ok {
		return nil, &ErrRoomNotFound{Code: id}
	}
	room, ok := reg.rooms[code]
	if !ok {
		return nil, &ErrRoomNotFound{Code: code}
	}
	return room, nil
}

// RoomExists reports whether a code resolves to an active room.
func (reg *Registry) RoomExists(code string) bool {
	reg.lock.RLock()
	defer reg.lock.RUnlock()
	_, ok := reg.rooms[NormalizeCode(code)]
	return ok
}

// ListRooms returns all active rooms.
func (reg *Registry) ListRooms() []*Room {
	reg.lock.RLock()
	defer reg.lock.RUnlock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// JoinRoom adds an identity to a room by code. An identity that is
// already a member is rebound to the new connection and returned as-is;
// the capacity check applies only to new members.
func (reg *Registry) JoinRoom(code, userID, name, connectionID, characterID string) (*Room, Member, error) {
	room, err := reg.GetRoomByCode(code)
	if err != nil {
		return nil, Member{}, err
	}

	member, err := room.join(userID, name, connectionID, characterID)
	if err != nil {
		return nil, Member{}, err
	}

	log.Info("Player joined room %s: %s (%s)", room.Code, name, userID)
	return room, member, nil
}

// LeaveRoom removes an identity from whichever room it belongs to. If
// the member was the master the room is paused; if the room becomes
// empty it is removed from the registry entirely.
func (reg *Registry) LeaveRoom(userID string) (*Room, bool, error) {
	room := reg.findRoomByMember(userID)
	if room == nil {
		return nil, false, &ErrMemberNotFound{UserID: userID}
	}

	member, wasMaster, empty, err := room.leave(userID)
	if err != nil {
		return nil, false, err
	}

	log.Info("Player left room %s: %s (%s)", room.Code, member.Name, userID)

	if empty {
		reg.RemoveRoom(room.Code)
	}

	return room, wasMaster, nil
}

// GetRoomByMember returns the room an identity currently belongs to.
func (reg *Registry) GetRoomByMember(userID string) (*Room, error) {
	room := reg.findRoomByMember(userID)
	if room == nil {
		return nil, &ErrMemberNotFound{UserID: userID}
	}
	return room, nil
}

// UpdateConnection rebinds an identity's connection id and connected
// flag in whichever room it belongs to.
func (reg *Registry) UpdateConnection(userID, connectionID string, connected bool) (*Room, error) {
	room := reg.findRoomByMember(userID)
	if room == nil {
		return nil, &ErrMemberNotFound{UserID: userID}
	}

	if _, err := room.updateConnection(userID, connectionID, connected); err != nil {
		return nil, err
	}
	return room, nil
}

// SetPause sets a room's paused flag. The caller must be the master.
func (reg *Registry) SetPause(code, userID string, paused bool) (*Room, error) {
	room, err := reg.GetRoomByCode(code)
	if err != nil {
		return nil, err
	}
	if err := room.setPause(userID, paused); err != nil {
		return nil, err
	}
	return room, nil
}

// StartGame marks a room's game as started. The caller must be the
// master.
func (reg *Registry) StartGame(code, userID string) (*Room, error) {
	room, err := reg.GetRoomByCode(code)
	if err != nil {
		return nil, err
	}
	if err := room.startGame(userID); err != nil {
		return nil, err
	}
	return room, nil
}

// RemoveRoom deletes a room from the registry. Its code becomes
// immediately reusable. The room's state store and dispatcher die with
// it; nothing can reach the room afterwards.
func (reg *Registry) RemoveRoom(code string) bool {
	reg.lock.Lock()
	defer reg.lock.Unlock()

	code = NormalizeCode(code)
	room, ok := reg.rooms[code]
	if !ok {
		return false
	}

	delete(reg.rooms, code)
	delete(reg.roomCodes, room.ID)
	log.Info("Room removed: %s", code)
	return true
}

// CleanupEmptyRooms removes rooms that have had zero members for longer
// than the empty-room timeout. Rooms with members are never touched, no
// matter how old. Returns the number of rooms removed.
func (reg *Registry) CleanupEmptyRooms() int {
	removed := 0
	now := time.Now()
	for _, room := range reg.ListRooms() {
		status := room.Status()
		if status.MemberCount > 0 {
			continue
		}
		if now.Sub(room.CreatedAt) > reg.emptyRoomTimeout {
			if reg.RemoveRoom(room.Code) {
				removed++
			}
		}
	}
	if removed > 0 {
		log.Info("Cleaned up %d empty room(s)", removed)
	}
	return removed
}

// CloseRoom marks a room inactive. Idempotent; reports whether this call
// performed the transition.
func (reg *Registry) CloseRoom(code string) bool {
	room, err := reg.GetRoomByCode(code)
	if err != nil {
		return false
	}
	return room.close()
}

// Reset removes every room. Intended for tests.
func (reg *Registry) Reset() {
	reg.lock.Lock()
	defer reg.lock.Unlock()
	reg.rooms = make(map[string]*Room)
	reg.roomCodes = make(map[string]string)
}

func (reg *Registry) findRoomByMember(userID string) *Room {
	reg.lock.RLock()
	defer reg.lock.RUnlock()
	for _, room := range reg.rooms {
		if _, ok := room.GetMember(userID); ok {
			return room
		}
	}
	return nil
}
