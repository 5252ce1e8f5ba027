package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cbodonnell/gametable/pkg/api/middleware"
	"github.com/cbodonnell/gametable/pkg/log"
	"github.com/cbodonnell/gametable/pkg/repositories"
	"github.com/cbodonnell/gametable/pkg/rooms"
	"github.com/gorilla/mux"
)

// CreateRoomRequest is the body of a room creation request.
type CreateRoomRequest struct {
	MaxPlayers         int    `json:"maxPlayers"`
	CharacterSelection string `json:"characterSelection"`
}

// RoomResponse is the external view of a room.
type RoomResponse struct {
	ID                 string         `json:"id"`
	Code               string         `json:"code"`
	MasterID           string         `json:"masterId"`
	MaxPlayers         int            `json:"maxPlayers,omitempty"`
	CharacterSelection string         `json:"characterSelection"`
	CreatedAt          time.Time      `json:"createdAt"`
	Paused             bool           `json:"paused"`
	GameStarted        bool           `json:"gameStarted"`
	Members            []rooms.Member `json:"members"`
}

func roomResponse(room *rooms.Room) RoomResponse {
	status := room.Status()
	return RoomResponse{
		ID:                 room.ID,
		Code:               room.Code,
		MasterID:           room.MasterID,
		MaxPlayers:         room.MaxPlayers,
		CharacterSelection: string(room.CharacterSelection),
		CreatedAt:          room.CreatedAt,
		Paused:             status.Paused,
		GameStarted:        status.GameStarted,
		Members:            room.Members(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to encode response: %v", err)
	}
}

// HandleCreateRoom creates a room with the caller as its master.
func HandleCreateRoom(registry *rooms.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := middleware.GetIdentity(r)
		if !ok {
			log.Error("failed to get identity from context")
			http.Error(w, "Failed to get identity from context", http.StatusInternalServerError)
			return
		}

		createRoom := &CreateRoomRequest{}
		if r.Body != nil {
			if err := json.NewDecoder(r.Body).Decode(createRoom); err != nil {
				http.Error(w, "Invalid request body", http.StatusBadRequest)
				return
			}
		}

		settings := rooms.Settings{
			MaxPlayers:         createRoom.MaxPlayers,
			CharacterSelection: rooms.CharacterSelection(createRoom.CharacterSelection),
		}

		room, err := registry.CreateRoom(identity.ID, identity.DisplayName, "", settings)
		if err != nil {
			log.Error("failed to create room: %v", err)
			http.Error(w, "Failed to create room", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, roomResponse(room))
	}
}

// HandleGetRoom returns a room's external view by code.
func HandleGetRoom(registry *rooms.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := mux.Vars(r)["code"]
		room, err := registry.GetRoomByCode(code)
		if err != nil {
			http.Error(w, "Room not found", http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusOK, roomResponse(room))
	}
}

// HandleCheckJoin verifies that the caller could join a room right now.
// The actual join happens over the realtime connection.
func HandleCheckJoin(registry *rooms.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := middleware.GetIdentity(r)
		if !ok {
			log.Error("failed to get identity from context")
			http.Error(w, "Failed to get identity from context", http.StatusInternalServerError)
			return
		}

		code := mux.Vars(r)["code"]
		room, err := registry.GetRoomByCode(code)
		if err != nil {
			http.Error(w, "Room not found", http.StatusNotFound)
			return
		}

		if _, ok := room.GetMember(identity.ID); !ok {
			if room.MaxPlayers > 0 && len(room.Members()) >= room.MaxPlayers {
				http.Error(w, "Room is full", http.StatusConflict)
				return
			}
		}

		writeJSON(w, http.StatusOK, roomResponse(room))
	}
}

// HandleGetRoomState returns a room's full state. Master only.
func HandleGetRoomState(registry *rooms.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := middleware.GetIdentity(r)
		if !ok {
			log.Error("failed to get identity from context")
			http.Error(w, "Failed to get identity from context", http.StatusInternalServerError)
			return
		}

		code := mux.Vars(r)["code"]
		room, err := registry.GetRoomByCode(code)
		if err != nil {
			http.Error(w, "Room not found", http.StatusNotFound)
			return
		}

		if !room.IsMaster(identity.ID) {
			http.Error(w, "Only the room master can read the full state", http.StatusForbidden)
			return
		}

		writeJSON(w, http.StatusOK, room.State.GetFullState())
	}
}

// HandleListSnapshots lists the caller's saved room snapshots.
func HandleListSnapshots(repository repositories.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := middleware.GetIdentity(r)
		if !ok {
			log.Error("failed to get identity from context")
			http.Error(w, "Failed to get identity from context", http.StatusInternalServerError)
			return
		}

		snapshots, err := repository.ListSnapshots(r.Context(), identity.ID)
		if err != nil {
			log.Error("failed to list snapshots: %v", err)
			http.Error(w, "Failed to list snapshots", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, snapshots)
	}
}

// HandleGetSnapshot loads one snapshot. The caller must have been a
// member of the saved room.
func HandleGetSnapshot(repository repositories.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := middleware.GetIdentity(r)
		if !ok {
			log.Error("failed to get identity from context")
			http.Error(w, "Failed to get identity from context", http.StatusInternalServerError)
			return
		}

		snapshotID := mux.Vars(r)["snapshotID"]
		snapshot, err := repository.LoadSnapshot(r.Context(), snapshotID)
		if err != nil {
			if repositories.IsNotFound(err) {
				http.Error(w, "Snapshot not found", http.StatusNotFound)
				return
			}
			log.Error("failed to load snapshot: %v", err)
			http.Error(w, "Failed to load snapshot", http.StatusInternalServerError)
			return
		}

		if !memberOfSnapshot(snapshot.MemberIDs, identity.ID) {
			http.Error(w, "Snapshot not found", http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusOK, snapshot)
	}
}

// HandleDeleteSnapshot deletes one snapshot. Master only.
func HandleDeleteSnapshot(repository repositories.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := middleware.GetIdentity(r)
		if !ok {
			log.Error("failed to get identity from context")
			http.Error(w, "Failed to get identity from context", http.StatusInternalServerError)
			return
		}

		snapshotID := mux.Vars(r)["snapshotID"]
		snapshot, err := repository.LoadSnapshot(r.Context(), snapshotID)
		if err != nil {
			if repositories.IsNotFound(err) {
				http.Error(w, "Snapshot not found", http.StatusNotFound)
				return
			}
			log.Error("failed to load snapshot: %v", err)
			http.Error(w, "Failed to load snapshot", http.StatusInternalServerError)
			return
		}

		if snapshot.MasterID != identity.ID {
			http.Error(w, "Only the room master can delete a snapshot", http.StatusForbidden)
			return
		}

		if err := repository.DeleteSnapshot(r.Context(), snapshotID); err != nil {
			log.Error("failed to delete snapshot: %v", err)
			http.Error(w, "Failed to delete snapshot", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func memberOfSnapshot(memberIDs []string, userID string) bool {
	for _, id := range memberIDs {
		if id == userID {
			return true
		}
	}
	return false
}
