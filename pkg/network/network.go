package network

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	authproviders "github.com/cbodonnell/gametable/pkg/auth/providers"
	"github.com/cbodonnell/gametable/pkg/events"
	"github.com/cbodonnell/gametable/pkg/game"
	"github.com/cbodonnell/gametable/pkg/gamestate"
	"github.com/cbodonnell/gametable/pkg/log"
	"github.com/cbodonnell/gametable/pkg/messages"
	"github.com/cbodonnell/gametable/pkg/queue"
	"github.com/cbodonnell/gametable/pkg/rooms"
	"github.com/cbodonnell/gametable/pkg/sessions"
	"nhooyr.io/websocket"
)

const (
	// WriteTimeout bounds a single outbound write so one dead
	// connection cannot stall a room broadcast
	WriteTimeout = 5 * time.Second
)

type NetworkManager struct {
	AuthProvider      authproviders.AuthProvider
	ConnectionManager *ConnectionManager
	Sessions          *sessions.Manager
	Registry          *rooms.Registry
	ActionQueue       queue.Queue
	WSServer          *WSServer
}

type NewNetworkManagerOptions struct {
	AuthProvider authproviders.AuthProvider
	Sessions     *sessions.Manager
	Registry     *rooms.Registry
	ActionQueue  queue.Queue
	WSPort       int
	WSServerTLS  *TLSConfig
}

func NewNetworkManager(opts NewNetworkManagerOptions) *NetworkManager {
	return &NetworkManager{
		AuthProvider:      opts.AuthProvider,
		ConnectionManager: NewConnectionManager(),
		Sessions:          opts.Sessions,
		Registry:          opts.Registry,
		ActionQueue:       opts.ActionQueue,
		WSServer: NewWSServer(NewWSServerOptions{
			Port: opts.WSPort,
			TLS:  opts.WSServerTLS,
		}),
	}
}

func (n *NetworkManager) Start(ctx context.Context) {
	go n.WSServer.Start(ctx, n.handleConnect, n.handleDisconnect, n.handleMessage)
}

// WatchRoom subscribes the transport to a room's coalesced state
// notifications. Call it once per room, when the room is created.
func (n *NetworkManager) WatchRoom(room *rooms.Room) {
	room.State.OnPublicChange(func(_ *gamestate.PublicState) {
		n.broadcastStateChanged(room)
	})
}

func (n *NetworkManager) handleConnect(wsConn *websocket.Conn) *Connection {
	connection := n.ConnectionManager.AddConnection(wsConn)
	log.Debug("Connection %s established", connection.ID)
	return connection
}

func (n *NetworkManager) handleDisconnect(connection *Connection) {
	if _, ok := n.ConnectionManager.RemoveConnection(connection.ID); !ok {
		return
	}
	log.Debug("Connection %s closed", connection.ID)

	if connection.UserID == "" {
		return
	}

	room, err := n.Registry.UpdateConnection(connection.UserID, "", false)
	if err != nil {
		if !rooms.IsMemberNotFound(err) {
			log.Error("Failed to mark %s disconnected: %v", connection.UserID, err)
		}
		return
	}

	if room.IsMaster(connection.UserID) {
		n.BroadcastToRoom(room, messages.MessageTypeRoomPaused, messages.RoomPresence{
			UserID: connection.UserID,
		})
	}
}

func (n *NetworkManager) handleMessage(ctx context.Context, connection *Connection, message *messages.Message) {
	switch message.Type {
	case messages.MessageTypeClientJoin:
		if err := n.handleClientJoin(ctx, connection, message); err != nil {
			log.Error("Failed to handle client join: %v", err)
			n.sendToConnection(connection, messages.MessageTypeServerJoinFailure, messages.ServerJoinFailure{
				Reason: err.Error(),
			})
		}
	case messages.MessageTypeClientAction:
		if err := n.handleClientAction(connection, message); err != nil {
			log.Error("Failed to handle client action: %v", err)
			n.sendToConnection(connection, messages.MessageTypeServerError, messages.ServerError{
				Reason: err.Error(),
			})
		}
	case messages.MessageTypeClientPause:
		if err := n.handleClientPause(connection, message); err != nil {
			log.Error("Failed to handle client pause: %v", err)
			n.sendToConnection(connection, messages.MessageTypeServerError, messages.ServerError{
				Reason: err.Error(),
			})
		}
	case messages.MessageTypeClientStart:
		if err := n.handleClientStart(connection); err != nil {
			log.Error("Failed to handle client start: %v", err)
			n.sendToConnection(connection, messages.MessageTypeServerError, messages.ServerError{
				Reason: err.Error(),
			})
		}
	case messages.MessageTypeClientLeave:
		if err := n.handleClientLeave(connection); err != nil {
			log.Error("Failed to handle client leave: %v", err)
			n.sendToConnection(connection, messages.MessageTypeServerError, messages.ServerError{
				Reason: err.Error(),
			})
		}
	default:
		log.Warn("Unhandled message type: %s", message.Type)
	}
}

// handleClientJoin authenticates a connection and joins it into a room.
func (n *NetworkManager) handleClientJoin(ctx context.Context, connection *Connection, message *messages.Message) error {
	clientJoin := &messages.ClientJoin{}
	if err := json.Unmarshal(message.Payload, clientJoin); err != nil {
		return fmt.Errorf("failed to unmarshal client join: %v", err)
	}

	identity, err := n.AuthProvider.VerifyToken(ctx, clientJoin.Token)
	if err != nil {
		return fmt.Errorf("failed to verify token: %v", err)
	}

	wasPaused := false
	if existing, err := n.Registry.GetRoomByCode(clientJoin.RoomCode); err == nil {
		wasPaused = existing.Status().Paused
	}

	room, member, err := n.Registry.JoinRoom(clientJoin.RoomCode, identity.ID, identity.DisplayName, connection.ID, clientJoin.CharacterID)
	if err != nil {
		return fmt.Errorf("failed to join room: %v", err)
	}

	n.ConnectionManager.BindUser(connection.ID, identity.ID)
	connection.UserID = identity.ID
	n.Sessions.Upsert(identity.ID, identity.DisplayName, identity.ContactRef, connection.ID)

	var state interface{}
	if member.Role == rooms.RoleMaster {
		state = room.State.GetFullState()
	} else {
		state = room.State.GetPublicState()
	}

	if err := n.sendToConnection(connection, messages.MessageTypeServerJoinSuccess, messages.ServerJoinSuccess{
		RoomCode: room.Code,
		UserID:   identity.ID,
		Role:     string(member.Role),
		State:    state,
	}); err != nil {
		return fmt.Errorf("failed to send join success: %v", err)
	}

	// replay the game log so a (re)joining member catches up
	if err := n.sendToConnection(connection, messages.MessageTypeRoomLogs, messages.RoomLogs{
		LogType: string(gamestate.LogEntryTypePublic),
		Logs:    room.State.GetPublicState().Logs,
	}); err != nil {
		log.Error("Failed to send room logs: %v", err)
	}
	if member.Role == rooms.RoleMaster {
		if err := n.sendToConnection(connection, messages.MessageTypeRoomLogs, messages.RoomLogs{
			LogType: string(gamestate.LogEntryTypeMaster),
			Logs:    room.State.GetMasterState().Logs,
		}); err != nil {
			log.Error("Failed to send room logs: %v", err)
		}
	}

	if member.Role == rooms.RoleMaster {
		if wasPaused {
			n.broadcastToOthers(room, connection.ID, messages.MessageTypeRoomMasterRejoined, messages.RoomPresence{
				UserID: identity.ID,
				Name:   member.Name,
			})
			n.broadcastToOthers(room, connection.ID, messages.MessageTypeRoomResumed, messages.RoomPresence{
				UserID: identity.ID,
			})
		}
		return nil
	}

	room.Dispatcher.Emit(events.EventPlayerJoin, game.PlayerJoinPayload{
		UserID:      identity.ID,
		Name:        identity.DisplayName,
		CharacterID: member.CharacterID,
	})
	n.broadcastToOthers(room, connection.ID, messages.MessageTypeRoomPlayerJoined, messages.RoomPresence{
		UserID: identity.ID,
		Name:   member.Name,
	})
	return nil
}

// handleClientAction queues a gameplay action for the processing loop.
func (n *NetworkManager) handleClientAction(connection *Connection, message *messages.Message) error {
	if connection.UserID == "" {
		return fmt.Errorf("connection %s has not joined a room", connection.ID)
	}

	clientAction := &messages.ClientAction{}
	if err := json.Unmarshal(message.Payload, clientAction); err != nil {
		return fmt.Errorf("failed to unmarshal client action: %v", err)
	}

	room, err := n.Registry.GetRoomByMember(connection.UserID)
	if err != nil {
		return fmt.Errorf("failed to find room: %v", err)
	}

	n.Sessions.Touch(connection.UserID)

	if err := n.ActionQueue.Enqueue(&game.QueuedAction{
		Room:   room,
		UserID: connection.UserID,
		Action: clientAction.Action,
		Data:   clientAction.Data,
	}); err != nil {
		return fmt.Errorf("failed to enqueue action: %v", err)
	}
	return nil
}

func (n *NetworkManager) handleClientPause(connection *Connection, message *messages.Message) error {
	if connection.UserID == "" {
		return fmt.Errorf("connection %s has not joined a room", connection.ID)
	}

	clientPause := &messages.ClientPause{}
	if err := json.Unmarshal(message.Payload, clientPause); err != nil {
		return fmt.Errorf("failed to unmarshal client pause: %v", err)
	}

	room, err := n.Registry.GetRoomByMember(connection.UserID)
	if err != nil {
		return fmt.Errorf("failed to find room: %v", err)
	}

	if _, err := n.Registry.SetPause(room.Code, connection.UserID, clientPause.Paused); err != nil {
		return fmt.Errorf("failed to set pause: %v", err)
	}

	msgType := messages.MessageTypeRoomResumed
	if clientPause.Paused {
		msgType = messages.MessageTypeRoomPaused
	}
	n.BroadcastToRoom(room, msgType, messages.RoomPresence{UserID: connection.UserID})
	return nil
}

func (n *NetworkManager) handleClientStart(connection *Connection) error {
	if connection.UserID == "" {
		return fmt.Errorf("connection %s has not joined a room", connection.ID)
	}

	room, err := n.Registry.GetRoomByMember(connection.UserID)
	if err != nil {
		return fmt.Errorf("failed to find room: %v", err)
	}

	if _, err := n.Registry.StartGame(room.Code, connection.UserID); err != nil {
		return fmt.Errorf("failed to start game: %v", err)
	}

	n.BroadcastToRoom(room, messages.MessageTypeRoomStarted, nil)
	return nil
}

func (n *NetworkManager) handleClientLeave(connection *Connection) error {
	if connection.UserID == "" {
		return fmt.Errorf("connection %s has not joined a room", connection.ID)
	}
	userID := connection.UserID

	room, wasMaster, err := n.Registry.LeaveRoom(userID)
	if err != nil {
		return fmt.Errorf("failed to leave room: %v", err)
	}

	n.Sessions.Remove(userID)
	n.ConnectionManager.BindUser(connection.ID, "")
	connection.UserID = ""

	if wasMaster {
		n.BroadcastToRoom(room, messages.MessageTypeRoomPaused, messages.RoomPresence{UserID: userID})
		return nil
	}

	room.Dispatcher.Emit(events.EventPlayerLeave, game.PlayerLeavePayload{UserID: userID})
	n.BroadcastToRoom(room, messages.MessageTypeRoomPlayerLeft, messages.RoomPresence{UserID: userID})
	return nil
}

// BroadcastToRoom sends a message to every connected member of a room.
func (n *NetworkManager) BroadcastToRoom(room *rooms.Room, msgType string, payload interface{}) {
	msg, err := messages.NewMessage(msgType, payload)
	if err != nil {
		log.Error("Failed to create %s message: %v", msgType, err)
		return
	}
	for _, connection := range n.ConnectionManager.GetConnections(room.ConnectionIDs()) {
		n.writeToConnection(connection, msg)
	}
}

// broadcastToOthers sends a message to every connected member of a room
// except the given connection.
func (n *NetworkManager) broadcastToOthers(room *rooms.Room, exceptConnectionID, msgType string, payload interface{}) {
	msg, err := messages.NewMessage(msgType, payload)
	if err != nil {
		log.Error("Failed to create %s message: %v", msgType, err)
		return
	}
	for _, connection := range n.ConnectionManager.GetConnections(room.ConnectionIDs()) {
		if connection.ID == exceptConnectionID {
			continue
		}
		n.writeToConnection(connection, msg)
	}
}

// broadcastStateChanged fans one coalesced state notification out to a
// room's members. The master sees the full state, players only the
// public portion.
func (n *NetworkManager) broadcastStateChanged(room *rooms.Room) {
	publicMsg, err := messages.NewMessage(messages.MessageTypeStateChanged, room.State.GetPublicState())
	if err != nil {
		log.Error("Failed to create state changed message: %v", err)
		return
	}
	fullMsg, err := messages.NewMessage(messages.MessageTypeStateChanged, room.State.GetFullState())
	if err != nil {
		log.Error("Failed to create state changed message: %v", err)
		return
	}

	for _, member := range room.Members() {
		if !member.Connected || member.ConnectionID == "" {
			continue
		}
		connection, ok := n.ConnectionManager.GetConnection(member.ConnectionID)
		if !ok {
			continue
		}
		if member.Role == rooms.RoleMaster {
			n.writeToConnection(connection, fullMsg)
		} else {
			n.writeToConnection(connection, publicMsg)
		}
	}
}

func (n *NetworkManager) sendToConnection(connection *Connection, msgType string, payload interface{}) error {
	msg, err := messages.NewMessage(msgType, payload)
	if err != nil {
		return fmt.Errorf("failed to create %s message: %v", msgType, err)
	}
	n.writeToConnection(connection, msg)
	return nil
}

func (n *NetworkManager) writeToConnection(connection *Connection, msg *messages.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), WriteTimeout)
	defer cancel()
	if err := WriteMessageToWS(ctx, connection.WSConn, msg); err != nil {
		log.Error("Failed to write %s message to connection %s: %v", msg.Type, connection.ID, err)
	}
}
