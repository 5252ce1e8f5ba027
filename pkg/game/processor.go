package game

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cbodonnell/gametable/pkg/log"
	"github.com/cbodonnell/gametable/pkg/queue"
	"github.com/cbodonnell/gametable/pkg/rooms"
)

// QueuedAction is a gameplay action waiting to be dispatched to its room.
type QueuedAction struct {
	Room   *rooms.Room
	UserID string
	Action string
	Data   json.RawMessage
}

// ActionProcessor drains the inbound action queue on a fixed interval
// and dispatches each action to its room.
type ActionProcessor struct {
	actionQueue  queue.Queue
	loopInterval time.Duration
}

type NewActionProcessorOptions struct {
	ActionQueue  queue.Queue
	LoopInterval time.Duration
}

func NewActionProcessor(opts NewActionProcessorOptions) *ActionProcessor {
	return &ActionProcessor{
		actionQueue:  opts.ActionQueue,
		loopInterval: opts.LoopInterval,
	}
}

// Start starts the processing loop.
func (p *ActionProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.loopInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.processQueuedActions()
		}
	}
}

func (p *ActionProcessor) processQueuedActions() {
	pendingActions, err := p.actionQueue.ReadAllMessages()
	if err != nil {
		log.Error("Failed to read queued actions: %v", err)
		return
	}
	for _, item := range pendingActions {
		queuedAction, ok := item.(*QueuedAction)
		if !ok {
			log.Error("Failed to cast queued item to QueuedAction")
			continue
		}
		if err := ProcessUserAction(queuedAction.Room, queuedAction.UserID, queuedAction.Action, queuedAction.Data); err != nil {
			log.Error("Failed to process %s from %s: %v", queuedAction.Action, queuedAction.UserID, err)
		}
	}
}

// ProcessUserAction dispatches an action on behalf of an authenticated
// member. The acting user is stamped over whatever the client claimed,
// so a member can never act as someone else. Paused rooms reject
// actions outright.
func ProcessUserAction(room *rooms.Room, userID, action string, data json.RawMessage) error {
	status := room.Status()
	if !status.Active {
		return fmt.Errorf("room %s is closed", room.Code)
	}
	if status.Paused {
		return fmt.Errorf("room %s is paused", room.Code)
	}
	if _, ok := room.GetMember(userID); !ok {
		return fmt.Errorf("user %s is not a member of room %s", userID, room.Code)
	}

	payload, err := decodeActionPayload(action, data)
	if err != nil {
		return fmt.Errorf("failed to decode %s payload: %v", action, err)
	}
	room.Dispatcher.Emit(action, stampActingUser(payload, userID))
	return nil
}

// stampActingUser overrides the payload's player identity with the
// authenticated user.
func stampActingUser(payload interface{}, userID string) interface{} {
	switch p := payload.(type) {
	case PlayerJoinPayload:
		p.UserID = userID
		return p
	case PlayerLeavePayload:
		p.UserID = userID
		return p
	case PlayerMovePayload:
		p.UserID = userID
		return p
	case PlayerUpdatePayload:
		p.UserID = userID
		return p
	case ItemAddedPayload:
		p.UserID = userID
		return p
	case LocationEnterPayload:
		p.UserID = userID
		return p
	default:
		return payload
	}
}
