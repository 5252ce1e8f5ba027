package game

import (
	"encoding/json"

	"github.com/cbodonnell/gametable/pkg/events"
	"github.com/cbodonnell/gametable/pkg/gamestate"
	"github.com/cbodonnell/gametable/pkg/log"
	"github.com/cbodonnell/gametable/pkg/rooms"
)

// Handler priorities. Validation hooks run first, state mutation second,
// the audit listener last.
const (
	PriorityValidate = -10
	PriorityMutate   = 0
	PriorityAudit    = 99
)

const startingLocation = "forest"

// PlayerJoinPayload announces a member entering the game world.
type PlayerJoinPayload struct {
	UserID      string `json:"userId"`
	Name        string `json:"name"`
	CharacterID string `json:"characterId,omitempty"`
}

// PlayerLeavePayload announces a member leaving the game world.
type PlayerLeavePayload struct {
	UserID string `json:"userId"`
}

// PlayerMovePayload moves a player to a location.
type PlayerMovePayload struct {
	UserID string `json:"playerId"`
	To     string `json:"to"`
}

// PlayerUpdatePayload updates a player's character reference.
type PlayerUpdatePayload struct {
	UserID      string `json:"playerId"`
	CharacterID string `json:"characterId"`
}

// ItemAddedPayload records an item handed to a player.
type ItemAddedPayload struct {
	UserID string `json:"playerId"`
	ItemID string `json:"itemId"`
}

// LocationEnterPayload records a player entering a location.
type LocationEnterPayload struct {
	UserID     string `json:"playerId"`
	LocationID string `json:"locationId"`
}

// RegisterHandlers wires the built-in gameplay handlers onto a room's
// dispatcher. Called once per room from the registry's creation hook;
// listeners live exactly as long as the room does.
func RegisterHandlers(room *rooms.Room) {
	store := room.State
	d := room.Dispatcher

	d.SubscribeWithPriority("before:"+events.EventPlayerMove, validateMove(store), PriorityValidate)

	d.SubscribeWithPriority(events.EventPlayerJoin, handlePlayerJoin(store), PriorityMutate)
	d.SubscribeWithPriority(events.EventPlayerLeave, handlePlayerLeave(store), PriorityMutate)
	d.SubscribeWithPriority(events.EventPlayerMove, handlePlayerMove(store), PriorityMutate)
	d.SubscribeWithPriority(events.EventPlayerUpdate, handlePlayerUpdate(store), PriorityMutate)
	d.SubscribeWithPriority(events.EventItemAdded, handleItemAdded(store), PriorityMutate)
	d.SubscribeWithPriority(events.EventLocationEnter, handleLocationEnter(store), PriorityMutate)

	code := room.Code
	d.SubscribeWithPriority("*", func(event string, payload interface{}, ctx *events.Context) {
		b, _ := json.Marshal(payload)
		log.Trace("Room %s event %s: %s", code, event, string(b))
	}, PriorityAudit)
}

// validateMove cancels a move to a location that does not exist in the
// room's location tree, so the mutating handler never sees it.
func validateMove(store *gamestate.Store) events.Handler {
	return func(event string, payload interface{}, ctx *events.Context) {
		move, ok := payload.(PlayerMovePayload)
		if !ok {
			ctx.Cancel()
			return
		}
		if !locationExists(store.GetPublicState().Locations, move.To) {
			ctx.Cancel()
		}
	}
}

func locationExists(locations []gamestate.Location, id string) bool {
	for _, loc := range locations {
		if loc.ID == id {
			return true
		}
		if locationExists(loc.Locations, id) {
			return true
		}
	}
	return false
}

func handlePlayerJoin(store *gamestate.Store) events.Handler {
	return func(event string, payload interface{}, ctx *events.Context) {
		join, ok := payload.(PlayerJoinPayload)
		if !ok {
			return
		}

		store.UpdatePublic(func(public *gamestate.PublicState) {
			for _, p := range public.Players {
				if p.ID == join.UserID {
					return
				}
			}
			public.Players = append(public.Players, gamestate.Participant{
				ID:          join.UserID,
				Name:        join.Name,
				CharacterID: join.CharacterID,
				Location:    startingLocation,
			})
			public.AppendLog(join.Name + " joined the game")
		})
	}
}

func handlePlayerLeave(store *gamestate.Store) events.Handler {
	return func(event string, payload interface{}, ctx *events.Context) {
		leave, ok := payload.(PlayerLeavePayload)
		if !ok {
			return
		}

		store.UpdatePublic(func(public *gamestate.PublicState) {
			players := public.Players[:0]
			var name string
			for _, p := range public.Players {
				if p.ID == leave.UserID {
					name = p.Name
					continue
				}
				players = append(players, p)
			}
			public.Players = players
			if name != "" {
				public.AppendLog(name + " left the game")
			}
		})
	}
}

func handlePlayerMove(store *gamestate.Store) events.Handler {
	return func(event string, payload interface{}, ctx *events.Context) {
		move, ok := payload.(PlayerMovePayload)
		if !ok {
			return
		}

		store.UpdatePublic(func(public *gamestate.PublicState) {
			for i := range public.Players {
				if public.Players[i].ID == move.UserID {
					public.Players[i].Location = move.To
					return
				}
			}
		})
	}
}

func handlePlayerUpdate(store *gamestate.Store) events.Handler {
	return func(event string, payload interface{}, ctx *events.Context) {
		update, ok := payload.(PlayerUpdatePayload)
		if !ok {
			return
		}

		store.UpdatePublic(func(public *gamestate.PublicState) {
			for i := range public.Players {
				if public.Players[i].ID == update.UserID {
					public.Players[i].CharacterID = update.CharacterID
					return
				}
			}
		})
	}
}

func handleItemAdded(store *gamestate.Store) events.Handler {
	return func(event string, payload interface{}, ctx *events.Context) {
		item, ok := payload.(ItemAddedPayload)
		if !ok {
			return
		}
		store.AppendMasterLog("item " + item.ItemID + " granted to " + item.UserID)
		store.AppendPublicLog("An item was handed out")
	}
}

func handleLocationEnter(store *gamestate.Store) events.Handler {
	return func(event string, payload interface{}, ctx *events.Context) {
		enter, ok := payload.(LocationEnterPayload)
		if !ok {
			return
		}

		store.UpdatePublic(func(public *gamestate.PublicState) {
			for i := range public.Players {
				if public.Players[i].ID == enter.UserID {
					public.Players[i].Location = enter.LocationID
					return
				}
			}
		})
	}
}
