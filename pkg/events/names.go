package events

// Event names emitted by the coordinator. Names are namespaced by colon
// so handlers can subscribe to a whole namespace with "player:*".
const (
	EventPlayerMove   = "player:move"
	EventPlayerJoin   = "player:join"
	EventPlayerLeave  = "player:leave"
	EventPlayerUpdate = "player:update"

	EventItemAdded = "item:added"

	EventLocationEnter = "location:enter"
)
