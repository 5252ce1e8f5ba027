package rooms

import "fmt"

// ErrRoomNotFound indicates a room code or id did not resolve.
type ErrRoomNotFound struct {
	Code string
}

func (e *ErrRoomNotFound) Error() string {
	return fmt.Sprintf("room %s not found", e.Code)
}

func IsRoomNotFound(err error) bool {
	_, ok := err.(*ErrRoomNotFound)
	return ok
}

// ErrMemberNotFound indicates an identity is not a member of any room.
type ErrMemberNotFound struct {
	UserID string
}

func (e *ErrMemberNotFound) Error() string {
	return fmt.Sprintf("user %s is not a room member", e.UserID)
}

func IsMemberNotFound(err error) bool {
	_, ok := err.(*ErrMemberNotFound)
	return ok
}

// ErrNotMaster indicates an operation that requires the master role was
// attempted by a non-master member.
type ErrNotMaster struct {
	UserID string
}

func (e *ErrNotMaster) Error() string {
	return fmt.Sprintf("user %s is not the room master", e.UserID)
}

func IsNotMaster(err error) bool {
	_, ok := err.(*ErrNotMaster)
	return ok
}

// ErrRoomFull indicates a join against a room at its configured player cap.
type ErrRoomFull struct {
	Code string
}

func (e *ErrRoomFull) Error() string {
	return fmt.Sprintf("room %s is full", e.Code)
}

func IsRoomFull(err error) bool {
	_, ok := err.(*ErrRoomFull)
	return ok
}

// ErrCodeSpaceExhausted indicates room creation could not find a free
// code within the bounded number of attempts. This is a server-side
// capacity problem, not a caller mistake.
type ErrCodeSpaceExhausted struct {
	Attempts int
}

func (e *ErrCodeSpaceExhausted) Error() string {
	return fmt.Sprintf("failed to generate a unique room code after %d attempts", e.Attempts)
}

func IsCodeSpaceExhausted(err error) bool {
	_, ok := err.(*ErrCodeSpaceExhausted)
	return ok
}
