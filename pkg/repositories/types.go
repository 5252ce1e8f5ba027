package repositories

// ErrNotFound is returned when a room snapshot does not exist.
type ErrNotFound struct {
}

func (e *ErrNotFound) Error() string {
	return "snapshot not found"
}

// IsNotFound checks if the error is an ErrNotFound.
func IsNotFound(err error) bool {
	_, ok := err.(*ErrNotFound)
	return ok
}
