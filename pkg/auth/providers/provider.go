package providers

import "context"

type AuthProvider interface {
	VerifyToken(ctx context.Context, idToken string) (*Identity, error)
}

// Identity is the verified identity the coordinator trusts for all
// join/leave/master-check operations.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	ContactRef  string `json:"contactRef,omitempty"`
}
