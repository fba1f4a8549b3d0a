package domain

// DefaultIdentity is used when the caller does not provide one.
const DefaultIdentity = "test@tester.com"

// Credentials are sent in the connect handshake.
type Credentials struct {
	Token    string `json:"token" validate:"required"`
	Identity string `json:"identity" validate:"omitempty,email"`
}
