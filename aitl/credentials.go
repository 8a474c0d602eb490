package aitl

import "strings"

// Credentials holds the bearer token attached to every request. It is created once
// per process and never modified afterwards.
type Credentials struct {
	token string
}

// NewCredentials validates and wraps an access token
func NewCredentials(token string) (Credentials, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Credentials{}, validationError("credentials", ErrMissingToken)
	}
	return Credentials{token: token}, nil
}

// authorization returns the Authorization header value
func (c Credentials) authorization() string {
	return "Bearer " + c.token
}

// String never prints the token
func (c Credentials) String() string {
	if c.token == "" {
		return "Credentials(empty)"
	}
	return "Credentials(redacted)"
}
