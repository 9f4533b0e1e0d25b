package realtime

// TokenValidator is what the gate needs from the user service.
type TokenValidator interface {
	ValidateToken(tokenString string) (int, string, error)
}

// AuthGate resolves the bearer credential from a websocket handshake into a
// principal. It never fails: a missing, malformed or expired token yields an
// anonymous result (nil) and the channel handler decides whether that is
// acceptable.
type AuthGate struct {
	validator TokenValidator
}

func NewAuthGate(v TokenValidator) *AuthGate {
	return &AuthGate{validator: v}
}

// Authenticate returns the principal for a raw token, or nil for anonymous.
func (g *AuthGate) Authenticate(rawToken string) *Principal {
	if rawToken == "" {
		return nil
	}
	id, username, err := g.validator.ValidateToken(rawToken)
	if err != nil {
		return nil
	}
	return &Principal{ID: id, Username: username}
}
