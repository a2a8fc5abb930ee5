package relay

import "github.com/luciancaetano/tablerelay/internal/protocol"

// SeedTokens returns the tokens every table starts with.
func SeedTokens() []protocol.Token {
	return []protocol.Token{
		{ID: protocol.NumericTokenID(0), X: 100, Y: 100},
		{ID: protocol.NumericTokenID(1), X: 200, Y: 150},
		{ID: protocol.NumericTokenID(2), X: 300, Y: 200},
	}
}

// TokenStore is the authoritative token position table. Tokens are never
// added or removed after construction.
//
// TokenStore is not safe for concurrent use. The Relay event loop owns it.
type TokenStore struct {
	tokens map[string]protocol.Token
}

// NewTokenStore returns a store holding seed.
func NewTokenStore(seed []protocol.Token) *TokenStore {
	s := &TokenStore{tokens: make(map[string]protocol.Token, len(seed))}
	for _, tok := range seed {
		s.tokens[tok.ID.Key()] = tok
	}
	return s
}

// Move sets the coordinates of the token addressed by id and reports whether
// it exists. The stored id keeps its seed spelling.
func (s *TokenStore) Move(id protocol.TokenID, x, y float64) bool {
	tok, ok := s.tokens[id.Key()]
	if !ok {
		return false
	}
	tok.X, tok.Y = x, y
	s.tokens[id.Key()] = tok
	return true
}

// Get returns the token with the given key.
func (s *TokenStore) Get(key string) (protocol.Token, bool) {
	tok, ok := s.tokens[key]
	return tok, ok
}

// Snapshot returns a copy of the table keyed by token id.
func (s *TokenStore) Snapshot() map[string]protocol.Token {
	out := make(map[string]protocol.Token, len(s.tokens))
	for k, tok := range s.tokens {
		out[k] = tok
	}
	return out
}
