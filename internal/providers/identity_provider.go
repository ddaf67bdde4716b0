package providers

import "feedsync/internal/structures"

// Identity answers who the local viewer is.
type Identity interface {
	CurrentViewerAccountID() string
	Server() string
}

type staticIdentity struct {
	accountID string
	server    string
}

func (s *staticIdentity) CurrentViewerAccountID() string { return s.accountID }
func (s *staticIdentity) Server() string                 { return s.server }

func NewIdentityProvider(conf *structures.Config) Identity {
	return &staticIdentity{
		accountID: conf.Account.AccountID,
		server:    conf.Account.Server,
	}
}
