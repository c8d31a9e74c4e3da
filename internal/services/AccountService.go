package services

import (
	"context"
	"watchsync/internal/remote"
)

type AccountStatus struct {
	Authenticated bool   `json:"authenticated"`
	Subject       string `json:"subject,omitempty"`
}

type AccountServiceInterface interface {
	Login(ctx context.Context, email, password string) error
	Logout()
	Status() AccountStatus
	Profile(ctx context.Context) (*remote.Profile, error)
	List(ctx context.Context, kind remote.ListKind) ([]remote.ListEntry, error)
	AddToList(ctx context.Context, kind remote.ListKind, entry remote.ListEntry) error
	RemoveFromList(ctx context.Context, kind remote.ListKind, contentID int64) error
}

// AccountService covers the session and the backend's watchlist and
// favorites collections.
type AccountService struct {
	session remote.SessionInterface
	backend remote.BackendClientInterface
}

func NewAccountService(session remote.SessionInterface, backend remote.BackendClientInterface) AccountServiceInterface {
	return &AccountService{session: session, backend: backend}
}

func (as *AccountService) Login(ctx context.Context, email, password string) error {
	return as.backend.Login(ctx, email, password)
}

func (as *AccountService) Logout() {
	as.backend.Logout()
}

func (as *AccountService) Status() AccountStatus {
	return AccountStatus{Authenticated: as.session.Authenticated(), Subject: as.session.Subject()}
}

func (as *AccountService) Profile(ctx context.Context) (*remote.Profile, error) {
	return as.backend.Profile(ctx)
}

func (as *AccountService) List(ctx context.Context, kind remote.ListKind) ([]remote.ListEntry, error) {
	return as.backend.List(ctx, kind)
}

func (as *AccountService) AddToList(ctx context.Context, kind remote.ListKind, entry remote.ListEntry) error {
	return as.backend.AddToList(ctx, kind, entry)
}

func (as *AccountService) RemoveFromList(ctx context.Context, kind remote.ListKind, contentID int64) error {
	return as.backend.RemoveFromList(ctx, kind, contentID)
}
