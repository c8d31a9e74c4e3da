package controllers

import (
	"net/http"
	"watchsync/internal/providers"
	"watchsync/internal/remote"
	"watchsync/internal/services"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AccountController struct {
	logger  providers.Logger
	account services.AccountServiceInterface
}

func NewAccountController(logger providers.Logger, account services.AccountServiceInterface) *AccountController {
	return &AccountController{logger: logger, account: account}
}

func (ac *AccountController) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if err := ac.account.Login(r.Context(), req.Email, req.Password); err != nil {
		ac.logger.Warnf(providers.TypeApp, "Login failed: %s", err)
		writeError(w, err)
		return
	}
	ac.logger.Infof(providers.TypeApp, "Logged in as %s", ac.account.Status().Subject)
	writeJSON(w, http.StatusOK, ac.account.Status())
}

func (ac *AccountController) Logout(w http.ResponseWriter, _ *http.Request) {
	ac.account.Logout()
	w.WriteHeader(http.StatusNoContent)
}

func (ac *AccountController) Status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ac.account.Status())
}

func (ac *AccountController) Profile(w http.ResponseWriter, r *http.Request) {
	profile, err := ac.account.Profile(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// ListHandlers serves GET, POST and DELETE of one backend collection.
func (ac *AccountController) ListHandlers(kind remote.ListKind) map[string]http.Handler {
	return map[string]http.Handler{
		http.MethodGet: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			entries, err := ac.account.List(r.Context(), kind)
			if err != nil {
				writeError(w, err)
				return
			}
			if entries == nil {
				entries = []remote.ListEntry{}
			}
			writeJSON(w, http.StatusOK, entries)
		}),
		http.MethodPost: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var entry remote.ListEntry
			if !decodeBody(w, r, &entry) {
				return
			}
			if entry.ContentID <= 0 {
				writeError(w, errBadID)
				return
			}
			if err := ac.account.AddToList(r.Context(), kind, entry); err != nil {
				writeError(w, err)
				return
			}
			w.WriteHeader(http.StatusCreated)
		}),
		http.MethodDelete: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := queryID(r, "id")
			if err != nil {
				writeError(w, err)
				return
			}
			if err := ac.account.RemoveFromList(r.Context(), kind, id); err != nil {
				writeError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		}),
	}
}
