package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/tenantrx/recordsapi/internal/auth"
	recordsmw "github.com/tenantrx/recordsapi/internal/middleware"
	"github.com/tenantrx/recordsapi/internal/repository"
	"github.com/tenantrx/recordsapi/internal/services/catalog"
	"github.com/tenantrx/recordsapi/internal/services/iam"
)

// ClientCatalog looks up OAuth2 client metadata.
type ClientCatalog interface {
	Lookup(ctx context.Context, clientID string) (catalog.ClientInfo, error)
}

// DecisionResponse answers an authorization or expression query.
type DecisionResponse struct {
	Allowed bool   `json:"allowed"`
	Object  string `json:"object,omitempty"`
	Action  string `json:"action,omitempty"`
	Expr    string `json:"expr,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func securityContext(w http.ResponseWriter, r *http.Request) (*auth.SecurityContext, bool) {
	sc, ok := auth.FromContext(r.Context())
	if !ok {
		recordsmw.WriteError(w, auth.InvalidAuthentication("no security context on request"))
		return nil, false
	}
	return sc, true
}

// HandleSession returns the caller's resolved security context.
func HandleSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, ok := securityContext(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, sc)
	}
}

// HandleAuthorize answers ?object=&action= for the caller.
func HandleAuthorize(authorizer *iam.Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, ok := securityContext(w, r)
		if !ok {
			return
		}

		object, action := r.URL.Query().Get("object"), r.URL.Query().Get("action")
		if object == "" || action == "" {
			recordsmw.WriteError(w, auth.BadRequestf("object and action are required"))
			return
		}
		if authorizer == nil {
			recordsmw.WriteError(w, errors.New("authorizer not configured"))
			return
		}

		allowed, err := authorizer.Authorize(r.Context(), sc, object, action)
		if err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("authorization check failed")
			recordsmw.WriteError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, DecisionResponse{Allowed: allowed, Object: object, Action: action})
	}
}

// HandleEvaluate evaluates ?expr= against the caller's context.
func HandleEvaluate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, ok := securityContext(w, r)
		if !ok {
			return
		}

		expr := r.URL.Query().Get("expr")
		allowed, err := iam.EvaluateExpression(sc, expr)
		if err != nil {
			recordsmw.WriteError(w, auth.Wrap(auth.KindBadRequest, err, "invalid expression"))
			return
		}
		writeJSON(w, http.StatusOK, DecisionResponse{Allowed: allowed, Expr: expr})
	}
}

// HandleClient returns catalog metadata for the caller's OAuth2 client.
func HandleClient(clients ClientCatalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, ok := securityContext(w, r)
		if !ok {
			return
		}

		info, err := clients.Lookup(r.Context(), sc.OAuthClientID())
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				writeJSON(w, http.StatusNotFound, recordsmw.ErrorResponse{Error: "not_found", Message: "client not in catalog"})
				return
			}
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("client catalog lookup failed")
			recordsmw.WriteError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, info)
	}
}
