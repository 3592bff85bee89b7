package srptest

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/srpgate/internal/client/client"
)

// Handler serves the JSON-over-HTTP contract.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	route(mux, s, client.PathChallenge, client.OpChallenge, s.Challenge)
	route(mux, s, client.PathAuthenticate, client.OpAuthenticate, s.Authenticate)
	route(mux, s, client.PathCheckMFA, client.OpCheckMFA, s.CheckMFA)
	route(mux, s, client.PathResendOTP, client.OpResendOTP, s.ResendOTP)
	route(mux, s, client.PathForceChangePassword, client.OpForceChangePassword, s.ForceChangePassword)
	route(mux, s, client.PathRequestPasswordReset, client.OpRequestPasswordReset, s.RequestPasswordReset)
	route(mux, s, client.PathSubmitPasswordReset, client.OpSubmitPasswordReset, s.SubmitPasswordReset)
	route(mux, s, client.PathRefresh, client.OpRefresh, s.Refresh)
	return s.requestIDMiddleware(mux)
}

type ctxKey string

const ctxKeyRequestID ctxKey = "request_id"

// requestIDMiddleware echoes or generates X-Request-ID.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(client.RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(client.RequestIDHeader, requestID)
		ctx := context.WithValue(r.Context(), ctxKeyRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func route[Req, Resp any](mux *http.ServeMux, s *Server, path, op string, call func(context.Context, *Req) (*Resp, error)) {
	mux.HandleFunc("POST "+path, func(w http.ResponseWriter, r *http.Request) {
		requestID, _ := r.Context().Value(ctxKeyRequestID).(string)
		s.record(op, requestID)

		in := new(Req)
		if err := json.NewDecoder(r.Body).Decode(in); err != nil {
			writeError(w, errBadRequest)
			return
		}

		out, err := call(r.Context(), in)
		if err != nil {
			writeError(w, asAPIError(err))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(out)
	})
}

func writeError(w http.ResponseWriter, e *APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(client.ErrorResponse{Code: e.Code})
}
