package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Daskott/famtree/colors"
	"github.com/Daskott/famtree/server/auth"
	"github.com/Daskott/famtree/server/models"
	"github.com/gorilla/mux"
)

type RequestContextKey string

const CLAIMS_CONTEXT_KEY = RequestContextKey("claims")

type ResponseWriterWithStatus struct {
	http.ResponseWriter
	Status int
}

func (r *ResponseWriterWithStatus) WriteHeader(status int) {
	r.Status = status
	r.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		responseWriter := &ResponseWriterWithStatus{
			ResponseWriter: w,
			Status:         200,
		}

		defer func() {
			logg.Info(
				r.Method, " ",
				r.RequestURI, " ",
				colors.HTTPStatus(responseWriter.Status), " ",
				colors.Yellow(fmt.Sprintf("[%v]", time.Since(start))))
		}()

		next.ServeHTTP(responseWriter, r)
	})
}

func (app *App) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		responseWriter := &ResponseWriterWithStatus{ResponseWriter: w, Status: 200}

		next.ServeHTTP(responseWriter, r)

		// label by route template so ids do not explode cardinality
		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if template, err := current.GetPathTemplate(); err == nil {
				route = template
			}
		}
		app.metrics.ObserveRequest(route, r.Method, responseWriter.Status, time.Since(start))
	})
}

func jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// authMiddleware attributes writes to the token subject. With auth disabled
// every request runs as the system actor.
func (app *App) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if app.verifier == nil {
			next.ServeHTTP(w, r)
			return
		}

		token, err := auth.TokenFromHeader(r.Header.Get("Authorization"))
		if err != nil {
			writeMessage(w, r, "api.errors.no_token", http.StatusUnauthorized)
			return
		}

		claims, err := app.verifier.Verify(r.Context(), token)
		if err != nil {
			logg.Info(err)
			writeMessage(w, r, "api.errors.invalid_token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), CLAIMS_CONTEXT_KEY, claims)
		ctx = models.WithActor(ctx, claims.Subject)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// adminRouteMiddleware only lets admins through once auth is enabled.
func adminRouteMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := claimsFromContext(r.Context())
		if errors.Is(err, errAuthDisabled) {
			next.ServeHTTP(w, r)
			return
		}

		if !claims.IsAdmin() {
			writeMessage(w, r, "api.errors.forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

var errAuthDisabled = errors.New("auth is disabled")

func claimsFromContext(ctx context.Context) (*auth.TokenClaims, error) {
	claims, ok := ctx.Value(CLAIMS_CONTEXT_KEY).(*auth.TokenClaims)
	if !ok || claims == nil {
		return nil, errAuthDisabled
	}
	return claims, nil
}
