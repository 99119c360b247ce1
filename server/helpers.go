package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Daskott/famtree/i18n"
	"github.com/Daskott/famtree/server/blob"
	"github.com/Daskott/famtree/server/events"
	"github.com/Daskott/famtree/server/models"
	"github.com/Daskott/famtree/server/work"
	"github.com/go-playground/validator"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

// ---------------------------------------------------------------------------------//
// Handler Helper functions
// --------------------------------------------------------------------------------//

func writeResponse(rw http.ResponseWriter, payLoad ResponsePayload, statusCode int) {
	if statusCode >= http.StatusBadRequest {
		logg.Info(payLoad.Errors)
	} else {
		payLoad.Success = true
	}

	if payLoad.Errors == nil {
		payLoad.Errors = []string{}
	}

	rw.WriteHeader(statusCode)
	json.NewEncoder(rw).Encode(payLoad)
}

// writeError maps err to a status code & a message in the caller's language.
func writeError(rw http.ResponseWriter, r *http.Request, err error) {
	var validationErr *models.ValidationError
	var fieldErrs validator.ValidationErrors

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, blob.ErrNotFound):
		writeResponse(rw, ResponsePayload{Errors: []string{localizer(r).T("api.errors.not_found")}}, http.StatusNotFound)
	case errors.As(err, &validationErr):
		writeResponse(rw, ResponsePayload{Errors: []string{validationErr.Error()}}, http.StatusBadRequest)
	case errors.As(err, &fieldErrs):
		writeResponse(rw, ResponsePayload{Errors: strings.Split(fieldErrs.Error(), "\n")}, http.StatusBadRequest)
	default:
		logg.Errorf("%v %v: %+v", r.Method, r.URL.Path, err)
		writeResponse(rw, ResponsePayload{Errors: []string{localizer(r).T("api.errors.internal")}},
			http.StatusInternalServerError)
	}
}

func writeMessage(rw http.ResponseWriter, r *http.Request, messageID string, statusCode int) {
	writeResponse(rw, ResponsePayload{Errors: []string{localizer(r).T(messageID)}}, statusCode)
}

func localizer(r *http.Request) *i18n.Localizer {
	return i18n.NewLocalizer(r.Header.Get("Accept-Language"))
}

// idFromPath returns the positive integer {id} path variable.
func idFromPath(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func listOptionsFromQuery(r *http.Request) models.ListOptions {
	query := r.URL.Query()
	opts := models.ListOptions{
		SortBy:  query.Get("sort_by"),
		Search:  query.Get("search"),
		Filters: map[string]string{},
	}

	opts.Page, _ = strconv.Atoi(query.Get("page"))
	opts.ItemsPerPage, _ = strconv.Atoi(query.Get("items_per_page"))

	for param := range query {
		if !models.IsListOptionParam(param) {
			opts.Filters[param] = query.Get(param)
		}
	}

	return opts
}

// publish sends a domain event for a successful write. Failures are logged
// and counted, the write itself already succeeded.
func (app *App) publish(ctx context.Context, entity, action string, id uint, payload interface{}) {
	event := events.NewDomainEvent(entity, action, id, models.ActorFromContext(ctx), payload)

	err := app.publisher.Publish(ctx, event)
	if app.metrics != nil {
		app.metrics.ObserveDomainEvent(event.Type, err)
	}

	if err != nil {
		logg.Errorf("publish %v for id=%v: %v", event.Type, id, err)
	}
}

// ---------------------------------------------------------------------------------//
// Server Helper functions
// --------------------------------------------------------------------------------//

func serve(server *http.Server) {
	logg.Infof("Famtree server is listening on port%v", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Fatal(err)
	}
}

func cleanup(workerPool *work.WorkerPoolAdapter, server *http.Server, app *App) {
	// Stop background jobs before the db goes away
	workerPool.Stop()

	// Shutdown server gracefully
	ctxShutDown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutDown); err != nil {
		logg.Errorf("Famtree server shutdown failed:%+s", err)
	}

	if err := app.publisher.Close(); err != nil {
		logg.Error(err)
	}

	if err := models.Close(); err != nil {
		logg.Error(err)
	}

	logg.Infof("Famtree server stopped properly")
}

func fatalOnError(err error) {
	if err != nil {
		logg.Fatal(err)
	}
}
