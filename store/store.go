// Package store holds client side state for famtree resources. A store
// wraps one API service and tracks the current page, the selected record,
// a loading flag and the last error message for display.
package store

import (
	"context"
	"errors"
	"sync"

	"github.com/Daskott/famtree/client"
	"github.com/Daskott/famtree/i18n"
	"github.com/Daskott/famtree/server/logger"
	"github.com/Daskott/famtree/server/models"
)

const (
	LOAD_ACTION   = "load"
	GET_ACTION    = "get"
	ADD_ACTION    = "add"
	UPDATE_ACTION = "update"
	DELETE_ACTION = "delete"
)

var logg = logger.NewLogger()

// Service is the API surface a CrudStore drives.
type Service[T any] interface {
	Search(ctx context.Context, opts models.ListOptions) (*client.PaginatedList[T], error)
	GetByID(ctx context.Context, id uint) (*T, error)
	Add(ctx context.Context, item *T) (*T, error)
	Update(ctx context.Context, id uint, item *T) (*T, error)
	Delete(ctx context.Context, id uint) error
}

type State[T any] struct {
	Items      []T                `json:"items"`
	Detail     *T                 `json:"detail"`
	TotalItems int64              `json:"total_items"`
	TotalPages int64              `json:"total_pages"`
	Loading    bool               `json:"loading"`
	Error      string             `json:"error"`
	Options    models.ListOptions `json:"options"`
}

type CrudStore[T any] struct {
	mu       sync.Mutex
	service  Service[T]
	entity   string
	inFlight int
	state    State[T]
}

// NewCrudStore returns a store over service. entity is the i18n message ID
// naming the resource in default error messages, e.g. "entities.member".
func NewCrudStore[T any](service Service[T], entity string) *CrudStore[T] {
	return &CrudStore[T]{
		service: service,
		entity:  entity,
		state: State[T]{
			Items:   []T{},
			Options: models.ListOptions{Page: 1, ItemsPerPage: models.DEFAULT_PAGE_SIZE},
		},
	}
}

// State returns a snapshot of the store.
func (s *CrudStore[T]) State() State[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state
	snapshot.Items = append([]T{}, s.state.Items...)
	snapshot.Options.Filters = copyFilters(s.state.Options.Filters)
	return snapshot
}

// LoadItems fetches the page described by the current list options.
func (s *CrudStore[T]) LoadItems(ctx context.Context) error {
	s.begin()
	defer s.end()

	return s.loadItems(ctx)
}

// SetListOptions replaces the list options and reloads.
func (s *CrudStore[T]) SetListOptions(ctx context.Context, opts models.ListOptions) error {
	s.mu.Lock()
	opts.Filters = copyFilters(opts.Filters)
	s.state.Options = opts
	s.mu.Unlock()

	return s.LoadItems(ctx)
}

// SetFilters replaces the list filters, goes back to the first page and reloads.
func (s *CrudStore[T]) SetFilters(ctx context.Context, filters map[string]string) error {
	s.mu.Lock()
	s.state.Options.Filters = copyFilters(filters)
	s.state.Options.Page = 1
	s.mu.Unlock()

	return s.LoadItems(ctx)
}

// GetByID loads record id into the detail slot.
func (s *CrudStore[T]) GetByID(ctx context.Context, id uint) (*T, error) {
	s.begin()
	defer s.end()

	item, err := s.service.GetByID(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.state.Detail = nil
		s.state.Error = s.errorMessage(GET_ACTION, err)
		return nil, err
	}

	s.state.Detail = item
	s.state.Error = ""
	return item, nil
}

func (s *CrudStore[T]) AddItem(ctx context.Context, item *T) (*T, error) {
	s.begin()
	defer s.end()

	created, err := s.service.Add(ctx, item)
	if err != nil {
		s.fail(ADD_ACTION, err)
		return nil, err
	}

	s.succeed()
	return created, s.loadItems(ctx)
}

func (s *CrudStore[T]) UpdateItem(ctx context.Context, id uint, item *T) (*T, error) {
	s.begin()
	defer s.end()

	updated, err := s.service.Update(ctx, id, item)
	if err != nil {
		s.fail(UPDATE_ACTION, err)
		return nil, err
	}

	s.mu.Lock()
	s.state.Detail = updated
	s.state.Error = ""
	s.mu.Unlock()

	return updated, s.loadItems(ctx)
}

func (s *CrudStore[T]) DeleteItem(ctx context.Context, id uint) error {
	s.begin()
	defer s.end()

	if err := s.service.Delete(ctx, id); err != nil {
		s.fail(DELETE_ACTION, err)
		return err
	}

	s.succeed()
	return s.loadItems(ctx)
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func (s *CrudStore[T]) loadItems(ctx context.Context) error {
	s.mu.Lock()
	opts := s.state.Options
	opts.Filters = copyFilters(opts.Filters)
	s.mu.Unlock()

	list, err := s.service.Search(ctx, opts)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.state.Items = []T{}
		s.state.TotalItems = 0
		s.state.TotalPages = 0
		s.state.Error = s.errorMessage(LOAD_ACTION, err)
		return err
	}

	s.state.Items = list.Items
	if s.state.Items == nil {
		s.state.Items = []T{}
	}
	s.state.TotalItems = list.Paging.Total
	s.state.TotalPages = list.Paging.Pages
	s.state.Error = ""
	return nil
}

// begin & end bracket an action. Loading stays true while any action runs.
func (s *CrudStore[T]) begin() {
	s.mu.Lock()
	s.inFlight++
	s.state.Loading = true
	s.mu.Unlock()
}

func (s *CrudStore[T]) end() {
	s.mu.Lock()
	s.inFlight--
	s.state.Loading = s.inFlight > 0
	s.mu.Unlock()
}

func (s *CrudStore[T]) succeed() {
	s.mu.Lock()
	s.state.Error = ""
	s.mu.Unlock()
}

func (s *CrudStore[T]) fail(action string, err error) {
	s.mu.Lock()
	s.state.Error = s.errorMessage(action, err)
	s.mu.Unlock()
}

func (s *CrudStore[T]) errorMessage(action string, err error) string {
	return ErrorMessage(s.entity, action, err)
}

// ErrorMessage logs err and returns the message to show for it: the API's
// own message when there is one, otherwise the translated default for action.
func ErrorMessage(entity, action string, err error) string {
	logg.Errorf("%v %v: %v", action, entity, err)

	apiErr := &client.APIError{}
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}

	return i18n.Tf("store.errors."+action, map[string]interface{}{"Entity": i18n.T(entity)})
}

func copyFilters(filters map[string]string) map[string]string {
	if filters == nil {
		return nil
	}

	copied := make(map[string]string, len(filters))
	for k, v := range filters {
		copied[k] = v
	}
	return copied
}
