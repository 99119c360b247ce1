package models

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/soft_delete"
)

const (
	MAX_PAGE_SIZE     = 100
	DEFAULT_PAGE_SIZE = 10
	SYSTEM_ACTOR      = "system"
)

type actorKey struct{}

// BaseModel carries the audit columns shared by every genealogy record.
// Rows are never removed, IsDeleted flips to 1 and reads skip them.
type BaseModel struct {
	ID             uint                  `json:"id" gorm:"primarykey"`
	Created        time.Time             `json:"created" gorm:"column:created;autoCreateTime"`
	CreatedBy      string                `json:"created_by,omitempty" gorm:"size:100"`
	LastModified   time.Time             `json:"last_modified" gorm:"column:last_modified;autoUpdateTime"`
	LastModifiedBy string                `json:"last_modified_by,omitempty" gorm:"size:100"`
	IsDeleted      soft_delete.DeletedAt `json:"-" gorm:"column:is_deleted;softDelete:flag;not null;default:0;index"`
}

type Paging struct {
	Total        int64 `json:"total"`
	Page         int64 `json:"page"`
	Pages        int64 `json:"pages"`
	ItemsPerPage int64 `json:"items_per_page"`
}

// ListOptions describes one page of a resource listing.
// SortBy holds comma separated "column[:asc|desc]" items.
type ListOptions struct {
	Page         int
	ItemsPerPage int
	SortBy       string
	Search       string
	Filters      map[string]string
}

var listOptionParams = map[string]bool{"page": true, "items_per_page": true, "sort_by": true, "search": true}

// IsListOptionParam reports whether a query param names a list option rather
// than a column filter.
func IsListOptionParam(name string) bool {
	return listOptionParams[name]
}

// Resource is implemented by every entity served through the generic
// repository functions. Returned columns are db column names.
type Resource interface {
	SearchFields() []string
	FilterFields() []string
	UpdatableFields() []string
}

// selfValidator is implemented by entities with cross field rules.
type selfValidator interface {
	Validate() error
}

type defaulter interface {
	SetDefaults()
}

// referenceChecker verifies foreign keys before a write reaches the database.
type referenceChecker interface {
	checkReferences(ctx context.Context) error
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

func (base *BaseModel) BeforeCreate(tx *gorm.DB) error {
	actor := ActorFromContext(tx.Statement.Context)
	base.CreatedBy = actor
	base.LastModifiedBy = actor
	return nil
}

func (base BaseModel) GetID() uint {
	return base.ID
}

// resetAudit drops client supplied ids & audit values before a write.
func (base *BaseModel) resetAudit() {
	*base = BaseModel{}
}

func (base *BaseModel) stampModifier(actor string) {
	base.LastModifiedBy = actor
}

func (base *BaseModel) BeforeUpdate(tx *gorm.DB) error {
	tx.Statement.SetColumn("last_modified_by", ActorFromContext(tx.Statement.Context))
	return nil
}

// WithActor returns a context whose writes are attributed to actor.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFromContext(ctx context.Context) string {
	if ctx == nil {
		return SYSTEM_ACTOR
	}

	actor, ok := ctx.Value(actorKey{}).(string)
	if !ok || actor == "" {
		return SYSTEM_ACTOR
	}
	return actor
}

// ---------------------------------------------------------------------------------//
// Scopes
// --------------------------------------------------------------------------------//

func paginate(page, pageSize int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		page, pageSize = normalizePage(page, pageSize)

		offset := (page - 1) * pageSize
		return db.Offset(offset).Limit(pageSize)
	}
}

func filterBy(resource Resource, opts ListOptions) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		allowed := toSet(resource.FilterFields())
		for column, value := range opts.Filters {
			if !allowed[column] || strings.TrimSpace(value) == "" {
				continue
			}
			db = db.Where(clause.Eq{Column: clause.Column{Name: column}, Value: filterValue(value)})
		}

		search := strings.TrimSpace(opts.Search)
		if search == "" || len(resource.SearchFields()) == 0 {
			return db
		}

		var conditions []clause.Expression
		for _, column := range resource.SearchFields() {
			conditions = append(conditions, clause.Like{Column: clause.Column{Name: column}, Value: "%" + search + "%"})
		}
		return db.Where(clause.Or(conditions...))
	}
}

func orderBy(resource Resource, sortBy string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		allowed := toSet(append([]string{"id", "created", "last_modified"},
			append(resource.SearchFields(), resource.FilterFields()...)...))

		ordered := false
		for _, item := range strings.Split(sortBy, ",") {
			column, direction, _ := strings.Cut(strings.TrimSpace(item), ":")
			if !allowed[column] {
				continue
			}

			db = db.Order(clause.OrderByColumn{
				Column: clause.Column{Name: column},
				Desc:   strings.EqualFold(direction, "desc"),
			})
			ordered = true
		}

		if !ordered {
			db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: true})
		}
		return db
	}
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func normalizePage(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}

	switch {
	case pageSize > MAX_PAGE_SIZE:
		pageSize = MAX_PAGE_SIZE
	case pageSize <= 0:
		pageSize = DEFAULT_PAGE_SIZE
	}

	return page, pageSize
}

func newPaging(page, pageSize int, total int64) *Paging {
	page, pageSize = normalizePage(page, pageSize)
	paging := &Paging{Page: int64(page), Total: total, ItemsPerPage: int64(pageSize)}

	paging.Pages = int64(math.Ceil(float64(paging.Total) / float64(pageSize)))
	if paging.Pages == 0 {
		paging.Pages = 1
	}

	return paging
}

// filterValue lets "true"/"false" match boolean columns on every dialect.
func filterValue(value string) interface{} {
	switch strings.ToLower(value) {
	case "true":
		return true
	case "false":
		return false
	}
	return value
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
