package models

import (
	"context"
	"reflect"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// FetchPage returns one page of T matching opts, newest first unless
// opts.SortBy says otherwise.
func FetchPage[T Resource](ctx context.Context, opts ListOptions) ([]T, *Paging, error) {
	var zero T
	var total int64
	items := []T{}

	scoped := func() *gorm.DB {
		return db.WithContext(ctx).Model(new(T)).Scopes(filterBy(zero, opts))
	}

	err := scoped().Count(&total).Error
	if err != nil {
		return nil, nil, errors.Wrap(err, "FetchPage: count")
	}

	err = scoped().Scopes(orderBy(zero, opts.SortBy), paginate(opts.Page, opts.ItemsPerPage)).
		Find(&items).Error
	if err != nil {
		return nil, nil, errors.Wrap(err, "FetchPage: find")
	}

	return items, newPaging(opts.Page, opts.ItemsPerPage, total), nil
}

// FindByID returns gorm.ErrRecordNotFound for missing or soft deleted rows.
func FindByID[T Resource](ctx context.Context, id interface{}) (*T, error) {
	item := new(T)
	err := db.WithContext(ctx).First(item, "id = ?", id).Error
	if err != nil {
		return nil, err
	}

	return item, nil
}

func Create[T Resource](ctx context.Context, item *T) error {
	if err := prepareItem(ctx, item); err != nil {
		return err
	}

	if a, ok := any(item).(auditable); ok {
		a.resetAudit()
	}

	return errors.Wrap(db.WithContext(ctx).Create(item).Error, "Create")
}

// Update overwrites the updatable columns of row id with the values in item.
// Every other column keeps the stored value, and references are checked
// against the merged row.
func Update[T Resource](ctx context.Context, id interface{}, item *T) error {
	existing, err := FindByID[T](ctx, id)
	if err != nil {
		return err
	}

	if err := keepFixedColumns(ctx, existing, item); err != nil {
		return err
	}

	if err := prepareItem(ctx, item); err != nil {
		return err
	}

	if a, ok := any(item).(auditable); ok {
		a.resetAudit()
		a.stampModifier(ActorFromContext(ctx))
	}

	fields := append((*existing).UpdatableFields(), "last_modified", "last_modified_by")
	err = db.WithContext(ctx).Model(existing).Select(fields).Updates(item).Error
	if err != nil {
		return errors.Wrap(err, "Update")
	}

	return nil
}

// Delete soft deletes row id.
func Delete[T Resource](ctx context.Context, id interface{}) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(new(T))
	if res.Error != nil {
		return errors.Wrap(res.Error, "Delete")
	}

	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

type auditable interface {
	resetAudit()
	stampModifier(actor string)
}

// keepFixedColumns copies the columns item may not change, e.g. family_id,
// from existing onto item.
func keepFixedColumns[T Resource](ctx context.Context, existing, item *T) error {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(item); err != nil {
		return errors.Wrap(err, "keepFixedColumns")
	}

	updatable := toSet((*existing).UpdatableFields())
	from := reflect.ValueOf(existing)
	to := reflect.ValueOf(item)

	for _, field := range stmt.Schema.Fields {
		if field.DBName == "" || updatable[field.DBName] {
			continue
		}

		err := field.Set(ctx, to, field.ReflectValueOf(ctx, from).Interface())
		if err != nil {
			return errors.Wrap(err, "keepFixedColumns")
		}
	}
	return nil
}

// requireFamilyRow fails with a ValidationError on field when no live T with
// the given id belongs to family familyID.
func requireFamilyRow[T Resource](ctx context.Context, field string, id, familyID uint) error {
	var count int64
	err := db.WithContext(ctx).Model(new(T)).Where("id = ? AND family_id = ?", id, familyID).Count(&count).Error
	if err != nil {
		return errors.Wrap(err, "requireFamilyRow")
	}

	if count == 0 {
		return &ValidationError{Field: field, Message: "must belong to the same family"}
	}
	return nil
}

// requireRow fails with a ValidationError on field when no live T has the given id.
func requireRow[T Resource](ctx context.Context, field string, id uint) error {
	var count int64
	err := db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return errors.Wrap(err, "requireRow")
	}

	if count == 0 {
		return &ValidationError{Field: field, Message: "does not reference an existing record"}
	}
	return nil
}

// prepareItem applies entity defaults, then entity rules, then reference checks.
func prepareItem(ctx context.Context, item interface{}) error {
	if d, ok := item.(defaulter); ok {
		d.SetDefaults()
	}

	if v, ok := item.(selfValidator); ok {
		if err := v.Validate(); err != nil {
			return err
		}
	}

	if r, ok := item.(referenceChecker); ok {
		return r.checkReferences(ctx)
	}
	return nil
}
