package apothecary

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"go.uber.org/zap"
)

// Table binds an entity type T to its Schema and a Store. T is encoded and decoded with its
// dynamodbav struct tags. A Table is a value type and safe for concurrent use when its Store is.
type Table[T any] struct {
	Store  Store
	Schema Schema
	// PageSize bounds the number of items evaluated per scan request. Zero means the store default.
	PageSize int
	Logger   *zap.Logger
}

// NewTable returns a Table for the schema on the provided store.
func NewTable[T any](store Store, schema Schema, logger *zap.Logger) Table[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return Table[T]{Store: store, Schema: schema, Logger: logger}
}

// IsValid returns true if the Table has a store and a well-formed schema.
func (table Table[T]) IsValid() bool {
	return table.Store != nil && table.Schema.Check() == nil
}

// GetEntityType returns the entity type discriminator.
func (table Table[T]) GetEntityType() string {
	return table.Schema.EntityType
}

// GetTableName returns the name of the underlying table.
func (table Table[T]) GetTableName() string {
	return table.Schema.TableName
}

func (table Table[T]) logger() *zap.Logger {
	if table.Logger == nil {
		return zap.NewNop()
	}
	return table.Logger
}

//------------------------------------------------------------------------------
// Table management
//------------------------------------------------------------------------------

// Handle resolves a reference to the table. It fails with ErrTableNotFound if the table
// does not exist.
func (table Table[T]) Handle(ctx context.Context) (TableRef, error) {
	return table.Store.DescribeTable(ctx, table.Schema.TableName)
}

// TableExists returns true if the table exists. Other failures are logged and reported as false.
func (table Table[T]) TableExists(ctx context.Context) bool {
	ref, err := table.Handle(ctx)
	if err != nil {
		if !errors.Is(err, ErrTableNotFound) {
			table.logger().Warn("table check failed", zap.String("table", table.Schema.TableName), zap.Error(err))
		}
		return false
	}
	table.logger().Debug("table", zap.String("table", ref.Name), zap.String("status", ref.Status))
	return true
}

// CreateTable creates the table.
func (table Table[T]) CreateTable(ctx context.Context) error {
	return table.Store.CreateTable(ctx, table.Schema)
}

// DeleteTable deletes the table and all of its items.
func (table Table[T]) DeleteTable(ctx context.Context) error {
	return table.Store.DeleteTable(ctx, table.Schema.TableName)
}

//------------------------------------------------------------------------------
// Entity operations
//------------------------------------------------------------------------------

// GetKeys returns the primary key of the entity: the partition key and, if the table has one,
// the sort key. It never substitutes a default for a missing key value.
func (table Table[T]) GetKeys(entity T) (Item, error) {
	item, err := table.Schema.Encode(entity)
	if err != nil {
		return nil, err
	}
	return table.Schema.KeyOf(item)
}

// Get reads an entity by key. A sort key value is required if and only if the table has a
// sort key. It returns ErrNotFound if no item is stored under the key.
func (table Table[T]) Get(ctx context.Context, partValue any, sortValue ...any) (T, error) {
	var entity T
	key, err := table.Schema.lookupKey(partValue, sortValue)
	if err != nil {
		return entity, err
	}
	item, err := table.Store.GetItem(ctx, table.Schema.TableName, key)
	if err != nil {
		return entity, err
	}
	if item == nil {
		return entity, fmt.Errorf("%s %s: %w", table.Schema.EntityType, describeKey(key), ErrNotFound)
	}
	return decode[T](table.Schema, item)
}

// Put writes the whole entity, replacing any item stored under the same key. The entity is
// validated first; an invalid entity is not written.
func (table Table[T]) Put(ctx context.Context, entity T) error {
	item, err := table.Schema.Encode(entity)
	if err != nil {
		return err
	}
	if _, err = table.Schema.KeyOf(item); err != nil {
		return err
	}
	if err = table.Schema.failed(table.Schema.Validate(item)); err != nil {
		return err
	}
	return table.Store.PutItem(ctx, table.Schema.TableName, item)
}

// Update writes only the named attributes of the entity. A named attribute that encodes as
// absent or null is removed from the stored item. Naming a key attribute fails with
// ErrInvalidKey; naming an attribute that is neither a field of T nor declared in the schema
// fails with ErrUnknownField. With no fields, Update does nothing.
func (table Table[T]) Update(ctx context.Context, entity T, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	item, err := table.Schema.Encode(entity)
	if err != nil {
		return err
	}
	key, err := table.Schema.KeyOf(item)
	if err != nil {
		return err
	}
	set := make(Item, len(fields)+2)
	var remove []string
	var results []FieldResult
	for _, field := range Unique(fields) {
		if table.Schema.IsKey(field) || isDiscriminator(field) {
			return fmt.Errorf("%w: %s cannot be updated", ErrInvalidKey, field)
		}
		av, present := item[field]
		attr, declared := table.Schema.Attribute(field)
		if !present && !declared && !hasField[T](field) {
			return fmt.Errorf("%w: %s has no field %q", ErrUnknownField, table.Schema.EntityType, field)
		}
		if declared {
			results = append(results, attr.check(av))
		}
		if k := kindOf(av); k == "" || k == KindNull {
			remove = append(remove, field)
		} else {
			set[field] = av
		}
	}
	if err = table.Schema.failed(results); err != nil {
		return err
	}
	set[AttrEntity] = item[AttrEntity]
	set[AttrVersion] = item[AttrVersion]
	return table.Store.UpdateItem(ctx, table.Schema.TableName, key, set, remove)
}

// Delete removes the item stored under the entity's key. Deleting an absent item succeeds.
func (table Table[T]) Delete(ctx context.Context, entity T) error {
	key, err := table.GetKeys(entity)
	if err != nil {
		return err
	}
	return table.Store.DeleteItem(ctx, table.Schema.TableName, key)
}

// Scan lazily iterates over every entity in the table that satisfies all of the filters,
// requesting one page at a time. If a page request or decode fails, the error is yielded once
// and iteration stops; entities yielded before the failure remain valid.
func (table Table[T]) Scan(ctx context.Context, filters ...Filter) iter.Seq2[T, error] {
	filter := And(filters...)
	return func(yield func(T, error) bool) {
		var zero T
		var start Item
		for {
			res, err := table.Store.Scan(ctx, table.Schema.TableName, ScanRequest{
				Limit:    table.PageSize,
				StartKey: start,
				Filter:   filter,
			})
			if err != nil {
				yield(zero, err)
				return
			}
			for _, item := range res.Items {
				entity, err := decode[T](table.Schema, item)
				if err != nil {
					yield(zero, err)
					return
				}
				if !yield(entity, nil) {
					return
				}
			}
			if len(res.LastKey) == 0 {
				return
			}
			start = res.LastKey
		}
	}
}

// ScanAll collects every entity that satisfies all of the filters.
func (table Table[T]) ScanAll(ctx context.Context, filters ...Filter) ([]T, error) {
	var entities []T
	for entity, err := range table.Scan(ctx, filters...) {
		if err != nil {
			return entities, err
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

// ScanPage reads one page of a scan, starting after the cursor. The returned page's Next
// cursor is empty when the scan is complete. A page may hold fewer than PageSize entities,
// or none, when the filter rejects items.
func (table Table[T]) ScanPage(ctx context.Context, cursor Cursor, filters ...Filter) (Page[T], error) {
	var page Page[T]
	start, err := cursor.Key()
	if err != nil {
		return page, err
	}
	res, err := table.Store.Scan(ctx, table.Schema.TableName, ScanRequest{
		Limit:    table.PageSize,
		StartKey: start,
		Filter:   And(filters...),
	})
	if err != nil {
		return page, err
	}
	page.Items = make([]T, 0, len(res.Items))
	for _, item := range res.Items {
		entity, err := decode[T](table.Schema, item)
		if err != nil {
			return page, err
		}
		page.Items = append(page.Items, entity)
	}
	if page.Next, err = NewCursor(res.LastKey); err != nil {
		return page, err
	}
	return page, nil
}

// describeKey formats a key for error messages.
func describeKey(key Item) string {
	s := ""
	for _, name := range sortedNames(key) {
		if s != "" {
			s += " "
		}
		s += name + "=" + scalarText(key[name])
	}
	return s
}
