package apothecary

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Registry is the explicit, ordered list of entity schemas used by an application. It is built
// once at startup and is read-only afterwards.
type Registry struct {
	schemas []Schema
	index   map[string]int
}

// NewRegistry builds a registry from the schemas, in order. Each schema must be well formed,
// and entity types and table names must be unique.
func NewRegistry(schemas ...Schema) (Registry, error) {
	r := Registry{index: make(map[string]int, len(schemas))}
	tables := make(map[string]string, len(schemas))
	for _, s := range schemas {
		if err := s.Check(); err != nil {
			return Registry{}, err
		}
		if _, ok := r.index[s.EntityType]; ok {
			return Registry{}, fmt.Errorf("%w: entity type %s is registered twice", ErrInvalidSchema, s.EntityType)
		}
		if other, ok := tables[s.TableName]; ok {
			return Registry{}, fmt.Errorf("%w: %s and %s share table %s", ErrInvalidSchema, other, s.EntityType, s.TableName)
		}
		tables[s.TableName] = s.EntityType
		r.index[s.EntityType] = len(r.schemas)
		r.schemas = append(r.schemas, s)
	}
	return r, nil
}

// MustRegistry is like NewRegistry but panics on error. It is intended for package-level
// registries built from constant schemas.
func MustRegistry(schemas ...Schema) Registry {
	r, err := NewRegistry(schemas...)
	if err != nil {
		panic(err)
	}
	return r
}

// Schemas returns the registered schemas in registration order.
func (r Registry) Schemas() []Schema {
	return append([]Schema(nil), r.schemas...)
}

// Lookup returns the schema registered for an entity type.
func (r Registry) Lookup(entityType string) (Schema, bool) {
	i, ok := r.index[entityType]
	if !ok {
		return Schema{}, false
	}
	return r.schemas[i], true
}

// WithPrefix returns a registry whose table names all carry the prefix.
func (r Registry) WithPrefix(prefix string) Registry {
	p := Registry{
		schemas: make([]Schema, len(r.schemas)),
		index:   r.index,
	}
	for i, s := range r.schemas {
		p.schemas[i] = s.WithPrefix(prefix)
	}
	return p
}

// SetupOptions controls Registry.Setup.
type SetupOptions struct {
	// FreshTables deletes existing tables (and their items) before creating them.
	FreshTables bool
	Logger      *zap.Logger
}

// Setup creates a table for every registered schema. Tables that already exist are left in
// place unless FreshTables is set, in which case they are deleted first; a table that does
// not exist is not an error when deleting. Tables are processed concurrently and the first
// failure cancels the rest.
func (r Registry) Setup(ctx context.Context, store Store, opts SetupOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, s := range r.schemas {
		g.Go(func() error {
			log := logger.With(zap.String("table", s.TableName), zap.String("entity", s.EntityType))
			if opts.FreshTables {
				err := store.DeleteTable(ctx, s.TableName)
				switch {
				case errors.Is(err, ErrTableNotFound):
					log.Info("table not found, nothing to delete")
				case err != nil:
					return err
				default:
					log.Info("table deleted")
				}
			}
			err := store.CreateTable(ctx, s)
			switch {
			case errors.Is(err, ErrTableExists):
				log.Info("table already exists")
			case err != nil:
				return err
			default:
				log.Info("table created")
			}
			return nil
		})
	}
	return g.Wait()
}
