package apothecary

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewRegistry(t *testing.T) {
	expect := assert.New(t)
	r, err := NewRegistry(sectionSchema, guestSchema)
	if expect.NoError(err) {
		expect.Len(r.Schemas(), 2)
		s, ok := r.Lookup("Guest")
		expect.True(ok)
		expect.Equal(guestSchema, s)
		_, ok = r.Lookup("Thing")
		expect.False(ok)
	}

	_, err = NewRegistry(sectionSchema, sectionSchema)
	expect.ErrorIs(err, ErrInvalidSchema)
	other := guestSchema
	other.EntityType = "Plus One"
	_, err = NewRegistry(guestSchema, other)
	expect.ErrorIs(err, ErrInvalidSchema)
	_, err = NewRegistry(Schema{EntityType: "Broken"})
	expect.ErrorIs(err, ErrInvalidSchema)
	expect.Panics(func() { MustRegistry(Schema{}) })
}

func TestRegistry_WithPrefix(t *testing.T) {
	expect := assert.New(t)
	r := MustRegistry(sectionSchema, guestSchema)
	p := r.WithPrefix("alice_")
	s, ok := p.Lookup("SectionGroup")
	if expect.True(ok) {
		expect.Equal("alice_Section", s.TableName)
	}
	expect.Equal("Section", r.Schemas()[0].TableName)
}

func TestRegistry_Setup(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		expect := assert.New(t)
		r := MustRegistry(sectionSchema, guestSchema).WithPrefix("test_")
		opts := SetupOptions{Logger: zaptest.NewLogger(t)}
		require.NoError(t, r.Setup(ctx, store, opts))

		guests := NewTable[guest](store, r.Schemas()[1], nil)
		require.NoError(t, guests.Put(ctx, guest{RSVPID: "jane doe", GuestID: 1, Name: "Jane"}))

		// Existing tables are kept
		if expect.NoError(r.Setup(ctx, store, opts)) {
			_, err := guests.Get(ctx, "jane doe", 1)
			expect.NoError(err)
		}

		// Fresh tables are emptied
		opts.FreshTables = true
		if expect.NoError(r.Setup(ctx, store, opts)) {
			_, err := guests.Get(ctx, "jane doe", 1)
			expect.ErrorIs(err, ErrNotFound)
			for _, s := range r.Schemas() {
				ref, err := store.DescribeTable(ctx, s.TableName)
				if expect.NoError(err) {
					expect.Equal(TableStatusActive, ref.Status)
				}
			}
		}
	})
}

func TestRegistry_FreshSetupRepeated(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		schemas := []Schema{sectionSchema, guestSchema}
		for i := 0; i < 3; i++ {
			s := guestSchema
			s.EntityType = fmt.Sprintf("Guest%d", i)
			s.TableName = fmt.Sprintf("Guest%d", i)
			schemas = append(schemas, s)
		}
		r := MustRegistry(schemas...)
		guests := NewTable[guest](store, guestSchema, nil)
		for i := 0; i < 20; i++ {
			require.NoError(t, r.Setup(ctx, store, SetupOptions{FreshTables: true}), "fresh setup %d", i)
			require.NoError(t, guests.Put(ctx, guest{RSVPID: "jane doe", GuestID: i, Name: "Jane"}))
		}
		ref, err := guests.Handle(ctx)
		if assert.NoError(t, err) {
			assert.Equal(t, int64(1), ref.ItemCount)
		}
	})
}
