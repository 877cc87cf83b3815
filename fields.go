package apothecary

import (
	"reflect"
	"strings"
	"sync"
)

// entityField is an attribute produced by a struct field of an entity type.
type entityField struct {
	Name      string
	OmitEmpty bool
}

var entityFieldCache sync.Map // reflect.Type -> []entityField

// entityFields lists the attributes T encodes to, in struct order, following the same
// dynamodbav tag rules as the attributevalue encoder. Embedded structs without a tag name
// are flattened. A non-struct T has no fields.
func entityFields[T any]() []entityField {
	t := reflect.TypeFor[T]()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if cached, ok := entityFieldCache.Load(t); ok {
		return cached.([]entityField)
	}
	var fields []entityField
	if t.Kind() == reflect.Struct {
		fields = Unique(structFields(t, nil))
	}
	entityFieldCache.Store(t, fields)
	return fields
}

func structFields(t reflect.Type, fields []entityField) []entityField {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("dynamodbav")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		if f.Anonymous && name == "" {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				fields = structFields(ft, fields)
				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		fields = append(fields, entityField{
			Name:      name,
			OmitEmpty: Includes(strings.Split(opts, ","), "omitempty"),
		})
	}
	return fields
}

// hasField returns true if T has a field encoded under the attribute name.
func hasField[T any](name string) bool {
	for _, f := range entityFields[T]() {
		if f.Name == name {
			return true
		}
	}
	return false
}
