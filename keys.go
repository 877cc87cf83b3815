package apothecary

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// KeyOf extracts the primary key from an encoded item. It fails with ErrMissingKey when a key
// attribute is absent or empty and with ErrInvalidKey when it has the wrong kind.
func (s Schema) KeyOf(item Item) (Item, error) {
	key := make(Item, 2)
	pk, err := s.PartKey.from(item)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.EntityType, err)
	}
	key[s.PartKey.Name] = pk
	if s.HasSortKey() {
		sk, err := s.SortKey.from(item)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.EntityType, err)
		}
		key[s.SortKey.Name] = sk
	}
	return key, nil
}

func (kd KeyDef) from(item Item) (types.AttributeValue, error) {
	av, ok := item[kd.Name]
	if !ok || isEmptyKey(av) {
		return nil, fmt.Errorf("%w: %s", ErrMissingKey, kd.Name)
	}
	if k := kindOf(av); k != kd.Kind {
		return nil, fmt.Errorf("%w: %s has kind %s, expected %s", ErrInvalidKey, kd.Name, k, kd.Kind)
	}
	return av, nil
}

// value converts a caller-supplied key value into an attribute value of the key's kind.
func (kd KeyDef) value(v any) (types.AttributeValue, error) {
	av, ok := v.(types.AttributeValue)
	if !ok {
		var err error
		if av, err = attributevalue.Marshal(v); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidKey, kd.Name, err)
		}
	}
	if isEmptyKey(av) {
		return nil, fmt.Errorf("%w: %s", ErrMissingKey, kd.Name)
	}
	if k := kindOf(av); k != kd.Kind {
		return nil, fmt.Errorf("%w: %s has kind %s, expected %s", ErrInvalidKey, kd.Name, k, kd.Kind)
	}
	return av, nil
}

func isEmptyKey(av types.AttributeValue) bool {
	switch v := av.(type) {
	case nil:
		return true
	case *types.AttributeValueMemberNULL:
		return true
	case *types.AttributeValueMemberS:
		return v.Value == ""
	case *types.AttributeValueMemberB:
		return len(v.Value) == 0
	case *types.AttributeValueMemberN:
		return v.Value == ""
	}
	return false
}

// lookupKey builds a primary key from caller-supplied values.
func (s Schema) lookupKey(partValue any, sortValues []any) (Item, error) {
	pk, err := s.PartKey.value(partValue)
	if err != nil {
		return nil, err
	}
	key := Item{s.PartKey.Name: pk}
	switch {
	case s.HasSortKey() && len(sortValues) == 0:
		return nil, fmt.Errorf("%w: %s requires a %s value", ErrAmbiguousKey, s.TableName, s.SortKey.Name)
	case !s.HasSortKey() && len(sortValues) > 0:
		return nil, fmt.Errorf("%w: %s has no sort key", ErrInvalidKey, s.TableName)
	case len(sortValues) > 1:
		return nil, fmt.Errorf("%w: %d sort key values supplied", ErrInvalidKey, len(sortValues))
	case s.HasSortKey():
		sk, err := s.SortKey.value(sortValues[0])
		if err != nil {
			return nil, err
		}
		key[s.SortKey.Name] = sk
	}
	return key, nil
}
