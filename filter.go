package apothecary

import (
	"bytes"
	"math/big"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"golang.org/x/exp/constraints"
)

// Filter is a scan predicate. DynamoStore sends it to the server as a filter expression;
// the local stores evaluate the equivalent matcher against each item. Attribute paths may
// use dots to reach into map attributes, e.g. "address.city".
//
// The zero Filter matches everything.
type Filter struct {
	cond  expression.ConditionBuilder
	match func(Item) bool
}

// IsZero reports whether the filter is empty.
func (f Filter) IsZero() bool {
	return f.match == nil
}

// Condition returns the filter as an expression condition.
func (f Filter) Condition() expression.ConditionBuilder {
	return f.cond
}

// Match evaluates the filter against an item.
func (f Filter) Match(item Item) bool {
	return f.match == nil || f.match(item)
}

// AttributeExists matches items that have the attribute.
func AttributeExists(path string) Filter {
	return Filter{
		cond:  expression.AttributeExists(expression.Name(path)),
		match: func(item Item) bool { return lookup(item, path) != nil },
	}
}

// AttributeNotExists matches items that lack the attribute.
func AttributeNotExists(path string) Filter {
	return Filter{
		cond:  expression.AttributeNotExists(expression.Name(path)),
		match: func(item Item) bool { return lookup(item, path) == nil },
	}
}

// Equal matches items whose attribute equals value.
func Equal(path string, value any) Filter {
	want := mustMarshal(value)
	return Filter{
		cond:  expression.Name(path).Equal(expression.Value(value)),
		match: func(item Item) bool { return avEqual(lookup(item, path), want) },
	}
}

// NotEqual matches items that have the attribute with a value other than value.
func NotEqual(path string, value any) Filter {
	want := mustMarshal(value)
	return Filter{
		cond: expression.Name(path).NotEqual(expression.Value(value)),
		match: func(item Item) bool {
			got := lookup(item, path)
			return got != nil && !avEqual(got, want)
		},
	}
}

// LessThan matches items whose attribute sorts before value.
func LessThan[V constraints.Ordered](path string, value V) Filter {
	return ordered(path, value, expression.Name(path).LessThan(expression.Value(value)),
		func(c int) bool { return c < 0 })
}

// LessThanEqual matches items whose attribute sorts before or equal to value.
func LessThanEqual[V constraints.Ordered](path string, value V) Filter {
	return ordered(path, value, expression.Name(path).LessThanEqual(expression.Value(value)),
		func(c int) bool { return c <= 0 })
}

// GreaterThan matches items whose attribute sorts after value.
func GreaterThan[V constraints.Ordered](path string, value V) Filter {
	return ordered(path, value, expression.Name(path).GreaterThan(expression.Value(value)),
		func(c int) bool { return c > 0 })
}

// GreaterThanEqual matches items whose attribute sorts after or equal to value.
func GreaterThanEqual[V constraints.Ordered](path string, value V) Filter {
	return ordered(path, value, expression.Name(path).GreaterThanEqual(expression.Value(value)),
		func(c int) bool { return c >= 0 })
}

func ordered(path string, value any, cond expression.ConditionBuilder, ok func(int) bool) Filter {
	want := mustMarshal(value)
	return Filter{
		cond: cond,
		match: func(item Item) bool {
			c, comparable := avCompare(lookup(item, path), want)
			return comparable && ok(c)
		},
	}
}

// BeginsWith matches string attributes with the given prefix.
func BeginsWith(path, prefix string) Filter {
	return Filter{
		cond: expression.Name(path).BeginsWith(prefix),
		match: func(item Item) bool {
			s, ok := lookup(item, path).(*types.AttributeValueMemberS)
			return ok && strings.HasPrefix(s.Value, prefix)
		},
	}
}

// Contains matches string attributes containing substr, and string sets or lists holding it.
func Contains(path, substr string) Filter {
	return Filter{
		cond: expression.Name(path).Contains(substr),
		match: func(item Item) bool {
			switch v := lookup(item, path).(type) {
			case *types.AttributeValueMemberS:
				return strings.Contains(v.Value, substr)
			case *types.AttributeValueMemberSS:
				return Includes(v.Value, substr)
			case *types.AttributeValueMemberL:
				want := &types.AttributeValueMemberS{Value: substr}
				for _, e := range v.Value {
					if avEqual(e, want) {
						return true
					}
				}
			}
			return false
		},
	}
}

// And matches items that satisfy every filter. Zero filters are skipped.
func And(filters ...Filter) Filter {
	return combine(filters, expression.And, func(a, b bool) bool { return a && b })
}

// Or matches items that satisfy any filter. Zero filters are skipped.
func Or(filters ...Filter) Filter {
	return combine(filters, expression.Or, func(a, b bool) bool { return a || b })
}

func combine(filters []Filter,
	join func(expression.ConditionBuilder, expression.ConditionBuilder, ...expression.ConditionBuilder) expression.ConditionBuilder,
	op func(bool, bool) bool,
) Filter {
	var fs []Filter
	for _, f := range filters {
		if !f.IsZero() {
			fs = append(fs, f)
		}
	}
	switch len(fs) {
	case 0:
		return Filter{}
	case 1:
		return fs[0]
	}
	conds := Map(fs[2:], func(f Filter) expression.ConditionBuilder { return f.cond })
	return Filter{
		cond: join(fs[0].cond, fs[1].cond, conds...),
		match: func(item Item) bool {
			result := fs[0].match(item)
			for _, f := range fs[1:] {
				result = op(result, f.match(item))
			}
			return result
		},
	}
}

// Not negates a filter. Not of the zero Filter is the zero Filter.
func Not(f Filter) Filter {
	if f.IsZero() {
		return f
	}
	return Filter{
		cond:  expression.Not(f.cond),
		match: func(item Item) bool { return !f.match(item) },
	}
}

func mustMarshal(value any) types.AttributeValue {
	if av, ok := value.(types.AttributeValue); ok {
		return av
	}
	av, err := attributevalue.Marshal(value)
	if err != nil {
		return &types.AttributeValueMemberNULL{Value: true}
	}
	return av
}

// lookup resolves a dotted path through nested map attributes.
func lookup(item Item, path string) types.AttributeValue {
	parts := strings.Split(path, ".")
	av, ok := item[parts[0]]
	if !ok {
		return nil
	}
	for _, p := range parts[1:] {
		m, isMap := av.(*types.AttributeValueMemberM)
		if !isMap {
			return nil
		}
		if av, ok = m.Value[p]; !ok {
			return nil
		}
	}
	return av
}

// avCompare orders two scalar values of the same kind.
func avCompare(a, b types.AttributeValue) (int, bool) {
	switch x := a.(type) {
	case *types.AttributeValueMemberS:
		y, ok := b.(*types.AttributeValueMemberS)
		if !ok {
			return 0, false
		}
		return strings.Compare(x.Value, y.Value), true
	case *types.AttributeValueMemberN:
		y, ok := b.(*types.AttributeValueMemberN)
		if !ok {
			return 0, false
		}
		return compareNumbers(x.Value, y.Value)
	case *types.AttributeValueMemberB:
		y, ok := b.(*types.AttributeValueMemberB)
		if !ok {
			return 0, false
		}
		return bytes.Compare(x.Value, y.Value), true
	}
	return 0, false
}

func compareNumbers(a, b string) (int, bool) {
	x, okA := new(big.Float).SetString(a)
	y, okB := new(big.Float).SetString(b)
	if !okA || !okB {
		return 0, false
	}
	return x.Cmp(y), true
}

// avEqual compares two attribute values structurally. Sets compare without regard to order.
func avEqual(a, b types.AttributeValue) bool {
	switch x := a.(type) {
	case *types.AttributeValueMemberS, *types.AttributeValueMemberN, *types.AttributeValueMemberB:
		c, ok := avCompare(a, b)
		return ok && c == 0
	case *types.AttributeValueMemberBOOL:
		y, ok := b.(*types.AttributeValueMemberBOOL)
		return ok && x.Value == y.Value
	case *types.AttributeValueMemberNULL:
		_, ok := b.(*types.AttributeValueMemberNULL)
		return ok
	case *types.AttributeValueMemberSS:
		y, ok := b.(*types.AttributeValueMemberSS)
		return ok && sameSet(x.Value, y.Value)
	case *types.AttributeValueMemberNS:
		y, ok := b.(*types.AttributeValueMemberNS)
		return ok && sameSet(x.Value, y.Value)
	case *types.AttributeValueMemberBS:
		y, ok := b.(*types.AttributeValueMemberBS)
		return ok && sameSet(Map(x.Value, func(v []byte) string { return string(v) }),
			Map(y.Value, func(v []byte) string { return string(v) }))
	case *types.AttributeValueMemberL:
		y, ok := b.(*types.AttributeValueMemberL)
		if !ok || len(x.Value) != len(y.Value) {
			return false
		}
		for i := range x.Value {
			if !avEqual(x.Value[i], y.Value[i]) {
				return false
			}
		}
		return true
	case *types.AttributeValueMemberM:
		y, ok := b.(*types.AttributeValueMemberM)
		if !ok || len(x.Value) != len(y.Value) {
			return false
		}
		for k, v := range x.Value {
			if !avEqual(v, y.Value[k]) {
				return false
			}
		}
		return true
	}
	return false
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for _, v := range a {
		if !Includes(b, v) {
			return false
		}
	}
	return true
}
