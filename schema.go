package apothecary

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Item is a stored record: attribute name to typed attribute value.
type Item = map[string]types.AttributeValue

// Kind is a DynamoDB attribute type descriptor.
type Kind string

const (
	KindString    Kind = "S"
	KindNumber    Kind = "N"
	KindBinary    Kind = "B"
	KindBool      Kind = "BOOL"
	KindList      Kind = "L"
	KindMap       Kind = "M"
	KindStringSet Kind = "SS"
	KindNumberSet Kind = "NS"
	KindBinarySet Kind = "BS"
	KindNull      Kind = "NULL"
)

// IsKeyKind reports whether the kind may be used for a partition or sort key.
func (k Kind) IsKeyKind() bool {
	return k == KindString || k == KindNumber || k == KindBinary
}

func (k Kind) scalarType() types.ScalarAttributeType {
	switch k {
	case KindNumber:
		return types.ScalarAttributeTypeN
	case KindBinary:
		return types.ScalarAttributeTypeB
	default:
		return types.ScalarAttributeTypeS
	}
}

// kindOf returns the Kind of an attribute value, or "" for nil.
func kindOf(av types.AttributeValue) Kind {
	switch av.(type) {
	case *types.AttributeValueMemberS:
		return KindString
	case *types.AttributeValueMemberN:
		return KindNumber
	case *types.AttributeValueMemberB:
		return KindBinary
	case *types.AttributeValueMemberBOOL:
		return KindBool
	case *types.AttributeValueMemberL:
		return KindList
	case *types.AttributeValueMemberM:
		return KindMap
	case *types.AttributeValueMemberSS:
		return KindStringSet
	case *types.AttributeValueMemberNS:
		return KindNumberSet
	case *types.AttributeValueMemberBS:
		return KindBinarySet
	case *types.AttributeValueMemberNULL:
		return KindNull
	default:
		return ""
	}
}

// KeyDef names a key attribute and its kind. A KeyDef with an empty Name means "no key".
type KeyDef struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// Attribute declares a non-key attribute. Required attributes must be present, non-null and,
// for strings and binaries, non-empty on every write.
type Attribute struct {
	Name     string `json:"name"`
	Kind     Kind   `json:"kind"`
	Required bool   `json:"required,omitempty"`
}

// Schema describes how one entity type is stored.
//
// The discriminator attributes written with every item are EntityType and Version. A zero
// Version is treated as 1. ReadCapacity and WriteCapacity select provisioned throughput when
// both are positive; otherwise tables are created with on-demand billing.
type Schema struct {
	EntityType    string      `json:"entityType"`
	TableName     string      `json:"tableName"`
	PartKey       KeyDef      `json:"partKey"`
	SortKey       KeyDef      `json:"sortKey"`
	Attributes    []Attribute `json:"attributes,omitempty"`
	Version       int         `json:"version,omitempty"`
	ReadCapacity  int64       `json:"readCapacity,omitempty"`
	WriteCapacity int64       `json:"writeCapacity,omitempty"`
}

// Descriptor is the static description of an entity's table and key attribute names.
type Descriptor struct {
	TableName   string
	PartKeyName string
	SortKeyName string
}

// Describe returns the table name and key attribute names. SortKeyName is empty when the
// table has no sort key.
func (s Schema) Describe() Descriptor {
	return Descriptor{
		TableName:   s.TableName,
		PartKeyName: s.PartKey.Name,
		SortKeyName: s.SortKey.Name,
	}
}

// HasSortKey reports whether the schema declares a sort key.
func (s Schema) HasSortKey() bool {
	return s.SortKey.Name != ""
}

// SchemaVersion returns the effective schema version.
func (s Schema) SchemaVersion() int {
	if s.Version <= 0 {
		return 1
	}
	return s.Version
}

// KeySchema returns the HASH element followed by the RANGE element, if any.
func (s Schema) KeySchema() []types.KeySchemaElement {
	elements := []types.KeySchemaElement{{
		AttributeName: aws.String(s.PartKey.Name),
		KeyType:       types.KeyTypeHash,
	}}
	if s.HasSortKey() {
		elements = append(elements, types.KeySchemaElement{
			AttributeName: aws.String(s.SortKey.Name),
			KeyType:       types.KeyTypeRange,
		})
	}
	return elements
}

// HashKey returns the name of the partition key attribute.
func (s Schema) HashKey() string {
	return s.keyNamed(types.KeyTypeHash)
}

// RangeKey returns the name of the sort key attribute, or "" if there is none.
func (s Schema) RangeKey() string {
	return s.keyNamed(types.KeyTypeRange)
}

func (s Schema) keyNamed(keyType types.KeyType) string {
	for _, e := range s.KeySchema() {
		if e.KeyType == keyType {
			return aws.ToString(e.AttributeName)
		}
	}
	return ""
}

// AttributeDefinitions returns the key attribute definitions needed to create the table.
func (s Schema) AttributeDefinitions() []types.AttributeDefinition {
	defs := []types.AttributeDefinition{{
		AttributeName: aws.String(s.PartKey.Name),
		AttributeType: s.PartKey.Kind.scalarType(),
	}}
	if s.HasSortKey() {
		defs = append(defs, types.AttributeDefinition{
			AttributeName: aws.String(s.SortKey.Name),
			AttributeType: s.SortKey.Kind.scalarType(),
		})
	}
	return defs
}

// WithPrefix returns a copy of the schema whose table name carries the given prefix.
func (s Schema) WithPrefix(prefix string) Schema {
	s.TableName = prefix + s.TableName
	s.Attributes = append([]Attribute(nil), s.Attributes...)
	return s
}

// IsKey reports whether name is the partition or sort key attribute.
func (s Schema) IsKey(name string) bool {
	return name == s.PartKey.Name || (s.HasSortKey() && name == s.SortKey.Name)
}

// Attribute returns the declared attribute with the given name.
func (s Schema) Attribute(name string) (Attribute, bool) {
	for _, a := range s.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// FieldNames returns the key names followed by the declared attribute names, in declaration order.
func (s Schema) FieldNames() []string {
	names := []string{s.PartKey.Name}
	if s.HasSortKey() {
		names = append(names, s.SortKey.Name)
	}
	for _, a := range s.Attributes {
		names = append(names, a.Name)
	}
	return names
}

// Check verifies that the schema itself is well formed.
func (s Schema) Check() error {
	if s.EntityType == "" {
		return fmt.Errorf("%w: entity type is missing", ErrInvalidSchema)
	}
	if s.TableName == "" {
		return fmt.Errorf("%w: %s table name is missing", ErrInvalidSchema, s.EntityType)
	}
	if s.PartKey.Name == "" || !s.PartKey.Kind.IsKeyKind() {
		return fmt.Errorf("%w: %s partition key %q must have kind S, N or B", ErrInvalidSchema, s.EntityType, s.PartKey.Name)
	}
	if s.HasSortKey() {
		if !s.SortKey.Kind.IsKeyKind() {
			return fmt.Errorf("%w: %s sort key %q must have kind S, N or B", ErrInvalidSchema, s.EntityType, s.SortKey.Name)
		}
		if s.SortKey.Name == s.PartKey.Name {
			return fmt.Errorf("%w: %s sort key repeats the partition key", ErrInvalidSchema, s.EntityType)
		}
	}
	seen := make(map[string]bool, len(s.Attributes))
	for _, a := range s.Attributes {
		if a.Name == "" || isDiscriminator(a.Name) {
			return fmt.Errorf("%w: %s attribute name %q is not allowed", ErrInvalidSchema, s.EntityType, a.Name)
		}
		if s.IsKey(a.Name) {
			return fmt.Errorf("%w: %s attribute %q is a key", ErrInvalidSchema, s.EntityType, a.Name)
		}
		if seen[a.Name] {
			return fmt.Errorf("%w: %s attribute %q is declared twice", ErrInvalidSchema, s.EntityType, a.Name)
		}
		if a.Kind == "" || a.Kind == KindNull {
			return fmt.Errorf("%w: %s attribute %q has no kind", ErrInvalidSchema, s.EntityType, a.Name)
		}
		seen[a.Name] = true
	}
	return nil
}

// Validate checks every declared attribute of an encoded item in a single pass and returns one
// result per attribute. Keys are checked separately by KeyOf.
func (s Schema) Validate(item Item) []FieldResult {
	results := make([]FieldResult, 0, len(s.Attributes))
	for _, a := range s.Attributes {
		results = append(results, a.check(item[a.Name]))
	}
	return results
}

func (a Attribute) check(av types.AttributeValue) FieldResult {
	r := FieldResult{Field: a.Name}
	switch k := kindOf(av); {
	case k == "" || k == KindNull || isEmptyKey(av):
		if a.Required {
			r.Problem = "is required"
		}
	case k != a.Kind:
		r.Problem = fmt.Sprintf("has kind %s, expected %s", k, a.Kind)
	}
	return r
}

// failed returns a ValidationError if any result failed, otherwise nil.
func (s Schema) failed(results []FieldResult) error {
	var bad []FieldResult
	for _, r := range results {
		if !r.OK() {
			bad = append(bad, r)
		}
	}
	if len(bad) == 0 {
		return nil
	}
	return &ValidationError{EntityType: s.EntityType, Results: bad}
}
