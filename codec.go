package apothecary

import (
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Discriminator attributes stamped on every item.
const (
	AttrEntity  = "_entity"
	AttrVersion = "_version"
)

func isDiscriminator(name string) bool {
	return name == AttrEntity || name == AttrVersion
}

// Encode converts an entity into an item using its dynamodbav struct tags and stamps the
// entity type and schema version. Top-level null attributes are dropped, so a nil field is
// stored the same way whether it was written by Put or removed by Update.
func (s Schema) Encode(entity any) (Item, error) {
	item, err := attributevalue.MarshalMap(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", s.EntityType, err)
	}
	if item == nil {
		item = make(Item)
	}
	for name, av := range item {
		if _, null := av.(*types.AttributeValueMemberNULL); null {
			delete(item, name)
		}
	}
	s.stamp(item)
	return item, nil
}

func (s Schema) stamp(item Item) {
	item[AttrEntity] = &types.AttributeValueMemberS{Value: s.EntityType}
	item[AttrVersion] = &types.AttributeValueMemberN{Value: strconv.Itoa(s.SchemaVersion())}
}

// checkTag verifies that an item was written for this entity type and schema version.
func (s Schema) checkTag(item Item) error {
	entity, ok := item[AttrEntity].(*types.AttributeValueMemberS)
	if !ok || entity.Value != s.EntityType {
		return fmt.Errorf("%w: item in %s is not a %s", ErrSchemaMismatch, s.TableName, s.EntityType)
	}
	version, ok := item[AttrVersion].(*types.AttributeValueMemberN)
	if !ok {
		return fmt.Errorf("%w: %s item has no schema version", ErrSchemaMismatch, s.EntityType)
	}
	if n, err := strconv.Atoi(version.Value); err != nil || n != s.SchemaVersion() {
		return fmt.Errorf("%w: %s item has schema version %s, expected %d",
			ErrSchemaMismatch, s.EntityType, version.Value, s.SchemaVersion())
	}
	return nil
}

// decode converts a stored item back into an entity after checking its discriminator.
func decode[T any](s Schema, item Item) (T, error) {
	var entity T
	if err := s.checkTag(item); err != nil {
		return entity, err
	}
	if err := attributevalue.UnmarshalMap(item, &entity); err != nil {
		return entity, fmt.Errorf("failed to decode %s: %w", s.EntityType, err)
	}
	return entity, nil
}

// withoutTag returns a shallow copy of the item without discriminator attributes.
func withoutTag(item Item) Item {
	c := make(Item, len(item))
	for k, v := range item {
		if !isDiscriminator(k) {
			c[k] = v
		}
	}
	return c
}
