package apothecary

import (
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
)

func TestSchema_Describe(t *testing.T) {
	expect := assert.New(t)
	expect.Equal(Descriptor{TableName: "Section", PartKeyName: "section_group_id"}, sectionSchema.Describe())
	expect.Equal(Descriptor{TableName: "Guest", PartKeyName: "rsvp_id", SortKeyName: "guest_id"}, guestSchema.Describe())
}

func TestSchema_KeySchema(t *testing.T) {
	expect := assert.New(t)
	ks := guestSchema.KeySchema()
	if expect.Len(ks, 2) {
		expect.Equal(types.KeyTypeHash, ks[0].KeyType)
		expect.Equal("rsvp_id", aws.ToString(ks[0].AttributeName))
		expect.Equal(types.KeyTypeRange, ks[1].KeyType)
		expect.Equal("guest_id", aws.ToString(ks[1].AttributeName))
	}
	expect.Equal("rsvp_id", guestSchema.HashKey())
	expect.Equal("guest_id", guestSchema.RangeKey())
	expect.Len(sectionSchema.KeySchema(), 1)
	expect.Equal("section_group_id", sectionSchema.HashKey())
	expect.Equal("", sectionSchema.RangeKey())

	defs := guestSchema.AttributeDefinitions()
	if expect.Len(defs, 2) {
		expect.Equal(types.ScalarAttributeTypeS, defs[0].AttributeType)
		expect.Equal(types.ScalarAttributeTypeN, defs[1].AttributeType)
	}
}

func TestSchema_WithPrefix(t *testing.T) {
	expect := assert.New(t)
	prefixed := sectionSchema.WithPrefix("alice_")
	expect.Equal("alice_Section", prefixed.TableName)
	expect.Equal("Section", sectionSchema.TableName)
	prefixed.Attributes[0].Required = false
	expect.True(sectionSchema.Attributes[0].Required)
}

func TestSchema_Check(t *testing.T) {
	expect := assert.New(t)
	expect.NoError(sectionSchema.Check())
	expect.NoError(guestSchema.Check())

	tests := []struct {
		name   string
		modify func(s *Schema)
		want   string
	}{
		{"no entity type", func(s *Schema) { s.EntityType = "" }, "entity type"},
		{"no table", func(s *Schema) { s.TableName = "" }, "table name"},
		{"bad partition key", func(s *Schema) { s.PartKey.Kind = KindList }, "partition key"},
		{"bad sort key", func(s *Schema) { s.SortKey.Kind = KindBool }, "sort key"},
		{"sort key repeats", func(s *Schema) { s.SortKey.Name = "rsvp_id" }, "repeats"},
		{"attribute is key", func(s *Schema) { s.Attributes = append(s.Attributes, Attribute{Name: "guest_id", Kind: KindNumber}) }, "is a key"},
		{"attribute twice", func(s *Schema) { s.Attributes = append(s.Attributes, Attribute{Name: "name", Kind: KindString}) }, "twice"},
		{"discriminator", func(s *Schema) { s.Attributes = append(s.Attributes, Attribute{Name: AttrEntity, Kind: KindString}) }, "not allowed"},
		{"no kind", func(s *Schema) { s.Attributes = append(s.Attributes, Attribute{Name: "notes"}) }, "no kind"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := guestSchema.WithPrefix("")
			tt.modify(&s)
			err := s.Check()
			if assert.ErrorIs(t, err, ErrInvalidSchema) {
				assert.True(t, strings.Contains(err.Error(), tt.want), err.Error())
			}
		})
	}
}

func TestSchema_Validate(t *testing.T) {
	expect := assert.New(t)
	item := Item{
		"rsvp_id":         &types.AttributeValueMemberS{Value: "jane doe"},
		"guest_id":        &types.AttributeValueMemberN{Value: "1"},
		"meal_preference": &types.AttributeValueMemberN{Value: "3"},
	}
	results := guestSchema.Validate(item)
	expect.Equal([]FieldResult{
		{Field: "name", Problem: "is required"},
		{Field: "meal_preference", Problem: "has kind N, expected S"},
	}, results)

	item["name"] = &types.AttributeValueMemberS{Value: "Jane"}
	item["meal_preference"] = &types.AttributeValueMemberNULL{Value: true}
	for _, r := range guestSchema.Validate(item) {
		expect.True(r.OK(), r.Field)
	}
	expect.NoError(guestSchema.failed(guestSchema.Validate(item)))
}

func TestSchema_EncodeStampsDiscriminator(t *testing.T) {
	expect := assert.New(t)
	s := guestSchema
	s.Version = 3
	item, err := s.Encode(guest{RSVPID: "jane doe", GuestID: 1, Name: "Jane"})
	if expect.NoError(err) {
		expect.Equal(&types.AttributeValueMemberS{Value: "Guest"}, item[AttrEntity])
		expect.Equal(&types.AttributeValueMemberN{Value: "3"}, item[AttrVersion])
		expect.NoError(s.checkTag(item))
		expect.ErrorIs(guestSchema.checkTag(item), ErrSchemaMismatch)
		expect.ErrorIs(sectionSchema.checkTag(item), ErrSchemaMismatch)
		expect.NotContains(withoutTag(item), AttrEntity)
	}
}

func TestSchema_KeyOf(t *testing.T) {
	expect := assert.New(t)
	_, err := guestSchema.KeyOf(Item{"rsvp_id": &types.AttributeValueMemberS{Value: "jane doe"}})
	expect.ErrorIs(err, ErrMissingKey)
	_, err = guestSchema.KeyOf(Item{
		"rsvp_id":  &types.AttributeValueMemberS{Value: "jane doe"},
		"guest_id": &types.AttributeValueMemberNULL{Value: true},
	})
	expect.ErrorIs(err, ErrMissingKey)
	_, err = guestSchema.KeyOf(Item{
		"rsvp_id":  &types.AttributeValueMemberS{Value: "jane doe"},
		"guest_id": &types.AttributeValueMemberS{Value: "1"},
	})
	expect.ErrorIs(err, ErrInvalidKey)
}
