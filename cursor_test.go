package apothecary

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
)

func TestCursor(t *testing.T) {
	expect := assert.New(t)
	key := Item{
		"rsvp_id":  &types.AttributeValueMemberS{Value: "jane doe"},
		"guest_id": &types.AttributeValueMemberN{Value: "12"},
	}
	c, err := NewCursor(key)
	if expect.NoError(err) {
		expect.NotEmpty(c)
		expect.NotContains(string(c), "/")
		expect.NotContains(string(c), "+")
		got, err := c.Key()
		if expect.NoError(err) {
			expect.Equal(key, got)
		}
	}

	empty, err := NewCursor(nil)
	expect.NoError(err)
	expect.Equal(Cursor(""), empty)
	got, err := empty.Key()
	expect.NoError(err)
	expect.Nil(got)

	_, err = Cursor("bm90IGdvYg").Key()
	expect.Error(err)
}

func TestMarshalItem(t *testing.T) {
	expect := assert.New(t)
	b, err := marshalItem(rsvpItem)
	if expect.NoError(err) {
		got, err := unmarshalItem(b)
		if expect.NoError(err) {
			expect.Equal(rsvpItem, got)
		}
	}
}
