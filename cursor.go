package apothecary

import (
	"bytes"
	"encoding/base64"
	"encoding/gob"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func init() {
	// Register attribute value types with gob
	gob.Register(map[string]types.AttributeValue{})
	gob.Register(&types.AttributeValueMemberS{})
	gob.Register(&types.AttributeValueMemberN{})
	gob.Register(&types.AttributeValueMemberB{})
	gob.Register(&types.AttributeValueMemberSS{})
	gob.Register(&types.AttributeValueMemberNS{})
	gob.Register(&types.AttributeValueMemberBS{})
	gob.Register(&types.AttributeValueMemberM{})
	gob.Register(&types.AttributeValueMemberL{})
	gob.Register(&types.AttributeValueMemberNULL{})
	gob.Register(&types.AttributeValueMemberBOOL{})
}

// Cursor is an opaque, URL-safe position in a paginated scan. The empty Cursor denotes the
// first page.
type Cursor string

// Page is one page of scan results. Next is empty when there are no more pages.
type Page[T any] struct {
	Items []T
	Next  Cursor
}

// NewCursor encodes the last evaluated key of a page. A nil key yields the empty Cursor.
func NewCursor(lastKey Item) (Cursor, error) {
	if len(lastKey) == 0 {
		return "", nil
	}
	b, err := marshalItem(lastKey)
	if err != nil {
		return "", fmt.Errorf("failed to encode cursor: %w", err)
	}
	return Cursor(base64.RawURLEncoding.EncodeToString(b)), nil
}

// Key decodes the cursor back into the exclusive start key. The empty Cursor yields nil.
func (c Cursor) Key() (Item, error) {
	if c == "" {
		return nil, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(string(c))
	if err != nil {
		return nil, fmt.Errorf("invalid cursor: %w", err)
	}
	item, err := unmarshalItem(b)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor: %w", err)
	}
	return item, nil
}

// marshalItem gob-encodes an item.
func marshalItem(item Item) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(item); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// unmarshalItem decodes an item written by marshalItem.
func unmarshalItem(b []byte) (Item, error) {
	var item Item
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&item); err != nil {
		return nil, err
	}
	return item, nil
}
