package apothecary

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ToJSON serializes the provided value as a JSON byte slice.
func ToJSON[T any](t T) ([]byte, error) {
	return json.Marshal(t)
}

// FromJSON deserializes the provided JSON byte slice into a value.
func FromJSON[T any](j []byte) (T, error) {
	var t T
	err := json.NewDecoder(bytes.NewReader(j)).Decode(&t)
	return t, err
}

// ValueJSON renders an attribute value as plain JSON: maps become objects, lists and sets
// become arrays, numbers stay numbers.
func ValueJSON(av types.AttributeValue) ([]byte, error) {
	var v any
	if err := attributevalue.Unmarshal(av, &v); err != nil {
		return nil, fmt.Errorf("failed decoding %s value: %w", kindOf(av), err)
	}
	return ToJSON(v)
}
