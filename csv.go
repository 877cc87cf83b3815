package apothecary

import (
	"bufio"
	"encoding/base64"
	"io"
	"iter"
	"sort"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// CSVHeader returns the column order for an item: the partition key, the sort key (if any),
// the declared attributes, then any remaining attributes sorted by name. Discriminator
// attributes are not exported.
func CSVHeader(schema Schema, item Item) []string {
	header := schema.FieldNames()
	var extra []string
	for _, name := range sortedNames(withoutTag(item)) {
		if !Includes(header, name) {
			extra = append(extra, name)
		}
	}
	return append(header, extra...)
}

// entityHeader is CSVHeader with a column for every field of T that is not omitempty, so
// the header does not depend on which fields of the first entity are nil.
func entityHeader[T any](schema Schema, item Item) []string {
	names := withoutTag(item)
	for _, f := range entityFields[T]() {
		if _, ok := names[f.Name]; !ok && !f.OmitEmpty {
			names[f.Name] = nil
		}
	}
	return CSVHeader(schema, names)
}

// CSVRecord renders the item's values in header order. Missing and null values are empty,
// lists, maps and sets are JSON, and binary values are base64.
func CSVRecord(header []string, item Item) []string {
	return Map(header, func(name string) string { return csvValue(item[name]) })
}

func csvValue(av types.AttributeValue) string {
	switch av.(type) {
	case nil, *types.AttributeValueMemberNULL:
		return ""
	case *types.AttributeValueMemberL, *types.AttributeValueMemberM,
		*types.AttributeValueMemberSS, *types.AttributeValueMemberNS, *types.AttributeValueMemberBS:
		j, err := ValueJSON(av)
		if err != nil {
			return ""
		}
		return string(j)
	default:
		return scalarText(av)
	}
}

func scalarText(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return v.Value
	case *types.AttributeValueMemberB:
		return base64.StdEncoding.EncodeToString(v.Value)
	case *types.AttributeValueMemberBOOL:
		return strconv.FormatBool(v.Value)
	}
	return ""
}

func sortedNames(item Item) []string {
	names := make([]string, 0, len(item))
	for name := range item {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CSVWriter writes entities as CSV rows with every field double-quoted. The header is
// derived from the entity type and the first entity written.
type CSVWriter[T any] struct {
	w      *bufio.Writer
	schema Schema
	header []string
}

// NewCSVWriter returns a CSVWriter for entities of the schema.
func NewCSVWriter[T any](w io.Writer, schema Schema) *CSVWriter[T] {
	return &CSVWriter[T]{w: bufio.NewWriter(w), schema: schema}
}

// Header returns the header written so far, or nil before the first entity.
func (cw *CSVWriter[T]) Header() []string {
	return cw.header
}

// Write writes one entity, preceded by the header if it is the first.
func (cw *CSVWriter[T]) Write(entity T) error {
	item, err := cw.schema.Encode(entity)
	if err != nil {
		return err
	}
	if cw.header == nil {
		cw.header = entityHeader[T](cw.schema, item)
		if err = cw.writeRow(cw.header); err != nil {
			return err
		}
	}
	return cw.writeRow(CSVRecord(cw.header, item))
}

// WriteAll writes every entity produced by the sequence and flushes. It returns the number of
// entities written.
func (cw *CSVWriter[T]) WriteAll(entities iter.Seq2[T, error]) (int, error) {
	n := 0
	for entity, err := range entities {
		if err != nil {
			return n, err
		}
		if err = cw.Write(entity); err != nil {
			return n, err
		}
		n++
	}
	return n, cw.Flush()
}

// Flush writes any buffered data to the underlying writer.
func (cw *CSVWriter[T]) Flush() error {
	return cw.w.Flush()
}

func (cw *CSVWriter[T]) writeRow(fields []string) error {
	quoted := Map(fields, func(f string) string {
		return `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	})
	_, err := cw.w.WriteString(strings.Join(quoted, ",") + "\n")
	return err
}
