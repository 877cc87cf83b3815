package apothecary

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type rsvpRow struct {
	RSVPID         string   `dynamodbav:"rsvp_id"`
	Name           string   `dynamodbav:"name"`
	Guests         []string `dynamodbav:"guests"`
	Notes          string   `dynamodbav:"notes"`
	Zebra          string   `dynamodbav:"zebra,omitempty"`
	Attending      bool     `dynamodbav:"attending"`
	MealPreference *string  `dynamodbav:"meal_preference"`
}

var rsvpRowSchema = Schema{
	EntityType: "RSVP",
	TableName:  "RSVP",
	PartKey:    KeyDef{Name: "rsvp_id", Kind: KindString},
	Attributes: []Attribute{
		{Name: "name", Kind: KindString, Required: true},
		{Name: "notes", Kind: KindString},
	},
}

func TestCSVHeader(t *testing.T) {
	expect := assert.New(t)
	item, err := rsvpRowSchema.Encode(rsvpRow{RSVPID: "jane doe", Name: "Jane Doe", Zebra: "z"})
	if expect.NoError(err) {
		expect.Equal([]string{"rsvp_id", "name", "notes", "attending", "zebra"},
			CSVHeader(rsvpRowSchema, item))
		expect.Equal([]string{"rsvp_id", "name", "notes", "attending", "guests", "meal_preference", "zebra"},
			entityHeader[rsvpRow](rsvpRowSchema, item))
	}
}

func TestCSVWriter(t *testing.T) {
	expect := assert.New(t)
	var buf bytes.Buffer
	w := NewCSVWriter[rsvpRow](&buf, rsvpRowSchema)
	rows := []rsvpRow{
		{RSVPID: "jane doe", Name: "Jane \"JD\" Doe", Guests: []string{"Jane", "John"}, Notes: "N/A", Attending: true},
		{RSVPID: "bob", Name: "Bob", Notes: "a, b", MealPreference: meal("fish")},
	}
	n, err := w.WriteAll(func(yield func(rsvpRow, error) bool) {
		for _, r := range rows {
			if !yield(r, nil) {
				return
			}
		}
	})
	if expect.NoError(err) {
		expect.Equal(2, n)
		lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
		if expect.Len(lines, 3) {
			expect.Equal(`"rsvp_id","name","notes","attending","guests","meal_preference"`, lines[0])
			expect.Equal(`"jane doe","Jane ""JD"" Doe","N/A","true","[""Jane"",""John""]",""`, lines[1])
			expect.Equal(`"bob","Bob","a, b","false","","fish"`, lines[2])
		}
		expect.Equal([]string{"rsvp_id", "name", "notes", "attending", "guests", "meal_preference"}, w.Header())
	}
}
