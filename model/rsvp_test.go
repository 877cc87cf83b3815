package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/voxtechnica/tuid-go"
)

func TestNormalizeRSVPID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Jane Doe", "jane doe"},
		{"padded", "  Jane Doe \t", "jane doe"},
		{"runs of spaces", "Jane    van   Doe", "jane van doe"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeRSVPID(tt.in))
		})
	}
}

func TestNewRSVP(t *testing.T) {
	expect := assert.New(t)
	r := NewRSVP(RSVPForm{Name: " Jane  Doe ", Email: "jane@example.com", Guests: "Jane, John"})
	expect.Equal("jane doe", r.RSVPID)
	expect.Equal("Jane  Doe", r.Name)
	expect.Equal("jane@example.com", r.Email)
	expect.Equal(NotApplicable, r.Address)
	expect.Equal(NotApplicable, r.HotelPreference)
	expect.Equal(NotApplicable, r.Notes)
	expect.Nil(r.MealPreference)
	expect.True(tuid.IsValid(tuid.TUID(r.SubmissionID)))
	at, err := tuid.TUID(r.SubmissionID).Time()
	if expect.NoError(err) {
		expect.Equal(at, r.SubmittedAt)
	}
	expect.Empty(r.Validate())

	r = NewRSVP(RSVPForm{Name: "Bob", MealPreference: " fish "})
	if expect.NotNil(r.MealPreference) {
		expect.Equal("fish", *r.MealPreference)
	}
	expect.Equal(NotApplicable, r.Guests)
}

func TestRSVP_Validate(t *testing.T) {
	expect := assert.New(t)
	r := NewRSVP(RSVPForm{})
	expect.Equal([]string{"Name is missing"}, r.Validate())
	expect.Len(RSVP{RSVPID: "x"}.Validate(), 2)
}

func TestRSVP_GuestNames(t *testing.T) {
	expect := assert.New(t)
	expect.Equal([]string{"Jane", "John Doe", "Baby"}, RSVP{Guests: "Jane,  John Doe\nBaby;"}.GuestNames())
	expect.Nil(RSVP{Guests: NotApplicable}.GuestNames())
	expect.Nil(RSVP{Guests: " , "}.GuestNames())

	fish := "fish"
	guests := RSVP{RSVPID: "jane doe", Guests: "Jane, John", MealPreference: &fish}.NewGuests()
	if expect.Len(guests, 2) {
		expect.Equal("jane doe", guests[0].RSVPID)
		expect.Equal("John", guests[1].Name)
		expect.Equal(&fish, guests[1].MealPreference)
		expect.NotEqual(guests[0].GuestID, guests[1].GuestID)
	}
}

func TestCouple(t *testing.T) {
	expect := assert.New(t)
	c := Couple{CoupleID: CoupleID, Her: "Tatiana McLauchlan", Him: "Alex Marple"}
	expect.Equal("Tatiana & Alex", c.Title())
	expect.Empty(c.Validate())
	expect.Equal([]string{"CoupleID is missing", "Him is missing"}, Couple{Her: "Tatiana"}.Validate())
}

func TestRegistry(t *testing.T) {
	expect := assert.New(t)
	var tables []string
	for _, s := range Registry().Schemas() {
		tables = append(tables, s.TableName)
	}
	expect.Equal([]string{"Nav", "Section", "Couple", "Guest", "RSVP"}, tables)
	s, ok := Registry().WithPrefix("alice_").Lookup("RSVP")
	if expect.True(ok) {
		expect.Equal("alice_RSVP", s.TableName)
	}
}
