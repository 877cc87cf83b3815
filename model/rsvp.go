package model

import (
	"regexp"
	"strings"
	"time"

	ap "github.com/admarple/apothecary"
	"github.com/voxtechnica/tuid-go"
)

// NotApplicable replaces optional RSVP text fields that were left blank.
const NotApplicable = "N/A"

// RSVPForm is the raw input submitted by a guest.
type RSVPForm struct {
	Name            string `json:"name" yaml:"name"`
	Email           string `json:"email" yaml:"email"`
	Address         string `json:"address" yaml:"address"`
	Guests          string `json:"guests" yaml:"guests"`
	HotelPreference string `json:"hotelPreference" yaml:"hotel_preference"`
	Notes           string `json:"notes" yaml:"notes"`
	MealPreference  string `json:"mealPreference" yaml:"meal_preference"`
}

// RSVP is a stored response, keyed by the normalized name of the person responding. A later
// response from the same name replaces the earlier one.
type RSVP struct {
	RSVPID          string    `dynamodbav:"rsvp_id" json:"rsvpId"`
	Name            string    `dynamodbav:"name" json:"name"`
	Email           string    `dynamodbav:"email" json:"email"`
	Address         string    `dynamodbav:"address" json:"address"`
	Guests          string    `dynamodbav:"guests" json:"guests"`
	HotelPreference string    `dynamodbav:"hotel_preference" json:"hotelPreference"`
	Notes           string    `dynamodbav:"notes" json:"notes"`
	MealPreference  *string   `dynamodbav:"meal_preference,omitempty" json:"mealPreference,omitempty"`
	SubmissionID    string    `dynamodbav:"submission_id" json:"submissionId"`
	SubmittedAt     time.Time `dynamodbav:"submitted_at" json:"submittedAt"`
}

// Guest is one attendee named on an RSVP.
type Guest struct {
	RSVPID         string  `dynamodbav:"rsvp_id" json:"rsvpId"`
	GuestID        string  `dynamodbav:"guest_id" json:"guestId"`
	Name           string  `dynamodbav:"name" json:"name"`
	MealPreference *string `dynamodbav:"meal_preference,omitempty" json:"mealPreference,omitempty"`
}

var spaces = regexp.MustCompile(` +`)

// NormalizeRSVPID lower-cases and trims a name and collapses runs of spaces, so that repeat
// submissions under the same name land on the same RSVP.
func NormalizeRSVPID(name string) string {
	return spaces.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), " ")
}

func orNotApplicable(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotApplicable
	}
	return s
}

// NewRSVP builds an RSVP from a form. Blank optional text fields become "N/A", and a blank meal
// preference is left out entirely. The submission ID is a new TUID, and SubmittedAt is its time.
func NewRSVP(form RSVPForm) RSVP {
	id := tuid.NewID()
	at, _ := id.Time()
	r := RSVP{
		RSVPID:          NormalizeRSVPID(form.Name),
		Name:            orNotApplicable(strings.TrimSpace(form.Name)),
		Email:           orNotApplicable(form.Email),
		Address:         orNotApplicable(form.Address),
		Guests:          orNotApplicable(form.Guests),
		HotelPreference: orNotApplicable(form.HotelPreference),
		Notes:           orNotApplicable(form.Notes),
		SubmissionID:    id.String(),
		SubmittedAt:     at,
	}
	if meal := strings.TrimSpace(form.MealPreference); meal != "" {
		r.MealPreference = &meal
	}
	return r
}

// Validate checks whether the RSVP has all required fields, returning a list of problems.
// If the list is empty, the RSVP is valid.
func (r RSVP) Validate() []string {
	var problems []string
	if r.RSVPID == "" {
		problems = append(problems, "Name is missing")
	}
	if r.SubmissionID == "" || !tuid.IsValid(tuid.TUID(r.SubmissionID)) {
		problems = append(problems, "SubmissionID is missing or invalid")
	}
	if r.SubmittedAt.IsZero() {
		problems = append(problems, "SubmittedAt is missing")
	}
	return problems
}

// GuestNames splits the free-text guest list on commas and new lines, dropping blanks.
// A list of "N/A" names nobody.
func (r RSVP) GuestNames() []string {
	if r.Guests == NotApplicable {
		return nil
	}
	fields := strings.FieldsFunc(r.Guests, func(c rune) bool {
		return c == ',' || c == '\n' || c == ';'
	})
	var names []string
	for _, f := range fields {
		if name := strings.TrimSpace(f); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// NewGuests returns one Guest per name on the RSVP, each sharing the RSVP's meal preference.
func (r RSVP) NewGuests() []Guest {
	names := r.GuestNames()
	guests := make([]Guest, 0, len(names))
	for _, name := range names {
		guests = append(guests, Guest{
			RSVPID:         r.RSVPID,
			GuestID:        tuid.NewID().String(),
			Name:           name,
			MealPreference: r.MealPreference,
		})
	}
	return guests
}

//==============================================================================
// Guest Data Schemas
//==============================================================================

// GuestSchema stores Guests, partitioned by RSVP and ordered by guest ID.
var GuestSchema = ap.Schema{
	EntityType: "Guest",
	TableName:  "Guest",
	PartKey:    ap.KeyDef{Name: "rsvp_id", Kind: ap.KindString},
	SortKey:    ap.KeyDef{Name: "guest_id", Kind: ap.KindString},
	Attributes: []ap.Attribute{
		{Name: "name", Kind: ap.KindString, Required: true},
		{Name: "meal_preference", Kind: ap.KindString},
	},
	ReadCapacity:  2,
	WriteCapacity: 2,
}

// RSVPSchema stores RSVPs, keyed by normalized name.
var RSVPSchema = ap.Schema{
	EntityType: "RSVP",
	TableName:  "RSVP",
	PartKey:    ap.KeyDef{Name: "rsvp_id", Kind: ap.KindString},
	Attributes: []ap.Attribute{
		{Name: "name", Kind: ap.KindString, Required: true},
		{Name: "email", Kind: ap.KindString, Required: true},
		{Name: "address", Kind: ap.KindString, Required: true},
		{Name: "guests", Kind: ap.KindString, Required: true},
		{Name: "hotel_preference", Kind: ap.KindString, Required: true},
		{Name: "notes", Kind: ap.KindString, Required: true},
		{Name: "meal_preference", Kind: ap.KindString},
		{Name: "submission_id", Kind: ap.KindString, Required: true},
		{Name: "submitted_at", Kind: ap.KindString, Required: true},
	},
	ReadCapacity:  2,
	WriteCapacity: 2,
}

// Registry lists every site schema, content tables first.
func Registry() ap.Registry {
	return ap.MustRegistry(NavSchema, SectionSchema, CoupleSchema, GuestSchema, RSVPSchema)
}
