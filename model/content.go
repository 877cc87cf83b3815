// Package model holds the wedding site's entities, their table schemas, and a Site service that
// reads page content and records RSVPs through the apothecary mapper.
package model

import (
	"fmt"
	"strings"

	ap "github.com/admarple/apothecary"
)

// Nav is one navigation link.
type Nav struct {
	NavID   string `dynamodbav:"nav_id" yaml:"nav_id" json:"navId"`
	Href    string `dynamodbav:"href" yaml:"href" json:"href"`
	Caption string `dynamodbav:"caption" yaml:"caption" json:"caption"`
}

// NavGroup is an ordered list of links, such as the page header or footer.
type NavGroup struct {
	NavGroupID string `dynamodbav:"nav_group_id" yaml:"nav_group_id" json:"navGroupId"`
	Navs       []Nav  `dynamodbav:"navs" yaml:"navs" json:"navs"`
}

// Section is a titled block of page text. Text may contain HTML markup.
type Section struct {
	SectionID string `dynamodbav:"section_id" yaml:"section_id" json:"sectionId"`
	Title     string `dynamodbav:"title" yaml:"title" json:"title"`
	Text      string `dynamodbav:"text" yaml:"text" json:"text"`
}

// SectionGroup is the ordered content of one page.
type SectionGroup struct {
	SectionGroupID string    `dynamodbav:"section_group_id" yaml:"section_group_id" json:"sectionGroupId"`
	Sections       []Section `dynamodbav:"sections" yaml:"sections" json:"sections"`
}

// Couple names the two people getting married.
type Couple struct {
	CoupleID string `dynamodbav:"couple_id" yaml:"couple_id" json:"coupleId"`
	Her      string `dynamodbav:"her" yaml:"her" json:"her"`
	Him      string `dynamodbav:"him" yaml:"him" json:"him"`
}

// Title returns the site title built from the couple's first names, e.g. "Tatiana & Alex".
func (c Couple) Title() string {
	return firstName(c.Her) + " & " + firstName(c.Him)
}

func firstName(name string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(name), " ")
	return first
}

// Validate checks whether the NavGroup has all required fields, returning a list of problems.
func (g NavGroup) Validate() []string {
	var problems []string
	if g.NavGroupID == "" {
		problems = append(problems, "NavGroupID is missing")
	}
	for i, n := range g.Navs {
		if n.NavID == "" || n.Href == "" {
			problems = append(problems, fmt.Sprintf("Nav %d needs an ID and an Href", i))
		}
	}
	return problems
}

// Validate checks whether the SectionGroup has all required fields, returning a list of problems.
func (g SectionGroup) Validate() []string {
	var problems []string
	if g.SectionGroupID == "" {
		problems = append(problems, "SectionGroupID is missing")
	}
	for i, s := range g.Sections {
		if s.SectionID == "" {
			problems = append(problems, fmt.Sprintf("Section %d ID is missing", i))
		}
	}
	return problems
}

// Validate checks whether the Couple has all required fields, returning a list of problems.
func (c Couple) Validate() []string {
	var problems []string
	if c.CoupleID == "" {
		problems = append(problems, "CoupleID is missing")
	}
	if strings.TrimSpace(c.Her) == "" {
		problems = append(problems, "Her is missing")
	}
	if strings.TrimSpace(c.Him) == "" {
		problems = append(problems, "Him is missing")
	}
	return problems
}

//==============================================================================
// Content Schemas
//==============================================================================

// NavSchema stores NavGroups, keyed by group ID.
var NavSchema = ap.Schema{
	EntityType: "NavGroup",
	TableName:  "Nav",
	PartKey:    ap.KeyDef{Name: "nav_group_id", Kind: ap.KindString},
	Attributes: []ap.Attribute{
		{Name: "navs", Kind: ap.KindList},
	},
	ReadCapacity:  3,
	WriteCapacity: 3,
}

// SectionSchema stores SectionGroups, keyed by group ID.
var SectionSchema = ap.Schema{
	EntityType: "SectionGroup",
	TableName:  "Section",
	PartKey:    ap.KeyDef{Name: "section_group_id", Kind: ap.KindString},
	Attributes: []ap.Attribute{
		{Name: "sections", Kind: ap.KindList},
	},
	ReadCapacity:  3,
	WriteCapacity: 3,
}

// CoupleSchema stores the Couple, keyed by couple ID.
var CoupleSchema = ap.Schema{
	EntityType: "Couple",
	TableName:  "Couple",
	PartKey:    ap.KeyDef{Name: "couple_id", Kind: ap.KindString},
	Attributes: []ap.Attribute{
		{Name: "her", Kind: ap.KindString, Required: true},
		{Name: "him", Kind: ap.KindString, Required: true},
	},
	ReadCapacity:  3,
	WriteCapacity: 3,
}
