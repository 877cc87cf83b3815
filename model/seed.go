package model

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var defaultSeed []byte

// Seed is the site content loaded into fresh tables.
type Seed struct {
	Navs     []NavGroup     `yaml:"navs"`
	Sections []SectionGroup `yaml:"sections"`
	Couples  []Couple       `yaml:"couples"`
}

// LoadSeed decodes a YAML seed document. Unknown keys are rejected, and the content must be
// valid.
func LoadSeed(r io.Reader) (Seed, error) {
	var seed Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil && !errors.Is(err, io.EOF) {
		return seed, fmt.Errorf("error decoding seed: %w", err)
	}
	if problems := seed.Validate(); len(problems) > 0 {
		return seed, fmt.Errorf("invalid seed: %s", strings.Join(problems, ", "))
	}
	return seed, nil
}

// LoadSeedFile reads a YAML seed document from a file.
func LoadSeedFile(path string) (Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return Seed{}, err
	}
	defer f.Close()
	return LoadSeed(f)
}

// DefaultSeed returns the content shipped with the site.
func DefaultSeed() (Seed, error) {
	return LoadSeed(bytes.NewReader(defaultSeed))
}

// Validate checks every entity in the seed, returning a list of problems.
func (s Seed) Validate() []string {
	var problems []string
	add := func(kind, id string, ps []string) {
		for _, p := range ps {
			problems = append(problems, fmt.Sprintf("%s %q: %s", kind, id, p))
		}
	}
	for _, g := range s.Navs {
		add("nav group", g.NavGroupID, g.Validate())
	}
	for _, g := range s.Sections {
		add("section group", g.SectionGroupID, g.Validate())
	}
	for _, c := range s.Couples {
		add("couple", c.CoupleID, c.Validate())
	}
	return problems
}
