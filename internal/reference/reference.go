// Package reference holds the embedded list of US states and capitals that the final
// verification step compares against, and the canonical input dataset used to seed a run.
package reference

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/UnknownOlympus/capitals/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed data/capitals.yaml
var capitalsYAML []byte

//go:embed data/state_capitals.json
var canonicalJSON []byte

// Capital is one entry of the reference list.
type Capital struct {
	State     string  `yaml:"state"`
	Abbr      string  `yaml:"abbr"`
	Capital   string  `yaml:"capital"`
	Latitude  float64 `yaml:"lat"`
	Longitude float64 `yaml:"lon"`
}

// Point returns the approximate capitol location.
func (c Capital) Point() models.Coordinates {
	return models.Coordinates{Latitude: c.Latitude, Longitude: c.Longitude}
}

// List is the reference list indexed for lookups.
type List struct {
	capitals []Capital
	byAbbr   map[string]Capital
	byState  map[string]Capital
}

var (
	loadOnce sync.Once
	loaded   *List
	errLoad  error
)

// Capitals returns the embedded reference list. The list is parsed once.
func Capitals() (*List, error) {
	loadOnce.Do(func() {
		loaded, errLoad = Parse(capitalsYAML)
	})

	return loaded, errLoad
}

// MustCapitals is like Capitals but panics if the embedded list is broken.
func MustCapitals() *List {
	list, err := Capitals()
	if err != nil {
		panic(err)
	}

	return list
}

// Parse decodes a YAML reference list.
func Parse(data []byte) (*List, error) {
	var doc struct {
		States []Capital `yaml:"states"`
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode reference list: %w", err)
	}

	list := &List{
		capitals: doc.States,
		byAbbr:   make(map[string]Capital, len(doc.States)),
		byState:  make(map[string]Capital, len(doc.States)),
	}
	for _, c := range doc.States {
		if _, dup := list.byAbbr[c.Abbr]; dup {
			return nil, fmt.Errorf("duplicate abbreviation %q in reference list", c.Abbr)
		}
		list.byAbbr[c.Abbr] = c
		list.byState[c.State] = c
	}

	return list, nil
}

// All returns the reference entries in alphabetical state order.
func (l *List) All() []Capital {
	return append([]Capital(nil), l.capitals...)
}

// Len returns the number of reference entries.
func (l *List) Len() int {
	return len(l.capitals)
}

// ByAbbr looks up an entry by its two-letter abbreviation.
func (l *List) ByAbbr(abbr string) (Capital, bool) {
	c, ok := l.byAbbr[abbr]
	return c, ok
}

// ByState looks up an entry by full state name.
func (l *List) ByState(state string) (Capital, bool) {
	c, ok := l.byState[state]
	return c, ok
}

// CanonicalJSON returns a copy of the embedded input document.
func CanonicalJSON() []byte {
	return append([]byte(nil), canonicalJSON...)
}

// CanonicalDataset decodes the embedded input document.
func CanonicalDataset() (*models.Dataset, error) {
	var ds models.Dataset
	if err := json.Unmarshal(canonicalJSON, &ds); err != nil {
		return nil, fmt.Errorf("failed to decode canonical dataset: %w", err)
	}

	return &ds, nil
}
