package profile

import (
	"errors"
	"strings"
)

// SchoolOther is the selector value meaning "use the custom school text".
const SchoolOther = "altro"

var (
	ErrUnknownSchool          = errors.New("school is not in the catalogue")
	ErrCustomSchoolRequired   = errors.New("custom school is required when selecting other")
	ErrCustomSchoolIsSentinel = errors.New("custom school cannot be the other selector itself")
)

type SchoolOption struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

var DefaultSchools = []SchoolOption{
	{Value: "Liceo Scientifico A. Einstein", Label: "Liceo Scientifico A. Einstein"},
	{Value: "Liceo Classico G. Cesare - M. Valgimigli", Label: "Liceo Classico G. Cesare - M. Valgimigli"},
	{Value: "ITTS O. Belluzzi - L. Da Vinci", Label: "ITTS O. Belluzzi - L. Da Vinci"},
	{Value: "Liceo Artistico Serpieri", Label: "Liceo Artistico Serpieri"},
	{Value: "Istituto Tecnico R. Valturio", Label: "Istituto Tecnico R. Valturio"},
	{Value: "IPSIA L.B. Alberti", Label: "IPSIA L.B. Alberti"},
	{Value: "ISISS P. Gobetti - A. De Gasperi (Morciano)", Label: "ISISS P. Gobetti - A. De Gasperi (Morciano)"},
	{Value: SchoolOther, Label: "Altro (Specifica)"},
}

// Catalogue is the fixed set of selectable institutions.
// The "other" option is always present and always last.
type Catalogue struct {
	options []SchoolOption
	values  map[string]struct{}
}

func NewCatalogue(options []SchoolOption) *Catalogue {
	c := &Catalogue{values: make(map[string]struct{}, len(options)+1)}

	var other *SchoolOption

	for _, o := range options {
		o.Value = strings.TrimSpace(o.Value)
		if o.Value == "" {
			continue
		}
		if o.Label == "" {
			o.Label = o.Value
		}
		if o.Value == SchoolOther {
			o := o
			other = &o
			continue
		}
		if _, dup := c.values[o.Value]; dup {
			continue
		}
		c.values[o.Value] = struct{}{}
		c.options = append(c.options, o)
	}

	if other == nil {
		other = &SchoolOption{Value: SchoolOther, Label: "Altro (Specifica)"}
	}
	c.options = append(c.options, *other)

	return c
}

func (c *Catalogue) Options() []SchoolOption {
	out := make([]SchoolOption, len(c.options))
	copy(out, c.options)
	return out
}

func (c *Catalogue) Contains(value string) bool {
	_, ok := c.values[value]
	return ok
}

// Resolve turns a selector and its custom text into the value that gets stored.
// The result is never SchoolOther.
func (c *Catalogue) Resolve(selected, custom string) (string, error) {
	selected = strings.TrimSpace(selected)

	if selected == SchoolOther {
		custom = strings.TrimSpace(custom)
		if custom == "" {
			return "", ErrCustomSchoolRequired
		}
		if strings.EqualFold(custom, SchoolOther) {
			return "", ErrCustomSchoolIsSentinel
		}
		return custom, nil
	}

	if !c.Contains(selected) {
		return "", ErrUnknownSchool
	}

	return selected, nil
}
