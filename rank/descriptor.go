package rank

import (
	"fmt"
	"regexp"

	"github.com/kestrelsearch/kestrel"
)

// Kind names one of the seven criterion descriptor variants.
type Kind int

const (
	KindWords Kind = iota
	KindTypo
	KindProximity
	KindAttribute
	KindExactness
	KindAsc
	KindDesc
)

// Descriptor is one parsed criterion: its kind plus, for Asc/Desc, the
// faceted field name it buckets by.
type Descriptor struct {
	Kind  Kind
	Field string
}

// String formats d back into the text ParseDescriptor accepts.
func (d Descriptor) String() string {
	switch d.Kind {
	case KindWords:
		return "words"
	case KindTypo:
		return "typo"
	case KindProximity:
		return "proximity"
	case KindAttribute:
		return "attribute"
	case KindExactness:
		return "exactness"
	case KindAsc:
		return fmt.Sprintf("asc(%s)", d.Field)
	case KindDesc:
		return fmt.Sprintf("desc(%s)", d.Field)
	default:
		return "unknown"
	}
}

var facetDescriptorPattern = regexp.MustCompile(`^(asc|desc)\(([^()]+)\)$`)

// ParseDescriptor parses one criterion descriptor out of text.
// facetedFields names the fields valid inside asc(...)/desc(...).
func ParseDescriptor(facetedFields map[string]bool, text string) (Descriptor, error) {
	switch text {
	case "words":
		return Descriptor{Kind: KindWords}, nil
	case "typo":
		return Descriptor{Kind: KindTypo}, nil
	case "proximity":
		return Descriptor{Kind: KindProximity}, nil
	case "attribute":
		return Descriptor{Kind: KindAttribute}, nil
	case "exactness":
		return Descriptor{Kind: KindExactness}, nil
	}

	if m := facetDescriptorPattern.FindStringSubmatch(text); m != nil {
		field := m[2]
		if !facetedFields[field] {
			return Descriptor{}, kestrel.InvalidCriterionError("field is not faceted: " + field)
		}
		if m[1] == "asc" {
			return Descriptor{Kind: KindAsc, Field: field}, nil
		}
		return Descriptor{Kind: KindDesc, Field: field}, nil
	}

	return Descriptor{}, kestrel.InvalidCriterionError("unknown criterion name: " + text)
}

// ParseDescriptors parses a comma-separated list of descriptors,
// surfacing the first parse error without partial results.
func ParseDescriptors(facetedFields map[string]bool, texts []string) ([]Descriptor, error) {
	out := make([]Descriptor, 0, len(texts))
	for _, text := range texts {
		d, err := ParseDescriptor(facetedFields, text)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// DefaultDescriptors is the ordering applied when the caller specifies none.
func DefaultDescriptors() []Descriptor {
	return []Descriptor{
		{Kind: KindWords},
		{Kind: KindTypo},
		{Kind: KindProximity},
		{Kind: KindAttribute},
		{Kind: KindExactness},
	}
}
