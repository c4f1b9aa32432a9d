package corpus

import (
	"fmt"
	"strings"

	"github.com/cognicore/mulda/pkg/mulda/internalerr"
)

// Position is the BIO position of a word inside an entity span.
type Position uint8

const (
	Outside Position = iota
	Begin
	Inside
)

func (p Position) String() string {
	switch p {
	case Begin:
		return "B"
	case Inside:
		return "I"
	default:
		return "O"
	}
}

// ParsePosition parses "B", "I" or "O".
func ParsePosition(s string) (Position, error) {
	switch s {
	case "B":
		return Begin, nil
	case "I":
		return Inside, nil
	case "O":
		return Outside, nil
	}
	return Outside, fmt.Errorf("position %q: %w", s, internalerr.ErrInvalidInput)
}

// Category is the fine-grained entity type. Empty is reserved for Outside words.
type Category uint8

const (
	Empty Category = iota

	// Location (LOC)
	Facility
	OtherLOC
	HumanSettlement
	Station

	// Creative Work (CW)
	VisualWork
	MusicalWork
	WrittenWork
	ArtWork
	Software
	OtherCW

	// Group (GRP)
	MusicalGRP
	PublicCorp
	PrivateCorp
	OtherCorp
	AerospaceManufacturer
	SportsGRP
	CarManufacturer
	TechCorp
	ORG

	// Person (PER)
	Scientist
	Artist
	Athlete
	Politician
	Cleric
	SportsManager
	OtherPER

	// Product (PROD)
	Clothing
	Vehicle
	Food
	Drink
	OtherPROD

	// Medical (MED)
	MedicationVaccine
	MedicalProcedure
	AnatomicalStructure
	Symptom
	Disease

	numCategories
)

var categoryNames = [numCategories]string{
	Empty:                 "",
	Facility:              "Facility",
	OtherLOC:              "OtherLOC",
	HumanSettlement:       "HumanSettlement",
	Station:               "Station",
	VisualWork:            "VisualWork",
	MusicalWork:           "MusicalWork",
	WrittenWork:           "WrittenWork",
	ArtWork:               "ArtWork",
	Software:              "Software",
	OtherCW:               "OtherCW",
	MusicalGRP:            "MusicalGRP",
	PublicCorp:            "PublicCorp",
	PrivateCorp:           "PrivateCorp",
	OtherCorp:             "OtherCorp",
	AerospaceManufacturer: "AerospaceManufacturer",
	SportsGRP:             "SportsGRP",
	CarManufacturer:       "CarManufacturer",
	TechCorp:              "TechCorp",
	ORG:                   "ORG",
	Scientist:             "Scientist",
	Artist:                "Artist",
	Athlete:               "Athlete",
	Politician:            "Politician",
	Cleric:                "Cleric",
	SportsManager:         "SportsManager",
	OtherPER:              "OtherPER",
	Clothing:              "Clothing",
	Vehicle:               "Vehicle",
	Food:                  "Food",
	Drink:                 "Drink",
	OtherPROD:             "OtherPROD",
	MedicationVaccine:     "Medication/Vaccine",
	MedicalProcedure:      "MedicalProcedure",
	AnatomicalStructure:   "AnatomicalStructure",
	Symptom:               "Symptom",
	Disease:               "Disease",
}

var categoryByName = func() map[string]Category {
	m := make(map[string]Category, numCategories)
	for c := Facility; c < numCategories; c++ {
		m[categoryNames[c]] = c
	}
	return m
}()

func (c Category) String() string {
	if c >= numCategories {
		return fmt.Sprintf("Category(%d)", uint8(c))
	}
	return categoryNames[c]
}

// Group returns the coarse class of the category: LOC, CW, GRP, PER, PROD or MED.
func (c Category) Group() string {
	switch {
	case c >= Facility && c <= Station:
		return "LOC"
	case c >= VisualWork && c <= OtherCW:
		return "CW"
	case c >= MusicalGRP && c <= ORG:
		return "GRP"
	case c >= Scientist && c <= OtherPER:
		return "PER"
	case c >= Clothing && c <= OtherPROD:
		return "PROD"
	case c >= MedicationVaccine && c <= Disease:
		return "MED"
	}
	return ""
}

// Categories returns every entity category, excluding Empty.
func Categories() []Category {
	out := make([]Category, 0, numCategories-1)
	for c := Facility; c < numCategories; c++ {
		out = append(out, c)
	}
	return out
}

// ParseCategory maps a tag suffix to its Category. The upstream data spells the
// corporation categories "PublicCORP", "TechCORP", ...; both spellings are accepted.
func ParseCategory(s string) (Category, error) {
	if c, ok := categoryByName[s]; ok {
		return c, nil
	}
	if strings.HasSuffix(s, "CORP") {
		if c, ok := categoryByName[strings.TrimSuffix(s, "CORP")+"Corp"]; ok {
			return c, nil
		}
	}
	return Empty, fmt.Errorf("category %q: %w", s, internalerr.ErrInvalidInput)
}

// Tag pairs a BIO position with a category.
type Tag struct {
	Position Position
	Category Category
}

// OutsideTag is the tag of every word outside an entity.
var OutsideTag = Tag{Position: Outside, Category: Empty}

// NewTag builds a tag, enforcing that the category is Empty iff the position is Outside.
func NewTag(pos Position, cat Category) (Tag, error) {
	if cat >= numCategories {
		return Tag{}, fmt.Errorf("tag category %d: %w", uint8(cat), internalerr.ErrInvalidInput)
	}
	if (pos == Outside) != (cat == Empty) {
		return Tag{}, fmt.Errorf("tag %s with category %q: %w", pos, cat, internalerr.ErrInvalidInput)
	}
	return Tag{Position: pos, Category: cat}, nil
}

// ParseTag parses "B-Artist", "I-Artist" or "O".
func ParseTag(s string) (Tag, error) {
	head, rest, hasCat := strings.Cut(s, "-")
	pos, err := ParsePosition(head)
	if err != nil {
		return Tag{}, fmt.Errorf("tag %q: %w", s, err)
	}
	if pos == Outside {
		if hasCat {
			return Tag{}, fmt.Errorf("tag %q: outside tag with category: %w", s, internalerr.ErrInvalidInput)
		}
		return OutsideTag, nil
	}
	if !hasCat || rest == "" {
		return Tag{}, fmt.Errorf("tag %q: missing category: %w", s, internalerr.ErrInvalidInput)
	}
	cat, err := ParseCategory(rest)
	if err != nil {
		return Tag{}, fmt.Errorf("tag %q: %w", s, err)
	}
	return Tag{Position: pos, Category: cat}, nil
}

// String renders the tag in CoNLL form.
func (t Tag) String() string {
	if t.Position == Outside {
		return "O"
	}
	return t.Position.String() + "-" + t.Category.String()
}
