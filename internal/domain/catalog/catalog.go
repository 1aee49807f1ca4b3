// Package catalog holds the fixed, ordered list of plant conditions the
// service can report. The raw class names follow the PlantVillage
// dataset convention "Species___Condition".
package catalog

import (
	"strings"

	"plantdoc-server-go/internal/platform/errors"
)

// rawClasses is the stable ordered class list. Index positions are part
// of the service contract and must never be reordered.
var rawClasses = []string{
	"Apple___Apple_scab",
	"Apple___Black_rot",
	"Apple___Cedar_apple_rust",
	"Apple___healthy",
	"Blueberry___healthy",
	"Cherry_(including_sour)___Powdery_mildew",
	"Cherry_(including_sour)___healthy",
	"Corn_(maize)___Cercospora_leaf_spot Gray_leaf_spot",
	"Corn_(maize)___Common_rust_",
	"Corn_(maize)___Northern_Leaf_Blight",
	"Corn_(maize)___healthy",
	"Grape___Black_rot",
	"Grape___Esca_(Black_Measles)",
	"Grape___Leaf_blight_(Isariopsis_Leaf_Spot)",
	"Grape___healthy",
	"Orange___Haunglongbing_(Citrus_greening)",
	"Peach___Bacterial_spot",
	"Peach___healthy",
	"Pepper,_bell___Bacterial_spot",
	"Pepper,_bell___healthy",
	"Potato___Early_blight",
	"Potato___Late_blight",
	"Potato___healthy",
	"Raspberry___healthy",
	"Soybean___healthy",
	"Squash___Powdery_mildew",
	"Strawberry___Leaf_scorch",
	"Strawberry___healthy",
	"Tomato___Bacterial_spot",
	"Tomato___Early_blight",
	"Tomato___Late_blight",
	"Tomato___Leaf_Mold",
	"Tomato___Septoria_leaf_spot",
	"Tomato___Spider_mites Two-spotted_spider_mite",
	"Tomato___Target_Spot",
	"Tomato___Tomato_Yellow_Leaf_Curl_Virus",
	"Tomato___Tomato_mosaic_virus",
	"Tomato___healthy",
}

// Entry is one recognizable plant condition class.
type Entry struct {
	Index     int    `json:"index"`
	Raw       string `json:"raw"`
	Species   string `json:"species"`
	Condition string `json:"condition"`
}

// Healthy reports whether the entry describes a healthy plant rather
// than a disease.
func (e Entry) Healthy() bool {
	return strings.Contains(strings.ToLower(e.Raw), "healthy")
}

// Display renders the entry as "Species — Condition" with readable
// casing, e.g. "Apple — Apple Scab".
func (e Entry) Display() string {
	return titleCase(e.Species) + " — " + titleCase(e.Condition)
}

var (
	entries        []Entry
	healthyIndices []int
	diseaseIndices []int
)

func init() {
	entries = make([]Entry, len(rawClasses))
	for i, raw := range rawClasses {
		species, condition := splitRaw(raw)
		entries[i] = Entry{
			Index:     i,
			Raw:       raw,
			Species:   species,
			Condition: condition,
		}
		if entries[i].Healthy() {
			healthyIndices = append(healthyIndices, i)
		} else {
			diseaseIndices = append(diseaseIndices, i)
		}
	}
}

func splitRaw(raw string) (species, condition string) {
	parts := strings.SplitN(raw, "___", 2)
	species = strings.ReplaceAll(parts[0], "_", " ")
	if len(parts) == 2 {
		condition = strings.ReplaceAll(parts[1], "_", " ")
	} else {
		condition = "unknown"
	}
	return strings.TrimSpace(species), strings.TrimSpace(condition)
}

// smallWords stay lowercase in display labels unless leading.
var smallWords = map[string]bool{
	"and": true, "or": true, "the": true, "of": true, "in": true,
	"on": true, "at": true, "to": true, "for": true, "with": true,
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		lower := strings.ToLower(word)
		if i > 0 && smallWords[lower] {
			words[i] = lower
			continue
		}
		words[i] = capitalize(word)
	}
	return strings.Join(words, " ")
}

func capitalize(word string) string {
	// Preserve parenthesised qualifiers like "(including sour)".
	for i, r := range word {
		if r >= 'a' && r <= 'z' {
			return word[:i] + strings.ToUpper(string(r)) + word[i+1:]
		}
		if r >= 'A' && r <= 'Z' {
			return word
		}
	}
	return word
}

// Len returns the number of catalog entries.
func Len() int {
	return len(entries)
}

// All returns the full ordered catalog. The returned slice is shared;
// callers must not mutate it.
func All() []Entry {
	return entries
}

// ByIndex returns the entry at i. Out-of-range access indicates a
// synthesizer bug and is reported as a catalog-kind error.
func ByIndex(i int) (Entry, error) {
	if i < 0 || i >= len(entries) {
		return Entry{}, errors.New(errors.KindCatalog, "catalog.by_index",
			"label index out of range")
	}
	return entries[i], nil
}

// HealthyIndices returns catalog positions describing healthy plants.
func HealthyIndices() []int {
	return healthyIndices
}

// DiseaseIndices returns catalog positions describing diseases.
func DiseaseIndices() []int {
	return diseaseIndices
}
