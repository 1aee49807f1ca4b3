package predict

import (
	"strings"

	"plantdoc-server-go/internal/domain/capability"
	"plantdoc-server-go/internal/domain/catalog"
)

// Result is the final, presentation-ready outcome of an analysis.
type Result struct {
	Label      string          `json:"label"`
	Species    string          `json:"species"`
	Condition  string          `json:"condition"`
	Advice     string          `json:"advice"`
	Healthy    bool            `json:"healthy"`
	Confidence int             `json:"confidence"`
	Tier       capability.Tier `json:"tier"`
}

// adviceByKeyword maps condition keywords to remediation text. Matched
// case-insensitively against the catalog condition name; first match wins.
var adviceByKeyword = []struct {
	keyword string
	advice  string
}{
	{"healthy", "No disease detected. Keep up regular watering and monitor new growth."},
	{"scab", "Remove fallen leaves, prune for airflow and apply a fungicide before bud break."},
	{"black rot", "Prune out cankers and mummified fruit, then protect new growth with fungicide."},
	{"rust", "Remove nearby host plants where possible and apply a protective fungicide."},
	{"powdery mildew", "Improve air circulation, avoid overhead watering and treat with sulfur spray."},
	{"leaf spot", "Remove affected leaves, avoid wetting foliage and rotate crops next season."},
	{"blight", "Remove and destroy infected plants, improve drainage and use certified seed."},
	{"leaf scorch", "Remove infected leaves after harvest and renovate beds to reduce inoculum."},
	{"bacterial spot", "Use copper-based sprays and avoid working plants while foliage is wet."},
	{"mold", "Lower humidity, space plants generously and remove infected leaves promptly."},
	{"mite", "Rinse foliage, encourage beneficial predators and treat with insecticidal soap."},
	{"virus", "Remove infected plants entirely and control insect vectors; there is no cure."},
	{"greening", "Remove infected trees and control psyllid populations; consult local extension."},
	{"esca", "Prune infected wood during dry weather and protect pruning wounds."},
}

const defaultAdvice = "Consult your local agricultural extension service for treatment options."

func adviceFor(condition string) string {
	lower := strings.ToLower(condition)
	for _, entry := range adviceByKeyword {
		if strings.Contains(lower, entry.keyword) {
			return entry.advice
		}
	}
	return defaultAdvice
}

// Format packages a synthesized outcome into a Result. The only failure
// mode is a catalog bounds violation, which indicates a synthesizer bug
// and is surfaced rather than absorbed.
func Format(s Synthesis) (Result, error) {
	entry, err := catalog.ByIndex(s.LabelIndex)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Label:      entry.Display(),
		Species:    entry.Species,
		Condition:  entry.Condition,
		Advice:     adviceFor(entry.Condition),
		Healthy:    entry.Healthy(),
		Confidence: s.Confidence,
		Tier:       s.TierUsed,
	}, nil
}
