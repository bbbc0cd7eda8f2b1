package search

import (
	"strconv"
	"strings"
)

// RiskLevel grades how closely a patent overlaps the caller's claims.
type RiskLevel string

const (
	RiskVeryHigh RiskLevel = "Very High"
	RiskHigh     RiskLevel = "High"
	RiskMedium   RiskLevel = "Medium"
	RiskLow      RiskLevel = "Low"
)

// AssessRisk maps a raw similarity to a risk level. Only the top band is
// exclusive at its lower edge.
func AssessRisk(score float64) RiskLevel {
	switch {
	case score > 0.9:
		return RiskVeryHigh
	case score >= 0.7:
		return RiskHigh
	case score >= 0.5:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Novelty grades an invention against a single piece of prior art.
type Novelty string

const (
	NoveltyIdentical Novelty = "Identical"
	NoveltySimilar   Novelty = "Similar"
	NoveltyNovel     Novelty = "Novel"
)

// AssessNovelty maps a raw similarity to a novelty grade. Lower similarity
// means the invention is more likely to be novel.
func AssessNovelty(score float64) Novelty {
	switch {
	case score > 0.85:
		return NoveltyIdentical
	case score >= 0.6:
		return NoveltySimilar
	default:
		return NoveltyNovel
	}
}

// UnknownField is reported for empty or unrecognised classifications.
const UnknownField = "Unknown"

var technicalFields = map[byte]string{
	'A': "Human Necessities",
	'B': "Performing Operations; Transporting",
	'C': "Chemistry; Metallurgy",
	'D': "Textiles; Paper",
	'E': "Fixed Constructions",
	'F': "Mechanical Engineering",
	'G': "Physics",
	'H': "Electricity",
}

// TechnicalField names the IPC/CPC section of a classification code.
func TechnicalField(classification string) string {
	if classification == "" {
		return UnknownField
	}
	if f, ok := technicalFields[strings.ToUpper(classification[:1])[0]]; ok {
		return f
	}
	return UnknownField
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }

func formatInt(i int) string { return strconv.Itoa(i) }
