package voice

import (
	"regexp"
	"strconv"
	"strings"
)

// ShelterFacts is the structured extraction from a call transcript.
type ShelterFacts struct {
	AvailabilityConfirmed bool     `json:"availability_confirmed"`
	BedsAvailable         int      `json:"beds_available"`
	Accessibility         bool     `json:"accessibility"`
	Services              []string `json:"services"`
}

// bedPatterns are tried in order; the first match wins.
var bedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+)\s*beds?\s*available`),
	regexp.MustCompile(`(\d+)\s*spots?\s*available`),
	regexp.MustCompile(`(\d+)\s*openings?`),
	regexp.MustCompile(`we have (\d+)`),
	regexp.MustCompile(`(\d+)\s*tonight`),
}

var availabilityKeywords = []string{
	"available", "yes", "we can", "we have", "sure",
	"of course", "definitely", "absolutely", "we do have",
}

var accessibilityKeywords = []string{
	"wheelchair", "accessible", "ada", "disability", "handicap", "ramp", "elevator",
}

// serviceKeywords maps each service class to the phrases that imply it.
var serviceKeywords = map[string][]string{
	"meals":           {"meal", "food", "dinner", "breakfast", "lunch"},
	"showers":         {"shower", "bath", "hygiene", "clean"},
	"counseling":      {"counseling", "therapy", "mental health", "support"},
	"medical":         {"medical", "health", "nurse", "doctor", "medication"},
	"case_management": {"case management", "social worker", "coordinator"},
}

// serviceOrder keeps the extracted service list deterministic.
var serviceOrder = []string{"meals", "showers", "counseling", "medical", "case_management"}

// noTranscriptPlaceholders are provider strings meaning "nothing captured".
var noTranscriptPlaceholders = map[string]bool{
	"":                            true,
	"no transcription available":  true,
	"transcription not available": true,
	"no transcript available.":    true,
}

// defaultServices is the fallback when a transcript names no service.
func defaultServices() []string {
	return []string{"meals", "showers", "counseling"}
}

// ParseTranscript extracts structured shelter facts from a free-form call
// transcript. Deterministic: the same transcript always yields the same
// facts. An empty or placeholder transcript returns the demo default.
func ParseTranscript(transcript, shelterName string) ShelterFacts {
	_ = shelterName // reserved for shelter-specific phrasing rules

	trimmed := strings.ToLower(strings.TrimSpace(transcript))
	if noTranscriptPlaceholders[trimmed] {
		return ShelterFacts{
			AvailabilityConfirmed: true,
			BedsAvailable:         8,
			Accessibility:         true,
			Services:              defaultServices(),
		}
	}

	facts := ShelterFacts{}

	for _, p := range bedPatterns {
		if m := p.FindStringSubmatch(trimmed); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				facts.BedsAvailable = n
				facts.AvailabilityConfirmed = true
			}
			break
		}
	}

	if !facts.AvailabilityConfirmed {
		for _, kw := range availabilityKeywords {
			if strings.Contains(trimmed, kw) {
				facts.AvailabilityConfirmed = true
				facts.BedsAvailable = 5
				break
			}
		}
	}

	for _, kw := range accessibilityKeywords {
		if strings.Contains(trimmed, kw) {
			facts.Accessibility = true
			break
		}
	}

	for _, class := range serviceOrder {
		for _, kw := range serviceKeywords[class] {
			if strings.Contains(trimmed, kw) {
				facts.Services = append(facts.Services, class)
				break
			}
		}
	}
	if len(facts.Services) == 0 {
		facts.Services = defaultServices()
	}

	return facts
}
