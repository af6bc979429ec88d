package config

import (
	"time"

	"github.com/carebridge/carebridge/pkg/models"
)

// Default values applied when the environment and YAML leave a knob unset.
const (
	DefaultHTTPPort        = "8080"
	DefaultVoiceBaseURL    = "https://api.vapi.ai"
	DefaultRoutingBaseURL  = "https://api.mapbox.com"
	DefaultCacheTTL        = 24 * time.Hour
	DefaultFetchTimeout    = 60 * time.Second
	DefaultRequestTimeout  = 30 * time.Second
	DefaultMaxCallDuration = 600 * time.Second
	DefaultPollInterval    = 3 * time.Second
	DefaultShelterRetry    = 3
)

// defaultYAML returns the built-in settings a user YAML is merged over.
func defaultYAML() yamlConfig {
	return yamlConfig{
		Workflow: WorkflowConfig{
			ShelterRetry: DefaultShelterRetry,
			CallTimeout:  DefaultMaxCallDuration,
		},
		Scrape: ScrapeConfig{
			FetchTimeout: DefaultFetchTimeout,
			Categories: map[models.Category]CategoryScrapeConfig{
				models.CategoryShelters: {
					TTL: DefaultCacheTTL,
					URLs: []string{
						"https://hsh.sfgov.org/services/how-to-get-services/accessing-temporary-shelter/",
						"https://sfserviceguide.org/search?query=shelter",
					},
				},
				models.CategoryTransport: {
					TTL: DefaultCacheTTL,
					URLs: []string{
						"https://www.sfmta.com/getting-around/accessibility/paratransit",
						"https://sfparatransit.com/",
					},
				},
				models.CategoryBenefits: {
					TTL: DefaultCacheTTL,
					URLs: []string{
						"https://www.sfhsa.org/services/financial-assistance",
						"https://www.coveredca.com/medi-cal/",
					},
				},
				models.CategoryResources: {
					TTL: DefaultCacheTTL,
					URLs: []string{
						"https://sfserviceguide.org/search?query=food",
						"https://sfserviceguide.org/search?query=hygiene",
					},
				},
			},
		},
	}
}
