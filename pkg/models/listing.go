package models

import "time"

// Category identifies one scraped listing category.
type Category string

// Listing categories.
const (
	CategoryShelters  Category = "shelters"
	CategoryTransport Category = "transport"
	CategoryBenefits  Category = "benefits"
	CategoryResources Category = "resources"
)

// Categories lists every listing category in a stable order.
func Categories() []Category {
	return []Category{CategoryShelters, CategoryTransport, CategoryBenefits, CategoryResources}
}

// ShelterListing is one cached shelter row. Unique by case-insensitive
// (name, address); invariant 0 <= AvailableBeds <= Capacity.
type ShelterListing struct {
	Name          string    `json:"name"`
	Address       string    `json:"address"`
	Phone         string    `json:"phone"`
	Capacity      int       `json:"capacity"`
	AvailableBeds int       `json:"available_beds"`
	Accessibility bool      `json:"accessibility"`
	Services      []string  `json:"services,omitempty"`
	Hours         string    `json:"hours,omitempty"`
	Eligibility   string    `json:"eligibility,omitempty"`
	Website       string    `json:"website,omitempty"`
	Latitude      *float64  `json:"latitude,omitempty"`
	Longitude     *float64  `json:"longitude,omitempty"`
	Source        string    `json:"source,omitempty"`
	LastUpdated   time.Time `json:"last_updated"`
}

// TransportListing is one cached transport provider row.
// Unique by (provider, service_name).
type TransportListing struct {
	Provider    string    `json:"provider"`
	ServiceName string    `json:"service_name"`
	Phone       string    `json:"phone,omitempty"`
	VehicleType string    `json:"vehicle_type,omitempty"`
	Coverage    string    `json:"coverage,omitempty"`
	Cost        string    `json:"cost,omitempty"`
	Hours       string    `json:"hours,omitempty"`
	Booking     string    `json:"booking,omitempty"`
	Source      string    `json:"source,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
}

// BenefitProgram is one cached benefit program row. Unique by ProgramName.
type BenefitProgram struct {
	ProgramName   string    `json:"program_name"`
	Agency        string    `json:"agency,omitempty"`
	Description   string    `json:"description,omitempty"`
	Eligibility   string    `json:"eligibility,omitempty"`
	MonthlyAmount float64   `json:"monthly_amount"`
	ApplyURL      string    `json:"apply_url,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Source        string    `json:"source,omitempty"`
	LastUpdated   time.Time `json:"last_updated"`
}

// CommunityResource is one cached community resource row. Unique by
// case-insensitive (name, address).
type CommunityResource struct {
	Name                  string    `json:"name"`
	Address               string    `json:"address"`
	Phone                 string    `json:"phone,omitempty"`
	Services              []string  `json:"services,omitempty"`
	Hours                 string    `json:"hours,omitempty"`
	DietaryAccommodations bool      `json:"dietary_accommodations"`
	Source                string    `json:"source,omitempty"`
	LastUpdated           time.Time `json:"last_updated"`
}

// CacheMetadata tracks freshness for one listing category.
type CacheMetadata struct {
	Category      Category  `json:"category"`
	LastScrapedAt time.Time `json:"last_scraped_at"`
	ItemsCount    int       `json:"items_count"`
	TTLSeconds    int       `json:"ttl_seconds"`
}

// ScrapeStatus classifies the outcome of one category scrape.
type ScrapeStatus string

// Scrape statuses.
const (
	ScrapeSuccess ScrapeStatus = "success"
	ScrapePartial ScrapeStatus = "partial"
	ScrapeFailed  ScrapeStatus = "failed"
)

// ScrapeLog is one append-only record of a scrape attempt.
type ScrapeLog struct {
	ID              string       `json:"id"`
	Category        Category     `json:"category"`
	URL             string       `json:"url"`
	Status          ScrapeStatus `json:"status"`
	ItemsScraped    int          `json:"items_scraped"`
	ErrorMessage    string       `json:"error_message,omitempty"`
	DurationSeconds float64      `json:"duration_seconds"`
	ScrapedAt       time.Time    `json:"scraped_at"`
}

// ShelterFilter narrows shelter reads.
type ShelterFilter struct {
	MinAvailableBeds int
	AccessibleOnly   bool
}

// TransportFilter narrows transport reads.
type TransportFilter struct {
	VehicleTypeContains string
}

// ResourceFilter narrows community resource reads.
type ResourceFilter struct {
	ServiceContains       string
	DietaryAccommodations bool
}
