// Package catalog is the template catalog: the static configuration that
// seeds a new website with its default sections, text fields, and images.
//
// The catalog is deliberately compiled in rather than stored in the database —
// templates ship with the application, and a website only references one by
// its id. Unknown template ids are a validation error at the action layer.
package catalog

import "sort"

// SectionDefault describes one section a template starts with.
type SectionDefault struct {
	Type           string `json:"type"`
	Title          string `json:"title"`
	DefaultEnabled bool   `json:"defaultEnabled"`
	Order          int    `json:"order"`
}

// Template is one entry in the catalog.
type Template struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	DefaultTexts  map[string]string `json:"defaultTexts"`  // key → initial content
	DefaultImages map[string]string `json:"defaultImages"` // alt text key → url
	Sections      []SectionDefault  `json:"sections"`
}

// commonTexts are seeded into every template regardless of id.
var commonTexts = map[string]string{
	"couple_names":     "Partner 1 & Partner 2",
	"wedding_date":     "2026-01-01",
	"wedding_location": "Wedding Venue, City",
}

var templates = map[string]Template{
	"rustic": {
		ID:   "rustic",
		Name: "Rustic",
		DefaultTexts: map[string]string{
			"welcome_message": "We invite you to celebrate our special day with us.",
			"story_title":     "Our Story",
			"story_content":   "Share your love story here...",
		},
		DefaultImages: map[string]string{
			"hero": "/img/templates/rustic/hero.jpg",
		},
		Sections: []SectionDefault{
			{Type: "hero", Title: "Welcome", DefaultEnabled: true, Order: 1},
			{Type: "story", Title: "Our Story", DefaultEnabled: true, Order: 2},
			{Type: "gallery", Title: "Gallery", DefaultEnabled: false, Order: 3},
			{Type: "rsvp", Title: "RSVP", DefaultEnabled: true, Order: 4},
		},
	},
	"modern": {
		ID:   "modern",
		Name: "Modern",
		DefaultTexts: map[string]string{
			"welcome_message": "Join us for our wedding celebration.",
			"event_details":   "Ceremony followed by reception.",
		},
		DefaultImages: map[string]string{
			"hero": "/img/templates/modern/hero.jpg",
		},
		Sections: []SectionDefault{
			{Type: "hero", Title: "Welcome", DefaultEnabled: true, Order: 1},
			{Type: "details", Title: "Event Details", DefaultEnabled: true, Order: 2},
			{Type: "rsvp", Title: "RSVP", DefaultEnabled: true, Order: 3},
		},
	},
	"romantic": {
		ID:   "romantic",
		Name: "Romantic",
		DefaultTexts: map[string]string{
			"welcome_message": "With great pleasure, we invite you to our wedding.",
			"quote":           "Love is patient, love is kind.",
			"story_content":   "Our journey together began...",
		},
		DefaultImages: map[string]string{
			"hero": "/img/templates/romantic/hero.jpg",
		},
		Sections: []SectionDefault{
			{Type: "hero", Title: "Welcome", DefaultEnabled: true, Order: 1},
			{Type: "quote", Title: "Quote", DefaultEnabled: true, Order: 2},
			{Type: "story", Title: "Our Story", DefaultEnabled: true, Order: 3},
			{Type: "gallery", Title: "Gallery", DefaultEnabled: false, Order: 4},
			{Type: "rsvp", Title: "RSVP", DefaultEnabled: true, Order: 5},
		},
	},
}

// GetTemplateByID returns the template for the given id.
// The second return is false for unknown ids.
func GetTemplateByID(id string) (Template, bool) {
	t, ok := templates[id]
	return t, ok
}

// GetDefaultSections returns the section defaults for a template,
// or nil for unknown ids.
func GetDefaultSections(id string) []SectionDefault {
	t, ok := templates[id]
	if !ok {
		return nil
	}
	sections := make([]SectionDefault, len(t.Sections))
	copy(sections, t.Sections)
	return sections
}

// DefaultTexts returns the merged common + template-specific default text
// fields for a template, or nil for unknown ids.
func DefaultTexts(id string) map[string]string {
	t, ok := templates[id]
	if !ok {
		return nil
	}
	merged := make(map[string]string, len(commonTexts)+len(t.DefaultTexts))
	for k, v := range commonTexts {
		merged[k] = v
	}
	for k, v := range t.DefaultTexts {
		merged[k] = v
	}
	return merged
}

// IDs returns all known template ids, sorted so listings and validation
// messages are stable across calls.
func IDs() []string {
	ids := make([]string, 0, len(templates))
	for id := range templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
