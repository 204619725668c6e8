package domain

import (
	"slices"
	"strings"
)

// Artisan is the maker attached to a product record.
type Artisan struct {
	Name      string `json:"name,omitempty"`
	Specialty string `json:"specialty,omitempty"`
}

// Product is a storefront product record. The engine reads only the fields below.
type Product struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Category    string   `json:"category,omitempty"`
	Region      string   `json:"region,omitempty"`
	Images      []string `json:"images,omitempty"`
	Artisan     Artisan  `json:"artisan"`
}

// Clone returns a copy that shares no slices with p.
func (p *Product) Clone() Product {
	c := *p
	c.Tags = slices.Clone(p.Tags)
	c.Images = slices.Clone(p.Images)
	return c
}

// Validate checks that the product can be keyed in the index.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return ErrInvalidProduct
	}
	return nil
}

// SearchableText joins the textual fields into one blob for lexical extraction.
// Empty fields are skipped; parts are separated by single spaces.
func (p *Product) SearchableText() string {
	parts := []string{p.Title, p.Description, strings.Join(p.Tags, " "), p.Category, p.Region, p.Artisan.Specialty}
	kept := parts[:0]
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, " ")
}

// CulturalFields returns the product attributes matched against query cultural tags.
func (p *Product) CulturalFields() []string {
	fields := make([]string, 0, len(p.Tags)+2)
	fields = append(fields, p.Tags...)
	if p.Category != "" {
		fields = append(fields, p.Category)
	}
	if p.Artisan.Specialty != "" {
		fields = append(fields, p.Artisan.Specialty)
	}
	return fields
}
