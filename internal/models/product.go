package models

import (
	"strings"
	"time"
)

// Shop is the static identity of one target website.
type Shop struct {
	Name       string   `json:"name" yaml:"name"`
	BaseURL    string   `json:"base_url" yaml:"base_url"`
	Categories []string `json:"categories" yaml:"categories"`
}

// HasCategory reports whether category is one of the configured seeds.
func (s Shop) HasCategory(category string) bool {
	for _, c := range s.Categories {
		if c == category {
			return true
		}
	}
	return false
}

// RelativeURL strips the shop's base origin from u.
func (s Shop) RelativeURL(u string) string {
	if s.BaseURL == "" {
		return u
	}
	return strings.TrimPrefix(u, strings.TrimSuffix(s.BaseURL, "/"))
}

type ScrapeStatus string

const (
	StatusPending ScrapeStatus = "PENDING"
	StatusDone    ScrapeStatus = "DONE"
	StatusFailed  ScrapeStatus = "FAILED"
)

// DiscoveredURL is one product-detail page found during link discovery.
type DiscoveredURL struct {
	ID              int64        `json:"id"`
	Shop            string       `json:"shop"`
	URL             string       `json:"url"`
	Status          ScrapeStatus `json:"status"`
	StatusUpdatedAt *time.Time   `json:"status_updated_at,omitempty"`
}

// ProductRecord is one (product, variant) row destined for stg_pet_products.
type ProductRecord struct {
	Shop               string   `json:"shop"`
	Name               string   `json:"name"`
	Description        *string  `json:"description,omitempty"`
	Rating             string   `json:"rating"`
	URL                string   `json:"url"`
	Variant            *string  `json:"variant,omitempty"`
	Price              float64  `json:"price"`
	DiscountedPrice    *float64 `json:"discounted_price,omitempty"`
	DiscountPercentage *float64 `json:"discount_percentage,omitempty"`
	ImageURLs          []string `json:"image_urls,omitempty"`
}

// JoinedImageURLs renders the image list the way the staging table stores it.
func (r ProductRecord) JoinedImageURLs() *string {
	if len(r.ImageURLs) == 0 {
		return nil
	}
	s := strings.Join(r.ImageURLs, ", ")
	return &s
}

// VariantURL identifies an already scraped variant page for image backfill.
type VariantURL struct {
	ID      string `json:"id"`
	Shop    string `json:"shop"`
	URL     string `json:"url"`
	Variant string `json:"variant,omitempty"`
}

// ImageRecord is the output of the image-only extraction path.
type ImageRecord struct {
	Shop      string   `json:"shop"`
	URL       string   `json:"url"`
	ImageURLs []string `json:"image_urls"`
}

// RunState tracks where a shop sits in its ETL lifecycle.
type RunState string

const (
	StateNotStarted       RunState = "NOT_STARTED"
	StateDiscoveringLinks RunState = "DISCOVERING_LINKS"
	StateLinksLoaded      RunState = "LINKS_LOADED"
	StateScraping         RunState = "SCRAPING"
	StateDone             RunState = "DONE"
)

// StatusCount is the number of URLs in one status for a shop.
type StatusCount struct {
	Shop   string       `json:"shop"`
	Status ScrapeStatus `json:"status"`
	Count  int64        `json:"count"`
}
