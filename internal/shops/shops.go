// Package shops holds the per-shop configuration records driven by the ETL
// engine: where a shop lives, how its catalog is enumerated and how a
// product page becomes rows.
package shops

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/pet-products-scraper/internal/discovery"
	"github.com/maltedev/pet-products-scraper/internal/fetch"
	"github.com/maltedev/pet-products-scraper/internal/models"
)

var ErrUnknownShop = errors.New("unknown shop")

// Page is one fetched product page handed to a transform. Fetcher is there
// for supplementary calls such as rating APIs or variant pages.
type Page struct {
	Shop    models.Shop
	URL     string
	Doc     *goquery.Document
	Fetcher fetch.Fetcher
}

// Canonical is the page URL with the shop's origin stripped.
func (p *Page) Canonical() string {
	return p.Shop.RelativeURL(p.URL)
}

// Row starts a record carrying the page's shop and canonical URL.
func (p *Page) Row(name string, description *string, rating string) models.ProductRecord {
	return models.ProductRecord{
		Shop:        p.Shop.Name,
		Name:        name,
		Description: description,
		Rating:      rating,
		URL:         p.Canonical(),
	}
}

type TransformFunc func(ctx context.Context, p *Page) ([]models.ProductRecord, error)

// ImageFunc is the narrow image-only extraction used by the backfill pass.
type ImageFunc func(ctx context.Context, f fetch.Fetcher, url string) ([]string, error)

// Config is everything the engine needs to know about one shop.
type Config struct {
	Shop      models.Shop
	Discovery discovery.Strategy
	Transform TransformFunc

	// Detail builds the request for a product URL. Nil means a plain GET.
	Detail func(url string) *fetch.Request

	// NextPage makes one URL span several pages within run. It returns ""
	// when the last page has been reached.
	NextPage func(doc *goquery.Document) string

	Images        ImageFunc
	ImageDelayMin time.Duration
	ImageDelayMax time.Duration

	Disabled bool
}

func (c *Config) Name() string {
	return c.Shop.Name
}

// DetailRequest returns the request used to load a product page.
func (c *Config) DetailRequest(url string) *fetch.Request {
	if c.Detail != nil {
		return c.Detail(url)
	}
	return fetch.Get(url)
}

func (c *Config) validate() error {
	switch {
	case c.Shop.Name == "":
		return errors.New("shop name is empty")
	case c.Shop.BaseURL == "":
		return fmt.Errorf("shop %s has no base url", c.Shop.Name)
	case c.Discovery == nil:
		return fmt.Errorf("shop %s has no discovery strategy", c.Shop.Name)
	case c.Transform == nil:
		return fmt.Errorf("shop %s has no transform", c.Shop.Name)
	}
	return nil
}

// Deps are the process-level values some shops close over.
type Deps struct {
	AlgoliaAppID    string
	AlgoliaAPIKey   string
	FeefoMerchantID string
}

// Registry is the explicit lookup table of shop configurations. It keeps
// registration order so multi-shop runs are deterministic.
type Registry struct {
	order []string
	shops map[string]*Config
}

func NewRegistry(configs ...*Config) (*Registry, error) {
	r := &Registry{shops: make(map[string]*Config, len(configs))}
	for _, c := range configs {
		if err := c.validate(); err != nil {
			return nil, err
		}
		if _, dup := r.shops[c.Name()]; dup {
			return nil, fmt.Errorf("shop %s registered twice", c.Name())
		}
		r.order = append(r.order, c.Name())
		r.shops[c.Name()] = c
	}
	return r, nil
}

// Default returns the registry of every shipped shop.
func Default(deps Deps) *Registry {
	r, err := NewRegistry(
		PetsAtHome(),
		Zooplus(),
		FishKeeper(deps),
		ThePetExpress(),
		Jollyes(),
		FarmAndPetPlace(),
		Ocado(),
		PetPlanet(),
	)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Get(name string) (*Config, error) {
	c, ok := r.shops[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownShop, name)
	}
	return c, nil
}

// Names lists enabled shops in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.order))
	for _, n := range r.order {
		if !r.shops[n].Disabled {
			names = append(names, n)
		}
	}
	return names
}

// All returns every registered shop, enabled or not.
func (r *Registry) All() []*Config {
	out := make([]*Config, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.shops[n])
	}
	return out
}
