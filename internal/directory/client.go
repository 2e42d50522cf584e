// Package directory resolves pets against a remote registry service. It is
// the network-backed counterpart of the in-process pet store, for
// deployments where the pet registry lives behind its own REST API.
package directory

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/gregjones/httpcache"
	"github.com/rs/zerolog/log"

	"github.com/i-bosquet/petconnect-sub002/internal/models"
	"github.com/i-bosquet/petconnect-sub002/internal/store"
)

// Config holds the registry connection settings.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// ApplyDefaults fills in settings that were left at their zero value.
func (c *Config) ApplyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("registry base URL is required")
	}

	return nil
}

// Client is a store.PetDirectory backed by the upstream registry REST API.
// Responses are cached in memory per the registry's Cache-Control headers,
// so repeated lookups during an issuance burst do not hit the network.
type Client struct {
	http *resty.Client
}

var _ store.PetDirectory = (*Client)(nil)

func NewClient(cfg Config) (*Client, error) {
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	httpClient := &http.Client{
		Transport: httpcache.NewTransport(httpcache.NewMemoryCache()),
	}

	client := resty.NewWithClient(httpClient).
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Accept", "application/json")

	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}

	return &Client{http: client}, nil
}

// petResponse is the registry wire format for a pet.
type petResponse struct {
	PetID          uuid.UUID  `json:"pet_id"`
	Name           string     `json:"name"`
	Species        string     `json:"species"`
	BreedID        *uuid.UUID `json:"breed_id,omitempty"`
	BirthDate      time.Time  `json:"birth_date"`
	Gender         string     `json:"gender,omitempty"`
	Microchip      string     `json:"microchip,omitempty"`
	OwnerID        uuid.UUID  `json:"owner_id"`
	ActiveClinicID *uuid.UUID `json:"active_clinic_id,omitempty"`
}

type breedResponse struct {
	BreedID uuid.UUID `json:"breed_id"`
	Name    string    `json:"name"`
	Species string    `json:"species"`
}

// FindPet looks the pet up in the remote registry.
func (c *Client) FindPet(ctx context.Context, petID uuid.UUID) (*models.Pet, error) {
	var body petResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&body).
		Get("/api/v1/pets/" + petID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to call pet registry: %w", err)
	}

	if err := registryError(resp, store.ErrPetNotFound, "pet", petID); err != nil {
		return nil, err
	}

	return &models.Pet{
		PetID:          body.PetID,
		Name:           body.Name,
		Species:        body.Species,
		BreedID:        body.BreedID,
		BirthDate:      body.BirthDate,
		Gender:         body.Gender,
		Microchip:      body.Microchip,
		OwnerID:        body.OwnerID,
		ActiveClinicID: body.ActiveClinicID,
	}, nil
}

// FindBreed resolves a breed catalog entry.
func (c *Client) FindBreed(ctx context.Context, breedID uuid.UUID) (*models.Breed, error) {
	var body breedResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&body).
		Get("/api/v1/breeds/" + breedID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to call pet registry: %w", err)
	}

	if err := registryError(resp, store.ErrBreedNotFound, "breed", breedID); err != nil {
		return nil, err
	}

	return &models.Breed{
		BreedID: body.BreedID,
		Name:    body.Name,
		Species: body.Species,
	}, nil
}

// registryError maps the response status to a store sentinel. 404 means the
// entity does not exist; anything else non-2xx is an upstream failure.
func registryError(resp *resty.Response, notFound error, entity string, id uuid.UUID) error {
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return fmt.Errorf("%w: %s %s", notFound, entity, id)
	case resp.IsError():
		log.Warn().
			Int("status", resp.StatusCode()).
			Str(entity+"_id", id.String()).
			Msg("Pet registry returned an error")

		return fmt.Errorf("pet registry returned status %d for %s %s", resp.StatusCode(), entity, id)
	default:
		return nil
	}
}
