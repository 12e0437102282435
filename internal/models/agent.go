package models

import (
	"time"
)

// Agent is a catalog entry describing a third-party AI offering.
// Name is unique: re-ingesting a record with an existing name updates the
// stored row in place instead of creating a duplicate.
type Agent struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	CreatedBy        string    `json:"createdBy,omitempty"`
	Website          string    `json:"website,omitempty"`
	Access           string    `json:"access,omitempty"`
	PricingModel     string    `json:"pricingModel,omitempty"`
	Category         string    `json:"category"`
	Industry         string    `json:"industry"`
	ShortDescription string    `json:"shortDescription"`
	LongDescription  string    `json:"longDescription,omitempty"`
	KeyFeatures      []string  `json:"keyFeatures"`
	UseCases         []string  `json:"useCases"`
	Tags             []string  `json:"tags"`
	Logo             string    `json:"logo,omitempty"`
	LogoFileName     string    `json:"logoFileName,omitempty"`
	Image            string    `json:"image,omitempty"`
	ImageFileName    string    `json:"imageFileName,omitempty"`
	Video            string    `json:"video,omitempty"`
	Upvotes          int       `json:"upvotes"`
	Upvoters         []string  `json:"upvoters"`
	Approved         bool      `json:"approved"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
	Slug             string    `json:"slug,omitempty"`
	Version          string    `json:"version,omitempty"`
	Featured         bool      `json:"featured"`
}
