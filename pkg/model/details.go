package model

// Details is the static metadata of an instrument. It carries no
// behaviour; the struct tags are checked when an instrument is registered.
type Details struct {
	Title             string   `json:"title" yaml:"title" validate:"required"`
	Description       string   `json:"description" yaml:"description" validate:"required"`
	Instructions      []string `json:"instructions,omitempty" yaml:"instructions"`
	EstimatedDuration int      `json:"estimatedDuration" yaml:"estimatedDuration" validate:"gte=1"`
	License           string   `json:"license" yaml:"license" validate:"required"`
	Tags              []string `json:"tags,omitempty" yaml:"tags" validate:"dive,required"`
	Authors           []string `json:"authors,omitempty" yaml:"authors" validate:"dive,required"`
	ReferenceURL      string   `json:"referenceUrl,omitempty" yaml:"referenceUrl" validate:"omitempty,url"`
}

// ClientDetails overrides what the data-entry client shows. Empty fields
// fall back to Details.
type ClientDetails struct {
	Title             string   `json:"title,omitempty" yaml:"title"`
	Instructions      []string `json:"instructions,omitempty" yaml:"instructions"`
	EstimatedDuration int      `json:"estimatedDuration,omitempty" yaml:"estimatedDuration" validate:"gte=0"`
}
