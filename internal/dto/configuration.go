package dto

import "time"

// ConfigurationItem is a setting as returned to administrators. IsDefault is
// set when no stored row exists and Value comes from the built-in default.
type ConfigurationItem struct {
	Key         string     `json:"key"`
	Value       string     `json:"value"`
	Type        string     `json:"type"`
	Description string     `json:"description"`
	IsDefault   bool       `json:"is_default"`
	UpdatedBy   *string    `json:"updated_by,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// UpdateConfigurationRequest sets one key. On PUT /configuration/:key the key
// may be omitted from the body.
type UpdateConfigurationRequest struct {
	Key   string `json:"key"`
	Value string `json:"value" validate:"required"`
}

// BulkUpdateConfigurationRequest sets several keys atomically.
type BulkUpdateConfigurationRequest struct {
	Items []UpdateConfigurationRequest `json:"items" validate:"required,min=1,dive"`
}
