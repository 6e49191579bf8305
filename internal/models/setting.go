package models

import "time"

// SettingKind tells clients how to render a setting and the service how to
// normalise it.
type SettingKind string

const (
	SettingString  SettingKind = "STRING"
	SettingBoolean SettingKind = "BOOLEAN"
)

// Setting is a stored row of the configurations table. Catalogued keys with
// no row fall back to their defaults.
type Setting struct {
	Key         string      `db:"key" json:"key"`
	Value       string      `db:"value" json:"value"`
	Type        SettingKind `db:"type" json:"type"`
	Description *string     `db:"description" json:"description,omitempty"`
	UpdatedBy   *string     `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}
