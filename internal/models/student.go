package models

import "time"

// Student represents an enrolled student.
type Student struct {
	ID         string    `db:"id" json:"id"`
	RollNumber string    `db:"roll_number" json:"roll_number"`
	Name       string    `db:"name" json:"name"`
	Email      *string   `db:"email" json:"email,omitempty"`
	Phone      *string   `db:"phone" json:"phone,omitempty"`
	Department string    `db:"department" json:"department"`
	ClassYear  string    `db:"class_year" json:"class_year"`
	Division   string    `db:"division" json:"division"`
	IsActive   bool      `db:"is_active" json:"is_active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter captures filtering options for listing students.
type StudentFilter struct {
	Search     string
	Department string
	ClassYear  string
	Division   string
	Active     *bool
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
