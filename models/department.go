package models

import (
	"time"

	"github.com/google/uuid"
)

// Department is an organisational unit that is responsible for or controls contracts
type Department struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the Department model
func (Department) TableName() string {
	return "departments"
}

// NewDepartment creates a new Department instance
func NewDepartment(name string, now time.Time) *Department {
	return &Department{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: now,
	}
}
