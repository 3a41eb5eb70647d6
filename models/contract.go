package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/regit-contracts/regit/internal/policy"
)

// Contract is a registered contract record
type Contract struct {
	ID               uuid.UUID     `json:"id" db:"id"`
	RegNum           string        `json:"reg_num" db:"reg_num"`
	Subject          string        `json:"subject" db:"subject"`
	SignedOn         time.Time     `json:"signed_on" db:"signed_on"`
	ValidFrom        time.Time     `json:"valid_from" db:"valid_from"`
	Value            float64       `json:"value" db:"value"`
	Term             string        `json:"term,omitempty" db:"term"`
	Guarantee        *float64      `json:"guarantee,omitempty" db:"guarantee"`
	WaysOfCollection string        `json:"ways_of_collection,omitempty" db:"ways_of_collection"`
	InformationList  string        `json:"information_list,omitempty" db:"information_list"`
	ResponsibleID    *uuid.UUID    `json:"responsible_id,omitempty" db:"responsible_id"`
	ControlledByID   *uuid.UUID    `json:"controlled_by_id,omitempty" db:"controlled_by_id"`
	OwnerID          string        `json:"owner_id" db:"owner_id"`
	Status           policy.Status `json:"status" db:"status"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at" db:"updated_at"`

	// Populated by joins on read
	Responsible  *Department `json:"responsible,omitempty" db:"-"`
	ControlledBy *Department `json:"controlled_by,omitempty" db:"-"`
}

// TableName returns the table name for the Contract model
func (Contract) TableName() string {
	return "contracts"
}

// NewContract creates a submitted contract owned by ownerID
func NewContract(ownerID string, now time.Time) *Contract {
	return &Contract{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Status:    policy.StatusSubmitted,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Resource returns the authorization view of the contract. Safe on nil.
func (c *Contract) Resource() *policy.Resource {
	if c == nil {
		return nil
	}
	return &policy.Resource{OwnerID: c.OwnerID, Status: c.Status}
}

// ContractFilter narrows contract listings
type ContractFilter struct {
	Subject     string // case-insensitive substring
	Responsible string // responsible department name, exact
	OwnerID     string
	Status      policy.Status
	Scope       *ContractScope // nil returns every row
	Limit       int
	Offset      int
}

// ContractScope limits a listing to the rows a viewer may see. Rows whose
// status is in AnyOwner match regardless of owner; rows whose status is in
// OwnOnly match only when owned by ViewerID.
type ContractScope struct {
	ViewerID string
	AnyOwner []policy.Status
	OwnOnly  []policy.Status
}
