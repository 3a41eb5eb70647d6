package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of action being audited
type AuditAction string

const (
	AuditActionContractCreated  AuditAction = "contract_created"
	AuditActionContractUpdated  AuditAction = "contract_updated"
	AuditActionContractDeleted  AuditAction = "contract_deleted"
	AuditActionContractApproved AuditAction = "contract_approved"
	AuditActionContractRejected AuditAction = "contract_rejected"
	AuditActionContractExported AuditAction = "contract_exported"
	AuditActionFileUploaded     AuditAction = "file_uploaded"
	AuditActionFileDeleted      AuditAction = "file_deleted"
	AuditActionDepartmentAdded  AuditAction = "department_created"
	AuditActionAccessDenied     AuditAction = "access_denied"
)

// AuditLog represents an audit trail entry
type AuditLog struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	ActorID      string          `json:"actor_id,omitempty" db:"actor_id"` // empty for anonymous callers
	Action       AuditAction     `json:"action" db:"action"`
	ResourceType string          `json:"resource_type" db:"resource_type"` // contract, contract_file, department
	ResourceID   *uuid.UUID      `json:"resource_id,omitempty" db:"resource_id"`
	Operation    string          `json:"operation,omitempty" db:"operation"`
	Decision     string          `json:"decision,omitempty" db:"decision"`
	Details      json.RawMessage `json:"details,omitempty" db:"details"` // JSONB for flexible metadata
	IPAddress    string          `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent    string          `json:"user_agent,omitempty" db:"user_agent"`
	RequestID    string          `json:"request_id,omitempty" db:"request_id"`
	Timestamp    time.Time       `json:"timestamp" db:"timestamp"`
}

// TableName returns the table name for the AuditLog model
func (AuditLog) TableName() string {
	return "audit_logs"
}

// NewAuditLog creates a new AuditLog instance
func NewAuditLog(actorID string, action AuditAction, resourceType string, now time.Time) *AuditLog {
	return &AuditLog{
		ID:           uuid.New(),
		ActorID:      actorID,
		Action:       action,
		ResourceType: resourceType,
		Timestamp:    now,
	}
}

// WithResource sets the resource ID
func (a *AuditLog) WithResource(resourceID uuid.UUID) *AuditLog {
	a.ResourceID = &resourceID
	return a
}

// WithDecision records the authorization outcome behind the entry
func (a *AuditLog) WithDecision(operation, decision string) *AuditLog {
	a.Operation = operation
	a.Decision = decision
	return a
}

// WithDetails sets the details
func (a *AuditLog) WithDetails(details interface{}) *AuditLog {
	if data, err := json.Marshal(details); err == nil {
		a.Details = data
	}
	return a
}

// WithRequest sets request metadata
func (a *AuditLog) WithRequest(requestID, ipAddress, userAgent string) *AuditLog {
	a.RequestID = requestID
	a.IPAddress = ipAddress
	a.UserAgent = userAgent
	return a
}
