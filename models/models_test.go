package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/regit-contracts/regit/internal/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 2, 28, 10, 30, 0, 0, time.UTC)

// Contract tests
func TestNewContract(t *testing.T) {
	c := NewContract("u1", testNow)

	assert.NotEqual(t, uuid.Nil, c.ID)
	assert.Equal(t, "u1", c.OwnerID)
	assert.Equal(t, policy.StatusSubmitted, c.Status)
	assert.Equal(t, testNow, c.CreatedAt)
	assert.Equal(t, testNow, c.UpdatedAt)
	assert.Equal(t, "contracts", c.TableName())
}

func TestContract_Resource(t *testing.T) {
	var nilContract *Contract
	assert.Nil(t, nilContract.Resource())

	c := NewContract("u1", testNow)
	c.Status = policy.StatusApproved
	assert.Equal(t, &policy.Resource{OwnerID: "u1", Status: policy.StatusApproved}, c.Resource())
}

func TestContract_JSONMarshaling(t *testing.T) {
	guarantee := 150.5
	c := NewContract("u1", testNow)
	c.Subject = "Consultation"
	c.RegNum = "123-321"
	c.Value = 2337.99
	c.Guarantee = &guarantee

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "submitted", decoded["status"])
	assert.Equal(t, "123-321", decoded["reg_num"])
	assert.Equal(t, 150.5, decoded["guarantee"])
	assert.NotContains(t, decoded, "responsible")
}

// Department and file tests
func TestNewDepartment(t *testing.T) {
	d := NewDepartment("Legal", testNow)
	assert.NotEqual(t, uuid.Nil, d.ID)
	assert.Equal(t, "Legal", d.Name)
	assert.Equal(t, "departments", d.TableName())
}

func TestNewContractFile(t *testing.T) {
	contractID := uuid.New()
	f := NewContractFile(contractID, "annex.pdf", "application/pdf", []byte("%PDF-1.4"), "u1", testNow)

	assert.Equal(t, contractID, f.ContractID)
	assert.Equal(t, int64(8), f.Size)
	assert.Equal(t, "contract_files", f.TableName())

	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "content\"")
}

// AuditLog tests
func TestNewAuditLog(t *testing.T) {
	log := NewAuditLog("u1", AuditActionContractCreated, "contract", testNow)

	assert.NotEqual(t, uuid.Nil, log.ID)
	assert.Equal(t, "u1", log.ActorID)
	assert.Equal(t, AuditActionContractCreated, log.Action)
	assert.Equal(t, "contract", log.ResourceType)
	assert.Equal(t, testNow, log.Timestamp)
	assert.Equal(t, "audit_logs", log.TableName())
}

func TestAuditLog_BuilderMethods(t *testing.T) {
	resourceID := uuid.New()

	log := NewAuditLog("u2", AuditActionAccessDenied, "contract", testNow).
		WithResource(resourceID).
		WithDecision("Update", "forbidden").
		WithRequest("req-123", "192.168.1.1", "Mozilla/5.0").
		WithDetails(map[string]interface{}{"key": "value"})

	assert.Equal(t, resourceID, *log.ResourceID)
	assert.Equal(t, "Update", log.Operation)
	assert.Equal(t, "forbidden", log.Decision)
	assert.Equal(t, "req-123", log.RequestID)
	assert.Equal(t, "192.168.1.1", log.IPAddress)
	assert.Equal(t, "Mozilla/5.0", log.UserAgent)
	assert.JSONEq(t, `{"key":"value"}`, string(log.Details))
}

// User tests
func TestNewUser(t *testing.T) {
	p := policy.NewPrincipal("u4", policy.RoleManager)
	u := NewUser(p, "m@example.com", "Manager", []string{"managers"})

	assert.Equal(t, "u4", u.ID)
	assert.Equal(t, []string{"Managers"}, u.Roles)
	assert.False(t, u.IsAdmin())
	assert.True(t, u.CanApprove())

	anon := NewUser(nil, "", "", nil)
	assert.Empty(t, anon.ID)
	assert.Empty(t, anon.Roles)
	assert.False(t, anon.CanApprove())
}
