package utils

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type contractForm struct {
	Subject  string  `json:"subject" validate:"notblank,max=20"`
	Status   string  `json:"status" validate:"omitempty,oneof=submitted approved"`
	Value    float64 `json:"value" validate:"gte=0"`
	SignedOn string  `json:"signed_on" validate:"required,datetime=2006-01-02"`
}

func TestValidateStruct(t *testing.T) {
	t.Run("valid struct", func(t *testing.T) {
		s := contractForm{Subject: "Cleaning", Value: 10, SignedOn: "2024-01-01"}
		assert.NoError(t, ValidateStruct(&s))
	})

	t.Run("blank subject reports json name", func(t *testing.T) {
		s := contractForm{Subject: "   ", SignedOn: "2024-01-01"}

		err := ValidateStruct(&s)
		require.Error(t, err)
		assert.True(t, IsValidationError(err))

		fields := GetValidationFields(err)
		assert.Equal(t, "subject is required", fields["subject"])
	})

	t.Run("multiple failures", func(t *testing.T) {
		s := contractForm{
			Subject:  "a subject that is far too long",
			Status:   "archived",
			Value:    -1,
			SignedOn: "01/02/2024",
		}

		fields := GetValidationFields(ValidateStruct(&s))
		assert.Contains(t, fields["subject"], "at most 20")
		assert.Contains(t, fields["status"], "one of")
		assert.Contains(t, fields["value"], "greater than or equal")
		assert.Equal(t, "signed_on must be a date in 2006-01-02 format", fields["signed_on"])
	})
}

func TestValidationErrorHelpers(t *testing.T) {
	err := &ValidationError{Message: "Validation failed", Fields: map[string]string{"a": "b"}}
	assert.Equal(t, "Validation failed", err.Error())
	assert.True(t, IsValidationError(err))
	assert.Equal(t, map[string]string{"a": "b"}, GetValidationFields(err))

	assert.False(t, IsValidationError(assert.AnError))
	assert.Nil(t, GetValidationFields(assert.AnError))
}

func TestParseUUID(t *testing.T) {
	id := uuid.New()

	got, err := ParseUUID(id.String(), "contract id")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = ParseUUID("nope", "contract id")
	assert.EqualError(t, err, "invalid contract id: nope")
}
