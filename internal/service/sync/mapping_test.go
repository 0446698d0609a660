package syncservice

import (
	"testing"

	"github.com/ibtikar-org-tr/membership-app/internal/domain"
	"github.com/ibtikar-org-tr/membership-app/pkg/xerrors"

	"github.com/stretchr/testify/assert"
)

func TestColumnIndex(t *testing.T) {
	headers := []string{"Membership Number", "Full Name", "Email"}

	assert.Equal(t, 0, ColumnIndex(headers, "Membership Number"))
	assert.Equal(t, 2, ColumnIndex(headers, "Email"))
	assert.Equal(t, -1, ColumnIndex(headers, "email"), "comparison is case-sensitive")
	assert.Equal(t, -1, ColumnIndex(headers, "Missing"))
	assert.Equal(t, -1, ColumnIndex(headers, ""))
}

func TestHeaderForField(t *testing.T) {
	assert.Equal(t, "Email", HeaderForField(testMapping, domain.FieldEmail))
	assert.Equal(t, "", HeaderForField(testMapping, domain.FieldBloodType))
}

func TestValidateMapping(t *testing.T) {
	tests := []struct {
		name    string
		mapping domain.ColumnMapping
		wantErr bool
	}{
		{
			name:    "valid mapping",
			mapping: testMapping,
			wantErr: false,
		},
		{
			name:    "empty mapping",
			mapping: domain.ColumnMapping{},
			wantErr: false,
		},
		{
			name: "two headers to one field",
			mapping: domain.ColumnMapping{
				"Email":         domain.FieldEmail,
				"Contact Email": domain.FieldEmail,
			},
			wantErr: true,
		},
		{
			name: "unmapped headers are allowed to repeat",
			mapping: domain.ColumnMapping{
				"Notes":      "",
				"More Notes": "",
				"Email":      domain.FieldEmail,
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMapping(tt.mapping)
			if tt.wantErr {
				assert.ErrorIs(t, err, xerrors.ErrDuplicateMapping)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
