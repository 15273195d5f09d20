package attribute

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestParseKind(t *testing.T) {
	for _, s := range []string{"epic", "userstory", "task", "issue"} {
		k, err := ParseKind(s)
		require.NoError(t, err)
		assert.Equal(t, Kind(s), k)
	}

	_, err := ParseKind("milestone")
	assert.Error(t, err)
}

func TestParseType(t *testing.T) {
	tp, err := ParseType("est")
	require.NoError(t, err)
	assert.Equal(t, TypeEstimation, tp)

	_, err = ParseType("float")
	assert.Error(t, err)
}

func TestAttributeValidate(t *testing.T) {
	valid := Attribute{
		ProjectID: 1,
		Kind:      KindUserStory,
		Name:      "Story points",
		Type:      TypeNumber,
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name    string
		mutate  func(a *Attribute)
		wantErr error
	}{
		{
			name:    "empty name",
			mutate:  func(a *Attribute) { a.Name = "  " },
			wantErr: ErrEmptyName,
		},
		{
			name:    "long name",
			mutate:  func(a *Attribute) { a.Name = strings.Repeat("x", MaxNameLen+1) },
			wantErr: ErrNameTooLong,
		},
		{
			name:    "bad kind",
			mutate:  func(a *Attribute) { a.Kind = "sprint" },
			wantErr: ErrBadKind,
		},
		{
			name:    "bad type",
			mutate:  func(a *Attribute) { a.Type = "float" },
			wantErr: ErrBadType,
		},
		{
			name:    "negative order",
			mutate:  func(a *Attribute) { a.Order = -1 },
			wantErr: ErrBadOrder,
		},
		{
			name:    "options on non-dropdown",
			mutate:  func(a *Attribute) { a.Options = []string{"a", "b"} },
			wantErr: ErrBadOptions,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := valid
			tt.mutate(&a)
			err := a.Validate()
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAttributeValidateAggregates(t *testing.T) {
	a := Attribute{Kind: "nope", Type: "nope", Order: -3}
	err := a.Validate()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 4)
}

func TestDropdownOptionsAllowed(t *testing.T) {
	a := Attribute{
		ProjectID: 1,
		Kind:      KindIssue,
		Name:      "Severity",
		Type:      TypeDropdown,
		Options:   []string{"low", "high"},
	}
	assert.NoError(t, a.Validate())
}
