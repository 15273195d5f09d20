package attribute

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEstimation(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "0h", want: ""},
		{in: "0w0d0h", want: ""},
		{in: "4h", want: "4h"},
		{in: "8h", want: "1d"},
		{in: "9h", want: "1d1h"},
		{in: "90h", want: "2w1d2h"},
		{in: "5d", want: "1w"},
		{in: "6d", want: "1w1d"},
		{in: "2w", want: "2w"},
		{in: "1w4d9h", want: "2w1h"},
		{in: "3d12h", want: "4d4h"},
		{in: " 2d ", want: "2d"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeEstimation(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeEstimationRejectsGarbage(t *testing.T) {
	for _, in := range []string{
		"h9",
		"1h2d",
		"1d1d",
		"three hours",
		"2w-1d",
		"1.5h",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := NormalizeEstimation(in)
			assert.Error(t, err)
		})
	}
}
