package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnixMilli(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "1704067200000", want: 1704067200000},
		{in: "2024-01-01", want: 1704067200000},
		{in: "2024-01-01T01:30", want: 1704072600000},
		{in: "2024-01-01T00:00:00+07:00", want: 1704042000000},
		{in: "-5", wantErr: true},
		{in: "yesterday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseUnixMilli(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatUnixMilli(t *testing.T) {
	assert.Equal(t, "2024-01-01T00:00:00Z", FormatUnixMilli(1704067200000))
}
