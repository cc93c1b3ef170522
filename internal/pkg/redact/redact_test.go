package redact

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmail(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"john@example.com", "jo***@example.com"},
		{"ab@example.com", "***@example.com"},
		{"юлия@пример.рф", "юл***@пример.рф"},
		{"no-at-sign", "***"},
		{"a@b@c", "***"},
		{"", "***"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, Email(tt.in))
		})
	}
}
