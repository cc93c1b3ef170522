package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRole_Table(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{in: "admin", want: RoleAdmin},
		{in: "Farmer", want: RoleFarmer},
		{in: "  retailer ", want: RoleRetailer},
		{in: "transporter", want: RoleTransporter},
		{in: "MANAGER", want: RoleManager},
		{in: "regulator", want: RoleRegulator},
		{in: "", wantErr: true},
		{in: "superuser", wantErr: true},
		{in: "admins", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := ParseRole(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownRole)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestRoles_AllValid(t *testing.T) {
	t.Parallel()

	require.Len(t, Roles(), 6)
	for _, r := range Roles() {
		require.True(t, r.IsValid(), r)
	}

	require.False(t, Role("root").IsValid())
}
