package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostAddr(t *testing.T) {
	tests := []struct {
		name    string
		ip      string
		want    string
		wantErr bool
	}{
		{name: "default prefix", ip: "10.0.0.1", want: "10.0.0.1/8"},
		{name: "explicit prefix", ip: "192.168.1.1/24", want: "192.168.1.1/24"},
		{name: "ipv6", ip: "2001:db8::1/64", want: "2001:db8::1/64"},
		{name: "bad address", ip: "10.0.0.256/24", wantErr: true},
		{name: "bad prefix", ip: "10.0.0.1/x", wantErr: true},
		{name: "prefix too long", ip: "10.0.0.1/33", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := HostAddr(tt.ip, 8)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
