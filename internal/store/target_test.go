package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTargetDSN(t *testing.T) {
	tests := []struct {
		name   string
		target Target
		want   string
	}{
		{
			name:   "plain",
			target: Target{Path: "/data/shop.db"},
			want:   "file:/data/shop.db?_busy_timeout=5000&_foreign_keys=on&mode=rw",
		},
		{
			name:   "password",
			target: Target{Path: "shop.db", Password: "s3cret"},
			want:   "file:shop.db?_auth_pass=s3cret&_auth_user=admin&_busy_timeout=5000&_foreign_keys=on&mode=rw",
		},
		{
			name:   "reserved characters in path",
			target: Target{Path: "/tmp/what?#100%.db"},
			want:   "file:/tmp/what%3f%23100%25.db?_busy_timeout=5000&_foreign_keys=on&mode=rw",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.target.DSN())
			assert.Equal(t, tt.target.Path, tt.target.String())
		})
	}
}
