package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowListIsAllowed(t *testing.T) {
	allow := NewAllowList([]string{"youtube.com", " YouTu.be ", "tiktok.com"})

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"exact domain", "https://youtube.com/watch?v=abc", true},
		{"subdomain", "https://sub.youtube.com/watch?v=abc", true},
		{"www subdomain", "https://www.youtube.com/watch?v=abc", true},
		{"uppercase host", "https://WWW.YOUTUBE.COM/watch?v=abc", true},
		{"with port", "https://youtube.com:443/watch", true},
		{"normalized short domain", "https://youtu.be/abc", true},
		{"suffix without dot", "https://notyoutube.com/watch", false},
		{"approved name in path only", "https://evil.com/youtube.com", false},
		{"approved name as prefix", "https://youtube.com.evil.com/watch", false},
		{"unapproved host", "https://vimeo.com/123", false},
		{"no host", "/watch?v=abc", false},
		{"garbage", "://", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, allow.IsAllowed(tt.url))
		})
	}
}

func TestAllowListEmpty(t *testing.T) {
	allow := NewAllowList(nil)
	assert.False(t, allow.IsAllowed("https://youtube.com/watch"))
}
