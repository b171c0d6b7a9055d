package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain path untouched", "/users", "/users"},
		{"root untouched", "/", "/"},
		{"query truncated", "/users?page=2&limit=10", "/users"},
		{"trailing slash stripped", "/users/", "/users"},
		{"single trailing slash only", "/users//", "/users/"},
		{"numeric segment collapsed", "/users/42", "/users/" + ParamToken},
		{"uuid segment collapsed", "/orders/550e8400-e29b-41d4-a716-446655440000", "/orders/" + ParamToken},
		{"brace template collapsed", "/users/{userId}", "/users/" + ParamToken},
		{"fstring interpolation collapsed", "/users/{u.id}/orders", "/users/" + ParamToken + "/orders"},
		{"multiple params", "/shops/7/items/{itemId}", "/shops/" + ParamToken + "/items/" + ParamToken},
		{"mixed digits not collapsed", "/v1/users", "/v1/users"},
		{"query after param", "/users/42?expand=true", "/users/" + ParamToken},
		{"empty string", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePath(tt.in))
		})
	}
}

func TestNormalizePathIdempotent(t *testing.T) {
	paths := []string{"/users/42/", "/orders/{orderId}?x=1", "/a/b/c"}
	for _, p := range paths {
		once := NormalizePath(p)
		assert.Equal(t, once, NormalizePath(once), "normalizing %q twice must be stable", p)
	}
}
