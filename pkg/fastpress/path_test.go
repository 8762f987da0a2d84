package fastpress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPath_Parts(t *testing.T) {
	tests := []struct {
		name string
		path Path
		want []PathPart
	}{
		{
			name: "static",
			path: "/items",
			want: []PathPart{{Type: StaticPart, Value: "/items"}},
		},
		{
			name: "colon parameter",
			path: "/items/:id/tags",
			want: []PathPart{
				{Type: StaticPart, Value: "/items/"},
				{Type: ParameterPart, Value: "id"},
				{Type: StaticPart, Value: "/tags"},
			},
		},
		{
			name: "brace parameter with type",
			path: "/users/{id:int}",
			want: []PathPart{
				{Type: StaticPart, Value: "/users/"},
				{Type: ParameterPart, Value: "id"},
			},
		},
		{
			name: "wildcards",
			path: "/files/{*}",
			want: []PathPart{
				{Type: StaticPart, Value: "/files/"},
				{Type: WildcardPart, Value: "*"},
			},
		},
		{
			name: "malformed brace stays static",
			path: "/a{b",
			want: []PathPart{{Type: StaticPart, Value: "/a{b"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.path.Parts())
		})
	}
}

func TestPath_Render(t *testing.T) {
	assert.Equal(t, "/users/:id/posts/:slug", Path("/users/{id:int}/posts/:slug").Render("*"))
	assert.Equal(t, "/static/*path", Path("/static/*").Render("*path"))
	assert.Equal(t, []string{"id", "slug"}, Path("/users/{id}/posts/:slug").Params())
}

func TestJoinPath(t *testing.T) {
	assert.Equal(t, "/items", JoinPath("/items", "/"))
	assert.Equal(t, "/items", JoinPath("items/", ""))
	assert.Equal(t, "/items/:id", JoinPath("/items", "/:id"))
	assert.Equal(t, "/", JoinPath("", "/"))
	assert.Equal(t, "/health", JoinPath("/", "health"))
}
