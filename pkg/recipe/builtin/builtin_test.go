package builtin

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/biovault/pkgsmith/pkg/recipe"
)

func TestRegistersAllRecipes(t *testing.T) {
	assert.Equal(t, []string{"faiss", "lz4", "onetbb"}, recipe.GlobalNames())
}
