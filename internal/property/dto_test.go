// AngelaMos | 2026
// dto_test.go

package property

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListPropertiesParams_Normalize(t *testing.T) {
	p := ListPropertiesParams{}
	p.Normalize()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PageSize)
	assert.Equal(t, 0, p.Offset())

	p = ListPropertiesParams{Page: 3, PageSize: 500}
	p.Normalize()
	assert.Equal(t, 100, p.PageSize)
	assert.Equal(t, 200, p.Offset())

	p = ListPropertiesParams{Page: -1, PageSize: -5}
	p.Normalize()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PageSize)
}
