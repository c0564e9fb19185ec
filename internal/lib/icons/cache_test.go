package icons

import (
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feralcreative/moto-rooter/server/internal/lib/routing"
)

const gasSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 24 24"><path fill="currentColor" d="M0 0h24v24H0z"/><circle style="fill:none" r="2"/><rect fill="#FFF"/></svg>`

func testCache() *Cache {
	return NewCache(fstest.MapFS{
		"icon-gas.svg": {Data: []byte(gasSVG)},
	}, []string{"#e6194b", "#3cb44b"})
}

func TestColorize(t *testing.T) {
	out := Colorize(gasSVG, "#e6194b", "0.3")
	assert.True(t, strings.HasPrefix(out, `<svg opacity="0.3" xmlns=`))
	assert.Contains(t, out, `path fill="#e6194b"`)
	assert.Contains(t, out, `style="fill:#e6194b"`)
	assert.Contains(t, out, `rect fill="#e6194b"`, "fill matching is case-insensitive")
	assert.NotContains(t, out, "currentColor")
}

func TestCache_SVG(t *testing.T) {
	c := testCache()
	gas := routing.Role{Kind: routing.RoleGas}

	full, err := c.SVG(gas, 0, VariantFull)
	require.NoError(t, err)
	assert.Contains(t, full, `opacity="1.0"`)
	assert.Contains(t, full, "#e6194b")

	dim, err := c.SVG(gas, 0, VariantDim)
	require.NoError(t, err)
	assert.Contains(t, dim, `opacity="0.3"`)

	wrapped, err := c.SVG(gas, 3, VariantFull)
	require.NoError(t, err)
	assert.Contains(t, wrapped, "#3cb44b", "color index wraps around the palette")

	assert.Equal(t, 3, c.Len())

	again, err := c.SVG(gas, 2, VariantFull)
	require.NoError(t, err)
	assert.Equal(t, full, again)
	assert.Equal(t, 3, c.Len())
}

func TestCache_Errors(t *testing.T) {
	c := testCache()

	_, err := c.SVG(routing.Role{Kind: routing.RoleCustom, Raw: "TACOS"}, 0, VariantFull)
	assert.ErrorIs(t, err, ErrNoIcon)

	_, err = c.SVG(routing.Role{Kind: routing.RoleNone}, 0, VariantFull)
	assert.ErrorIs(t, err, ErrNoIcon)

	_, err = c.SVG(routing.Role{Kind: routing.RoleGas}, -1, VariantFull)
	assert.ErrorIs(t, err, ErrBadColor)

	_, err = c.SVG(routing.Role{Kind: routing.RoleFood}, 0, VariantFull)
	assert.Error(t, err, "missing icon file")
}

func TestCache_DataURI(t *testing.T) {
	uri, err := testCache().DataURI(routing.Role{Kind: routing.RoleGas}, 1, VariantDim)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:image/svg+xml;charset=UTF-8,%3Csvg%20opacity%3D%220.3%22"))
	payload := strings.TrimPrefix(uri, "data:image/svg+xml;charset=UTF-8,")
	assert.NotContains(t, payload, "+", "spaces are %20, never +")
	assert.NotContains(t, payload, `"`)
}

func TestCache_Concurrent(t *testing.T) {
	c := testCache()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := c.SVG(routing.Role{Kind: routing.RoleGas}, i, VariantFull)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 2, c.Len())
}

func TestParseVariant(t *testing.T) {
	v, err := ParseVariant("")
	require.NoError(t, err)
	assert.Equal(t, VariantFull, v)

	v, err = ParseVariant("DIM")
	require.NoError(t, err)
	assert.Equal(t, VariantDim, v)

	_, err = ParseVariant("bright")
	assert.Error(t, err)
}
