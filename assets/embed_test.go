package assets

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic_ServesFrontEnd(t *testing.T) {
	static, err := Static()
	require.NoError(t, err)

	for _, name := range []string{"index.html", "app.js", "style.css"} {
		b, err := fs.ReadFile(static, name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, b, name)
	}
}
