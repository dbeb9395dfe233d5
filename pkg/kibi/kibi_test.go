package kibi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	require.Equal(t, "0 bytes", Bytes(0))
	require.Equal(t, "1023 bytes", Bytes(1023))
	require.Equal(t, "1 KB", Bytes(1024))
	require.Equal(t, "35 MB", Bytes(35*1024*1024))
	require.Equal(t, "2 GB", Bytes(2*1024*1024*1024))
	require.Equal(t, "1 TB", Bytes(1024*1024*1024*1024))
}

func TestParse(t *testing.T) {
	good := func(expected int64, s string) {
		val, err := Parse(s)
		require.NoError(t, err)
		require.Equal(t, expected, val)
	}
	good(0, "0")
	good(12345, "12345")
	good(50, "50 bytes")
	good(50*1024, "50 kb")
	good(50*1024, "50 K")
	good(50*1024*1024, "50MB")
	good(50*1024*1024*1024, "50 gb")
	good(50*1024*1024*1024*1024, "50 t")

	bad := func(s string) {
		_, err := Parse(s)
		require.Error(t, err)
	}
	bad("")
	bad("mb")
	bad("50 qb")
	bad("q50")
}
