package pdf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPageCount_RejectsGarbage(t *testing.T) {
	_, err := PageCount([]byte("this is not a pdf"))
	require.Error(t, err)

	_, err = PageCount(nil)
	require.Error(t, err)
}

func TestMerge_RejectsEmptyInput(t *testing.T) {
	_, err := Merge(nil)
	require.Error(t, err)
}

func TestMerge_RejectsGarbageParts(t *testing.T) {
	_, err := Merge([][]byte{[]byte("junk"), []byte("more junk")})
	require.Error(t, err)
}
