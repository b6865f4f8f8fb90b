package psi_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/psi-tools-mcp/internal/cursor"
	"github.com/ironsheep/psi-tools-mcp/internal/psi"
	"github.com/ironsheep/psi-tools-mcp/internal/psi/psitest"
)

func TestIsPSI(t *testing.T) {
	valid := psitest.Valid().Bytes()

	badTrailer := psitest.Valid()
	badTrailer.Trailer = "@@@!"

	tests := []struct {
		name string
		data []byte
		want bool
		part string
	}{
		{"valid file", valid, true, ""},
		{"framing only", []byte("psi@@@@"), true, ""},
		{"empty", nil, false, "signature"},
		{"two bytes", []byte("ps"), false, "signature"},
		{"signature without trailer", []byte("psi"), false, "trailer"},
		{"overlapping literals", []byte("psi@@@"), false, "trailer"},
		{"wrong case", []byte("PSI@@@@"), false, "signature"},
		{"bad trailer", badTrailer.Bytes(), false, "trailer"},
		{"truncated file", valid[:len(valid)-2], false, "trailer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cursor.FromBytes(tt.data)
			assert.Equal(t, tt.want, psi.IsPSI(c))

			err := psi.CheckFraming(c)
			if tt.want {
				assert.NoError(t, err)
				return
			}
			var fe *psi.FramingError
			require.True(t, errors.As(err, &fe), "got %v", err)
			assert.Equal(t, tt.part, fe.Part)
			assert.ErrorIs(t, err, psi.ErrFraming)
		})
	}
}

func TestIsPSI_RestoresOffset(t *testing.T) {
	c := cursor.FromBytes(psitest.Valid().Bytes())
	require.NoError(t, c.SeekTo(42))

	assert.True(t, psi.IsPSI(c))
	assert.Equal(t, int64(42), c.Offset())

	short := cursor.FromBytes([]byte("p"))
	require.NoError(t, short.SeekTo(1))
	assert.False(t, psi.IsPSI(short))
	assert.Equal(t, int64(1), short.Offset())
}

func TestFormat_Descriptor(t *testing.T) {
	assert.True(t, psi.Format.HasSuffix("/data/run-07/0001.PSI"))
	assert.False(t, psi.Format.HasSuffix("0001.png"))

	data := psitest.Valid().Bytes()
	c := cursor.FromBytes(data)
	require.True(t, psi.Format.IsFormat(c))

	rec, err := psi.Format.Parse(c)
	require.NoError(t, err)

	plane, err := psi.Format.NewDecoder(c, rec).ReadPlane(psi.Image2D, psi.Region{Width: 6, Height: 4})
	require.NoError(t, err)
	assert.Len(t, plane, 24)
}
