package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePixel(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    PixelCommand
	}{
		{"full", `{"index":12,"r":255,"g":1,"b":2}`, PixelCommand{12, 255, 1, 2}},
		{"reordered", `{"b":3,"g":2,"r":1,"index":4}`, PixelCommand{4, 1, 2, 3}},
		{"missing channels", `{"index":7}`, PixelCommand{Index: 7}},
		{"bad field", `{"index":7,"r":"red","g":9,"b":1}`, PixelCommand{Index: 7, G: 9, B: 1}},
		{"fraction", `{"index":1.5,"r":1}`, PixelCommand{R: 1}},
		{"not json", `index=3`, PixelCommand{}},
		{"empty", ``, PixelCommand{}},
		{"out of range passes through", `{"index":-3,"r":999}`, PixelCommand{Index: -3, R: 999}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePixel([]byte(tt.payload), false)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePixelStrict(t *testing.T) {
	got, err := ParsePixel([]byte(`{"index":1,"r":2,"g":3,"b":4}`), true)
	require.NoError(t, err)
	assert.Equal(t, PixelCommand{1, 2, 3, 4}, got)

	for _, payload := range []string{
		`{"index":1,"r":2,"g":3}`,
		`{"index":"1","r":2,"g":3,"b":4}`,
		`nope`,
	} {
		_, err := ParsePixel([]byte(payload), true)
		assert.ErrorIs(t, err, ErrMalformed, payload)
	}
}

func TestParseCell(t *testing.T) {
	got, err := ParseCell([]byte(`{"x":3,"y":1,"r":9}`), false)
	require.NoError(t, err)
	assert.Equal(t, CellCommand{X: 3, Y: 1, R: 9}, got)

	_, err = ParseCell([]byte(`{"x":3,"r":9,"g":0,"b":0}`), true)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestIsCell(t *testing.T) {
	assert.True(t, IsCell([]byte(`{"x":0,"y":0}`)))
	assert.True(t, IsCell([]byte(`{"y":2,"r":1}`)))
	assert.False(t, IsCell([]byte(`{"index":4,"x":1}`)))
	assert.False(t, IsCell([]byte(`{"r":1}`)))
	assert.False(t, IsCell([]byte(`x=1`)))
}
