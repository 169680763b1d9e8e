package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyHemisphereRef(t *testing.T) {
	// S dan W wajib membalik tanda
	assert.Equal(t, -6.25, applyHemisphereRef(6.25, "S"))
	assert.Equal(t, -106.8, applyHemisphereRef(106.8, "W"))
	assert.Equal(t, 6.25, applyHemisphereRef(6.25, "N"))
	assert.Equal(t, 106.8, applyHemisphereRef(106.8, "E"))
	// ref kosong: biarkan apa adanya
	assert.Equal(t, 6.25, applyHemisphereRef(6.25, ""))
}

func TestValidCoordinateRejectsDegenerate(t *testing.T) {
	assert.Nil(t, validCoordinate(0, 0), "(0,0) harus dianggap tidak ada GPS")
	assert.Nil(t, validCoordinate(95, 10), "lintang di luar jangkauan")
	assert.Nil(t, validCoordinate(10, 185), "bujur di luar jangkauan")

	c := validCoordinate(-6.25, 106.8)
	require.NotNil(t, c)
	assert.Equal(t, -6.25, c.Latitude)
}

func TestExtractExifXMPFallbackGPS(t *testing.T) {
	raw := []byte(`<x:xmpmeta><rdf:Description exif:GPSLatitude="-7.801234" exif:GPSLongitude="110.364789"/></x:xmpmeta>`)

	got := ExtractExif(raw)
	require.NotNil(t, got.GPS)
	assert.InDelta(t, -7.801234, got.GPS.Latitude, 1e-9)
	assert.InDelta(t, 110.364789, got.GPS.Longitude, 1e-9)
}

func TestExtractExifXMPFallbackGPSElementForm(t *testing.T) {
	raw := []byte(`<exif:GPSLatitude>6.914744</exif:GPSLatitude><exif:GPSLongitude>107.609810</exif:GPSLongitude>`)

	got := ExtractExif(raw)
	require.NotNil(t, got.GPS)
	assert.InDelta(t, 6.914744, got.GPS.Latitude, 1e-9)
}

func TestExtractExifTextScanDates(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"format exif kanonik", `DateTimeOriginal 2024:03:15 10:30:00`, "2024-03-15T10:30:00"},
		{"format iso xmp", `<xmp:CreateDate>2023-11-02T08:15:30</xmp:CreateDate>`, "2023-11-02T08:15:30"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractExif([]byte(tt.raw))
			require.NotNil(t, got.DateTaken)
			assert.Equal(t, tt.want, *got.DateTaken)
		})
	}
}

func TestExtractExifRejectsCorruptYear(t *testing.T) {
	// 1970 di luar [2000,2099] — regex sendiri sudah minta 20xx,
	// jadi hasilnya nil
	got := ExtractExif([]byte(`1970:01:01 00:00:00`))
	assert.Nil(t, got.DateTaken)
}

func TestExtractExifNeverPanicsOnGarbage(t *testing.T) {
	inputs := [][]byte{
		nil,
		{},
		{0xff, 0xd8, 0x00, 0x01},
		[]byte("bukan metadata sama sekali"),
		[]byte(`GPSLatitude="abc" GPSLongitude="def"`),
	}
	for _, raw := range inputs {
		got := ExtractExif(raw)
		assert.Nil(t, got.GPS)
		assert.Nil(t, got.DateTaken)
	}
}

func TestExtractExifDegenerateXMPGPS(t *testing.T) {
	raw := []byte(`exif:GPSLatitude="0.000000" exif:GPSLongitude="0.000000"`)
	got := ExtractExif(raw)
	assert.Nil(t, got.GPS, "(0,0) dari XMP juga harus ditolak")
}
