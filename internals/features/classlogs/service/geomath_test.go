package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineMeters(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lng1, lat2, lng2 float64
		want                   float64
		tolerance              float64
	}{
		{
			name: "titik sama",
			lat1: -6.2, lng1: 106.816666,
			lat2: -6.2, lng2: 106.816666,
			want: 0, tolerance: 0.001,
		},
		{
			name: "jakarta ke bandung",
			lat1: -6.2, lng1: 106.816666,
			lat2: -6.914744, lng2: 107.609810,
			want: 118000, tolerance: 3000,
		},
		{
			name: "satu derajat lintang di equator",
			lat1: 0, lng1: 0,
			lat2: 1, lng2: 0,
			want: 111195, tolerance: 100,
		},
		{
			name: "melewati equator",
			lat1: -0.001, lng1: 0,
			lat2: 0.001, lng2: 0,
			want: 222.39, tolerance: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HaversineMeters(tt.lat1, tt.lng1, tt.lat2, tt.lng2)
			assert.InDelta(t, tt.want, got, tt.tolerance)
		})
	}
}

func TestHaversineMetersSymmetric(t *testing.T) {
	d1 := HaversineMeters(-6.2, 106.8, -6.9, 107.6)
	d2 := HaversineMeters(-6.9, 107.6, -6.2, 106.8)
	assert.InDelta(t, d1, d2, 0.0001)
}
