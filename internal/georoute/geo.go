package georoute

import (
	"math"

	"parcelroute/internal/domain"
)

const earthRadiusMeters = 6371000.0

// HaversineMeters returns the great-circle distance between two points.
func HaversineMeters(a, b domain.Location) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	rLat1 := degreesToRadians(a.Lat)
	rLat2 := degreesToRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// BoundingBox is a lat/lng rectangle. It does not handle the antimeridian.
type BoundingBox struct {
	MinLat, MinLng float64
	MaxLat, MaxLng float64
}

// BoundsOf returns the smallest box containing all points. ok is false for an
// empty slice.
func BoundsOf(points ...domain.Location) (box BoundingBox, ok bool) {
	if len(points) == 0 {
		return BoundingBox{}, false
	}
	box = BoundingBox{
		MinLat: points[0].Lat, MaxLat: points[0].Lat,
		MinLng: points[0].Lng, MaxLng: points[0].Lng,
	}
	for _, p := range points[1:] {
		box.MinLat = math.Min(box.MinLat, p.Lat)
		box.MaxLat = math.Max(box.MaxLat, p.Lat)
		box.MinLng = math.Min(box.MinLng, p.Lng)
		box.MaxLng = math.Max(box.MaxLng, p.Lng)
	}
	return box, true
}

// Expand grows the box by marginKm on every side.
func (b BoundingBox) Expand(marginKm float64) BoundingBox {
	if marginKm <= 0 {
		return b
	}
	dLat := marginKm / 111.32

	// Longitude degrees shrink with latitude; use the widest edge.
	maxAbsLat := math.Max(math.Abs(b.MinLat), math.Abs(b.MaxLat))
	cos := math.Cos(degreesToRadians(math.Min(maxAbsLat+dLat, 89.9)))
	dLng := marginKm / (111.32 * cos)

	return BoundingBox{
		MinLat: math.Max(b.MinLat-dLat, -90),
		MaxLat: math.Min(b.MaxLat+dLat, 90),
		MinLng: math.Max(b.MinLng-dLng, -180),
		MaxLng: math.Min(b.MaxLng+dLng, 180),
	}
}

// Intersects reports whether the two boxes overlap, edges included.
func (b BoundingBox) Intersects(o BoundingBox) bool {
	return b.MinLat <= o.MaxLat && o.MinLat <= b.MaxLat &&
		b.MinLng <= o.MaxLng && o.MinLng <= b.MaxLng
}

// Contains reports whether p lies inside the box.
func (b BoundingBox) Contains(p domain.Location) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}
