package audit

import (
	"fmt"
	"sort"

	"github.com/UnknownOlympus/capitals/internal/models"
	"github.com/dhconnelly/rtreego"
)

const (
	dimensions  = 2
	minChildren = 2
	maxChildren = 4
	tolerance   = 1e-9
)

// Region is a latitude/longitude bounding box.
type Region struct {
	Name   string  `json:"name"`
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// Contains reports whether the point lies inside the box, borders included.
func (r Region) Contains(c models.Coordinates) bool {
	return c.Latitude >= r.MinLat && c.Latitude <= r.MaxLat &&
		c.Longitude >= r.MinLon && c.Longitude <= r.MaxLon
}

// Region names.
const (
	RegionContinental = "continental_us"
	RegionAlaska      = "alaska"
	RegionHawaii      = "hawaii"
)

// USRegions are the boxes every state capitol must fall into.
var USRegions = []Region{
	{Name: RegionContinental, MinLat: 24.396308, MaxLat: 49.384358, MinLon: -124.848974, MaxLon: -66.885444},
	{Name: RegionAlaska, MinLat: 51.2, MaxLat: 71.5, MinLon: -179.15, MaxLon: -129.97},
	{Name: RegionHawaii, MinLat: 18.9, MaxLat: 22.3, MinLon: -160.3, MaxLon: -154.8},
}

// regionItem wraps a Region for R-Tree indexing
type regionItem struct {
	region Region
	rect   *rtreego.Rect
}

func (ri *regionItem) Bounds() *rtreego.Rect {
	return ri.rect
}

// RegionIndex answers which regions contain a point. Points are indexed as (lat, lon).
type RegionIndex struct {
	tree *rtreego.Rtree
}

// NewRegionIndex builds an R-Tree over the region boxes.
func NewRegionIndex(regions []Region) (*RegionIndex, error) {
	tree := rtreego.NewTree(dimensions, minChildren, maxChildren)
	for _, region := range regions {
		bottomLeft := rtreego.Point{region.MinLat, region.MinLon}
		rectSize := []float64{region.MaxLat - region.MinLat, region.MaxLon - region.MinLon}

		bounds, err := rtreego.NewRect(bottomLeft, rectSize)
		if err != nil {
			return nil, fmt.Errorf("invalid region %q: %w", region.Name, err)
		}
		tree.Insert(&regionItem{region: region, rect: bounds})
	}

	return &RegionIndex{tree: tree}, nil
}

// Locate returns the sorted names of the regions containing the point.
func (ri *RegionIndex) Locate(c models.Coordinates) []string {
	query := rtreego.Point{c.Latitude, c.Longitude}.ToRect(tolerance)

	var names []string
	for _, result := range ri.tree.SearchIntersect(query) {
		item, ok := result.(*regionItem)
		if !ok || !item.region.Contains(c) {
			continue
		}
		names = append(names, item.region.Name)
	}
	sort.Strings(names)

	return names
}
