// Copyright (C) 2019 MINT Project Authors.
// See LICENSE for copying information.

package query

import (
	"encoding/json"
	"fmt"

	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// LocationSRID is the spatial reference identifier used for all geometry
// construction. It corresponds to the WGS 84 projection.
const LocationSRID = 4326

// BBox is an axis-aligned bounding envelope.
type BBox struct {
	XMin, YMin, XMax, YMax float64
}

// Geometry is a parsed spatial filter value: either a bounding envelope
// or a GeoJSON geometry document.
type Geometry struct {
	BBox    *BBox
	GeoJSON []byte
}

// ParseGeometry parses a spatial filter value. A 4-element numeric array
// is interpreted as [xmin, ymin, xmax, ymax]; an object is interpreted as
// a GeoJSON geometry and validated by deserializing it.
func ParseGeometry(value interface{}) (*Geometry, error) {
	switch v := value.(type) {
	case []interface{}:
		if len(v) != 4 {
			return nil, fmt.Errorf("must be a numeric array with [x_min, y_min, x_max, y_max]")
		}
		coords := make([]float64, 4)
		for i, item := range v {
			f, ok := toFloat(item)
			if !ok {
				return nil, fmt.Errorf("must be a numeric array with [x_min, y_min, x_max, y_max]")
			}
			coords[i] = f
		}
		return &Geometry{BBox: &BBox{
			XMin: coords[0], YMin: coords[1],
			XMax: coords[2], YMax: coords[3],
		}}, nil

	case map[string]interface{}:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("not a valid GeoJSON geometry: %v", err)
		}
		var g geom.T
		if err := geojson.Unmarshal(raw, &g); err != nil {
			return nil, fmt.Errorf("not a valid GeoJSON geometry: %v", err)
		}
		return &Geometry{GeoJSON: raw}, nil

	default:
		return nil, fmt.Errorf("must be a bounding box array or a GeoJSON geometry object")
	}
}

// CompileSpatial appends a spatial predicate to the builder, comparing
// the geometry column with the clause's geometry under the clause
// operator. A NULL indexed geometry never matches.
func CompileSpatial(b *SelectBuilder, column string, clause Clause) error {
	if clause.Geometry == nil {
		return ErrInvalidDefinition.New("invalid filter value for '%s'", clause.Field)
	}

	var queryGeom string
	if bbox := clause.Geometry.BBox; bbox != nil {
		queryGeom = fmt.Sprintf("ST_MakeEnvelope(%s, %s, %s, %s, %d)",
			b.Bind(bbox.XMin), b.Bind(bbox.YMin), b.Bind(bbox.XMax), b.Bind(bbox.YMax),
			LocationSRID)
	} else {
		queryGeom = fmt.Sprintf("ST_SetSRID(ST_GeomFromGeoJSON(%s), %d)",
			b.Bind(string(clause.Geometry.GeoJSON)), LocationSRID)
	}

	switch clause.Op {
	case OpWithin:
		b.Where("ST_Within(" + column + ", " + queryGeom + ")")
	case OpIntersects:
		b.Where("ST_Intersects(" + column + ", " + queryGeom + ")")
	default:
		return ErrInvalidDefinition.New("invalid filter operation for '%s': %s", clause.Field, clause.Op)
	}
	return nil
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
