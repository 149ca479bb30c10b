package entity

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// ParseVec2 accepts the encodings scripts and level data use for points:
// {"x": 1, "y": 2}, "1;2" and [1, 2].
func ParseVec2(v any) (mgl64.Vec2, error) {
	switch val := v.(type) {
	case mgl64.Vec2:
		return val, nil
	case map[string]any:
		x, okX := toFloat(val["x"])
		y, okY := toFloat(val["y"])
		if !okX || !okY {
			return mgl64.Vec2{}, fmt.Errorf("%w: %v", ErrBadVector, val)
		}
		return mgl64.Vec2{x, y}, nil
	case string:
		parts := strings.Split(val, ";")
		if len(parts) != 2 {
			return mgl64.Vec2{}, fmt.Errorf("%w: %q", ErrBadVector, val)
		}
		x, errX := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		y, errY := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if errX != nil || errY != nil {
			return mgl64.Vec2{}, fmt.Errorf("%w: %q", ErrBadVector, val)
		}
		return mgl64.Vec2{x, y}, nil
	case []any:
		if len(val) != 2 {
			return mgl64.Vec2{}, fmt.Errorf("%w: %v", ErrBadVector, val)
		}
		x, okX := toFloat(val[0])
		y, okY := toFloat(val[1])
		if !okX || !okY {
			return mgl64.Vec2{}, fmt.Errorf("%w: %v", ErrBadVector, val)
		}
		return mgl64.Vec2{x, y}, nil
	default:
		return mgl64.Vec2{}, fmt.Errorf("%w: %T", ErrBadVector, v)
	}
}

// Vec2Value is the snapshot encoding of a point.
func Vec2Value(v mgl64.Vec2) map[string]any {
	return map[string]any{"x": v.X(), "y": v.Y()}
}

// FormatVec2 renders v in the "x;y" form.
func FormatVec2(v mgl64.Vec2) string {
	return strconv.FormatFloat(v.X(), 'g', -1, 64) + ";" + strconv.FormatFloat(v.Y(), 'g', -1, 64)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
