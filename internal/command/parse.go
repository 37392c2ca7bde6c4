package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ErrMalformed is returned by strict parsing when a field is missing or not an
// integer.
var ErrMalformed = errors.New("command: malformed pixel payload")

// PixelCommand is one decoded pixel-set request.
type PixelCommand struct {
	Index int `json:"index"`
	R     int `json:"r"`
	G     int `json:"g"`
	B     int `json:"b"`
}

// CellCommand addresses a pixel by matrix position instead of strip index.
type CellCommand struct {
	X int `json:"x"`
	Y int `json:"y"`
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

var (
	pixelFields = []string{"index", "r", "g", "b"}
	cellFields  = []string{"x", "y", "r", "g", "b"}
)

// ParsePixel decodes {"index":0,"r":255,"g":0,"b":0}.
//
// In lenient mode every field that is absent or not an integer reads as 0,
// including when the payload is not a JSON object at all. Strict mode reports
// the first such field as ErrMalformed.
func ParsePixel(payload []byte, strict bool) (PixelCommand, error) {
	v, err := parseInts(payload, strict, pixelFields)
	if err != nil {
		return PixelCommand{}, err
	}
	return PixelCommand{Index: v[0], R: v[1], G: v[2], B: v[3]}, nil
}

// ParseCell decodes {"x":3,"y":1,"r":255,"g":0,"b":0} with the same lenient
// and strict rules as ParsePixel.
func ParseCell(payload []byte, strict bool) (CellCommand, error) {
	v, err := parseInts(payload, strict, cellFields)
	if err != nil {
		return CellCommand{}, err
	}
	return CellCommand{X: v[0], Y: v[1], R: v[2], G: v[3], B: v[4]}, nil
}

// IsCell reports whether payload uses the x,y form: an object carrying "x" or
// "y" and no "index".
func IsCell(payload []byte) bool {
	var fields map[string]json.RawMessage
	if json.Unmarshal(payload, &fields) != nil {
		return false
	}
	if _, ok := fields["index"]; ok {
		return false
	}
	_, x := fields["x"]
	_, y := fields["y"]
	return x || y
}

func parseInts(payload []byte, strict bool, names []string) ([]int, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		if strict {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		fields = nil
	}

	vals := make([]int, len(names))
	for i, name := range names {
		v, err := intField(fields, name)
		if err != nil {
			if strict {
				return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, name, err)
			}
			v = 0
		}
		vals[i] = v
	}
	return vals, nil
}

func intField(fields map[string]json.RawMessage, name string) (int, error) {
	raw, ok := fields[name]
	if !ok {
		return 0, errors.New("missing")
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, fmt.Errorf("not an int: %v", f)
	}
	return int(f), nil
}
