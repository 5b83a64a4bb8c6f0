package normalizer

// shapeKind tags the upstream response layouts the normalizer accepts.
type shapeKind int

const (
	// shapeEmpty covers null, scalars and empty arrays.
	shapeEmpty shapeKind = iota
	// shapeDirect is an object carrying items and/or totals.
	shapeDirect
	// shapeArray is a non-empty array; only its first element is considered.
	shapeArray
	// shapeWrapped is an object whose payload sits under "json" and which has no items of its own.
	shapeWrapped
)

func (k shapeKind) String() string {
	switch k {
	case shapeEmpty:
		return "empty"
	case shapeDirect:
		return "direct"
	case shapeArray:
		return "array"
	case shapeWrapped:
		return "wrapped"
	}
	return "unknown"
}

type upstreamShape struct {
	kind   shapeKind
	object map[string]any
	inner  any
}

func classify(raw any) upstreamShape {
	switch v := raw.(type) {
	case []any:
		if len(v) == 0 {
			return upstreamShape{kind: shapeEmpty}
		}
		return upstreamShape{kind: shapeArray, inner: v[0]}
	case map[string]any:
		wrapped, hasWrapper := v["json"]
		if hasWrapper && wrapped != nil && v["items"] == nil {
			return upstreamShape{kind: shapeWrapped, inner: wrapped}
		}
		return upstreamShape{kind: shapeDirect, object: v}
	default:
		return upstreamShape{kind: shapeEmpty}
	}
}

// resolve peels at most one array level followed by at most one "json" wrapper
// and returns the object holding items/totals, or nil. Anything nested deeper
// degrades to an empty result.
func resolve(raw any) map[string]any {
	shape := classify(raw)

	if shape.kind == shapeArray {
		shape = classify(shape.inner)
		if shape.kind == shapeArray {
			return nil
		}
	}

	if shape.kind == shapeWrapped {
		shape = classify(shape.inner)
		if shape.kind != shapeDirect {
			return nil
		}
	}

	switch shape.kind {
	case shapeDirect:
		return shape.object
	case shapeEmpty, shapeArray, shapeWrapped:
		return nil
	}
	return nil
}
