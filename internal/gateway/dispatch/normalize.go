package dispatch

// Envelope-level fields that belong to the gateway, not the brick. They are
// stripped when the body carries brick parameters at the top level.
var reservedFields = map[string]struct{}{
	"timestamp":         {},
	"providedSignature": {},
	"signature":         {},
	"brick":             {},
	"requestId":         {},
}

// NormalizeInput collapses the two accepted body shapes into the single flat
// form bricks consume. The deprecated shape nests parameters under a
// "params" object; the canonical shape carries them at the top level next to
// the envelope fields. The union is resolved here, once, so downstream code
// never branches on it. The result is always a fresh map.
func NormalizeInput(input map[string]any) map[string]any {
	if nested, ok := input["params"].(map[string]any); ok {
		flat := make(map[string]any, len(nested))
		for k, v := range nested {
			flat[k] = v
		}
		return flat
	}
	flat := make(map[string]any, len(input))
	for k, v := range input {
		if _, reserved := reservedFields[k]; reserved {
			continue
		}
		flat[k] = v
	}
	return flat
}
