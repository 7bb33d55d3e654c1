package httpx

import (
	"bytes"
	"encoding/json"
)

// Redacted replaces restricted field values.
const Redacted = "NA"

// RedactField returns a Transform replacing field with Redacted on
// every object in the body: the top-level object, each element of a
// top-level array, and objects nested inside wrappers such as a
// paginated list. The body is normalized through its JSON encoding
// first, so any encodable type is covered and the input is never
// mutated. Objects without the field pass through unchanged.
func RedactField(field string) Transform {
	return func(body any) any {
		tree, err := normalize(body)
		if err != nil {
			// unencodable bodies fail at render time as well
			return body
		}
		return redactTree(tree, field)
	}
}

// normalize converts body to its generic JSON form. Numbers are kept as
// json.Number so they re-encode unchanged.
func normalize(body any) (any, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, err
	}
	return tree, nil
}

func redactTree(node any, field string) any {
	switch v := node.(type) {
	case map[string]any:
		for k, child := range v {
			if k == field {
				v[k] = Redacted
				continue
			}
			v[k] = redactTree(child, field)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = redactTree(item, field)
		}
		return v
	default:
		return node
	}
}
