package jsonx

import "encoding/json"

// Decode converts src into dst. src may be raw JSON ([]byte or string) or an
// already parsed JSON-like value (map[string]any, []any, ...), which is
// re-encoded first.
func Decode[T any](src any, dst *T) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, dst)
	}
}
