package colormap

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"
)

// Keys modeled by Colormap and Material. Anything else lands in Extra.
var (
	colormapKeys = []string{"type", "name", "materials", "start", "end"}
	materialKeys = []string{"name", "from", "to", "color", "disabled"}
)

// Method-free views used to get the default struct coding.
type (
	colormapFields Colormap
	materialFields Material
)

func (cm *Colormap) UnmarshalJSON(b []byte) error {
	var f colormapFields
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	extra, err := unknownKeys(b, colormapKeys)
	if err != nil {
		return err
	}
	f.Extra = extra
	*cm = Colormap(f)
	return nil
}

func (cm Colormap) MarshalJSON() ([]byte, error) {
	b, err := marshalPlain(colormapFields(cm))
	if err != nil {
		return nil, err
	}
	return appendExtra(b, cm.Extra)
}

func (m *Material) UnmarshalJSON(b []byte) error {
	var f materialFields
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	extra, err := unknownKeys(b, materialKeys)
	if err != nil {
		return err
	}
	f.Extra = extra
	*m = Material(f)
	return nil
}

func (m Material) MarshalJSON() ([]byte, error) {
	b, err := marshalPlain(materialFields(m))
	if err != nil {
		return nil, err
	}
	return appendExtra(b, m.Extra)
}

// unknownKeys returns the members of object b not listed in known, or nil.
func unknownKeys(b []byte, known []string) (map[string]json.RawMessage, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(b, &all); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

func marshalPlain(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// appendExtra adds extra to the JSON object obj, keys sorted.
func appendExtra(obj []byte, extra map[string]json.RawMessage) ([]byte, error) {
	if len(extra) == 0 {
		return obj, nil
	}
	out := bytes.TrimSuffix(obj, []byte("}"))
	empty := len(bytes.TrimSpace(out)) == 1
	for _, k := range slices.Sorted(maps.Keys(extra)) {
		key, err := marshalPlain(k)
		if err != nil {
			return nil, err
		}
		var val bytes.Buffer
		if err := json.Compact(&val, extra[k]); err != nil {
			return nil, err
		}
		if !empty {
			out = append(out, ',')
		}
		empty = false
		out = append(out, key...)
		out = append(out, ':')
		out = append(out, val.Bytes()...)
	}
	return append(out, '}'), nil
}

func cloneExtra(extra map[string]json.RawMessage) map[string]json.RawMessage {
	if extra == nil {
		return nil
	}
	out := make(map[string]json.RawMessage, len(extra))
	for k, v := range extra {
		out[k] = bytes.Clone(v)
	}
	return out
}
