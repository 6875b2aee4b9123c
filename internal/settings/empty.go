package settings

import (
	"bytes"
	"encoding/json"
	"reflect"

	"github.com/xdy-forks/foundry-simple-weather/internal/weather"
)

// IsEmpty reports whether a setting value counts as "nothing stored":
// nil, a typed nil, JSON null, an empty raw message, or a record without
// any own field. A struct counts as a record and is empty when its JSON
// form has no field.
func IsEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case json.RawMessage:
		return rawEmpty(v)
	case []byte:
		return rawEmpty(v)
	case *weather.Data:
		return v == nil
	case map[string]any:
		return len(v) == 0
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		if rv.IsNil() {
			return true
		}
	}
	switch reflect.Indirect(rv).Kind() {
	case reflect.Map:
		return reflect.Indirect(rv).Len() == 0
	case reflect.Struct:
		raw, err := json.Marshal(value)
		return err == nil && rawEmpty(raw)
	}
	return false
}

func rawEmpty(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return true
	}
	if trimmed[0] != '{' {
		return false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return false
	}
	return len(fields) == 0
}
