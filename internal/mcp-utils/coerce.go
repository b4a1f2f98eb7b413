// Package mcputils holds helpers shared by MCP tool handlers.
package mcputils

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// ArgumentGetter is implemented by mcp.CallToolRequest.
type ArgumentGetter interface {
	GetArguments() map[string]any
}

// CoerceBindArguments binds tool arguments to target using its json tags.
// Clients that send every value as a string ("3", "true", `["a"]`) are
// accepted alongside properly typed arguments.
func CoerceBindArguments[T any](request ArgumentGetter, target *T) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			jsonStringHook,
			mapstructure.StringToTimeDurationHookFunc(),
		),
		Result:  target,
		TagName: "json",
	})
	if err != nil {
		return err
	}

	return decoder.Decode(request.GetArguments())
}

// jsonStringHook decodes JSON-encoded strings bound for non-string fields.
func jsonStringHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() == reflect.String {
		return data, nil
	}

	raw := strings.TrimSpace(data.(string))
	if raw == "" {
		return data, nil
	}

	switch to.Kind() {
	case reflect.Slice:
		if !strings.HasPrefix(raw, "[") {
			return data, nil
		}
		slicePtr := reflect.New(to)
		if err := json.Unmarshal([]byte(raw), slicePtr.Interface()); err == nil {
			return slicePtr.Elem().Interface(), nil
		}
	case reflect.Bool:
		var b bool
		if err := json.Unmarshal([]byte(raw), &b); err == nil {
			return b, nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		var n json.Number
		if err := json.Unmarshal([]byte(raw), &n); err == nil {
			// mapstructure converts the number to the field type
			return n, nil
		}
	}

	return data, nil
}
