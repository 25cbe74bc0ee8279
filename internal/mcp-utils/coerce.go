// Package mcputils binds loosely typed MCP tool arguments to structs.
package mcputils

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// ArgumentGetter is satisfied by mcp.CallToolRequest.
type ArgumentGetter interface {
	GetArguments() map[string]interface{}
}

// BindArguments decodes request arguments into target using json tags.
// Clients sometimes send every value as a string, so strings are coerced to
// the field type: "10" to an int, "true" to a bool, a JSON array to a slice.
func BindArguments[T any](request ArgumentGetter, target *T) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			stringValueHook,
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

func stringValueHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String {
		return data, nil
	}
	raw := strings.TrimSpace(data.(string))
	if raw == "" {
		return data, nil
	}

	switch to.Kind() {
	case reflect.Slice:
		if strings.HasPrefix(raw, "[") {
			slicePtr := reflect.New(to)
			if err := json.Unmarshal([]byte(raw), slicePtr.Interface()); err == nil {
				return slicePtr.Elem().Interface(), nil
			}
		}
		return strings.Split(raw, ","), nil
	case reflect.Bool:
		if b, err := strconv.ParseBool(raw); err == nil {
			return b, nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return int64(f), nil
		}
	case reflect.Float32, reflect.Float64:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f, nil
		}
	}
	return data, nil
}
