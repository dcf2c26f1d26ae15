package config

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/invopop/jsonschema"
)

// Schema describes the YAML configuration file.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
		DoNotReference: true,
		FieldNameTag:   "yaml",
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == reflect.TypeOf(time.Duration(0)) {
				return &jsonschema.Schema{
					Type:        "string",
					Description: "Duration such as 500ms, 10s or 30m",
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(&Config{})
	schema.Title = "forex-trader-config"
	schema.Description = "Configuration of the forex-trader server and backtests"

	return schema
}

// SchemaJSON returns Schema encoded as indented JSON.
func SchemaJSON() ([]byte, error) {
	return json.MarshalIndent(Schema(), "", "  ")
}
