package analysis

import (
	"encoding/json"
	"sort"

	"github.com/invopop/jsonschema"
)

// FieldSpec describes one field of a structured model output.
type FieldSpec struct {
	Name        string
	Type        string
	Description string
	// MinLength is only meaningful for string fields; 0 means no minimum.
	MinLength int
}

var (
	analysisSchema = GenerateSchema[Analysis]()
	analysisFields = FieldSpecs[Analysis]()
)

// Fields returns the ordered field descriptions of Analysis.
func Fields() []FieldSpec {
	return append([]FieldSpec(nil), analysisFields...)
}

// Schema returns the JSON Schema of Analysis as a generic map.
func Schema() map[string]interface{} {
	return analysisSchema
}

func reflector() *jsonschema.Reflector {
	return &jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
		Anonymous:                  true,
	}
}

// GenerateSchema reflects T into a strict JSON Schema map: every object property is required
// and additional properties are rejected.
func GenerateSchema[T any]() map[string]interface{} {
	var v T
	schema := reflector().Reflect(v)
	schemaObj, err := schemaToMap(schema)
	if err != nil {
		panic(err)
	}
	delete(schemaObj, "$schema")
	ensureStrict(schemaObj)
	return schemaObj
}

// FieldSpecs lists the top-level properties of T in declaration order.
func FieldSpecs[T any]() []FieldSpec {
	var v T
	schema := reflector().Reflect(v)
	if schema.Properties == nil {
		return nil
	}
	var out []FieldSpec
	for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		spec := FieldSpec{
			Name:        pair.Key,
			Type:        pair.Value.Type,
			Description: pair.Value.Description,
		}
		if pair.Value.MinLength != nil {
			spec.MinLength = int(*pair.Value.MinLength)
		}
		out = append(out, spec)
	}
	return out
}

func schemaToMap(schema *jsonschema.Schema) (map[string]interface{}, error) {
	b, err := schema.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

const (
	propertiesKey           = "properties"
	additionalPropertiesKey = "additionalProperties"
	typeKey                 = "type"
	requiredKey             = "required"
	itemsKey                = "items"
)

func ensureStrict(schema map[string]interface{}) {
	if schemaType, ok := schema[typeKey].(string); ok && schemaType == "object" {
		schema[additionalPropertiesKey] = false

		if properties, ok := schema[propertiesKey].(map[string]interface{}); ok {
			var requiredFields []string
			for propName := range properties {
				requiredFields = append(requiredFields, propName)
			}
			// Sorted so the rendered prompt is byte-identical across calls.
			sort.Strings(requiredFields)
			if len(requiredFields) > 0 {
				schema[requiredKey] = requiredFields
			}
		}
	}

	if properties, ok := schema[propertiesKey].(map[string]interface{}); ok {
		for _, prop := range properties {
			if propMap, ok := prop.(map[string]interface{}); ok {
				ensureStrict(propMap)
			}
		}
	}

	if items, ok := schema[itemsKey].(map[string]interface{}); ok {
		ensureStrict(items)
	}

	if additionalProps, ok := schema[additionalPropertiesKey].(map[string]interface{}); ok {
		ensureStrict(additionalProps)
	}
}
