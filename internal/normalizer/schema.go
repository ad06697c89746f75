package normalizer

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// responseShape is embedded in the system prompt so the provider knows the
// expected structure.
const responseShape = `{
  "isRecipe": true,
  "title": "string",
  "description": "string",
  "language": "two-letter code",
  "servings": 4,
  "difficulty": "easy|medium|hard",
  "categorySlug": "string",
  "tags": ["string"],
  "prepMinutes": 0,
  "cookMinutes": 0,
  "restMinutes": 0,
  "ingredients": [{"name": "string", "quantity": "string", "unit": "string", "note": "string", "group": "string"}],
  "instructions": [{"stepNumber": 1, "title": "string", "description": "string", "timerMinutes": 0, "group": "string"}]
}`

// recipeSchema is what we actually hold providers to. Anything that fails
// here is treated as a transport-level provider failure and retried.
const recipeSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["isRecipe"],
  "properties": {
    "isRecipe": {"type": "boolean"},
    "title": {"type": "string"},
    "description": {"type": "string"},
    "language": {"type": "string"},
    "servings": {"type": "integer", "minimum": 0},
    "difficulty": {"enum": ["easy", "medium", "hard", ""]},
    "categorySlug": {"type": "string"},
    "tags": {"type": "array", "items": {"type": "string"}},
    "prepMinutes": {"type": "integer", "minimum": 0},
    "cookMinutes": {"type": "integer", "minimum": 0},
    "restMinutes": {"type": "integer", "minimum": 0},
    "ingredients": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "quantity": {"type": "string"},
          "unit": {"type": "string"},
          "note": {"type": "string"},
          "group": {"type": "string"}
        }
      }
    },
    "instructions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["stepNumber", "description"],
        "properties": {
          "stepNumber": {"type": "integer", "minimum": 1},
          "title": {"type": "string"},
          "description": {"type": "string", "minLength": 1},
          "timerMinutes": {"type": "integer", "minimum": 0},
          "group": {"type": "string"}
        }
      }
    }
  },
  "if": {"properties": {"isRecipe": {"const": true}}},
  "then": {"required": ["isRecipe", "title", "ingredients", "instructions"]}
}`

var compiledSchema = jsonschema.MustCompileString("recipe.json", recipeSchema)

// validateResponse checks a provider response against the recipe schema.
func validateResponse(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("not valid JSON: %w", err)
	}
	if err := compiledSchema.Validate(v); err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	return nil
}
