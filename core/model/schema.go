package model

// LayoutSchema and LinkSchema give DecodeLayout/DecodeLink an early,
// field-level diagnostic pass before the hand-written invariant checks
// run (§4.3). Leaving either blank disables the schema gate for that
// payload kind without touching call sites.
const (
	LayoutSchema = `{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"type": "object",
		"required": ["steps", "keys", "expires"],
		"properties": {
			"_type": {"const": "layout"},
			"expires": {"type": "string", "format": "date-time"},
			"readme": {"type": "string"},
			"keys": {"type": "object"},
			"steps": {
				"type": ["array", "null"],
				"items": {
					"type": "object",
					"required": ["name", "pubkeys", "threshold"],
					"properties": {
						"name": {"type": "string", "minLength": 1},
						"expected_command": {"type": "array", "items": {"type": "string"}},
						"pubkeys": {"type": "array", "items": {"type": "string"}, "minItems": 1},
						"threshold": {"type": "integer", "minimum": 1},
						"expected_materials": {"type": "array"},
						"expected_products": {"type": "array"}
					}
				}
			},
			"inspect": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["name"],
					"properties": {
						"name": {"type": "string", "minLength": 1},
						"run": {"type": "array", "items": {"type": "string"}},
						"expected_materials": {"type": "array"},
						"expected_products": {"type": "array"}
					}
				}
			}
		}
	}`

	LinkSchema = `{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"type": "object",
		"required": ["name"],
		"properties": {
			"_type": {"const": "link"},
			"name": {"type": "string", "minLength": 1},
			"command": {"type": ["array", "null"], "items": {"type": "string"}},
			"materials": {"type": ["object", "null"]},
			"products": {"type": ["object", "null"]},
			"byproducts": {"type": "object"},
			"environment": {"type": "object"}
		}
	}`
)
