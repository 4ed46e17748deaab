package action

import "github.com/santhosh-tekuri/jsonschema/v5"

// Per-kind schemas. These check shape only: type, enum, and required
// identity fields. Recoverable omissions on createImage (no payload, no
// edit reference, no prompt) are deliberately NOT schema errors, since
// the image pipeline answers those with corrective retry hints at apply
// time and a schema rejection would drop the action before it gets the
// chance.

const generatorSchema = `{
	"type": "object",
	"properties": {
		"provider": {"const": "google-gemini"},
		"mode": {"enum": ["generate", "edit"]},
		"prompt": {"type": "string"},
		"editPrompt": {"type": "string"},
		"referenceShapeId": {"type": "string"},
		"referenceAssetId": {"type": "string"},
		"mimeType": {"type": "string"},
		"targetMimeType": {"type": "string"},
		"maxOutputSize": {
			"type": "object",
			"properties": {
				"width": {"type": "number", "exclusiveMinimum": 0, "maximum": 4096},
				"height": {"type": "number", "exclusiveMinimum": 0, "maximum": 4096}
			}
		}
	}
}`

var schemaDocs = map[Kind]string{
	KindMessage: `{
		"type": "object",
		"properties": {"_type": {"const": "message"}, "text": {"type": "string"}},
		"required": ["_type", "text"]
	}`,

	KindPlan: `{
		"type": "object",
		"properties": {
			"_type": {"const": "plan"},
			"steps": {"type": "array", "items": {"type": "string", "minLength": 1}, "minItems": 1},
			"objective": {"type": "string"}
		},
		"required": ["_type", "steps"]
	}`,

	KindCreateImage: `{
		"type": "object",
		"properties": {
			"_type": {"const": "createImage"},
			"intent": {"type": "string"},
			"shapeId": {"type": "string"},
			"dataUrl": {"type": "string", "pattern": "^data:image/"},
			"generator": ` + generatorSchema + `,
			"x": {"type": "number"},
			"y": {"type": "number"},
			"w": {"type": "number", "exclusiveMinimum": 0},
			"h": {"type": "number", "exclusiveMinimum": 0},
			"altText": {"type": "string"}
		},
		"required": ["_type", "intent", "shapeId", "x", "y"]
	}`,

	KindAnalyzeImage: `{
		"type": "object",
		"properties": {
			"_type": {"const": "analyzeImage"},
			"shapeId": {"type": "string"},
			"prompt": {"type": "string"}
		},
		"required": ["_type", "shapeId"]
	}`,

	KindInspiration: `{
		"type": "object",
		"properties": {"_type": {"const": "inspiration"}, "query": {"type": "string", "minLength": 1}},
		"required": ["_type", "query"]
	}`,

	KindKnowledge: `{
		"type": "object",
		"properties": {"_type": {"const": "knowledge"}, "query": {"type": "string", "minLength": 1}},
		"required": ["_type", "query"]
	}`,

	KindDesignDirection: `{
		"type": "object",
		"properties": {
			"_type": {"const": "designDirection"},
			"title": {"type": "string"},
			"summary": {"type": "string", "minLength": 1},
			"pillars": {"type": "array", "items": {"type": "string", "minLength": 1}}
		},
		"required": ["_type", "summary"]
	}`,

	KindDesignGuidance: `{
		"type": "object",
		"properties": {
			"_type": {"const": "designGuidance"},
			"recommendations": {"type": "array", "items": {"type": "string", "minLength": 1}, "minItems": 1},
			"notes": {"type": "string"}
		},
		"required": ["_type", "recommendations"]
	}`,

	KindDelete: `{
		"type": "object",
		"properties": {
			"_type": {"const": "delete"},
			"shapeId": {"type": "string", "minLength": 1},
			"intent": {"type": "string"}
		},
		"required": ["_type", "shapeId"]
	}`,
}

var compiledSchemas = func() map[Kind]*jsonschema.Schema {
	out := make(map[Kind]*jsonschema.Schema, len(schemaDocs))
	for kind, doc := range schemaDocs {
		out[kind] = jsonschema.MustCompileString(string(kind)+".json", doc)
	}
	return out
}()

func schemaFor(kind Kind) *jsonschema.Schema {
	return compiledSchemas[kind]
}
