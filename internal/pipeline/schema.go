package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/report-facts/internal/common"
	"github.com/joseph-ayodele/report-facts/internal/entity"
)

// recordSchema guards what leaves the pipeline: persisted rows and written
// files are only produced from records that pass it.
const recordSchema = `{
  "type": "object",
  "required": ["run_id", "document", "pages", "quality", "statistics", "backends", "extracted_at"],
  "properties": {
    "run_id": {"type": "string", "minLength": 36},
    "document": {
      "type": "object",
      "required": ["id", "source_path", "content_hash", "page_count"],
      "properties": {
        "source_path": {"type": "string", "minLength": 1},
        "content_hash": {"type": "string", "pattern": "^[0-9a-f]{64}$"},
        "page_count": {"type": "integer", "minimum": 0}
      }
    },
    "pages": {"type": "array", "items": {"$ref": "#/$defs/page"}},
    "quality": {
      "type": "object",
      "required": ["overall_score", "page_count", "ocr_pages", "failed_pages"],
      "properties": {
        "overall_score": {"$ref": "#/$defs/score"},
        "table_coverage": {"$ref": "#/$defs/score"},
        "figure_coverage": {"$ref": "#/$defs/score"}
      }
    },
    "statistics": {"type": "object", "required": ["total_words", "total_facts", "facts_by_kind"]},
    "backends": {"type": "object", "required": ["text", "table", "ocr"]}
  },
  "$defs": {
    "score": {"type": "number", "minimum": 0, "maximum": 1},
    "page": {
      "type": "object",
      "required": ["page_number", "text", "tables", "quality", "facts"],
      "properties": {
        "page_number": {"type": "integer", "minimum": 1},
        "text": {"type": "string"},
        "tables": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["backend", "rows"],
            "properties": {
              "rows": {"type": ["array", "null"], "items": {"type": "array", "items": {"type": "string"}}}
            }
          }
        },
        "quality": {
          "type": "object",
          "required": ["quality_score", "word_count"],
          "properties": {
            "quality_score": {"$ref": "#/$defs/score"},
            "word_count": {"type": "integer", "minimum": 0},
            "sentence_count": {"type": "integer", "minimum": 0}
          }
        },
        "facts": {"type": "array", "items": {"$ref": "#/$defs/fact"}}
      }
    },
    "fact": {
      "type": "object",
      "required": ["kind", "literal", "context", "offset", "page"],
      "properties": {
        "kind": {"enum": ["monetary", "percentage", "year", "article", "institution", "citation", "legal_reference", "figure", "scandal", "keyword"]},
        "literal": {"type": "string", "minLength": 1},
        "offset": {"type": "integer", "minimum": 0},
        "page": {"type": "integer", "minimum": 1}
      }
    }
  }
}`

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func recordValidator() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("record.json", strings.NewReader(recordSchema)); err != nil {
			compileErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiled, compileErr = compiler.Compile("record.json")
		if compileErr != nil {
			compileErr = fmt.Errorf("compile schema: %w", compileErr)
		}
	})
	return compiled, compileErr
}

// ValidateRecord checks the JSON form of res against the record schema.
func ValidateRecord(res *entity.DocumentResult) error {
	schema, err := recordValidator()
	if err != nil {
		return err
	}
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal record: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return common.NewAppError(common.CodeValidation, "record does not match schema", fmt.Errorf("%w: %v", common.ErrValidation, err))
	}
	return nil
}
