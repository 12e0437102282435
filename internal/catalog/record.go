package catalog

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/tribu-ai/catalog-backend/internal/models"
)

// recordSchema gates raw records before normalization: name, category,
// industry and a short description must be present and non-empty. Records
// arrive with mixed field casing depending on the exporter, so the
// description check accepts either form.
const recordSchema = `{
	"type": "object",
	"allOf": [
		{"required": ["name"], "properties": {"name": {"type": "string", "minLength": 1}}},
		{"required": ["category"], "properties": {"category": {"type": "string", "minLength": 1}}},
		{"required": ["industry"], "properties": {"industry": {"type": "string", "minLength": 1}}},
		{"anyOf": [
			{"required": ["short_description"], "properties": {"short_description": {"type": "string", "minLength": 1}}},
			{"required": ["shortDescription"], "properties": {"shortDescription": {"type": "string", "minLength": 1}}}
		]}
	]
}`

var compiledRecordSchema = jsonschema.MustCompileString(
	"https://tribu-ai.dev/schemas/agent-record", recordSchema)

// parseRecord validates a raw catalog record and normalizes it into an
// Agent. Invalid records return an error and are dropped by the caller;
// they never fail the batch.
func parseRecord(raw json.RawMessage) (models.Agent, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return models.Agent{}, fmt.Errorf("decode record: %w", err)
	}
	if err := compiledRecordSchema.Validate(m); err != nil {
		return models.Agent{}, fmt.Errorf("invalid record: %w", err)
	}
	return normalizeRecord(m), nil
}

// normalizeRecord maps a validated raw record onto the Agent model,
// generating an identifier when absent and defaulting numeric and boolean
// fields per column.
func normalizeRecord(m map[string]any) models.Agent {
	id := stringField(m, "id")
	if id == "" {
		id = uuid.NewString()
	}
	return models.Agent{
		ID:               id,
		Name:             stringField(m, "name"),
		CreatedBy:        stringField(m, "created_by", "createdBy"),
		Website:          stringField(m, "website"),
		Access:           stringField(m, "access"),
		PricingModel:     stringField(m, "pricing_model", "pricingModel"),
		Category:         stringField(m, "category"),
		Industry:         stringField(m, "industry"),
		ShortDescription: stringField(m, "short_description", "shortDescription"),
		LongDescription:  stringField(m, "long_description", "longDescription"),
		KeyFeatures:      listField(m, "key_features", "keyFeatures"),
		UseCases:         listField(m, "use_cases", "useCases"),
		Tags:             listField(m, "tags"),
		Logo:             stringField(m, "logo"),
		LogoFileName:     stringField(m, "logo_file_name", "logoFileName"),
		Image:            stringField(m, "image"),
		ImageFileName:    stringField(m, "image_file_name", "imageFileName"),
		Video:            stringField(m, "video"),
		Upvotes:          intField(m, "upvotes"),
		Upvoters:         listField(m, "upvoters"),
		Approved:         boolField(m, "approved"),
		Slug:             stringField(m, "slug"),
		Version:          stringField(m, "version"),
		Featured:         boolField(m, "featured"),
	}
}

// stringField returns the first present key coerced to a trimmed string.
// Numbers are formatted (the version field arrives as either).
func stringField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		switch s := v.(type) {
		case string:
			return strings.TrimSpace(s)
		case float64:
			return strconv.FormatFloat(s, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(s)
		}
	}
	return ""
}

// listField normalizes a list-valued field: a JSON array keeps its elements,
// a comma-separated string is split and trimmed, null becomes an empty
// sequence, and a scalar is wrapped into a single-element sequence.
func listField(m map[string]any, keys ...string) []string {
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		switch val := v.(type) {
		case nil:
			return []string{}
		case []any:
			out := make([]string, 0, len(val))
			for _, e := range val {
				if s := scalarToString(e); s != "" {
					out = append(out, s)
				}
			}
			return out
		case string:
			parts := strings.Split(val, ",")
			out := make([]string, 0, len(parts))
			for _, p := range parts {
				if s := strings.TrimSpace(p); s != "" {
					out = append(out, s)
				}
			}
			return out
		default:
			if s := scalarToString(val); s != "" {
				return []string{s}
			}
			return []string{}
		}
	}
	return []string{}
}

func scalarToString(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}

func intField(m map[string]any, keys ...string) int {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			return int(v)
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return n
			}
		}
	}
	return 0
}

func boolField(m map[string]any, keys ...string) bool {
	for _, k := range keys {
		if v, ok := m[k].(bool); ok {
			return v
		}
	}
	return false
}
