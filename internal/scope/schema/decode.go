package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"obsp-workers/internal/common/validation"
	"obsp-workers/internal/models"
)

// documentShape only pins the top level; phases, fields and options are
// decoded leniently below.
const documentShape = `{
  "type": "object",
  "properties": {
    "phases": {"type": ["array", "null"]},
    "draft":  {"type": ["object", "null"]}
  }
}`

var shapeValidator = validation.MustValidator(documentShape)

type rawSchema struct {
	Phases []json.RawMessage `json:"phases"`
	Draft  json.RawMessage   `json:"draft"`
}

type rawPhase struct {
	ID          string            `json:"id"`
	DisplayName string            `json:"displayName"`
	Description string            `json:"description"`
	Fields      []json.RawMessage `json:"fields"`
}

type rawField struct {
	ID              string            `json:"id"`
	Type            string            `json:"type"`
	Label           string            `json:"label"`
	HelpText        string            `json:"helpText"`
	Required        bool              `json:"required"`
	HasPriceImpact  bool              `json:"hasPriceImpact"`
	Options         []json.RawMessage `json:"options"`
	FlatPriceImpact interface{}       `json:"flatPriceImpact"`
}

type rawOption struct {
	Text        *string     `json:"text"`
	Price       interface{} `json:"price"`
	Description string      `json:"description"`
}

// DecodeStats counts what the lenient decoder dropped.
type DecodeStats struct {
	SkippedPhases  int
	SkippedFields  int
	SkippedOptions int
}

// Decode parses a schema document. Only a document whose top level is not an
// object (or whose phases is not a list) is an error; malformed phases, fields
// and options are skipped.
func Decode(packageID, levelKey string, document []byte) (*models.Schema, DecodeStats, error) {
	var stats DecodeStats

	if res := shapeValidator.ValidateBytes(document); !res.Valid {
		return nil, stats, fmt.Errorf("malformed schema document: %s", strings.Join(res.GetErrorMessages(), "; "))
	}

	var raw rawSchema
	if err := json.Unmarshal(document, &raw); err != nil {
		return nil, stats, fmt.Errorf("decode schema document: %w", err)
	}

	out := &models.Schema{
		PackageID: packageID,
		LevelKey:  levelKey,
		Phases:    make([]models.Phase, 0, len(raw.Phases)),
	}

	for _, rp := range raw.Phases {
		var phase rawPhase
		if err := json.Unmarshal(rp, &phase); err != nil || phase.ID == "" {
			stats.SkippedPhases++
			continue
		}
		out.Phases = append(out.Phases, decodePhase(phase, &stats))
	}

	out.EmbeddedDraft = decodeDraft(raw.Draft, levelKey)
	return out, stats, nil
}

func decodePhase(raw rawPhase, stats *DecodeStats) models.Phase {
	phase := models.Phase{
		ID:          raw.ID,
		DisplayName: raw.DisplayName,
		Description: raw.Description,
		Fields:      make([]models.Field, 0, len(raw.Fields)),
	}
	for _, rf := range raw.Fields {
		var field rawField
		if err := json.Unmarshal(rf, &field); err != nil || field.ID == "" {
			stats.SkippedFields++
			continue
		}
		phase.Fields = append(phase.Fields, decodeField(field, stats))
	}
	return phase
}

func decodeField(raw rawField, stats *DecodeStats) models.Field {
	field := models.Field{
		ID:             raw.ID,
		Type:           models.ParseFieldType(raw.Type),
		Label:          raw.Label,
		HelpText:       raw.HelpText,
		Required:       raw.Required,
		HasPriceImpact: raw.HasPriceImpact,
	}

	if field.Type == models.FieldNumber {
		if flat, ok := int64Price(raw.FlatPriceImpact); ok {
			field.FlatPriceImpact = flat
		}
	}

	if !field.Type.HasOptions() {
		return field
	}

	field.Options = make([]models.Option, 0, len(raw.Options))
	for _, ro := range raw.Options {
		opt, ok := decodeOption(ro)
		if !ok {
			stats.SkippedOptions++
			continue
		}
		field.Options = append(field.Options, opt)
	}
	return field
}

func decodeOption(raw json.RawMessage) (models.Option, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return models.Option{}, false
	}

	var ro rawOption
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&ro); err != nil {
		return models.Option{}, false
	}
	if ro.Text == nil || strings.TrimSpace(*ro.Text) == "" {
		return models.Option{}, false
	}

	price, ok := int64Price(ro.Price)
	if !ok {
		return models.Option{}, false
	}

	return models.Option{
		Text:        *ro.Text,
		Price:       price,
		Description: ro.Description,
	}, true
}

// decodeDraft reads embedded draft metadata; anything unreadable counts as absent.
func decodeDraft(raw json.RawMessage, levelKey string) *models.Draft {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	var draft models.Draft
	if err := json.Unmarshal(trimmed, &draft); err != nil {
		return nil
	}
	if draft.DraftID == "" && len(draft.Responses) == 0 {
		return nil
	}
	if draft.LevelKey == "" {
		draft.LevelKey = levelKey
	}
	return &draft
}
