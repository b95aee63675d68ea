package engine

import (
	"github.com/quickledger/importer/internal/schema"
)

// Normalize parses one source row into the canonical field set for its kind.
//
// It is a pure function of the row and the schema definition: no store
// access, no side effects. A *ValidationError is returned when a required
// column is missing from the file, empty where that is forbidden, or fails
// type coercion.
func Normalize(row SourceRow, def schema.Definition) (NormalizedRecord, error) {
	rec := NormalizedRecord{
		Kind:  def.Kind,
		Line:  row.Line,
		Attrs: map[string]string{},
	}

	for _, spec := range def.Fields {
		raw, present := lookupField(row, spec)

		if !present {
			if spec.Required {
				return NormalizedRecord{}, &ValidationError{
					Line: row.Line, Field: spec.Field,
					Msg: "missing required column (expected one of: " + joinAliases(spec) + ")",
				}
			}
			continue
		}
		if raw == "" {
			if spec.Required {
				return NormalizedRecord{}, &ValidationError{
					Line: row.Line, Field: spec.Field, Msg: "required field is empty",
				}
			}
			continue
		}

		if err := assignField(&rec, spec, raw); err != nil {
			return NormalizedRecord{}, err
		}
	}

	if rec.DisplayName == "" {
		return NormalizedRecord{}, &ValidationError{
			Line: row.Line, Field: "display_name", Msg: "required field is empty",
		}
	}
	rec.NormalizedName = FoldName(rec.DisplayName)

	return rec, nil
}

// lookupField tries each header alias in order and returns the first
// non-empty cell. present is true when any alias column exists in the file.
func lookupField(row SourceRow, spec schema.FieldSpec) (value string, present bool) {
	for _, alias := range spec.Aliases {
		v, ok := row.Get(alias)
		if !ok {
			continue
		}
		present = true
		if v != "" {
			return v, true
		}
	}
	return "", present
}

func assignField(rec *NormalizedRecord, spec schema.FieldSpec, raw string) error {
	switch spec.Role {
	case schema.RoleExternalID:
		rec.ExternalID = raw
	case schema.RoleDisplayName:
		rec.DisplayName = raw
	case schema.RoleCustomerExternalID:
		rec.CustomerExternalID = raw
	case schema.RoleCustomerName:
		rec.CustomerName = raw
	case schema.RoleTxnDate:
		t, err := ParseDate(raw)
		if err != nil {
			return &ValidationError{Line: rec.Line, Field: spec.Field, Msg: err.Error()}
		}
		rec.TxnDate = t
	case schema.RoleAmount:
		d, err := ParseAmount(raw)
		if err != nil {
			return &ValidationError{Line: rec.Line, Field: spec.Field, Msg: err.Error()}
		}
		rec.Amount = d
	case schema.RoleAttr:
		rec.Attrs[spec.Field] = raw
	}
	return nil
}

func joinAliases(spec schema.FieldSpec) string {
	out := ""
	for i, a := range spec.Aliases {
		if i > 0 {
			out += ", "
		}
		out += `"` + a + `"`
	}
	return out
}
