// Package schema defines the per-kind CSV column sets the importer accepts.
//
// Each entity kind has a Definition listing its canonical fields, the header
// names that may carry them, and how each field is typed and validated. The
// accounting platform renames export columns between versions, so every field
// accepts a list of header aliases; deployments can extend the lists with a
// TOML file (see LoadAliases).
package schema

import (
	"fmt"
	"sort"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/quickledger/importer/internal/store"
)

// FieldType is the expected data type of a CSV field.
type FieldType int

const (
	FieldText FieldType = iota
	FieldDate
	FieldAmount
)

// Role states where a field lands on the normalized record.
type Role int

const (
	// RoleAttr fields go into the entity's flexible attrs area under the
	// canonical field name.
	RoleAttr Role = iota
	RoleExternalID
	RoleDisplayName
	RoleCustomerExternalID
	RoleCustomerName
	RoleTxnDate
	RoleAmount
)

// FieldSpec describes one logical CSV column.
type FieldSpec struct {
	Field    string   // canonical name, e.g. "external_id"
	Aliases  []string // accepted header names, tried in order
	Type     FieldType
	Role     Role
	Required bool
}

// Definition is the complete column set for one entity kind.
type Definition struct {
	Kind      store.Kind
	Label     string // display name for logs and reports
	Directory string // drop-folder subdirectory scanned in directory mode
	Fields    []FieldSpec
}

var (
	registry   = make(map[store.Kind]Definition)
	registryMu sync.RWMutex
)

// Register adds a definition to the registry.
// Panics if the kind is already registered.
func Register(def Definition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Kind]; exists {
		panic(fmt.Sprintf("schema already registered: %s", def.Kind))
	}
	registry[def.Kind] = def
}

// Get returns the definition for a kind.
func Get(kind store.Kind) (Definition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[kind]
	return def, ok
}

// All returns every registered definition, sorted by kind.
func All() []Definition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Definition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Kind < result[j].Kind
	})
	return result
}

// LoadAliases reads extra header aliases from a TOML file and appends them to
// the registered definitions. The file maps kind to field to header names:
//
//	[customer]
//	external_id = ["Customer ID", "QB Customer Id"]
//	display_name = ["Customer full name"]
//
// Unknown kinds or fields are an error so typos fail loudly at startup.
func LoadAliases(path string) error {
	var overrides map[string]map[string][]string
	if _, err := toml.DecodeFile(path, &overrides); err != nil {
		return fmt.Errorf("parse alias file: %w", err)
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	for kindName, fields := range overrides {
		kind := store.Kind(kindName)
		def, ok := registry[kind]
		if !ok {
			return fmt.Errorf("alias file: unknown kind %q", kindName)
		}

		for field, aliases := range fields {
			idx := -1
			for i, spec := range def.Fields {
				if spec.Field == field {
					idx = i
					break
				}
			}
			if idx < 0 {
				return fmt.Errorf("alias file: unknown field %q for kind %q", field, kindName)
			}
			def.Fields[idx].Aliases = append(def.Fields[idx].Aliases, aliases...)
		}
		registry[kind] = def
	}
	return nil
}
