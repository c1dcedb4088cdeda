package schema

import (
	"fmt"
	"sort"
)

// Model names recognised by Lookup.
const (
	SiisaMorosos               = "siisa_morosos"
	PersonasTelefonos          = "personas_telefonos"
	SiisaEmpleadores           = "siisa_empleadores"
	SiisaEmpleadoresRelaciones = "siisa_empleadores_relaciones"
)

// registry is built once during package initialization and only read afterwards.
var registry = buildRegistry(
	definition{SiisaMorosos, SiisaMorososFieldSpecs, "Cuil", "IdTransmit"},
	definition{PersonasTelefonos, PersonasTelefonosFieldSpecs, "IdCliente", "IdTransmit"},
	definition{SiisaEmpleadores, SiisaEmpleadoresFieldSpecs, "Cuit", ""},
	definition{SiisaEmpleadoresRelaciones, SiisaEmpleadoresRelacionesFieldSpecs, "Cuil", "Cuit"},
)

type definition struct {
	name         string
	fields       []FieldSpec
	partitionKey string
	sortKey      string
}

// buildRegistry panics on duplicate names or a model whose key columns are
// not among its own columns.
func buildRegistry(defs ...definition) map[string]*Model {
	models := make(map[string]*Model, len(defs))
	for _, def := range defs {
		if _, exists := models[def.name]; exists {
			panic(fmt.Sprintf("model already registered: %s", def.name))
		}
		m, err := newModel(def)
		if err != nil {
			panic(err)
		}
		models[def.name] = m
	}
	return models
}

func newModel(def definition) (*Model, error) {
	m := &Model{
		name:         def.name,
		fields:       append([]FieldSpec(nil), def.fields...),
		partitionKey: def.partitionKey,
		sortKey:      def.sortKey,
		index:        make(map[string]int, len(def.fields)),
	}
	for i, f := range m.fields {
		if _, dup := m.index[f.Name]; dup {
			return nil, fmt.Errorf("model %s: duplicate column %q", def.name, f.Name)
		}
		m.index[f.Name] = i
	}
	if _, ok := m.index[m.partitionKey]; !ok {
		return nil, fmt.Errorf("model %s: partition key %q is not a column", def.name, m.partitionKey)
	}
	if m.sortKey != "" {
		if _, ok := m.index[m.sortKey]; !ok {
			return nil, fmt.Errorf("model %s: sort key %q is not a column", def.name, m.sortKey)
		}
	}
	return m, nil
}

// Lookup returns the model registered under name. Names are case-sensitive.
// Unknown names yield a *NotFoundError.
func Lookup(name string) (*Model, error) {
	m, ok := registry[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return m, nil
}

// Names returns all registered model names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns all registered models sorted by name.
func All() []*Model {
	names := Names()
	models := make([]*Model, len(names))
	for i, name := range names {
		models[i] = registry[name]
	}
	return models
}

// Count returns the number of registered models.
func Count() int {
	return len(registry)
}
