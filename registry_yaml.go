package flecs

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// definitionFile is the format read by LoadDefinitions:
//
//	types:
//	  - name: Position
//	    members:
//	      - {name: x, type: f64}
//	      - {name: y, type: f64}
//	  - name: Color
//	    kind: enum
//	    constants: [Red, Green, {name: Blue, value: 10}]
type definitionFile struct {
	Types []typeEntry `yaml:"types"`
}

type typeEntry struct {
	Name      string        `yaml:"name"`
	Kind      string        `yaml:"kind"`
	Members   []MemberDef   `yaml:"members"`
	Constants []ConstantDef `yaml:"constants"`
}

// UnmarshalYAML accepts a constant either as a plain name or as a mapping
// with a name and a value.
func (c *ConstantDef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		c.Name = node.Value
		c.Value = nil
		return nil
	}

	type plain ConstantDef
	return node.Decode((*plain)(c))
}

// LoadDefinitions reads type definitions in yaml format and registers them.
// Nothing is registered if the input contains an invalid definition.
func (r *Registry) LoadDefinitions(reader io.Reader) error {
	var file definitionFile
	if err := yaml.NewDecoder(reader).Decode(&file); err != nil && err != io.EOF {
		return &Error{Op: "load_definitions", Kind: KindRegistration, Detail: "parse yaml", Cause: err}
	}

	defs := make([]TypeDef, 0, len(file.Types))
	for _, entry := range file.Types {
		def := TypeDef{Name: entry.Name, Members: entry.Members, Constants: entry.Constants}

		switch entry.Kind {
		case "", "struct":
			def.Kind = StructKind
		case "enum":
			def.Kind = EnumKind
		default:
			return &Error{Op: "load_definitions", Kind: KindRegistration, Name: entry.Name, Detail: fmt.Sprintf("unknown kind %q", entry.Kind)}
		}

		if err := def.validate(); err != nil {
			return err
		}

		defs = append(defs, def)
	}

	for _, def := range defs {
		if err := r.Register(def); err != nil {
			return err
		}
	}

	return nil
}

// LoadDefinitions reads type definitions into the DefaultRegistry.
func LoadDefinitions(reader io.Reader) error {
	return DefaultRegistry.LoadDefinitions(reader)
}
