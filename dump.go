package flecs

import (
	"encoding/json"
	"fmt"
)

// EntityDump is the json representation of an entity.
type EntityDump struct {
	Parent     string                     `json:"parent,omitempty"`
	Name       string                     `json:"name,omitempty"`
	Id         Id                         `json:"id"`
	Tags       []string                   `json:"tags,omitempty"`
	Pairs      map[string]PairTargets     `json:"pairs,omitempty"`
	Components map[string]json.RawMessage `json:"components,omitempty"`
}

// Path returns the full path of the entity.
func (d EntityDump) Path() string {
	if d.Parent == "" {
		return d.Name
	}

	return d.Parent + "." + d.Name
}

// PairTargets lists the targets of a relationship. A single target is
// encoded as a plain string.
type PairTargets []string

func (p PairTargets) MarshalJSON() ([]byte, error) {
	if len(p) == 1 {
		return json.Marshal(p[0])
	}

	return json.Marshal([]string(p))
}

func (p *PairTargets) UnmarshalJSON(buf []byte) error {
	var single string
	if err := json.Unmarshal(buf, &single); err == nil {
		*p = PairTargets{single}
		return nil
	}

	var targets []string
	if err := json.Unmarshal(buf, &targets); err != nil {
		return fmt.Errorf("pair targets must be a string or a list of strings: %w", err)
	}

	*p = targets
	return nil
}

// ToJSON returns the json representation of the entity.
func (e Entity) ToJSON() (EntityDump, error) {
	encoded, err := e.core().EntityToJSON(e.Raw())
	if err != nil {
		return EntityDump{}, newError("entity_to_json", KindNotFound, e.id.String(), err)
	}

	var dump EntityDump
	if err := json.Unmarshal([]byte(encoded), &dump); err != nil {
		return EntityDump{}, &Error{Op: "entity_to_json", Kind: KindContract, Name: e.id.String(), Cause: err}
	}

	return dump, nil
}

// MarshalJSON encodes the entity as returned by the native core.
func (e Entity) MarshalJSON() ([]byte, error) {
	encoded, err := e.core().EntityToJSON(e.Raw())
	if err != nil {
		return nil, newError("entity_to_json", KindNotFound, e.id.String(), err)
	}

	if !json.Valid([]byte(encoded)) {
		return nil, &Error{Op: "entity_to_json", Kind: KindContract, Name: e.id.String(), Detail: "invalid json"}
	}

	return []byte(encoded), nil
}

// ToJSON returns all entities of the world that are not builtin.
func (w *World) ToJSON() ([]EntityDump, error) {
	encoded, err := w.core.WorldToJSON()
	if err != nil {
		return nil, newError("world_to_json", KindNative, "", err)
	}

	results, err := decodeResults("world_to_json", encoded)
	if err != nil {
		return nil, err
	}

	dumps := make([]EntityDump, 0, len(results))
	for _, result := range results {
		var dump EntityDump
		if err := json.Unmarshal(result, &dump); err != nil {
			return nil, &Error{Op: "world_to_json", Kind: KindContract, Cause: err}
		}

		dumps = append(dumps, dump)
	}

	return dumps, nil
}
