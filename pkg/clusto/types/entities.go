package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EntityDescriptor is the server side description of a clusto entity, as
// returned by the query and mutation endpoints.
type EntityDescriptor struct {
	Path     string            `json:"object"`
	Driver   string            `json:"driver,omitempty"`
	Type     string            `json:"-"`
	Name     string            `json:"-"`
	Attrs    []AttributeRecord `json:"attrs"`
	Contents []string          `json:"contents"`
	Parents  []string          `json:"parents"`
	Actions  []string          `json:"actions"`
}

// SplitPath splits an entity path of the form /<type>/<name> into its components.
func SplitPath(path string) (string, string, error) {
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed entity path %q", path)
	}

	return parts[0], parts[1], nil
}

func NewDescriptorFromPath(path string) (EntityDescriptor, error) {
	entityType, name, err := SplitPath(path)
	if err != nil {
		return EntityDescriptor{}, err
	}

	return EntityDescriptor{
		Path:     path,
		Type:     entityType,
		Name:     name,
		Attrs:    []AttributeRecord{},
		Contents: []string{},
		Parents:  []string{},
		Actions:  []string{},
	}, nil
}

func (d *EntityDescriptor) UnmarshalJSON(data []byte) error {
	raw := struct {
		Object   *string           `json:"object"`
		Driver   string            `json:"driver"`
		Attrs    []AttributeRecord `json:"attrs"`
		Contents []string          `json:"contents"`
		Parents  []string          `json:"parents"`
		Actions  []string          `json:"actions"`
	}{}

	err := json.Unmarshal(data, &raw)
	if err != nil {
		return err
	}

	if raw.Object == nil {
		return fmt.Errorf("entity descriptor is missing its object path")
	}

	*d, err = NewDescriptorFromPath(*raw.Object)
	if err != nil {
		return err
	}

	d.Driver = raw.Driver

	if raw.Attrs != nil {
		d.Attrs = raw.Attrs
	}
	if raw.Contents != nil {
		d.Contents = raw.Contents
	}
	if raw.Parents != nil {
		d.Parents = raw.Parents
	}
	if raw.Actions != nil {
		d.Actions = raw.Actions
	}

	return nil
}

// Clone returns a deep copy that shares no slices or pointers with d.
func (d EntityDescriptor) Clone() EntityDescriptor {
	c := d

	c.Attrs = make([]AttributeRecord, 0, len(d.Attrs))
	for _, a := range d.Attrs {
		c.Attrs = append(c.Attrs, a.clone())
	}

	c.Contents = append([]string{}, d.Contents...)
	c.Parents = append([]string{}, d.Parents...)
	c.Actions = append([]string{}, d.Actions...)

	return c
}
