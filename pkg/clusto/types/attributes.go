package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type Datatype string

const (
	DatatypeString   Datatype = "string"
	DatatypeInt      Datatype = "int"
	DatatypeDateTime Datatype = "datetime"
	DatatypeRelation Datatype = "relation"
	DatatypeJSON     Datatype = "json"
)

// ParseDatatype maps the wire representation of a datatype to one of the known
// values. An empty string means the server did not supply one and defaults to string.
func ParseDatatype(s string) (Datatype, error) {
	switch Datatype(s) {
	case "":
		return DatatypeString, nil
	case DatatypeString, DatatypeInt, DatatypeDateTime, DatatypeRelation, DatatypeJSON:
		return Datatype(s), nil
	}

	return "", fmt.Errorf("unknown datatype %q", s)
}

// AttributeRecord is a single typed, optionally numbered, attribute of a clusto entity.
//
// Subkey and Number are pointers so that a missing value can be told apart from an
// empty subkey or a number that is zero.
type AttributeRecord struct {
	Key      string   `json:"key"`
	Subkey   *string  `json:"subkey"`
	Value    any      `json:"value"`
	Datatype Datatype `json:"datatype"`
	Number   *int     `json:"number"`
}

func (a AttributeRecord) HasNumber() bool {
	return a.Number != nil
}

func (a AttributeRecord) SubkeyOrEmpty() string {
	if a.Subkey == nil {
		return ""
	}
	return *a.Subkey
}

// Matches reports whether the record is addressed by the key and subkey. A nil
// subkey matches any subkey.
func (a AttributeRecord) Matches(key string, subkey *string) bool {
	if a.Key != key {
		return false
	}

	if subkey == nil {
		return true
	}

	return a.Subkey != nil && *a.Subkey == *subkey
}

func (a *AttributeRecord) UnmarshalJSON(data []byte) error {
	raw := struct {
		Key      string          `json:"key"`
		Subkey   *string         `json:"subkey"`
		Value    json.RawMessage `json:"value"`
		Datatype string          `json:"datatype"`
		Number   *json.Number    `json:"number"`
	}{}

	err := json.Unmarshal(data, &raw)
	if err != nil {
		return err
	}

	a.Key = raw.Key
	a.Subkey = raw.Subkey

	a.Datatype, err = ParseDatatype(raw.Datatype)
	if err != nil {
		return err
	}

	a.Number = nil
	if raw.Number != nil {
		n, err := raw.Number.Int64()
		if err != nil {
			return fmt.Errorf("attribute %s has a non integer number %q", raw.Key, raw.Number.String())
		}
		number := int(n)
		a.Number = &number
	}

	a.Value, err = decodeScalar(raw.Value)
	return err
}

func decodeScalar(data json.RawMessage) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	err := dec.Decode(&v)
	if err != nil {
		return nil, err
	}

	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		return n.Float64()
	}

	return v, nil
}

func (a AttributeRecord) clone() AttributeRecord {
	c := a

	if a.Subkey != nil {
		subkey := *a.Subkey
		c.Subkey = &subkey
	}

	if a.Number != nil {
		number := *a.Number
		c.Number = &number
	}

	return c
}
