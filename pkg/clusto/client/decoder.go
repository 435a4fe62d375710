package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/diwise/clusto-client/pkg/clusto/errors"
	"github.com/diwise/clusto-client/pkg/clusto/types"
)

type Shape int

const (
	ShapeEntity Shape = iota
	ShapeEntityList
	ShapePathList
	// ShapeReferenceList is an array whose elements are either entity
	// descriptors or bare entity paths.
	ShapeReferenceList
)

func (s Shape) String() string {
	switch s {
	case ShapeEntity:
		return "entity"
	case ShapeEntityList:
		return "entity list"
	case ShapePathList:
		return "path list"
	case ShapeReferenceList:
		return "reference list"
	}
	return fmt.Sprintf("shape(%d)", int(s))
}

// Result is the decoded body of a successful response. Kind tells which of
// the accessors carries the payload.
type Result struct {
	kind     Shape
	entity   types.EntityDescriptor
	entities []types.EntityDescriptor
	paths    []string
}

func (r Result) Kind() Shape                        { return r.kind }
func (r Result) Entity() types.EntityDescriptor     { return r.entity }
func (r Result) Entities() []types.EntityDescriptor { return r.entities }
func (r Result) Paths() []string                    { return r.paths }

// CheckStatus turns any status outside of 2xx into a RemoteError. It must be
// consulted before Decode, a failed status always wins over a bad body.
func CheckStatus(status int, body []byte) error {
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return errors.NewRemoteError(status, body)
	}
	return nil
}

func Decode(body []byte, expect Shape) (*Result, error) {
	trimmed := bytes.TrimSpace(body)
	if !json.Valid(trimmed) {
		return nil, errors.NewDecodeError(fmt.Sprintf("response is not valid json (expected %s)", expect))
	}

	var err error
	result := &Result{kind: expect}

	switch expect {
	case ShapeEntity:
		if !startsWith(trimmed, '{') {
			return nil, shapeMismatch(expect, trimmed)
		}
		err = json.Unmarshal(trimmed, &result.entity)
	case ShapeEntityList:
		if !startsWith(trimmed, '[') {
			return nil, shapeMismatch(expect, trimmed)
		}
		result.entities = []types.EntityDescriptor{}
		err = json.Unmarshal(trimmed, &result.entities)
	case ShapePathList:
		if !startsWith(trimmed, '[') {
			return nil, shapeMismatch(expect, trimmed)
		}
		result.paths = []string{}
		err = json.Unmarshal(trimmed, &result.paths)
	case ShapeReferenceList:
		if !startsWith(trimmed, '[') {
			return nil, shapeMismatch(expect, trimmed)
		}
		result.kind = ShapeEntityList
		result.entities, err = decodeReferences(trimmed)
	default:
		return nil, errors.NewInternalError(fmt.Sprintf("unsupported response shape %d", int(expect)))
	}

	if err != nil {
		return nil, errors.NewDecodeError(fmt.Sprintf("failed to decode %s: %s", expect, err.Error()))
	}

	return result, nil
}

func decodeReferences(body []byte) ([]types.EntityDescriptor, error) {
	elements := []json.RawMessage{}
	err := json.Unmarshal(body, &elements)
	if err != nil {
		return nil, err
	}

	descriptors := make([]types.EntityDescriptor, 0, len(elements))

	for _, e := range elements {
		var d types.EntityDescriptor

		if startsWith(e, '"') {
			var path string
			if err = json.Unmarshal(e, &path); err != nil {
				return nil, err
			}
			d, err = types.NewDescriptorFromPath(path)
		} else {
			err = json.Unmarshal(e, &d)
		}

		if err != nil {
			return nil, err
		}

		descriptors = append(descriptors, d)
	}

	return descriptors, nil
}

func startsWith(body []byte, c byte) bool {
	b := bytes.TrimSpace(body)
	return len(b) > 0 && b[0] == c
}

func shapeMismatch(expect Shape, body []byte) error {
	got := "unknown"
	if len(body) > 0 {
		switch body[0] {
		case '{':
			got = "object"
		case '[':
			got = "array"
		case '"':
			got = "string"
		default:
			got = "scalar"
		}
	}

	return errors.NewDecodeError(fmt.Sprintf("expected %s but response was a json %s", expect, got))
}
