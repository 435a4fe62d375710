package client

import (
	"context"
	"slices"

	"github.com/diwise/clusto-client/pkg/clusto/errors"
	"github.com/diwise/clusto-client/pkg/clusto/types"
)

// Entity is a local stand in for a remote clusto object. It holds a snapshot
// of the object taken when it was fetched and is never modified afterwards.
// Mutating calls return a new Entity built from the server's response.
//
// Entities are obtained from a ClustoClient. A zero Entity is not bound to any
// service and every remote call on it fails with an internal error.
type Entity struct {
	client     *clustoClient
	descriptor types.EntityDescriptor
}

func newEntity(c *clustoClient, d types.EntityDescriptor) *Entity {
	return &Entity{
		client:     c,
		descriptor: d.Clone(),
	}
}

func (e *Entity) Path() string   { return e.descriptor.Path }
func (e *Entity) Type() string   { return e.descriptor.Type }
func (e *Entity) Name() string   { return e.descriptor.Name }
func (e *Entity) Driver() string { return e.descriptor.Driver }

func (e *Entity) Contents() []string { return slices.Clone(e.descriptor.Contents) }
func (e *Entity) Parents() []string  { return slices.Clone(e.descriptor.Parents) }
func (e *Entity) Actions() []string  { return slices.Clone(e.descriptor.Actions) }

func (e *Entity) HasAction(action string) bool {
	return slices.Contains(e.descriptor.Actions, action)
}

// Descriptor returns a copy of the snapshot backing e.
func (e *Entity) Descriptor() types.EntityDescriptor {
	return e.descriptor.Clone()
}

func (e *Entity) Attrs() []types.AttributeRecord {
	return e.descriptor.Clone().Attrs
}

// AttrsMatching returns the attributes with the given key. A nil subkey
// matches every subkey.
func (e *Entity) AttrsMatching(key string, subkey *string) []types.AttributeRecord {
	matches := []types.AttributeRecord{}

	for _, a := range e.Attrs() {
		if a.Matches(key, subkey) {
			matches = append(matches, a)
		}
	}

	return matches
}

// AddAttr appends a new attribute. Repeated calls with the same key and subkey
// accumulate records on the server. An empty subkey is not sent, and the
// record is stored without one.
func (e *Entity) AddAttr(ctx context.Context, key, subkey string, value any, options ...AttrOptionFunc) (*Entity, error) {
	params := attrParams(key, subkey, options...)
	params.Set("value", FormatValue(value))

	return e.Do(ctx, "addattr", params)
}

// SetAttr updates the value of the attributes matching key and subkey. What
// happens when nothing matches is up to the server.
func (e *Entity) SetAttr(ctx context.Context, key, subkey string, value any, options ...AttrOptionFunc) (*Entity, error) {
	params := attrParams(key, subkey, options...)
	params.Set("value", FormatValue(value))

	return e.Do(ctx, "setattr", params)
}

func (e *Entity) DelAttr(ctx context.Context, key, subkey string, options ...AttrOptionFunc) (*Entity, error) {
	return e.Do(ctx, "delattr", attrParams(key, subkey, options...))
}

// Do invokes an entity scoped action, such as rename or insert, that answers
// with the updated object.
func (e *Entity) Do(ctx context.Context, action string, params *Params) (*Entity, error) {
	if e.client == nil {
		return nil, errUnbound
	}
	if action == "" {
		return nil, errors.NewInternalError("no action given")
	}

	return e.client.mutate(ctx, e, action, params)
}

// Refresh fetches a new snapshot of the entity by name.
func (e *Entity) Refresh(ctx context.Context) (*Entity, error) {
	if e.client == nil {
		return nil, errUnbound
	}

	return e.client.GetByName(ctx, e.Name())
}

var errUnbound = errors.NewInternalError("entity is not bound to a clusto client")

func attrParams(key, subkey string, options ...AttrOptionFunc) *Params {
	params := NewParams().Set("key", key)
	if subkey != "" {
		params.Set("subkey", subkey)
	}

	for _, option := range options {
		option(params)
	}

	return params
}
