package client

import (
	"context"
	"net/http"

	"github.com/diwise/clusto-client/pkg/clusto/types"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type ClustoClient interface {
	URL() string

	GetByName(ctx context.Context, name string) (*Entity, error)
	Get(ctx context.Context, name string) ([]*Entity, error)
	GetAll(ctx context.Context, resourceType string) ([]string, error)
	GetEntities(ctx context.Context, filters ...EntityFilterFunc) ([]*Entity, error)
	GetFromPools(ctx context.Context, pools []string, filters ...EntityFilterFunc) ([]*Entity, error)
}

func Debug(enabled string) func(*clustoClient) {
	return func(c *clustoClient) {
		c.debug = (enabled == "true")
	}
}

func WithTransport(t Transport) func(*clustoClient) {
	return func(c *clustoClient) {
		c.transport = t
	}
}

func WithHTTPClient(httpClient *http.Client) func(*clustoClient) {
	return func(c *clustoClient) {
		c.httpClient = httpClient
	}
}

// WithEnvironment replaces the lookup of CLUSTO_URL that is used when no url is
// passed to New.
func WithEnvironment(lookup func() string) func(*clustoClient) {
	return func(c *clustoClient) {
		c.lookup = lookup
	}
}

// New resolves the service configuration and returns a client for it. The
// configuration is resolved before anything is sent over the wire.
func New(ctx context.Context, url string, options ...func(*clustoClient)) (ClustoClient, error) {
	c := &clustoClient{
		lookup: environmentLookup(ctx),
		debug:  false,
	}

	for _, option := range options {
		option(c)
	}

	cfg, err := ResolveServiceConfig(url, c.lookup)
	if err != nil {
		return nil, err
	}
	c.config = cfg

	if c.transport == nil {
		c.transport = NewHTTPTransport(c.httpClient, c.debug)
	}

	return c, nil
}

const (
	TraceAttributeEntity    string = "clusto-entity"
	TraceAttributeOperation string = "clusto-operation"
)

var tracer = otel.Tracer("clusto-client")

type clustoClient struct {
	config     ServiceConfig
	transport  Transport
	httpClient *http.Client
	lookup     func() string
	debug      bool
}

func (c *clustoClient) URL() string {
	return c.config.BaseURL
}

func (c *clustoClient) GetByName(ctx context.Context, name string) (*Entity, error) {
	var err error

	ctx, span := tracer.Start(ctx, "get-by-name",
		trace.WithAttributes(attribute.String(TraceAttributeEntity, name)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	result, err := c.query(ctx, EncodeQuery("get_by_name", NewParams().Set("name", name)), ShapeEntity)
	if err != nil {
		return nil, err
	}

	return newEntity(c, result.Entity()), nil
}

func (c *clustoClient) Get(ctx context.Context, name string) ([]*Entity, error) {
	var err error

	ctx, span := tracer.Start(ctx, "get",
		trace.WithAttributes(attribute.String(TraceAttributeEntity, name)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	result, err := c.query(ctx, EncodeQuery("get", NewParams().Set("name", name)), ShapeEntityList)
	if err != nil {
		return nil, err
	}

	return newEntities(c, result.Entities()), nil
}

func (c *clustoClient) GetAll(ctx context.Context, resourceType string) ([]string, error) {
	var err error

	ctx, span := tracer.Start(ctx, "get-all",
		trace.WithAttributes(attribute.String(TraceAttributeOperation, resourceType)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	result, err := c.query(ctx, EncodeResource(resourceType), ShapePathList)
	if err != nil {
		return nil, err
	}

	return result.Paths(), nil
}

func (c *clustoClient) GetEntities(ctx context.Context, filters ...EntityFilterFunc) ([]*Entity, error) {
	var err error

	ctx, span := tracer.Start(ctx, "get-entities")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	params := NewParams()
	for _, filter := range filters {
		if err = filter(params); err != nil {
			return nil, err
		}
	}

	result, err := c.query(ctx, EncodeQuery("get_entities", params), ShapeReferenceList)
	if err != nil {
		return nil, err
	}

	return newEntities(c, result.Entities()), nil
}

func (c *clustoClient) GetFromPools(ctx context.Context, pools []string, filters ...EntityFilterFunc) ([]*Entity, error) {
	var err error

	ctx, span := tracer.Start(ctx, "get-from-pools",
		trace.WithAttributes(attribute.StringSlice(TraceAttributeEntity, pools)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	params := NewParams()
	if err = params.SetJSON("pools", pools); err != nil {
		return nil, err
	}

	for _, filter := range filters {
		if err = filter(params); err != nil {
			return nil, err
		}
	}

	result, err := c.query(ctx, EncodeQuery("get_from_pools", params), ShapeReferenceList)
	if err != nil {
		return nil, err
	}

	return newEntities(c, result.Entities()), nil
}

func (c *clustoClient) mutate(ctx context.Context, e *Entity, op string, params *Params) (*Entity, error) {
	var err error

	ctx, span := tracer.Start(ctx, op,
		trace.WithAttributes(attribute.String(TraceAttributeEntity, e.Path())),
		trace.WithAttributes(attribute.String(TraceAttributeOperation, op)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	result, err := c.query(ctx, EncodeEntityQuery(e.Type(), e.Name(), op, params), ShapeEntity)
	if err != nil {
		return nil, err
	}

	return newEntity(c, result.Entity()), nil
}

func (c *clustoClient) query(ctx context.Context, path string, expect Shape) (*Result, error) {
	status, _, body, err := c.transport.Do(ctx, http.MethodGet, c.config.BaseURL+path, nil, nil)
	if err != nil {
		return nil, err
	}

	if err = CheckStatus(status, body); err != nil {
		return nil, err
	}

	return Decode(body, expect)
}

func newEntities(c *clustoClient, descriptors []types.EntityDescriptor) []*Entity {
	result := make([]*Entity, 0, len(descriptors))
	for _, d := range descriptors {
		result = append(result, newEntity(c, d))
	}
	return result
}
