package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/diwise/clusto-client/pkg/clusto/types"
)

// Params holds single valued query parameters. A key that was never set is
// left out of the encoded query, while a key set to the empty string is kept.
type Params struct {
	values map[string]string
}

func NewParams() *Params {
	return &Params{values: map[string]string{}}
}

func (p *Params) Set(key, value string) *Params {
	p.values[key] = value
	return p
}

func (p *Params) SetInt(key string, value int) *Params {
	return p.Set(key, strconv.Itoa(value))
}

func (p *Params) SetJSON(key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode query parameter %s: %w", key, err)
	}
	p.Set(key, string(b))
	return nil
}

func (p *Params) Has(key string) bool {
	_, ok := p.values[key]
	return ok
}

func (p *Params) Get(key string) (string, bool) {
	v, ok := p.values[key]
	return v, ok
}

func (p *Params) Encode() string {
	if p == nil || len(p.values) == 0 {
		return ""
	}

	keys := make([]string, 0, len(p.values))
	for k := range p.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, url.QueryEscape(k)+"="+url.QueryEscape(p.values[k]))
	}

	return strings.Join(pairs, "&")
}

// EncodeQuery builds the path for one of the global /query/<op> operations.
func EncodeQuery(op string, params *Params) string {
	return withQuery("/query/"+url.PathEscape(op), params)
}

// EncodeEntityQuery builds the path for an operation scoped to a single entity.
func EncodeEntityQuery(entityType, name, op string, params *Params) string {
	return withQuery(
		"/"+url.PathEscape(entityType)+"/"+url.PathEscape(name)+"/"+url.PathEscape(op),
		params,
	)
}

func EncodeResource(resourceType string) string {
	return "/" + url.PathEscape(resourceType)
}

func withQuery(path string, params *Params) string {
	if q := params.Encode(); q != "" {
		return path + "?" + q
	}
	return path
}

// FormatValue renders an attribute value the way clusto expects it in a query string.
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case fmt.Stringer:
		return v.String()
	}

	return fmt.Sprintf("%v", value)
}

type AttrOptionFunc func(*Params)

func Datatype(dt types.Datatype) AttrOptionFunc {
	return func(p *Params) {
		p.Set("datatype", string(dt))
	}
}

func Number(n int) AttrOptionFunc {
	return func(p *Params) {
		p.SetInt("number", n)
	}
}

// WithValue narrows a DelAttr call to records holding value.
func WithValue(value any) AttrOptionFunc {
	return func(p *Params) {
		p.Set("value", FormatValue(value))
	}
}

type EntityFilterFunc func(*Params) error

func Names(names ...string) EntityFilterFunc {
	return func(p *Params) error {
		return p.SetJSON("names", names)
	}
}

func ClustoTypes(clustoTypes ...string) EntityFilterFunc {
	return func(p *Params) error {
		return p.SetJSON("clusto_types", clustoTypes)
	}
}

func ClustoDrivers(drivers ...string) EntityFilterFunc {
	return func(p *Params) error {
		return p.SetJSON("clusto_drivers", drivers)
	}
}

// AttributeFilter adds one (key, subkey, value) triple to the attrs filter.
// Empty subkey or a nil value are sent as null and match anything server side.
func AttributeFilter(key, subkey string, value any) EntityFilterFunc {
	return func(p *Params) error {
		filters := []map[string]any{}

		if existing, ok := p.Get("attrs"); ok {
			if err := json.Unmarshal([]byte(existing), &filters); err != nil {
				return fmt.Errorf("failed to extend attrs filter: %w", err)
			}
		}

		f := map[string]any{"key": key, "subkey": nil, "value": nil}
		if subkey != "" {
			f["subkey"] = subkey
		}
		if value != nil {
			f["value"] = FormatValue(value)
		}

		return p.SetJSON("attrs", append(filters, f))
	}
}
