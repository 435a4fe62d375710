// Package clustotest provides an in-process clusto service for tests. It keeps
// a small topology in memory and implements the query and attribute endpoints
// that the client talks to.
package clustotest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"sync"

	"github.com/diwise/clusto-client/pkg/clusto/types"
	"github.com/go-chi/chi/v5"
	"github.com/riandyrn/otelchi"
)

var DefaultActions = []string{
	"addattr", "attrs", "delattr", "get_port_attr", "insert", "ports",
	"remove", "rename", "set_port_attr", "setattr", "show",
}

type Object struct {
	Driver   string
	Attrs    []types.AttributeRecord
	Contents []string
	Parents  []string
}

// Topology maps an entity type to the objects of that type, keyed by name.
type Topology map[string]map[string]*Object

type Server struct {
	mu       sync.Mutex
	topology Topology
	requests []*http.Request
	srv      *httptest.Server
}

func NewServer(topology Topology) *Server {
	s := &Server{topology: topology}

	r := chi.NewRouter()
	r.Use(s.record)
	r.Use(otelchi.Middleware("clustotest", otelchi.WithChiRoutes(r)))

	r.Route("/query", func(r chi.Router) {
		r.Get("/get_by_name", s.getByName)
		r.Get("/get", s.get)
		r.Get("/get_entities", s.getEntities)
		r.Get("/get_from_pools", s.getFromPools)
	})

	r.Get("/{type}", s.getAll)
	r.Get("/{type}/{name}", s.show)
	r.Get("/{type}/{name}/addattr", s.addAttr)
	r.Get("/{type}/{name}/setattr", s.setAttr)
	r.Get("/{type}/{name}/delattr", s.delAttr)

	s.srv = httptest.NewServer(r)

	return s
}

func (s *Server) URL() string {
	return s.srv.URL
}

func (s *Server) Close() {
	s.srv.Close()
}

func (s *Server) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.requests)
}

// LastRequest returns the most recent request received, or nil.
func (s *Server) LastRequest() *http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.requests) == 0 {
		return nil
	}
	return s.requests[len(s.requests)-1]
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Clone(r.Context()))
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) getByName(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := r.URL.Query().Get("name")

	for entityType, objects := range s.topology {
		if obj, ok := objects[name]; ok {
			writeJSON(w, serialize(entityType, name, obj))
			return
		}
	}

	http.Error(w, "OBJECT NOT FOUND", http.StatusInternalServerError)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := r.URL.Query().Get("name")
	result := []map[string]any{}

	for _, entityType := range s.types() {
		if obj, ok := s.topology[entityType][name]; ok {
			result = append(result, serialize(entityType, name, obj))
		}
	}

	writeJSON(w, result)
}

func (s *Server) getEntities(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var names, clustoTypes []string
	if !decodeListParam(w, r, "names", &names) || !decodeListParam(w, r, "clusto_types", &clustoTypes) {
		return
	}

	result := []string{}

	for _, entityType := range s.types() {
		if len(clustoTypes) > 0 && !slices.Contains(clustoTypes, entityType) {
			continue
		}

		for _, name := range sortedNames(s.topology[entityType]) {
			if len(names) > 0 && !slices.Contains(names, name) {
				continue
			}
			result = append(result, "/"+entityType+"/"+name)
		}
	}

	writeJSON(w, result)
}

func (s *Server) getFromPools(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pools, clustoTypes []string
	if !decodeListParam(w, r, "pools", &pools) || !decodeListParam(w, r, "clusto_types", &clustoTypes) {
		return
	}

	members := map[string]int{}
	for _, pool := range pools {
		p, ok := s.topology["pool"][pool]
		if !ok {
			http.Error(w, "POOL NOT FOUND", http.StatusNotFound)
			return
		}
		for _, path := range p.Contents {
			members[path]++
		}
	}

	result := []map[string]any{}

	for _, entityType := range s.types() {
		if len(clustoTypes) > 0 && !slices.Contains(clustoTypes, entityType) {
			continue
		}

		for _, name := range sortedNames(s.topology[entityType]) {
			if members["/"+entityType+"/"+name] == len(pools) && len(pools) > 0 {
				result = append(result, serialize(entityType, name, s.topology[entityType][name]))
			}
		}
	}

	writeJSON(w, result)
}

func (s *Server) getAll(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entityType := chi.URLParam(r, "type")
	result := []string{}

	for _, name := range sortedNames(s.topology[entityType]) {
		result = append(result, "/"+entityType+"/"+name)
	}

	writeJSON(w, result)
}

func (s *Server) show(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entityType, name, obj, ok := s.lookup(r)
	if !ok {
		http.Error(w, "OBJECT NOT FOUND", http.StatusNotFound)
		return
	}

	writeJSON(w, serialize(entityType, name, obj))
}

func (s *Server) addAttr(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entityType, name, obj, ok := s.lookup(r)
	if !ok {
		http.Error(w, "OBJECT NOT FOUND", http.StatusNotFound)
		return
	}

	attr, err := attributeFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	obj.Attrs = append(obj.Attrs, attr)

	writeJSON(w, serialize(entityType, name, obj))
}

// setAttr updates every record matching key and subkey. Like clusto itself it
// adds a record when there is nothing to update.
func (s *Server) setAttr(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entityType, name, obj, ok := s.lookup(r)
	if !ok {
		http.Error(w, "OBJECT NOT FOUND", http.StatusNotFound)
		return
	}

	attr, err := attributeFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	updated := false

	for idx := range obj.Attrs {
		if !obj.Attrs[idx].Matches(attr.Key, attr.Subkey) {
			continue
		}

		obj.Attrs[idx].Value = attr.Value
		if q.Has("datatype") {
			obj.Attrs[idx].Datatype = attr.Datatype
		}
		if q.Has("number") {
			obj.Attrs[idx].Number = attr.Number
		}
		updated = true
	}

	if !updated {
		obj.Attrs = append(obj.Attrs, attr)
	}

	writeJSON(w, serialize(entityType, name, obj))
}

func (s *Server) delAttr(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entityType, name, obj, ok := s.lookup(r)
	if !ok {
		http.Error(w, "OBJECT NOT FOUND", http.StatusNotFound)
		return
	}

	attr, err := attributeFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	q := r.URL.Query()

	obj.Attrs = slices.DeleteFunc(obj.Attrs, func(a types.AttributeRecord) bool {
		if !a.Matches(attr.Key, attr.Subkey) {
			return false
		}
		if q.Has("value") && a.Value != attr.Value {
			return false
		}
		if q.Has("number") && (a.Number == nil || *a.Number != *attr.Number) {
			return false
		}
		return true
	})

	writeJSON(w, serialize(entityType, name, obj))
}

func (s *Server) lookup(r *http.Request) (string, string, *Object, bool) {
	entityType := chi.URLParam(r, "type")
	name := chi.URLParam(r, "name")

	obj, ok := s.topology[entityType][name]
	return entityType, name, obj, ok
}

func (s *Server) types() []string {
	result := make([]string, 0, len(s.topology))
	for t := range s.topology {
		result = append(result, t)
	}
	slices.Sort(result)
	return result
}

func sortedNames(objects map[string]*Object) []string {
	result := make([]string, 0, len(objects))
	for n := range objects {
		result = append(result, n)
	}
	slices.Sort(result)
	return result
}

// attributeFromQuery builds a record from the query string. Missing subkey and
// number stay nil, a missing datatype becomes string.
func attributeFromQuery(r *http.Request) (types.AttributeRecord, error) {
	q := r.URL.Query()

	attr := types.AttributeRecord{
		Key:      q.Get("key"),
		Datatype: types.DatatypeString,
	}

	if q.Has("subkey") {
		subkey := q.Get("subkey")
		attr.Subkey = &subkey
	}

	if q.Has("value") {
		attr.Value = q.Get("value")
	}

	if q.Has("datatype") {
		dt, err := types.ParseDatatype(q.Get("datatype"))
		if err != nil {
			return attr, err
		}
		attr.Datatype = dt
	}

	if q.Has("number") {
		n, err := strconv.Atoi(q.Get("number"))
		if err != nil {
			return attr, err
		}
		attr.Number = &n
	}

	return attr, nil
}

func decodeListParam(w http.ResponseWriter, r *http.Request, name string, list *[]string) bool {
	q := r.URL.Query()
	if !q.Has(name) {
		return true
	}

	err := json.Unmarshal([]byte(q.Get(name)), list)
	if err != nil {
		http.Error(w, "bad "+name+" parameter", http.StatusBadRequest)
		return false
	}

	return true
}

func serialize(entityType, name string, obj *Object) map[string]any {
	attrs := obj.Attrs
	if attrs == nil {
		attrs = []types.AttributeRecord{}
	}

	driver := obj.Driver
	if driver == "" {
		driver = "basicserver"
	}

	return map[string]any{
		"actions":  DefaultActions,
		"attrs":    attrs,
		"contents": nonNil(obj.Contents),
		"driver":   driver,
		"object":   "/" + entityType + "/" + name,
		"parents":  nonNil(obj.Parents),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func writeJSON(w http.ResponseWriter, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
