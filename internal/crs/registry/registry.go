// Package registry maps coordinate system names to parsed spatial
// references. Lookups are by case-insensitive name first and then by the
// optional per-entry regular expressions, in registration order.
package registry

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/mohammed-shakir/crs-cache/internal/crs/attr"
	"github.com/mohammed-shakir/crs-cache/internal/crs/crserr"
	"github.com/mohammed-shakir/crs-cache/internal/crs/spatial"
	"github.com/mohammed-shakir/crs-cache/internal/crs/transform"
	"github.com/mohammed-shakir/crs-cache/internal/crs/wktcrs"
)

// Well known attribute names set by the registry itself.
const (
	AttrEPSG      = "epsg"
	AttrSwapCoord = "swapCoord"
)

// Outcome tells which lookup step resolved a name.
type Outcome string

const (
	OutcomeExact Outcome = "exact"
	OutcomeURI   Outcome = "uri"
	OutcomeRegex Outcome = "regex"
)

var epsgURI = regexp.MustCompile(`^https?://www\.opengis\.net/def/crs/epsg/(\d+)/(\d+)`)

// Entry is one registered coordinate system. The spatial reference is owned
// by the entry and lives as long as the registry.
type Entry struct {
	name  string
	ref   spatial.SpatialRef
	regex *regexp.Regexp
	swap  bool
	attrs *attr.Store
}

func (e *Entry) Name() string                   { return e.name }
func (e *Entry) SpatialRef() spatial.SpatialRef { return e.ref }
func (e *Entry) SwapCoordinates() bool          { return e.swap }
func (e *Entry) Attributes() *attr.Store        { return e.attrs }

// Regex returns the fallback pattern or nil.
func (e *Entry) Regex() *regexp.Regexp { return e.regex }

type options struct {
	attrs map[string]attr.Value
}

type Option func(*options)

// WithAttributes attaches extra attributes that become visible together
// with the entry.
func WithAttributes(values map[string]attr.Value) Option {
	return func(o *options) {
		if o.attrs == nil {
			o.attrs = make(map[string]attr.Value, len(values))
		}
		for k, v := range values {
			o.attrs[k] = v
		}
	}
}

type Registry struct {
	backend spatial.Backend

	mu      sync.RWMutex
	entries map[string]*Entry
	order   []*Entry
	closed  bool
}

func New(backend spatial.Backend) *Registry {
	return &Registry{
		backend: backend,
		entries: make(map[string]*Entry),
	}
}

// Backend returns the spatial backend used to parse definitions.
func (r *Registry) Backend() spatial.Backend { return r.backend }

func (r *Registry) RegisterEPSG(name string, code int, regex string, swap bool, opts ...Option) error {
	input := strconv.Itoa(code)
	if code <= 0 {
		return crserr.InvalidDefinition(name, "epsg", input, fmt.Errorf("code must be positive"))
	}
	return r.register(name, "epsg", input, regex, swap, func() (spatial.SpatialRef, error) {
		return r.backend.FromEPSG(code)
	}, map[string]attr.Value{AttrEPSG: attr.Int(code)}, opts)
}

func (r *Registry) RegisterProj4(name, def, regex string, swap bool, opts ...Option) error {
	return r.register(name, "proj4", def, regex, swap, func() (spatial.SpatialRef, error) {
		return r.backend.FromProj4(strings.TrimSpace(def))
	}, nil, opts)
}

func (r *Registry) RegisterWKT(name, def, regex string, swap bool, opts ...Option) error {
	return r.register(name, "wkt", def, regex, swap, func() (spatial.SpatialRef, error) {
		n, err := wktcrs.Extent(def)
		if err != nil {
			return nil, err
		}
		if rest := strings.TrimSpace(def[n:]); rest != "" {
			return nil, fmt.Errorf("unexpected characters after definition: %q", abbreviate(rest))
		}
		return r.backend.FromWKT(strings.TrimSpace(def[:n]))
	}, nil, opts)
}

func (r *Registry) register(name, format, input, pattern string, swap bool,
	parse func() (spatial.SpatialRef, error), builtin map[string]attr.Value, opts []Option,
) error {
	if strings.TrimSpace(name) == "" {
		return crserr.InvalidDefinition(name, format, input, errors.New("empty name"))
	}
	key := strings.ToLower(name)

	r.mu.RLock()
	_, dup := r.entries[key]
	r.mu.RUnlock()
	if dup {
		return crserr.Duplicate(name)
	}

	var re *regexp.Regexp
	if pattern != "" {
		var err error
		re, err = regexp.Compile("(?i)^(?:" + pattern + ")$")
		if err != nil {
			return crserr.InvalidDefinition(name, "regex", pattern, err)
		}
	}

	ref, err := parse()
	if err != nil {
		return crserr.InvalidDefinition(name, format, input, err)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	e := &Entry{name: name, ref: ref, regex: re, swap: swap, attrs: attr.NewStore()}
	e.attrs.Set(AttrSwapCoord, attr.Bool(swap))
	e.attrs.Merge(builtin)
	e.attrs.Merge(o.attrs)

	r.mu.Lock()
	if _, dup := r.entries[key]; dup || r.closed {
		r.mu.Unlock()
		ref.Close()
		if dup {
			return crserr.Duplicate(name)
		}
		return errors.New("registry closed")
	}
	r.entries[key] = e
	r.order = append(r.order, e)
	r.mu.Unlock()
	return nil
}

// Resolve finds the entry for a name, an OGC EPSG URI or any string matched
// by an entry's regular expression.
func (r *Registry) Resolve(name string) (*Entry, error) {
	e, _, err := r.ResolveDetail(name)
	return e, err
}

// ResolveDetail is Resolve that also reports which lookup step matched.
func (r *Registry) ResolveDetail(name string) (*Entry, Outcome, error) {
	key := strings.ToLower(name)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.entries[key]; ok {
		return e, OutcomeExact, nil
	}

	alias := uriAlias(key)
	for _, e := range r.order {
		if e.regex == nil {
			continue
		}
		if alias != "" && e.regex.MatchString(alias) {
			return e, OutcomeURI, nil
		}
		if e.regex.MatchString(name) {
			return e, OutcomeRegex, nil
		}
	}
	return nil, "", crserr.NotFound(name)
}

// uriAlias turns http://www.opengis.net/def/crs/epsg/<version>/<code> into
// EPSG::<code>. Version and code must both fit in 16 bits.
func uriAlias(lower string) string {
	m := epsgURI.FindStringSubmatch(lower)
	if m == nil {
		return ""
	}
	if _, err := strconv.ParseUint(m[1], 10, 16); err != nil {
		return ""
	}
	code, err := strconv.ParseUint(m[2], 10, 16)
	if err != nil {
		return ""
	}
	return "EPSG::" + strconv.FormatUint(code, 10)
}

// CreateTransformation builds a transformation owning its native handle.
// The same entry on both sides yields an identity transformation.
func (r *Registry) CreateTransformation(from, to *Entry) (transform.Transformation, error) {
	if from == to {
		return transform.NewIdentity(from.name), nil
	}
	tr, err := r.backend.NewTransformer(from.ref, to.ref)
	if err != nil {
		return nil, crserr.TransformationConstruction(from.name, to.name, err)
	}
	return transform.NewReal(from.name, to.name, from.swap, to.swap, tr, tr.Close), nil
}

// Transformation resolves both names and calls CreateTransformation.
func (r *Registry) Transformation(fromName, toName string) (transform.Transformation, error) {
	from, err := r.Resolve(fromName)
	if err != nil {
		return nil, err
	}
	to, err := r.Resolve(toName)
	if err != nil {
		return nil, err
	}
	return r.CreateTransformation(from, to)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Keys returns the registered names sorted case-insensitively.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.order))
	for _, e := range r.order {
		out = append(out, e.name)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i]) < strings.ToLower(out[j]) })
	return out
}

// Proj4 exports the resolved entry's definition as a PROJ.4 string.
func (r *Registry) Proj4(name string) (string, error) {
	e, err := r.Resolve(name)
	if err != nil {
		return "", err
	}
	return e.ref.Proj4()
}

// Attribute returns an attribute of the resolved entry.
func (r *Registry) Attribute(name, attrName string) (attr.Value, error) {
	e, err := r.Resolve(name)
	if err != nil {
		return attr.Value{}, err
	}
	v, err := e.attrs.Get(attrName)
	if err != nil {
		return attr.Value{}, crserr.WithParam(err, "crs", e.name)
	}
	return v, nil
}

func (r *Registry) SetAttribute(name, attrName string, v attr.Value) error {
	e, err := r.Resolve(name)
	if err != nil {
		return err
	}
	e.attrs.Set(attrName, v)
	return nil
}

// Dump writes a human readable listing of every entry. Write errors are
// reported by the final flush.
func (r *Registry) Dump(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, name := range r.Keys() {
		e, err := r.Resolve(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(bw, "%s\n", e.name)
		if e.regex != nil {
			fmt.Fprintf(bw, "  regex: %s\n", e.regex.String())
		}
		fmt.Fprintf(bw, "  swap: %t\n", e.swap)
		if def, err := e.ref.Proj4(); err == nil {
			fmt.Fprintf(bw, "  proj4: %s\n", def)
		}
		for _, k := range e.attrs.Names() {
			v, _ := e.attrs.Get(k)
			fmt.Fprintf(bw, "  %s: %s\n", k, v.String())
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// Close releases every spatial reference. Entries must not be used
// afterwards.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	for _, e := range r.order {
		e.ref.Close()
	}
}

func abbreviate(s string) string {
	if len(s) > 32 {
		return s[:32] + "..."
	}
	return s
}
