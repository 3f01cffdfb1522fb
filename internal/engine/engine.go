// Package engine is the facade over the CRS registry, the transformation
// pool, EPSG reference data and the bounding box result caches.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mohammed-shakir/crs-cache/internal/cache/bboxstore"
	"github.com/mohammed-shakir/crs-cache/internal/cache/keys"
	"github.com/mohammed-shakir/crs-cache/internal/core/model"
	"github.com/mohammed-shakir/crs-cache/internal/core/observability"
	"github.com/mohammed-shakir/crs-cache/internal/crs/attr"
	"github.com/mohammed-shakir/crs-cache/internal/crs/bbox"
	"github.com/mohammed-shakir/crs-cache/internal/crs/crserr"
	"github.com/mohammed-shakir/crs-cache/internal/crs/pool"
	"github.com/mohammed-shakir/crs-cache/internal/crs/registry"
	"github.com/mohammed-shakir/crs-cache/internal/crs/spatial"
	"github.com/mohammed-shakir/crs-cache/internal/crs/transform"
	"github.com/mohammed-shakir/crs-cache/internal/epsg"
	"github.com/mohammed-shakir/crs-cache/internal/logger"
)

var adhocEPSG = regexp.MustCompile(`(?i)^epsg:{1,2}(\d+)$`)

type Options struct {
	Backend       spatial.Backend
	PoolCapacity  int
	SRSCacheSize  int
	BBoxCacheSize int
	BBoxSamples   int
	// EPSG reference data; the built-in table is used when nil.
	EPSG *epsg.Table
	// BBoxStore is an optional shared result cache.
	BBoxStore      bboxstore.Store
	CacheOpTimeout time.Duration
	// Closer is closed last by Close (the redis client behind BBoxStore).
	Closer io.Closer
	Logger *slog.Logger
}

type Engine struct {
	backend spatial.Backend
	reg     *registry.Registry
	pool    *pool.Pool
	epsg    *epsg.Table

	// parsed definitions that are not registry entries, keyed by lower-cased text
	adhoc  *lru.Cache[string, spatial.SpatialRef]
	bboxes *lru.Cache[string, model.BBox]
	store  bboxstore.Store

	samples   int
	opTimeout time.Duration
	closer    io.Closer
	log       *slog.Logger
}

func New(opts Options) (*Engine, error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("engine: spatial backend is required")
	}
	if opts.SRSCacheSize <= 0 {
		opts.SRSCacheSize = 256
	}
	if opts.BBoxCacheSize <= 0 {
		opts.BBoxCacheSize = 4096
	}
	if opts.BBoxSamples < 2 {
		opts.BBoxSamples = bbox.DefaultSamples
	}
	if opts.CacheOpTimeout <= 0 {
		opts.CacheOpTimeout = 250 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.EPSG == nil {
		opts.EPSG = epsg.NewTable()
		opts.EPSG.LoadDefaults()
	}

	adhoc, err := lru.New[string, spatial.SpatialRef](opts.SRSCacheSize)
	if err != nil {
		return nil, fmt.Errorf("srs cache: %w", err)
	}
	bboxes, err := lru.New[string, model.BBox](opts.BBoxCacheSize)
	if err != nil {
		return nil, fmt.Errorf("bbox cache: %w", err)
	}

	return &Engine{
		backend:   opts.Backend,
		reg:       registry.New(opts.Backend),
		pool:      pool.New(opts.Backend, opts.PoolCapacity),
		epsg:      opts.EPSG,
		adhoc:     adhoc,
		bboxes:    bboxes,
		store:     opts.BBoxStore,
		samples:   opts.BBoxSamples,
		opTimeout: opts.CacheOpTimeout,
		closer:    opts.Closer,
		log:       opts.Logger,
	}, nil
}

func (e *Engine) Registry() *registry.Registry { return e.reg }
func (e *Engine) Pool() *pool.Pool             { return e.pool }
func (e *Engine) EPSGTable() *epsg.Table       { return e.epsg }
func (e *Engine) BBoxSamples() int             { return e.samples }

func (e *Engine) RegisterEPSG(name string, code int, regex string, swap bool, opts ...registry.Option) error {
	if err := e.reg.RegisterEPSG(name, code, regex, swap, opts...); err != nil {
		return err
	}
	e.log.Debug("registered crs", "name", name, "epsg", code, "swap", swap)
	return nil
}

func (e *Engine) RegisterProj4(name, def, regex string, swap bool, opts ...registry.Option) error {
	if err := e.reg.RegisterProj4(name, def, regex, swap, opts...); err != nil {
		return err
	}
	e.log.Debug("registered crs", "name", name, "proj4", def, "swap", swap)
	return nil
}

func (e *Engine) RegisterWKT(name, def, regex string, swap bool, opts ...registry.Option) error {
	if err := e.reg.RegisterWKT(name, def, regex, swap, opts...); err != nil {
		return err
	}
	e.log.Debug("registered crs", "name", name, "format", "wkt", "swap", swap)
	return nil
}

// Resolve finds the registry entry for a name, URI or regex alias.
func (e *Engine) Resolve(name string) (*registry.Entry, error) {
	ent, outcome, err := e.reg.ResolveDetail(name)
	if err != nil {
		observability.ObserveLookup("not_found")
		return nil, err
	}
	observability.ObserveLookup(string(outcome))
	return ent, nil
}

// SpatialReference returns the registry entry's spatial reference or, for
// unregistered "EPSG:<code>", PROJ.4 or WKT text, a parsed and cached one.
// It is the resolver the transformation pool builds transformers from.
func (e *Engine) SpatialReference(name string) (spatial.SpatialRef, error) {
	if ent, err := e.Resolve(name); err == nil {
		return ent.SpatialRef(), nil
	}
	return e.adhocRef(name)
}

func (e *Engine) adhocRef(name string) (spatial.SpatialRef, error) {
	def := strings.TrimSpace(name)
	key := strings.ToLower(def)
	if ref, ok := e.adhoc.Get(key); ok {
		observability.ObserveLookup("adhoc")
		return ref, nil
	}

	var (
		ref    spatial.SpatialRef
		err    error
		format string
	)
	switch {
	case adhocEPSG.MatchString(def):
		format = "epsg"
		code, _ := strconv.Atoi(adhocEPSG.FindStringSubmatch(def)[1])
		ref, err = e.backend.FromEPSG(code)
	case strings.HasPrefix(def, "+"):
		format = "proj4"
		ref, err = e.backend.FromProj4(def)
	case strings.Contains(def, "["):
		format = "wkt"
		ref, err = e.backend.FromWKT(def)
	default:
		return nil, crserr.NotFound(name)
	}
	if err != nil {
		return nil, crserr.InvalidDefinition(name, format, def, err)
	}
	// evicted references are not closed: a transformer may still be
	// built from one concurrently
	if found, _ := e.adhoc.ContainsOrAdd(key, ref); found {
		if prev, ok := e.adhoc.Get(key); ok {
			ref.Close()
			ref = prev
		}
	}
	observability.ObserveLookup("adhoc")
	return ref, nil
}

type endpoint struct {
	name  string
	swap  bool
	entry *registry.Entry
}

// endpoint resolves name to the canonical pool name and swap flag.
func (e *Engine) endpoint(name string) (endpoint, error) {
	ent, err := e.Resolve(name)
	if err == nil {
		return endpoint{name: ent.Name(), swap: ent.SwapCoordinates(), entry: ent}, nil
	}
	if _, aerr := e.adhocRef(name); aerr != nil {
		return endpoint{}, aerr
	}
	return endpoint{name: strings.TrimSpace(name)}, nil
}

// PooledTransformation leases a native transformer for the pair. The caller
// must Release the lease.
func (e *Engine) PooledTransformation(fromName, toName string) (*pool.Lease, error) {
	from, err := e.endpoint(fromName)
	if err != nil {
		return nil, err
	}
	to, err := e.endpoint(toName)
	if err != nil {
		return nil, err
	}
	return e.pool.Get(from.name, to.name, e)
}

// CreateTransformation returns an identity transformation when both names
// resolve to the same entry, otherwise one backed by a pooled transformer
// that goes back to the pool on Close.
func (e *Engine) CreateTransformation(fromName, toName string) (transform.Transformation, error) {
	from, err := e.endpoint(fromName)
	if err != nil {
		return nil, err
	}
	to, err := e.endpoint(toName)
	if err != nil {
		return nil, err
	}
	return e.transformation(from, to)
}

func (e *Engine) transformation(from, to endpoint) (transform.Transformation, error) {
	if from.entry != nil && from.entry == to.entry {
		return transform.NewIdentity(from.name), nil
	}
	lease, err := e.pool.Get(from.name, to.name, e)
	if err != nil {
		return nil, err
	}
	return transform.NewReal(from.name, to.name, from.swap, to.swap, lease.Transformer(), lease.Release), nil
}

// TransformPoint is a one-shot point transformation.
func (e *Engine) TransformPoint(fromName, toName string, p model.Point) (model.Point, error) {
	tr, err := e.CreateTransformation(fromName, toName)
	if err != nil {
		return model.Point{}, err
	}
	defer tr.Close()
	out, err := tr.TransformPoint(p)
	if err != nil {
		observability.IncTransformFailure("point")
	}
	return out, err
}

// TransformPoint3D is TransformPoint carrying a height.
func (e *Engine) TransformPoint3D(fromName, toName string, p model.Point3D) (model.Point3D, error) {
	tr, err := e.CreateTransformation(fromName, toName)
	if err != nil {
		return model.Point3D{}, err
	}
	defer tr.Close()
	out, err := tr.TransformPoint3D(p)
	if err != nil {
		observability.IncTransformFailure("point")
	}
	return out, err
}

// ReprojectBBox transforms bb (in bb.CRS) to toName, consulting the in
// process cache and then the shared store before computing. The result is
// labelled with toName as given; cached copies carry the canonical name.
func (e *Engine) ReprojectBBox(ctx context.Context, bb model.BBox, toName string) (model.BBox, error) {
	from, err := e.endpoint(bb.CRS)
	if err != nil {
		return model.BBox{}, err
	}
	to, err := e.endpoint(toName)
	if err != nil {
		return model.BBox{}, err
	}
	if !bb.Valid() {
		return model.BBox{}, fmt.Errorf("%w: %s", bbox.ErrInvalid, bb)
	}
	if from.entry != nil && from.entry == to.entry {
		observability.ObserveBBoxReprojection("identity")
		out := bb
		out.CRS = toName
		return out, nil
	}

	src := bb
	src.CRS = from.name
	key := keys.BBox(src, to.name, e.samples)

	if out, ok := e.bboxes.Get(key); ok {
		observability.ObserveBBoxReprojection("cache_hit")
		out.CRS = toName
		return out, nil
	}
	if out, ok := e.storeGet(ctx, key, from.name, to.name); ok {
		e.bboxes.Add(key, out)
		observability.ObserveBBoxReprojection("cache_hit")
		out.CRS = toName
		return out, nil
	}

	tr, err := e.transformation(from, to)
	if err != nil {
		observability.ObserveBBoxReprojection("error")
		return model.BBox{}, err
	}
	defer tr.Close()

	out, err := bbox.Reproject(tr, src, e.samples)
	if err != nil {
		observability.IncTransformFailure("bbox")
		observability.ObserveBBoxReprojection("error")
		return model.BBox{}, err
	}
	observability.ObserveBBoxReprojection("computed")

	e.bboxes.Add(key, out)
	e.storePut(ctx, key, out, from.name, to.name)
	out.CRS = toName
	return out, nil
}

func (e *Engine) storeGet(ctx context.Context, key, from, to string) (model.BBox, bool) {
	if e.store == nil {
		return model.BBox{}, false
	}
	cctx, cancel := context.WithTimeout(ctx, e.opTimeout)
	defer cancel()
	out, found, err := e.store.Get(cctx, key)
	if err != nil {
		e.log.WarnContext(logger.WithCRSPair(ctx, from, to), "bbox cache get failed", "key", key, "err", err)
		return model.BBox{}, false
	}
	return out, found
}

func (e *Engine) storePut(ctx context.Context, key string, bb model.BBox, from, to string) {
	if e.store == nil {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, e.opTimeout)
	defer cancel()
	if err := e.store.Put(cctx, key, bb); err != nil {
		e.log.WarnContext(logger.WithCRSPair(ctx, from, to), "bbox cache put failed", "key", key, "err", err)
	}
}

// Ready reports whether the engine can serve: at least one registered
// coordinate system and, when configured, a reachable shared cache.
func (e *Engine) Ready(ctx context.Context) error {
	if e.reg.Len() == 0 {
		return fmt.Errorf("crs registry is empty")
	}
	if e.store != nil {
		cctx, cancel := context.WithTimeout(ctx, e.opTimeout)
		defer cancel()
		if err := e.store.Ping(cctx); err != nil {
			return fmt.Errorf("bbox cache: %w", err)
		}
	}
	return nil
}

func (e *Engine) Attribute(name, attrName string) (attr.Value, error) {
	return e.reg.Attribute(name, attrName)
}

func (e *Engine) SetAttribute(name, attrName string, v attr.Value) error {
	return e.reg.SetAttribute(name, attrName, v)
}

// AttributeAs returns a typed attribute of the named coordinate system.
func AttributeAs[T bool | int | string](e *Engine, name, attrName string) (T, error) {
	var zero T
	ent, err := e.Resolve(name)
	if err != nil {
		return zero, err
	}
	v, err := attr.Get[T](ent.Attributes(), attrName)
	if err != nil {
		return zero, crserr.WithParam(err, "crs", ent.Name())
	}
	return v, nil
}

// BBox returns the area of use for an EPSG code, defaulting to the whole
// world.
func (e *Engine) BBox(code int) epsg.BBox { return e.epsg.BBox(code) }

func (e *Engine) EPSG(code int) (epsg.Record, bool) { return e.epsg.Record(code) }

// Proj4 exports a registered or ad-hoc definition as PROJ.4 text.
func (e *Engine) Proj4(name string) (string, error) {
	ref, err := e.SpatialReference(name)
	if err != nil {
		return "", err
	}
	return ref.Proj4()
}

func (e *Engine) Keys() []string { return e.reg.Keys() }

func (e *Engine) Dump(w io.Writer) error { return e.reg.Dump(w) }

// Close destroys pooled transformers, registry references and the shared
// cache connection. Leases still out are destroyed on release.
func (e *Engine) Close() error {
	e.pool.Close()
	e.reg.Close()
	for _, k := range e.adhoc.Keys() {
		if ref, ok := e.adhoc.Peek(k); ok {
			ref.Close()
		}
	}
	e.adhoc.Purge()
	if e.closer != nil {
		if err := e.closer.Close(); err != nil {
			return fmt.Errorf("engine close: %w", err)
		}
	}
	return nil
}
