package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mohammed-shakir/crs-cache/internal/cache/bboxstore"
	"github.com/mohammed-shakir/crs-cache/internal/cache/redisstore"
	"github.com/mohammed-shakir/crs-cache/internal/core/config"
	"github.com/mohammed-shakir/crs-cache/internal/crs/nativelib"
	"github.com/mohammed-shakir/crs-cache/internal/crsconf"
	"github.com/mohammed-shakir/crs-cache/internal/epsg"
)

// LoadEPSG builds the EPSG reference table: built-in records, then the
// optional file, then the optional database, then explicit overrides.
func LoadEPSG(ctx context.Context, cfg config.Config, log *slog.Logger) (*epsg.Table, error) {
	t := epsg.NewTable()
	t.LoadDefaults()

	if cfg.EPSGFile != "" {
		if err := t.LoadFile(cfg.EPSGFile); err != nil {
			return nil, err
		}
		log.Info("loaded epsg file", "path", cfg.EPSGFile, "records", t.Len())
	}
	if cfg.EPSGDBURL != "" {
		dctx, cancel := context.WithTimeout(ctx, cfg.EPSGDBTimeout)
		n, err := t.LoadDatabase(dctx, cfg.EPSGDBURL, cfg.EPSGDBQuery)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("load epsg database: %w", err)
		}
		log.Info("loaded epsg database", "records", n)
	}
	for code, b := range cfg.BBoxOverrides {
		t.SetBBox(code, epsg.BBox{West: b[0], East: b[1], South: b[2], North: b[3]})
	}
	return t, nil
}

// FromConfig wires an Engine from configuration: native backend, EPSG
// data, the optional redis bbox cache and the CRS definitions.
func FromConfig(ctx context.Context, cfg config.Config, log *slog.Logger) (*Engine, error) {
	if log == nil {
		log = slog.Default()
	}
	table, err := LoadEPSG(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	opts := Options{
		Backend:        nativelib.Default(),
		PoolCapacity:   cfg.PoolCapacity,
		SRSCacheSize:   cfg.SRSCacheSize,
		BBoxCacheSize:  cfg.BBoxCacheSize,
		BBoxSamples:    cfg.BBoxSamples,
		EPSG:           table,
		CacheOpTimeout: cfg.CacheOpTimeout,
		Logger:         log,
	}
	if cfg.RedisAddr != "" {
		cli, err := redisstore.New(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		opts.BBoxStore = bboxstore.NewRedisStore(cli, cfg.BBoxCacheTTL)
		opts.Closer = cli
		log.Info("bbox cache enabled", "redis", cfg.RedisAddr, "ttl", cfg.BBoxCacheTTL)
	}

	eng, err := New(opts)
	if err != nil {
		if opts.Closer != nil {
			_ = opts.Closer.Close()
		}
		return nil, err
	}

	var defs []crsconf.Definition
	if cfg.CRSDefinitionDir != "" {
		defs, err = crsconf.LoadDir(cfg.CRSDefinitionDir)
	} else {
		defs, err = crsconf.Builtin()
	}
	if err == nil {
		err = crsconf.Register(eng, defs)
	}
	if err != nil {
		_ = eng.Close()
		return nil, err
	}
	log.Info("crs registry ready", "entries", eng.Registry().Len(), "backend", nativelib.Name())
	return eng, nil
}
