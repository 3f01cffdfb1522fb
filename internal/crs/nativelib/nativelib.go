// Package nativelib picks the spatial backend compiled into the binary.
// cgo builds link the PROJ library. Builds without cgo, or with the
// "builtin" tag, fall back to the pure-Go builtin backend.
package nativelib

import "github.com/mohammed-shakir/crs-cache/internal/crs/spatial"

// Default returns the backend selected at build time.
func Default() spatial.Backend { return defaultBackend() }

// Name identifies the backend in logs and build info.
func Name() string { return backendName }
