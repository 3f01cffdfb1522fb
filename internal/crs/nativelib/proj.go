//go:build cgo && !builtin

package nativelib

import (
	"github.com/mohammed-shakir/crs-cache/internal/crs/projlib"
	"github.com/mohammed-shakir/crs-cache/internal/crs/spatial"
)

const backendName = "proj"

func defaultBackend() spatial.Backend { return projlib.New() }
