//go:build !cgo || builtin

package nativelib

import (
	"github.com/mohammed-shakir/crs-cache/internal/crs/builtin"
	"github.com/mohammed-shakir/crs-cache/internal/crs/spatial"
)

const backendName = "builtin"

func defaultBackend() spatial.Backend { return builtin.New() }
