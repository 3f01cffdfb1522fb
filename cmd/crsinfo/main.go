// Command crsinfo loads the CRS registry the way crsd does and prints it.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mohammed-shakir/crs-cache/internal/core/config"
	"github.com/mohammed-shakir/crs-cache/internal/crs/nativelib"
	"github.com/mohammed-shakir/crs-cache/internal/engine"
	"github.com/mohammed-shakir/crs-cache/internal/logger"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("crsinfo", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dir := fs.String("dir", "", "CRS definition directory (default: CRS_DEFINITION_DIR or the built-in set)")
	epsgFile := fs.String("epsg-file", "", "EPSG reference file (default: EPSG_FILE)")
	name := fs.String("crs", "", "print the PROJ.4 definition of one coordinate system")
	code := fs.Int("epsg", 0, "print the EPSG record and area of use for a code")
	verbose := fs.Bool("v", false, "log loading progress to stderr")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg := config.FromEnv()
	if *dir != "" {
		cfg.CRSDefinitionDir = *dir
	}
	if *epsgFile != "" {
		cfg.EPSGFile = *epsgFile
	}
	// the CLI never needs the shared result cache
	cfg.RedisAddr = ""

	level := "warn"
	if *verbose {
		level = "debug"
	}
	zl := logger.Build(logger.Config{Level: level, Console: true, Backend: nativelib.Name(), Component: "crsinfo"}, stderr)
	log := logger.NewSlog(&zl)

	eng, err := engine.FromConfig(context.Background(), cfg, log)
	if err != nil {
		fmt.Fprintf(stderr, "crsinfo: %v\n", err)
		return 1
	}
	defer eng.Close()

	switch {
	case *code != 0:
		out := map[string]any{"code": *code, "bbox": eng.BBox(*code)}
		if rec, ok := eng.EPSG(*code); ok {
			out["record"] = rec
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			fmt.Fprintf(stderr, "crsinfo: %v\n", err)
			return 1
		}
	case strings.TrimSpace(*name) != "":
		p4, err := eng.Proj4(*name)
		if err != nil {
			fmt.Fprintf(stderr, "crsinfo: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, p4)
	default:
		if err := eng.Dump(stdout); err != nil {
			fmt.Fprintf(stderr, "crsinfo: %v\n", err)
			return 1
		}
	}
	return 0
}
