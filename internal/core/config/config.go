package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr       string
	LogLevel   string
	LogConsole bool
	LogSampleN int

	CRSDefinitionDir string
	EPSGFile         string
	EPSGDBURL        string
	EPSGDBQuery      string
	EPSGDBTimeout    time.Duration
	// BBoxOverrides are explicit areas of use as code -> [west, east, south, north].
	BBoxOverrides map[int][4]float64

	PoolCapacity  int
	SRSCacheSize  int
	BBoxCacheSize int
	BBoxSamples   int

	RedisAddr      string
	BBoxCacheTTL   time.Duration
	CacheOpTimeout time.Duration

	MetricsEnabled bool
	MetricsAddr    string
	MetricsPath    string
}

func FromEnv() Config {
	samples := getint("BBOX_SAMPLES", 10)
	if samples < 2 {
		samples = 2
	}

	return Config{
		Addr:       getenv("ADDR", ":8090"),
		LogLevel:   getenv("LOG_LEVEL", "info"),
		LogConsole: getbool("LOG_CONSOLE", false),
		LogSampleN: getint("LOG_SAMPLE_N", 0),

		CRSDefinitionDir: getenv("CRS_DEFINITION_DIR", ""),
		EPSGFile:         getenv("EPSG_FILE", ""),
		EPSGDBURL:        getenv("EPSG_DB_URL", ""),
		EPSGDBQuery:      getenv("EPSG_DB_QUERY", ""),
		EPSGDBTimeout:    getduration("EPSG_DB_TIMEOUT", 30*time.Second),
		BBoxOverrides:    parseBBoxMap(getenv("EPSG_BBOXES", "")),

		PoolCapacity:  getint("TRANSFORM_POOL_CAPACITY", 2500),
		SRSCacheSize:  getint("SRS_CACHE_SIZE", 256),
		BBoxCacheSize: getint("BBOX_CACHE_SIZE", 4096),
		BBoxSamples:   samples,

		RedisAddr:      getenv("REDIS_ADDR", ""),
		BBoxCacheTTL:   getduration("BBOX_CACHE_TTL", time.Hour),
		CacheOpTimeout: getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),

		MetricsEnabled: getbool("METRICS_ENABLED", true),
		MetricsAddr:    getenv("METRICS_ADDR", ""),
		MetricsPath:    getenv("METRICS_PATH", "/metrics"),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// parse "2393=19.24:31.59:59.75:70.09,3067=..." into map; malformed items are skipped
func parseBBoxMap(s string) map[int][4]float64 {
	out := map[int][4]float64{}
	s = strings.TrimSpace(s)
	if s == "" {
		return out
	}
	for p := range strings.SplitSeq(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			continue
		}
		code, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil || code <= 0 {
			continue
		}
		parts := strings.Split(v, ":")
		if len(parts) != 4 {
			continue
		}
		var bb [4]float64
		valid := true
		for i, f := range parts {
			x, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				valid = false
				break
			}
			bb[i] = x
		}
		if valid {
			out[code] = bb
		}
	}
	return out
}
