package command

import (
	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	smartcache "github.com/probablyarth/smartcache-go"
	"github.com/probablyarth/smartcache-go/internal/config"
)

// sources resolves a flag from its environment variable first, then from
// the config file at cfgPath under the dotted key.
func sources(cfgPath, env, key string) cli.ValueSourceChain {
	return cli.NewValueSourceChain(
		cli.EnvVar(env),
		yaml.YAML(key, altsrc.StringSourcer(cfgPath)),
	)
}

// CacheFlags returns the flags sizing the cache.
func CacheFlags(cfgPath string) []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:    "ttl",
			Usage:   "how long a fetched value or error is served",
			Value:   smartcache.DefaultTTL,
			Sources: sources(cfgPath, "SMARTCACHE_TTL", "cache.ttl"),
		},
		&cli.IntFlag{
			Name:    "max-cached",
			Usage:   "maximum number of cached entries",
			Value:   smartcache.DefaultMaxCached,
			Sources: sources(cfgPath, "SMARTCACHE_MAX_CACHED", "cache.max_cached"),
		},
		&cli.IntFlag{
			Name:    "max-pending",
			Usage:   "maximum number of keys fetched at once",
			Value:   smartcache.DefaultMaxPending,
			Sources: sources(cfgPath, "SMARTCACHE_MAX_PENDING", "cache.max_pending"),
		},
	}
}

// BackendFlags returns the flags shaping the simulated backend.
func BackendFlags(cfgPath string) []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:    "latency",
			Usage:   "simulated backend latency per fetch",
			Value:   config.DefaultLatency,
			Sources: sources(cfgPath, "SMARTCACHE_LATENCY", "server.latency"),
		},
		&cli.StringFlag{
			Name:    "fail-prefix",
			Usage:   "keys with this prefix fail to fetch",
			Sources: sources(cfgPath, "SMARTCACHE_FAIL_PREFIX", "server.fail_prefix"),
		},
	}
}

func cacheConfig(cmd *cli.Command) smartcache.Config {
	return smartcache.Config{
		TTL:        cmd.Duration("ttl"),
		MaxCached:  cmd.Int("max-cached"),
		MaxPending: cmd.Int("max-pending"),
	}
}
