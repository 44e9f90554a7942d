package config

import (
	"flag"
	"os"
	"strings"
)

// filterArgs returns only the allowed flags (and their values) from args.
// Both "-f value" and "--flag=value" forms are recognized. Filtering lets
// each parse pass define its own flag set without tripping over flags it
// does not know about.
func filterArgs(args []string, allowed []string) []string {
	allow := make(map[string]struct{}, len(allowed))
	for _, f := range allowed {
		allow[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name := strings.SplitN(arg, "=", 2)[0]
			if _, ok := allow[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allow[arg]; ok {
			filtered = append(filtered, arg)
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}
	return filtered
}

// jsonConfigPath extracts the JSON config file path from the -c or -config
// flags, ignoring every other argument. Returns "" when neither is set.
func jsonConfigPath() string {
	var config string

	args := filterArgs(os.Args[1:], []string{"-c", "-config"})

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&config, "config", "", "Path to config file")
	fs.StringVar(&config, "c", "", "Path to config file (short)")
	_ = fs.Parse(args)

	return config
}

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-s string   storage driver: memory, sqlite, postgres, redis
//	-d string   database DSN (sqlite path or postgres DSN)
//	-r string   redis address (host:port)
//	-p string   redis key prefix
//	-e          enable at-rest encryption
//	-v          verbose logging
func parseFlags(config *Config) {
	args := filterArgs(os.Args[1:], []string{"-s", "-d", "-r", "-p", "-e", "-v"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.Driver, "s", config.Driver, "storage driver")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.StringVar(&config.RedisKeyPrefix, "p", config.RedisKeyPrefix, "redis key prefix")
	fs.BoolVar(&config.Encrypt, "e", config.Encrypt, "encrypt stored state")
	fs.BoolVar(&config.Debug, "v", config.Debug, "verbose logging")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
