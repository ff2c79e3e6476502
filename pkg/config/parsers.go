package config

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Flags holds parsed command-line flag values and which were set.
type Flags struct {
	Addr    string
	Data    string
	Backend string
	Config  string
	Set     map[string]bool
}

// EffectiveConfigResult holds the result of LoadEffectiveConfig.
type EffectiveConfigResult struct {
	Config  *Config
	Addr    string
	Backend string
	Path    string
	Source  string // "flags", "config", or "env"
}

// ParseConfigFlags parses command-line flags and returns them as a Flags
// struct.
func ParseConfigFlags() Flags {
	addrPtr := flag.String("addr", ":8080", "HTTP listen address")
	dataPtr := flag.String("data", DefaultStoragePath, "Suggestion document path")
	backendPtr := flag.String("backend", "yaml", "Storage backend (yaml|pebble)")
	cfgPtr := flag.String("config", "./config.yaml", "Path to config file")
	flag.Parse()
	setFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	return Flags{Addr: *addrPtr, Data: *dataPtr, Backend: *backendPtr, Config: *cfgPtr, Set: setFlags}
}

// ParseConfigFile resolves the config path and loads the YAML file. It
// returns the parsed config, whether the file was present, and an error
// for fatal parsing problems.
func ParseConfigFile(flags Flags) (*Config, bool, error) {
	cfgPath := ResolveConfigPath(flags.Config, flags.Set["config"])
	cfg, err := Load(cfgPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, false, nil
		}
		return nil, false, err
	}
	return cfg, true, nil
}

// ParseConfigEnvs reads SUGGESTBOX_* environment variables into a fresh
// Config and reports whether any were used. It does not mutate caller
// state.
func ParseConfigEnvs() (*Config, bool) {
	envCfg := &Config{}
	envUsed := false
	parseList := func(v string) []string {
		if v == "" {
			return nil
		}
		parts := []string{}
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				parts = append(parts, s)
			}
		}
		return parts
	}

	if v := os.Getenv("SUGGESTBOX_ADDR"); v != "" {
		envUsed = true
		if h, p, err := net.SplitHostPort(v); err == nil {
			envCfg.Server.Address = h
			if pi, err := strconv.Atoi(p); err == nil {
				envCfg.Server.Port = pi
			}
		} else {
			envCfg.Server.Address = v
		}
	} else {
		if host := os.Getenv("SUGGESTBOX_ADDRESS"); host != "" {
			envUsed = true
			envCfg.Server.Address = host
		}
		if port := os.Getenv("SUGGESTBOX_PORT"); port != "" {
			envUsed = true
			if pi, err := strconv.Atoi(port); err == nil {
				envCfg.Server.Port = pi
			}
		}
	}

	if v := os.Getenv("SUGGESTBOX_STORAGE_BACKEND"); v != "" {
		envUsed = true
		envCfg.Storage.Backend = v
	}
	if v := os.Getenv("SUGGESTBOX_STORAGE_PATH"); v != "" {
		envUsed = true
		envCfg.Storage.Path = v
	}
	if v := os.Getenv("SUGGESTBOX_MAX_TITLE_LENGTH"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envUsed = true
			envCfg.Suggestions.MaxTitleLength = n
		}
	}
	if v := os.Getenv("SUGGESTBOX_MAX_DESCRIPTION_LENGTH"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envUsed = true
			envCfg.Suggestions.MaxDescriptionLength = n
		}
	}
	if v := os.Getenv("SUGGESTBOX_MAX_PER_AUTHOR"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envUsed = true
			envCfg.Suggestions.MaxPerAuthor = n
		}
	}
	if v := os.Getenv("SUGGESTBOX_ALLOW_SELF_VOTE"); v != "" {
		envUsed = true
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes":
			envCfg.Suggestions.AllowSelfVote = true
		default:
			envCfg.Suggestions.AllowSelfVote = false
		}
	}
	if v := os.Getenv("SUGGESTBOX_DEFAULT_SORT"); v != "" {
		envUsed = true
		envCfg.Suggestions.DefaultSort = v
	}
	if v := os.Getenv("SUGGESTBOX_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envUsed = true
			envCfg.Suggestions.PageSize = n
		}
	}
	if v := os.Getenv("SUGGESTBOX_SESSION_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			envUsed = true
			envCfg.Sessions.Timeout = Duration(d)
		}
	}
	if v := os.Getenv("SUGGESTBOX_CANCEL_WORDS"); v != "" {
		envUsed = true
		envCfg.Sessions.CancelWords = parseList(v)
	}
	if v := os.Getenv("SUGGESTBOX_SWEEP_CRON"); v != "" {
		envUsed = true
		envCfg.Sessions.SweepCron = v
	}
	if v := os.Getenv("SUGGESTBOX_CORS_ORIGINS"); v != "" {
		envUsed = true
		envCfg.Security.CORS.AllowedOrigins = parseList(v)
	}
	if v := os.Getenv("SUGGESTBOX_RATE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			envUsed = true
			envCfg.Security.RateLimit.RPS = f
		}
	}
	if v := os.Getenv("SUGGESTBOX_RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envUsed = true
			envCfg.Security.RateLimit.Burst = n
		}
	}
	if v := os.Getenv("SUGGESTBOX_ADMIN_ROLES"); v != "" {
		envUsed = true
		envCfg.Security.AdminRoles = parseList(v)
	}
	if c := os.Getenv("SUGGESTBOX_TLS_CERT"); c != "" {
		envUsed = true
		envCfg.Server.TLS.CertFile = c
	}
	if k := os.Getenv("SUGGESTBOX_TLS_KEY"); k != "" {
		envUsed = true
		envCfg.Server.TLS.KeyFile = k
	}
	return envCfg, envUsed
}

// LoadEffectiveConfig decides which single source wins. An explicit
// --config requires the file to exist and uses it; addr/data/backend
// flags win next; otherwise a present config file, then env. The chosen
// config gets defaults applied before it is returned.
func LoadEffectiveConfig(flags Flags, fileCfg *Config, fileExists bool, envCfg *Config, envUsed bool) (EffectiveConfigResult, error) {
	var res EffectiveConfigResult

	if flags.Set["config"] {
		if !fileExists {
			return res, fmt.Errorf("config file %s not found", flags.Config)
		}
		res.Config = fileCfg
		res.Source = "config"
	} else if flags.Set["addr"] || flags.Set["data"] || flags.Set["backend"] {
		out := &Config{}
		out.Server.Address = flags.Addr
		out.Server.Port = parsePortFromAddr(flags.Addr)
		out.Storage.Path = flags.Data
		out.Storage.Backend = flags.Backend
		res.Config = out
		res.Source = "flags"
	} else if fileExists {
		res.Config = fileCfg
		res.Source = "config"
	} else {
		res.Config = envCfg
		res.Source = "env"
		if !envUsed {
			res.Source = "defaults"
		}
	}

	res.Config.ApplyDefaults()
	res.Addr = res.Config.Addr()
	res.Backend = res.Config.Storage.Backend
	res.Path = res.Config.Storage.Path
	if res.Source == "flags" {
		res.Addr = flags.Addr
	}
	return res, nil
}

// parsePortFromAddr extracts the port integer from a host:port string.
func parsePortFromAddr(a string) int {
	if a == "" {
		return 0
	}
	if _, p, err := net.SplitHostPort(a); err == nil {
		if pi, err := strconv.Atoi(p); err == nil {
			return pi
		}
	}
	return 0
}
