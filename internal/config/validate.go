package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"go.uber.org/zap/zapcore"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate returns a trimmed copy of cfg together with every
// problem found in it.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	trimList := func(xs []string) []string {
		seen := map[string]bool{}
		var ys []string
		for _, x := range xs {
			x = strings.TrimSpace(x)
			if x == "" {
				continue
			}
			key := strings.ToLower(x)
			if seen[key] {
				continue
			}
			seen[key] = true
			ys = append(ys, x)
		}
		return ys
	}

	out.HTTP.Addr = strings.TrimSpace(out.HTTP.Addr)
	out.HTTP.AllowedOrigins = trimList(out.HTTP.AllowedOrigins)
	out.Database.Path = strings.TrimSpace(out.Database.Path)
	out.RateLimit.RedisAddr = strings.TrimSpace(out.RateLimit.RedisAddr)
	out.Events.NatsURL = strings.TrimSpace(out.Events.NatsURL)
	out.Events.SubjectPrefix = strings.Trim(strings.TrimSpace(out.Events.SubjectPrefix), ".")
	out.Tracing.CollectorURL = strings.TrimSpace(out.Tracing.CollectorURL)
	out.Logging.Level = strings.ToLower(strings.TrimSpace(out.Logging.Level))
	if out.App.Name == "" {
		out.App.Name = "jobtracker"
	}

	// http
	if out.HTTP.Addr == "" {
		res.addErr("http.addr is required")
	} else if host, _, err := net.SplitHostPort(out.HTTP.Addr); err != nil {
		res.addErr("http.addr must be host:port (%v)", err)
	} else if host == "" || host == "0.0.0.0" || host == "::" {
		res.addWarn("http.addr %q listens on all interfaces; the API has no authentication.", out.HTTP.Addr)
	}
	if out.HTTP.ReadTimeoutSeconds <= 0 {
		res.addErr("http.read_timeout_seconds must be > 0")
	}
	if out.HTTP.WriteTimeoutSeconds <= 0 {
		res.addErr("http.write_timeout_seconds must be > 0")
	}
	if out.HTTP.ShutdownSeconds <= 0 {
		res.addErr("http.shutdown_seconds must be > 0")
	}
	if out.HTTP.MaxBodyBytes <= 0 {
		res.addErr("http.max_body_bytes must be > 0")
	}

	// database
	if out.Database.Path == "" {
		res.addErr("database.path is required")
	}
	if out.Database.BusyTimeoutMs < 0 {
		res.addErr("database.busy_timeout_ms must be >= 0")
	}

	// rate limiting
	if out.RateLimit.RequestsPerMinute <= 0 {
		res.addErr("rate_limit.requests_per_minute must be > 0")
	} else if out.RateLimit.RequestsPerMinute > 6000 {
		res.addWarn("rate_limit.requests_per_minute is very high (%d); limiting is effectively off.", out.RateLimit.RequestsPerMinute)
	}
	if out.RateLimit.Burst <= 0 {
		res.addErr("rate_limit.burst must be > 0")
	}
	if out.RateLimit.RedisAddr != "" {
		if _, _, err := net.SplitHostPort(out.RateLimit.RedisAddr); err != nil {
			res.addErr("rate_limit.redis_addr must be host:port (%v)", err)
		}
		if strings.TrimSpace(out.RateLimit.KeyPrefix) == "" {
			res.addErr("rate_limit.key_prefix is required when rate_limit.redis_addr is set")
		}
	}

	// events
	if out.Events.NatsURL != "" {
		if u, err := url.Parse(out.Events.NatsURL); err != nil || u.Host == "" {
			res.addErr("events.nats_url must be a URL such as nats://host:4222")
		}
		if out.Events.SubjectPrefix == "" {
			res.addErr("events.subject_prefix is required when events.nats_url is set")
		}
	}

	// posting preview
	if out.Posting.Enabled {
		if out.Posting.TimeoutSeconds <= 0 {
			res.addErr("posting.timeout_seconds must be > 0")
		}
		if out.Posting.MaxBytes <= 0 {
			res.addErr("posting.max_bytes must be > 0")
		}
		if out.Posting.ReqPerSecond <= 0 {
			res.addErr("posting.req_per_second must be > 0")
		}
	}

	// maintenance
	if out.Maintenance.CheckpointSeconds <= 0 {
		res.addErr("maintenance.checkpoint_seconds must be > 0")
	} else if out.Maintenance.CheckpointSeconds < 10 {
		res.addWarn("maintenance.checkpoint_seconds is very low (%d).", out.Maintenance.CheckpointSeconds)
	}
	if out.Maintenance.StatsLogSeconds < 0 {
		res.addErr("maintenance.stats_log_seconds must be >= 0 (0 disables)")
	}

	// logging
	if out.Logging.Level == "" {
		out.Logging.Level = "info"
	}
	if _, err := zapcore.ParseLevel(out.Logging.Level); err != nil {
		res.addErr("logging.level %q is not a known level", out.Logging.Level)
	}

	return out, res
}
