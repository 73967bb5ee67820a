package config

import (
	"os"
	"strconv"
	"strings"
)

// applyEnvOverrides applies FLOWPLANE_*-prefixed environment variable
// overrides to the configuration.
func applyEnvOverrides(config *Config) {
	// Server configuration overrides
	if val := os.Getenv("FLOWPLANE_API_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil && port > 0 && port < 65536 {
			config.Server.APIPort = port
		}
	}

	if val := os.Getenv("FLOWPLANE_XDS_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil && port > 0 && port < 65536 {
			config.Server.XDSPort = port
		}
	}

	if val := os.Getenv("FLOWPLANE_READ_TIMEOUT"); val != "" {
		config.Server.ReadTimeout = val
	}

	if val := os.Getenv("FLOWPLANE_WRITE_TIMEOUT"); val != "" {
		config.Server.WriteTimeout = val
	}

	if val := os.Getenv("FLOWPLANE_IDLE_TIMEOUT"); val != "" {
		config.Server.IdleTimeout = val
	}

	if val := os.Getenv("FLOWPLANE_SHUTDOWN_TIMEOUT"); val != "" {
		config.Server.ShutdownTimeout = val
	}

	if val := os.Getenv("FLOWPLANE_GRACEFUL_SHUTDOWN"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			config.Server.GracefulShutdown = enabled
		}
	}

	// XDS configuration overrides
	if val := os.Getenv("FLOWPLANE_DEFAULT_LISTENER_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil && port > 0 && port < 65536 {
			config.XDS.DefaultListenerPort = port
		}
	}

	if val := os.Getenv("FLOWPLANE_DEFAULT_NODE_ID"); val != "" {
		config.XDS.DefaultNodeID = val
	}

	if val := os.Getenv("FLOWPLANE_XDS_ADS"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			config.XDS.SnapshotCache.ADS = enabled
		}
	}

	if val := os.Getenv("FLOWPLANE_GRPC_KEEPALIVE_TIME"); val != "" {
		config.XDS.GRPC.KeepaliveTime = val
	}

	if val := os.Getenv("FLOWPLANE_GRPC_KEEPALIVE_TIMEOUT"); val != "" {
		config.XDS.GRPC.KeepaliveTimeout = val
	}

	if val := os.Getenv("FLOWPLANE_GRPC_KEEPALIVE_MIN_TIME"); val != "" {
		config.XDS.GRPC.KeepaliveMinTime = val
	}

	if val := os.Getenv("FLOWPLANE_GRPC_KEEPALIVE_PERMIT_WITHOUT_STREAM"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			config.XDS.GRPC.KeepalivePermitWithoutStream = enabled
		}
	}

	// Database configuration overrides
	if val := os.Getenv("FLOWPLANE_DATABASE_DSN"); val != "" {
		config.Database.DSN = val
	}

	if val := os.Getenv("FLOWPLANE_DATABASE_MAX_CONNECTIONS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			config.Database.MaxConnections = n
		}
	}

	if val := os.Getenv("FLOWPLANE_DATABASE_CONNECT_TIMEOUT"); val != "" {
		config.Database.ConnectTimeout = val
	}

	// Auth configuration overrides
	if val := os.Getenv("FLOWPLANE_AUTH_BOOTSTRAP_TOKEN"); val != "" {
		config.Auth.BootstrapToken = val
	}

	if val := os.Getenv("FLOWPLANE_AUTH_DEFAULT_SCOPES"); val != "" {
		config.Auth.DefaultScopes = strings.Split(val, ",")
	}

	// Logging configuration overrides
	if val := os.Getenv("FLOWPLANE_LOG_LEVEL"); val != "" {
		config.Logging.Level = val
	}

	if val := os.Getenv("FLOWPLANE_LOG_FORMAT"); val != "" {
		config.Logging.Format = val
	}

	if val := os.Getenv("FLOWPLANE_LOG_OUTPUT"); val != "" {
		config.Logging.Output = val
	}

	if val := os.Getenv("FLOWPLANE_LOG_STRUCTURED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			config.Logging.Structured = enabled
		}
	}

	if val := os.Getenv("FLOWPLANE_LOG_ENABLE_CALLER"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			config.Logging.EnableCaller = enabled
		}
	}

	if val := os.Getenv("FLOWPLANE_LOG_ENABLE_STACKTRACE"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			config.Logging.EnableStacktrace = enabled
		}
	}

	// Feature flags overrides
	if val := os.Getenv("FLOWPLANE_FEATURE_OPENAPI_VALIDATION"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			config.Features.OpenAPIValidation = enabled
		}
	}

	if val := os.Getenv("FLOWPLANE_FEATURE_METRICS"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			config.Features.Metrics = enabled
		}
	}

	if val := os.Getenv("FLOWPLANE_FEATURE_TRACING"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			config.Features.Tracing = enabled
		}
	}
}
