package config

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			APIPort:          8080,
			XDSPort:          18000,
			ReadTimeout:      "30s",
			WriteTimeout:     "30s",
			IdleTimeout:      "60s",
			GracefulShutdown: true,
			ShutdownTimeout:  "10s",
		},
		XDS: XDSConfig{
			DefaultListenerPort: 9095,
			DefaultNodeID:       "default-node",
			SnapshotCache: SnapshotCacheConfig{
				ADS: true,
			},
			GRPC: GRPCConfig{
				KeepaliveTime:                "30s",
				KeepaliveTimeout:             "5s",
				KeepaliveMinTime:             "5s",
				KeepalivePermitWithoutStream: true,
			},
		},
		Database: DatabaseConfig{
			DSN:            "host=localhost user=flowplane password=flowplane dbname=flowplane sslmode=disable",
			MaxConnections: 10,
			ConnectTimeout: "5s",
		},
		Auth: AuthConfig{
			BootstrapToken: "",
			DefaultScopes:  []string{"clusters:read", "route-configs:read", "listeners:read"},
		},
		Logging: LoggingConfig{
			Level:            "info",
			Format:           "json",
			Output:           "stdout",
			Structured:       true,
			EnableCaller:     false,
			EnableStacktrace: false,
		},
		Features: FeaturesConfig{
			OpenAPIValidation: true,
			Metrics:           false,
			Tracing:           false,
		},
	}
}
