package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// AuthServiceConfig holds the auth service settings read from the environment.
type AuthServiceConfig struct {
	ServiceName    string `env:"SERVICE_NAME"       envDefault:"auth-service"`
	HTTPAddr       string `env:"HTTP_ADDR"          envDefault:":8080"`
	GRPCHealthAddr string `env:"GRPC_HEALTH_ADDR"   envDefault:":9090"`
	AdvertiseHost  string `env:"ADVERTISE_HOST"     envDefault:"127.0.0.1"`
	ConsulAddr     string `env:"CONSUL_ADDR"`

	// AppBaseURL prefixes the link placed in verification emails.
	AppBaseURL       string `env:"APP_BASE_URL"       envDefault:"http://localhost:8080"`
	LoginRedirectURL string `env:"LOGIN_REDIRECT_URL" envDefault:"/"`
	CookieSecure     bool   `env:"COOKIE_SECURE"`

	// VerificationTokenTTL bounds how long a verification link stays usable.
	// Zero keeps tokens valid until they are consumed.
	VerificationTokenTTL time.Duration `env:"VERIFICATION_TOKEN_TTL" envDefault:"0s"`

	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY"`

	Mongo MongoConfig `envPrefix:"MONGO_"`
	Token TokenConfig `envPrefix:"TOKEN_"`
}

// MongoConfig describes the credential store connection.
type MongoConfig struct {
	URI      string `env:"URI"      envDefault:"mongodb://localhost:27017"`
	Database string `env:"DATABASE" envDefault:"auth"`
}

// TokenConfig describes the session credential issued at login.
type TokenConfig struct {
	SessionSecret    string        `env:"SESSION_SECRET,required"`
	SessionExpiresIn time.Duration `env:"SESSION_EXPIRES_IN"      envDefault:"24h"`
	Issuer           string        `env:"ISSUER"                  envDefault:"auth-service"`
	Audience         string        `env:"AUDIENCE"                envDefault:"web"`
}

// Load parses the configuration from the process environment.
func Load() (*AuthServiceConfig, error) {
	return parse(env.Options{})
}

func parse(opts env.Options) (*AuthServiceConfig, error) {
	cfg, err := env.ParseAsWithOptions[AuthServiceConfig](opts)
	if err != nil {
		return nil, fmt.Errorf("parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *AuthServiceConfig) validate() error {
	if c.AppBaseURL == "" {
		return fmt.Errorf("APP_BASE_URL must not be empty")
	}
	if c.VerificationTokenTTL < 0 {
		return fmt.Errorf("VERIFICATION_TOKEN_TTL must not be negative")
	}
	if c.Token.SessionExpiresIn <= 0 {
		return fmt.Errorf("TOKEN_SESSION_EXPIRES_IN must be positive")
	}

	return nil
}
