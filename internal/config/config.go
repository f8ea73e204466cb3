// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/dmitrymomot/tenantplane/internal/deployment"
	"github.com/dmitrymomot/tenantplane/internal/httpapi"
	"github.com/dmitrymomot/tenantplane/pkg/db"
	"github.com/dmitrymomot/tenantplane/pkg/dnsverify"
	"github.com/dmitrymomot/tenantplane/pkg/edge"
	"github.com/dmitrymomot/tenantplane/pkg/logger"
	"github.com/dmitrymomot/tenantplane/pkg/mailer/resend"
	"github.com/dmitrymomot/tenantplane/pkg/redis"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Jobs struct {
	MaxWorkers int           `env:"JOB_MAX_WORKERS" envDefault:"20"`
	Timeout    time.Duration `env:"JOB_TIMEOUT" envDefault:"2m"`
}

type Config struct {
	Log        logger.Config
	HTTP       httpapi.Config
	DB         db.Config
	Redis      redis.Config
	Edge       edge.Config
	Resend     resend.Config
	DNS        dnsverify.Config
	Deployment deployment.Config
	Jobs       Jobs

	// Redis key of the staging name counter.
	StagingCounterKey string `env:"STAGING_COUNTER_KEY" envDefault:"tenantplane:staging:counter"`
}

// Load reads .env files (missing files are fine) and then the environment.
// Variables already set in the environment win over .env values.
func Load(files ...string) (*Config, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	cfg := &Config{Deployment: deployment.DefaultConfig()}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.Edge.APIToken == "" || c.Edge.ZoneID == "" {
		errs = append(errs, errors.New("CLOUDFLARE_API_TOKEN and CLOUDFLARE_ZONE_ID are required"))
	}
	if c.Resend.APIKey == "" {
		errs = append(errs, errors.New("RESEND_API_KEY is required"))
	}
	if c.StagingCounterKey == "" {
		errs = append(errs, errors.New("STAGING_COUNTER_KEY must not be empty"))
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
