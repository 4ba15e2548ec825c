package testsupport

import (
	"log"
	"os"
	"sync"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/adapters/config"
)

// Integration tests load configuration from .env.test; forcing ENV=test
// here keeps a stray shell ENV from pointing them at a real database.
func init() {
	if os.Getenv("ENV") == "" {
		_ = os.Setenv("ENV", "test")
	}
}

var (
	cfgOnce sync.Once
	cfg     *config.Config
	cfgErr  error
)

// GetConfig loads the test configuration once per process. It panics on
// a broken .env.test, since no integration test can run without it.
func GetConfig() *config.Config {
	cfgOnce.Do(func() {
		cfg, cfgErr = config.Load()
		if cfgErr != nil {
			log.Printf("testsupport: config load failed: %v", cfgErr)
		}
	})
	if cfgErr != nil {
		panic(cfgErr)
	}
	return cfg
}
