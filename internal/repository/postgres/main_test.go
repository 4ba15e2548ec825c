package postgres

import (
	"os"
	"testing"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/adapters/config"
)

// TestMain loads .env.test once so every repository test sees the same
// integration database settings.
func TestMain(m *testing.M) {
	_, _ = config.Load()
	os.Exit(m.Run())
}
