package seed

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/yigit/roster/internal/config"
)

func TestCreateDefaultData_NoSeedConfigured(t *testing.T) {
	cfg := &config.Config{}
	assert.NoError(t, CreateDefaultData(context.Background(), nil, cfg, zerolog.Nop()))
}
