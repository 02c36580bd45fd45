package seed

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	appServices "github.com/yigit/roster/internal/app/services"
	"github.com/yigit/roster/internal/config"
	"github.com/yigit/roster/internal/pkg/apperrors"
)

// CreateDefaultData creates the configured seed account if it does not exist.
// Nothing happens when no seed username is configured.
func CreateDefaultData(ctx context.Context, authService *appServices.AuthService, cfg *config.Config, lgr zerolog.Logger) error {
	username := cfg.Seed.Username
	if username == "" {
		lgr.Debug().Msg("No seed account configured")
		return nil
	}

	lgr.Info().Str("username", username).Msg("Checking/Creating seed account...")
	user, err := authService.Register(ctx, username, cfg.Seed.Password, cfg.Seed.Password)
	switch {
	case errors.Is(err, apperrors.ErrUsernameTaken):
		lgr.Info().Str("username", username).Msg("Seed account already exists")
		return nil
	case err != nil:
		lgr.Error().Err(err).Str("username", username).Msg("Error creating seed account")
		return err
	}

	lgr.Info().Int64("userID", user.ID).Str("username", username).Msg("Seed account created")
	return nil
}
