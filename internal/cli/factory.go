package cli

import (
	"context"
	"errors"
	"fmt"

	"taskdeck/internal/backend/googletasks"
	"taskdeck/internal/config"
	"taskdeck/internal/service"
)

// ErrAuth marks factory errors caused by missing or unusable credentials.
var ErrAuth = errors.New("not authenticated")

// GoogleTasksFactory creates the Google Tasks backend after checking that
// the credentials written by the login command exist.
func GoogleTasksFactory(ctx context.Context, cfg *config.Config) (service.Service, error) {
	if !cfg.HasOAuthClient() {
		return nil, fmt.Errorf("%w: %s not found in %s", ErrAuth, config.OAuthClientFile, cfg.Dir)
	}
	if !cfg.HasToken() {
		return nil, fmt.Errorf("%w: not logged in (run: taskdeck login)", ErrAuth)
	}

	client, err := googletasks.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuth, err)
	}
	return client, nil
}
