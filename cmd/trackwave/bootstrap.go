package main

import (
	"context"
	"errors"
	"fmt"

	"trackwave/internal/models"
	"trackwave/internal/store"
)

// bootstrap seeds the built-in roles and, when configured, an initial
// admin account.
func bootstrap(ctx context.Context, cfg Config, dataStore *store.Store) error {
	seedRoles := []struct {
		name        string
		description string
	}{
		{models.RoleUser, "default role for every account"},
		{models.RoleArtist, "may upload tracks and albums"},
		{models.RoleAdmin, "moderation and management"},
	}
	for _, r := range seedRoles {
		if _, err := dataStore.CreateRole(ctx, r.name, r.description); err != nil && !errors.Is(err, store.ErrRoleExists) {
			return fmt.Errorf("seed role %s: %w", r.name, err)
		}
	}

	if cfg.AdminEmail == "" || cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		return nil
	}
	return ensureAdmin(ctx, cfg, dataStore)
}

func ensureAdmin(ctx context.Context, cfg Config, dataStore *store.Store) error {
	user, err := dataStore.CreateUser(ctx, models.NewUser{
		Email:    cfg.AdminEmail,
		Username: cfg.AdminUsername,
		Password: cfg.AdminPassword,
	})
	if errors.Is(err, store.ErrUserExists) {
		if user, err = dataStore.UserByEmail(ctx, cfg.AdminEmail); err != nil {
			return fmt.Errorf("lookup admin user: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("bootstrap admin user: %w", err)
	}

	for _, role := range []string{models.RoleArtist, models.RoleAdmin} {
		if err := dataStore.GrantRole(ctx, user.ID, role); err != nil && !errors.Is(err, store.ErrRoleGranted) {
			return fmt.Errorf("grant %s role: %w", role, err)
		}
	}
	return nil
}
