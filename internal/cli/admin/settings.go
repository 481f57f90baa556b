package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/hustly-dev/distrito-tecnologico-hub/internal/config"
	"github.com/hustly-dev/distrito-tecnologico-hub/internal/domain"
	"github.com/hustly-dev/distrito-tecnologico-hub/internal/repository"
)

func SettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage retrieval settings",
		Long:  "Inspect and change the assistant's retrieval settings",
	}

	cmd.AddCommand(SettingsGetCmd())
	cmd.AddCommand(SettingsSetCmd())

	return cmd
}

func SettingsGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show current retrieval settings",
		RunE:  runSettingsGet,
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	settingsRepo := repository.NewSettingsRepository(pool)
	settings, err := settingsRepo.GetRAGSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"search_level":        settings.SearchLevel,
			"use_legacy_fallback": settings.UseLegacyFallback,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("search level:        %s\n", settings.SearchLevel)
		fmt.Printf("use legacy fallback: %t\n", settings.UseLegacyFallback)
	}

	return nil
}

func SettingsSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change retrieval settings",
		Long:  "Change the search strictness level and keyword fallback behavior",
		RunE:  runSettingsSet,
	}

	cmd.Flags().String("level", "", "Search strictness level (low, medium or high)")
	cmd.Flags().Bool("legacy-fallback", true, "Enable keyword fallback when hybrid search finds nothing")

	return cmd
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	settingsRepo := repository.NewSettingsRepository(pool)
	settings, err := settingsRepo.GetRAGSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	if level, _ := cmd.Flags().GetString("level"); level != "" {
		if !domain.IsValidSearchLevel(domain.SearchLevel(level)) {
			return fmt.Errorf("invalid search level %q (expected low, medium or high)", level)
		}
		settings.SearchLevel = domain.SearchLevel(level)
	}
	if cmd.Flags().Changed("legacy-fallback") {
		settings.UseLegacyFallback, _ = cmd.Flags().GetBool("legacy-fallback")
	}

	if err := settingsRepo.UpsertRAGSettings(ctx, settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	fmt.Printf("settings updated: level=%s legacy_fallback=%t\n", settings.SearchLevel, settings.UseLegacyFallback)
	return nil
}

func getDBPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
