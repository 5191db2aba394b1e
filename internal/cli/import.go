package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/marks/internal/app"
	"github.com/MrSnakeDoc/marks/internal/backend"
	"github.com/MrSnakeDoc/marks/internal/config"
	"github.com/MrSnakeDoc/marks/internal/logger"
	"github.com/MrSnakeDoc/marks/internal/sources/homepage"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a Homepage bookmarks.yaml or services.yaml",
	Long: "Adds every link of a Homepage file to one user's bookmarks.\n" +
		"Links the user already has are skipped. The user must have signed in once.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userRef, _ := cmd.Flags().GetString("user")
		format, _ := cmd.Flags().GetString("format")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		entries, err := homepage.NewLoader(args[0], homepage.Format(format)).Load()
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", args[0], err)
		}

		if dryRun {
			for _, e := range entries {
				cmd.Printf("%-20s %-30s %s\n", e.Group, e.Title, e.URL)
			}
			cmd.Printf("%d links found\n", len(entries))
			return nil
		}

		if userRef == "" {
			return fmt.Errorf("--user is required")
		}

		cfg := config.Load()
		log := logger.New(cfg.LogLevel, cfg.PrettyLog)
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		stores, err := app.OpenStores(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer stores.Close(log)

		user, err := stores.Rows.FindUser(ctx, userRef)
		if err != nil {
			return fmt.Errorf("unknown user %q: %w", userRef, err)
		}

		client := backend.NewFactory(stores.Rows, stores.Redis, cfg.FeedSubscribeTimeout, log).For(user)
		defer func() { _ = client.Close() }()

		res, err := homepage.Import(ctx, client, entries)
		if err != nil {
			return err
		}
		cmd.Printf("✅ %s: %d added, %d already present\n", user.Email, res.Added, res.Skipped)
		return nil
	},
}

func init() {
	importCmd.Flags().String("user", "", "owner of the imported links (email or user id, required unless --dry-run)")
	importCmd.Flags().String("format", "", "bookmarks or services (default: guessed from the file name)")
	importCmd.Flags().Bool("dry-run", false, "print the links without importing them")
	rootCmd.AddCommand(importCmd)
}
