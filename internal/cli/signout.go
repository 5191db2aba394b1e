package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/marks/internal/app"
	"github.com/MrSnakeDoc/marks/internal/config"
	"github.com/MrSnakeDoc/marks/internal/logger"
	redisstore "github.com/MrSnakeDoc/marks/internal/store/redis"
)

var signoutCmd = &cobra.Command{
	Use:   "signout <email|user-id>",
	Short: "End every session of a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
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

		user, err := stores.Rows.FindUser(ctx, args[0])
		if err != nil {
			return fmt.Errorf("unknown user %q: %w", args[0], err)
		}
		n, err := redisstore.NewStore(stores.Redis).DeleteUserSessions(ctx, user.ID)
		if err != nil {
			return err
		}
		cmd.Printf("✅ %s: %d session(s) ended\n", user.Email, n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(signoutCmd)
}
