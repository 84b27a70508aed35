// Package bootstrap builds the external clients shared by the server and the
// cronjob runner from configuration.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"sponsortree-backend/internal/config"
	"sponsortree-backend/internal/logger"
	"sponsortree-backend/internal/notify"
	"sponsortree-backend/internal/repository"
	"sponsortree-backend/internal/repository/postgres"
	"sponsortree-backend/internal/repository/rest"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/lib/pq"
)

// OpenStore connects the configured record store backend. The returned func
// releases it.
func OpenStore(ctx context.Context, cfg *config.Config, migrate bool) (*repository.Store, func(), error) {
	if cfg.Store.Backend == config.StoreBackendREST {
		logger.Info("Using Supabase REST store", "url", cfg.SupabaseRESTURL(), "schema", cfg.Supabase.Schema)
		client := rest.NewClient(cfg.SupabaseRESTURL(), cfg.Supabase.ServiceRoleKey, cfg.Supabase.Schema)
		return rest.NewStore(client), func() {}, nil
	}

	logger.Debug("Connecting to database...", "connection_string", fmt.Sprintf("%s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database))
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info("Database connection established")

	if migrate {
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info("Database schema applied")
	}
	return postgres.NewStore(db), func() { db.Close() }, nil
}

// NewNotifier returns a Telegram notifier. Without a usable bot token the
// notifier drops every message.
func NewNotifier(cfg config.TelegramConfig) *notify.TelegramNotifier {
	return notify.NewTelegramNotifier(newBot(cfg), cfg.AdminChatIDs, cfg.ParseMode)
}

func newBot(cfg config.TelegramConfig) notify.BotClient {
	if cfg.BotToken == "" {
		logger.Warn("Telegram bot token not configured, notifications disabled")
		return nil
	}

	var (
		bot *tgbotapi.BotAPI
		err error
	)
	if cfg.APIEndpoint != "" {
		bot, err = tgbotapi.NewBotAPIWithAPIEndpoint(cfg.BotToken, cfg.APIEndpoint)
	} else {
		bot, err = tgbotapi.NewBotAPI(cfg.BotToken)
	}
	if err != nil {
		logger.Error("Failed to initialize Telegram bot, notifications disabled", "error", err)
		return nil
	}
	logger.Info("Telegram bot authorized", "username", bot.Self.UserName)
	return bot
}
