package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/smsbridge/smsbridge/internal/bus"
	"github.com/smsbridge/smsbridge/internal/channel/twilio"
	"github.com/smsbridge/smsbridge/internal/config"
	"github.com/smsbridge/smsbridge/internal/gateway"
	"github.com/smsbridge/smsbridge/internal/identity"
	"github.com/smsbridge/smsbridge/internal/logging"
	"github.com/smsbridge/smsbridge/internal/store"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		bind string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the bridge server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}

			if port != 0 {
				cfg.Server.Port = port
			}
			if bind != "" {
				cfg.Server.Bind = bind
			}
			if logLevel != "" {
				cfg.Logging.Level = logLevel
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			log = logging.NewConsole(cfg.Logging.ConsoleStyle, cfg.Logging.Level)

			var (
				users      identity.UserStore
				deliveries interface {
					twilio.DeliveryLog
					gateway.DeliveryLister
				}
			)
			if cfg.Store.Driver == "memory" {
				users = store.NewMemoryUserStore()
				deliveries = store.NewMemoryDeliveryLog()
				log.Info().Msg("using in-memory store")
			} else {
				path := cfg.Store.Path
				if path == "" {
					path = "smsbridge.db"
				}
				db, err := store.Open(path, log)
				if err != nil {
					return fmt.Errorf("opening database: %w", err)
				}
				defer db.Close()
				users = store.NewSQLiteUserStore(db)
				deliveries = store.NewSQLiteDeliveryLog(db)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			b := bus.New(log)
			defer b.Close()

			sender := twilio.NewRESTClient(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, "")
			outgoing := twilio.NewOutgoing(sender, cfg.Twilio, deliveries, b, log)
			outgoing.Register(b)

			resolver := identity.NewResolver(users, twilio.Platform, log)
			webhook := twilio.NewWebhook(cfg.Twilio.AuthToken, resolver, b, log)

			go consumeIncoming(ctx, b, log)

			srv := gateway.New(cfg.Server, b, log,
				gateway.WithWebhook(webhook),
				gateway.WithDeliveries(deliveries),
			)
			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override server port")
	cmd.Flags().StringVar(&bind, "bind", "", "override bind address")

	return cmd
}

// consumeIncoming drains the inbound queue. Downstream bot logic attaches
// through the event feed; the queue itself must never back up.
func consumeIncoming(ctx context.Context, b *bus.Bus, log *logging.Logger) {
	for {
		msg, ok := b.ConsumeIncoming(ctx)
		if !ok {
			return
		}
		log.Info().
			Str("platform", msg.Platform).
			Str("user", msg.User.ID).
			Int("media", len(msg.Media)).
			Msg("inbound message")
	}
}
