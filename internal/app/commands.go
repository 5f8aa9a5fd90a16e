package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"telegram-storefront-bot/internal/catalog"
	"telegram-storefront-bot/internal/config"
	"telegram-storefront-bot/internal/nav"
	"telegram-storefront-bot/internal/orders"
	"telegram-storefront-bot/internal/storefront"
	"telegram-storefront-bot/internal/telegram"
)

// NewRootCommand is the command line shared by every storefront binary.
func NewRootCommand(sf Storefront) *cobra.Command {
	cmd := &cobra.Command{
		Use:          sf.Name,
		Short:        sf.Short,
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newServeCmd(sf),
		newMigrateCmd(sf),
		newPricesCmd(sf),
		newOrdersCmd(),
	)
	return cmd
}

// withRuntime loads the configuration, opens the database and runs fn.
func withRuntime(ctx context.Context, fn func(rt *Runtime) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := config.NewLogger(cfg)
	rt, err := Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.WithField("error", err.Error()).Warn("shutdown")
		}
	}()
	return fn(rt)
}

func newServeCmd(sf Storefront) *cobra.Command {
	var queueWorker bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bot (long polling, or a webhook when WEBHOOK_URL is set)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(rt *Runtime) error {
				return serve(cmd.Context(), sf, rt, queueWorker)
			})
		},
	}
	cmd.Flags().BoolVar(&queueWorker, "queue-worker", false, "Also run the notification worker when NOTIFY_MODE=queue")
	return cmd
}

func serve(ctx context.Context, sf Storefront, rt *Runtime, queueWorker bool) error {
	cfg, logger := rt.Config, rt.Logger
	if sf.Prices != nil {
		if err := rt.Seed(ctx, sf.Prices()); err != nil {
			return err
		}
	}
	if err := rt.Connect(ctx); err != nil {
		return err
	}

	// Подключаемся к Telegram
	api, err := telegram.NewAPI(cfg.BotToken)
	if err != nil {
		return err
	}
	bot := telegram.NewBot(api, logger.WithField("component", "telegram"))
	notifier := rt.Notifier(bot)
	if queueWorker && cfg.NotifyMode == "queue" {
		if err := rt.StartWorker(bot); err != nil {
			return err
		}
	}

	// Сессии пользователей
	store, locker, err := rt.Sessions(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	engine, err := nav.NewEngine(sf.Graph(rt, bot), nav.Deps{
		Store:    store,
		Locker:   locker,
		Notifier: notifier,
		Logger:   logger.WithField("component", "nav"),
		IsAdmin:  cfg.IsAdmin,
		Lang:     rt.Prefs.Lang,
	})
	if err != nil {
		return err
	}
	bot.SetHandler(engine)

	logger.WithFields(logrus.Fields{
		"bot":     bot.UserName(),
		"admins":  len(cfg.AdminIDs),
		"db":      cfg.DBDriver,
		"session": cfg.SessionStore,
		"notify":  cfg.NotifyMode,
		"archive": rt.Archive != nil,
	}).Info("starting " + sf.Name)

	err = bot.Run(ctx, telegram.Options{WebhookURL: cfg.WebhookURL, Addr: cfg.WebhookAddr})
	engine.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info(sf.Name + " stopped")
	return nil
}

func newMigrateCmd(sf Storefront) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade tables and seed the default prices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(rt *Runtime) error {
				if sf.Prices != nil {
					if err := rt.Seed(cmd.Context(), sf.Prices()); err != nil {
						return err
					}
				}
				fmt.Fprintln(cmd.OutOrStdout(), "database is up to date")
				return nil
			})
		},
	}
}

func newPricesCmd(sf Storefront) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prices",
		Short: "Inspect or edit the price catalog",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Print every price",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRuntime(cmd.Context(), func(rt *Runtime) error {
					list, err := rt.Catalog.List(cmd.Context())
					if err != nil {
						return err
					}
					return printPrices(cmd.OutOrStdout(), list)
				})
			},
		},
		&cobra.Command{
			Use:   "set PLATFORM SERVICE QTY PRICE",
			Short: "Set one price",
			Args:  cobra.ExactArgs(4),
			RunE: func(cmd *cobra.Command, args []string) error {
				qty, err := strconv.Atoi(args[2])
				if err != nil {
					return fmt.Errorf("quantity %q: %w", args[2], catalog.ErrInvalidPrice)
				}
				amount, err := strconv.ParseInt(args[3], 10, 64)
				if err != nil {
					return fmt.Errorf("price %q: %w", args[3], catalog.ErrInvalidPrice)
				}
				key := catalog.Key{Platform: args[0], Service: args[1], Quantity: qty}
				return withRuntime(cmd.Context(), func(rt *Runtime) error {
					if err := rt.Catalog.Set(cmd.Context(), key, amount); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, catalog.FormatAmount(amount))
					return nil
				})
			},
		},
	)
	return cmd
}

func printPrices(w io.Writer, list []catalog.Price) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PLATFORM\tSERVICE\tQTY\tPRICE")
	for _, p := range list {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", p.Platform, p.Service, p.Quantity, catalog.FormatAmount(p.Amount))
	}
	return tw.Flush()
}

func newOrdersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Inspect or close orders",
	}

	var limit int
	pending := &cobra.Command{
		Use:   "pending",
		Short: "List pending orders, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(rt *Runtime) error {
				list, err := rt.Orders.PendingOrders(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(list) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no pending orders")
					return nil
				}
				for i := range list {
					fmt.Fprintln(cmd.OutOrStdout(), storefront.Summary(&list[i]))
				}
				return nil
			})
		},
	}
	pending.Flags().IntVar(&limit, "limit", storefront.PendingLimit, "Maximum number of orders")

	status := &cobra.Command{
		Use:   "status ID done|cancel",
		Short: "Close a pending order",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("order id %q: %w", args[0], orders.ErrNotFound)
			}
			st, err := orders.ParseStatus(args[1])
			if err != nil {
				return err
			}
			return withRuntime(cmd.Context(), func(rt *Runtime) error {
				order, err := rt.Orders.SetStatus(cmd.Context(), id, st)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "order #%d: %s\n", order.ID, order.Status)
				return nil
			})
		},
	}

	cmd.AddCommand(pending, status)
	return cmd
}
