// Command repairbot runs the iPhone repair storefront.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"telegram-storefront-bot/internal/app"
	"telegram-storefront-bot/internal/nav"
	"telegram-storefront-bot/internal/repairbot"
	"telegram-storefront-bot/internal/telegram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Создаем и запускаем бота
	root := app.NewRootCommand(app.Storefront{
		Name:   "repairbot",
		Short:  "Telegram bot for iPhone repair orders and consultations",
		Prices: repairbot.DefaultPrices,
		Graph:  graph,
	})
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func graph(rt *app.Runtime, _ *telegram.Bot) *nav.Graph {
	return repairbot.New(repairbot.Deps{
		Orders:  rt.Orders,
		Catalog: rt.Catalog,
		Reviews: rt.Reviews,
		Logger:  rt.Logger.WithField("bot", "repair"),
	}, repairbot.Options{
		TrustContact:   rt.Config.TrustContact,
		SupportContact: rt.Config.SupportContact,
		WorkHours:      rt.Config.WorkHours,
		PhoneRegion:    rt.Config.PhoneRegion,
	})
}
