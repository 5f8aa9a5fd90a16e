// Command growthbot runs the social media promotion storefront.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"telegram-storefront-bot/internal/app"
	"telegram-storefront-bot/internal/growthbot"
	"telegram-storefront-bot/internal/nav"
	"telegram-storefront-bot/internal/telegram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Создаем и запускаем бота
	root := app.NewRootCommand(app.Storefront{
		Name:   "growthbot",
		Short:  "Telegram bot selling followers, likes and views",
		Prices: growthbot.DefaultPrices,
		Graph:  graph,
	})
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func graph(rt *app.Runtime, bot *telegram.Bot) *nav.Graph {
	deps := growthbot.Deps{
		Orders:  rt.Orders,
		Catalog: rt.Catalog,
		Reviews: rt.Reviews,
		Prefs:   rt.Prefs,
		Logger:  rt.Logger.WithField("bot", "growth"),
	}
	if rt.Archive != nil {
		deps.Proofs = rt.Archive
		deps.Files = bot
	}
	return growthbot.New(deps, growthbot.Options{SupportContact: rt.Config.SupportContact})
}
