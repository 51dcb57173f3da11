package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/oliveedge/oliveedge/app/routes"
	"github.com/oliveedge/oliveedge/app/services"
	"github.com/oliveedge/oliveedge/config"
	"github.com/oliveedge/oliveedge/internal/server"
	"github.com/oliveedge/oliveedge/pkg/database"
	"github.com/oliveedge/oliveedge/pkg/router"
	"github.com/oliveedge/oliveedge/pkg/workerpool"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(_ *cobra.Command, _ []string) error {
		return server.Start()
	},
}

var routeListCmd = &cobra.Command{
	Use:   "route:list",
	Short: "Print every registered route",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := config.Load(); err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		if err := database.Connect(ctx); err != nil {
			return err
		}
		defer database.Disconnect(context.Background()) //nolint:errcheck

		pool := workerpool.New(1)
		defer pool.Shutdown()

		r := router.New()
		routes.RegisterAPI(r, services.NewOrderService(), pool)

		for _, info := range r.Routes() {
			fmt.Printf("%-6s %-50s %s\n", info.Method, info.Path, info.Name)
		}
		return nil
	},
}
