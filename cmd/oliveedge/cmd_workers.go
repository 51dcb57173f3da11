package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oliveedge/oliveedge/app/jobs"
	"github.com/oliveedge/oliveedge/config"
	"github.com/oliveedge/oliveedge/pkg/cache"
	"github.com/oliveedge/oliveedge/pkg/database"
	"github.com/oliveedge/oliveedge/pkg/queue"
)

var workerCount int

var queueWorkCmd = &cobra.Command{
	Use:   "queue:work",
	Short: "Run queue workers without the HTTP server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := config.Load(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := database.Connect(ctx); err != nil {
			return err
		}
		defer database.Disconnect(context.Background()) //nolint:errcheck

		if err := cache.Connect(ctx); err == nil && cache.RDB != nil {
			queue.SetDriver(queue.NewRedisDriver(cache.RDB))
		}
		queue.UseCollection(database.Collection("failed_jobs"))
		jobs.Register()
		queue.StartWorkers(ctx, workerCount)

		fmt.Printf("processing jobs with %d workers, ctrl-c to stop\n", workerCount)
		<-ctx.Done()
		return nil
	},
}

func init() {
	queueWorkCmd.Flags().IntVarP(&workerCount, "workers", "w", 4, "number of concurrent workers")
}
