package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/oliveedge/oliveedge/config"
	"github.com/oliveedge/oliveedge/database/seeders"
	"github.com/oliveedge/oliveedge/pkg/database"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load sample users and products",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := config.Load(); err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		if err := database.Connect(ctx); err != nil {
			return err
		}
		defer database.Disconnect(context.Background()) //nolint:errcheck

		if err := database.EnsureIndexes(ctx); err != nil {
			return err
		}
		if err := seeders.Run(ctx); err != nil {
			return err
		}
		fmt.Println("database seeded")
		return nil
	},
}
