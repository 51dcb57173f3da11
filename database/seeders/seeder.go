// Package seeders loads sample data for local development.
package seeders

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/oliveedge/oliveedge/app/models"
	"github.com/oliveedge/oliveedge/app/repositories"
	"github.com/oliveedge/oliveedge/pkg/auth"
	"github.com/oliveedge/oliveedge/pkg/database"
	"github.com/oliveedge/oliveedge/pkg/logger"
)

// Run seeds users and products. Idempotent: it skips collections that
// already contain data.
func Run(ctx context.Context) error {
	if err := seedUsers(ctx); err != nil {
		return fmt.Errorf("seed users: %w", err)
	}
	if err := seedProducts(ctx); err != nil {
		return fmt.Errorf("seed products: %w", err)
	}
	return nil
}

func seedUsers(ctx context.Context) error {
	count, err := database.Collection("users").CountDocuments(ctx, bson.M{})
	if err != nil {
		return err
	}
	if count > 0 {
		logger.Info("seed: users already present, skipping")
		return nil
	}

	users := repositories.NewUserRepository()
	for _, u := range []struct {
		name, email, password, role string
	}{
		{"Admin", "admin@oliveedge.shop", "admin12345", "admin"},
		{"Asha Verma", "asha@example.com", "password123", "user"},
		{"Rohan Mehta", "rohan@example.com", "password123", "user"},
	} {
		hash, err := auth.HashPassword(u.password)
		if err != nil {
			return err
		}
		if err := users.Create(ctx, &models.User{
			Name: u.name, Email: u.email, Password: hash, Role: u.role,
		}); err != nil {
			return err
		}
	}
	logger.Info("seed: users created", "count", 3)
	return nil
}

func seedProducts(ctx context.Context) error {
	count, err := database.Collection("products").CountDocuments(ctx, bson.M{})
	if err != nil {
		return err
	}
	if count > 0 {
		logger.Info("seed: products already present, skipping")
		return nil
	}

	products := repositories.NewProductRepository()
	samples := []models.Product{
		{Name: "Linen Overshirt", Slug: "linen-overshirt", Category: "shirts", Brand: "Olive Edge",
			Description: "Relaxed-fit overshirt in washed linen.", Price: 2199, CountInStock: 24},
		{Name: "Classic Oxford Shirt", Slug: "classic-oxford-shirt", Category: "shirts", Brand: "Olive Edge",
			Description: "Button-down oxford in brushed cotton.", Price: 1499, CountInStock: 40},
		{Name: "Slim Chinos", Slug: "slim-chinos", Category: "trousers", Brand: "Olive Edge",
			Description: "Stretch-twill chinos with a tapered leg.", Price: 1799, CountInStock: 32},
		{Name: "Everyday Tee", Slug: "everyday-tee", Category: "tshirts", Brand: "Olive Edge",
			Description: "Heavyweight crew-neck tee.", Price: 599, CountInStock: 120},
		{Name: "Merino Crew Sweater", Slug: "merino-crew-sweater", Category: "knitwear", Brand: "Olive Edge",
			Description: "Fine-gauge merino crew neck.", Price: 2899, CountInStock: 14},
		{Name: "Canvas Tote", Slug: "canvas-tote", Category: "accessories", Brand: "Olive Edge",
			Description: "Twelve-ounce canvas tote with internal pocket.", Price: 899, CountInStock: 60},
	}
	for i := range samples {
		if err := products.Insert(ctx, &samples[i]); err != nil {
			return err
		}
	}
	logger.Info("seed: products created", "count", len(samples))
	return nil
}
