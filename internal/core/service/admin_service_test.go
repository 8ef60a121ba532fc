package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestAdmin_AddProductValidation(t *testing.T) {
	admin := NewAdminService(seedCatalog(), &recordingNotifier{})
	ctx := context.Background()

	cases := []ProductInput{
		{Brand: "b", Price: decimal.NewFromInt(1)},
		{Name: "n", Price: decimal.NewFromInt(1)},
		{Name: "n", Brand: "b", Price: decimal.NewFromInt(-1)},
		{Name: "n", Brand: "b", AlcoholPercent: decimal.NewNullDecimal(decimal.NewFromInt(-5))},
	}
	for i, in := range cases {
		if _, err := admin.AddProduct(ctx, in); !errors.Is(err, ErrMissingFields) {
			t.Errorf("case %d: expected ErrMissingFields, got %v", i, err)
		}
	}
}

func TestAdmin_AddProductDefaults(t *testing.T) {
	catalog := seedCatalog()
	notifier := &recordingNotifier{}
	admin := NewAdminService(catalog, notifier)

	product, err := admin.AddProduct(context.Background(), ProductInput{
		Name:     " Ginger Ale ",
		Price:    decimal.RequireFromString("2.49"),
		Brand:    "Fizz Co",
		Category: "soft-drinks",
	})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if product.ID == "" || product.ImageURL != defaultImageURL || product.Name != "Ginger Ale" {
		t.Errorf("unexpected product %+v", product)
	}
	if product.AlcoholPercent.Valid {
		t.Error("expected no alcohol percentage")
	}
	if got, ok := catalog.Product(product.ID); !ok || got.Name != "Ginger Ale" {
		t.Error("expected product in catalog")
	}
	if note, _ := notifier.last(); note.Message != "Ginger Ale has been added successfully." {
		t.Errorf("unexpected notification %q", note.Message)
	}
}

func TestAdmin_UpdateAndDelete(t *testing.T) {
	catalog := seedCatalog()
	admin := NewAdminService(catalog, &recordingNotifier{})
	ctx := context.Background()

	before := catalog.Products()

	if _, err := admin.UpdateProduct(ctx, "2", ProductInput{Name: "Single Malt", Brand: "Highland Distillery", Price: decimal.NewFromInt(99), Category: "liquor"}); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if p, _ := catalog.Product("2"); p.Name != "Single Malt" {
		t.Errorf("expected updated name, got %q", p.Name)
	}
	if before[1].Name != "Premium Whiskey" {
		t.Error("earlier snapshot must not change")
	}

	if err := admin.DeleteProduct(ctx, "2"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok := catalog.Product("2"); ok {
		t.Error("expected product 2 to be deleted")
	}
	if len(catalog.Products()) != 5 {
		t.Errorf("expected 5 products, got %d", len(catalog.Products()))
	}

	if err := admin.DeleteProduct(ctx, "2"); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}
	if _, err := admin.UpdateProduct(ctx, "2", ProductInput{Name: "x", Brand: "y"}); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}
}
