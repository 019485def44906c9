package services

import (
	"context"
	"errors"
	"testing"

	"budgettracker/internal/core"
)

func TestCategoryService_TreeAndCycles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	food, err := f.categories.Create(ctx, alice, CategoryInput{Name: "Food"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	groceries, err := f.categories.Create(ctx, alice, CategoryInput{Name: "Groceries", ParentID: &food.ID})
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	fruit, err := f.categories.Create(ctx, alice, CategoryInput{Name: "Fruit", ParentID: &groceries.ID})
	if err != nil {
		t.Fatalf("create grandchild: %v", err)
	}

	_, err = f.categories.Update(ctx, alice, food.ID, CategoryInput{Name: "Food", ParentID: &fruit.ID})
	if !errors.Is(err, core.ErrCategoryCycle) {
		t.Fatalf("cycle: got %v", err)
	}
	_, err = f.categories.Update(ctx, alice, food.ID, CategoryInput{Name: "Food", ParentID: &food.ID})
	if !errors.Is(err, core.ErrCategoryCycle) {
		t.Fatalf("self parent: got %v", err)
	}

	tree, err := f.categories.Tree(ctx, alice)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	if len(tree) != 1 || tree[0].ID != food.ID {
		t.Fatalf("roots = %+v", tree)
	}
	if len(tree[0].SubCategories) != 1 || len(tree[0].SubCategories[0].SubCategories) != 1 {
		t.Fatalf("unexpected nesting %+v", tree[0])
	}

	v, err := f.categories.Get(ctx, groceries.ID)
	if err != nil || v.ParentName != "Food" {
		t.Fatalf("Get = %+v, %v", v, err)
	}
}

func TestCategoryService_ParentMustBeOwned(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	bobs, err := f.categories.Create(ctx, bob, CategoryInput{Name: "Bob's"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.categories.Create(ctx, alice, CategoryInput{Name: "Mine", ParentID: &bobs.ID}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign parent: got %v", err)
	}
	if _, err := f.categories.Update(ctx, alice, bobs.ID, CategoryInput{Name: "Stolen"}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("cross-user update: got %v", err)
	}
}

func TestCategoryService_Delete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	acc := f.account(t, alice, "Checking", "0")
	parent, _ := f.categories.Create(ctx, alice, CategoryInput{Name: "Home"})
	child, _ := f.categories.Create(ctx, alice, CategoryInput{Name: "Rent", ParentID: &parent.ID})
	v := f.tx(t, alice, TransactionInput{AccountID: acc.ID, CategoryID: &child.ID, Amount: d("500"), Type: core.Expense})

	if err := f.categories.Delete(ctx, alice, parent.ID); !errors.Is(err, ErrCategoryHasChildren) {
		t.Fatalf("delete parent: got %v", err)
	}
	if err := f.categories.Delete(ctx, alice, child.ID); err != nil {
		t.Fatalf("delete child: %v", err)
	}
	stored, _ := f.store.Transactions().Get(ctx, v.ID)
	if stored.CategoryID != nil {
		t.Fatal("category link kept")
	}
	if err := f.categories.Delete(ctx, alice, child.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete: got %v", err)
	}
	if err := f.categories.Delete(ctx, alice, parent.ID); err != nil {
		t.Fatalf("delete emptied parent: %v", err)
	}
}
