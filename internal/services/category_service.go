package services

import (
	"context"
	"fmt"
	"log/slog"

	"budgettracker/internal/amqp"
	"budgettracker/internal/core"
	"budgettracker/internal/repository"
)

type CategoryInput struct {
	Name        string
	Description string
	ParentID    *int64
	Version     int64
}

var ErrCategoryHasChildren = fmt.Errorf("%w: category still has subcategories", core.ErrValidation)

// CategoryService manages the per-user category tree. Categories are
// readable by everyone; only the owner may change them.
type CategoryService struct {
	base
}

func NewCategoryService(store repository.Store, events EventPublisher) *CategoryService {
	return &CategoryService{base: newBase(store, events)}
}

func (s *CategoryService) List(ctx context.Context) ([]core.CategoryView, error) {
	cats, err := s.store.Categories().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categoryViews(cats), nil
}

func (s *CategoryService) ListByOwner(ctx context.Context, owner string) ([]core.CategoryView, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	cats, err := s.store.Categories().ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categoryViews(cats), nil
}

// Tree returns the owner's categories as a forest sorted by name.
func (s *CategoryService) Tree(ctx context.Context, owner string) ([]core.CategoryView, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	cats, err := s.store.Categories().ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	roots := core.BuildCategoryTree(cats)
	out := make([]core.CategoryView, 0, len(roots))
	for _, n := range roots {
		out = append(out, core.NewCategoryTreeView(n))
	}
	return out, nil
}

func (s *CategoryService) Get(ctx context.Context, id int64) (core.CategoryView, error) {
	c, err := s.store.Categories().Get(ctx, id)
	if err != nil {
		return core.CategoryView{}, err
	}
	v := core.NewCategoryView(c)
	if c.ParentID != nil {
		if p, err := s.store.Categories().Get(ctx, *c.ParentID); err == nil {
			v.ParentName = p.Name
		}
	}
	return v, nil
}

func (s *CategoryService) Exists(ctx context.Context, id int64) (bool, error) {
	return s.store.Categories().Exists(ctx, id)
}

func (s *CategoryService) Create(ctx context.Context, owner string, in CategoryInput) (core.CategoryView, error) {
	if err := requireOwner(owner); err != nil {
		return core.CategoryView{}, err
	}
	c := core.Category{UserID: owner, Name: in.Name, Description: in.Description, ParentID: in.ParentID}
	if err := c.Validate(); err != nil {
		return core.CategoryView{}, err
	}

	err := s.store.RunInTx(ctx, func(r repository.Repos) error {
		if err := s.checkParent(ctx, r, owner, 0, c.ParentID); err != nil {
			return err
		}
		if _, err := r.Users().Ensure(ctx, owner); err != nil {
			return fmt.Errorf("ensure user: %w", err)
		}
		var err error
		c, err = r.Categories().Add(ctx, c)
		return err
	})
	if err != nil {
		return core.CategoryView{}, fmt.Errorf("create category: %w", err)
	}
	return core.NewCategoryView(c), nil
}

func (s *CategoryService) Update(ctx context.Context, owner string, id int64, in CategoryInput) (core.CategoryView, error) {
	var c core.Category
	err := s.store.RunInTx(ctx, func(r repository.Repos) error {
		var err error
		if c, err = s.load(ctx, r, owner, id); err != nil {
			return err
		}
		if err := checkVersion("category", id, c.Version, in.Version); err != nil {
			return err
		}
		c.Name, c.Description, c.ParentID = in.Name, in.Description, in.ParentID
		if err := c.Validate(); err != nil {
			return err
		}
		if err := s.checkParent(ctx, r, owner, id, c.ParentID); err != nil {
			return err
		}
		c, err = r.Categories().Update(ctx, c)
		return err
	})
	if err != nil {
		return core.CategoryView{}, fmt.Errorf("update category: %w", err)
	}
	return core.NewCategoryView(c), nil
}

// Delete unlinks the category from its transactions and removes it.
// Categories with subcategories are refused.
func (s *CategoryService) Delete(ctx context.Context, owner string, id int64) error {
	var cleared []int64
	err := s.store.RunInTx(ctx, func(r repository.Repos) error {
		if _, err := s.load(ctx, r, owner, id); err != nil {
			return err
		}
		children, err := r.Categories().ListByParent(ctx, id)
		if err != nil {
			return fmt.Errorf("list subcategories: %w", err)
		}
		if len(children) > 0 {
			return ErrCategoryHasChildren
		}
		if cleared, err = r.Transactions().ClearCategory(ctx, id); err != nil {
			return fmt.Errorf("unlink transactions: %w", err)
		}
		return r.Categories().Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}

	slog.InfoContext(ctx, "Category deleted", "category_id", id, "user_id", owner, "transactions_unlinked", len(cleared))
	s.publish(ctx, amqp.CategoryDeleted, id, owner, 0, cleared)
	return nil
}

// checkParent requires the parent to belong to owner and rejects cycles.
func (s *CategoryService) checkParent(ctx context.Context, r repository.Repos, owner string, id int64, parentID *int64) error {
	if parentID == nil {
		return nil
	}
	if _, err := s.load(ctx, r, owner, *parentID); err != nil {
		return err
	}
	cats, err := r.Categories().ListByOwner(ctx, owner)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	parents := make(map[int64]*int64, len(cats))
	for _, c := range cats {
		parents[c.ID] = c.ParentID
	}
	return core.CheckCategoryParent(id, parentID, parents)
}

func (s *CategoryService) load(ctx context.Context, r repository.Repos, owner string, id int64) (core.Category, error) {
	if err := requireOwner(owner); err != nil {
		return core.Category{}, err
	}
	c, err := r.Categories().Get(ctx, id)
	if err != nil {
		return core.Category{}, err
	}
	if err := owned("category", id, c.UserID, owner); err != nil {
		return core.Category{}, err
	}
	return c, nil
}

func categoryViews(cats []core.Category) []core.CategoryView {
	names := make(map[int64]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	out := make([]core.CategoryView, 0, len(cats))
	for _, c := range cats {
		v := core.NewCategoryView(c)
		if c.ParentID != nil {
			v.ParentName = names[*c.ParentID]
		}
		out = append(out, v)
	}
	return out
}
