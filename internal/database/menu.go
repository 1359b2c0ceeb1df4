package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createMenuCategory = `
INSERT INTO menu_categories (name)
VALUES ($1)
RETURNING id, name, created_at
`

func (q *Queries) CreateMenuCategory(ctx context.Context, name string) (MenuCategory, error) {
	row := q.db.QueryRow(ctx, createMenuCategory, name)
	var c MenuCategory
	err := row.Scan(&c.ID, &c.Name, &c.CreatedAt)
	return c, err
}

const listMenuCategories = `
SELECT id, name, created_at
FROM menu_categories
ORDER BY name
`

func (q *Queries) ListMenuCategories(ctx context.Context) ([]MenuCategory, error) {
	rows, err := q.db.Query(ctx, listMenuCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MenuCategory
	for rows.Next() {
		var c MenuCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const updateMenuCategory = `
UPDATE menu_categories
SET name = $2
WHERE id = $1
RETURNING id, name, created_at
`

type UpdateMenuCategoryParams struct {
	ID   int64
	Name string
}

func (q *Queries) UpdateMenuCategory(ctx context.Context, arg UpdateMenuCategoryParams) (MenuCategory, error) {
	row := q.db.QueryRow(ctx, updateMenuCategory, arg.ID, arg.Name)
	var c MenuCategory
	err := row.Scan(&c.ID, &c.Name, &c.CreatedAt)
	return c, err
}

const deleteMenuCategory = `
DELETE FROM menu_categories
WHERE id = $1
RETURNING id
`

func (q *Queries) DeleteMenuCategory(ctx context.Context, id int64) (int64, error) {
	row := q.db.QueryRow(ctx, deleteMenuCategory, id)
	var deleted int64
	err := row.Scan(&deleted)
	return deleted, err
}

const createMenuItem = `
INSERT INTO menu_items (category_id, name, description, image_url, price, is_available)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, category_id, name, description, image_url, price, is_available, created_at, updated_at
`

type CreateMenuItemParams struct {
	CategoryID  pgtype.Int8
	Name        string
	Description pgtype.Text
	ImageURL    pgtype.Text
	Price       pgtype.Numeric
	IsAvailable bool
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, createMenuItem,
		arg.CategoryID,
		arg.Name,
		arg.Description,
		arg.ImageURL,
		arg.Price,
		arg.IsAvailable,
	)
	return scanMenuItem(row)
}

const getMenuItem = `
SELECT id, category_id, name, description, image_url, price, is_available, created_at, updated_at
FROM menu_items
WHERE id = $1
`

func (q *Queries) GetMenuItem(ctx context.Context, id int64) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, getMenuItem, id))
}

const listMenuItems = `
SELECT id, category_id, name, description, image_url, price, is_available, created_at, updated_at
FROM menu_items
ORDER BY name
`

func (q *Queries) ListMenuItems(ctx context.Context) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, listMenuItems)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MenuItem
	for rows.Next() {
		var m MenuItem
		if err := rows.Scan(&m.ID, &m.CategoryID, &m.Name, &m.Description, &m.ImageURL, &m.Price, &m.IsAvailable, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

const updateMenuItem = `
UPDATE menu_items
SET category_id = $2,
    name = $3,
    description = $4,
    image_url = $5,
    price = $6,
    is_available = $7,
    updated_at = now()
WHERE id = $1
RETURNING id, category_id, name, description, image_url, price, is_available, created_at, updated_at
`

type UpdateMenuItemParams struct {
	ID          int64
	CategoryID  pgtype.Int8
	Name        string
	Description pgtype.Text
	ImageURL    pgtype.Text
	Price       pgtype.Numeric
	IsAvailable bool
}

func (q *Queries) UpdateMenuItem(ctx context.Context, arg UpdateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, updateMenuItem,
		arg.ID,
		arg.CategoryID,
		arg.Name,
		arg.Description,
		arg.ImageURL,
		arg.Price,
		arg.IsAvailable,
	)
	return scanMenuItem(row)
}

// DisableMenuItem retires an item from the menu. Items referenced by historical
// order lines cannot be hard-deleted (FK RESTRICT), so delete is a flip of
// is_available.
const disableMenuItem = `
UPDATE menu_items
SET is_available = FALSE, updated_at = now()
WHERE id = $1
RETURNING id, category_id, name, description, image_url, price, is_available, created_at, updated_at
`

func (q *Queries) DisableMenuItem(ctx context.Context, id int64) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, disableMenuItem, id))
}

// GetMenuItemForOrder fetches the authoritative price and availability used
// during order creation. Runs inside the order transaction.
const getMenuItemForOrder = `
SELECT id, name, price, is_available
FROM menu_items
WHERE id = $1
`

type GetMenuItemForOrderRow struct {
	ID          int64
	Name        string
	Price       pgtype.Numeric
	IsAvailable bool
}

func (q *Queries) GetMenuItemForOrder(ctx context.Context, id int64) (GetMenuItemForOrderRow, error) {
	row := q.db.QueryRow(ctx, getMenuItemForOrder, id)
	var r GetMenuItemForOrderRow
	err := row.Scan(&r.ID, &r.Name, &r.Price, &r.IsAvailable)
	return r, err
}

func scanMenuItem(row interface{ Scan(dest ...any) error }) (MenuItem, error) {
	var m MenuItem
	err := row.Scan(&m.ID, &m.CategoryID, &m.Name, &m.Description, &m.ImageURL, &m.Price, &m.IsAvailable, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}
