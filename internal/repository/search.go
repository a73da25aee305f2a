package repository

import (
	"fmt"
	"strings"

	"github.com/flicky/go-storefront-api/internal/model"
)

const productColumns = `product_id, name, price, category_id, description, color, stock, featured, image_url`

const selectAllProducts = `SELECT ` + productColumns + ` FROM products`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// buildProductSearch composes a parameterized query for the supplied filters.
// Absent filters add no predicate at all; every value is bound, and the color
// pattern's % boundaries live in the argument, never in the SQL text.
func buildProductSearch(f model.ProductFilter) (string, []any) {
	where := []string{"TRUE"}
	args := []any{}

	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.CategoryID != nil {
		add("category_id = $%d", *f.CategoryID)
	}
	if f.MinPrice != nil {
		add("price >= $%d", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		add("price <= $%d", *f.MaxPrice)
	}
	if f.Color != nil {
		add("color LIKE $%d", "%"+likeEscaper.Replace(*f.Color)+"%")
	}

	return selectAllProducts + " WHERE " + strings.Join(where, " AND "), args
}
