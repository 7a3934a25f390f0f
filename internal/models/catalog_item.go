package models

import "github.com/uptrace/bun"

// CatalogItem is the point-of-sale view of a menu entry: display name plus
// availability. The board only ever reads these through the catalog cache.
type CatalogItem struct {
	bun.BaseModel `bun:"table:catalog_items" json:"-"`

	ID        string `bun:"id,pk" json:"id"`
	Name      string `bun:"name" json:"name"`
	Available bool   `bun:"available" json:"available"`
}
