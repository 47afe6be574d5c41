package models

import (
	"strings"
	"time"
	"unicode"
)

const MaxProductQuantity = 1000000

type Product struct {
	ID        string     `json:"_id" db:"product_id"`
	Name      string     `json:"name" db:"name" binding:"required"`
	Size      string     `json:"size" db:"size" binding:"required"`
	Price     float64    `json:"price" db:"price" binding:"gte=0"`
	Slug      string     `json:"slug" db:"slug"`
	Quantity  int        `json:"quantity" db:"quantity" binding:"gte=0,lte=1000000"`
	ImageURL  string     `json:"imageUrl,omitempty" db:"image_url"`
	CreatedAt *time.Time `json:"createdAt,omitempty" db:"created_at"`
}

// Slugify produit un slug minuscule séparé par des tirets
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
