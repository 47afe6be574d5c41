package models

import "time"

// CartLine est une ligne du panier ; Quantity vaut toujours au moins 1
type CartLine struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Size      string  `json:"size"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	// Available passe à false à l'affichage quand le produit a disparu du catalogue
	Available *bool `json:"available,omitempty"`
}

// Cart est le panier persistant d'un utilisateur authentifié (vide pour un panier de session)
type Cart struct {
	OwnerID   string     `json:"ownerRef,omitempty"`
	Lines     []CartLine `json:"lines"`
	Version   int64      `json:"version,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// SessionLine est la forme minimale stockée dans la session d'un visiteur anonyme
type SessionLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// LocalLine est une entrée du snapshot local du client (clé "cart")
type LocalLine struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Size      string  `json:"size"`
}

// CartEvent est la charge utile de l'événement live "cartUpdated"
type CartEvent struct {
	User string `json:"user"`
	Cart *Cart  `json:"cart"`
}

func NewCart(ownerID string) *Cart {
	return &Cart{OwnerID: ownerID, Lines: []CartLine{}}
}

// IndexOf retourne la position de la ligne du produit, -1 si absente
func (c *Cart) IndexOf(productID string) int {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// SetLine remplace la quantité d'une ligne existante ou ajoute la ligne
func (c *Cart) SetLine(line CartLine) {
	if i := c.IndexOf(line.ProductID); i >= 0 {
		c.Lines[i].Quantity = line.Quantity
		if line.Name != "" {
			c.Lines[i].Name = line.Name
			c.Lines[i].Size = line.Size
			c.Lines[i].Price = line.Price
		}
		return
	}
	c.Lines = append(c.Lines, line)
}

// AddLine additionne la quantité à une ligne existante ou ajoute la ligne
func (c *Cart) AddLine(line CartLine) {
	if i := c.IndexOf(line.ProductID); i >= 0 {
		c.Lines[i].Quantity += line.Quantity
		return
	}
	c.Lines = append(c.Lines, line)
}

// RemoveLine retire la ligne du produit ; false si elle n'existait pas
func (c *Cart) RemoveLine(productID string) bool {
	i := c.IndexOf(productID)
	if i < 0 {
		return false
	}
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	return true
}

// Clone copie le panier pour qu'un appelant ne modifie pas l'original
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	out := *c
	out.Lines = make([]CartLine, len(c.Lines))
	copy(out.Lines, c.Lines)
	return &out
}

// TotalQuantity additionne les quantités (compteur d'articles de l'en-tête)
func (c *Cart) TotalQuantity() int {
	total := 0
	for _, l := range c.Lines {
		total += l.Quantity
	}
	return total
}

// SessionLines réduit le panier à sa forme de session
func (c *Cart) SessionLines() []SessionLine {
	out := make([]SessionLine, 0, len(c.Lines))
	for _, l := range c.Lines {
		out = append(out, SessionLine{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return out
}

// CartFromSession reconstruit un panier anonyme à partir des lignes de session
func CartFromSession(lines []SessionLine) *Cart {
	cart := NewCart("")
	for _, l := range lines {
		cart.Lines = append(cart.Lines, CartLine{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return cart
}
