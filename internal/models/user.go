package models

import "time"

const ProviderLocal = "local"

type User struct {
	ID           string     `json:"userId"`
	Name         string     `json:"name,omitempty"`
	Slug         string     `json:"slug,omitempty"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Provider     string     `json:"provider,omitempty"`
	ProviderID   string     `json:"-"`
	Photo        string     `json:"photo,omitempty"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
}
