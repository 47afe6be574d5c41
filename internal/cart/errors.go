package cart

import (
	"errors"
	"fmt"
)

// Kind classe les erreurs du panier pour la couche HTTP
type Kind int

const (
	Unknown Kind = iota
	NotFound
	InvalidArgument
	Unauthorized
	StorageFailure
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case InvalidArgument:
		return "invalid_argument"
	case Unauthorized:
		return "unauthorized"
	case StorageFailure:
		return "storage_failure"
	default:
		return "unknown"
	}
}

var (
	ErrProductNotFound = errors.New("product not found")
	ErrCartNotFound    = errors.New("cart not found")
	ErrLineNotFound    = errors.New("product not in cart")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrInvalidProduct  = errors.New("invalid product id")
	ErrUnauthorized    = errors.New("authentication required")
	ErrTooManyRetries  = errors.New("too many concurrent cart updates")
)

// Error porte l'opération et la catégorie d'un échec
type Error struct {
	Op      string
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E construit une *Error ; le message public est celui de l'erreur sous-jacente
// sauf pour StorageFailure où il reste générique
func E(op string, kind Kind, err error) *Error {
	msg := "internal error"
	if kind != StorageFailure && err != nil {
		msg = err.Error()
	}
	return &Error{Op: op, Kind: kind, Message: msg, Err: err}
}

// KindOf retourne la catégorie d'une erreur, Unknown si elle n'en porte pas
func KindOf(err error) Kind {
	if err == nil {
		return Unknown
	}
	var ce *Error
	if errors.As(err, &ce) && ce.Kind != Unknown {
		return ce.Kind
	}
	switch {
	case errors.Is(err, ErrProductNotFound), errors.Is(err, ErrCartNotFound), errors.Is(err, ErrLineNotFound):
		return NotFound
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidProduct):
		return InvalidArgument
	case errors.Is(err, ErrUnauthorized):
		return Unauthorized
	case errors.Is(err, ErrTooManyRetries):
		return StorageFailure
	}
	return Unknown
}

// PublicMessage donne le texte renvoyé au client
func PublicMessage(err error) string {
	var ce *Error
	if errors.As(err, &ce) && ce.Message != "" {
		return ce.Message
	}
	switch KindOf(err) {
	case NotFound, InvalidArgument, Unauthorized:
		return err.Error()
	}
	return "internal error"
}
