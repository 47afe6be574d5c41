// Package cartclient est le client Go du panier : vue locale, snapshot persistant et synchronisation live.
package cartclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"storefront_back_end/internal/models"
)

// APIError est une réponse HTTP non 2xx du serveur
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("storefront api: %d %s", e.Status, e.Message)
}

// API parle au serveur au nom d'un navigateur : cookie de session et JWT
type API struct {
	base string
	http *http.Client

	mu    sync.RWMutex
	token string
}

// NewAPI crée un client avec son propre cookie jar quand httpClient est nil
func NewAPI(baseURL string, httpClient *http.Client) (*API, error) {
	if httpClient == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		httpClient = &http.Client{Jar: jar, Timeout: 10 * time.Second}
	}
	return &API{base: strings.TrimRight(baseURL, "/"), http: httpClient}, nil
}

func (a *API) SetToken(token string) {
	a.mu.Lock()
	a.token = token
	a.mu.Unlock()
}

func (a *API) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token
}

func (a *API) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := a.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &e)
		return &APIError{Status: res.StatusCode, Message: e.Error}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// Login ouvre une session et garde le token pour les appels suivants
func (a *API) Login(ctx context.Context, email, password string) (string, error) {
	var out struct {
		Token  string `json:"token"`
		UserID string `json:"userId"`
	}
	err := a.do(ctx, http.MethodPost, "/api/v1/users/login", map[string]string{"email": email, "password": password}, &out)
	if err != nil {
		return "", err
	}
	a.SetToken(out.Token)
	return out.UserID, nil
}

// Signup crée un compte local et garde le token
func (a *API) Signup(ctx context.Context, name, email, password string) (string, error) {
	var out struct {
		Token  string `json:"token"`
		UserID string `json:"userId"`
	}
	in := map[string]string{"name": name, "email": email, "password": password, "passwordConfirm": password}
	if err := a.do(ctx, http.MethodPost, "/api/v1/users/signup", in, &out); err != nil {
		return "", err
	}
	a.SetToken(out.Token)
	return out.UserID, nil
}

func (a *API) CheckAuth(ctx context.Context) (bool, error) {
	var out struct {
		IsAuthenticated bool `json:"isAuthenticated"`
	}
	if err := a.do(ctx, http.MethodGet, "/api/check-auth", nil, &out); err != nil {
		return false, err
	}
	return out.IsAuthenticated, nil
}

// Me retourne l'id de l'utilisateur connecté
func (a *API) Me(ctx context.Context) (string, error) {
	var out struct {
		UserID string `json:"userId"`
	}
	if err := a.do(ctx, http.MethodGet, "/api/v1/users/me", nil, &out); err != nil {
		return "", err
	}
	return out.UserID, nil
}

func (a *API) Cart(ctx context.Context) (*models.Cart, error) {
	var c models.Cart
	if err := a.do(ctx, http.MethodGet, "/api/v1/cart", nil, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// SetLine fixe la quantité d'une ligne (POST /cart/add)
func (a *API) SetLine(ctx context.Context, productID string, quantity int) (*models.Cart, error) {
	var c models.Cart
	in := map[string]interface{}{"productId": productID, "quantity": quantity}
	if err := a.do(ctx, http.MethodPost, "/api/v1/cart/add", in, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (a *API) RemoveLine(ctx context.Context, productID string) (*models.Cart, error) {
	var c models.Cart
	if err := a.do(ctx, http.MethodPost, "/api/v1/cart/remove", map[string]string{"productId": productID}, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (a *API) Products(ctx context.Context) ([]models.Product, error) {
	var out struct {
		Data struct {
			Products []models.Product `json:"products"`
		} `json:"data"`
	}
	if err := a.do(ctx, http.MethodGet, "/api/v1/products", nil, &out); err != nil {
		return nil, err
	}
	return out.Data.Products, nil
}

// DialEvents ouvre le canal live ; le token passe en header et le cookie jar est réutilisé
func (a *API) DialEvents(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(a.base + "/api/v1/cart/ws")
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	header := http.Header{}
	if token := a.Token(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		Jar:              a.http.Jar,
	}
	conn, res, err := dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if res != nil {
			return nil, &APIError{Status: res.StatusCode, Message: "websocket refusé"}
		}
		return nil, err
	}
	return conn, nil
}
