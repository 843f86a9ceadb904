// Package client is a REST client for the storefront API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go-storefront/dto"
	"go-storefront/models"
)

// APIError is returned for any non-2xx response.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("api error %d: %s %v", e.Status, e.Message, e.Fields)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Register(ctx context.Context, req dto.RegisterRequest) (*models.User, error) {
	var resp struct {
		User *models.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/user/register", req, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// Login authenticates and stores the returned token on c.
func (c *Client) Login(ctx context.Context, email, password string) (*dto.AuthResponse, error) {
	var resp dto.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/user/login", dto.LoginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	c.Token = resp.Token
	return &resp, nil
}

// Logout tells the server to drop its cookie and forgets the local token.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/user/logout", nil, nil); err != nil {
		return err
	}
	c.Token = ""
	return nil
}

func (c *Client) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodGet, "/user/"+url.PathEscape(id), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) Products(ctx context.Context) ([]models.Product, error) {
	var resp struct {
		Products []models.Product `json:"products"`
	}
	if err := c.do(ctx, http.MethodGet, "/product/getProducts", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Products, nil
}

func (c *Client) Product(ctx context.Context, id string) (*models.Product, error) {
	var resp struct {
		Product *models.Product `json:"product"`
	}
	if err := c.do(ctx, http.MethodGet, "/product/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Product, nil
}

func (c *Client) Search(ctx context.Context, name string) ([]models.Product, error) {
	var resp struct {
		Products []models.Product `json:"products"`
	}
	path := "/product/searchProducts?" + url.Values{"name": {name}}.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Products, nil
}

func (c *Client) AddProduct(ctx context.Context, req dto.ProductRequest) (*models.Product, error) {
	var resp struct {
		Product *models.Product `json:"product"`
	}
	if err := c.do(ctx, http.MethodPost, "/product/addProduct", req, &resp); err != nil {
		return nil, err
	}
	return resp.Product, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id string, req dto.ProductRequest) (*models.Product, error) {
	var resp struct {
		Product *models.Product `json:"product"`
	}
	if err := c.do(ctx, http.MethodPut, "/product/updateProduct/"+url.PathEscape(id), req, &resp); err != nil {
		return nil, err
	}
	return resp.Product, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/product/deleteProduct/"+url.PathEscape(id), nil, nil)
}

func (c *Client) PlaceOrder(ctx context.Context, req dto.PlaceOrderRequest) (*models.Order, error) {
	var resp struct {
		Order *models.Order `json:"order"`
	}
	if err := c.do(ctx, http.MethodPost, "/order/placeOrder", req, &resp); err != nil {
		return nil, err
	}
	return resp.Order, nil
}

func (c *Client) Orders(ctx context.Context) ([]models.Order, error) {
	var resp struct {
		Orders []models.Order `json:"orders"`
	}
	if err := c.do(ctx, http.MethodGet, "/order/confirmation", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Message string            `json:"message"`
			Errors  map[string]string `json:"errors"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
			apiErr.Message, apiErr.Fields = payload.Message, payload.Errors
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
