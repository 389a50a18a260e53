// Package catalog fetches the product and category feeds shown on the
// landing page.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/HenryOlvera28/landing/internal/config"
	"github.com/HenryOlvera28/landing/internal/domain"
)

const maxFeedBytes = 4 << 20

// StatusError is returned when a feed answers with a non-2xx status.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error: %d", e.Code)
}

type Client struct {
	http          *http.Client
	productsURL   string
	categoriesURL string
	logger        *zap.Logger
}

func NewClient(cfg config.CatalogConfig, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http:          httpClient,
		productsURL:   cfg.ProductsURL,
		categoriesURL: cfg.CategoriesURL,
		logger:        logger,
	}
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{URL: url, Code: resp.StatusCode}
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
}

// ---------- Products (JSON) ----------

type productDTO struct {
	ID         flexString `json:"id"`
	Title      string     `json:"title"`
	Price      flexString `json:"price"`
	ImgURL     string     `json:"imgUrl"`
	ProductURL string     `json:"productURL"`
	CategoryID flexString `json:"category_id"`
}

// flexString accepts a JSON string or number.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}

func (c *Client) Products(ctx context.Context) ([]domain.Product, error) {
	body, err := c.fetch(ctx, c.productsURL)
	if err != nil {
		return nil, fmt.Errorf("fetch products: %w", err)
	}

	var items []productDTO
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}

	products := make([]domain.Product, 0, len(items))
	for _, it := range items {
		products = append(products, domain.Product{
			ID:         string(it.ID),
			Title:      it.Title,
			Price:      string(it.Price),
			ImgURL:     it.ImgURL,
			ProductURL: it.ProductURL,
			CategoryID: string(it.CategoryID),
		})
	}
	return products, nil
}

// ---------- Categories (XML) ----------

type categoriesXML struct {
	Categories []struct {
		ID   string `xml:"id"`
		Name string `xml:"name"`
	} `xml:"category"`
}

func (c *Client) Categories(ctx context.Context) ([]domain.Category, error) {
	body, err := c.fetch(ctx, c.categoriesURL)
	if err != nil {
		return nil, fmt.Errorf("fetch categories: %w", err)
	}

	var doc categoriesXML
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}

	categories := make([]domain.Category, 0, len(doc.Categories))
	for _, cat := range doc.Categories {
		categories = append(categories, domain.Category{
			ID:   strings.TrimSpace(cat.ID),
			Name: strings.TrimSpace(cat.Name),
		})
	}
	return categories, nil
}

// ---------- Page ----------

// Page holds both feeds. Each feed fails on its own; a broken category feed
// still leaves the products on the page.
type Page struct {
	Products      []domain.Product
	Categories    []domain.Category
	ProductsErr   error
	CategoriesErr error
}

// Load fetches both feeds concurrently and keeps the first limit products.
func (c *Client) Load(ctx context.Context, limit int) Page {
	var (
		page Page
		g    errgroup.Group
	)

	g.Go(func() error {
		products, err := c.Products(ctx)
		if err != nil {
			c.logger.Warn("products feed failed", zap.String("url", c.productsURL), zap.Error(err))
			page.ProductsErr = err
			return nil
		}
		page.Products = Featured(products, limit)
		return nil
	})

	g.Go(func() error {
		categories, err := c.Categories(ctx)
		if err != nil {
			c.logger.Warn("categories feed failed", zap.String("url", c.categoriesURL), zap.Error(err))
			page.CategoriesErr = err
			return nil
		}
		page.Categories = categories
		return nil
	})

	_ = g.Wait()
	return page
}

// Featured returns at most the first n products.
func Featured(products []domain.Product, n int) []domain.Product {
	if n < 0 {
		n = 0
	}
	if len(products) > n {
		return products[:n]
	}
	return products
}
