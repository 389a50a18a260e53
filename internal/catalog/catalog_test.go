package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/HenryOlvera28/landing/internal/config"
	"github.com/HenryOlvera28/landing/internal/domain"
)

const productsJSON = `[
  {"id": 1, "title": "Wireless Noise Cancelling Headphones", "price": 129.99, "imgUrl": "https://img/1.jpg", "productURL": "https://shop/1", "category_id": "3"},
  {"id": "p-2", "title": "Mug", "price": "9.50", "imgUrl": "https://img/2.jpg", "productURL": "https://shop/2", "category_id": 1},
  {"id": 3, "title": "Lamp", "price": 20, "imgUrl": "", "productURL": "", "category_id": null}
]`

const categoriesXMLFixture = `<?xml version="1.0" encoding="UTF-8"?>
<categories>
  <category><id>1</id><name>Kitchen</name></category>
  <category><id> 3 </id><name>Audio</name></category>
</categories>`

func feedServer(t *testing.T, products, categories http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/products.json", products)
	mux.HandleFunc("/categories.xml", categories)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func body(s string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(s)) }
}

func status(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(code) }
}

func newClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	return NewClient(config.CatalogConfig{
		ProductsURL:   srv.URL + "/products.json",
		CategoriesURL: srv.URL + "/categories.xml",
		Timeout:       5 * time.Second,
	}, srv.Client(), zaptest.NewLogger(t))
}

func TestProducts(t *testing.T) {
	srv := feedServer(t, body(productsJSON), body(categoriesXMLFixture))

	got, err := newClient(t, srv).Products(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, domain.Product{
		ID:         "1",
		Title:      "Wireless Noise Cancelling Headphones",
		Price:      "129.99",
		ImgURL:     "https://img/1.jpg",
		ProductURL: "https://shop/1",
		CategoryID: "3",
	}, got[0])
	assert.Equal(t, "p-2", got[1].ID)
	assert.Equal(t, "9.50", got[1].Price)
	assert.Equal(t, "1", got[1].CategoryID)
	assert.Equal(t, "", got[2].CategoryID)
}

func TestCategories(t *testing.T) {
	srv := feedServer(t, body(productsJSON), body(categoriesXMLFixture))

	got, err := newClient(t, srv).Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Category{{ID: "1", Name: "Kitchen"}, {ID: "3", Name: "Audio"}}, got)
}

func TestFetch_StatusError(t *testing.T) {
	srv := feedServer(t, status(http.StatusNotFound), status(http.StatusInternalServerError))
	c := newClient(t, srv)

	_, err := c.Products(context.Background())
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
	assert.Contains(t, err.Error(), "HTTP error: 404")

	_, err = c.Categories(context.Background())
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.Code)
}

func TestFetch_DecodeErrors(t *testing.T) {
	srv := feedServer(t, body(`{"not": "a list"}`), body(`<categories><category>`))
	c := newClient(t, srv)

	_, err := c.Products(context.Background())
	assert.ErrorContains(t, err, "decode products")

	_, err = c.Categories(context.Background())
	assert.ErrorContains(t, err, "decode categories")
}

func TestLoad_FeedsFailIndependently(t *testing.T) {
	srv := feedServer(t, body(productsJSON), status(http.StatusBadGateway))

	page := newClient(t, srv).Load(context.Background(), 2)
	require.NoError(t, page.ProductsErr)
	assert.Len(t, page.Products, 2)
	assert.Error(t, page.CategoriesErr)
	assert.Empty(t, page.Categories)
}

func TestLoad_Both(t *testing.T) {
	srv := feedServer(t, body(productsJSON), body(categoriesXMLFixture))

	page := newClient(t, srv).Load(context.Background(), 6)
	assert.NoError(t, page.ProductsErr)
	assert.NoError(t, page.CategoriesErr)
	assert.Len(t, page.Products, 3)
	assert.Len(t, page.Categories, 2)
}

func TestFeatured(t *testing.T) {
	t.Parallel()

	ps := make([]domain.Product, 8)
	tests := []struct {
		name string
		n    int
		want int
	}{
		{"limit", 6, 6},
		{"fewer_than_limit", 10, 8},
		{"zero", 0, 0},
		{"negative", -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, Featured(ps, tt.n), tt.want)
		})
	}
}

func TestProduct_ShortTitleAndSubject(t *testing.T) {
	t.Parallel()

	tests := []struct {
		title string
		want  string
	}{
		{"Mug", "Mug"},
		{"exactly twenty chars", "exactly twenty chars"},
		{"Wireless Noise Cancelling Headphones", "Wireless Noise Cance..."},
		{"Café con leche y azúcar morena", "Café con leche y azú..."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, domain.Product{Title: tt.title}.ShortTitle())
	}

	assert.Equal(t, "7", domain.Product{ID: "7", Title: "Mug"}.SubjectID())
	assert.Equal(t, "Mug", domain.Product{Title: "Mug"}.SubjectID())
}
