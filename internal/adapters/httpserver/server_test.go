package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenrril/buildmart/internal/adapters/kv"
	"github.com/phenrril/buildmart/internal/adapters/pdf"
	"github.com/phenrril/buildmart/internal/domain"
	"github.com/phenrril/buildmart/internal/usecase"
	"github.com/phenrril/buildmart/internal/views"
)

type staticCatalog struct {
	products []domain.Product
	err      error
}

func (c *staticCatalog) Fetch(context.Context, domain.CatalogQuery) ([]domain.Product, error) {
	if c.err != nil {
		return nil, c.err
	}
	return append([]domain.Product(nil), c.products...), nil
}

func testProducts() []domain.Product {
	zero := 0
	return []domain.Product{
		{
			ID: "1", Name: "Ceramic Floor Tile", Category: "Tiles", Subcategory: "Floor Tiles", Subsubcategory: "Ceramic Floor Tiles",
			Variants:       []domain.Variant{{Price: 100, Size: "60x60"}},
			Specifications: map[string]string{"Finish": "Matt"},
		},
		{
			ID: "2", Name: "Porcelain Tile", Category: "Tiles", Subcategory: "Floor Tiles", Subsubcategory: "Porcelain Floor Tiles",
			Variants:       []domain.Variant{{Price: 250, Size: "60x60"}},
			Specifications: map[string]string{"Finish": "Glossy"},
		},
		{
			ID: "3", Name: "Basin Mixer", Category: "Sanitary Ware", Subcategory: "Faucets", Subsubcategory: "Basin Mixers",
			Variants: []domain.Variant{{Price: 1500, Color: "Chrome"}},
		},
		{
			ID: "7", Name: "Glazed Wall Tile", Category: "Tiles", Subcategory: "Wall Tiles", Subsubcategory: "Kitchen Wall Tiles",
			Variants: []domain.Variant{
				{Price: 100, Size: "M", Color: "Red"},
				{Price: 120, Size: "L", Color: "Red"},
				{Price: 110, Size: "M", Color: "Blue"},
			},
			Images: map[string][]string{"Red": {"/img/red-0.jpg", "/img/red-1.jpg"}},
		},
		{
			ID: "9", Name: "Sold Out Tap", Category: "Sanitary Ware",
			Variants: []domain.Variant{{Price: 80}},
			Stock:    &zero,
		},
	}
}

// client keeps the visitor cookie between requests like a browser would.
type client struct {
	t       *testing.T
	h       http.Handler
	cookies []*http.Cookie
}

func newClient(t *testing.T, src domain.CatalogSource) *client {
	t.Helper()
	tmpl, err := views.Parse()
	require.NoError(t, err)
	if src == nil {
		src = &staticCatalog{products: testProducts()}
	}
	h := New(tmpl, Options{
		Catalog:   src,
		Products:  &usecase.ProductUC{Products: src},
		Receipts:  &usecase.ReceiptUC{Exporter: pdf.NewReceiptExporter(), Prefix: "INV", StoreName: "BuildMart"},
		Store:     kv.NewMemoryStore(),
		Secret:    []byte("test-secret"),
		StoreName: "BuildMart",
	})
	return &client{t: t, h: h}
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c.h.ServeHTTP(rec, req)
	if cs := rec.Result().Cookies(); len(cs) > 0 {
		c.cookies = cs
	}
	return rec
}

func (c *client) get(path string, jsonAccept bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if jsonAccept {
		req.Header.Set("Accept", "application/json")
	}
	return c.do(req)
}

func (c *client) post(path string, form url.Values, jsonAccept bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if jsonAccept {
		req.Header.Set("Accept", "application/json")
	}
	return c.do(req)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthAndHome(t *testing.T) {
	c := newClient(t, nil)
	rec := c.get("/healthz", false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = c.get("/", false)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/products", rec.Header().Get("Location"))

	assert.Equal(t, http.StatusNotFound, c.get("/nope", false).Code)
}

func TestProductsPage_FiltersByCategory(t *testing.T) {
	c := newClient(t, nil)
	rec := c.get("/products?category=Sanitary+Ware", false)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Basin Mixer")
	assert.NotContains(t, body, "Porcelain Tile</a>")
	assert.Contains(t, body, "Showing 2 of 5 products")
}

func TestGalleryAPI(t *testing.T) {
	c := newClient(t, nil)
	rec := c.get("/api/gallery?sort=price-high&maxPrice=300&category=tiles", true)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	products := out["products"].([]any)
	require.Len(t, products, 3)
	assert.Equal(t, "Porcelain Tile", products[0].(map[string]any)["name"])
	assert.Equal(t, "category=Tiles&maxPrice=300&sort=price-high", out["query"])
	assert.Contains(t, out["facets"], "Finish")
}

func TestGallery_SliderLeftAtTopKeepsEveryProduct(t *testing.T) {
	c := newClient(t, &staticCatalog{products: []domain.Product{
		{ID: "a", Name: "Tile Grout", Variants: []domain.Variant{{Price: 100}}},
		{ID: "b", Name: "Granite Slab", Variants: []domain.Variant{{Price: 1250.40}}},
	}})

	body := c.get("/products", false).Body.String()
	assert.Contains(t, body, `max="1251"`)
	assert.Contains(t, body, `name="priceCeil" value="1251"`)

	// the whole form resubmitted after only the sort changed
	out := decode(t, c.get("/api/gallery?category=all&maxPrice=1251&priceCeil=1251&sort=price-low", true))
	assert.Equal(t, "Showing 2 of 2 products", out["resultText"])
	assert.Equal(t, "sort=price-low", out["query"])

	rec := c.get("/products?category=all&maxPrice=1251&priceCeil=1251&sort=name", false)
	assert.Contains(t, rec.Body.String(), "Showing 2 of 2 products")
	assert.Contains(t, rec.Body.String(), "No filters applied")

	// a moved slider is a real limit
	out = decode(t, c.get("/api/gallery?maxPrice=300&priceCeil=1251", true))
	assert.Equal(t, "Showing 1 of 2 products", out["resultText"])
	assert.Equal(t, "maxPrice=300", out["query"])
}

func TestGalleryAPI_EmptyResultCarriesEmptyState(t *testing.T) {
	c := newClient(t, nil)
	out := decode(t, c.get("/api/gallery?search=granite", true))
	assert.Equal(t, true, out["empty"])
	assert.NotEmpty(t, out["emptyMessage"])
	assert.Empty(t, out["products"])
	assert.Equal(t, false, out["loading"])
}

func TestGalleryPage_EmptyAndErrorStates(t *testing.T) {
	c := newClient(t, nil)
	body := c.get("/products?search=granite", false).Body.String()
	assert.Contains(t, body, `<div class="empty">No products match the current filters.</div>`)
	assert.Contains(t, body, `<div class="grid" hidden>`)
	assert.Contains(t, body, `<div class="error" hidden>`)
	assert.Contains(t, body, `<div class="loading" hidden>`)

	c = newClient(t, &staticCatalog{err: errors.New("upstream down")})
	rec := c.get("/products?search=tile", false)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	body = rec.Body.String()
	assert.Contains(t, body, `<div class="error">`)
	assert.Contains(t, body, `<a class="retry" href="/products?search=tile">Try again</a>`)
	assert.Contains(t, body, `<div class="empty" hidden>`)
}

func TestGalleryAPI_LoadFailure(t *testing.T) {
	c := newClient(t, &staticCatalog{err: errors.New("upstream down")})
	rec := c.get("/api/gallery?search=tile", true)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	out := decode(t, rec)
	assert.NotEmpty(t, out["error"])
	assert.Equal(t, "/products?search=tile", out["retry"])
}

func TestProductPage(t *testing.T) {
	c := newClient(t, nil)
	rec := c.get("/product?id=7&size=M&color=Blue", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Glazed Wall Tile")
	assert.Contains(t, rec.Body.String(), "BDT 110.00")

	assert.Equal(t, http.StatusNotFound, c.get("/product?id=404", false).Code)
	assert.Equal(t, http.StatusNotFound, c.get("/product", false).Code)
	assert.Equal(t, http.StatusNotFound, c.post("/cart/add", url.Values{"qty": {"1"}}, true).Code)
}

func TestProductPage_SelectionDrivesPriceAndAddButton(t *testing.T) {
	c := newClient(t, nil)

	body := c.get("/product?id=7", false).Body.String()
	assert.Contains(t, body, `id="variant-form"`)
	assert.Contains(t, body, "Select a variant")
	assert.NotContains(t, body, "Add to cart</button>")

	body = c.get("/product?id=7&size=L&color=Red", false).Body.String()
	assert.Contains(t, body, "BDT 120.00")
	assert.Contains(t, body, "Add to cart</button>")
	assert.Contains(t, body, `<input type="hidden" name="size" value="L">`)
	assert.Contains(t, body, `<input type="hidden" name="color" value="Red">`)

	// thumbnails point back at the page with that image selected
	body = c.get("/product?id=7", false).Body.String()
	assert.Contains(t, body, `id="main-image" src="/img/red-0.jpg"`)
	assert.Contains(t, body, `href="/product?id=7&amp;image=Red&amp;index=1"`)
	body = c.get("/product?id=7&image=Red&index=1", false).Body.String()
	assert.Contains(t, body, `id="main-image" src="/img/red-1.jpg"`)

	body = c.get("/product?id=9", false).Body.String()
	assert.Contains(t, body, "Out of stock")
	assert.NotContains(t, body, "Add to cart</button>")
}

func TestSearchAPI(t *testing.T) {
	c := newClient(t, nil)
	rec := c.get("/search?q=tile", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["results"], 3)

	rec = c.get("/search?q=", true)
	out := decode(t, rec)
	assert.Empty(t, out["results"])
	assert.Equal(t, false, out["visible"])

	down := newClient(t, &staticCatalog{err: errors.New("upstream down")})
	rec = down.get("/search?q=tile", true)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["error"])
}

func TestCart_QuickAddQuantityRemove(t *testing.T) {
	c := newClient(t, nil)

	rec := c.post("/cart/quick-add", url.Values{"id": {"1"}}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = c.post("/cart/quick-add", url.Values{"id": {"1"}}, true)
	assert.EqualValues(t, 2, decode(t, rec)["items"])

	rec = c.get("/cart", true)
	assert.EqualValues(t, 2, decode(t, rec)["count"])

	rec = c.post("/cart/quantity", url.Values{"index": {"0"}, "delta": {"-5"}}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["count"])

	rec = c.post("/cart/quantity", url.Values{"index": {"x"}, "delta": {"1"}}, true)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = c.post("/cart/remove", url.Values{"index": {"0"}}, false)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.EqualValues(t, 0, decode(t, c.get("/cart", true))["count"])
}

func TestCart_QuickAddOutOfStock(t *testing.T) {
	c := newClient(t, nil)
	rec := c.post("/cart/quick-add", url.Values{"id": {"9"}}, true)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCart_AddVariantsReportsDuplicates(t *testing.T) {
	c := newClient(t, nil)
	form := url.Values{"id": {"7"}, "qty": {"1"}, "size": {"M"}, "color": {"Red"}}
	rec := c.post("/cart/add", form, true)
	require.Equal(t, http.StatusOK, rec.Code)

	form["color"] = []string{"Red", "Blue"}
	rec = c.post("/cart/add", form, true)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	results := out["results"].([]any)
	require.Len(t, results, 2)
	assert.Equal(t, "duplicate", results[0].(map[string]any)["status"])
	assert.Equal(t, "added", results[1].(map[string]any)["status"])
	assert.EqualValues(t, 2, out["items"])

	rec = c.post("/cart/add", url.Values{"id": {"7"}}, false)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = c.post("/cart/add", url.Values{"id": {"7"}, "size": {"L"}, "color": {"Red"}}, false)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/product?added=1&id=7", rec.Header().Get("Location"))
}

func TestReceipt_ValidationAndRender(t *testing.T) {
	c := newClient(t, nil)
	c.post("/cart/quick-add", url.Values{"id": {"2"}}, true)

	rec := c.post("/cart/receipt", url.Values{"name": {"Rahim"}}, false)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please fill in: phone, address, payment")

	contact := url.Values{"name": {"Rahim"}, "phone": {"01711000000"}, "address": {"Dhaka"}, "payment": {"bkash"}}
	rec = c.post("/cart/receipt", contact, false)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Receipt # INV/")
	assert.Contains(t, body, "data:image/png;base64,")

	// the saved contact and snapshot carry over to later pages
	rec = c.get("/cart/receipt", false)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = c.get("/cart?option=compare", false)
	assert.Contains(t, rec.Body.String(), "Porcelain Tile")
}

func TestReceiptPDF(t *testing.T) {
	c := newClient(t, nil)
	c.post("/cart/quick-add", url.Values{"id": {"3"}}, true)
	contact := url.Values{"name": {"Rahim"}, "phone": {"01711000000"}, "address": {"Dhaka"}, "payment": {"cash-on-delivery"}}

	rec := c.post("/cart/receipt.pdf", contact, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="INV-`)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))

	rec = c.post("/cart/receipt.pdf", url.Values{}, true)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, []any{"name", "phone", "address", "payment"}, decode(t, rec)["fields"])
}

func TestCart_ClearAndCombinedSelection(t *testing.T) {
	c := newClient(t, nil)
	c.post("/cart/quick-add", url.Values{"id": {"1"}}, true)
	rec := c.post("/cart/clear", url.Values{}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decode(t, rec)["count"])

	rec = c.get("/cart?combined=true", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "There is no combined selection to show.")
}

func postJSON(c *client, path, body, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

func TestCombinedSelection_PostedThenShownReadOnly(t *testing.T) {
	c := newClient(t, nil)
	sel := `{"items":[{"productId":"3","name":"Basin Mixer","price":1500,"quantity":2,"color":"Chrome"}],"totalAmount":3000}`
	rec := postJSON(c, "/api/combined", sel, "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := c.get("/cart?combined=true", false).Body.String()
	assert.Contains(t, body, "Basin Mixer")
	assert.NotContains(t, body, "There is no combined selection to show.")

	out := decode(t, c.get("/cart?combined=true", true))
	assert.EqualValues(t, 2, out["count"])
	assert.EqualValues(t, 3000, out["total"])
	assert.Len(t, out["items"], 1)
	assert.Equal(t, true, out["readOnly"])

	// the live cart is a different list
	out = decode(t, c.get("/cart", true))
	assert.EqualValues(t, 0, out["count"])
	assert.Empty(t, out["items"])
}

func TestCombinedSelection_Rejects(t *testing.T) {
	c := newClient(t, nil)

	rec := postJSON(c, "/api/combined", `{"items":[]}`, "application/json")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, []any{"items"}, decode(t, rec)["fields"])

	assert.Equal(t, http.StatusBadRequest, postJSON(c, "/api/combined", `{"items":`, "application/json").Code)
	assert.Equal(t, http.StatusUnsupportedMediaType, postJSON(c, "/api/combined", `{}`, "text/plain").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, c.get("/api/combined", true).Code)
}

func TestServer_LogLineCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	c := newClient(t, nil)
	rec := c.get("/healthz", false)
	id := rec.Header().Get("X-Request-ID")
	require.NotEmpty(t, id)

	var line map[string]any
	for _, raw := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var m map[string]any
		if json.Unmarshal(raw, &m) == nil && m["message"] == "http" {
			line = m
		}
	}
	require.NotNil(t, line, buf.String())
	assert.Equal(t, id, line["req_id"])
}

func TestVisitors_AreIsolated(t *testing.T) {
	a := newClient(t, nil)
	a.post("/cart/quick-add", url.Values{"id": {"1"}}, true)

	// a second browser against the same server and store
	b := &client{t: t, h: a.h}
	assert.EqualValues(t, 0, decode(t, b.get("/cart", true))["count"])

	// a forged cookie is replaced, not trusted
	forged := &client{t: t, h: a.h, cookies: []*http.Cookie{{Name: visitorCookie, Value: "sig." + "00000000-0000-0000-0000-000000000000"}}}
	assert.EqualValues(t, 0, decode(t, forged.get("/cart", true))["count"])
	assert.EqualValues(t, 1, decode(t, a.get("/cart", true))["count"])
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(&domain.ValidationError{Fields: []string{"name"}}))
	assert.Equal(t, http.StatusNotFound, statusFor(domain.ErrNotFound))
	assert.Equal(t, http.StatusConflict, statusFor(domain.ErrDuplicateItem))
	assert.Equal(t, http.StatusBadGateway, statusFor(domain.ErrDataLoad))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("x")))
}
