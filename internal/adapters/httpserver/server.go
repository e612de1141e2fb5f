package httpserver

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/phenrril/buildmart/internal/adapters/pdf"
	"github.com/phenrril/buildmart/internal/domain"
	"github.com/phenrril/buildmart/internal/usecase"
)

const galleryPath = "/products"

type Options struct {
	Catalog     domain.CatalogSource
	Tree        *domain.CategoryTree
	Products    *usecase.ProductUC
	Receipts    *usecase.ReceiptUC
	Store       domain.KeyValueStore
	Secret      []byte
	StoreName   string
	RateLimit   int
	CORSOrigins []string
	// SearchQuiet is the debounce the page script applies to search and
	// filter input.
	SearchQuiet time.Duration
}

type Server struct {
	mux       *http.ServeMux
	tmpl      *template.Template
	catalog   domain.CatalogSource
	tree      *domain.CategoryTree
	products  *usecase.ProductUC
	receipts  *usecase.ReceiptUC
	store     domain.KeyValueStore
	secret    []byte
	storeName string
	quietMS   int
}

func New(t *template.Template, o Options) http.Handler {
	tree := o.Tree
	if tree == nil {
		tree = domain.DefaultCategoryTree()
	}
	secret := o.Secret
	if len(secret) == 0 {
		secret = []byte("dev-insecure")
	}
	quiet := o.SearchQuiet
	if quiet <= 0 {
		quiet = usecase.DefaultQuietPeriod
	}
	s := &Server{
		mux:       http.NewServeMux(),
		tmpl:      t,
		catalog:   o.Catalog,
		tree:      tree,
		products:  o.Products,
		receipts:  o.Receipts,
		store:     o.Store,
		secret:    secret,
		storeName: o.StoreName,
		quietMS:   int(quiet / time.Millisecond),
	}
	s.routes()
	return Chain(s.mux,
		s.Visitor,
		CORS(o.CORSOrigins),
		RateLimit(o.RateLimit),
		SecurityHeaders,
		Logging,
		RequestID,
		Recovery,
	)
}

func (s *Server) routes() {
	s.mux.Handle("/public/", http.StripPrefix("/public/", http.FileServer(http.Dir("public"))))

	s.mux.HandleFunc("/", s.handleHome)
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/products", s.handleProducts)
	s.mux.HandleFunc("/api/gallery", s.apiGallery)
	s.mux.HandleFunc("/product", s.handleProduct)
	s.mux.HandleFunc("/search", s.apiSearch)
	s.mux.HandleFunc("/api/combined", s.apiCombined)

	s.mux.HandleFunc("/cart", s.handleCart)
	s.mux.HandleFunc("/cart/add", s.handleCartAdd)
	s.mux.HandleFunc("/cart/quick-add", s.handleCartQuickAdd)
	s.mux.HandleFunc("/cart/quantity", s.handleCartQuantity)
	s.mux.HandleFunc("/cart/remove", s.handleCartRemove)
	s.mux.HandleFunc("/cart/clear", s.handleCartClear)
	s.mux.HandleFunc("/cart/contact", s.handleCartContact)
	s.mux.HandleFunc("/cart/receipt", s.handleReceipt)
	s.mux.HandleFunc("/cart/receipt.pdf", s.handleReceiptPDF)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, galleryPath, http.StatusFound)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// loadGallery builds a fresh gallery for the request URL. Filter state is
// never persisted; it lives in the query string.
func (s *Server) loadGallery(r *http.Request) *usecase.Gallery {
	g := usecase.NewGallery(s.catalog, s.tree)
	q := sliderQuery(r.URL.Query())
	g.ApplyQuery(q)
	if err := g.Load(r.Context(), usecase.CategoryHint(q)); err != nil {
		log.Warn().Err(err).Str("query", r.URL.RawQuery).Msg("gallery load failed")
	}
	return g
}

// sliderQuery drops maxPrice when the form reports the slider was left at
// its top stop (priceCeil): that is no limit, not a limit at the ceiling.
func sliderQuery(q url.Values) url.Values {
	ceil := q.Get("priceCeil")
	if ceil == "" {
		return q
	}
	q.Del("priceCeil")
	c, err1 := strconv.ParseFloat(ceil, 64)
	m, err2 := strconv.ParseFloat(q.Get("maxPrice"), 64)
	if err1 == nil && err2 == nil && m >= c {
		q.Del("maxPrice")
	}
	return q
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", http.StatusMethodNotAllowed)
		return
	}
	g := s.loadGallery(r)
	view := usecase.ProjectGallery(g, galleryPath)
	code := http.StatusOK
	if view.Error != "" {
		code = http.StatusBadGateway
	}
	s.renderStatus(w, r, code, "products.html", map[string]any{
		"View":       view,
		"Categories": s.tree.Roots(),
		"Sorts":      sortOptions(view.State.Sort),
	})
}

type sortOption struct {
	Value    domain.SortKey
	Label    string
	Selected bool
}

func sortOptions(cur domain.SortKey) []sortOption {
	opts := []sortOption{
		{Value: domain.SortName, Label: "Name"},
		{Value: domain.SortPriceLow, Label: "Price: low to high"},
		{Value: domain.SortPriceHigh, Label: "Price: high to low"},
		{Value: domain.SortCategory, Label: "Category"},
	}
	for i := range opts {
		opts[i].Selected = opts[i].Value == cur
	}
	return opts
}

// apiGallery returns the projected view and canonical query for the page to
// push into history.
func (s *Server) apiGallery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", http.StatusMethodNotAllowed)
		return
	}
	g := s.loadGallery(r)
	view := usecase.ProjectGallery(g, galleryPath)
	code := http.StatusOK
	if view.Error != "" {
		code = http.StatusBadGateway
	}
	writeJSON(w, code, galleryJSON(view))
}

type cardJSON struct {
	ID        domain.ProductID `json:"id"`
	Name      string           `json:"name"`
	Price     float64          `json:"price"`
	PriceText string           `json:"priceText"`
	Image     string           `json:"image"`
	Category  string           `json:"category"`
	Available bool             `json:"available"`
	URL       string           `json:"url"`
}

func galleryJSON(v usecase.GalleryView) map[string]any {
	cards := make([]cardJSON, 0, len(v.Cards))
	for _, c := range v.Cards {
		cards = append(cards, cardJSON{ID: c.ID, Name: c.Name, Price: c.Price, PriceText: c.PriceText, Image: c.Image, Category: c.Category, Available: c.Available, URL: c.URL})
	}
	facets := map[string][]string{}
	selected := map[string][]string{}
	for _, f := range v.Facets {
		for _, o := range f.Options {
			facets[f.Name] = append(facets[f.Name], o.Value)
			if o.Selected {
				selected[f.Name] = append(selected[f.Name], o.Value)
			}
		}
	}
	crumbs := make([]map[string]any, 0, len(v.Breadcrumb))
	for _, c := range v.Breadcrumb {
		crumbs = append(crumbs, map[string]any{"name": c.Name, "url": c.URL, "active": c.Active})
	}
	groups := make([]map[string]any, 0, len(v.Facets))
	for _, f := range v.Facets {
		opts := make([]map[string]any, 0, len(f.Options))
		for _, o := range f.Options {
			opts = append(opts, map[string]any{"value": o.Value, "selected": o.Selected})
		}
		groups = append(groups, map[string]any{"name": f.Name, "options": opts})
	}
	out := map[string]any{
		"products":      cards,
		"showing":       v.Showing,
		"total":         v.Total,
		"resultText":    v.ResultText,
		"filterSummary": v.FilterSummary,
		"breadcrumb":    crumbs,
		"facets":        facets,
		"selected":      selected,
		"facetGroups":   groups,
		"empty":         v.Empty,
		"emptyMessage":  v.EmptyMessage,
		"loading":       v.Loading,
		"query":         v.Query,
		"priceMin":      v.PriceMin,
		"priceMax":      v.PriceMax,
		"sliderMax":     v.SliderMax,
		"sliderValue":   v.SliderValue,
	}
	if v.Error != "" {
		out["error"] = v.Error
		out["retry"] = v.RetryURL
	}
	return out
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	p, err := s.products.Get(r.Context(), domain.ProductID(strings.TrimSpace(q.Get("id"))))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sel := usecase.NewVariantSelector(p)
	sel.ApplySelection(q)
	if c := q.Get("image"); c != "" {
		idx, _ := strconv.Atoi(q.Get("index"))
		sel.ChangeImage(c, idx)
	}
	view := usecase.ProjectProduct(sel, s.tree, galleryPath)
	cart := usecase.OpenCart(r.Context(), s.visitorStore(w, r))
	s.render(w, r, "product.html", map[string]any{
		"View":      view,
		"CartCount": cart.Count(),
		"Added":     q.Get("added"),
		"Duplicate": q.Get("dup"),
	})
}

// apiSearch serves the autocomplete panel.
func (s *Server) apiSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", http.StatusMethodNotAllowed)
		return
	}
	box := usecase.NewSearchBox(s.products)
	if err := box.Search(r.Context(), r.URL.Query().Get("q")); err != nil {
		writeJSON(w, http.StatusBadGateway, box.Panel())
		return
	}
	writeJSON(w, http.StatusOK, box.Panel())
}

// apiCombined accepts the combined selection from the partner origin. JSON
// only, so cross-origin browsers must pass the CORS preflight first.
func (s *Server) apiCombined(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", http.StatusMethodNotAllowed)
		return
	}
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		writeJSON(w, http.StatusUnsupportedMediaType, map[string]any{"error": "expected application/json"})
		return
	}
	var sel domain.CombinedSelection
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&sel); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "malformed selection"})
		return
	}
	if err := usecase.SaveCombinedSelection(r.Context(), s.visitorStore(w, r), sel); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "url": "/cart?combined=true"})
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") || r.Header.Get("X-Requested-With") == "fetch"
}

func (s *Server) handleCart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", http.StatusMethodNotAllowed)
		return
	}
	store := s.visitorStore(w, r)
	cart := usecase.OpenCart(r.Context(), store)
	q := r.URL.Query()

	var view usecase.CartView
	switch {
	case q.Get("combined") == "true":
		sel, ok := usecase.LoadCombinedSelection(r.Context(), store)
		view = usecase.ProjectCart(sel.Items, cart.Contact(r.Context()), true)
		if !ok {
			view.Message = "There is no combined selection to show."
		}
	case q.Get("option") == "compare":
		view = usecase.ProjectCart(cart.CompareSnapshot(r.Context()), cart.Contact(r.Context()), true)
	default:
		view = usecase.ProjectCart(cart.Items(), cart.Contact(r.Context()), false)
	}
	if msg := q.Get("msg"); msg != "" && view.Message == "" {
		view.Message = msg
	}
	if wantsJSON(r) {
		items := make([]domain.LineItem, 0, len(view.Lines))
		for _, l := range view.Lines {
			items = append(items, l.Item)
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": view.Count, "total": view.Total, "readOnly": view.ReadOnly})
		return
	}
	s.render(w, r, "cart.html", map[string]any{"View": view})
}

// handleCartAdd adds every variant matching the posted size/color picks.
func (s *Server) handleCartAdd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "form", http.StatusBadRequest)
		return
	}
	p, err := s.products.Get(r.Context(), domain.ProductID(strings.TrimSpace(r.FormValue("id"))))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	qty, _ := strconv.Atoi(r.FormValue("qty"))
	sel := usecase.NewVariantSelector(p)
	sel.ApplySelection(r.Form)

	cart := usecase.OpenCart(r.Context(), s.visitorStore(w, r))
	results, err := sel.AddToCart(r.Context(), cart, qty)
	if err != nil && len(results) == 0 {
		s.fail(w, r, err)
		return
	}
	added, dup := 0, 0
	for _, res := range results {
		if res.Status == usecase.AddStatusAdded {
			added++
		} else {
			dup++
		}
	}
	if err != nil {
		// some variants went in before the store failed
		s.fail(w, r, err)
		return
	}
	if wantsJSON(r) {
		out := make([]map[string]any, 0, len(results))
		for _, res := range results {
			out = append(out, map[string]any{"size": res.Item.Size, "color": res.Item.Color, "status": res.Status})
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "results": out, "items": cart.Count()})
		return
	}
	back := url.Values{}
	back.Set("id", string(p.ID))
	back.Set("added", strconv.Itoa(added))
	if dup > 0 {
		back.Set("dup", strconv.Itoa(dup))
	}
	http.Redirect(w, r, "/product?"+back.Encode(), http.StatusFound)
}

// handleCartQuickAdd is the catalog-grid button: one unit of the default variant.
func (s *Server) handleCartQuickAdd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "form", http.StatusBadRequest)
		return
	}
	p, err := s.products.Get(r.Context(), domain.ProductID(strings.TrimSpace(r.FormValue("id"))))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !p.Available() {
		s.fail(w, r, domain.ErrOutOfStock)
		return
	}
	dv, _ := p.DefaultVariant()
	cart := usecase.OpenCart(r.Context(), s.visitorStore(w, r))
	if err := cart.IncrementOrAdd(r.Context(), p.ID, usecase.LineItemFor(p, dv, 1)); err != nil {
		s.fail(w, r, err)
		return
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "id": p.ID, "items": cart.Count()})
		return
	}
	back := r.FormValue("back")
	if !strings.HasPrefix(back, "/") || strings.HasPrefix(back, "//") {
		back = galleryPath
	}
	http.Redirect(w, r, back, http.StatusFound)
}

func (s *Server) handleCartQuantity(w http.ResponseWriter, r *http.Request) {
	s.cartMutation(w, r, func(r *http.Request, cart *usecase.Cart) error {
		idx, err := strconv.Atoi(r.FormValue("index"))
		if err != nil {
			return &domain.ValidationError{Fields: []string{"index"}}
		}
		delta, err := strconv.Atoi(r.FormValue("delta"))
		if err != nil {
			return &domain.ValidationError{Fields: []string{"delta"}}
		}
		return cart.ChangeQuantity(r.Context(), idx, delta)
	})
}

func (s *Server) handleCartRemove(w http.ResponseWriter, r *http.Request) {
	s.cartMutation(w, r, func(r *http.Request, cart *usecase.Cart) error {
		idx, err := strconv.Atoi(r.FormValue("index"))
		if err != nil {
			return &domain.ValidationError{Fields: []string{"index"}}
		}
		return cart.Remove(r.Context(), idx)
	})
}

func (s *Server) handleCartClear(w http.ResponseWriter, r *http.Request) {
	s.cartMutation(w, r, func(r *http.Request, cart *usecase.Cart) error {
		return cart.Clear(r.Context())
	})
}

func (s *Server) handleCartContact(w http.ResponseWriter, r *http.Request) {
	s.cartMutation(w, r, func(r *http.Request, cart *usecase.Cart) error {
		return cart.SaveContact(r.Context(), contactFromForm(r))
	})
}

func (s *Server) cartMutation(w http.ResponseWriter, r *http.Request, fn func(*http.Request, *usecase.Cart) error) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "form", http.StatusBadRequest)
		return
	}
	cart := usecase.OpenCart(r.Context(), s.visitorStore(w, r))
	if err := fn(r, cart); err != nil {
		s.fail(w, r, err)
		return
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "items": cart.Items(), "count": cart.Count(), "total": cart.TotalAmount()})
		return
	}
	http.Redirect(w, r, "/cart", http.StatusFound)
}

func contactFromForm(r *http.Request) domain.ContactForm {
	return domain.ContactForm{
		Name:    strings.TrimSpace(r.FormValue("name")),
		Phone:   strings.TrimSpace(r.FormValue("phone")),
		Address: strings.TrimSpace(r.FormValue("address")),
		Payment: domain.PaymentMethod(strings.TrimSpace(r.FormValue("payment"))),
	}
}

// receiptContact takes the posted form when present, else the saved one.
func receiptContact(r *http.Request, cart *usecase.Cart) domain.ContactForm {
	if r.Method == http.MethodPost {
		return contactFromForm(r)
	}
	return cart.Contact(r.Context())
}

// handleReceipt renders the printable receipt page.
func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		http.Error(w, "method", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "form", http.StatusBadRequest)
		return
	}
	cart := usecase.OpenCart(r.Context(), s.visitorStore(w, r))
	contact := receiptContact(r, cart)
	receipt, err := s.receipts.Build(cart.Items(), contact)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if r.Method == http.MethodPost {
		if err := cart.SaveContact(r.Context(), contact); err != nil {
			log.Warn().Err(err).Msg("receipt: contact form not saved")
		}
	}
	if err := cart.SaveCompareSnapshot(r.Context()); err != nil {
		log.Warn().Err(err).Msg("receipt: compare snapshot not saved")
	}
	qr := ""
	if png, err := pdf.QRCode(receipt.Number); err == nil {
		qr = "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
	}
	s.render(w, r, "receipt.html", map[string]any{"Receipt": receipt, "QR": template.URL(qr)})
}

func (s *Server) handleReceiptPDF(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		http.Error(w, "method", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "form", http.StatusBadRequest)
		return
	}
	cart := usecase.OpenCart(r.Context(), s.visitorStore(w, r))
	receipt, data, err := s.receipts.Export(r.Context(), cart.Items(), receiptContact(r, cart))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	name := strings.ReplaceAll(receipt.Number, "/", "-") + ".pdf"
	w.Header().Set("Content-Type", s.receipts.Exporter.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateItem), errors.Is(err, domain.ErrOutOfStock), errors.Is(err, domain.ErrNoVariantSelected):
		return http.StatusConflict
	case errors.Is(err, domain.ErrDataLoad):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrStorage):
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

func userMessage(err error) string {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return "Please fill in: " + strings.Join(verr.Fields, ", ")
	case errors.Is(err, domain.ErrNotFound):
		return "Product not found."
	case errors.Is(err, domain.ErrDuplicateItem):
		return "That item is already in your cart."
	case errors.Is(err, domain.ErrOutOfStock):
		return "This product is out of stock."
	case errors.Is(err, domain.ErrNoVariantSelected):
		return "Select a variant first."
	case errors.Is(err, domain.ErrStorage):
		return "We could not save your cart. Please try again."
	}
	return "Something went wrong."
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= 500 {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	if wantsJSON(r) {
		body := map[string]any{"error": userMessage(err)}
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			body["fields"] = verr.Fields
		}
		writeJSON(w, code, body)
		return
	}
	if code == http.StatusUnprocessableEntity && strings.HasPrefix(r.URL.Path, "/cart") {
		cart := usecase.OpenCart(r.Context(), s.visitorStore(w, r))
		view := usecase.ProjectCart(cart.Items(), contactFromForm(r), false)
		view.Message = userMessage(err)
		s.renderStatus(w, r, code, "cart.html", map[string]any{"View": view})
		return
	}
	http.Error(w, userMessage(err), code)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) {
	s.renderStatus(w, r, http.StatusOK, name, data)
}

func (s *Server) renderStatus(w http.ResponseWriter, r *http.Request, code int, name string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	if _, ok := data["Year"]; !ok {
		data["Year"] = time.Now().Year()
	}
	if _, ok := data["QuietMS"]; !ok {
		data["QuietMS"] = s.quietMS
	}
	if _, ok := data["StoreName"]; !ok {
		data["StoreName"] = s.storeName
	}
	if _, ok := data["CartCount"]; !ok {
		data["CartCount"] = usecase.OpenCart(r.Context(), s.visitorStore(w, r)).Count()
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		log.Error().Err(err).Str("tpl", name).Msg("render")
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
