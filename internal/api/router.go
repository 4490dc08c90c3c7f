package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"tradecatalog/internal"
	"tradecatalog/internal/catalog"
	"tradecatalog/internal/pipeline"
)

type Catalog interface {
	View(ctx context.Context, c internal.Criteria, spec internal.SortSpec) ([]internal.Product, error)
	Facets(ctx context.Context) (catalog.Facets, error)
	Get(ctx context.Context, id string) (internal.Product, error)
	Create(ctx context.Context, p internal.Product) (string, error)
	Update(ctx context.Context, id string, p internal.Product) error
	SetField(ctx context.Context, id, key, raw string) error
	Delete(ctx context.Context, id string) error
	BulkDelete(ctx context.Context, ids []string) (internal.BatchResult, error)
	BulkSetActive(ctx context.Context, ids []string, active bool) (internal.BatchResult, error)
	PrepareImport(ctx context.Context, content []byte, opts pipeline.ImportOptions) (pipeline.ImportResult, error)
	CommitImport(ctx context.Context, cands []internal.Candidate, opts pipeline.ImportOptions) (internal.BatchResult, error)
}

type MetadataStore interface {
	SetMetadata(key, value string) error
}

type Options struct {
	Import          pipeline.ImportOptions
	CSV             pipeline.CSVOptions
	MaxUploadBytes  int64
	RateLimitPerMin int
}

type RouterParams struct {
	Catalog  Catalog
	XLSX     *pipeline.XLSXExporter
	Metadata MetadataStore
	Options  Options
	Logger   zerolog.Logger
}

type handler struct {
	catalog Catalog
	xlsx    *pipeline.XLSXExporter
	meta    MetadataStore
	opts    Options
	log     zerolog.Logger
}

const defaultMaxUploadBytes = 20 << 20

func NewRouter(p RouterParams) http.Handler {
	if p.Options.MaxUploadBytes <= 0 {
		p.Options.MaxUploadBytes = defaultMaxUploadBytes
	}
	h := &handler{
		catalog: p.Catalog,
		xlsx:    p.XLSX,
		meta:    p.Metadata,
		opts:    p.Options,
		log:     p.Logger.With().Str("component", "api").Logger(),
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	r.Use(RequestLogger(h.log))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.listProducts)
		r.Post("/products", h.createProduct)
		r.Post("/products/bulk/{action}", h.bulkProducts)
		r.Get("/products/{id}", h.getProduct)
		r.Put("/products/{id}", h.updateProduct)
		r.Delete("/products/{id}", h.deleteProduct)
		r.Patch("/products/{id}/fields/{field}", h.setField)
		r.Get("/facets", h.facets)
		r.Get("/imports/template.xlsx", h.importTemplate)

		r.Group(func(r chi.Router) {
			if h.opts.RateLimitPerMin > 0 {
				r.Use(rateLimiter(h.opts.RateLimitPerMin))
			}
			r.Post("/imports/preview", h.previewImport)
			r.Post("/imports/commit", h.commitImport)
			r.Get("/exports/products.csv", h.exportCSV)
			r.Get("/exports/products.xlsx", h.exportXLSX)
		})
	})
	return r
}
