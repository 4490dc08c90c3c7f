package catalog

import (
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"tradecatalog/internal"
	"tradecatalog/internal/pipeline"
	"tradecatalog/internal/util"
)

type Store interface {
	Create(ctx context.Context, p internal.Product) (string, error)
	Get(ctx context.Context, id string) (internal.Product, error)
	Update(ctx context.Context, id string, patch internal.Patch) error
	Delete(ctx context.Context, id string) error
	ListAll(ctx context.Context, filter internal.StoreFilter) ([]internal.Product, error)
	ListReferences(ctx context.Context, filter internal.StoreFilter) (map[string]struct{}, error)
}

type Service struct {
	store  Store
	sorter *Sorter
	refs   pipeline.RefGenerator
	log    zerolog.Logger
}

func NewService(store Store, sorter *Sorter, refs pipeline.RefGenerator, log zerolog.Logger) *Service {
	if sorter == nil {
		sorter = defaultSorter
	}
	return &Service{store: store, sorter: sorter, refs: refs, log: log.With().Str("component", "catalog").Logger()}
}

func (s *Service) View(ctx context.Context, c internal.Criteria, spec internal.SortSpec) ([]internal.Product, error) {
	all, err := s.store.ListAll(ctx, internal.StoreFilter{})
	if err != nil {
		s.log.Error().Err(err).Msg("list products")
		return nil, err
	}
	return s.sorter.View(all, c, spec), nil
}

func (s *Service) Facets(ctx context.Context) (Facets, error) {
	all, err := s.store.ListAll(ctx, internal.StoreFilter{})
	if err != nil {
		s.log.Error().Err(err).Msg("list products")
		return Facets{}, err
	}
	return BuildFacets(all), nil
}

func (s *Service) Get(ctx context.Context, id string) (internal.Product, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, p internal.Product) (string, error) {
	internal.TrimText(&p)
	p.ID, p.CreatedAt, p.UpdatedAt = "", nil, nil
	if err := pipeline.CheckProduct(p); err != nil {
		return "", err
	}
	id, err := s.store.Create(ctx, p)
	if err != nil {
		s.log.Error().Err(err).Str("referencia", p.Referencia).Msg("create product")
		return "", err
	}
	s.log.Info().Str("id", id).Str("referencia", p.Referencia).Msg("product created")
	return id, nil
}

func (s *Service) Update(ctx context.Context, id string, p internal.Product) error {
	internal.TrimText(&p)
	if err := pipeline.CheckProduct(p); err != nil {
		return err
	}
	if err := s.store.Update(ctx, id, internal.PatchFrom(p)); err != nil {
		s.log.Error().Err(err).Str("id", id).Msg("update product")
		return err
	}
	return nil
}

// SetField applies an inline single-cell edit. Numeric fields treat blank as 0
// and reject text that is not a number.
func (s *Service) SetField(ctx context.Context, id, key, raw string) error {
	f, ok := internal.LookupField(key)
	if !ok {
		return fmt.Errorf("%w: %s", internal.ErrUnknownField, key)
	}
	var scratch internal.Product
	if err := f.SetString(&scratch, raw); err != nil {
		return err
	}
	if err := s.store.Update(ctx, id, internal.Patch{key: f.Value(scratch)}); err != nil {
		s.log.Error().Err(err).Str("id", id).Str("field", key).Msg("inline edit")
		return err
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		s.log.Error().Err(err).Str("id", id).Msg("delete product")
		return err
	}
	return nil
}

func (s *Service) SetActive(ctx context.Context, id string, active bool) error {
	if err := s.store.Update(ctx, id, internal.Patch{"active": active}); err != nil {
		s.log.Error().Err(err).Str("id", id).Bool("active", active).Msg("set active")
		return err
	}
	return nil
}

// BulkDelete deletes ids one at a time. A failure does not stop the loop and
// earlier deletions are kept.
func (s *Service) BulkDelete(ctx context.Context, ids []string) (internal.BatchResult, error) {
	return s.bulk(ctx, ids, s.Delete)
}

func (s *Service) BulkSetActive(ctx context.Context, ids []string, active bool) (internal.BatchResult, error) {
	return s.bulk(ctx, ids, func(ctx context.Context, id string) error {
		return s.SetActive(ctx, id, active)
	})
}

func (s *Service) bulk(ctx context.Context, ids []string, op func(context.Context, string) error) (internal.BatchResult, error) {
	res := internal.BatchResult{Items: []internal.BatchItem{}}
	if len(ids) == 0 {
		return res, internal.ErrEmptySelection
	}
	for _, id := range ids {
		res.Record(id, 0, op(ctx, id))
	}
	return res, nil
}

// PrepareImport parses an uploaded sheet and flags references already used
// by active products.
func (s *Service) PrepareImport(ctx context.Context, content []byte, opts pipeline.ImportOptions) (pipeline.ImportResult, error) {
	res, err := pipeline.ParseSheet(content, opts)
	if err != nil {
		s.log.Warn().Err(err).Msg("import rejected")
		return pipeline.ImportResult{}, err
	}
	existing, err := s.store.ListReferences(ctx, internal.StoreFilter{Active: util.BoolPtr(true)})
	if err != nil {
		s.log.Error().Err(err).Msg("list references")
		return pipeline.ImportResult{}, err
	}
	res.MarkDuplicates(existing)
	s.log.Info().Int("candidates", len(res.Candidates)).Int("errors", len(res.Errors)).Msg("import parsed")
	return res, nil
}

// CommitImport stores the candidates that pass validation, one at a time.
// Invalid candidates and references already taken by an active product or an
// earlier candidate are counted as skipped. With AutoReference, blank
// references are generated first; if that fails the candidates keep their
// original values.
func (s *Service) CommitImport(ctx context.Context, cands []internal.Candidate, opts pipeline.ImportOptions) (internal.BatchResult, error) {
	res := internal.BatchResult{Items: []internal.BatchItem{}}

	valid := make([]internal.Candidate, 0, len(cands))
	for _, c := range cands {
		internal.TrimText(&c.Product)
		if !c.Valid() || len(pipeline.Validate(c.Product, opts)) > 0 {
			res.Skipped++
			continue
		}
		valid = append(valid, c)
	}
	valid, err := s.dropDuplicates(ctx, valid, &res)
	if err != nil {
		return res, err
	}
	if len(valid) == 0 {
		return res, nil
	}

	if opts.AutoReference {
		valid = s.assignReferences(ctx, valid)
	}

	for _, c := range valid {
		p := c.Product
		p.ID, p.CreatedAt, p.UpdatedAt = "", nil, nil
		id, err := s.store.Create(ctx, p)
		if err != nil {
			s.log.Error().Err(err).Int("row", c.Row).Msg("import row")
		}
		res.Record(id, c.Row, err)
	}
	s.log.Info().Int("created", res.Succeeded).Int("failed", res.Failed).Int("skipped", res.Skipped).Msg("import committed")
	return res, nil
}

func (s *Service) dropDuplicates(ctx context.Context, cands []internal.Candidate, res *internal.BatchResult) ([]internal.Candidate, error) {
	if !slices.ContainsFunc(cands, func(c internal.Candidate) bool { return c.Referencia != "" }) {
		return cands, nil
	}
	existing, err := s.store.ListReferences(ctx, internal.StoreFilter{Active: util.BoolPtr(true)})
	if err != nil {
		s.log.Error().Err(err).Msg("list references")
		return nil, err
	}
	checked := pipeline.ImportResult{Candidates: cands}
	checked.MarkDuplicates(existing)
	out := make([]internal.Candidate, 0, len(cands))
	for _, c := range checked.Candidates {
		if !c.Valid() {
			s.log.Warn().Int("row", c.Row).Strs("errors", c.Errors).Msg("import row skipped")
			res.Skipped++
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *Service) assignReferences(ctx context.Context, cands []internal.Candidate) []internal.Candidate {
	existing, err := s.store.ListReferences(ctx, internal.StoreFilter{})
	if err != nil {
		s.log.Warn().Err(&internal.ReferenceError{Err: err}).Msg("importing with original references")
		return cands
	}
	return s.refs.AssignMissing(cands, existing)
}
