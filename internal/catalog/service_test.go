package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"tradecatalog/internal"
	"tradecatalog/internal/logger"
	"tradecatalog/internal/pipeline"
	"tradecatalog/internal/storage"
	"tradecatalog/internal/util"
)

// memStore is an in-memory Store whose failures can be scripted per id.
type memStore struct {
	products map[string]internal.Product
	order    []string
	seq      int

	failOn  map[string]error
	refsErr error
	created []internal.Product
}

func newMemStore(seed ...internal.Product) *memStore {
	s := &memStore{products: map[string]internal.Product{}, failOn: map[string]error{}}
	for _, p := range seed {
		s.products[p.ID] = p
		s.order = append(s.order, p.ID)
	}
	return s
}

func (s *memStore) Create(_ context.Context, p internal.Product) (string, error) {
	if err := s.failOn[p.Referencia]; err != nil {
		return "", err
	}
	s.seq++
	p.ID = fmt.Sprintf("id-%d", s.seq)
	s.products[p.ID] = p
	s.order = append(s.order, p.ID)
	s.created = append(s.created, p)
	return p.ID, nil
}

func (s *memStore) Get(_ context.Context, id string) (internal.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return internal.Product{}, internal.ErrNotFound
	}
	return p, nil
}

func (s *memStore) Update(_ context.Context, id string, patch internal.Patch) error {
	if err := s.failOn[id]; err != nil {
		return err
	}
	p, ok := s.products[id]
	if !ok {
		return internal.ErrNotFound
	}
	if err := internal.ApplyPatch(&p, patch); err != nil {
		return err
	}
	s.products[id] = p
	return nil
}

func (s *memStore) Delete(_ context.Context, id string) error {
	if err := s.failOn[id]; err != nil {
		return err
	}
	if _, ok := s.products[id]; !ok {
		return internal.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *memStore) ListAll(_ context.Context, _ internal.StoreFilter) ([]internal.Product, error) {
	out := []internal.Product{}
	for _, id := range s.order {
		if p, ok := s.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memStore) ListReferences(_ context.Context, f internal.StoreFilter) (map[string]struct{}, error) {
	if s.refsErr != nil {
		return nil, s.refsErr
	}
	refs := map[string]struct{}{}
	for _, p := range s.products {
		if f.Active != nil && p.IsActive() != *f.Active {
			continue
		}
		if p.Referencia != "" {
			refs[p.Referencia] = struct{}{}
		}
	}
	return refs, nil
}

func newTestService(store Store) *Service {
	return NewService(store, nil, pipeline.NewRefGenerator("", 0), logger.Nop())
}

func mkSheet(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

func TestImportEndToEnd(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	svc := newTestService(db)
	ctx := context.Background()

	blob := mkSheet(t, [][]any{
		{"referencia", "fabrica", "unitPriceRmb", "name"},
		{"A11", "Settup", 12, "Arm"},
		{"", "Settup", 5, "Leg"},
	})

	res, err := svc.PrepareImport(ctx, blob, pipeline.ImportOptions{})
	require.NoError(t, err)
	require.Len(t, res.Candidates, 2)
	assert.Equal(t, []string{"row 3: referencia is required"}, res.Errors)

	batch, err := svc.CommitImport(ctx, res.Valid(), pipeline.ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, batch.Succeeded)
	assert.Equal(t, 0, batch.Failed)

	all, err := svc.View(ctx, internal.Criteria{}, internal.SortSpec{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "A11", all[0].Referencia)
	assert.Equal(t, "Settup", all[0].Fabrica)
	assert.Equal(t, 12.0, all[0].UnitPriceRmb)
	assert.Equal(t, "Arm", all[0].Name)
	assert.NotNil(t, all[0].CreatedAt)

	// the same sheet again now collides with the stored reference
	res, err = svc.PrepareImport(ctx, blob, pipeline.ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"row 2: referencia A11 already exists",
		"row 3: referencia is required",
	}, res.Errors)
	assert.Empty(t, res.Valid())
}

func TestPrepareImportRejectsEmptySheet(t *testing.T) {
	svc := newTestService(newMemStore())
	_, err := svc.PrepareImport(context.Background(), mkSheet(t, [][]any{{"referencia"}}), pipeline.ImportOptions{})

	var perr *internal.ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, internal.ParseEmptySheet, perr.Kind)
}

func TestCommitImportSkipsInvalidAndContinuesPastFailures(t *testing.T) {
	store := newMemStore()
	store.failOn["B2"] = errors.New("disk full")
	svc := newTestService(store)

	cands := []internal.Candidate{
		{Row: 2, Product: internal.Product{Name: "a", Referencia: "B1", Fabrica: "F", UnitPriceRmb: 1}},
		{Row: 3, Product: internal.Product{Name: "b", Referencia: "B2", Fabrica: "F", UnitPriceRmb: 1}},
		{Row: 4, Product: internal.Product{Name: "c", Referencia: "B3", Fabrica: "F", UnitPriceRmb: 1}},
		{Row: 5, Product: internal.Product{Name: "d", Referencia: "B4", Fabrica: "F"}},
		{Row: 6, Product: internal.Product{Name: "e", Referencia: "B5", Fabrica: "F", UnitPriceRmb: 1}, Errors: []string{"x"}},
	}

	res, err := svc.CommitImport(context.Background(), cands, pipeline.ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 2, res.Skipped)
	require.Len(t, res.Items, 3)
	assert.Equal(t, 3, res.Items[1].Row)
	assert.Equal(t, "disk full", res.Items[1].Error)
	assert.Equal(t, []string{"B1", "B3"}, []string{store.created[0].Referencia, store.created[1].Referencia})
}

func TestCommitImportGeneratesReferences(t *testing.T) {
	store := newMemStore(internal.Product{ID: "x", Referencia: "AUTO-00007"})
	svc := newTestService(store)
	opts := pipeline.ImportOptions{AutoReference: true}

	cands := []internal.Candidate{
		{Row: 2, Product: internal.Product{Name: "a", Fabrica: "F", UnitPriceRmb: 1}},
		{Row: 3, Product: internal.Product{Name: "b", Referencia: "KEEP", Fabrica: "F", UnitPriceRmb: 1}},
		{Row: 4, Product: internal.Product{Name: "c", Fabrica: "F", UnitPriceRmb: 1}},
	}

	res, err := svc.CommitImport(context.Background(), cands, opts)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Succeeded)

	var refs []string
	for _, p := range store.created {
		refs = append(refs, p.Referencia)
	}
	assert.Equal(t, []string{"AUTO-00008", "KEEP", "AUTO-00009"}, refs)
}

func TestCommitImportKeepsOriginalsWhenReferencesFail(t *testing.T) {
	store := newMemStore()
	store.refsErr = errors.New("connection reset")
	svc := newTestService(store)

	cands := []internal.Candidate{
		{Row: 2, Product: internal.Product{Name: "a", Fabrica: "F", UnitPriceRmb: 1}},
	}
	res, err := svc.CommitImport(context.Background(), cands, pipeline.ImportOptions{AutoReference: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
	require.Len(t, store.created, 1)
	assert.Equal(t, "", store.created[0].Referencia)
}

func TestCommitImportSkipsTakenReferences(t *testing.T) {
	store := newMemStore(
		internal.Product{ID: "x", Referencia: "A1", Active: util.BoolPtr(true)},
		internal.Product{ID: "y", Referencia: "OLD", Active: util.BoolPtr(false)},
	)
	svc := newTestService(store)

	cands := []internal.Candidate{
		{Row: 2, Product: internal.Product{Name: "a", Referencia: "A1", Fabrica: "F", UnitPriceRmb: 1}},
		{Row: 3, Product: internal.Product{Name: "b", Referencia: "A1", Fabrica: "F", UnitPriceRmb: 1}},
		{Row: 4, Product: internal.Product{Name: "c", Referencia: "B1", Fabrica: "F", UnitPriceRmb: 1}},
		{Row: 5, Product: internal.Product{Name: "d", Referencia: "B1", Fabrica: "F", UnitPriceRmb: 1}},
		{Row: 6, Product: internal.Product{Name: "e", Referencia: "OLD", Fabrica: "F", UnitPriceRmb: 1}},
	}
	res, err := svc.CommitImport(context.Background(), cands, pipeline.ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 3, res.Skipped)

	var refs []string
	for _, p := range store.created {
		refs = append(refs, p.Referencia)
	}
	assert.Equal(t, []string{"B1", "OLD"}, refs)
}

func TestCommitImportFailsWhenReferencesUnavailable(t *testing.T) {
	store := newMemStore()
	store.refsErr = errors.New("connection reset")
	svc := newTestService(store)

	cands := []internal.Candidate{
		{Row: 2, Product: internal.Product{Name: "a", Referencia: "A1", Fabrica: "F", UnitPriceRmb: 1}},
	}
	_, err := svc.CommitImport(context.Background(), cands, pipeline.ImportOptions{})
	assert.ErrorIs(t, err, store.refsErr)
	assert.Empty(t, store.created)
}

func TestCreateValidates(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.Create(ctx, internal.Product{Name: "a"})
	assert.ErrorIs(t, err, internal.ErrValidation)
	var verr *internal.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"referencia is required", "fabrica is required", "unitPriceRmb must be greater than 0"}, verr.Messages)

	id, err := svc.Create(ctx, internal.Product{Description: " desc ", Referencia: " R ", Fabrica: "F", UnitPriceRmb: 2})
	require.NoError(t, err)
	got, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "R", got.Referencia)
	assert.Equal(t, "desc", got.Description)
}

func TestUpdateReplacesFields(t *testing.T) {
	store := newMemStore(internal.Product{ID: "p1", Name: "a", Referencia: "R", Fabrica: "F", UnitPriceRmb: 1, Marca: "M"})
	svc := newTestService(store)
	ctx := context.Background()

	err := svc.Update(ctx, "p1", internal.Product{Name: "b", Referencia: "R", Fabrica: "F", UnitPriceRmb: 3})
	require.NoError(t, err)
	got, _ := svc.Get(ctx, "p1")
	assert.Equal(t, "b", got.Name)
	assert.Equal(t, "", got.Marca)
	assert.Equal(t, 3.0, got.UnitPriceRmb)

	err = svc.Update(ctx, "p1", internal.Product{Name: "b"})
	assert.ErrorIs(t, err, internal.ErrValidation)

	err = svc.Update(ctx, "missing", internal.Product{Name: "b", Referencia: "R", Fabrica: "F", UnitPriceRmb: 3})
	assert.ErrorIs(t, err, internal.ErrNotFound)
}

func TestSetField(t *testing.T) {
	store := newMemStore(internal.Product{ID: "p1", Name: "a", UnitPriceRmb: 9})
	svc := newTestService(store)
	ctx := context.Background()

	require.NoError(t, svc.SetField(ctx, "p1", "unitPriceRmb", "1.234,5"))
	assert.Equal(t, 1234.5, store.products["p1"].UnitPriceRmb)

	require.NoError(t, svc.SetField(ctx, "p1", "unitPriceRmb", "  "))
	assert.Equal(t, 0.0, store.products["p1"].UnitPriceRmb)

	require.NoError(t, svc.SetField(ctx, "p1", "name", " novo "))
	assert.Equal(t, "novo", store.products["p1"].Name)

	err := svc.SetField(ctx, "p1", "unitPriceRmb", "abc")
	assert.ErrorIs(t, err, internal.ErrValidation)
	assert.Equal(t, 0.0, store.products["p1"].UnitPriceRmb)

	err = svc.SetField(ctx, "p1", "colour", "red")
	assert.ErrorIs(t, err, internal.ErrUnknownField)

	err = svc.SetField(ctx, "p1", "createdAt", "2024-01-01")
	assert.ErrorIs(t, err, internal.ErrValidation)
}

func TestBulkOperationsContinuePastFailures(t *testing.T) {
	store := newMemStore(
		internal.Product{ID: "a"},
		internal.Product{ID: "b"},
		internal.Product{ID: "c"},
	)
	store.failOn["b"] = errors.New("locked")
	svc := newTestService(store)
	ctx := context.Background()

	res, err := svc.BulkSetActive(ctx, []string{"a", "b", "c"}, false)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	assert.False(t, store.products["a"].IsActive())
	assert.True(t, store.products["b"].IsActive())
	assert.False(t, store.products["c"].IsActive())

	res, err = svc.BulkDelete(ctx, []string{"a", "b", "c", "zzz"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, "locked", res.Items[1].Error)
	assert.Equal(t, "product not found", res.Items[3].Error)
	assert.Len(t, store.products, 1)

	_, err = svc.BulkDelete(ctx, nil)
	assert.ErrorIs(t, err, internal.ErrEmptySelection)
}

func TestServiceViewAndFacets(t *testing.T) {
	store := newMemStore(sampleCatalog()...)
	svc := newTestService(store)
	ctx := context.Background()

	got, err := svc.View(ctx, internal.Criteria{Search: "garrafa"}, internal.SortSpec{Column: "name", Direction: internal.SortAsc})
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "1"}, ids(got))

	f, err := svc.Facets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Other", "Settup"}, f.Fabricas)
}
