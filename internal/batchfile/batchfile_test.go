package batchfile

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rowkit/internal/bind"
	"github.com/roach88/rowkit/internal/record"
	"github.com/roach88/rowkit/internal/store"
	"github.com/roach88/rowkit/internal/testutil"
)

func testdata(name string) string {
	return filepath.Join("testdata", name)
}

func TestLoad_YAML(t *testing.T) {
	items, err := Load(testdata("updates.yaml"))
	require.NoError(t, err)
	require.Len(t, items, 3)

	first := items[0]
	assert.Equal(t, 1, first.ID)
	assert.Equal(t, store.QueryNonQuery, first.Kind)
	require.Len(t, first.Params, 3)
	assert.Equal(t, "@Price", first.Params[0].Name())
	assert.Equal(t, bind.TypeCurrency, first.Params[0].Type())
	assert.Equal(t, "2.99", first.Params[0].Value())
	assert.Equal(t, bind.TypeBigInt, first.Params[2].Type())
	assert.Equal(t, 1, first.Params[2].Value())

	assert.Equal(t, store.QueryMany, items[2].Kind)
	assert.Nil(t, items[2].Params)
}

func TestLoad_CUE(t *testing.T) {
	items, err := Load(testdata("updates.cue"))
	require.NoError(t, err)
	require.Len(t, items, 3)

	for i, cat := range []int{1, 2} {
		assert.Equal(t, i+1, items[i].ID)
		assert.Equal(t, store.QueryNonQuery, items[i].Kind)
		require.Len(t, items[i].Params, 2)
		assert.Equal(t, cat, items[i].Params[1].Value())
	}
	assert.Equal(t, store.QueryScalar, items[2].Kind)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		file string
		code string
	}{
		{"missing.yaml", ErrCodeNotFound},
		{"typo.yaml", ErrCodeParseFailed},
		{"badtype.yaml", ErrCodeInvalidParam},
		{"empty.yaml", ErrCodeNoItems},
		{"incomplete.cue", ErrCodeBuildFailed},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			_, err := Load(testdata(tt.file))
			require.Error(t, err)

			var le *LoadError
			require.ErrorAs(t, err, &le)
			assert.Equal(t, tt.code, le.Code)
			assert.True(t, IsLoadError(err))
		})
	}
}

func TestLoad_CUEErrorCarriesPosition(t *testing.T) {
	_, err := Load(testdata("incomplete.cue"))
	require.Error(t, err)

	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.True(t, le.Pos.IsValid())
	assert.Contains(t, err.Error(), "incomplete.cue")
}

func TestLoad_NullParamIsLeftForValidation(t *testing.T) {
	items, err := Load(testdata("nullparam.yaml"))
	require.NoError(t, err)
	require.Len(t, items[0].Params, 2)
	assert.True(t, items[0].Params[1].IsZero())

	err = store.ValidateBatch(items)
	var mfe *store.MissingFieldError
	require.ErrorAs(t, err, &mfe)
	assert.Equal(t, store.FieldParams, mfe.Field)
}

func TestBatchItems_MissingKindIsLeftForValidation(t *testing.T) {
	f := &File{Items: []Item{{ID: 1, Query: "SELECT 1"}}}
	items, err := f.BatchItems()
	require.NoError(t, err)
	assert.Equal(t, store.QueryUnset, items[0].Kind)

	err = store.ValidateBatch(items)
	var mfe *store.MissingFieldError
	require.ErrorAs(t, err, &mfe)
	assert.Equal(t, store.FieldKind, mfe.Field)
}

func TestLoad_UnknownKindReportedInItemOrder(t *testing.T) {
	items, err := Load(testdata("badkind.yaml"))
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, store.QueryUnset, items[2].Kind)

	err = store.ValidateBatch(items)
	var mfe *store.MissingFieldError
	require.ErrorAs(t, err, &mfe)
	assert.Equal(t, 1, mfe.Index)
	assert.Equal(t, 2, mfe.ID)
	assert.Equal(t, store.FieldQuery, mfe.Field)

	// With the empty query fixed, the unknown kind is the first violation.
	items[1].Query = "UPDATE Products SET Price = 1"
	err = store.ValidateBatch(items)
	require.ErrorAs(t, err, &mfe)
	assert.Equal(t, 2, mfe.Index)
	assert.Equal(t, store.FieldKind, mfe.Field)
}

func TestLoad_EarlierViolationBeatsUnknownParamType(t *testing.T) {
	_, err := Load(testdata("badtype_late.yaml"))
	require.Error(t, err)
	assert.True(t, store.IsDuplicateKeyError(err))
	assert.False(t, IsLoadError(err))
}

func TestLoad_RunsAgainstStore(t *testing.T) {
	path := testutil.ProductsDB(t,
		testutil.Product{CategoryID: 1, SubCategory: true, Name: "Product 1", Price: "5.99"},
		testutil.Product{CategoryID: 2, Name: "Product 2", Price: "6.99"},
		testutil.Product{CategoryID: 3, SubCategory: true, Name: "Product 3", Price: "7.99"},
	)
	s, err := store.OpenPath(path)
	require.NoError(t, err)

	items, err := Load(testdata("updates.yaml"))
	require.NoError(t, err)

	results, err := s.Batch(context.Background(), items)
	require.NoError(t, err)

	rows := results[3].Records
	require.Len(t, rows, 3)
	assert.Equal(t, record.Text("Test"), rows[0].Value("Name"))
	assert.Equal(t, "2.99", rows[0].Value("Price").String())
	assert.Equal(t, "1.21", rows[1].Value("Price").String())
	assert.Equal(t, "7.99", rows[2].Value("Price").String())
}
