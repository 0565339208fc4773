package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rowkit/internal/bind"
	"github.com/roach88/rowkit/internal/record"
	"github.com/roach88/rowkit/internal/testutil"
)

func TestBatch_MultipleUpdatesThenSelect(t *testing.T) {
	s, _ := createTestStore(t,
		testutil.Product{CategoryID: 1, SubCategory: true, Name: "Product 1", Price: "5.99"},
		testutil.Product{CategoryID: 2, SubCategory: false, Name: "Product 2", Price: "6.99"},
		testutil.Product{CategoryID: 3, SubCategory: true, Name: "Product 3", Price: "7.99"},
	)

	items := []BatchItem{
		{
			ID:    1,
			Query: "UPDATE Products SET Price = @Price, Name = @Name WHERE CategoryID = @CatID",
			Params: []bind.Parameter{
				bind.P("@Price", "2.99", bind.TypeCurrency),
				bind.P("@Name", "Test", bind.TypeVarWChar),
				bind.P("@CatID", "1", bind.TypeBigInt),
			},
			Kind: QueryNonQuery,
		},
		{
			ID:    2,
			Query: "UPDATE Products SET Price = @Price WHERE CategoryID = @CatID",
			Params: []bind.Parameter{
				bind.P("@Price", "1.21", bind.TypeCurrency),
				bind.P("@CatID", "2", bind.TypeBigInt),
			},
			Kind: QueryNonQuery,
		},
		{
			ID:    3,
			Query: "SELECT * FROM Products ORDER BY ID",
			Kind:  QueryMany,
		},
	}

	results, err := s.Batch(context.Background(), items)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, int64(1), results[1].Outcome.RowsAffected)
	assert.Equal(t, int64(1), results[2].Outcome.RowsAffected)

	rows := results[3].Records
	require.Len(t, rows, 3)
	assertProduct(t, rows[0], 1, true, "Test", "2.99")
	assertProduct(t, rows[1], 2, false, "Product 2", "1.21")
	assertProduct(t, rows[2], 3, true, "Product 3", "7.99")
}

func assertProduct(t *testing.T, rec *record.Record, category int64, sub bool, name, price string) {
	t.Helper()
	assert.Equal(t, record.Int(category), rec.Value("CategoryID"))
	assert.Equal(t, record.Bool(sub), rec.Value("SubCategory"))
	assert.Equal(t, record.Text(name), rec.Value("Name"))
	assert.Equal(t, price, rec.Value("Price").String())
}

func TestBatch_AllKinds(t *testing.T) {
	base, _ := createTestStore(t, sampleProducts()...)
	s := base.WithReturnIdentity()

	items := []BatchItem{
		{ID: 10, Query: "INSERT INTO Products (Name) VALUES (@Name)", Params: []bind.Parameter{bind.P("@Name", "Extra", bind.TypeVarChar)}, Kind: QueryNonQuery},
		{ID: 20, Query: "SELECT Name FROM Products WHERE ID = last_insert_rowid()", Kind: QuerySingle},
		{ID: 30, Query: "SELECT COUNT(*) FROM Products", Kind: QueryScalar},
		{ID: 40, Query: "SELECT * FROM Products WHERE ID < 0", Kind: QueryMany},
		{ID: 50, Query: "SELECT * FROM Products WHERE ID < 0", Kind: QuerySingle},
	}

	results, err := s.Batch(context.Background(), items)
	require.NoError(t, err)
	require.Len(t, results, 5)

	require.NotNil(t, results[10].Outcome.Identity)
	assert.Equal(t, int64(4), *results[10].Outcome.Identity)

	require.NotNil(t, results[20].Record)
	assert.Equal(t, record.Text("Extra"), results[20].Record.Value("Name"))

	assert.Equal(t, record.Int(4), results[30].Value)

	assert.NotNil(t, results[40].Records)
	assert.Empty(t, results[40].Records)

	assert.Nil(t, results[50].Record)
	assert.Equal(t, QuerySingle, results[50].Kind)
}

func TestBatch_EmptyBatch(t *testing.T) {
	s, _ := createTestStore(t)

	results, err := s.Batch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestValidateBatch(t *testing.T) {
	update := "UPDATE Products SET Price = @Price WHERE CategoryID = @CatID"
	price := bind.P("@Price", "2.99", bind.TypeCurrency)

	tests := []struct {
		name  string
		items []BatchItem
		field BatchField
		index int
	}{
		{
			name:  "empty query",
			items: []BatchItem{{ID: 1, Kind: QueryNonQuery}},
			field: FieldQuery,
		},
		{
			name:  "zero id",
			items: []BatchItem{{Query: "SELECT 1", Kind: QueryScalar}},
			field: FieldID,
		},
		{
			name:  "zero id reported before missing params",
			items: []BatchItem{{Query: update}},
			field: FieldID,
		},
		{
			name:  "placeholders without params",
			items: []BatchItem{{ID: 1, Query: update, Kind: QueryNonQuery}},
			field: FieldParams,
		},
		{
			name:  "empty params slice",
			items: []BatchItem{{ID: 1, Query: update, Params: []bind.Parameter{}, Kind: QueryNonQuery}},
			field: FieldParams,
		},
		{
			name:  "empty param entry",
			items: []BatchItem{{ID: 1, Query: update, Params: []bind.Parameter{price, {}}, Kind: QueryNonQuery}},
			field: FieldParams,
		},
		{
			name:  "unset kind",
			items: []BatchItem{{ID: 1, Query: update, Params: []bind.Parameter{price}}},
			field: FieldKind,
		},
		{
			name:  "unknown kind",
			items: []BatchItem{{ID: 1, Query: "SELECT 1", Kind: QueryKind(99)}},
			field: FieldKind,
		},
		{
			name: "second item invalid",
			items: []BatchItem{
				{ID: 1, Query: "SELECT 1", Kind: QueryScalar},
				{ID: 2, Query: "", Kind: QueryScalar},
			},
			field: FieldQuery,
			index: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBatch(tt.items)
			require.Error(t, err)

			var mfe *MissingFieldError
			require.ErrorAs(t, err, &mfe)
			assert.Equal(t, tt.field, mfe.Field)
			assert.Equal(t, tt.index, mfe.Index)
			assert.True(t, IsMissingFieldError(err))
		})
	}
}

func TestValidateBatch_QueryWithoutPlaceholdersNeedsNoParams(t *testing.T) {
	err := ValidateBatch([]BatchItem{{ID: 1, Query: "SELECT * FROM Products", Kind: QueryMany}})
	assert.NoError(t, err)
}

func TestValidateBatch_DuplicateID(t *testing.T) {
	err := ValidateBatch([]BatchItem{
		{ID: 7, Query: "SELECT 1", Kind: QueryScalar},
		{ID: 8, Query: "SELECT 2", Kind: QueryScalar},
		{ID: 7, Query: "SELECT 3", Kind: QueryScalar},
	})
	require.Error(t, err)

	var dke *DuplicateKeyError
	require.ErrorAs(t, err, &dke)
	assert.Equal(t, 7, dke.ID)
	assert.Equal(t, 2, dke.Index)
	assert.True(t, IsDuplicateKeyError(err))
	assert.False(t, IsMissingFieldError(err))
}

func TestBatch_InvalidBatchExecutesNothing(t *testing.T) {
	path := testutil.ProductsDB(t, sampleProducts()...)
	opener := &flakyOpener{next: SQLiteOpener{}}
	s, err := OpenPath(path, WithOpener(opener))
	require.NoError(t, err)

	items := []BatchItem{
		{ID: 1, Query: "DELETE FROM Products", Kind: QueryNonQuery},
		{ID: 1, Query: "DELETE FROM Products", Kind: QueryNonQuery},
	}
	_, err = s.Batch(context.Background(), items)
	require.Error(t, err)
	assert.True(t, IsDuplicateKeyError(err))

	assert.Equal(t, 0, opener.Calls())
	assert.Equal(t, 3, testutil.CountRows(t, path, "Products"))
}

func TestBatch_ExecutionErrorAbortsWithoutResults(t *testing.T) {
	s, path := createTestStore(t, sampleProducts()...)

	items := []BatchItem{
		{ID: 1, Query: "DELETE FROM Products WHERE ID = 1", Kind: QueryNonQuery},
		{ID: 2, Query: "SELECT * FROM NoSuchTable", Kind: QueryMany},
		{ID: 3, Query: "DELETE FROM Products", Kind: QueryNonQuery},
	}
	results, err := s.Batch(context.Background(), items)
	require.Error(t, err)
	assert.Nil(t, results)
	assert.True(t, IsExecutionError(err))

	// Items before the failure ran; items after it did not.
	assert.Equal(t, 2, testutil.CountRows(t, path, "Products"))
}

func TestBatch_UsesOneConnection(t *testing.T) {
	path := testutil.ProductsDB(t, sampleProducts()...)
	opener := &flakyOpener{next: SQLiteOpener{}}
	s, err := OpenPath(path, WithOpener(opener))
	require.NoError(t, err)

	items := []BatchItem{
		{ID: 1, Query: "INSERT INTO Products (Name) VALUES ('x')", Kind: QueryNonQuery},
		{ID: 2, Query: "SELECT last_insert_rowid()", Kind: QueryScalar},
	}
	results, err := s.Batch(context.Background(), items)
	require.NoError(t, err)
	assert.Equal(t, 1, opener.Calls())
	assert.Equal(t, record.Int(4), results[2].Value)
}

func TestQueryKind(t *testing.T) {
	for _, name := range []string{"single", "many", "nonquery", "scalar"} {
		k, err := ParseQueryKind(name)
		require.NoError(t, err)
		assert.Equal(t, name, k.String())
	}

	k, err := ParseQueryKind("Non-Query")
	require.NoError(t, err)
	assert.Equal(t, QueryNonQuery, k)

	_, err = ParseQueryKind("reader")
	assert.Error(t, err)

	assert.Equal(t, "QueryKind(42)", QueryKind(42).String())
}

func TestBatchResult_MarshalJSON(t *testing.T) {
	id := int64(5)
	results := map[int]BatchResult{
		1: {Kind: QueryNonQuery, Outcome: NonQueryOutcome{RowsAffected: 1, Identity: &id}},
		2: {Kind: QueryScalar, Value: record.Int(3)},
		3: {Kind: QuerySingle},
		4: {Kind: QueryMany, Records: []*record.Record{record.New(record.F("A", record.Text("x")))}},
	}

	data, err := json.Marshal(results)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"1": {"kind": "nonquery", "result": {"rows_affected": 1, "identity": 5}},
		"2": {"kind": "scalar", "result": 3},
		"3": {"kind": "single", "result": null},
		"4": {"kind": "many", "result": [{"A": "x"}]}
	}`, string(data))
}
