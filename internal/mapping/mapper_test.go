package mapping

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rowkit/internal/record"
	"github.com/roach88/rowkit/internal/store"
	"github.com/roach88/rowkit/internal/testutil"
)

type fake struct {
	ID              int64
	SomeProperty    string
	ExcludedIsAdmin bool
	Implicit        string
	ThisIsATest     string
}

func fakeFields() *Fields[fake] {
	return NewFields[fake]().
		Int("ID", func(f *fake, v int64) { f.ID = v }).
		Text("SomeProperty", func(f *fake, v string) { f.SomeProperty = v }).
		Bool("ExcludedIsAdmin", func(f *fake, v bool) { f.ExcludedIsAdmin = v }).
		Text("Implicit", func(f *fake, v string) { f.Implicit = v }).
		Text("ThisIsATest", func(f *fake, v string) { f.ThisIsATest = v })
}

func fakeMapping() *ObjectMapping {
	return NewObjectMapping().
		Rename("id", "ID").
		Rename("some_column", "SomeProperty").
		Rename("This_is_a_Test", "thisisatest").
		Exclude("ExcludedIsAdmin")
}

func TestMap_RenamesExclusionsAndPassthrough(t *testing.T) {
	rec := record.New(
		record.F("id", record.Int(42)),
		record.F("some_column", record.Text("Test")),
		record.F("ExcludedIsAdmin", record.Bool(true)),
		record.F("Implicit", record.Text("Implicit")),
		record.F("This_is_a_Test", record.Text("Folded")),
	)

	got, err := New(fakeFields(), fakeMapping()).Map(rec)
	require.NoError(t, err)

	assert.Equal(t, fake{
		ID:              42,
		SomeProperty:    "Test",
		ExcludedIsAdmin: false,
		Implicit:        "Implicit",
		ThisIsATest:     "Folded",
	}, got)
}

func TestMap_UnknownColumnsAreDropped(t *testing.T) {
	rec := record.New(
		record.F("ID", record.Int(1)),
		record.F("NotAField", record.Text("ignored")),
	)

	got, err := New(fakeFields(), nil).Map(rec)
	require.NoError(t, err)
	assert.Equal(t, fake{ID: 1}, got)
}

func TestMap_KeyMatchesCaseInsensitively(t *testing.T) {
	rec := record.New(
		record.F("implicit", record.Text("lower")),
		record.F("SOMEPROPERTY", record.Text("upper")),
	)

	got, err := New(fakeFields(), NewObjectMapping()).Map(rec)
	require.NoError(t, err)
	assert.Equal(t, "lower", got.Implicit)
	assert.Equal(t, "upper", got.SomeProperty)
}

func TestMap_RenameToMissingFieldFallsBackToKey(t *testing.T) {
	m := NewObjectMapping().Rename("Implicit", "Nowhere")
	rec := record.New(record.F("Implicit", record.Text("kept")))

	got, err := New(fakeFields(), m).Map(rec)
	require.NoError(t, err)
	assert.Equal(t, "kept", got.Implicit)
}

func TestMap_ExclusionIsExactMatch(t *testing.T) {
	m := NewObjectMapping().Exclude("Implicit")
	rec := record.New(record.F("IMPLICIT", record.Text("still mapped")))

	got, err := New(fakeFields(), m).Map(rec)
	require.NoError(t, err)
	assert.Equal(t, "still mapped", got.Implicit)
}

func TestMap_NullLeavesDefault(t *testing.T) {
	rec := record.New(
		record.F("ID", record.Null{}),
		record.F("Implicit", nil),
	)

	got, err := New(fakeFields(), nil).Map(rec)
	require.NoError(t, err)
	assert.Equal(t, fake{}, got)
}

func TestMap_ConvertsCompatibleKinds(t *testing.T) {
	rec := record.New(
		record.F("ID", record.Text("17")),
		record.F("ExcludedIsAdmin", record.Int(1)),
		record.F("Implicit", record.Int(5)),
	)

	got, err := New(fakeFields(), nil).Map(rec)
	require.NoError(t, err)
	assert.Equal(t, int64(17), got.ID)
	assert.True(t, got.ExcludedIsAdmin)
	assert.Equal(t, "5", got.Implicit)
}

func TestMap_IncompatibleValueIsFieldError(t *testing.T) {
	rec := record.New(record.F("id", record.Text("forty-two")))

	_, err := New(fakeFields(), fakeMapping()).Map(rec)
	require.Error(t, err)

	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "ID", fe.Field)
	assert.Equal(t, "id", fe.Column)
	assert.Equal(t, record.KindInt, fe.Kind)
	assert.True(t, IsFieldError(err))
	assert.True(t, record.IsConversionError(err))
}

func TestMap_NilRecord(t *testing.T) {
	got, err := New(fakeFields(), nil).Map(nil)
	require.NoError(t, err)
	assert.Equal(t, fake{}, got)
}

func TestMapMany(t *testing.T) {
	recs := []*record.Record{
		record.New(record.F("id", record.Int(1)), record.F("some_column", record.Text("a"))),
		record.New(record.F("id", record.Int(2)), record.F("some_column", record.Text("b"))),
	}

	got, err := New(fakeFields(), fakeMapping()).MapMany(recs)
	require.NoError(t, err)
	assert.Equal(t, []fake{{ID: 1, SomeProperty: "a"}, {ID: 2, SomeProperty: "b"}}, got)

	empty, err := New(fakeFields(), fakeMapping()).MapMany(nil)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestMapMany_ReportsFailingRecord(t *testing.T) {
	recs := []*record.Record{
		record.New(record.F("id", record.Int(1))),
		record.New(record.F("id", record.Text("x"))),
	}

	_, err := New(fakeFields(), fakeMapping()).MapMany(recs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record 1")
	assert.True(t, IsFieldError(err))
}

type product struct {
	ID       int64
	Category int64
	Sub      bool
	Title    string
	Price    record.Decimal
	Added    time.Time
	Raw      record.Value
}

func productFields() *Fields[product] {
	return NewFields[product]().
		Int("ID", func(p *product, v int64) { p.ID = v }).
		Int("Category", func(p *product, v int64) { p.Category = v }).
		Bool("Sub", func(p *product, v bool) { p.Sub = v }).
		Text("Title", func(p *product, v string) { p.Title = v }).
		Decimal("Price", func(p *product, v record.Decimal) { p.Price = v }).
		Time("Added", func(p *product, v time.Time) { p.Added = v }).
		Value("Raw", func(p *product, v record.Value) { p.Raw = v })
}

func TestMapAll_FromStoreCursor(t *testing.T) {
	path := testutil.ProductsDB(t,
		testutil.Product{CategoryID: 1, SubCategory: true, Name: "Widget", Price: "2.50"},
		testutil.Product{CategoryID: 2, Name: "Gadget", Price: "10.25"},
	)
	testutil.ExecDB(t, path, "UPDATE Products SET Added = '2024-03-01 12:30:00'")

	s, err := store.OpenPath(path)
	require.NoError(t, err)

	cur, err := s.Many(context.Background(), "SELECT ID, CategoryID, SubCategory, Name, Price, Added, Name AS Raw FROM Products ORDER BY ID")
	require.NoError(t, err)

	m := NewObjectMapping().
		Rename("CategoryID", "Category").
		Rename("SubCategory", "Sub").
		Rename("Name", "Title")

	got, err := New(productFields(), m).MapAll(cur.All())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, int64(1), got[0].Category)
	assert.True(t, got[0].Sub)
	assert.Equal(t, "Widget", got[0].Title)
	assert.Equal(t, "2.5", got[0].Price.String())
	assert.True(t, time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC).Equal(got[0].Added), "added: %v", got[0].Added)
	assert.Equal(t, record.Text("Widget"), got[0].Raw)

	assert.Equal(t, int64(2), got[1].Category)
	assert.False(t, got[1].Sub)
	assert.Equal(t, "10.25", got[1].Price.String())
}

func TestFields(t *testing.T) {
	f := productFields()
	assert.Equal(t, []string{"ID", "Category", "Sub", "Title", "Price", "Added", "Raw"}, f.Names())

	assert.Panics(t, func() {
		NewFields[fake]().
			Text("Name", func(*fake, string) {}).
			Text("NAME", func(*fake, string) {})
	})
}

func TestFold(t *testing.T) {
	assert.Equal(t, fold("ÉCOLE"), fold("école"))
	assert.Equal(t, fold("ThisIsATest"), fold("thisisatest"))
}
