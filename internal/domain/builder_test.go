package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type builderModel struct{ id string }

func (m *builderModel) SearchKey() string                { return m.id }
func (m *builderModel) SearchableAs() string             { return "widgets" }
func (m *builderModel) ToSearchableDocument() Document   { return Document{"id": m.id} }
func (m *builderModel) SearchableStruct() map[string]any { return nil }

func TestBuilder_Chaining(t *testing.T) {
	b := NewBuilder(&builderModel{id: "w1"}, "blue widget").
		Where("status", "active").
		Where("tags", []string{"a", "b"}).
		OrderBy("price", "desc").
		Take(25).
		Within("custom_index")

	assert.Equal(t, "blue widget", b.Query)
	assert.Equal(t, "active", b.Wheres["status"])
	assert.Equal(t, []string{"a", "b"}, b.Wheres["tags"])
	assert.Equal(t, []Order{{Column: "price", Direction: "desc"}}, b.Orders)
	assert.Equal(t, 25, b.Limit)
	assert.Equal(t, "custom_index", b.Index)
}

func TestBuilder_OrderByNormalizesDirection(t *testing.T) {
	b := NewBuilder(&builderModel{}, "").
		OrderBy("a", "DESC").
		OrderBy("b", "Asc").
		OrderBy("c", "sideways")

	assert.Equal(t, []Order{
		{Column: "a", Direction: SortDesc},
		{Column: "b", Direction: SortAsc},
		{Column: "c", Direction: SortAsc},
	}, b.Orders)
}

func TestResult_TotalScalarShape(t *testing.T) {
	res := &Result{TotalRaw: []byte(`42`)}
	assert.Equal(t, 42, res.Total())
}

func TestResult_TotalObjectShape(t *testing.T) {
	res := &Result{TotalRaw: []byte(`{"value":42,"relation":"eq"}`)}
	assert.Equal(t, 42, res.Total())
}

func TestResult_TotalMissingOrMalformed(t *testing.T) {
	assert.Equal(t, 0, (&Result{}).Total())
	assert.Equal(t, 0, (&Result{TotalRaw: []byte(`"nope"`)}).Total())

	var nilRes *Result
	assert.Equal(t, 0, nilRes.Total())
}

func TestResult_IDsPreserveOrder(t *testing.T) {
	res := &Result{Hits: []Hit{{ID: "c"}, {ID: "a"}, {ID: "b"}}}
	assert.Equal(t, []string{"c", "a", "b"}, res.IDs())
}

func TestRawTotal_RoundTrips(t *testing.T) {
	res := &Result{TotalRaw: RawTotal(7)}
	assert.Equal(t, 7, res.Total())
}
