package predicate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syntrixbase/storenotify/pkg/model"
)

func TestFilterToExpression(t *testing.T) {
	tests := []struct {
		name   string
		filter model.Filter
		want   string
	}{
		{"eq string", model.Filter{Field: "state", Op: model.OpEq, Value: "TX"}, "doc['state'] == 'TX'"},
		{"ne int", model.Filter{Field: "pop", Op: model.OpNe, Value: 3}, "doc['pop'] != 3"},
		{"gt float", model.Filter{Field: "pop", Op: model.OpGt, Value: 1.5}, "doc['pop'] > 1.5"},
		{"gte whole float", model.Filter{Field: "pop", Op: model.OpGte, Value: float64(2)}, "doc['pop'] >= 2.0"},
		{"lt", model.Filter{Field: "pop", Op: model.OpLt, Value: int64(9)}, "doc['pop'] < 9"},
		{"lte", model.Filter{Field: "pop", Op: model.OpLte, Value: int32(9)}, "doc['pop'] <= 9"},
		{"nested", model.Filter{Field: "geo.country", Op: model.OpEq, Value: "US"}, "doc['geo']['country'] == 'US'"},
		{"in", model.Filter{Field: "state", Op: model.OpIn, Value: []interface{}{"TX", "MA"}}, "doc['state'] in ['TX', 'MA']"},
		{"in strings", model.Filter{Field: "state", Op: model.OpIn, Value: []string{"TX"}}, "doc['state'] in ['TX']"},
		{"contains", model.Filter{Field: "tags", Op: model.OpContains, Value: "coastal"}, "'coastal' in doc['tags']"},
		{"quote escaping", model.Filter{Field: "name", Op: model.OpEq, Value: "O'Hare"}, `doc['name'] == 'O\'Hare'`},
		{"bool", model.Filter{Field: "capital", Op: model.OpEq, Value: true}, "doc['capital'] == true"},
		{"null", model.Filter{Field: "capital", Op: model.OpEq, Value: nil}, "doc['capital'] == null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := filterToExpression(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilterToExpression_Errors(t *testing.T) {
	_, err := filterToExpression(model.Filter{Field: "a", Op: "~", Value: 1})
	assert.Error(t, err)

	_, err = filterToExpression(model.Filter{Field: "a", Op: model.OpEq, Value: struct{}{}})
	assert.Error(t, err)

	_, err = filterToExpression(model.Filter{Field: "a..b", Op: model.OpEq, Value: 1})
	assert.Error(t, err)
}

func TestCompileFilters_Empty(t *testing.T) {
	c, err := NewCompiler()
	require.NoError(t, err)

	prg, err := c.CompileFilters(nil)
	require.NoError(t, err)
	assert.Nil(t, prg)

	ok, err := Evaluate(prg, model.Document{"x": 1})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCompileFilters_InvalidQuery(t *testing.T) {
	c, err := NewCompiler()
	require.NoError(t, err)

	_, err = c.CompileFilters([]model.Filter{{Field: "a", Op: "like", Value: "x"}})
	assert.True(t, errors.Is(err, model.ErrInvalidQuery))
}

func TestEvaluate(t *testing.T) {
	c, err := NewCompiler()
	require.NoError(t, err)

	doc := model.Document{
		"name":  "Austin",
		"state": "TX",
		"pop":   961855,
		"area":  322.48,
		"tags":  []interface{}{"capital", "inland"},
		"geo":   map[string]interface{}{"country": "US"},
	}

	tests := []struct {
		name    string
		filters []model.Filter
		want    bool
	}{
		{"string eq", []model.Filter{{Field: "state", Op: model.OpEq, Value: "TX"}}, true},
		{"string ne", []model.Filter{{Field: "state", Op: model.OpEq, Value: "MA"}}, false},
		{"int gt", []model.Filter{{Field: "pop", Op: model.OpGt, Value: 100000}}, true},
		{"float lt", []model.Filter{{Field: "area", Op: model.OpLt, Value: 400.0}}, true},
		{"int vs float", []model.Filter{{Field: "pop", Op: model.OpGt, Value: 1.5}}, true},
		{"in", []model.Filter{{Field: "state", Op: model.OpIn, Value: []interface{}{"TX", "CA"}}}, true},
		{"contains", []model.Filter{{Field: "tags", Op: model.OpContains, Value: "capital"}}, true},
		{"nested", []model.Filter{{Field: "geo.country", Op: model.OpEq, Value: "US"}}, true},
		{"conjunction", []model.Filter{
			{Field: "state", Op: model.OpEq, Value: "TX"},
			{Field: "name", Op: model.OpEq, Value: "Dallas"},
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prg, err := c.CompileFilters(tt.filters)
			require.NoError(t, err)
			got, err := Evaluate(prg, doc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_MissingField(t *testing.T) {
	c, err := NewCompiler()
	require.NoError(t, err)

	prg, err := c.CompileFilters([]model.Filter{{Field: "missing", Op: model.OpEq, Value: "x"}})
	require.NoError(t, err)

	ok, err := Evaluate(prg, model.Document{"name": "Austin"})
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestEvaluate_NonBoolean(t *testing.T) {
	c, err := NewCompiler()
	require.NoError(t, err)

	prg, err := c.CompileExpression("doc['name']")
	require.NoError(t, err)

	_, err = Evaluate(prg, model.Document{"name": "Austin"})
	assert.Error(t, err)
}
