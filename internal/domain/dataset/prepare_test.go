package dataset

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mommothazaz123/avrae-search-nn/internal/domain/canon"
	"github.com/mommothazaz123/avrae-search-nn/internal/domain/catalog"
	"github.com/mommothazaz123/avrae-search-nn/internal/ports"
)

func prepareFixture(t *testing.T, opts Options) *Batch {
	t.Helper()
	idx, err := catalog.Build([]ports.CatalogEntry{
		{Name: "Fireball", Restricted: true},
		{Name: "Fire Bolt"},
		{Name: "Shield", Restricted: true},
	})
	require.NoError(t, err)
	obs := []ports.Observation{
		{Query: "fireball", Result: "Fireball"},
		{Query: "Fireball", Result: "Fireball"},
		{Query: "firebal", Result: "Fireball"},
		{Query: "fire bolt", Result: "Fire Bolt"},
		{Query: "fire", Result: "Fireball"},
		{Query: "fire", Result: "Fire Bolt"},
	}
	b, err := Prepare(context.Background(), obs, idx, canon.Default(), opts)
	require.NoError(t, err)
	return b
}

func TestPrepare_Distributions(t *testing.T) {
	b := prepareFixture(t, Options{})
	assert.Equal(t, 6, b.Observations)
	assert.Equal(t, uint32(2), b.Full.Count("fireball", 0))
	assert.Len(t, b.Full, 4)
	// Only Fireball is a restricted member among the observed results.
	assert.Equal(t, []string{"fire", "firebal", "fireball"}, b.Restricted.Queries())
}

func TestPrepare_EvaluationPairs(t *testing.T) {
	b := prepareFixture(t, Options{})
	assert.Equal(t, []ports.LabeledQuery{
		{Query: "fire", Result: 0},
		{Query: "fire", Result: 1},
		{Query: "fire bolt", Result: 1},
		{Query: "firebal", Result: 0},
		{Query: "fireball", Result: 0},
	}, b.Evaluation)
}

func TestPrepare_SetsShareLabels(t *testing.T) {
	b := prepareFixture(t, Options{})

	d1, ok := b.Set(SetAlphaDense)
	require.True(t, ok)
	d2, ok := b.Set(SetQwertyDense)
	require.True(t, ok)
	em, ok := b.Set(SetAlphaIndex)
	require.True(t, ok)

	require.Len(t, d1.Records, 4)
	require.Len(t, d2.Records, 4)
	require.Len(t, em.Records, 4)
	for i := range d1.Records {
		assert.Equal(t, d1.Records[i].Y, d2.Records[i].Y)
		assert.Equal(t, d1.Records[i].Y, em.Records[i].Y)
		assert.Len(t, d1.Records[i].X, canon.DefaultLength)
		assert.NotEqual(t, d1.Records[i].X, d2.Records[i].X)
	}

	// Records follow sorted query order: "fire" first, split 50/50.
	assert.Equal(t, []float64{0.5, 0.5, 0}, d1.Records[0].Y)
	// Index encoding of "f" in alpha order.
	assert.Equal(t, 6.0, em.Records[0].X[0])
}

func TestPrepare_RestrictedSet(t *testing.T) {
	b := prepareFixture(t, Options{})
	rs, ok := b.Set(SetRestrictedIndex)
	require.True(t, ok)
	require.Len(t, rs.Records, 3)
	for _, r := range rs.Records {
		assert.Equal(t, []float64{1, 0}, r.Y)
	}
}

func TestPrepare_NaiveSet(t *testing.T) {
	b := prepareFixture(t, Options{})
	ns, ok := b.Set(SetNaive)
	require.True(t, ok)
	require.Len(t, ns.Records, 6)
	assert.Equal(t, 1, ns.Records[3].Label)
	assert.Nil(t, ns.Records[3].Y)
	assert.Equal(t, ns.Records[0].X, ns.Records[1].X, "same normalized query, same input")
}

func TestPrepare_SeedCatalog(t *testing.T) {
	b := prepareFixture(t, Options{SeedCatalog: true})
	assert.Equal(t, 9, b.Observations)
	assert.Equal(t, uint32(1), b.Full.Count("shield", 2))
	assert.Equal(t, uint32(1), b.Restricted.Count("shield", 1))
}

func TestBatch_SetMissing(t *testing.T) {
	b := prepareFixture(t, Options{})
	_, ok := b.Set("nope")
	assert.False(t, ok)
}
