package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifeboat-sh/lifeboat/internal/category"
)

func TestCategoryValue(t *testing.T) {
	var v categoryValue
	require.NoError(t, v.Set("pdf,image"))
	require.NoError(t, v.Set("audio"))

	cats := resolveCategories(v, false)
	require.NotNil(t, cats)
	assert.True(t, cats.Has(category.Pdf))
	assert.True(t, cats.Has(category.Image))
	assert.True(t, cats.Has(category.Audio))
	assert.False(t, cats.Has(category.Video))
}

func TestCategoryValueUnknown(t *testing.T) {
	var v categoryValue
	assert.Error(t, v.Set("spreadsheets"))
}

func TestResolveCategoriesAll(t *testing.T) {
	cats := resolveCategories(categoryValue{}, true)
	require.NotNil(t, cats)
	assert.True(t, cats.Has(category.OldOfficeDoc))
	assert.True(t, cats.Has(category.Audio))
}

func TestResolveCategoriesNoneSelected(t *testing.T) {
	assert.Nil(t, resolveCategories(categoryValue{}, false))
}

func TestResolvePolicy(t *testing.T) {
	p, err := resolvePolicy("latest")
	require.NoError(t, err)
	assert.NotNil(t, p)

	p, err = resolvePolicy("oldest")
	require.NoError(t, err)
	assert.NotNil(t, p)

	_, err = resolvePolicy("newest")
	assert.Error(t, err)
}
