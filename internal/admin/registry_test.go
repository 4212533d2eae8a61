package admin

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/eip-site/internal/model"
	"github.com/d60-Lab/eip-site/pkg/database/dbtest"
)

func TestEntityColumnsExistInSchema(t *testing.T) {
	db := dbtest.New(t)
	for _, e := range entities {
		for _, cols := range [][]string{e.Columns, e.Search, e.Filters} {
			for _, col := range cols {
				assert.True(t, db.Migrator().HasColumn(e.Table, col), "%s.%s", e.Table, col)
			}
		}
	}
}

func TestListSearchAndFilter(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	require.NoError(t, db.Create(&[]model.Subscriber{
		{ID: "s1", Email: "alice@example.org", IsActive: true, Token: "t1"},
		{ID: "s2", Email: "bob@example.org", IsActive: false, Token: "t2"},
		{ID: "s3", Email: "carol_x@example.org", IsActive: true, Token: "t3"},
	}).Error)

	l := NewLister(db)

	res, err := l.List(ctx, "subscribers", Query{Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 3, res.Total)
	assert.Len(t, res.Rows, 3)
	// token 不在列表列中
	_, hasToken := res.Rows[0]["token"]
	assert.False(t, hasToken)

	res, err = l.List(ctx, "subscribers", Query{Filters: map[string]string{"is_active": "false"}, Limit: 10})
	require.NoError(t, err)
	require.EqualValues(t, 1, res.Total)
	assert.Equal(t, "bob@example.org", res.Rows[0]["email"])

	// "_" 按字面匹配
	res, err = l.List(ctx, "subscribers", Query{Search: "L_X", Limit: 10})
	require.NoError(t, err)
	require.EqualValues(t, 1, res.Total)
	assert.Equal(t, "carol_x@example.org", res.Rows[0]["email"])

	// 未声明的过滤列被忽略
	res, err = l.List(ctx, "subscribers", Query{Filters: map[string]string{"token": "t1"}, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 3, res.Total)

	res, err = l.List(ctx, "subscribers", Query{Offset: 2, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 3, res.Total)
	assert.Len(t, res.Rows, 1)

	_, err = l.List(ctx, "users", Query{Limit: 10})
	assert.ErrorIs(t, err, ErrUnknownEntity)
}

func TestCreateAndDeleteSimpleEntity(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	l := NewLister(db)

	body := []byte(`{"id":"forced","title":"Accountability","icon":"bi-check","order":2}`)
	obj, err := l.Create(ctx, "principles", func(v any) error { return json.Unmarshal(body, v) })
	require.NoError(t, err)
	p := obj.(*model.GuidingPrinciple)
	assert.NotEqual(t, "forced", p.ID)
	assert.Equal(t, 2, p.Order)

	res, err := l.List(ctx, "principles", Query{Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Total)

	require.NoError(t, l.Delete(ctx, "principles", p.ID))
	assert.ErrorIs(t, l.Delete(ctx, "principles", p.ID), ErrNotFound)

	_, err = l.Create(ctx, "posts", func(any) error { return nil })
	assert.ErrorIs(t, err, ErrNotEditable)
	assert.ErrorIs(t, l.Delete(ctx, "applications", "x"), ErrNotEditable)
}

func TestDescribeIsSorted(t *testing.T) {
	metas := Describe()
	require.Len(t, metas, len(entities))
	for i := 1; i < len(metas); i++ {
		assert.Less(t, metas[i-1].Name, metas[i].Name)
	}
	e, ok := Lookup("slides")
	require.True(t, ok)
	assert.NotNil(t, e.New)
}
