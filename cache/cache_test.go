package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/golambdify/lambdify"
	"github.com/njchilds90/golambdify/symbol"
)

func compileFn(t *testing.T, src string) *lambdify.Lambdify {
	t.Helper()
	l, err := lambdify.New([]string{"x"}, symbol.MustParse(src), lambdify.WithoutSimplify())
	require.NoError(t, err)
	return l
}

func TestNewDefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultCapacity, New(0).Capacity())
	assert.Equal(t, DefaultCapacity, New(-3).Capacity())
	assert.Equal(t, 7, New(7).Capacity())
}

func TestEviction(t *testing.T) {
	c := New(2)
	a, b, d := compileFn(t, "x"), compileFn(t, "x + 1"), compileFn(t, "x + 2")
	c.Set("a", a)
	c.Set("b", b)

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Same(t, a, got)

	c.Set("d", d)
	assert.Equal(t, 2, c.Len())
	_, ok = c.Get("b")
	assert.False(t, ok, "least recently used entry must be evicted")
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("d")
	assert.True(t, ok)

	c.Set("a", b)
	got, _ = c.Get("a")
	assert.Same(t, b, got)
	assert.Equal(t, 2, c.Len())

	c.Invalidate("a")
	assert.Equal(t, 1, c.Len())
	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestGetOrCompile(t *testing.T) {
	c := New(4)
	calls := 0
	fn := compileFn(t, "x^2")
	compile := func() (*lambdify.Lambdify, error) {
		calls++
		return fn, nil
	}
	for range 3 {
		got, err := c.GetOrCompile("k", compile)
		require.NoError(t, err)
		assert.Same(t, fn, got)
	}
	assert.Equal(t, 1, calls)

	_, err := c.GetOrCompile("bad", func() (*lambdify.Lambdify, error) {
		return nil, errors.New("boom")
	})
	assert.EqualError(t, err, "boom")
	_, ok := c.Get("bad")
	assert.False(t, ok, "errors are not cached")
}

func TestCompile(t *testing.T) {
	c := New(8, lambdify.WithoutSimplify())
	e := symbol.MustParse("x*y + 1")
	l1, err := c.Compile([]string{"x", "y"}, e)
	require.NoError(t, err)
	l2, err := c.Compile([]string{"x", "y"}, symbol.MustParse("x*y + 1"))
	require.NoError(t, err)
	assert.Same(t, l1, l2)
	assert.Equal(t, "x*y + 1", l1.Expr().String())

	l3, err := c.Compile([]string{"y", "x"}, e)
	require.NoError(t, err)
	assert.NotSame(t, l1, l3)
	assert.Equal(t, 2, c.Len())

	_, err = c.Compile([]string{"x", "x"}, e)
	assert.Error(t, err)
	// "a,b" would share a key with the pair a, b.
	_, err = c.Compile([]string{"a,b"}, symbol.MustParse("a"))
	assert.Error(t, err)
	assert.Equal(t, 2, c.Len())

	tools := lambdify.Tools{Compile: c.Compile}
	resp := tools.Handle(lambdify.ToolRequest{Tool: "lambdify_call", Params: map[string]any{
		"vars": []any{"x", "y"}, "expr": "x*y + 1", "args": []any{2.0, 4.0},
	}})
	require.Empty(t, resp.Error)
	assert.Equal(t, 9.0, resp.Result)
	assert.Equal(t, 2, c.Len())
}

func TestKey(t *testing.T) {
	e := symbol.MustParse("x + y")
	assert.Equal(t, "x,y|x + y", Key([]string{"x", "y"}, e))
	assert.NotEqual(t, Key([]string{"x", "y"}, e), Key([]string{"y", "x"}, e))
}

func TestConcurrentAccess(t *testing.T) {
	c := New(4, lambdify.WithoutSimplify())
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			src := fmt.Sprintf("x + %d", i%6)
			l, err := c.Compile([]string{"x"}, symbol.MustParse(src))
			if !assert.NoError(t, err) {
				return
			}
			got, err := l.Call(1.0)
			if assert.NoError(t, err) {
				assert.Equal(t, float64(1+i%6), got)
			}
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 4)
}
