// Copyright (c) 2021 The VeChainThor developers

package kv

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errNotFound = errors.New("not found")

type mem map[string]string

func (m mem) Get(k []byte) ([]byte, error) {
	if v, ok := m[string(k)]; ok {
		return []byte(v), nil
	}
	return nil, errNotFound
}

func (m mem) Has(k []byte) (bool, error) {
	_, ok := m[string(k)]
	return ok, nil
}

func (m mem) Put(k, v []byte) error {
	m[string(k)] = string(v)
	return nil
}

func (m mem) Delete(k []byte) error {
	delete(m, string(k))
	return nil
}

func (m mem) IsNotFound(err error) bool {
	return err == errNotFound
}

func TestBucket_GetterGet(t *testing.T) {
	m := mem{"k1": "v1", "k2": "v2"}

	tests := []struct {
		b    Bucket
		key  string
		want string
	}{
		{Bucket(""), "k1", "v1"},
		{Bucket(""), "k2", "v2"},
		{Bucket("k"), "k1", ""},
		{Bucket("k"), "1", "v1"},
		{Bucket("k"), "2", "v2"},
		{Bucket("k1"), "", "v1"},
	}
	for _, tt := range tests {
		got, _ := tt.b.NewGetter(m).Get([]byte(tt.key))
		assert.Equal(t, tt.want, string(got), "bucket %q key %q", tt.b, tt.key)
	}
}

func TestBucket_GetterHas(t *testing.T) {
	m := mem{"k1": "v1", "k2": "v2"}

	tests := []struct {
		b    Bucket
		key  string
		want bool
	}{
		{Bucket(""), "k1", true},
		{Bucket("k"), "k1", false},
		{Bucket("k"), "1", true},
		{Bucket("k1"), "", true},
		{Bucket("x"), "1", false},
	}
	for _, tt := range tests {
		got, err := tt.b.NewGetter(m).Has([]byte(tt.key))
		assert.NoError(t, err)
		assert.Equal(t, tt.want, got, "bucket %q key %q", tt.b, tt.key)
	}
}

func TestBucket_NotFound(t *testing.T) {
	g := Bucket("b").NewGetter(mem{})
	_, err := g.Get([]byte("missing"))
	assert.True(t, g.IsNotFound(err))
}

func TestBucket_Putter(t *testing.T) {
	m := mem{}
	p := Bucket("b").NewPutter(m)

	assert.NoError(t, p.Put([]byte("1"), []byte("v1")))
	assert.NoError(t, p.Put([]byte("2"), []byte("v2")))
	assert.Equal(t, mem{"b1": "v1", "b2": "v2"}, m)

	assert.NoError(t, p.Delete([]byte("1")))
	assert.Equal(t, mem{"b2": "v2"}, m)
}

func TestBucket_Key(t *testing.T) {
	assert.Equal(t, []byte("abc"), Bucket("a").Key([]byte("bc")))
	assert.Equal(t, []byte("bc"), Bucket("").Key([]byte("bc")))
}
