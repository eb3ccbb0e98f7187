package customstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func declare(t *testing.T, schema *Schema, owner, name string, clearOn ClearTrigger) Key {
	t.Helper()
	key, err := schema.Declare(owner, name, clearOn)
	require.NoError(t, err)
	return key
}

func TestSchemaDeclareCollision(t *testing.T) {
	schema := NewSchema()

	key, err := schema.Declare("ethoslab_rare", "burned", ClearOnTurnStart)
	require.NoError(t, err)
	assert.Equal(t, "ethoslab_rare:burned", key.String())

	// Same owner, same trigger is idempotent.
	_, err = schema.Declare("ethoslab_rare", "burned", ClearOnTurnStart)
	require.NoError(t, err)

	_, err = schema.Declare("ethoslab_rare", "burned", ClearOnConsume)
	assert.ErrorIs(t, err, ErrKeyCollision)

	_, err = schema.Declare("", "burned", ClearOnTurnStart)
	assert.Error(t, err)
}

func TestSchemaRejectsNameClaimedByAnotherOwner(t *testing.T) {
	schema := NewSchema()
	declare(t, schema, "goodtimeswithscar_rare", "revived", ClearOnReplace)

	_, err := schema.Declare("pearlescentmoon_rare", "revived", ClearOnReplace)
	assert.ErrorIs(t, err, ErrKeyCollision, "same trigger, different owner")
	assert.Len(t, schema.Declarations(), 1)

	// A key carrying the wrong owner is not declared, so it cannot be written.
	store := NewStore(schema)
	err = store.Set(Key{Owner: "pearlescentmoon_rare", Name: "revived", Instance: "inst-1"}, true)
	assert.ErrorIs(t, err, ErrUndeclaredKey)
	_, ok := schema.Lookup(Key{Owner: "pearlescentmoon_rare", Name: "revived"})
	assert.False(t, ok)
}

func TestStoreSetRequiresDeclaration(t *testing.T) {
	store := NewStore(NewSchema())

	err := store.Set(Key{Owner: "pearlescentmoon_rare", Name: "guard"}, 3)
	assert.ErrorIs(t, err, ErrUndeclaredKey)
	assert.Equal(t, 0, store.Len())
}

func TestStoreGetSetDelete(t *testing.T) {
	schema := NewSchema()
	base := declare(t, schema, "goodtimeswithscar_rare", "revived", ClearOnConsume)
	store := NewStore(schema)

	k1 := base
	k1.Instance = "inst-1"
	k2 := base
	k2.Instance = "inst-2"

	require.NoError(t, store.Set(k1, true))
	assert.True(t, store.Has(k1))
	assert.False(t, store.Has(k2), "copies of the same card must not share instance keys")

	value, ok := Get[bool](store, k1)
	require.True(t, ok)
	assert.True(t, value)

	_, ok = Get[int](store, k1)
	assert.False(t, ok, "wrong type reads as absent")

	store.Delete(k1)
	assert.False(t, store.Has(k1))
	store.Delete(k1)
}

func TestStoreTake(t *testing.T) {
	schema := NewSchema()
	key := declare(t, schema, "owner", "flag", ClearOnConsume)
	store := NewStore(schema)

	require.NoError(t, store.Set(key, 7))
	value, ok := store.Take(key)
	require.True(t, ok)
	assert.Equal(t, 7, value)
	assert.False(t, store.Has(key))
}

func TestStoreSweep(t *testing.T) {
	schema := NewSchema()
	start := declare(t, schema, "a", "start", ClearOnTurnStart)
	keep := declare(t, schema, "a", "keep", ClearOnConsume)
	store := NewStore(schema)

	require.NoError(t, store.Set(start, true))
	require.NoError(t, store.Set(keep, true))

	assert.Equal(t, 0, store.Sweep(ClearOnConsume), "consumed entries are never swept")
	assert.Equal(t, 1, store.Sweep(ClearOnTurnStart))
	assert.Equal(t, []string{"a:keep"}, store.Keys())
}

func TestStoreClearInstance(t *testing.T) {
	schema := NewSchema()
	flag := declare(t, schema, "card", "flag", ClearOnConsume)
	shared := declare(t, schema, "card", "shared", ClearOnConsume)
	store := NewStore(schema)

	scoped := flag
	scoped.Instance = "inst-9"
	require.NoError(t, store.Set(scoped, true))
	require.NoError(t, store.Set(shared, true))

	assert.Equal(t, 1, store.ClearInstance("inst-9"))
	assert.False(t, store.Has(scoped))
	assert.True(t, store.Has(shared))
	assert.Equal(t, 0, store.ClearInstance(""))
}

func TestStoreReplaceScopedKeyNeedsInstance(t *testing.T) {
	schema := NewSchema()
	key := declare(t, schema, "goodtimeswithscar_rare", "revived", ClearOnReplace)
	store := NewStore(schema)

	assert.Error(t, store.Set(key, 1))
	require.NoError(t, store.Set(key.For("inst-1"), 1))
	assert.Equal(t, "goodtimeswithscar_rare:revived:inst-1", key.For("inst-1").String())
	assert.Equal(t, 0, store.Sweep(ClearOnReplace), "replace-scoped entries are never swept")
	assert.Equal(t, 1, store.ClearInstance("inst-1"))
}
