// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/diffeo/go-scripted/scripted"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputEncoding(t *testing.T) {
	created := time.Date(2017, 3, 14, 15, 9, 26, 0, time.UTC)
	value := scripted.NewRepresentableString("<p>hi</p>", scripted.Attributes{
		MediaType:    "text/html",
		Language:     "en",
		CharacterSet: "utf-8",
	}, created)

	data, err := encodeOutput(value)
	require.NoError(t, err)
	decoded, err := decodeOutput(data)
	require.NoError(t, err)
	assert.Equal(t, value.Text(), decoded.Text())
	assert.Equal(t, value.Attributes(), decoded.Attributes())
	assert.True(t, created.Equal(decoded.Created()))

	_, err = decodeOutput([]byte{0xff, 0x00})
	assert.Error(t, err)
}

// TestRedisUnreachable checks that a dead server looks like an empty
// cache.
func TestRedisUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	cache := NewRedis(client, "", 0)
	defer cache.Close()

	cache.Put(context.Background(), "page", output("page"))
	_, present := cache.Get(context.Background(), "page")
	assert.False(t, present)
}

// TestRedis runs against a real Redis server named by $REDIS_ADDR.
func TestRedis(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	cache, err := DialRedis(ctx, addr, "scripted:test:", time.Minute)
	require.NoError(t, err)
	defer cache.Close()
	cache.prefix = "scripted:test:" + t.Name() + ":"

	_, present := cache.Get(ctx, "page")
	assert.False(t, present)

	cache.Put(ctx, "page", output("first"))
	cache.Put(ctx, "page", output("second"))
	value, present := cache.Get(ctx, "page")
	if assert.True(t, present) {
		assert.Equal(t, "second", value.Text())
		assert.Equal(t, "text/plain", value.Attributes().MediaType)
	}
	assert.NoError(t, cache.client.Del(ctx, cache.key("page")).Err())
}
