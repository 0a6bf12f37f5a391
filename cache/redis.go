// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package cache

import (
	"context"
	"time"

	"github.com/diffeo/go-scripted/scripted"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/ugorji/go/codec"
)

// DefaultRedisPrefix is prepended to script names to form Redis keys.
const DefaultRedisPrefix = "scripted:output:"

// Redis is a result cache stored in Redis, so that several server
// processes can share script output.  Values are CBOR encoded.  Redis
// failures are logged and otherwise treated as cache misses.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger logrus.FieldLogger
}

// NewRedis creates a cache on an existing Redis client.  If prefix is
// empty, uses DefaultRedisPrefix.  A zero ttl keeps entries until
// Redis evicts them.
func NewRedis(client redis.UniversalClient, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &Redis{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logrus.StandardLogger(),
	}
}

// DialRedis connects to a Redis server at addr ("host:port") and
// creates a cache on it, as NewRedis.  Fails if the server cannot be
// reached.
func DialRedis(ctx context.Context, addr, prefix string, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return NewRedis(client, prefix, ttl), nil
}

// SetLogger replaces the logger used to report Redis failures.
func (r *Redis) SetLogger(logger logrus.FieldLogger) {
	r.logger = logger
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Get fetches a cached string from Redis.
func (r *Redis) Get(ctx context.Context, name string) (scripted.RepresentableString, bool) {
	data, err := r.client.Get(ctx, r.key(name)).Bytes()
	if err == redis.Nil {
		return scripted.RepresentableString{}, false
	}
	if err != nil {
		r.logger.WithError(err).WithField("script", name).Warn("Redis cache read failed")
		return scripted.RepresentableString{}, false
	}
	value, err := decodeOutput(data)
	if err != nil {
		r.logger.WithError(err).WithField("script", name).Warn("Corrupt Redis cache entry")
		return scripted.RepresentableString{}, false
	}
	return value, true
}

// Put stores a string in Redis.
func (r *Redis) Put(ctx context.Context, name string, value scripted.RepresentableString) {
	data, err := encodeOutput(value)
	if err == nil {
		err = r.client.Set(ctx, r.key(name), data, r.ttl).Err()
	}
	if err != nil {
		r.logger.WithError(err).WithField("script", name).Warn("Redis cache write failed")
	}
}

func (r *Redis) key(name string) string {
	return r.prefix + name
}

// wireOutput is the stored form of a RepresentableString.
type wireOutput struct {
	Text         string `codec:"text"`
	MediaType    string `codec:"media_type,omitempty"`
	Language     string `codec:"language,omitempty"`
	CharacterSet string `codec:"character_set,omitempty"`
	Created      int64  `codec:"created"`
}

func encodeOutput(value scripted.RepresentableString) (out []byte, err error) {
	attributes := value.Attributes()
	wire := wireOutput{
		Text:         value.Text(),
		MediaType:    attributes.MediaType,
		Language:     attributes.Language,
		CharacterSet: attributes.CharacterSet,
	}
	if !value.Created().IsZero() {
		wire.Created = value.Created().UnixNano()
	}
	encoder := codec.NewEncoderBytes(&out, new(codec.CborHandle))
	err = encoder.Encode(wire)
	return
}

func decodeOutput(data []byte) (scripted.RepresentableString, error) {
	var wire wireOutput
	decoder := codec.NewDecoderBytes(data, new(codec.CborHandle))
	if err := decoder.Decode(&wire); err != nil {
		return scripted.RepresentableString{}, err
	}
	var created time.Time
	if wire.Created != 0 {
		created = time.Unix(0, wire.Created)
	}
	return scripted.NewRepresentableString(wire.Text, scripted.Attributes{
		MediaType:    wire.MediaType,
		Language:     wire.Language,
		CharacterSet: wire.CharacterSet,
	}, created), nil
}
