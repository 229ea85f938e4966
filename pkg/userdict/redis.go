package userdict

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bastiangx/wordcheck/internal/logger"
	"github.com/bastiangx/wordcheck/pkg/dictionary"
	"github.com/redis/go-redis/v9"
)

var redisLog = logger.New("userdict")

// DefaultKeyPrefix namespaces the per-language hashes.
const DefaultKeyPrefix = "wordcheck:user"

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisStore keeps one hash per language, word -> frequency.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis %s: %w", opts.Addr, err)
	}
	redisLog.Debugf("Connected to redis at %s (db %d)", opts.Addr, opts.DB)
	return NewRedisStoreWithClient(client, opts.KeyPrefix), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) key(lang string) string {
	return r.prefix + ":" + lang
}

func (r *RedisStore) Add(ctx context.Context, lang, word string, freq int64) (int64, error) {
	if freq < 1 {
		return 0, ErrInvalidFrequency
	}
	total, err := r.client.HIncrBy(ctx, r.key(lang), word, freq).Result()
	if err != nil {
		return 0, fmt.Errorf("add user word %q: %w", word, err)
	}
	return total, nil
}

func (r *RedisStore) Remove(ctx context.Context, lang, word string) (bool, error) {
	n, err := r.client.HDel(ctx, r.key(lang), word).Result()
	if err != nil {
		return false, fmt.Errorf("remove user word %q: %w", word, err)
	}
	return n > 0, nil
}

func (r *RedisStore) List(ctx context.Context, lang string) ([]dictionary.Entry, error) {
	all, err := r.client.HGetAll(ctx, r.key(lang)).Result()
	if err != nil {
		return nil, fmt.Errorf("list user words for %s: %w", lang, err)
	}
	entries := make([]dictionary.Entry, 0, len(all))
	for word, raw := range all {
		freq, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || freq < 0 {
			redisLog.Warnf("Skipping user word %q with bad frequency %q", word, raw)
			continue
		}
		entries = append(entries, dictionary.Entry{Term: word, Frequency: freq})
	}
	sortEntries(entries)
	return entries, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
