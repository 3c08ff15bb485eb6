package passcode

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "mfa"

// Key layout, all under the repository prefix wrapped in a hash tag so every
// key a script touches hashes to the same Redis Cluster slot:
//
//	{<prefix>}:token:<id>   hash  user, code, created, expires, consumed (unix micros, consumed "" while active)
//	{<prefix>}:user:<ref>   set   ids of the user's unconsumed passcodes
//	{<prefix>}:code:<code>  zset  ids of unconsumed passcodes with that code, scored by created
//
// Every key carries a PEXPIRE so Redis reclaims expired passcodes on its own.

// invalidateBody removes the unconsumed passcodes listed in KEYS[1].
// ARGV[1] = prefix
const invalidateBody = `
local removed = 0
local ids = redis.call('SMEMBERS', KEYS[1])
for _, id in ipairs(ids) do
  local key = ARGV[1] .. ':token:' .. id
  local f = redis.call('HMGET', key, 'code', 'consumed')
  if f[1] and (not f[2] or f[2] == '') then
    redis.call('ZREM', ARGV[1] .. ':code:' .. f[1], id)
    redis.call('DEL', key)
    removed = removed + 1
  end
end
redis.call('DEL', KEYS[1])
`

// createBody stores a new passcode.
// KEYS[1] = user set, KEYS[2] = token hash, KEYS[3] = code zset
// ARGV[2] = id, ARGV[3] = user ref, ARGV[4] = code, ARGV[5] = created, ARGV[6] = expires, ARGV[7] = ttl ms
const createBody = `
local ttl = tonumber(ARGV[7])
redis.call('HSET', KEYS[2], 'user', ARGV[3], 'code', ARGV[4], 'created', ARGV[5], 'expires', ARGV[6], 'consumed', '')
redis.call('PEXPIRE', KEYS[2], ttl)
redis.call('ZADD', KEYS[3], ARGV[5], ARGV[2])
if redis.call('PTTL', KEYS[3]) < ttl then
  redis.call('PEXPIRE', KEYS[3], ttl)
end
redis.call('SADD', KEYS[1], ARGV[2])
if redis.call('PTTL', KEYS[1]) < ttl then
  redis.call('PEXPIRE', KEYS[1], ttl)
end
`

var (
	invalidateScript = redis.NewScript(invalidateBody + `return removed`)
	createScript     = redis.NewScript(`local removed = 0` + createBody + `return removed`)
	issueScript      = redis.NewScript(invalidateBody + createBody + `return removed`)
)

// consumeScript walks the code index newest first and marks the first active
// passcode consumed.
// KEYS[1] = code zset
// ARGV[1] = prefix, ARGV[2] = now (unix micros)
//
// Returns {id, user, created, expires, consumed} or nil.
var consumeScript = redis.NewScript(`
local now = tonumber(ARGV[2])
local ids = redis.call('ZREVRANGE', KEYS[1], 0, -1)
for _, id in ipairs(ids) do
  local key = ARGV[1] .. ':token:' .. id
  local f = redis.call('HMGET', key, 'user', 'created', 'expires', 'consumed')
  if not f[1] then
    redis.call('ZREM', KEYS[1], id)
  elseif (not f[4] or f[4] == '') and tonumber(f[3]) > now then
    redis.call('HSET', key, 'consumed', ARGV[2])
    redis.call('ZREM', KEYS[1], id)
    redis.call('SREM', ARGV[1] .. ':user:' .. f[1], id)
    return {id, f[1], f[2], f[3], ARGV[2]}
  end
end
return false
`)

// sweepScript deletes expired passcodes indexed under one code.
// KEYS[1] = code zset
// ARGV[1] = prefix, ARGV[2] = now (unix micros)
var sweepScript = redis.NewScript(`
local now = tonumber(ARGV[2])
local removed = 0
local ids = redis.call('ZRANGE', KEYS[1], 0, -1)
for _, id in ipairs(ids) do
  local key = ARGV[1] .. ':token:' .. id
  local f = redis.call('HMGET', key, 'user', 'expires')
  if not f[1] then
    redis.call('ZREM', KEYS[1], id)
  elseif tonumber(f[2]) <= now then
    redis.call('DEL', key)
    redis.call('ZREM', KEYS[1], id)
    redis.call('SREM', ARGV[1] .. ':user:' .. f[1], id)
    removed = removed + 1
  end
end
return removed
`)

// RedisRepository implements Repository on Redis. Each mutation is a single
// Lua script, so it is applied atomically by the server.
type RedisRepository struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisRepository creates a Redis-backed repository. An empty prefix uses
// "mfa". A prefix that already carries a hash tag is used as is.
func NewRedisRepository(client redis.UniversalClient, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisRepository{
		redis:  client,
		prefix: hashTagged(prefix),
	}
}

func hashTagged(prefix string) string {
	if strings.Contains(prefix, "{") {
		return prefix
	}
	return "{" + prefix + "}"
}

func (r *RedisRepository) tokenKey(id string) string {
	return r.prefix + ":token:" + id
}

func (r *RedisRepository) userKey(userRef string) string {
	return r.prefix + ":user:" + userRef
}

func (r *RedisRepository) codeKey(code string) string {
	return r.prefix + ":code:" + code
}

func (r *RedisRepository) InvalidateActive(ctx context.Context, userRef string, now time.Time) (int64, error) {
	removed, err := invalidateScript.Run(ctx, r.redis, []string{r.userKey(userRef)}, r.prefix).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to invalidate active passcodes: %w", err)
	}
	return removed, nil
}

func (r *RedisRepository) Create(ctx context.Context, params CreateParams) (Passcode, error) {
	return r.store(ctx, createScript, params)
}

func (r *RedisRepository) Issue(ctx context.Context, params CreateParams) (Passcode, error) {
	return r.store(ctx, issueScript, params)
}

func (r *RedisRepository) store(ctx context.Context, script *redis.Script, params CreateParams) (Passcode, error) {
	p := newPasscode(params)
	p.CreatedAt = p.CreatedAt.Truncate(time.Microsecond)
	p.ExpiresAt = p.ExpiresAt.Truncate(time.Microsecond)

	keys := []string{r.userKey(p.UserRef), r.tokenKey(p.ID.String()), r.codeKey(p.Code)}
	args := []any{
		r.prefix,
		p.ID.String(),
		p.UserRef,
		p.Code,
		p.CreatedAt.UnixMicro(),
		p.ExpiresAt.UnixMicro(),
		params.ttl().Milliseconds(),
	}

	if err := script.Run(ctx, r.redis, keys, args...).Err(); err != nil {
		return Passcode{}, fmt.Errorf("failed to store passcode: %w", err)
	}

	return p, nil
}

func (r *RedisRepository) ConsumeByCode(ctx context.Context, code string, now time.Time) (Passcode, error) {
	fields, err := consumeScript.Run(ctx, r.redis, []string{r.codeKey(code)}, r.prefix, now.UnixMicro()).StringSlice()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Passcode{}, ErrPasscodeNotFound
		}
		return Passcode{}, fmt.Errorf("failed to consume passcode: %w", err)
	}
	if len(fields) != 5 {
		return Passcode{}, fmt.Errorf("failed to consume passcode: unexpected reply length %d", len(fields))
	}

	return decodeRedisPasscode(map[string]string{
		"id":       fields[0],
		"user":     fields[1],
		"code":     code,
		"created":  fields[2],
		"expires":  fields[3],
		"consumed": fields[4],
	})
}

func (r *RedisRepository) FindActiveByUser(ctx context.Context, userRef string, now time.Time) ([]Passcode, error) {
	ids, err := r.redis.SMembers(ctx, r.userKey(userRef)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to find active passcodes: %w", err)
	}

	var res []Passcode
	for _, id := range ids {
		fields, err := r.redis.HGetAll(ctx, r.tokenKey(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read passcode %s: %w", id, err)
		}
		if len(fields) == 0 {
			continue
		}
		fields["id"] = id
		p, err := decodeRedisPasscode(fields)
		if err != nil {
			return nil, err
		}
		if p.IsActive(now) {
			res = append(res, p)
		}
	}

	sort.Slice(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res, nil
}

// DeleteExpired prunes expired unconsumed passcodes from every code index.
// Consumed passcodes are left to their key expiry. On a cluster every master
// is scanned, though the hash tag keeps all keys on one of them.
func (r *RedisRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	cluster, ok := r.redis.(*redis.ClusterClient)
	if !ok {
		return r.sweep(ctx, r.redis, now)
	}

	var total atomic.Int64
	err := cluster.ForEachMaster(ctx, func(ctx context.Context, node *redis.Client) error {
		removed, err := r.sweep(ctx, node, now)
		total.Add(removed)
		return err
	})
	return total.Load(), err
}

func (r *RedisRepository) sweep(ctx context.Context, c redis.Cmdable, now time.Time) (int64, error) {
	var total int64

	iter := c.Scan(ctx, 0, r.codeKey("*"), 100).Iterator()
	for iter.Next(ctx) {
		removed, err := sweepScript.Run(ctx, c, []string{iter.Val()}, r.prefix, now.UnixMicro()).Int64()
		if err != nil {
			return total, fmt.Errorf("failed to sweep %s: %w", iter.Val(), err)
		}
		total += removed
	}
	if err := iter.Err(); err != nil {
		return total, fmt.Errorf("failed to scan code index: %w", err)
	}

	return total, nil
}

func decodeRedisPasscode(fields map[string]string) (Passcode, error) {
	id, err := uuid.Parse(fields["id"])
	if err != nil {
		return Passcode{}, fmt.Errorf("invalid passcode id %q: %w", fields["id"], err)
	}

	created, err := parseMicros(fields["created"])
	if err != nil {
		return Passcode{}, err
	}
	expires, err := parseMicros(fields["expires"])
	if err != nil {
		return Passcode{}, err
	}

	p := Passcode{
		ID:        id,
		UserRef:   fields["user"],
		Code:      fields["code"],
		CreatedAt: created,
		ExpiresAt: expires,
	}

	if v := fields["consumed"]; v != "" {
		consumed, err := parseMicros(v)
		if err != nil {
			return Passcode{}, err
		}
		p.ConsumedAt = &consumed
	}

	return p, nil
}

func parseMicros(v string) (time.Time, error) {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", v, err)
	}
	return time.UnixMicro(n).UTC(), nil
}
