package redisrepo

import "github.com/redis/go-redis/v9"

// KEYS: note, queued, all, seq
// ARGV: id, owner, text, now
var createScript = redis.NewScript(`
local seq = redis.call('INCR', KEYS[4])
redis.call('HSET', KEYS[1],
	'id', ARGV[1], 'owner', ARGV[2], 'text', ARGV[3],
	'status', 'queued', 'attempts', 0, 'seq', seq,
	'eligible_at', ARGV[4], 'created_at', ARGV[4], 'updated_at', ARGV[4])
redis.call('ZADD', KEYS[2], seq, ARGV[1])
redis.call('ZADD', KEYS[3], seq, ARGV[1])
return seq
`)

// KEYS: note, queued, processing
// ARGV: id, now, now_score
// Returns the new attempts value, or -1 when the note is not queued.
var claimScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'status') ~= 'queued' then
	return -1
end
local attempts = redis.call('HINCRBY', KEYS[1], 'attempts', 1)
redis.call('HSET', KEYS[1], 'status', 'processing', 'updated_at', ARGV[2])
redis.call('ZREM', KEYS[2], ARGV[1])
redis.call('ZADD', KEYS[3], ARGV[3], ARGV[1])
return attempts
`)

// KEYS: note, queued, processing
// ARGV: id, from, to, summary, eligible_at, last_error, now, attempts
// Returns 1 on success, -1 when the status is not "from" or attempts (when
// not 0) differs, -2 when missing.
var updateScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'status')
if not cur then
	return -2
end
if cur ~= ARGV[2] then
	return -1
end
if ARGV[8] ~= '0' and redis.call('HGET', KEYS[1], 'attempts') ~= ARGV[8] then
	return -1
end
redis.call('HSET', KEYS[1], 'status', ARGV[3], 'updated_at', ARGV[7])
if ARGV[3] == 'done' then
	redis.call('HSET', KEYS[1], 'summary', ARGV[4])
	redis.call('HDEL', KEYS[1], 'last_error')
elseif ARGV[6] ~= '' then
	redis.call('HSET', KEYS[1], 'last_error', ARGV[6])
end
if ARGV[2] == 'processing' then
	redis.call('ZREM', KEYS[3], ARGV[1])
end
if ARGV[3] == 'queued' then
	redis.call('HSET', KEYS[1], 'eligible_at', ARGV[5])
	redis.call('ZADD', KEYS[2], redis.call('HGET', KEYS[1], 'seq'), ARGV[1])
end
return 1
`)
