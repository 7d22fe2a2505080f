package repository

import "github.com/go-redis/redis/v8"

// KEYS: hash, waiting, delayed
// ARGV: id, key, op, entity, priority, payload, now, ready_at, aging_step_ms
var addScript = redis.NewScript(`
local state = redis.call('HGET', KEYS[1], 'state')
if state == 'waiting' or state == 'delayed' or state == 'active' then
  local cur = redis.call('HMGET', KEYS[1], 'id', 'priority', 'ready_at')
  return {'0', cur[1], state, cur[2], cur[3]}
end
redis.call('DEL', KEYS[1])
local now = tonumber(ARGV[7])
local ready = tonumber(ARGV[8])
local newState = 'waiting'
if ready > now then
  newState = 'delayed'
end
redis.call('HSET', KEYS[1],
  'id', ARGV[1], 'key', ARGV[2], 'op', ARGV[3], 'entity', ARGV[4],
  'priority', ARGV[5], 'payload', ARGV[6], 'state', newState,
  'progress', '0', 'attempts', '0', 'cancel', '0',
  'enqueued_at', ARGV[7], 'ready_at', ARGV[8])
if newState == 'delayed' then
  redis.call('ZADD', KEYS[3], ready, ARGV[2])
else
  redis.call('ZADD', KEYS[2], ready + (tonumber(ARGV[5]) - 1) * tonumber(ARGV[9]), ARGV[2])
end
return {'1', ARGV[1], newState, ARGV[5], ARGV[8]}
`)

// KEYS: waiting, delayed, active
// ARGV: now, lease_ms, aging_step_ms, hash_prefix, retention_ms
var claimScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local step = tonumber(ARGV[3])

for _, k in ipairs(redis.call('ZRANGEBYSCORE', KEYS[2], '-inf', ARGV[1])) do
  local h = ARGV[4] .. k
  redis.call('ZREM', KEYS[2], k)
  if redis.call('EXISTS', h) == 1 then
    local prio = tonumber(redis.call('HGET', h, 'priority') or '1')
    local ready = tonumber(redis.call('HGET', h, 'ready_at') or ARGV[1])
    redis.call('HSET', h, 'state', 'waiting')
    redis.call('ZADD', KEYS[1], ready + (prio - 1) * step, k)
  end
end

for _, k in ipairs(redis.call('ZRANGEBYSCORE', KEYS[3], '-inf', ARGV[1])) do
  local h = ARGV[4] .. k
  redis.call('ZREM', KEYS[3], k)
  if redis.call('EXISTS', h) == 1 then
    if redis.call('HGET', h, 'cancel') == '1' then
      redis.call('HSET', h, 'state', 'failed', 'error', 'cancelled', 'finished_at', ARGV[1])
      redis.call('PEXPIRE', h, ARGV[5])
    else
      local prio = tonumber(redis.call('HGET', h, 'priority') or '1')
      redis.call('HSET', h, 'state', 'waiting')
      redis.call('ZADD', KEYS[1], now + (prio - 1) * step, k)
    end
  end
end

while true do
  local head = redis.call('ZRANGE', KEYS[1], 0, 0)
  if #head == 0 then
    return false
  end
  local k = head[1]
  local h = ARGV[4] .. k
  redis.call('ZREM', KEYS[1], k)
  if redis.call('HGET', h, 'state') == 'waiting' then
    redis.call('HSET', h, 'state', 'active', 'started_at', ARGV[1])
    redis.call('HINCRBY', h, 'attempts', 1)
    redis.call('ZADD', KEYS[3], now + tonumber(ARGV[2]), k)
    return k
  end
end
`)

// KEYS: hash, active
// ARGV: id, progress, now, lease_ms, key, attempt
var progressScript = redis.NewScript(`
local cur = redis.call('HMGET', KEYS[1], 'id', 'state', 'attempts')
if cur[1] ~= ARGV[1] or cur[2] ~= 'active' or cur[3] ~= ARGV[6] then
  return -1
end
redis.call('HSET', KEYS[1], 'progress', ARGV[2])
redis.call('ZADD', KEYS[2], tonumber(ARGV[3]) + tonumber(ARGV[4]), ARGV[5])
if redis.call('HGET', KEYS[1], 'cancel') == '1' then
  return 1
end
return 0
`)

// KEYS: hash, active
// ARGV: id, state, now, retention_ms, key, error, attempt
var finishScript = redis.NewScript(`
local cur = redis.call('HMGET', KEYS[1], 'id', 'state', 'attempts')
if cur[1] ~= ARGV[1] or cur[2] ~= 'active' or cur[3] ~= ARGV[7] then
  return 0
end
redis.call('ZREM', KEYS[2], ARGV[5])
redis.call('HSET', KEYS[1], 'state', ARGV[2], 'finished_at', ARGV[3], 'error', ARGV[6])
if ARGV[2] == 'completed' then
  redis.call('HSET', KEYS[1], 'progress', '100')
end
redis.call('PEXPIRE', KEYS[1], ARGV[4])
return 1
`)

// KEYS: hash, waiting, delayed
// ARGV: key
var removeScript = redis.NewScript(`
local state = redis.call('HGET', KEYS[1], 'state')
if state == 'waiting' or state == 'delayed' then
  redis.call('ZREM', KEYS[2], ARGV[1])
  redis.call('ZREM', KEYS[3], ARGV[1])
  redis.call('DEL', KEYS[1])
  return 'removed'
end
if state == 'active' then
  redis.call('HSET', KEYS[1], 'cancel', '1')
  return 'active'
end
return 'absent'
`)
