package script

// Built-in rate limiting scripts. Each script receives the bucket keys in
// KEYS and the resolved limiter options in ARGV, and returns a two-element
// reply: the literal "allow" or "deny", followed by an ordered list of
// header values. A header value is either a bare scalar (matched
// positionally against the configured header names) or a two-element
// {name, value} pair carrying its own header name.

// FixedWindowScript counts requests in a window of ARGV[2] seconds and
// allows up to ARGV[1] of them.
//
// KEYS[1] - bucket key
// ARGV[1] - request limit per window
// ARGV[2] - window length in seconds
const FixedWindowScript = `
local count = redis.call("INCR", KEYS[1])
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
if count == 1 then
  redis.call("EXPIRE", KEYS[1], window)
end
local ttl = redis.call("TTL", KEYS[1])
if ttl < 0 then
  ttl = window
end
local remaining = limit - count
if remaining >= 0 then
  return {"allow", {ARGV[1], tostring(ttl), tostring(remaining)}}
end
return {"deny", {ARGV[1], tostring(ttl), "0", {"retry-after", tostring(ttl)}}}
`

// TokenBucketScript refills ARGV[2] tokens per second up to a capacity of
// ARGV[1] and spends ARGV[3] (default 1) tokens per request.
//
// KEYS[1] - bucket key
// ARGV[1] - bucket capacity
// ARGV[2] - refill rate, tokens per second
// ARGV[3] - tokens consumed per request (optional, default 1)
const TokenBucketScript = `
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local requested = tonumber(ARGV[3]) or 1
local now = tonumber(redis.call("TIME")[1])
local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(state[1])
local ts = tonumber(state[2])
if tokens == nil then
  tokens = capacity
  ts = now
end
local elapsed = now - ts
if elapsed > 0 then
  tokens = math.min(capacity, tokens + elapsed * rate)
end
local allowed = tokens >= requested
if allowed then
  tokens = tokens - requested
end
redis.call("HMSET", KEYS[1], "tokens", tostring(tokens), "ts", tostring(now))
redis.call("EXPIRE", KEYS[1], math.ceil(capacity / rate) * 2)
local remaining = math.floor(tokens)
local reset = math.ceil((capacity - tokens) / rate)
if allowed then
  return {"allow", {ARGV[1], tostring(reset), tostring(remaining)}}
end
local retry = math.ceil((requested - tokens) / rate)
return {"deny", {ARGV[1], tostring(reset), tostring(remaining), {"retry-after", tostring(retry)}}}
`
