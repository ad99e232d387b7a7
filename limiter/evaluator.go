package limiter

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/up2jj/redlimit/errcode"
	redisx "github.com/up2jj/redlimit/redis"
)

// Evaluate runs the admission check for one request.
//
// Primary path: read the digest from the shared cache, obtain the bucket
// keys, submit EVALSHA and parse the reply. When the store answers
// NOSCRIPT - its script cache was cleared externally while ours still
// holds the old digest - the script is force-reloaded and the command
// resubmitted exactly once; that second result is final either way.
// Every other failure, including a key func failure, is returned
// immediately: the caller resolves failures to fail-open.
func Evaluate(ctx context.Context, c *gin.Context, cfg *Config) Outcome {
	digest, err := cfg.cache.Digest(ctx, cfg.Command, cfg.ScriptID, cfg.Source)
	if err != nil {
		return Outcome{Err: ErrScriptLoad.Wrap(err)}
	}

	out, err := evalOnce(ctx, c, cfg, digest)
	if redisx.IsNoScript(err) {
		cfg.Metrics.RecordReload(ctx, cfg.ScriptID)
		digest, err = cfg.cache.Reload(ctx, cfg.Command, cfg.ScriptID, cfg.Source)
		if err != nil {
			return Outcome{Err: ErrScriptLoad.Wrap(err)}
		}
		out, err = evalOnce(ctx, c, cfg, digest)
	}
	if err != nil {
		var layered *errcode.LayeredError
		if errors.As(err, &layered) {
			return Outcome{Err: err}
		}
		return Outcome{Err: ErrEval.Wrap(err)}
	}
	return out
}

// evalOnce performs one key lookup and one EVALSHA round trip. Command
// errors are returned unwrapped so the caller can classify NOSCRIPT.
func evalOnce(ctx context.Context, c *gin.Context, cfg *Config, digest string) (Outcome, error) {
	keys, err := cfg.Key(c, cfg.KeyArg)
	if err != nil {
		return Outcome{}, ErrKeyProvider.Wrap(err)
	}
	if len(keys) == 0 {
		return Outcome{}, ErrKeyProvider.WithMsgf("key func returned no keys")
	}

	args := make([]interface{}, 0, 3+len(keys)+len(cfg.Opts))
	args = append(args, "EVALSHA", digest, len(keys))
	for _, k := range keys {
		args = append(args, k)
	}
	for _, o := range cfg.Opts {
		args = append(args, o)
	}

	raw, err := cfg.Command.Command(ctx, args...)
	if err != nil {
		return Outcome{}, err
	}
	return parseReply(raw)
}

// parseReply validates the script reply shape strictly: a top-level
// array whose first element is the action marker ("allow" allows,
// anything else denies) and whose second element is the header value
// list. Additional elements are ignored. Any shape violation is the
// remote-script logical error kind - never a guess at positions.
func parseReply(raw interface{}) (Outcome, error) {
	arr, ok := raw.([]interface{})
	if !ok {
		return Outcome{}, ErrBadReply.WithMsgf("reply has type %T, want array", raw)
	}
	if len(arr) < 2 {
		return Outcome{}, ErrBadReply.WithMsgf("reply has %d elements, want at least 2", len(arr))
	}

	action := ActionDeny
	if s, ok := arr[0].(string); ok && s == string(ActionAllow) {
		action = ActionAllow
	}

	rawHeaders, ok := arr[1].([]interface{})
	if !ok {
		return Outcome{}, ErrBadReply.WithMsgf("header list has type %T, want array", arr[1])
	}

	headers := make([]HeaderValue, 0, len(rawHeaders))
	for i, h := range rawHeaders {
		switch v := h.(type) {
		case []interface{}:
			if len(v) != 2 {
				return Outcome{}, ErrBadReply.WithMsgf("header %d: pair has %d elements, want 2", i, len(v))
			}
			name, ok := scalarString(v[0])
			if !ok {
				return Outcome{}, ErrBadReply.WithMsgf("header %d: name has type %T", i, v[0])
			}
			value, ok := scalarString(v[1])
			if !ok {
				return Outcome{}, ErrBadReply.WithMsgf("header %d: value has type %T", i, v[1])
			}
			headers = append(headers, HeaderValue{Name: name, Value: value})
		default:
			value, ok := scalarString(v)
			if !ok {
				return Outcome{}, ErrBadReply.WithMsgf("header %d has type %T", i, v)
			}
			headers = append(headers, HeaderValue{Value: value})
		}
	}

	return Outcome{Action: action, Headers: headers}, nil
}

// scalarString converts the scalar types Redis replies carry.
func scalarString(v interface{}) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case int64:
		return strconv.FormatInt(x, 10), true
	}
	return "", false
}
