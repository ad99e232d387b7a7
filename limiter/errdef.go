package limiter

import (
	"net/http"

	"github.com/up2jj/redlimit/errcode"
)

// Limiter error definitions (module code 40).
//
// Resolution errors are fatal at setup time: a middleware installation
// that cannot be fully resolved must fail loudly instead of silently
// running without rate limiting. Evaluation errors are contained per
// request and resolved to fail-open by the response applier.
var (
	// Resolution (fatal at setup)
	ErrUnknownLimiter = errcode.New(40, 1, "limiter", "unknown limiter id", http.StatusInternalServerError)
	ErrUnknownScript  = errcode.New(40, 2, "limiter", "unknown script id", http.StatusInternalServerError)
	ErrMissingCommand = errcode.New(40, 3, "limiter", "no command executor configured", http.StatusInternalServerError)
	ErrMissingKey     = errcode.New(40, 4, "limiter", "no key func configured", http.StatusInternalServerError)
	ErrMissingOpts    = errcode.New(40, 5, "limiter", "no limiter opts configured", http.StatusInternalServerError)

	// Evaluation (contained, fail-open)
	ErrScriptLoad  = errcode.New(40, 6, "limiter", "script registration failed", http.StatusInternalServerError)
	ErrKeyProvider = errcode.New(40, 7, "limiter", "key func failed", http.StatusInternalServerError)
	ErrEval        = errcode.New(40, 8, "limiter", "evaluation command failed", http.StatusInternalServerError)
	ErrBadReply    = errcode.New(40, 9, "limiter", "malformed script reply", http.StatusInternalServerError)
)
