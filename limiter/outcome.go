package limiter

// Action is the admission decision returned by a script.
type Action string

const (
	// ActionAllow lets the request proceed.
	ActionAllow Action = "allow"
	// ActionDeny rejects the request with 429.
	ActionDeny Action = "deny"
)

// HeaderValue is one script-returned header value. Name is empty for
// bare values, which take their name positionally from the configured
// header list; a non-empty Name (from an explicit name/value pair in the
// reply) overrides the positional default.
type HeaderValue struct {
	Name  string
	Value string
}

// Outcome is the result of one evaluation: either a decision with its
// header values, or a failure. Failures are contained by the response
// applier and resolved to fail-open; they never reject a request.
type Outcome struct {
	Action  Action
	Headers []HeaderValue
	Err     error
}

// Failed reports whether the evaluation did not produce a decision.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// Denied reports whether the request must be rejected.
func (o Outcome) Denied() bool {
	return o.Err == nil && o.Action == ActionDeny
}
