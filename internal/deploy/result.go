package deploy

import "fmt"

// Result is the in-memory summary of one deploy invocation. Uploaded and
// Skipped count artifacts; sidecar objects are not counted. Partial success
// is representable: uploaded > 0 with a non-empty error list.
type Result struct {
	Uploaded int
	Skipped  int
	Errors   []string

	// PublicURL is set by backends whose public base address is only known
	// after the deploy (the content-addressed network backend).
	PublicURL string
}

func (r *Result) appendError(label string, err error) {
	r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", label, err))
}

// Failed reports total failure: nothing uploaded and at least one error.
func (r *Result) Failed() bool {
	return r.Uploaded == 0 && len(r.Errors) > 0
}
