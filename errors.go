package easel

import "fmt"

// ValidationError reports a malformed document on load or import. The
// already-loaded state is unaffected; the caller rejects the input.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid document: " + e.Reason
}

// ResourceError reports that a single item's image reference failed to
// decode or fetch. Recovery is local: the item is skipped during load, or
// the prior resource is left in place during an update attempt.
type ResourceError struct {
	SourceRef string
	Err       error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("resolve image %q: %v", truncateRef(e.SourceRef), e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// PersistenceError reports a save or load failure at the transport or
// storage level. In-memory state is preserved so the user can retry.
type PersistenceError struct {
	Op  string // "save" or "load"
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s document: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// GenerationError reports that the generation collaborator returned an
// error or no image. The prompt input is preserved for retry.
type GenerationError struct {
	Message string
}

func (e *GenerationError) Error() string {
	return "generate image: " + e.Message
}

// truncateRef shortens long source references (data URIs in particular)
// for error messages and log fields.
func truncateRef(ref string) string {
	const max = 64
	if len(ref) <= max {
		return ref
	}
	return ref[:max] + "..."
}
