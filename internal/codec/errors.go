package codec

import "fmt"

// FailureKind classifies a per-file codec failure so the engine can report
// it without string matching.
type FailureKind int

const (
	// KindMissingCapability marks files that need an optional codec
	// (RAW decode, HEIF encode) that was not compiled in.
	KindMissingCapability FailureKind = iota + 1
	KindDecodeFailure
	KindEncodeFailure
	KindIOFailure
)

func (k FailureKind) String() string {
	switch k {
	case KindMissingCapability:
		return "missing capability"
	case KindDecodeFailure:
		return "decode failed"
	case KindEncodeFailure:
		return "encode failed"
	case KindIOFailure:
		return "io failed"
	default:
		return "unknown failure"
	}
}

// Failure is a tagged per-file error. It never aborts a batch; workers
// convert it to a file-error event and continue.
type Failure struct {
	Kind FailureKind
	Path string
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s: %v", f.Path, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func failf(kind FailureKind, path, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Path: path, Err: fmt.Errorf(format, args...)}
}
