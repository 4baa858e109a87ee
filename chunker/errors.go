package chunker

import "errors"

var (
	// ErrInvalidTargetTokens indicates a non-positive target size.
	ErrInvalidTargetTokens = errors.New("target tokens must be positive")

	// ErrInvalidOverlapTokens indicates a negative overlap.
	ErrInvalidOverlapTokens = errors.New("overlap tokens must not be negative")

	// ErrOverlapTooLarge indicates the overlap is not smaller than the
	// target, which would prevent the window from ever advancing.
	ErrOverlapTooLarge = errors.New("overlap tokens must be smaller than target tokens")
)
