package utils

import "errors"

var (
	// ErrShapeMismatch is returned when array dimensions disagree.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrInvalidModeCount is returned when the requested number of modes
	// exceeds what the snapshot set can support.
	ErrInvalidModeCount = errors.New("invalid mode count")
	// ErrDesignSpace is returned for a malformed design-space box.
	ErrDesignSpace = errors.New("invalid design space")
	// ErrDegenerateAngle is returned for a skew angle outside (0, 180) degrees.
	ErrDegenerateAngle = errors.New("degenerate skew angle")
)
