package cli

import (
	"errors"
	"fmt"
)

var (
	ErrArgMap = errors.New("failed to map argument(s)")
)

// MustGet panics if a [pflag.FlagSet] getter fails, which only happens when the flag isn't defined with that type.
func MustGet[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// MapArgs maps positional arguments to targets in order, requiring at least minArgs of them.
// Extra arguments beyond maxArgs are rejected when maxArgs is >= minArgs.
// The returned error is a [UsageError] wrapping [ErrArgMap].
func MapArgs(args []string, minArgs, maxArgs int, targets ...*string) error {
	if len(args) < minArgs {
		return NewUsageError("%w: expected at least %d argument(s), got %d", ErrArgMap, minArgs, len(args))
	}
	if maxArgs >= minArgs && len(args) > maxArgs {
		return NewUsageError("%w: expected at most %d argument(s), got %d", ErrArgMap, maxArgs, len(args))
	}
	if len(targets) < minArgs {
		return fmt.Errorf("%w: not enough targets (%d) to satisfy minArgs (%d)", ErrArgMap, len(targets), minArgs)
	}
	for i := 0; i < len(args) && i < len(targets); i++ {
		if targets[i] == nil {
			return fmt.Errorf("%w: target %d is nil", ErrArgMap, i)
		}
		*targets[i] = args[i]
	}
	return nil
}
