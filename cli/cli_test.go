package cli

import (
	"context"
	flag "github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"strings"
	"testing"
)

func testCommandSet(out *strings.Builder) *CommandSet {
	set := NewCommandSet("tool", "tool does things.")
	set.Printer().Redirect(out)
	return set
}

func TestCommand_Exec(t *testing.T) {
	var out strings.Builder
	set := testCommandSet(&out)
	cmd := set.AddCommand("test", "test command")
	assert.NoError(t, cmd.Exec(context.Background(), nil), "A command without a function prints usage")
	assert.Contains(t, out.String(), "test command")

	executed := false
	cmd.Does(func(ctx context.Context, flags *flag.FlagSet, _ *Printer) error {
		executed = true
		return nil
	})
	assert.NoError(t, cmd.Exec(context.Background(), nil))
	assert.True(t, executed)
}

func TestCommand_Exec_Context(t *testing.T) {
	var out strings.Builder
	set := testCommandSet(&out)
	type ctxKey struct{}
	var got any
	set.AddCommand("test", "test command").Does(func(ctx context.Context, _ *flag.FlagSet, _ *Printer) error {
		got = ctx.Value(ctxKey{})
		return nil
	})
	ctx := context.WithValue(context.Background(), ctxKey{}, "value")
	assert.NoError(t, set.Exec(ctx, []string{"test"}))
	assert.Equal(t, "value", got)
}

func TestCommandSet_Exec(t *testing.T) {
	var out strings.Builder
	set := testCommandSet(&out)
	assert.ErrorIs(t, set.Exec(context.Background(), nil), &UsageError{})
	assert.Contains(t, out.String(), "COMMANDS:")

	executed := 0
	set.AddCommand("Test Me", "test command", "t", " ").Does(func(ctx context.Context, flags *flag.FlagSet, _ *Printer) error {
		executed++
		return nil
	})
	assert.NoError(t, set.Exec(context.Background(), []string{"testme"}))
	assert.NoError(t, set.Exec(context.Background(), []string{"TESTME"}))
	assert.NoError(t, set.Exec(context.Background(), []string{"T"}))
	assert.Equal(t, 3, executed)

	assert.ErrorIs(t, set.Exec(context.Background(), []string{"Does", "not", "exist"}), ErrUnknownCommand)
}

func TestCommandSet_Help(t *testing.T) {
	for _, arg := range HelpPatterns {
		var out strings.Builder
		set := testCommandSet(&out)
		set.AddCommand("alpha", "first command", "a")
		set.AddCommand("beta", "second command")
		assert.NoError(t, set.Exec(context.Background(), []string{arg}))
		assert.Contains(t, out.String(), "tool does things.")
		assert.Contains(t, out.String(), "  alpha, a    first command\n")
		assert.Contains(t, out.String(), "  beta        second command\n")
	}
}

func TestCommand_Help(t *testing.T) {
	var out strings.Builder
	set := testCommandSet(&out)
	executed := false
	cmd := set.AddCommand("sub", "Shows a sub-command").Usage("[FLAGS...] FILE").Does(func(ctx context.Context, flags *flag.FlagSet, _ *Printer) error {
		executed = true
		return nil
	})
	cmd.Flags().Bool("do-something", false, "Makes the sub-command do something")
	assert.NoError(t, set.Exec(context.Background(), []string{"sub", "-h"}))
	assert.False(t, executed)
	assert.Equal(t, `Shows a sub-command

USAGE:
tool sub [FLAGS...] FILE

FLAGS
      --do-something   Makes the sub-command do something
  -h, --help           Prints this usage information
`, out.String())
}

func TestCommand_UsageError(t *testing.T) {
	var out strings.Builder
	set := testCommandSet(&out)
	set.AddCommand("sub", "Shows a sub-command").Does(func(ctx context.Context, flags *flag.FlagSet, _ *Printer) error {
		return NewUsageError("missing thing")
	})
	err := set.Exec(context.Background(), []string{"sub"})
	assert.ErrorIs(t, err, &UsageError{})
	assert.True(t, strings.HasPrefix(out.String(), "usage error: missing thing\n\nShows a sub-command"))

	out.Reset()
	err = set.Exec(context.Background(), []string{"sub", "--nope"})
	assert.ErrorIs(t, err, &UsageError{}, "Unknown flags are usage errors")
	assert.Contains(t, out.String(), "nope")
}
