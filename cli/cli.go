package cli

import (
	"context"
	"errors"
	"fmt"
	flag "github.com/spf13/pflag"
	"io"
	"regexp"
	"slices"
	"strings"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	HelpPatterns      = []string{"--help", "-h", "help"} // HelpPatterns are the arguments that make a [CommandSet] print its usage.

	keyCleansePattern = regexp.MustCompile(`\s`)
)

// CommandFunc is executed by a [Command] after its flags are parsed.
// The context is the one passed to [CommandSet.Exec], and is usually cancelled when the user interrupts the CLI.
type CommandFunc = func(ctx context.Context, flags *flag.FlagSet, printer *Printer) error

// Command is an executable sub-command of a [CommandSet].
type Command struct {
	flags      *flag.FlagSet
	exec       CommandFunc
	key        string
	path       string
	shortUsage string
	usage      string
	printer    *Printer
	aliases    []string
}

func cleanseKey(key string) string {
	return keyCleansePattern.ReplaceAllString(strings.ToLower(key), "")
}

func newCommand(key, parent, shortUsage string, printer *Printer) *Command {
	fs := flag.NewFlagSet(key, flag.ContinueOnError)
	fs.BoolP("help", "h", false, "Prints this usage information")
	fs.SetInterspersed(false)
	cmd := &Command{flags: fs, key: key, shortUsage: shortUsage, printer: printer}
	if len(parent) > 0 {
		cmd.path = parent + " " + key
	} else {
		cmd.path = key
	}
	fs.Usage = cmd.printUsage
	return cmd
}

// Does specifies the [CommandFunc] executed by this [Command]. A nil function is ignored.
func (c *Command) Does(commandFunc CommandFunc) *Command {
	if commandFunc == nil {
		return c
	}
	c.exec = commandFunc
	return c
}

// Key returns the normalized name used to invoke this [Command].
func (c *Command) Key() string {
	return c.key
}

// CommandPath returns the full invocation of this [Command], including the name of its [CommandSet].
func (c *Command) CommandPath() string {
	return c.path
}

// Flags returns the [flag.FlagSet] for this [Command], so flags can be defined before execution.
func (c *Command) Flags() *flag.FlagSet {
	return c.flags
}

// Printer returns the [Printer] shared with the [CommandSet].
func (c *Command) Printer() *Printer {
	return c.printer
}

// Usage sets the text following the command path on the USAGE line, e.g. "[FLAGS...] FILE".
// Further lines may describe arguments in more detail.
func (c *Command) Usage(format string, args ...any) *Command {
	c.usage = fmt.Sprintf(format, args...)
	return c
}

func (c *Command) printUsage() {
	var buf strings.Builder
	buf.WriteString(c.shortUsage)
	buf.WriteString("\n\nUSAGE:\n")
	buf.WriteString(c.path)
	if len(c.usage) > 0 {
		buf.WriteString(" " + c.usage)
	}
	if !strings.HasSuffix(c.usage, "\n") {
		buf.WriteString("\n")
	}
	buf.WriteString("\nFLAGS\n")
	buf.WriteString(c.flags.FlagUsages())
	c.printer.Print(buf.String())
}

// Exec parses flags from args and executes the [CommandFunc].
// Usage is printed instead when a help flag is given or no [CommandFunc] is set.
// Flag parse failures and [UsageError] results are printed along with usage, and returned as a [UsageError].
func (c *Command) Exec(ctx context.Context, args []string) error {
	c.flags.SetOutput(io.Discard)
	if err := c.flags.Parse(args); err != nil {
		err = &UsageError{wrapped: err}
		c.respondUsageError(err)
		return err
	}
	if MustGet(c.flags.GetBool("help")) || c.exec == nil {
		c.printUsage()
		return nil
	}
	err := c.exec(ctx, c.flags, c.printer)
	if errors.Is(err, &UsageError{}) {
		c.respondUsageError(err)
	}
	return err
}

func (c *Command) respondUsageError(err error) {
	c.printer.Println(err.Error())
	c.printer.Println()
	c.printUsage()
}

// CommandSet is the top level group of [Command] in a CLI.
type CommandSet struct {
	name        string
	description string
	commands    map[string]*Command
	aliases     map[string]*Command
	printer     *Printer
}

// NewCommandSet creates the root of a CLI invoked as name.
// The description is printed at the top of the root usage information.
func NewCommandSet(name, description string) *CommandSet {
	return &CommandSet{
		name:        name,
		description: description,
		printer:     NewPrinter(nil),
	}
}

// Printer returns the [Printer] shared by every [Command] in this [CommandSet].
func (s *CommandSet) Printer() *Printer {
	return s.printer
}

// AddCommand adds a sub-command to this [CommandSet].
// The key and aliases are lower-cased with whitespace removed, and matched case-insensitively.
func (s *CommandSet) AddCommand(key, shortUsage string, aliases ...string) *Command {
	key = cleanseKey(key)
	cmd := newCommand(key, s.name, shortUsage, s.printer)
	if s.commands == nil {
		s.commands = map[string]*Command{}
	}
	s.commands[key] = cmd
	for _, alias := range aliases {
		alias = cleanseKey(alias)
		if len(alias) == 0 {
			continue
		}
		if s.aliases == nil {
			s.aliases = map[string]*Command{}
		}
		s.aliases[alias] = cmd
		cmd.aliases = append(cmd.aliases, alias)
	}
	slices.Sort(cmd.aliases)
	return cmd
}

// Exec runs the sub-command named by the first argument with the remaining arguments.
// Root usage is printed when a [HelpPatterns] argument is given, or when args is empty, in which case a [UsageError] is returned.
func (s *CommandSet) Exec(ctx context.Context, args []string) error {
	if len(args) == 0 {
		s.PrintUsage()
		return NewUsageError("no command given")
	}
	if slices.Contains(HelpPatterns, args[0]) {
		s.PrintUsage()
		return nil
	}
	key := strings.ToLower(args[0])
	cmd, ok := s.commands[key]
	if !ok {
		cmd, ok = s.aliases[key]
		if !ok {
			s.PrintUsage()
			return fmt.Errorf("%w: %s", ErrUnknownCommand, args[0])
		}
	}
	return cmd.Exec(ctx, args[1:])
}

// PrintUsage prints the root usage information, listing every sub-command.
func (s *CommandSet) PrintUsage() {
	var buf strings.Builder
	if len(s.description) > 0 {
		buf.WriteString(strings.TrimSuffix(s.description, "\n"))
		buf.WriteString("\n\n")
	}
	buf.WriteString(fmt.Sprintf("USAGE:\n  %s COMMAND [FLAGS...] [ARGS...]\n\nCOMMANDS:\n", s.name))
	buf.WriteString(s.CommandUsages())
	buf.WriteString(fmt.Sprintf("\nUse '%s COMMAND --help' for command flags.\n", s.name))
	s.printer.Print(buf.String())
}

// CommandUsages lists each sub-command, with its aliases, and its short usage, sorted by key.
func (s *CommandSet) CommandUsages() string {
	keys := make([]string, 0, len(s.commands))
	for key := range s.commands {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	var (
		buf    strings.Builder
		names  = make([]string, len(keys))
		maxLen int
	)
	for i, key := range keys {
		names[i] = strings.Join(append([]string{key}, s.commands[key].aliases...), ", ")
		maxLen = max(maxLen, len(names[i]))
	}
	fmtStr := fmt.Sprintf("  %%-%ds    %%s\n", maxLen)
	for i, key := range keys {
		buf.WriteString(fmt.Sprintf(fmtStr, names[i], s.commands[key].shortUsage))
	}
	return buf.String()
}
