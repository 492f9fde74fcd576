/*
Package cli structures a CLI as a set of sub-commands with posix style flags from [pflag].

  - User-visible output goes to STDERR by default, through a configurable [Printer].
  - Flags are NOT interspersed, so everything after the first argument is passed through as-is.
  - Every [Command] gets '-h' and '--help' flags that print its usage.
  - Returning a [UsageError] from a [CommandFunc] prints the error followed by the command's usage.

Invoking a CLI always follows this form:

	CLI_NAME SUB-COMMAND [FLAGS...] [ARGS...]

[pflag]: https://github.com/spf13/pflag
*/
package cli
