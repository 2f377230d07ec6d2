package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/varelim/internal/network"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool                      `json:"valid"`
	Network   string                    `json:"network,omitempty"`
	Variables int                       `json:"variables,omitempty"`
	CPTs      int                       `json:"cpts,omitempty"`
	Errors    []network.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <network>",
		Short: "Validate a network without running a query",
		Long: `Compile a CUE network and check it for structural errors.

<network> is a .cue file or a directory of .cue files defining a top-level
"network" value. Validation reports every problem it finds: empty or
duplicate domains, unknown or duplicate parents, missing CPTs, rows outside
a domain, conditional distributions that do not sum to one, and cycles.

Exit codes:
  0 - Network is valid
  1 - Network has validation errors
  2 - Network could not be loaded

Examples:
  varelim validate ./networks/alarm
  varelim validate ./networks/rain.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	net, err := network.Load(path)
	if err != nil {
		return outputLoadError(formatter, err)
	}

	formatter.VerboseLog("Loaded network %s: %d variable(s), %d CPT(s)", net.Name, len(net.Variables), len(net.CPTs))

	if errs := network.Validate(net); len(errs) > 0 {
		return outputValidationErrors(formatter, net.Name, errs)
	}

	return outputValidateSuccess(formatter, net)
}

// outputLoadError reports a network that could not be loaded (exit code 2).
func outputLoadError(formatter *OutputFormatter, err error) error {
	var loadErr *network.LoadError
	if errors.As(err, &loadErr) {
		_ = formatter.Error(loadErr.Code, loadErr.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load network", err)
	}
	_ = formatter.Error(network.ErrCodeGeneric, err.Error(), nil)
	return WrapExitError(ExitCommandError, "failed to load network", err)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, net *network.Network) error {
	if formatter.JSON() {
		return formatter.Success(ValidationResult{
			Valid:     true,
			Network:   net.Name,
			Variables: len(net.Variables),
			CPTs:      len(net.CPTs),
		})
	}

	fmt.Fprintf(formatter.Writer, "✓ Network %s is valid (%d variables, %d CPTs)\n",
		net.Name, len(net.Variables), len(net.CPTs))
	return nil
}

// outputValidationErrors outputs every validation error (exit code 1).
func outputValidationErrors(formatter *OutputFormatter, name string, errs []network.ValidationError) error {
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.JSON() {
		err := formatter.encode(CLIResponse{
			Status: "error",
			Data: ValidationResult{
				Valid:   false,
				Network: name,
				Errors:  errs,
			},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		})
		if err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintf(formatter.Writer, "✗ Network %s is invalid\n", name)
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	return failure
}
