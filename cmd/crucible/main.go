package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jbweber/crucible/internal/config"
	"github.com/jbweber/crucible/internal/descriptor"
	"github.com/jbweber/crucible/internal/diff"
	"github.com/jbweber/crucible/internal/loader"
	"github.com/jbweber/crucible/internal/output"
	"github.com/jbweber/crucible/internal/validate"
)

var (
	version = "dev"
	commit  = "unknown"
)

var (
	outputFormat string
	noHeaders    bool
	profilePath  string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "crucible",
	Short: "Crucible - Libvirt domain descriptor validation tool",
	Long: `Crucible is a CLI tool for validating, normalizing, and comparing
libvirt domain XML descriptors.

It parses domain XML into a structured model, checks for addressing
conflicts (duplicate aliases, duplicate addresses, dangling controller
references, capacity overruns), assigns deterministic aliases and
addresses to unconfigured devices, and diffs two descriptors
independent of device order.`,
	Version: fmt.Sprintf("%s (commit: %s)", version, commit),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return output.ValidateFormat(outputFormat)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table",
		"output format (table, yaml, json)")
	rootCmd.PersistentFlags().BoolVar(&noHeaders, "no-headers", false,
		"omit header rows in table output")
	rootCmd.PersistentFlags().StringVar(&profilePath, "profile", "",
		"path to a capacity profile YAML file (defaults apply when omitted)")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(normalizeCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(summaryCmd)
}

// loadProfile returns the capacity profile to validate against,
// falling back to built-in defaults when --profile is not given.
func loadProfile() (*config.Profile, error) {
	if profilePath == "" {
		return config.Default(), nil
	}
	profile, err := config.Load(profilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return profile, nil
}

func newFormatter() (output.Formatter, error) {
	return output.NewFormatter(output.Options{
		Format:    output.Format(outputFormat),
		NoHeaders: noHeaders,
	})
}

// printWarnings writes parse warnings to stderr so they never mix with
// machine-readable output on stdout.
func printWarnings(f output.Formatter, warnings []descriptor.Warning) {
	if len(warnings) == 0 {
		return
	}
	text, err := f.FormatWarnings(warnings)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to format warnings: %v\n", err)
		return
	}
	fmt.Fprint(os.Stderr, text)
}

var validateCmd = &cobra.Command{
	Use:   "validate <domain.xml>",
	Short: "Validate a domain descriptor",
	Long: `Validate a libvirt domain XML file against its capacity profile.

Reports duplicate aliases, duplicate device addresses, dangling
controller references, capacity overruns, and overlapping memory
module regions. Exits non-zero when violations are found.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := loadProfile()
		if err != nil {
			return err
		}

		d, warnings, err := loader.LoadFromFile(args[0])
		if err != nil {
			return err
		}

		formatter, err := newFormatter()
		if err != nil {
			return err
		}
		printWarnings(formatter, warnings)

		violations := validate.Check(d, profile)
		text, err := formatter.FormatViolations(violations)
		if err != nil {
			return err
		}
		fmt.Print(text)

		if len(violations) > 0 {
			cmd.SilenceUsage = true
			return fmt.Errorf("found %d violation(s)", len(violations))
		}
		return nil
	},
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize <domain.xml>",
	Short: "Assign missing aliases and addresses",
	Long: `Normalize a libvirt domain XML file by assigning deterministic
aliases and device addresses to devices that lack them. Devices that
already carry an alias or address are left untouched.

The normalized XML is written to stdout, or back to the input file
with --write.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		writeInPlace, err := cmd.Flags().GetBool("write")
		if err != nil {
			return err
		}

		profile, err := loadProfile()
		if err != nil {
			return err
		}

		d, warnings, err := loader.LoadFromFile(args[0])
		if err != nil {
			return err
		}

		formatter, err := newFormatter()
		if err != nil {
			return err
		}
		printWarnings(formatter, warnings)

		if err := descriptor.Normalize(d, profile); err != nil {
			return fmt.Errorf("failed to normalize: %w", err)
		}

		if writeInPlace {
			if err := loader.SaveToFile(d, args[0]); err != nil {
				return err
			}
			fmt.Printf("✓ Normalized %s\n", args[0])
			return nil
		}

		xml, err := descriptor.Serialize(d)
		if err != nil {
			return fmt.Errorf("failed to serialize: %w", err)
		}
		fmt.Println(xml)
		return nil
	},
}

func init() {
	normalizeCmd.Flags().BoolP("write", "w", false, "write the normalized XML back to the input file")
}

var diffCmd = &cobra.Command{
	Use:   "diff <expected.xml> <actual.xml>",
	Short: "Compare two domain descriptors",
	Long: `Compare two libvirt domain XML files structurally.

Devices are matched by identity (alias, then address, then kind and
position), so reordering devices inside <devices> produces no
differences. Exits non-zero when the descriptors differ.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		expected, _, err := loader.LoadFromFile(args[0])
		if err != nil {
			return err
		}
		actual, _, err := loader.LoadFromFile(args[1])
		if err != nil {
			return err
		}

		formatter, err := newFormatter()
		if err != nil {
			return err
		}

		differences := diff.Compare(expected, actual)
		text, err := formatter.FormatDifferences(differences)
		if err != nil {
			return err
		}
		fmt.Print(text)

		if len(differences) > 0 {
			cmd.SilenceUsage = true
			return fmt.Errorf("found %d difference(s)", len(differences))
		}
		return nil
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary <domain.xml>",
	Short: "Show a summary of a domain descriptor",
	Long:  `Parse a libvirt domain XML file and print a short summary of it.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, warnings, err := loader.LoadFromFile(args[0])
		if err != nil {
			return err
		}

		formatter, err := newFormatter()
		if err != nil {
			return err
		}
		printWarnings(formatter, warnings)

		text, err := formatter.FormatSummary(d)
		if err != nil {
			return err
		}
		fmt.Print(text)
		return nil
	},
}
