package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jbweber/crucible/internal/inspect"
	"github.com/jbweber/crucible/internal/libvirt"
)

var inspectSocket string

func init() {
	for _, cmd := range []*cobra.Command{inspectCmd, testConnCmd} {
		cmd.Flags().StringVar(&inspectSocket, "socket", "",
			"libvirt socket path (defaults to "+libvirt.DefaultSocketPath+")")
		rootCmd.AddCommand(cmd)
	}
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <domain-name>",
	Short: "Inspect a live libvirt domain",
	Long: `Retrieve a defined domain's persistent XML descriptor from the local
libvirt daemon, parse it, and validate it against the capacity profile.

Exits non-zero when violations are found.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		profile, err := loadProfile()
		if err != nil {
			return err
		}

		client, err := libvirt.ConnectWithContext(cmd.Context(), inspectSocket, 5*time.Second)
		if err != nil {
			return fmt.Errorf("failed to connect to libvirt: %w", err)
		}
		defer func() {
			if closeErr := client.Close(); closeErr != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close libvirt connection: %v\n", closeErr)
			}
		}()

		report, err := inspect.Inspect(client, name, profile)
		if err != nil {
			return err
		}

		formatter, err := newFormatter()
		if err != nil {
			return err
		}
		printWarnings(formatter, report.Warnings)

		summary, err := formatter.FormatSummary(report.Domain)
		if err != nil {
			return err
		}
		fmt.Print(summary)

		text, err := formatter.FormatViolations(report.Violations)
		if err != nil {
			return err
		}
		fmt.Print(text)

		if len(report.Violations) > 0 {
			cmd.SilenceUsage = true
			return fmt.Errorf("found %d violation(s)", len(report.Violations))
		}
		return nil
	},
}

var testConnCmd = &cobra.Command{
	Use:   "test-conn",
	Short: "Test libvirt connection",
	Long:  `Test connectivity to the libvirt daemon and display version information.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := libvirt.ConnectWithContext(cmd.Context(), inspectSocket, 5*time.Second)
		if err != nil {
			return fmt.Errorf("failed to connect to libvirt: %w", err)
		}
		defer func() {
			if closeErr := client.Close(); closeErr != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close libvirt connection: %v\n", closeErr)
			}
		}()

		fmt.Println("✓ Connected to libvirt daemon")

		if err := client.Ping(); err != nil {
			return fmt.Errorf("connection test failed: %w", err)
		}

		// Libvirt packs the version as major*1000000 + minor*1000 + patch.
		version, err := client.Libvirt().ConnectGetLibVersion()
		if err != nil {
			return fmt.Errorf("failed to get libvirt version: %w", err)
		}
		fmt.Printf("✓ Libvirt version: %d.%d.%d\n",
			version/1000000, (version%1000000)/1000, version%1000)

		hostname, err := client.Libvirt().ConnectGetHostname()
		if err != nil {
			return fmt.Errorf("failed to get hostname: %w", err)
		}
		fmt.Printf("✓ Hypervisor hostname: %s\n", hostname)

		return nil
	},
}
