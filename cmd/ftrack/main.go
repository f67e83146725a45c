package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"ftrack-go/internal/app"
	"ftrack-go/internal/config"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and wraps it in an App.
func newApp() (*app.App, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(cfg), nil
}

// loadConfig reads the config file from its default (or overridden)
// location, returning both the config and the path it was read from.
func loadConfig() (*config.Config, string, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, "", fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, "", fmt.Errorf("reading config: %w", err)
	}
	return cfg, defaults["config_path"], nil
}

// promptPassphrase reads a passphrase from the terminal without echo.
func promptPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(pass), nil
}

var rootCmd = &cobra.Command{
	Use:   "ftrack",
	Short: "File metadata tracker",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration, store, and keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		encrypt, _ := cmd.Flags().GetBool("encrypt")

		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		cfg.History.Encrypt = encrypt

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
			return fmt.Errorf("creating log directory: %w", err)
		}

		a := app.New(cfg)
		if err := a.InitStore(); err != nil {
			return err
		}

		if encrypt {
			pass, err := promptPassphrase("Passphrase for history log key: ")
			if err != nil {
				return err
			}
			again, err := promptPassphrase("Repeat passphrase: ")
			if err != nil {
				return err
			}
			if pass != again {
				return fmt.Errorf("passphrases do not match")
			}
			if err := a.SetupEncryption(pass); err != nil {
				return fmt.Errorf("setting up encryption: %w", err)
			}
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Store:   %s\n", cfg.Database)
		fmt.Printf("Log Dir: %s\n", cfg.LogDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", path)
		fmt.Printf("Store:    %s\n", cfg.Database)
		fmt.Printf("Log Dir:  %s\n", cfg.LogDir)
		fmt.Printf("Compress: %t\n", cfg.History.Compress)
		fmt.Printf("Encrypt:  %t\n", cfg.History.Encrypt)
		fmt.Println("Tracked filesystems:")
		for root, fsID := range cfg.Filesystems {
			fmt.Printf("  %s (fs_id %d)\n", root, fsID)
		}
		return nil
	},
}

// fs command
var fsCmd = &cobra.Command{
	Use:   "fs",
	Short: "Manage tracked filesystem roots",
}

var fsAddCmd = &cobra.Command{
	Use:   "add PATH",
	Short: "Track a filesystem root",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}

		a := app.New(cfg)
		abs, added, err := a.AddFilesystem(args[0])
		if err != nil {
			return err
		}
		if !added {
			fmt.Printf("Already tracking: %s\n", abs)
			return nil
		}

		if err := config.WriteToFile(path, cfg); err != nil {
			return err
		}
		fmt.Printf("Tracking filesystem root: %s (fs_id %d)\n", abs, cfg.Filesystems[abs])
		return nil
	},
}

var fsRemoveCmd = &cobra.Command{
	Use:   "remove PATH",
	Short: "Stop tracking a filesystem root",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}

		a := app.New(cfg)
		abs, removed, err := a.RemoveFilesystem(args[0])
		if err != nil {
			return err
		}
		if !removed {
			fmt.Printf("Not tracking: %s\n", abs)
			return nil
		}

		if err := config.WriteToFile(path, cfg); err != nil {
			return err
		}
		fmt.Printf("No longer tracking: %s\n", abs)
		fmt.Println("Records on this filesystem will be pruned on the next update.")
		return nil
	},
}

// update command
var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Reconcile the store against tracked filesystems",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		sum, err := a.Update()
		if err != nil {
			return fmt.Errorf("update failed: %w", err)
		}

		fmt.Printf("Added:   %d\n", sum.Added)
		fmt.Printf("Updated: %d\n", sum.Updated)
		fmt.Printf("Deleted: %d\n", sum.Deleted)
		fmt.Printf("Skipped: %d\n", sum.Skipped)
		fmt.Printf("Errors:  %d\n", sum.Errors)
		return nil
	},
}

// dump command
var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print every record in the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		return a.Dump(os.Stdout)
	},
}

// find command
var findCmd = &cobra.Command{
	Use:   "find",
	Short: "Find records by hash or path pattern",
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, _ := cmd.Flags().GetString("hash")
		pattern, _ := cmd.Flags().GetString("pattern")

		if (hash == "") == (pattern == "") {
			return fmt.Errorf("exactly one of --hash or --pattern is required")
		}

		a, err := newApp()
		if err != nil {
			return err
		}

		if hash != "" {
			return a.FindByHash(hash, os.Stdout)
		}
		return a.FindByPattern(pattern, os.Stdout)
	},
}

// log command
var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Inspect history logs",
}

var logShowCmd = &cobra.Command{
	Use:   "show FILE",
	Short: "Print the entries of a history log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		askPass := func() (string, error) {
			return promptPassphrase("Passphrase for history log key: ")
		}
		return a.ShowHistory(args[0], askPass, os.Stdout)
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().Bool("encrypt", false, "Encrypt history logs with a passphrase-protected key")
	configCmd.AddCommand(configListCmd)

	fsCmd.AddCommand(fsAddCmd)
	fsCmd.AddCommand(fsRemoveCmd)

	findCmd.Flags().String("hash", "", "Hex-encoded content hash to search for")
	findCmd.Flags().String("pattern", "", "Regular expression matched against record paths")

	logCmd.AddCommand(logShowCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(fsCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(findCmd)
	rootCmd.AddCommand(logCmd)
}
