// Package zkidcmd holds the cobra commands of the zkid tool.
package zkidcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"zk-identity/internal/app/config"
	"zk-identity/internal/app/keystore"
	"zk-identity/pkg/logger"
	"zk-identity/pkg/zkp"
)

const (
	// ConfigFlagName is the flag name for the JSON config file.
	ConfigFlagName  = "config"
	ConfigFlagUsage = "Path to a JSON config file"

	// EnvFileFlagName is the flag name for an extra .env file.
	EnvFileFlagName  = "env-file"
	EnvFileFlagUsage = "Path to a .env file loaded before the environment is read"

	// KeyDirFlagName overrides the key directory from config.
	KeyDirFlagName  = "key-dir"
	KeyDirFlagUsage = "Directory holding proving.key and verifying.key"
)

// env is the state shared by subcommands once the root command has loaded the
// configuration.
type env struct {
	cfg config.Config
	log *logger.Logger
}

func (e *env) loader() keystore.FSKeyLoader {
	return keystore.FSKeyLoader{Dir: e.cfg.KeyDir}
}

func (e *env) library() (*zkp.Library, error) {
	opts := []zkp.Option{zkp.WithLogger(e.log)}
	if e.cfg.Concurrency > 0 {
		opts = append(opts, zkp.WithConcurrency(e.cfg.Concurrency))
	}
	lib, err := keystore.OpenLibrary(e.loader(), opts...)
	if err != nil {
		return nil, fmt.Errorf("open keys in %s: %w", e.cfg.KeyDir, err)
	}
	return lib, nil
}

// NewRootCmd returns the zkid command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	e := &env{}

	rootCmd := &cobra.Command{
		Use:           "zkid",
		Short:         "Selective-disclosure identity proofs",
		Long:          `Generate development keys, prove identity predicates and verify exported proof handles`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			configFile, err := cmd.Flags().GetString(ConfigFlagName)
			if err != nil {
				return fmt.Errorf("config flag not found: %w", err)
			}
			envFile, err := cmd.Flags().GetString(EnvFileFlagName)
			if err != nil {
				return fmt.Errorf("env file flag not found: %w", err)
			}

			var envFiles []string
			if envFile != "" {
				envFiles = append(envFiles, envFile)
			}
			e.cfg, err = config.Load(configFile, envFiles...)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed(KeyDirFlagName) {
				if e.cfg.KeyDir, err = cmd.Flags().GetString(KeyDirFlagName); err != nil {
					return fmt.Errorf("key dir flag not found: %w", err)
				}
			}

			e.log = logger.NewFromConfig(e.cfg.Logger).WithOutput(cmd.ErrOrStderr())
			return nil
		},
	}
	rootCmd.PersistentFlags().String(ConfigFlagName, "", ConfigFlagUsage)
	rootCmd.PersistentFlags().String(EnvFileFlagName, "", EnvFileFlagUsage)
	rootCmd.PersistentFlags().String(KeyDirFlagName, "", KeyDirFlagUsage)

	rootCmd.AddCommand(
		setupCmd(e),
		proveCmd(e),
		verifyCmd(e),
		describeCmd(e),
	)
	return rootCmd
}

// reasonError prefixes an error from the zkp package with its reason code.
func reasonError(err error) error {
	return fmt.Errorf("%s: %w", zkp.ReasonCode(err), err)
}
