package zkidcmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"zk-identity/internal/devsetup"
	"zk-identity/pkg/zkp"
	"zk-identity/pkg/zkp/circuits"
)

const (
	ReferenceYearFlagName  = "reference-year"
	ReferenceYearFlagUsage = "Year ages are computed against, pinned into the keys"

	CircuitFlagName  = "circuit"
	CircuitFlagUsage = "Circuit to generate keys for (repeatable, default all)"
)

func setupCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Generate development keys",
		Long:  `Run a local, single-party Groth16 setup. The keys are for tests and local use only.`,

		RunE: func(cmd *cobra.Command, args []string) error {
			year := e.cfg.ReferenceYear
			if cmd.Flags().Changed(ReferenceYearFlagName) {
				y, err := cmd.Flags().GetUint16(ReferenceYearFlagName)
				if err != nil {
					return fmt.Errorf("reference year flag not found: %w", err)
				}
				year = y
			}

			names, err := cmd.Flags().GetStringSlice(CircuitFlagName)
			if err != nil {
				return fmt.Errorf("circuit flag not found: %w", err)
			}
			ids := make([]circuits.ID, 0, len(names))
			for _, name := range names {
				id, err := circuits.ParseID(name)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}

			start := time.Now()
			keys, err := devsetup.Generate(year, ids...)
			if err != nil {
				return fmt.Errorf("generate keys: %w", err)
			}

			loader := e.loader()
			if err := loader.Store(zkp.ProvingKeyKind, keys.Proving); err != nil {
				return err
			}
			if err := loader.Store(zkp.VerifyingKeyKind, keys.Verifying); err != nil {
				return err
			}

			e.log.Infof("generated development keys in %s (reference year %d) in %s", loader.Dir, year, time.Since(start))
			fmt.Fprintf(cmd.OutOrStdout(), "keys written to %s\n", loader.Dir)
			return nil
		},
	}
	cmd.Flags().Uint16(ReferenceYearFlagName, devsetup.DefaultReferenceYear, ReferenceYearFlagUsage)
	cmd.Flags().StringSlice(CircuitFlagName, nil, CircuitFlagUsage)
	return cmd
}
