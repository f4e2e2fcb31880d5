package zkidcmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"zk-identity/pkg/reasoncodes"
	"zk-identity/pkg/zkp"
)

const (
	HandleFlagName  = "handle"
	HandleFlagUsage = "Exported handle file"

	TypeFlagName  = "type"
	TypeFlagUsage = "Verification type, e.g. IsAdult or IsInAgeRange"
)

func verifyCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify --handle FILE --type TYPE [PARAM...]",
		Short: "Verify an exported handle",
		Long:  `Verify a handle against a verification type. Prints true or false; errors carry a reason code.`,

		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := cmd.Flags().GetString(HandleFlagName)
			if err != nil {
				return fmt.Errorf("handle flag not found: %w", err)
			}
			typeName, err := cmd.Flags().GetString(TypeFlagName)
			if err != nil {
				return fmt.Errorf("type flag not found: %w", err)
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("%s: read handle: %w", reasoncodes.ErrUnmarshal, err)
			}
			t, err := zkp.ParseVerificationType(typeName)
			if err != nil {
				return reasonError(err)
			}

			lib, err := e.library()
			if err != nil {
				return reasonError(err)
			}
			handle, err := lib.ImportHandle(data)
			if err != nil {
				return reasonError(err)
			}
			ok, err := handle.Verify(t, args...)
			if err != nil {
				return reasonError(err)
			}

			e.log.Debugf("handle %s verified %s: %t", handle.ID(), t, ok)
			fmt.Fprintln(cmd.OutOrStdout(), ok)
			return nil
		},
	}
	cmd.Flags().String(HandleFlagName, "", HandleFlagUsage)
	cmd.Flags().String(TypeFlagName, "", TypeFlagUsage)
	_ = cmd.MarkFlagRequired(HandleFlagName)
	_ = cmd.MarkFlagRequired(TypeFlagName)
	return cmd
}
