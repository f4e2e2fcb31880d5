package zkidcmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"zk-identity/internal/app/keystore"
	"zk-identity/pkg/zkp"
	"zk-identity/pkg/zkp/circuits"
)

func describeCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "describe",
		Short: "List circuits and their public inputs",

		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "circuit version %d, curve %s, proof size %d bytes\n",
				circuits.Version, circuits.Curve, zkp.ProofSize)

			vk, err := e.loader().Load(zkp.VerifyingKeyKind)
			switch {
			case errors.Is(err, keystore.ErrKeyNotFound):
				fmt.Fprintf(out, "no keys in %s\n", e.cfg.KeyDir)
			case err != nil:
				return err
			default:
				bundle, err := zkp.ParseKeyBundle(vk)
				if err != nil {
					return reasonError(err)
				}
				fmt.Fprintf(out, "keys in %s: reference year %d, %d circuits\n",
					e.cfg.KeyDir, bundle.ReferenceYear, len(bundle.Keys))
			}

			for _, id := range circuits.All {
				fmt.Fprintf(out, "  %-10s [%s]\n", id, strings.Join(id.PublicInputs(), ", "))
			}
			return nil
		},
	}
}
