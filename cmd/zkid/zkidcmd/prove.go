package zkidcmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/cobra"

	"zk-identity/pkg/zkp"
)

const (
	NameFlagName      = "name"
	BirthYearFlagName = "birth-year"
	CityFlagName      = "city"
	StateFlagName     = "state"
	GenderFlagName    = "gender"

	PredicateFlagName  = "predicate"
	PredicateFlagUsage = "Verification type to prove instead of the default identity proof"

	ParamFlagName  = "param"
	ParamFlagUsage = "Predicate parameter (repeatable)"

	OutFlagName  = "out"
	OutFlagUsage = "File the exported handle is written to"
)

type proveRequest struct {
	raw       zkp.RawIdentity
	predicate *zkp.Predicate
	out       string
}

func proveCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prove",
		Short: "Prove an identity or a single predicate",
		Long: `Prove an identity and export the handle. Without --predicate the handle
discloses birth year and gender and proves adulthood.`,

		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := parseProveFlags(cmd)
			if err != nil {
				return err
			}
			lib, err := e.library()
			if err != nil {
				return err
			}

			var handle *zkp.IdentityHandle
			attempt := 0
			err = backoff.Retry(func() error {
				attempt++
				h, err := prove(cmd.Context(), lib, req)
				if err == nil {
					handle = h
					return nil
				}
				if !zkp.ReasonCode(err).Retryable() {
					return backoff.Permanent(err)
				}
				e.log.Warnf("proving attempt %d failed: %v", attempt, err)
				return err
			}, backoff.WithMaxRetries(backoff.NewConstantBackOff(0), 1))
			if err != nil {
				return reasonError(err)
			}

			data, err := handle.MarshalBinary()
			if err != nil {
				return fmt.Errorf("export handle: %w", err)
			}
			if err := os.WriteFile(req.out, data, 0o600); err != nil {
				return fmt.Errorf("write handle: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "handle %s (%s, %d byte proof) written to %s\n",
				handle.ID(), handle.Circuit(), handle.SizeBytes(), req.out)
			return nil
		},
	}
	cmd.Flags().String(NameFlagName, "", "Full name")
	cmd.Flags().Int(BirthYearFlagName, 0, "Year of birth")
	cmd.Flags().String(CityFlagName, "", "City")
	cmd.Flags().String(StateFlagName, "", "US postal state code")
	cmd.Flags().String(GenderFlagName, "", "female, male or other")
	cmd.Flags().String(PredicateFlagName, "", PredicateFlagUsage)
	cmd.Flags().StringArray(ParamFlagName, nil, ParamFlagUsage)
	cmd.Flags().String(OutFlagName, "", OutFlagUsage)
	for _, f := range []string{NameFlagName, BirthYearFlagName, CityFlagName, StateFlagName, GenderFlagName, OutFlagName} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func parseProveFlags(cmd *cobra.Command) (*proveRequest, error) {
	flags := cmd.Flags()
	req := &proveRequest{}
	var err error

	if req.raw.Name, err = flags.GetString(NameFlagName); err != nil {
		return nil, err
	}
	if req.raw.BirthYear, err = flags.GetInt(BirthYearFlagName); err != nil {
		return nil, err
	}
	if req.raw.City, err = flags.GetString(CityFlagName); err != nil {
		return nil, err
	}
	if req.raw.State, err = flags.GetString(StateFlagName); err != nil {
		return nil, err
	}
	if req.raw.Gender, err = flags.GetString(GenderFlagName); err != nil {
		return nil, err
	}
	if req.out, err = flags.GetString(OutFlagName); err != nil {
		return nil, err
	}
	if req.out == "" {
		return nil, errors.New("--out must not be empty")
	}

	typeName, err := flags.GetString(PredicateFlagName)
	if err != nil {
		return nil, err
	}
	params, err := flags.GetStringArray(ParamFlagName)
	if err != nil {
		return nil, err
	}
	if typeName == "" {
		if len(params) > 0 {
			return nil, errors.New("--param requires --predicate")
		}
		return req, nil
	}

	t, err := zkp.ParseVerificationType(typeName)
	if err != nil {
		return nil, reasonError(err)
	}
	p, err := zkp.ParsePredicate(t, params...)
	if err != nil {
		return nil, reasonError(err)
	}
	req.predicate = &p
	return req, nil
}

func prove(ctx context.Context, lib *zkp.Library, req *proveRequest) (*zkp.IdentityHandle, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if req.predicate == nil {
		return lib.Prove(ctx, req.raw)
	}
	return lib.ProvePredicate(ctx, req.raw, *req.predicate)
}
