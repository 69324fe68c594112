package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pkgvet/pkgvet/internal/policy"
	"github.com/pkgvet/pkgvet/internal/signing"
)

func newPolicyKeygenCmd(a *app) *cobra.Command {
	var privPath, pubPath string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an Ed25519 keypair for signing policy files",
		Args:  argsBetween(0, 0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := signing.GenerateKeys(privPath, pubPath); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "private key: %s\n", privPath)
			fmt.Fprintf(a.stdout, "public key:  %s\n", pubPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&privPath, "private-key", "pkgvet-policy.key", "Private key output path")
	cmd.Flags().StringVar(&pubPath, "public-key", "pkgvet-policy.pub", "Public key output path")
	return cmd
}

func newPolicySignCmd(a *app) *cobra.Command {
	var keyPath, out string

	cmd := &cobra.Command{
		Use:   "sign <policy-file>",
		Short: "Write a detached signature for a policy file",
		Long: `Sign a policy file so validation runs given --policy-key only accept it
unchanged. The file is compiled first; a malformed policy is not signed.`,
		Example: `  pkgvet policy sign corp-policy.yaml --key pkgvet-policy.key
  pkgvet --policy corp-policy.yaml --policy-key pkgvet-policy.pub ./out/*.nupkg`,
		Args: argsBetween(1, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if keyPath == "" {
				return usageErrorf("--key is required")
			}
			if _, err := policy.LoadSubscription(args[0], ""); err != nil {
				return err
			}
			sigPath, err := signing.SignFile(args[0], keyPath, out)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "signed %s -> %s\n", args[0], sigPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&keyPath, "key", "", "Private key path")
	cmd.Flags().StringVarP(&out, "output", "o", "", "Signature output path (default <policy-file>.sig)")
	return cmd
}
