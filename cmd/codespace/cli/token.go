package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/faucetdb/codespace/internal/codespace"
	"github.com/faucetdb/codespace/internal/model"
	"github.com/faucetdb/codespace/internal/token"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue and inspect share tokens",
		Long: `Share tokens grant view or edit access to one durable codespace until they
expire. They are sealed with share.token_secret, so these commands must run
with the same secret as the server.`,
	}

	cmd.AddCommand(newTokenIssueCmd())
	cmd.AddCommand(newTokenInspectCmd())

	return cmd
}

// ---------- token issue ----------

func newTokenIssueCmd() *cobra.Command {
	var (
		codespaceID string
		mode        string
		expire      int64
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a share token for a codespace",
		Example: `  codespace token issue --codespace 3f6c... --mode view_only
  codespace token issue --codespace 3f6c... --mode edit --expire 600`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokenIssue(context.Background(), codespaceID, model.AccessMode(mode), expire)
		},
	}

	cmd.Flags().StringVar(&codespaceID, "codespace", "", "Codespace UUID (required)")
	cmd.Flags().StringVar(&mode, "mode", string(model.AccessViewOnly), "Access mode: edit or view_only")
	cmd.Flags().Int64Var(&expire, "expire", 3600, "Lifetime in seconds")
	cmd.MarkFlagRequired("codespace")

	return cmd
}

func runTokenIssue(ctx context.Context, id string, mode model.AccessMode, expire int64) error {
	if !mode.Valid() {
		return fmt.Errorf("mode must be one of %v", model.AccessModes)
	}
	if expire <= 0 {
		return fmt.Errorf("--expire must be a positive number of seconds")
	}
	if codespace.IsEphemeralID(id) {
		return fmt.Errorf("ephemeral codespaces cannot be shared")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	cs, err := st.GetCodeSpace(ctx, id)
	if err != nil {
		return fmt.Errorf("codespace %s: %w", id, err)
	}

	codec, err := token.NewCodec(cfg.Share.TokenSecret)
	if err != nil {
		return err
	}
	tok, err := codec.Encode(cs.ID, expire, string(mode))
	if err != nil {
		return err
	}

	fmt.Println(tok)
	fmt.Printf("  codespace: %s (%s)\n", cs.ID, cs.Name)
	fmt.Printf("  mode:      %s\n", mode)
	fmt.Printf("  expires:   %s\n", time.Now().Add(time.Duration(expire)*time.Second).UTC().Format(time.RFC3339))
	return nil
}

// ---------- token inspect ----------

func newTokenInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <token>",
		Short: "Decode a share token and report whether it is still valid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokenInspect(args[0])
		},
	}
}

func runTokenInspect(tok string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	codec, err := token.NewCodec(cfg.Share.TokenSecret)
	if err != nil {
		return err
	}

	claims, err := codec.Verify(tok)
	status := "valid"
	switch {
	case errors.Is(err, token.ErrExpired):
		status = "expired"
	case err != nil:
		return fmt.Errorf("token does not decode with the configured secret: %w", err)
	}

	fmt.Printf("Codespace: %s\n", claims.SubjectID)
	fmt.Printf("Mode:      %s\n", claims.Mode)
	fmt.Printf("Expires:   %s\n", time.Unix(claims.ExpiresAt, 0).UTC().Format(time.RFC3339))
	fmt.Printf("Status:    %s\n", status)
	return nil
}
