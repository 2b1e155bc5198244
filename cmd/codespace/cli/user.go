package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/faucetdb/codespace/internal/service"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
		Long:  "Create and list the accounts that own durable codespaces.",
	}

	cmd.AddCommand(newUserCreateCmd())
	cmd.AddCommand(newUserListCmd())

	return cmd
}

// ---------- user create ----------

func newUserCreateCmd() *cobra.Command {
	var reg service.Registration

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new user",
		Example: `  codespace user create --email ada@example.com --password s3cret1
  codespace user create --email ada@example.com  # prompts for password`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserCreate(context.Background(), reg)
		},
	}

	cmd.Flags().StringVar(&reg.Email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&reg.Password, "password", "", "Password (prompted if omitted)")
	cmd.Flags().StringVar(&reg.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&reg.LastName, "last-name", "", "Last name")
	cmd.MarkFlagRequired("email")

	return cmd
}

func runUserCreate(ctx context.Context, reg service.Registration) error {
	if reg.Password == "" {
		pw, err := promptPassword()
		if err != nil {
			return err
		}
		reg.Password = pw
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

	// Registration never touches the cache, so no codespace service is needed.
	users := service.NewUserService(st, nil)
	u, err := users.Register(ctx, reg)
	if err != nil {
		return err
	}

	fmt.Printf("Created user %q\n", u.Email)
	fmt.Printf("  ID: %s\n", u.ID)
	return nil
}

func promptPassword() (string, error) {
	fmt.Print("Password: ")
	pwBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println()

	fmt.Print("Confirm password: ")
	confirmBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}
	fmt.Println()

	if string(pwBytes) != string(confirmBytes) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(pwBytes), nil
}

// ---------- user list ----------

func newUserListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserList(context.Background(), jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runUserList(ctx context.Context, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	users, err := st.ListUsers(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(users)
	}

	if len(users) == 0 {
		fmt.Println("No users yet. Use 'codespace user create' or POST /auth/register/.")
		return nil
	}

	fmt.Printf("%-36s  %-30s %-24s %s\n", "ID", "EMAIL", "NAME", "CREATED")
	fmt.Printf("%-36s  %-30s %-24s %s\n", "--", "-----", "----", "-------")
	for _, u := range users {
		name := u.FirstName
		if u.LastName != "" {
			name += " " + u.LastName
		}
		fmt.Printf("%-36s  %-30s %-24s %s\n", u.ID, u.Email, name, u.CreatedAt.Format("2006-01-02"))
	}

	return nil
}
