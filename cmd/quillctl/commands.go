package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/anonto42/quill/internal/middleware"
	"github.com/anonto42/quill/internal/models"
	"github.com/anonto42/quill/validators"
	"github.com/golang-jwt/jwt/v4"
	"github.com/spf13/cobra"
)

func exportCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a snapshot of posts, drafts and interactions as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.backup().ExportAll(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "File to write instead of stdout")
	return cmd
}

func importCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Replace all content with a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var snap models.Snapshot
			if err := readJSONArg(cmd, args[0], &snap); err != nil {
				return fmt.Errorf("read snapshot: %w", err)
			}
			if err := a.backup().ImportAll(cmd.Context(), snap); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d posts, %d drafts, %d interaction records\n",
				len(snap.Posts), len(snap.Drafts), len(snap.Interactions))
			return nil
		},
	}
}

func resetCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every post, draft and interaction record",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to reset without --yes")
			}
			if err := a.backup().ResetAll(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Store reset")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")
	return cmd
}

func seedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Write the welcome post into an empty store",
		RunE: func(cmd *cobra.Command, args []string) error {
			wrote, err := a.backup().EnsureSampleData(cmd.Context())
			if err != nil {
				return err
			}
			if wrote {
				fmt.Fprintln(cmd.OutOrStdout(), "Sample data written")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Store already has content, nothing written")
			}
			return nil
		},
	}
}

func validateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file|->",
		Short: "Check a post payload against the content rules",
		Args:  cobra.ExactArgs(1),
		// Validation does not touch the store.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			var in models.PostInput
			if err := readJSONArg(cmd, args[0], &in); err != nil {
				return fmt.Errorf("read payload: %w", err)
			}
			violations := validators.ValidatePost(in)
			if len(violations) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Valid")
				return nil
			}
			for _, v := range violations {
				fmt.Fprintln(cmd.OutOrStdout(), "- "+v)
			}
			return &validators.ValidationError{Violations: violations}
		},
	}
}

func tokenCmd(a *app) *cobra.Command {
	var (
		id  models.Identity
		ttl time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed access token for AUTH_MODE=jwt",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			now := time.Now()
			token, err := middleware.SignToken(id, a.cfg.JWTSecret, jwt.RegisteredClaims{
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
				Subject:   id.UID,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&id.UID, "uid", "", "User id (required)")
	cmd.Flags().StringVar(&id.DisplayName, "name", "", "Display name")
	cmd.Flags().StringVar(&id.Email, "email", "", "Email address")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("uid")
	return cmd
}

// readJSONArg decodes the file named by arg, or stdin when arg is "-".
func readJSONArg(cmd *cobra.Command, arg string, v any) error {
	var r io.Reader = cmd.InOrStdin()
	if arg != "-" {
		f, err := os.Open(arg)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	return json.NewDecoder(r).Decode(v)
}
