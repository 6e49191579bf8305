package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/campusdesk/college-admin-api/internal/models"
)

const passwordEnv = "COLLEGECTL_PASSWORD"

type userCreator interface {
	CreateUser(ctx context.Context, req models.CreateUserRequest, actor *models.JWTClaims) (*models.UserInfo, error)
}

type createUserOptions struct {
	email     string
	name      string
	role      string
	teacherID string
	password  string
}

func createUserCmd(a *App) *cobra.Command {
	opts := createUserOptions{}
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Provision a login account",
		Long:  "Creates an account. The password comes from --password or " + passwordEnv + ".",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.password == "" {
				opts.password = os.Getenv(passwordEnv)
			}
			user, err := createUser(cmd.Context(), a.container.Auth, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s) id=%s\n", user.Email, user.Role, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.email, "email", "", "login email (required)")
	cmd.Flags().StringVar(&opts.name, "name", "", "full name (required)")
	cmd.Flags().StringVar(&opts.role, "role", string(models.RoleAdmin), "SUPERADMIN, ADMIN, HOD, TEACHER or STUDENT")
	cmd.Flags().StringVar(&opts.teacherID, "teacher-id", "", "link the account to a teacher record")
	cmd.Flags().StringVar(&opts.password, "password", "", "initial password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func createUser(ctx context.Context, creator userCreator, opts createUserOptions) (*models.UserInfo, error) {
	if opts.password == "" {
		return nil, errors.New("password is required (--password or " + passwordEnv + ")")
	}
	req := models.CreateUserRequest{
		Email:    opts.email,
		Password: opts.password,
		FullName: opts.name,
		Role:     models.UserRole(strings.ToUpper(strings.TrimSpace(opts.role))),
	}
	if id := strings.TrimSpace(opts.teacherID); id != "" {
		req.TeacherID = &id
	}
	return creator.CreateUser(ctx, req, nil)
}
