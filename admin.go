package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shelfwise/bookcat/internal/domain"
)

// adminPreRun gates every admin subcommand on the stored roles.
func adminPreRun(cmd *cobra.Command, _ []string) error {
	return requireAdmin(cmd)
}

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts (admin)",
	}

	add := &cobra.Command{
		Use:     "add",
		Short:   "Create a user",
		Args:    cobra.NoArgs,
		PreRunE: adminPreRun,
		RunE:    runUsersAdd,
	}
	addUserFlags(add)
	_ = add.MarkFlagRequired("username")
	_ = add.MarkFlagRequired("password")

	update := &cobra.Command{
		Use:     "update <id>",
		Short:   "Change fields of a user",
		Args:    cobra.ExactArgs(1),
		PreRunE: adminPreRun,
		RunE:    runUsersUpdate,
	}
	addUserFlags(update)

	cmd.AddCommand(
		&cobra.Command{
			Use:     "ls",
			Short:   "List users",
			Args:    cobra.NoArgs,
			PreRunE: adminPreRun,
			RunE:    runUsersLs,
		},
		add,
		update,
		&cobra.Command{
			Use:     "rm <id>",
			Short:   "Delete a user",
			Args:    cobra.ExactArgs(1),
			PreRunE: adminPreRun,
			RunE:    runUsersRm,
		},
		&cobra.Command{
			Use:     "set-role <id> <role>",
			Short:   "Assign a single role to a user",
			Args:    cobra.ExactArgs(2),
			PreRunE: adminPreRun,
			RunE:    runUsersSetRole,
		},
	)

	return cmd
}

func addUserFlags(cmd *cobra.Command) {
	cmd.Flags().String("username", "", "account name")
	cmd.Flags().String("password", "", "account password")
	cmd.Flags().String("email", "", "contact email")
	cmd.Flags().StringSlice("roles", nil, "role names, comma separated")
	cmd.Flags().String("status", "", "account status, e.g. active or inactive")
}

func userInput(cmd *cobra.Command) domain.UserInput {
	var in domain.UserInput

	in.Username, _ = cmd.Flags().GetString("username")
	in.Password, _ = cmd.Flags().GetString("password")
	in.Email, _ = cmd.Flags().GetString("email")
	in.RoleNames, _ = cmd.Flags().GetStringSlice("roles")
	in.Status, _ = cmd.Flags().GetString("status")

	return in
}

func runUsersLs(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	env, err := cc.Svc.Admin.ListUsers(cmd.Context())
	if err != nil {
		return err
	}

	return cc.emit(env.Data, env.Substituted, func(w io.Writer) {
		if len(env.Data) == 0 {
			fmt.Fprintln(w, "No users found.")
			return
		}

		rows := make([][]string, 0, len(env.Data))
		for _, u := range env.Data {
			rows = append(rows, []string{itoa(u.ID), u.Username, u.Email, u.Role, u.Status})
		}

		printTable(w, []string{"ID", "USERNAME", "EMAIL", "ROLE", "STATUS"}, rows)
	})
}

func runUsersAdd(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	env, err := cc.Svc.Admin.CreateUser(cmd.Context(), userInput(cmd))
	if err != nil {
		return err
	}

	return cc.emitMessage(env.Data, env.Substituted, fmt.Sprintf("Created user %d %q.", env.Data.ID, env.Data.Username))
}

func runUsersUpdate(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	in := userInput(cmd)
	if in.Username == "" && in.Password == "" && in.Email == "" && len(in.RoleNames) == 0 && in.Status == "" {
		return errors.New("nothing to update: set at least one of --username, --password, --email, --roles, --status")
	}

	env, err := cc.Svc.Admin.UpdateUser(cmd.Context(), id, in)
	if err != nil {
		return err
	}

	if env.Data == nil {
		return fmt.Errorf("user %d not found", id)
	}

	return cc.emitMessage(env.Data, env.Substituted, fmt.Sprintf("Updated user %d.", id))
}

func runUsersRm(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	env, err := cc.Svc.Admin.DeleteUser(cmd.Context(), id)
	if err != nil {
		return err
	}

	return cc.emitMessage(env.Data, env.Substituted, messageOr(env.Data, fmt.Sprintf("Deleted user %d.", id)))
}

func runUsersSetRole(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	role := strings.TrimSpace(args[1])
	if role == "" {
		return errors.New("role must not be empty")
	}

	env, err := cc.Svc.Admin.SetUserRole(cmd.Context(), id, role)
	if err != nil {
		return err
	}

	return cc.emitMessage(env.Data, env.Substituted, messageOr(env.Data, fmt.Sprintf("User %d now has role %s.", id, role)))
}

func newRolesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roles",
		Short: "Manage roles and their permissions (admin)",
	}

	add := &cobra.Command{
		Use:     "add <name>",
		Short:   "Create a role",
		Args:    cobra.ExactArgs(1),
		PreRunE: adminPreRun,
		RunE:    runRolesAdd,
	}
	addRoleFlags(add)

	update := &cobra.Command{
		Use:     "update <id> <name>",
		Short:   "Replace a role's name and permissions",
		Args:    cobra.ExactArgs(2),
		PreRunE: adminPreRun,
		RunE:    runRolesUpdate,
	}
	addRoleFlags(update)

	cmd.AddCommand(
		&cobra.Command{
			Use:     "ls",
			Short:   "List roles",
			Args:    cobra.NoArgs,
			PreRunE: adminPreRun,
			RunE:    runRolesLs,
		},
		add,
		update,
		&cobra.Command{
			Use:     "rm <id>",
			Short:   "Delete a role",
			Args:    cobra.ExactArgs(1),
			PreRunE: adminPreRun,
			RunE:    runRolesRm,
		},
	)

	return cmd
}

func addRoleFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("read", false, "grant read access")
	cmd.Flags().Bool("write", false, "grant write access")
	cmd.Flags().Bool("delete", false, "grant delete access")
	cmd.Flags().Bool("admin", false, "grant admin access")
}

func roleInput(cmd *cobra.Command, name string) domain.RoleInput {
	in := domain.RoleInput{Name: strings.TrimSpace(name)}

	in.CanRead, _ = cmd.Flags().GetBool("read")
	in.CanWrite, _ = cmd.Flags().GetBool("write")
	in.CanDelete, _ = cmd.Flags().GetBool("delete")
	in.IsAdmin, _ = cmd.Flags().GetBool("admin")

	return in
}

func runRolesLs(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	env, err := cc.Svc.Admin.ListRoles(cmd.Context())
	if err != nil {
		return err
	}

	return cc.emit(env.Data, env.Substituted, func(w io.Writer) {
		if len(env.Data) == 0 {
			fmt.Fprintln(w, "No roles found.")
			return
		}

		rows := make([][]string, 0, len(env.Data))
		for _, r := range env.Data {
			rows = append(rows, []string{
				itoa(r.ID), r.Name, yesNo(r.CanRead), yesNo(r.CanWrite), yesNo(r.CanDelete), yesNo(r.IsAdmin),
			})
		}

		printTable(w, []string{"ID", "NAME", "READ", "WRITE", "DELETE", "ADMIN"}, rows)
	})
}

func runRolesAdd(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	in := roleInput(cmd, args[0])
	if in.Name == "" {
		return errors.New("role name must not be empty")
	}

	env, err := cc.Svc.Admin.CreateRole(cmd.Context(), in)
	if err != nil {
		return err
	}

	return cc.emitMessage(env.Data, env.Substituted, fmt.Sprintf("Created role %d %q.", env.Data.ID, env.Data.Name))
}

func runRolesUpdate(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	in := roleInput(cmd, args[1])
	if in.Name == "" {
		return errors.New("role name must not be empty")
	}

	env, err := cc.Svc.Admin.UpdateRole(cmd.Context(), id, in)
	if err != nil {
		return err
	}

	return cc.emitMessage(env.Data, env.Substituted, fmt.Sprintf("Updated role %d.", id))
}

func runRolesRm(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	env, err := cc.Svc.Admin.DeleteRole(cmd.Context(), id)
	if err != nil {
		return err
	}

	return cc.emitMessage(env.Data, env.Substituted, messageOr(env.Data, fmt.Sprintf("Deleted role %d.", id)))
}
