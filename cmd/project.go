package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vibast-solutions/ms-go-apikeys/app/entity"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Seed projects for local runs",
}

var projectCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a project owned by a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, _ := cmd.Flags().GetUint64("owner")
		if owner == 0 {
			return errors.New("--owner is required")
		}
		name := strings.TrimSpace(args[0])
		if name == "" {
			return errors.New("project name is required")
		}

		env, err := openCommandEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		project := &entity.Project{Name: name, OwnerID: owner, CreatedAt: time.Now().UTC()}
		if err = env.stores.projects.Create(cmd.Context(), project); err != nil {
			return err
		}

		fmt.Printf("project_id: %d\n", project.ID)
		fmt.Printf("name: %s\n", project.Name)
		fmt.Printf("owner_id: %d\n", project.OwnerID)
		return nil
	},
}

func init() {
	projectCreateCmd.Flags().Uint64("owner", 0, "user id of the project owner")
	projectCmd.AddCommand(projectCreateCmd)
	rootCmd.AddCommand(projectCmd)
}
