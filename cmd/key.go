package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/vibast-solutions/ms-go-apikeys/app/credential"
	"github.com/vibast-solutions/ms-go-apikeys/app/database"
	"github.com/vibast-solutions/ms-go-apikeys/app/entity"
	"github.com/vibast-solutions/ms-go-apikeys/app/service"
	"github.com/vibast-solutions/ms-go-apikeys/config"
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage project API keys",
}

var keyGenerateCmd = &cobra.Command{
	Use:   "generate <project_id>",
	Short: "Issue a new API key for a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, owner, err := idAndOwner(cmd, args[0])
		if err != nil {
			return err
		}
		prefix, _ := cmd.Flags().GetString("env")
		environment, err := credential.ParseEnvironment(prefix)
		if err != nil {
			return err
		}

		env, err := openCommandEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		issued, err := env.lifecycle.Issue(cmd.Context(), projectID, owner, environment)
		if err != nil {
			if errors.Is(err, service.ErrProjectNotFound) {
				return fmt.Errorf("project %d not found for owner %d", projectID, owner)
			}
			return err
		}

		fmt.Printf("key_id: %d\n", issued.Key.ID)
		fmt.Printf("project_id: %d\n", issued.Key.ProjectID)
		fmt.Printf("api_key: %s\n", issued.Secret)
		fmt.Println("store this key now; it cannot be shown again")
		return nil
	},
}

var keyListCmd = &cobra.Command{
	Use:   "list <project_id>",
	Short: "List the keys of a project, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, owner, err := idAndOwner(cmd, args[0])
		if err != nil {
			return err
		}

		env, err := openCommandEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		keys, err := env.lifecycle.List(cmd.Context(), projectID, owner)
		if err != nil {
			if errors.Is(err, service.ErrProjectNotFound) {
				return fmt.Errorf("project %d not found for owner %d", projectID, owner)
			}
			return err
		}

		for _, key := range keys {
			lastUsed := "never"
			if key.LastUsedAt.Valid {
				lastUsed = key.LastUsedAt.Time.Format(time.RFC3339)
			}
			fmt.Printf("%d\t%s\t%s\tcreated=%s\tlast_used=%s\n",
				key.ID, key.Environment, key.Status, key.CreatedAt.Format(time.RFC3339), lastUsed)
		}
		return nil
	},
}

var keyRevokeCmd = &cobra.Command{
	Use:   "revoke <key_id>",
	Short: "Revoke an API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		keyID, owner, err := idAndOwner(cmd, args[0])
		if err != nil {
			return err
		}

		env, err := openCommandEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		if err = env.lifecycle.Revoke(cmd.Context(), keyID, owner); err != nil {
			return keyCommandError(err, keyID)
		}

		fmt.Printf("revoked key %d\n", keyID)
		return nil
	},
}

var keyUsageCmd = &cobra.Command{
	Use:   "usage <key_id>",
	Short: "Show the most recent usage events of a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		keyID, owner, err := idAndOwner(cmd, args[0])
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")

		env, err := openCommandEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		events, err := env.lifecycle.Usage(cmd.Context(), keyID, owner, limit)
		if err != nil {
			return keyCommandError(err, keyID)
		}

		for _, event := range events {
			fmt.Printf("%s\t%s\t%s\t%s\n",
				event.OccurredAt.Format(time.RFC3339), event.Method, event.Endpoint, event.SourceAddress)
		}

		total, err := env.stores.events.CountByKeyID(cmd.Context(), keyID)
		if err != nil {
			return err
		}
		fmt.Printf("showing %d of %d events\n", len(events), total)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{keyGenerateCmd, keyListCmd, keyRevokeCmd, keyUsageCmd} {
		c.Flags().Uint64("owner", 0, "user id of the project owner")
		keyCmd.AddCommand(c)
	}
	keyGenerateCmd.Flags().String("env", string(entity.EnvironmentLive), "key environment: live or test")
	keyUsageCmd.Flags().Int("limit", 20, "maximum number of events")
	rootCmd.AddCommand(keyCmd)
}

// commandEnv bundles what the key and project commands need. It never
// needs JWT_SECRET.
type commandEnv struct {
	db        *sqlx.DB
	stores    *stores
	lifecycle service.LifecycleService
}

func openCommandEnv(ctx context.Context) (*commandEnv, error) {
	dbCfg, err := config.LoadDatabase()
	if err != nil {
		return nil, err
	}

	db, err := database.Open(ctx, dbCfg)
	if err != nil {
		return nil, err
	}

	hasher, err := credential.NewBcryptHasher(config.LoadHashing().BcryptCost)
	if err != nil {
		db.Close()
		return nil, err
	}

	s := newStores(db)
	return &commandEnv{db: db, stores: s, lifecycle: newLifecycle(s, hasher, nil)}, nil
}

func (e *commandEnv) Close() {
	_ = e.db.Close()
}

func idAndOwner(cmd *cobra.Command, rawID string) (uint64, uint64, error) {
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil || id == 0 {
		return 0, 0, fmt.Errorf("invalid id %q", rawID)
	}
	owner, _ := cmd.Flags().GetUint64("owner")
	if owner == 0 {
		return 0, 0, errors.New("--owner is required")
	}
	return id, owner, nil
}

func keyCommandError(err error, keyID uint64) error {
	switch {
	case errors.Is(err, service.ErrKeyNotFound):
		return fmt.Errorf("key %d not found", keyID)
	case errors.Is(err, service.ErrUnauthorized):
		return fmt.Errorf("key %d belongs to another owner", keyID)
	case errors.Is(err, service.ErrKeyAlreadyRevoked):
		return fmt.Errorf("key %d is already revoked", keyID)
	}
	return err
}
