package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oddbit-project/qb/db"
	"github.com/oddbit-project/qb/migrations"
)

func openManager(cfgFile string) (*migrations.Manager, *db.Conn, error) {
	cfg, err := loadConfig(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	conn, err := db.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	return migrations.NewManager(conn), conn, nil
}

func newInitCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the migration history table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, conn, err := openManager(*cfgFile)
			if err != nil {
				return err
			}
			defer conn.Close()

			ctx := cmd.Context()
			if mgr.Installed(ctx) {
				fmt.Println("migration table already exists")
				return nil
			}
			if err := mgr.Install(ctx); err != nil {
				return err
			}
			fmt.Println("migration table created")
			return nil
		},
	}
}

func newStatusCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List applied migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, conn, err := openManager(*cfgFile)
			if err != nil {
				return err
			}
			defer conn.Close()

			ctx := cmd.Context()
			if !mgr.Installed(ctx) {
				return fmt.Errorf("migration table not found; run 'qb init' first")
			}
			list, err := mgr.List(ctx)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Println("no migrations applied")
				return nil
			}
			for _, rec := range list {
				fmt.Printf("%4d  %s  %s\n", rec.ID, rec.Applied.Format("2006-01-02 15:04:05"), rec.Name)
			}
			return nil
		},
	}
}

func newMigrateCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate <dir>",
		Short: "Apply pending .sql files from a directory, in name order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, conn, err := openManager(*cfgFile)
			if err != nil {
				return err
			}
			defer conn.Close()

			ctx := cmd.Context()
			if !mgr.Installed(ctx) {
				if err := mgr.Install(ctx); err != nil {
					return err
				}
			}

			names, err := listScripts(args[0])
			if err != nil {
				return err
			}
			applied := 0
			for _, name := range names {
				done, err := mgr.IsApplied(ctx, name)
				if err != nil {
					return err
				}
				if done {
					continue
				}
				script, err := os.ReadFile(filepath.Join(args[0], name))
				if err != nil {
					return err
				}
				if err := mgr.Apply(ctx, name, string(script)); err != nil {
					return err
				}
				fmt.Println("applied", name)
				applied++
			}
			if applied == 0 {
				fmt.Println("nothing to apply")
			}
			return nil
		},
	}
}

func listScripts(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
