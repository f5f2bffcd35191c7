package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/tazhate/olivabot/internal/service"
)

func newMigrateCmd(env *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer env.close()
			st, err := env.openStorage()
			if err != nil {
				return err
			}
			defer st.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "database %s is up to date\n", env.cfg.DatabasePath)
			return nil
		},
	}
}

type importFunc func(*service.CatalogService) func(context.Context, io.Reader) (service.ImportResult, error)

func newImportCmd(env *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import the catalog from CSV exports",
	}

	kinds := []struct {
		use   string
		short string
		run   importFunc
	}{
		{"services <csv>", "Import services (Categoría, Nombre, Duración, Precio, Depósito, Detalles)",
			func(s *service.CatalogService) func(context.Context, io.Reader) (service.ImportResult, error) {
				return s.ImportServices
			}},
		{"staff <csv>", "Import staff (nombre, puesto, telefono, email)",
			func(s *service.CatalogService) func(context.Context, io.Reader) (service.ImportResult, error) {
				return s.ImportStaff
			}},
		{"products <csv>", "Import retail products (Nombre, Categoría, Detalles, Precio)",
			func(s *service.CatalogService) func(context.Context, io.Reader) (service.ImportResult, error) {
				return s.ImportProducts
			}},
	}

	for _, k := range kinds {
		run := k.run
		cmd.AddCommand(&cobra.Command{
			Use:   k.use,
			Short: k.short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				defer env.close()
				st, err := env.openStorage()
				if err != nil {
					return err
				}
				defer st.Close()

				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()

				catalog := service.NewCatalogService(st, env.logger)
				res, err := run(catalog)(cmd.Context(), f)
				if err != nil {
					return fmt.Errorf("import %s: %w", args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], res)
				return nil
			},
		})
	}
	return cmd
}

func newSeedCmd(env *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <dir>",
		Short: "Import servicios.csv, personal.csv and productos.csv from a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer env.close()
			st, err := env.openStorage()
			if err != nil {
				return err
			}
			defer st.Close()

			res, err := service.NewCatalogService(st, env.logger).Seed(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "servicios: %s\n", res.Services)
			fmt.Fprintf(out, "personal:  %s\n", res.Staff)
			fmt.Fprintf(out, "productos: %s\n", res.Products)
			return nil
		},
	}
}
