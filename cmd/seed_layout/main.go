// seed_layout importa layouts XML (formato de export.xml) en bodegas existentes.
//
// Uso: go run ./cmd/seed_layout --workspace <id> <warehouseID>=<archivo.xml> [...]
// Con --dry-run solo valida los documentos (jerarquía, huérfanos) sin tocar la base.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/Layout-api/internal/application/editor"
	"github.com/jhoicas/Layout-api/internal/domain/entity"
	domlayout "github.com/jhoicas/Layout-api/internal/domain/layout"
	"github.com/jhoicas/Layout-api/internal/infrastructure/layoutxml"
	infrapdf "github.com/jhoicas/Layout-api/internal/infrastructure/pdf"
	"github.com/jhoicas/Layout-api/internal/infrastructure/postgres"
	"github.com/jhoicas/Layout-api/pkg/config"
	"github.com/jhoicas/Layout-api/pkg/logger"
)

type job struct {
	warehouseID string
	path        string
}

func main() {
	var (
		workspaceID string
		concurrency int
		dryRun      bool
	)
	cmd := &cobra.Command{
		Use:   "seed_layout <warehouseID>=<archivo.xml>...",
		Short: "Importa layouts XML en bodegas existentes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := parseJobs(args)
			if err != nil {
				return err
			}
			if dryRun {
				return validate(jobs)
			}
			if workspaceID == "" {
				return fmt.Errorf("--workspace es obligatorio")
			}
			return run(cmd.Context(), workspaceID, jobs, concurrency)
		},
		SilenceUsage: true,
	}
	cmd.Flags().StringVar(&workspaceID, "workspace", "", "workspace dueño de las bodegas")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "importaciones simultáneas")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "solo validar los documentos")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseJobs(args []string) ([]job, error) {
	jobs := make([]job, 0, len(args))
	for _, arg := range args {
		warehouseID, path, ok := strings.Cut(arg, "=")
		if !ok || warehouseID == "" || path == "" {
			return nil, fmt.Errorf("argumento inválido %q: se espera <warehouseID>=<archivo.xml>", arg)
		}
		jobs = append(jobs, job{warehouseID: warehouseID, path: path})
	}
	return jobs, nil
}

func validate(jobs []job) error {
	codec := layoutxml.NewCodec()
	failed := 0
	for _, j := range jobs {
		data, err := os.ReadFile(j.path)
		if err != nil {
			return err
		}
		elements, sum, err := codec.Decode(data)
		if err == nil {
			_, err = domlayout.Load(withWarehouse(elements, j.warehouseID))
		}
		if err != nil {
			failed++
			fmt.Printf("FALLA %s: %v\n", j.path, err)
			continue
		}
		fmt.Printf("OK    %s: %d elementos, checksum %s\n", j.path, len(elements), sum)
	}
	if failed > 0 {
		return fmt.Errorf("%d documento(s) inválido(s)", failed)
	}
	return nil
}

func withWarehouse(elements []entity.LayoutElement, warehouseID string) []entity.LayoutElement {
	for i := range elements {
		elements[i].WarehouseID = warehouseID
		if elements[i].Version == 0 {
			elements[i].Version = 1
		}
	}
	return elements
}

func run(ctx context.Context, workspaceID string, jobs []job, concurrency int) error {
	cfg, err := config.LoadForTools()
	if err != nil {
		return err
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	pool, err := postgres.NewPool(ctx, cfg.DB, "seed_layout")
	if err != nil {
		return err
	}
	defer pool.Close()

	layouts := postgres.NewLayoutRepository(pool)
	warehouses := postgres.NewWarehouseRepository(pool)
	sessions := editor.NewSessionManager(layouts, warehouses, log, nil, editor.Options{SyncTimeout: cfg.Layout.SyncTimeout})
	layoutIO := editor.NewLayoutIO(layouts, warehouses, sessions, layoutxml.NewCodec(), infrapdf.NewLabelPDFGenerator(), log)

	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for _, j := range jobs {
		g.Go(func() error {
			data, err := os.ReadFile(j.path)
			if err != nil {
				return err
			}
			out, err := layoutIO.Import(gctx, workspaceID, j.warehouseID, data)
			if err != nil {
				return fmt.Errorf("%s → %s: %w", j.path, j.warehouseID, err)
			}
			log.Info().
				Str("warehouse_id", out.WarehouseID).
				Int("elements", out.Elements).
				Str("checksum", out.Checksum).
				Msg("layout importado")
			return nil
		})
	}
	return g.Wait()
}
