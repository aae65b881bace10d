package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Relaticle/relaticle-sub002/modules/importer/services"
)

func newRunCmd() *cobra.Command {
	var file, entity, mappingPath, sessionFlag string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a previewed import against the record store",
	}
	withTenant := tenantFlags(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		target, err := parseEntity(entity)
		if err != nil {
			return err
		}
		set, corrections, strategy, err := loadMappingFile(mappingPath)
		if err != nil {
			return err
		}
		sessionID, err := uuid.Parse(strings.TrimSpace(sessionFlag))
		if err != nil {
			return withCode(exitUsage, fmt.Errorf("invalid --session: %w", err))
		}

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		ctx, err = withTenant(ctx, a)
		if err != nil {
			return err
		}

		svc := services.NewImportService(
			a.registry, a.store, a.sessions, a.lock, a.bus, a.conf.Import, a.log,
		)
		result, err := svc.Execute(ctx, services.ExecuteInput{
			SessionID:   sessionID,
			Entity:      target,
			FilePath:    file,
			Set:         set,
			Corrections: corrections,
			Strategy:    strategy,
		})
		if err != nil {
			return withCode(exitValidation, err)
		}
		return writeJSONLine(result)
	}

	cmd.Flags().StringVar(&file, "file", "", "Path to the CSV/XLSX file (required)")
	cmd.Flags().StringVar(&entity, "entity", "", "Target entity (required)")
	cmd.Flags().StringVar(&mappingPath, "mapping", "", "Path to the mapping JSON file (required)")
	cmd.Flags().StringVar(&sessionFlag, "session", "", "Session UUID from preview (required)")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("entity")
	_ = cmd.MarkFlagRequired("mapping")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}
