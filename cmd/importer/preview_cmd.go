package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Relaticle/relaticle-sub002/modules/importer/services"
)

func newPreviewCmd() *cobra.Command {
	var file, entity, mappingPath, sessionFlag string

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Generate the create/update preview for a mapped file",
		Long: "Processes the first batch synchronously and queues the remainder " +
			"as background chunk jobs; poll progress with the session id printed " +
			"in the result.",
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
		sessionID := uuid.New()
		if strings.TrimSpace(sessionFlag) != "" {
			sessionID, err = uuid.Parse(strings.TrimSpace(sessionFlag))
			if err != nil {
				return withCode(exitUsage, fmt.Errorf("invalid --session: %w", err))
			}
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

		svc := services.NewPreviewService(
			a.registry, a.store, a.sessions, a.chunks, a.bus, a.conf.Import, a.log,
		)
		result, err := svc.Generate(ctx, services.PreviewInput{
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
	cmd.Flags().StringVar(&sessionFlag, "session", "", "Session UUID (default: new session)")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("entity")
	_ = cmd.MarkFlagRequired("mapping")
	return cmd
}
