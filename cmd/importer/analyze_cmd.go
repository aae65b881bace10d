package main

import (
	"github.com/spf13/cobra"

	"github.com/Relaticle/relaticle-sub002/modules/importer/infrastructure/tabular"
	"github.com/Relaticle/relaticle-sub002/modules/importer/services"
)

func newAnalyzeCmd() *cobra.Command {
	var file, entity, mappingPath string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Compute per-column statistics and validation issues for a mapped file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			target, err := parseEntity(entity)
			if err != nil {
				return err
			}
			set, _, _, err := loadMappingFile(mappingPath)
			if err != nil {
				return err
			}
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			reader, err := tabular.Open(file)
			if err != nil {
				return withCode(exitValidation, err)
			}
			defer func() { _ = reader.Close() }()

			svc := services.NewAnalysisService(a.registry, a.conf.Import.ChunkSize)
			results, err := svc.Analyze(ctx, target, reader, set)
			if err != nil {
				return withCode(exitValidation, err)
			}
			return writeJSONLine(results)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Path to the CSV/XLSX file (required)")
	cmd.Flags().StringVar(&entity, "entity", "", "Target entity (required)")
	cmd.Flags().StringVar(&mappingPath, "mapping", "", "Path to the mapping JSON file (required)")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("entity")
	_ = cmd.MarkFlagRequired("mapping")
	return cmd
}
