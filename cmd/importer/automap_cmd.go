package main

import (
	"github.com/spf13/cobra"

	"github.com/Relaticle/relaticle-sub002/modules/importer/infrastructure/tabular"
	"github.com/Relaticle/relaticle-sub002/modules/importer/services"
)

func newAutomapCmd() *cobra.Command {
	var file, entity string

	cmd := &cobra.Command{
		Use:   "automap",
		Short: "Propose a column mapping for an uploaded file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			target, err := parseEntity(entity)
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

			svc := services.NewMappingService(a.registry, a.conf.Import.SampleSize, a.log)
			set, err := svc.AutoMap(ctx, target, reader)
			if err != nil {
				return withCode(exitValidation, err)
			}
			return writeJSONLine(mappingFile{Mappings: set.All()})
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Path to the CSV/XLSX file (required)")
	cmd.Flags().StringVar(&entity, "entity", "", "Target entity: company, person, opportunity, task (required)")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("entity")
	return cmd
}
