package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Relaticle/relaticle-sub002/modules/importer/domain/imports"
	"github.com/Relaticle/relaticle-sub002/modules/importer/domain/mapping"
)

// mappingFile is the confirmed wizard state handed to preview and run: the
// column mapping, the chosen duplicate strategy and any review corrections.
type mappingFile struct {
	Strategy    string                  `json:"strategy"`
	Mappings    []mapping.ColumnMapping `json:"mappings"`
	Corrections *mapping.Corrections    `json:"corrections,omitempty"`
}

func loadMappingFile(path string) (*mapping.Set, *mapping.Corrections, imports.Strategy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, "", withCode(exitUsage, fmt.Errorf("read mapping file: %w", err))
	}
	var mf mappingFile
	if err := json.Unmarshal(raw, &mf); err != nil {
		return nil, nil, "", withCode(exitUsage, fmt.Errorf("parse mapping file: %w", err))
	}

	strategy := imports.StrategySkip
	if mf.Strategy != "" {
		strategy, err = imports.ParseStrategy(mf.Strategy)
		if err != nil {
			return nil, nil, "", withCode(exitUsage, err)
		}
	}

	set := mapping.NewSet()
	for _, m := range mf.Mappings {
		if err := set.Add(m); err != nil {
			return nil, nil, "", withCode(exitValidation, err)
		}
	}
	corrections := mf.Corrections
	if corrections == nil {
		corrections = mapping.NewCorrections()
	}
	return set, corrections, strategy, nil
}
