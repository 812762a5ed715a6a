package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/definite-d/zonosign-backend/core/catalog"
)

const defaultSeedFile = "assets/seed/catalog.yaml"

type (
	catalogSaver interface {
		SaveCatalog(ctx context.Context, modules []catalog.Module, lessons []catalog.Lesson) error
	}

	seedFile struct {
		Modules []seedModule `yaml:"modules"`
	}

	seedModule struct {
		ID                int64        `yaml:"id"`
		Title             string       `yaml:"title"`
		Description       string       `yaml:"description"`
		OrderIndex        int          `yaml:"order_index"`
		DifficultyLevel   int          `yaml:"difficulty_level"`
		EstimatedDuration int          `yaml:"estimated_duration"`
		IsActive          *bool        `yaml:"is_active"`
		Lessons           []seedLesson `yaml:"lessons"`
	}

	seedLesson struct {
		ID                int64  `yaml:"id"`
		Title             string `yaml:"title"`
		Description       string `yaml:"description"`
		OrderIndex        int    `yaml:"order_index"`
		EstimatedDuration int    `yaml:"estimated_duration"`
		IsActive          *bool  `yaml:"is_active"`
	}
)

func active(b *bool) bool {
	return b == nil || *b
}

// parseSeed decodes a catalog seed file. Missing is_active flags default to true.
func parseSeed(data []byte) ([]catalog.Module, []catalog.Lesson, error) {
	var sf seedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, nil, errors.Wrap(err, "decoding seed file")
	}

	modules := make([]catalog.Module, 0, len(sf.Modules))
	lessons := make([]catalog.Lesson, 0)
	for _, m := range sf.Modules {
		if m.ID <= 0 || m.Title == "" {
			return nil, nil, errors.Errorf("module %q: id and title are required", m.Title)
		}
		level := m.DifficultyLevel
		if level <= 0 {
			level = 1
		}
		modules = append(modules, catalog.Module{
			ID:                m.ID,
			Title:             m.Title,
			Description:       m.Description,
			OrderIndex:        m.OrderIndex,
			DifficultyLevel:   level,
			EstimatedDuration: m.EstimatedDuration,
			IsActive:          active(m.IsActive),
		})
		for _, l := range m.Lessons {
			if l.ID <= 0 || l.Title == "" {
				return nil, nil, errors.Errorf("module %d lesson %q: id and title are required", m.ID, l.Title)
			}
			lessons = append(lessons, catalog.Lesson{
				ID:                l.ID,
				ModuleID:          m.ID,
				Title:             l.Title,
				Description:       l.Description,
				OrderIndex:        l.OrderIndex,
				EstimatedDuration: l.EstimatedDuration,
				IsActive:          active(l.IsActive),
			})
		}
	}
	return modules, lessons, nil
}

func (cli *commandLine) newSeedCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load curriculum modules and lessons from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return errors.Wrap(err, "reading seed file")
			}
			modules, lessons, err := parseSeed(data)
			if err != nil {
				return err
			}
			if err = cli.catalogRepo.SaveCatalog(cmd.Context(), modules, lessons); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d modules, %d lessons\n", len(modules), len(lessons))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", defaultSeedFile, "Seed file path")
	return cmd
}
