package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"yashubustudio/occumatch/internal/export"
	"yashubustudio/occumatch/skillmatch"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract skills from a résumé and map them onto the CBO vocabulary",
	RunE: func(cmd *cobra.Command, _ []string) error {
		text, err := readInput(cmd)
		if err != nil {
			return err
		}
		rt, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		threshold := rt.cfg.Matching.SkillThreshold
		if cmd.Flags().Changed("threshold") {
			threshold, _ = cmd.Flags().GetFloat64("threshold")
		}
		topK := rt.cfg.Matching.SkillTopK
		if cmd.Flags().Changed("top-k") {
			topK, _ = cmd.Flags().GetInt("top-k")
		}

		if err := rt.service.Warm(cmd.Context()); err != nil {
			return fmt.Errorf("building indices: %w", err)
		}
		res, err := rt.service.ExtractResumeSkills(cmd.Context(), text, threshold, topK)
		if err != nil {
			return err
		}

		if out, _ := cmd.Flags().GetString("output"); out != "" {
			if err := export.WriteSkillsCSV(out, res); err != nil {
				return err
			}
			rt.logger.Info("skills written", zap.String("path", out))
		}
		if out, _ := cmd.Flags().GetString("xlsx"); out != "" {
			occupations, err := rt.service.InferOccupations(cmd.Context(), text, rt.cfg.Matching.OccupationTopK, rt.cfg.Matching.OccupationThreshold)
			if err != nil {
				return err
			}
			path, err := export.WriteSkillsXLSX(out, res, occupations)
			if err != nil {
				return err
			}
			rt.logger.Info("workbook written", zap.String("path", path))
		}
		return printJSON(cmd, res)
	},
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Score candidate skills against job requirements",
	RunE: func(cmd *cobra.Command, _ []string) error {
		skills, _ := cmd.Flags().GetStringSlice("skills")
		requirements, _ := cmd.Flags().GetStringSlice("requirements")
		if len(requirements) == 0 {
			return skillmatch.ErrEmptyRequirements
		}
		rt, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		if err := rt.service.Warm(cmd.Context()); err != nil {
			return fmt.Errorf("building indices: %w", err)
		}
		res, err := rt.service.CalculateProfileMatch(cmd.Context(), skills, requirements, 0.7, 0.3)
		if err != nil {
			return err
		}
		return printJSON(cmd, res)
	},
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().StringP("input", "i", "", "résumé text file, - for stdin")
	extractCmd.Flags().Float64("threshold", 0, "minimum similarity for a match (default matching.skill_threshold)")
	extractCmd.Flags().Int("top-k", 0, "vocabulary entries considered per candidate (default matching.skill_top_k)")
	extractCmd.Flags().StringP("output", "o", "", "write the skills to this CSV file")
	extractCmd.Flags().String("xlsx", "", "write skills and inferred occupations to this Excel file")

	rootCmd.AddCommand(matchCmd)
	matchCmd.Flags().StringSlice("skills", nil, "candidate skills, comma separated")
	matchCmd.Flags().StringSlice("requirements", nil, "job requirements, comma separated")
}
