package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var inferCmd = &cobra.Command{
	Use:   "infer",
	Short: "Infer the CBO occupations that best describe a résumé",
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

		threshold := rt.cfg.Matching.OccupationThreshold
		if cmd.Flags().Changed("threshold") {
			threshold, _ = cmd.Flags().GetFloat64("threshold")
		}
		topK := rt.cfg.Matching.OccupationTopK
		if cmd.Flags().Changed("top-k") {
			topK, _ = cmd.Flags().GetInt("top-k")
		}

		if err := rt.service.Warm(cmd.Context()); err != nil {
			return fmt.Errorf("building indices: %w", err)
		}

		if primary, _ := cmd.Flags().GetBool("primary"); primary {
			occ, err := rt.service.InferPrimaryOccupation(cmd.Context(), text, threshold)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{
				"primary_occupation": occ,
				"resume_type":        rt.service.ClassifyResume(occ),
			})
		}

		occupations, err := rt.service.InferOccupations(cmd.Context(), text, topK, threshold)
		if err != nil {
			return err
		}
		return printJSON(cmd, occupations)
	},
}

func init() {
	rootCmd.AddCommand(inferCmd)
	inferCmd.Flags().StringP("input", "i", "", "résumé text file, - for stdin")
	inferCmd.Flags().Float64("threshold", 0, "minimum similarity (default matching.occupation_threshold)")
	inferCmd.Flags().Int("top-k", 0, "number of occupations (default matching.occupation_top_k)")
	inferCmd.Flags().Bool("primary", false, "print only the primary occupation and the résumé type")
}
