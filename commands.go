package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/database-playground/sqlgrader/lib/config"
	"github.com/database-playground/sqlgrader/lib/exercise"
	"github.com/database-playground/sqlgrader/lib/grader"
	"github.com/database-playground/sqlgrader/lib/sqlrunner"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify that every exercise initializes and its reference grades as correct",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		catalog, err := loadCatalog(cfg)
		if err != nil {
			return fmt.Errorf("load exercises: %w", err)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Query.Timeout*time.Duration(max(catalog.Len(), 1)))
		defer cancel()

		return runCheck(ctx, cmd.OutOrStdout(), catalog)
	},
}

var (
	gradeExercise string
	gradeQuery    string
)

var gradeCmd = &cobra.Command{
	Use:   "grade",
	Short: "Grade one query against an exercise and print the feedback as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		catalog, err := loadCatalog(cfg)
		if err != nil {
			return fmt.Errorf("load exercises: %w", err)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Query.Timeout)
		defer cancel()

		return runGrade(ctx, cmd.OutOrStdout(), catalog, gradeExercise, gradeQuery)
	},
}

func init() {
	gradeCmd.Flags().StringVarP(&gradeExercise, "exercise", "e", "", "Exercise ID")
	gradeCmd.Flags().StringVarP(&gradeQuery, "query", "q", "", "SQL to grade")
	_ = gradeCmd.MarkFlagRequired("exercise")
	_ = gradeCmd.MarkFlagRequired("query")
}

// runCheck prints one line per exercise and fails when any is broken.
func runCheck(ctx context.Context, w io.Writer, catalog *exercise.Catalog) error {
	reports := grader.Verify(ctx, catalog)
	for _, r := range reports {
		if r.OK() {
			fmt.Fprintf(w, "ok    %s\n", r.ExerciseID)
			continue
		}
		fmt.Fprintf(w, "FAIL  %s  %s: %s\n", r.ExerciseID, r.Problem, r.Err)
	}

	return grader.Failed(reports)
}

type gradeOutput struct {
	Exercise string                  `json:"exercise"`
	Results  []sqlrunner.QueryResult `json:"results"`
	Feedback grader.Feedback         `json:"feedback"`
}

// runGrade starts a one-off session, runs query in it and writes the
// submission as JSON.
func runGrade(ctx context.Context, w io.Writer, catalog *exercise.Catalog, id, query string) error {
	def, err := catalog.Get(id)
	if err != nil {
		return err
	}

	session, err := grader.Start(ctx, def)
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	submission, err := session.Run(ctx, query)
	if err != nil {
		return err
	}

	out := gradeOutput{
		Exercise: def.ID,
		Results:  submission.Outcome.Results,
		Feedback: submission.Feedback,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
