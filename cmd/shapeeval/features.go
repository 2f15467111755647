package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/resul4e/shapeeval/internal/features"
	apperrors "github.com/resul4e/shapeeval/internal/pkg/errors"
	"github.com/resul4e/shapeeval/internal/report"
)

const (
	kindDistribution = "distribution"
	kindDiagnostics  = "diagnostics"
)

func standardizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "standardize FILE",
		Short: "Z-score a feature distribution",
		Long: `Read a feature distribution (mean, standard deviation, then the values)
and write the z-score of every value. With --hist, also write the histogram
of the standardised values over [-3, 3].`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			d, err := features.LoadDistribution(args[0])
			if err != nil {
				return err
			}
			z, err := features.Standardize(d)
			if err != nil {
				return err
			}

			w, err := a.writer()
			if err != nil {
				return err
			}
			if err := w.WriteTable("standardized", report.ValueRecords(z)); err != nil {
				return err
			}

			if hist, _ := cmd.Flags().GetBool("hist"); hist {
				p := features.Presets["standardized"]
				h, err := features.NewHistogram(z, p.Lo, p.Hi, p.Edges)
				if err != nil {
					return err
				}
				a.logOutliers("standardized", h)
				return w.WriteTable("histogram", report.HistogramRecords("standardized", h))
			}
			return nil
		},
	}
	cmd.Flags().Bool("hist", false, "also write the histogram of the standardised values")
	return cmd
}

func histCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hist FILE",
		Short: "Histogram of a feature distribution or normalisation diagnostic",
		Long: `Bin a feature file into equal-width bins.

A distribution file is standardised before binning. A diagnostics file holds
before,after rows; --series picks the column. The range comes from --preset
(standardized, barycenter, alignment, scale) and can be overridden with
--lo, --hi and --edges.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			kind, _ := flags.GetString("kind")
			series, _ := flags.GetString("series")
			presetName, _ := flags.GetString("preset")

			var values []float64
			switch kind {
			case kindDistribution:
				d, err := features.LoadDistribution(args[0])
				if err != nil {
					return err
				}
				if values, err = features.Standardize(d); err != nil {
					return err
				}
				series = "standardized"
				if !flags.Changed("preset") {
					presetName = "standardized"
				}
			case kindDiagnostics:
				d, err := features.LoadDiagnostics(args[0])
				if err != nil {
					return err
				}
				if values, err = d.Series(series); err != nil {
					return err
				}
			default:
				return apperrors.ValidationError(fmt.Sprintf("unknown kind %q, want %s or %s", kind, kindDistribution, kindDiagnostics))
			}

			p, err := features.LookupPreset(presetName)
			if err != nil {
				return err
			}
			if flags.Changed("lo") {
				p.Lo, _ = flags.GetFloat64("lo")
			}
			if flags.Changed("hi") {
				p.Hi, _ = flags.GetFloat64("hi")
			}
			if flags.Changed("edges") {
				p.Edges, _ = flags.GetInt("edges")
			}

			h, err := features.NewHistogram(values, p.Lo, p.Hi, p.Edges)
			if err != nil {
				return err
			}
			a.logOutliers(series, h)

			w, err := a.writer()
			if err != nil {
				return err
			}
			return w.WriteTable("histogram", report.HistogramRecords(series, h))
		},
	}

	cmd.Flags().String("kind", kindDiagnostics, "file kind (diagnostics, distribution)")
	cmd.Flags().String("series", "after", "diagnostics column (before, after)")
	cmd.Flags().String("preset", "barycenter", "histogram range preset")
	cmd.Flags().Float64("lo", 0, "lower edge, overrides the preset")
	cmd.Flags().Float64("hi", 0, "upper edge, overrides the preset")
	cmd.Flags().Int("edges", 0, "number of bin edges, overrides the preset")
	return cmd
}

// logOutliers reports values that fell outside the histogram range.
func (a *app) logOutliers(series string, h features.Histogram) {
	if h.Below == 0 && h.Above == 0 && h.NaN == 0 {
		return
	}
	a.log.Warn("Values outside histogram range",
		"series", series,
		"below", h.Below,
		"above", h.Above,
		"nan", h.NaN,
	)
}
