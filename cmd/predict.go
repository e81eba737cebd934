package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"waste_service/internal/core"
	"waste_service/internal/domain/model"
	"waste_service/internal/infrastructure/logging"
)

type predictOutput struct {
	Prediction model.PredictionResult `json:"prediction"`
	ZoneName   string                 `json:"zone_name"`
	Fallback   string                 `json:"fallback,omitempty"`
}

func newPredictCmd() *cobra.Command {
	var (
		total, covered, ward int
		zone                 string
	)
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Run one prediction against the configured artifacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}, os.Stderr)

			a, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			raw := model.RawInput{
				core.FieldTotalHouseholds:   total,
				core.FieldCoveredHouseholds: covered,
				core.FieldZoneName:          zone,
				core.FieldWardNumber:        ward,
			}
			outcome, err := a.predictions.Predict(cmd.Context(), raw)
			if err != nil {
				return err
			}

			out := predictOutput{Prediction: outcome.Result, ZoneName: outcome.Request.ZoneName}
			if outcome.Warning != nil {
				out.Fallback = outcome.Warning.Error()
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().IntVar(&total, "total", 0, "total households in the ward")
	cmd.Flags().IntVar(&covered, "covered", 0, "households covered by doorstep collection")
	cmd.Flags().StringVar(&zone, "zone", "", "zone name")
	cmd.Flags().IntVar(&ward, "ward", 1, "ward number")
	return cmd
}
