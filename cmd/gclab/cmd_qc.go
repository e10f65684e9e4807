package main

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"time"

	"github.com/spf13/cobra"

	"gclabcore/internal/blob"
	"gclabcore/internal/export"
	"gclabcore/pkg/domain"
)

var (
	flagMethodID     string
	flagInstrumentID string
	flagAnalyte      string
	flagMean         float64
	flagSD           float64
	flagUnit         string
	flagNRequired    int

	flagTargetKey string
	flagValue     float64
	flagRunID     string

	flagExportFormats []string
	flagExportReason  string
)

var qcCmd = &cobra.Command{
	Use:   "qc",
	Short: "Westgard quality-control workflow",
}

var qcTargetCmd = &cobra.Command{
	Use:   "target",
	Short: "Manage QC targets",
}

var qcTargetSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Create or replace a QC target",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		stored, _, err := svc.PutTarget(cmd.Context(), domain.QCTarget{
			MethodID:     flagMethodID,
			InstrumentID: flagInstrumentID,
			Analyte:      flagAnalyte,
			Mean:         flagMean,
			SD:           flagSD,
			Unit:         flagUnit,
			NRequired:    flagNRequired,
		})
		if err != nil {
			return err
		}
		return printJSON(stored)
	},
}

var qcTargetDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a QC target; its history is retained",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		if _, err := svc.DeleteTarget(cmd.Context(), flagTargetKey); err != nil {
			return err
		}
		fmt.Println("deleted", flagTargetKey)
		return nil
	},
}

var qcTargetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List stored QC targets",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		return printJSON(svc.Targets(cmd.Context()))
	},
}

var qcRecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a control observation and persist its evaluation",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		outcome, _, err := svc.RecordObservation(cmd.Context(), flagTargetKey, domain.QCObservation{
			Timestamp: time.Now().UTC(),
			Analyte:   flagAnalyte,
			Value:     flagValue,
			RunID:     flagRunID,
		})
		if err != nil {
			return err
		}
		return printJSON(outcome)
	},
}

var qcEvaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score an observation against stored history without persisting",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		eval, err := svc.EvaluateObservation(cmd.Context(), flagTargetKey, domain.QCObservation{
			Timestamp: time.Now().UTC(),
			Analyte:   flagAnalyte,
			Value:     flagValue,
			RunID:     flagRunID,
		})
		if err != nil {
			return err
		}
		return printJSON(eval)
	},
}

var qcHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the chronological observation series for a target",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		return printJSON(svc.History(cmd.Context(), flagTargetKey))
	},
}

var qcEvaluationsCmd = &cobra.Command{
	Use:   "evaluations",
	Short: "Show persisted evaluation records for a target",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		return printJSON(svc.Evaluations(cmd.Context(), flagTargetKey))
	},
}

var qcExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the Levey-Jennings dataset for a target to blob storage",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		svc, err := newService()
		if err != nil {
			return err
		}
		store, err := blob.Open(ctx)
		if err != nil {
			return fmt.Errorf("open blob store: %w", err)
		}

		formats := make([]export.Format, 0, len(flagExportFormats))
		for _, f := range flagExportFormats {
			formats = append(formats, export.Format(f))
		}

		worker := export.NewWorker(svc.Store(), store, nil)
		worker.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = worker.Stop(stopCtx)
		}()

		record, err := worker.EnqueueExport(ctx, export.Input{
			TargetKey:   flagTargetKey,
			Formats:     formats,
			RequestedBy: currentUser(),
			Reason:      flagExportReason,
		})
		if err != nil {
			return err
		}

		deadline := time.Now().Add(30 * time.Second)
		for record.Status != export.StatusSucceeded && record.Status != export.StatusFailed {
			if time.Now().After(deadline) {
				return fmt.Errorf("export %s timed out in state %s", record.ID, record.Status)
			}
			time.Sleep(50 * time.Millisecond)
			record, _ = worker.GetExport(record.ID)
		}
		if record.Status == export.StatusFailed {
			return fmt.Errorf("export failed: %s", record.Error)
		}
		return printJSON(record)
	},
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return os.Getenv("USER")
}

func init() {
	qcTargetSetCmd.Flags().StringVar(&flagMethodID, "method", "", "method identifier")
	qcTargetSetCmd.Flags().StringVar(&flagInstrumentID, "instrument", "", "instrument identifier")
	qcTargetSetCmd.Flags().StringVar(&flagAnalyte, "analyte", "", "analyte name")
	qcTargetSetCmd.Flags().Float64Var(&flagMean, "mean", 0, "target mean")
	qcTargetSetCmd.Flags().Float64Var(&flagSD, "sd", 0, "target standard deviation")
	qcTargetSetCmd.Flags().StringVar(&flagUnit, "unit", "", "measurement unit")
	qcTargetSetCmd.Flags().IntVar(&flagNRequired, "n", 10, "points required before strict multi-point rules")
	for _, name := range []string{"method", "analyte", "mean", "sd"} {
		_ = qcTargetSetCmd.MarkFlagRequired(name)
	}

	qcTargetDeleteCmd.Flags().StringVar(&flagTargetKey, "target", "", "target key (method|instrument|analyte)")
	_ = qcTargetDeleteCmd.MarkFlagRequired("target")

	for _, cmd := range []*cobra.Command{qcRecordCmd, qcEvaluateCmd} {
		cmd.Flags().StringVar(&flagTargetKey, "target", "", "target key (method|instrument|analyte)")
		cmd.Flags().Float64Var(&flagValue, "value", 0, "observed control value")
		cmd.Flags().StringVar(&flagRunID, "run", "", "run identifier")
		cmd.Flags().StringVar(&flagAnalyte, "analyte", "", "analyte name")
		_ = cmd.MarkFlagRequired("target")
		_ = cmd.MarkFlagRequired("value")
	}

	for _, cmd := range []*cobra.Command{qcHistoryCmd, qcEvaluationsCmd} {
		cmd.Flags().StringVar(&flagTargetKey, "target", "", "target key (method|instrument|analyte)")
		_ = cmd.MarkFlagRequired("target")
	}

	qcExportCmd.Flags().StringVar(&flagTargetKey, "target", "", "target key (method|instrument|analyte)")
	qcExportCmd.Flags().StringSliceVar(&flagExportFormats, "formats", []string{"json", "csv"}, "artifact formats")
	qcExportCmd.Flags().StringVar(&flagExportReason, "reason", "", "reason recorded with the export")
	_ = qcExportCmd.MarkFlagRequired("target")

	qcTargetCmd.AddCommand(qcTargetSetCmd, qcTargetDeleteCmd)
	qcCmd.AddCommand(qcTargetCmd, qcTargetsCmd, qcRecordCmd, qcEvaluateCmd, qcHistoryCmd, qcEvaluationsCmd, qcExportCmd)
}
