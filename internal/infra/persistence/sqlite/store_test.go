package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"gclabcore/pkg/domain"
)

func testTarget() domain.QCTarget {
	return domain.QCTarget{
		MethodID:  "EPA-8270",
		Analyte:   "benzene",
		Mean:      100,
		SD:        5,
		Unit:      "ug/mL",
		NRequired: 10,
	}
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qc", "gclab.db")
	ctx := context.Background()
	target := testTarget()

	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.PutTarget(target); err != nil {
			return err
		}
		obs := domain.QCObservation{
			Timestamp: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
			Analyte:   "benzene",
			Value:     102,
			RunID:     "run-001",
		}
		if _, err := tx.AppendObservation(target.Key(), obs); err != nil {
			return err
		}
		_, err := tx.AppendEvaluation(domain.QCEvaluationRecord{
			ID:        "eval-1",
			TargetKey: target.Key(),
			RunID:     "run-001",
			Evaluation: domain.QCEvaluation{
				Status: domain.QCStatusPass,
				ZScore: 0.4,
			},
			EvaluatedAt: time.Date(2026, 3, 1, 8, 1, 0, 0, time.UTC),
		})
		return err
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if store.Path() != path {
		t.Fatalf("path: got %q want %q", store.Path(), path)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	loaded, ok := reopened.FindTarget(target.Key())
	if !ok {
		t.Fatalf("target missing after reopen")
	}
	if loaded.Mean != target.Mean || loaded.SD != target.SD {
		t.Fatalf("target fields lost: %+v", loaded)
	}
	obs := reopened.Observations(target.Key())
	if len(obs) != 1 || obs[0].RunID != "run-001" {
		t.Fatalf("observations lost: %+v", obs)
	}
	evals := reopened.Evaluations(target.Key())
	if len(evals) != 1 || evals[0].Evaluation.Status != domain.QCStatusPass {
		t.Fatalf("evaluations lost: %+v", evals)
	}
}

func TestStoreFailedTransactionDoesNotPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gclab.db")
	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.AppendObservation("missing", domain.QCObservation{RunID: "run-001"})
		return e
	})
	if err == nil {
		t.Fatalf("expected missing target error")
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	if len(reopened.ListTargets()) != 0 || len(reopened.Observations("missing")) != 0 {
		t.Fatalf("failed transaction leaked state")
	}
}

func TestStoreExposesDB(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "gclab.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer func() { _ = store.Close() }()
	if store.DB() == nil {
		t.Fatalf("expected sql.DB handle")
	}
	var count int
	if err := store.DB().QueryRow(`SELECT COUNT(*) FROM state`).Scan(&count); err != nil {
		t.Fatalf("state table missing: %v", err)
	}
}
