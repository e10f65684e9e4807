package memory

import (
	"context"
	"fmt"
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

func testObservation(runID string, value float64) domain.QCObservation {
	return domain.QCObservation{
		Timestamp: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		Analyte:   "benzene",
		Value:     value,
		RunID:     runID,
	}
}

func TestStoreRunInTransactionAndSnapshots(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	target := testTarget()

	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, ok := tx.Snapshot().FindTarget("missing"); ok {
			t.Fatalf("expected missing target lookup")
		}
		stored, err := tx.PutTarget(target)
		if err != nil {
			return err
		}
		if stored.Key() != target.Key() {
			t.Fatalf("stored key mismatch: %q", stored.Key())
		}
		if _, err := tx.AppendObservation(target.Key(), testObservation("run-001", 101)); err != nil {
			return err
		}
		view := tx.Snapshot()
		if len(view.ListTargets()) != 1 {
			t.Fatalf("snapshot target count mismatch")
		}
		if len(view.Observations(target.Key())) != 1 {
			t.Fatalf("snapshot observation count mismatch")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("run transaction: %v", err)
	}

	if _, ok := store.FindTarget(target.Key()); !ok {
		t.Fatalf("expected persisted target")
	}
	if len(store.Observations(target.Key())) != 1 {
		t.Fatalf("expected persisted observation")
	}

	snapshot := store.ExportState()
	store.ImportState(Snapshot{})
	if len(store.ListTargets()) != 0 {
		t.Fatalf("expected cleared state")
	}
	store.ImportState(snapshot)
	if len(store.ListTargets()) != 1 {
		t.Fatalf("expected restored state")
	}
	if store.RulesEngine() == nil {
		t.Fatalf("expected rules engine")
	}
	if store.NowFunc() == nil {
		t.Fatalf("expected now func")
	}
}

func TestStoreRollsBackOnError(t *testing.T) {
	store := NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.PutTarget(testTarget()); err != nil {
			return err
		}
		return fmt.Errorf("boom")
	})
	if err == nil {
		t.Fatalf("expected transaction error")
	}
	if len(store.ListTargets()) != 0 {
		t.Fatalf("failed transaction must not mutate state")
	}
}

func TestStoreRuleViolationBlocksCommit(t *testing.T) {
	engine := domain.NewRulesEngine()
	engine.Register(blockingRule{})
	store := NewStore(engine)
	res, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.PutTarget(testTarget())
		return e
	})
	if err == nil {
		t.Fatalf("expected rule violation error")
	}
	if _, ok := err.(domain.RuleViolationError); !ok {
		t.Fatalf("expected RuleViolationError, got %T", err)
	}
	if !res.HasBlocking() {
		t.Fatalf("expected blocking result")
	}
	if len(store.ListTargets()) != 0 {
		t.Fatalf("blocked transaction must not mutate state")
	}
}

type blockingRule struct{}

func (blockingRule) Name() string { return "block" }

func (blockingRule) Evaluate(_ context.Context, _ domain.TransactionView, _ []domain.Change) (domain.Result, error) {
	return domain.Result{Violations: []domain.Violation{{Rule: "block", Severity: domain.SeverityBlock}}}, nil
}

func TestDeleteTargetRetainsHistory(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	target := testTarget()

	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.PutTarget(target); err != nil {
			return err
		}
		_, err := tx.AppendObservation(target.Key(), testObservation("run-001", 99))
		return err
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.DeleteTarget(target.Key())
	})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := store.FindTarget(target.Key()); ok {
		t.Fatalf("target should be gone")
	}
	if len(store.Observations(target.Key())) != 1 {
		t.Fatalf("observation history must survive target deletion")
	}

	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.DeleteTarget(target.Key())
	})
	if err == nil {
		t.Fatalf("deleting a missing target must error")
	}
}

func TestAppendObservationRequiresTarget(t *testing.T) {
	store := NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.AppendObservation("missing", testObservation("run-001", 100))
		return e
	})
	if err == nil {
		t.Fatalf("expected missing target error")
	}
}

func TestAppendEvaluationRequiresTargetKey(t *testing.T) {
	store := NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.AppendEvaluation(domain.QCEvaluationRecord{ID: "eval-1"})
		return e
	})
	if err == nil {
		t.Fatalf("expected target key error")
	}
}

func TestEvaluationRecordsAreDeepCopied(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	target := testTarget()
	record := domain.QCEvaluationRecord{
		ID:        "eval-1",
		TargetKey: target.Key(),
		Evaluation: domain.QCEvaluation{
			Status:   domain.QCStatusWarn,
			RuleHits: []domain.RuleName{domain.Rule12s},
		},
	}
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.PutTarget(target); err != nil {
			return err
		}
		_, err := tx.AppendEvaluation(record)
		return err
	})
	if err != nil {
		t.Fatalf("append evaluation: %v", err)
	}

	record.Evaluation.RuleHits[0] = domain.Rule13s
	stored := store.Evaluations(target.Key())
	if len(stored) != 1 {
		t.Fatalf("expected one evaluation record")
	}
	if stored[0].Evaluation.RuleHits[0] != domain.Rule12s {
		t.Fatalf("stored evaluation shares caller memory")
	}
	stored[0].Evaluation.RuleHits[0] = domain.Rule10x
	if store.Evaluations(target.Key())[0].Evaluation.RuleHits[0] != domain.Rule12s {
		t.Fatalf("read path must return copies")
	}
}

func TestMigrateSnapshotNormalizesState(t *testing.T) {
	migrated := migrateSnapshot(Snapshot{
		Observations: map[string][]domain.QCObservation{
			"empty": {},
			"kept":  {testObservation("run-001", 100)},
		},
		Evaluations: map[string][]domain.QCEvaluationRecord{
			"empty": {},
		},
	})
	if migrated.Targets == nil {
		t.Fatalf("nil targets map must be allocated")
	}
	if _, ok := migrated.Observations["empty"]; ok {
		t.Fatalf("empty observation series must be dropped")
	}
	if _, ok := migrated.Observations["kept"]; !ok {
		t.Fatalf("non-empty observation series must be kept")
	}
	if _, ok := migrated.Evaluations["empty"]; ok {
		t.Fatalf("empty evaluation series must be dropped")
	}
}

func TestListTargetsSortedByKey(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		for _, analyte := range []string{"toluene", "benzene", "xylene"} {
			target := testTarget()
			target.Analyte = analyte
			if _, err := tx.PutTarget(target); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	targets := store.ListTargets()
	if len(targets) != 3 {
		t.Fatalf("expected 3 targets, got %d", len(targets))
	}
	for i := 1; i < len(targets); i++ {
		if targets[i-1].Key() >= targets[i].Key() {
			t.Fatalf("targets not sorted: %q before %q", targets[i-1].Key(), targets[i].Key())
		}
	}
}

func TestViewIsReadOnlySnapshot(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	target := testTarget()
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.PutTarget(target)
		return err
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	err := store.View(ctx, func(view domain.TransactionView) error {
		if _, ok := view.FindTarget(target.Key()); !ok {
			t.Fatalf("expected target in view")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}
