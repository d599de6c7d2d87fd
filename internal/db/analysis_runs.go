package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kube-rca/jvm-analyzer/internal/model"
)

const (
	defaultRunListLimit = 50
	maxRunListLimit     = 500
)

// EnsureAnalysisRunsSchema - analysis_runs 테이블 생성 (없으면)
func (p *Postgres) EnsureAnalysisRunsSchema(ctx context.Context) error {
	_, err := p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS analysis_runs (
			run_id            TEXT         PRIMARY KEY,
			pod               TEXT         NOT NULL,
			pod_ip            TEXT         NOT NULL DEFAULT '',
			datetime          TEXT         NOT NULL DEFAULT '',
			profile_key       TEXT         NOT NULL DEFAULT '',
			report_source     TEXT         NOT NULL DEFAULT '',
			artifact_keys     TEXT[]       NOT NULL DEFAULT '{}',
			artifact_failures INT          NOT NULL DEFAULT 0,
			status            TEXT         NOT NULL,
			error             TEXT         NOT NULL DEFAULT '',
			duration_ms       BIGINT       NOT NULL DEFAULT 0,
			created_at        TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_analysis_runs_pod_created
			ON analysis_runs (pod, created_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("failed to create analysis_runs table: %w", err)
	}
	return nil
}

// InsertAnalysisRun - 파이프라인 1회 실행 기록
func (p *Postgres) InsertAnalysisRun(ctx context.Context, run model.AnalysisRun) error {
	keys := run.ArtifactKeys
	if keys == nil {
		keys = []string{}
	}
	_, err := p.Pool.Exec(ctx, `
		INSERT INTO analysis_runs (
			run_id, pod, pod_ip, datetime, profile_key, report_source,
			artifact_keys, artifact_failures, status, error, duration_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (run_id) DO NOTHING;
	`,
		run.RunID, run.Pod, run.PodIP, run.Datetime, run.ProfileKey, run.ReportSource,
		keys, run.ArtifactFailures, run.Status, run.Error, run.DurationMs, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert analysis run: %w", err)
	}
	return nil
}

// ListAnalysisRuns - 최신순 목록. pod가 비어 있으면 전체
func (p *Postgres) ListAnalysisRuns(ctx context.Context, pod string, limit int) ([]model.AnalysisRun, error) {
	rows, err := p.Pool.Query(ctx, `
		SELECT run_id, pod, pod_ip, datetime, profile_key, report_source,
		       artifact_keys, artifact_failures, status, error, duration_ms, created_at
		FROM analysis_runs
		WHERE ($1 = '' OR pod = $1)
		ORDER BY created_at DESC
		LIMIT $2;
	`, pod, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis runs: %w", err)
	}

	runs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.AnalysisRun, error) {
		var r model.AnalysisRun
		err := row.Scan(
			&r.RunID, &r.Pod, &r.PodIP, &r.Datetime, &r.ProfileKey, &r.ReportSource,
			&r.ArtifactKeys, &r.ArtifactFailures, &r.Status, &r.Error, &r.DurationMs, &r.CreatedAt,
		)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan analysis runs: %w", err)
	}
	if runs == nil {
		runs = []model.AnalysisRun{}
	}
	return runs, nil
}

// ClampLimit - 0 이하는 기본값, 상한 초과는 상한으로
func ClampLimit(limit int) int {
	if limit <= 0 {
		return defaultRunListLimit
	}
	return min(limit, maxRunListLimit)
}
