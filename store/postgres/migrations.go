package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Bastion store (PostgreSQL).
var Migrations = migrate.NewGroup("bastion")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_rules",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS bastion_rules (
    id              TEXT PRIMARY KEY,
    tenant_id       TEXT NOT NULL,
    description     TEXT NOT NULL DEFAULT '',
    subject         TEXT NOT NULL,
    resource        TEXT NOT NULL,
    action          TEXT NOT NULL,
    effect          TEXT NOT NULL,
    priority        INTEGER NOT NULL DEFAULT 0,
    conditions      JSONB NOT NULL DEFAULT '[]',
    version         BIGINT NOT NULL DEFAULT 0,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_bastion_rules_tenant ON bastion_rules (tenant_id);
CREATE INDEX IF NOT EXISTS idx_bastion_rules_effect ON bastion_rules (tenant_id, effect);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS bastion_rules`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_role_edges",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS bastion_role_edges (
    id              TEXT PRIMARY KEY,
    tenant_id       TEXT NOT NULL,
    child           TEXT NOT NULL,
    parent          TEXT NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),

    UNIQUE(tenant_id, child, parent)
);

CREATE INDEX IF NOT EXISTS idx_bastion_edges_child ON bastion_role_edges (tenant_id, child);
CREATE INDEX IF NOT EXISTS idx_bastion_edges_parent ON bastion_role_edges (tenant_id, parent);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS bastion_role_edges`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_assignments",
			Version: "20240101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS bastion_assignments (
    id              TEXT PRIMARY KEY,
    tenant_id       TEXT NOT NULL,
    subject_id      TEXT NOT NULL,
    role            TEXT NOT NULL,
    granted_by      TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),

    UNIQUE(tenant_id, subject_id, role)
);

CREATE INDEX IF NOT EXISTS idx_bastion_assign_subject ON bastion_assignments (subject_id);
CREATE INDEX IF NOT EXISTS idx_bastion_assign_tenant ON bastion_assignments (tenant_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS bastion_assignments`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_subjects",
			Version: "20240101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS bastion_subjects (
    id              TEXT PRIMARY KEY,
    tenant_id       TEXT NOT NULL,
    subject_id      TEXT NOT NULL,
    display_name    TEXT NOT NULL DEFAULT '',
    attributes      JSONB NOT NULL DEFAULT '{}',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),

    UNIQUE(subject_id)
);

CREATE INDEX IF NOT EXISTS idx_bastion_subjects_tenant ON bastion_subjects (tenant_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS bastion_subjects`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_changes",
			Version: "20240101000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS bastion_changes (
    version         BIGINT PRIMARY KEY,
    kind            TEXT NOT NULL,
    entity          TEXT NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS bastion_changes`)
				return err
			},
		},
	)
}
