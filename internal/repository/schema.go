package repository

// Schema is the DDL for all engine tables. Applied by cmd/seed and by the
// repository integration tests.
const Schema = `
CREATE TABLE IF NOT EXISTS workspaces (
	id              UUID PRIMARY KEY,
	name            TEXT NOT NULL,
	description     TEXT NOT NULL DEFAULT '',
	target_audience TEXT NOT NULL DEFAULT '',
	brand_voice     TEXT NOT NULL DEFAULT '',
	keywords        JSONB NOT NULL DEFAULT '[]',
	credential      TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS workflow_definitions (
	id           UUID PRIMARY KEY,
	workspace_id UUID NOT NULL REFERENCES workspaces(id),
	name         TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	stages       JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS runs (
	id             UUID PRIMARY KEY,
	definition_id  UUID NOT NULL,
	workspace_id   UUID NOT NULL,
	status         TEXT NOT NULL,
	dry_run        BOOLEAN NOT NULL DEFAULT false,
	started_at     TIMESTAMPTZ NOT NULL,
	completed_at   TIMESTAMPTZ,
	result_summary JSONB,
	error_message  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS processed_posts (
	workspace_id UUID NOT NULL,
	post_id      TEXT NOT NULL,
	run_id       UUID NOT NULL,
	score        DOUBLE PRECISION NOT NULL,
	recommend    BOOLEAN NOT NULL,
	rationale    TEXT NOT NULL DEFAULT '',
	draft_text   TEXT NOT NULL DEFAULT '',
	posted       BOOLEAN NOT NULL DEFAULT false,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (workspace_id, post_id)
);
`
